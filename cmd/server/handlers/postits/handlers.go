package postits

import (
	"context"

	"postit/cmd/server/handlers/handlerutil"
	"postit/internal/remote"
	"postit/internal/services/postit"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Service defines the interface for the postits service
type Service interface {
	List(ctx context.Context, page string) ([]postit.Note, error)
	Create(ctx context.Context, page string, n postit.Note) (postit.Note, error)
	Update(ctx context.Context, page, id string, n postit.Note) (postit.Note, error)
	Delete(ctx context.Context, page, id string) error
}

// PostitRequest is the body of create and update requests.
type PostitRequest struct {
	PostitID  string `json:"postit_id" validate:"omitempty,max=64" example:"01HZX3J8Q4T9V6W2Y5B7C1D0EF"`
	Color     string `json:"color" validate:"required,oneof=yellow green pink cyan blue sienna" example:"yellow"`
	X         int    `json:"x" example:"120"`
	Y         int    `json:"y" example:"80"`
	Rotate    int    `json:"rotate" validate:"min=-5,max=5" example:"-2"`
	Content   string `json:"content" validate:"max=65536" example:"<b>call</b> Anna"`
	Minimized bool   `json:"minimized" example:"false"`
}

func (r PostitRequest) note() postit.Note {
	return remote.Record{
		PostitID:  r.PostitID,
		Color:     postit.Color(r.Color),
		X:         r.X,
		Y:         r.Y,
		Rotate:    r.Rotate,
		Content:   r.Content,
		Minimized: r.Minimized,
	}.Note()
}

// Handlers contains the postits HTTP handlers
type Handlers struct {
	service   Service
	validator *validator.Validate
}

// NewHandlers creates new postits handlers
func NewHandlers(service Service, validator *validator.Validate) *Handlers {
	return &Handlers{
		service:   service,
		validator: validator,
	}
}

// List handles listing the notes of a page
// @Summary List the notes of a page
// @Tags postits
// @Produce json
// @Param page path string true "Path-escaped page URL"
// @Success 200 {array} remote.Record
// @Failure 400 {object} httperr.E
// @Failure 503 {object} httperr.E
// @Router /pages/{page}/postits [get]
func (h *Handlers) List(c *fiber.Ctx) error {
	page, err := handlerutil.PageURL(c, "List")
	if err != nil {
		return err
	}

	notes, err := h.service.List(c.UserContext(), page)
	if err != nil {
		return handlerutil.HandleServiceError(err, "List", page, "")
	}

	out := make([]remote.Record, 0, len(notes))
	for _, n := range notes {
		out = append(out, remote.ToRecord(n))
	}
	return c.JSON(out)
}

// Create handles note creation
// @Summary Add a note to a page
// @Tags postits
// @Accept json
// @Produce json
// @Param page path string true "Path-escaped page URL"
// @Param request body PostitRequest true "Note; postit_id is assigned when empty"
// @Success 201 {object} remote.Record
// @Failure 400 {object} httperr.E
// @Failure 409 {object} httperr.E
// @Router /pages/{page}/postits [post]
func (h *Handlers) Create(c *fiber.Ctx) error {
	page, err := handlerutil.PageURL(c, "Create")
	if err != nil {
		return err
	}

	var req PostitRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "Create"); err != nil {
		return err
	}

	n, err := h.service.Create(c.UserContext(), page, req.note())
	if err != nil {
		return handlerutil.HandleServiceError(err, "Create", page, req.PostitID)
	}

	return c.Status(fiber.StatusCreated).JSON(remote.ToRecord(n))
}

// Update handles replacing a note
// @Summary Replace a note
// @Tags postits
// @Accept json
// @Produce json
// @Param page path string true "Path-escaped page URL"
// @Param id path string true "Note ID"
// @Param request body PostitRequest true "Note"
// @Success 200 {object} remote.Record
// @Failure 400 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Router /pages/{page}/postits/{id} [put]
func (h *Handlers) Update(c *fiber.Ctx) error {
	page, err := handlerutil.PageURL(c, "Update")
	if err != nil {
		return err
	}
	id, err := handlerutil.PostitID(c, "Update")
	if err != nil {
		return err
	}

	var req PostitRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "Update"); err != nil {
		return err
	}

	n, err := h.service.Update(c.UserContext(), page, id, req.note())
	if err != nil {
		return handlerutil.HandleServiceError(err, "Update", page, id)
	}

	return c.JSON(remote.ToRecord(n))
}

// Delete handles note deletion
// @Summary Delete a note
// @Tags postits
// @Param page path string true "Path-escaped page URL"
// @Param id path string true "Note ID"
// @Success 204
// @Failure 404 {object} httperr.E
// @Router /pages/{page}/postits/{id} [delete]
func (h *Handlers) Delete(c *fiber.Ctx) error {
	page, err := handlerutil.PageURL(c, "Delete")
	if err != nil {
		return err
	}
	id, err := handlerutil.PostitID(c, "Delete")
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.UserContext(), page, id); err != nil {
		return handlerutil.HandleServiceError(err, "Delete", page, id)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
