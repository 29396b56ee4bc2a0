package handlerutil

import (
	"errors"
	"net/url"

	"postit/cmd/server/handlers/httperr"
	"postit/internal/logger"
	"postit/internal/services/postit"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ParseAndValidateBody parses request body and validates it
func ParseAndValidateBody(c *fiber.Ctx, req any, validator *validator.Validate, handlerName string) error {
	if err := c.BodyParser(req); err != nil {
		logger.L().Warn("failed to parse request body", "handler", handlerName, "path", c.Path(), "error", err)
		return httperr.Fail(httperr.ErrBadRequest)
	}

	if err := validator.Struct(req); err != nil {
		logger.L().Warn("request validation failed", "handler", handlerName, "path", c.Path(), "error", err)
		return httperr.InvalidInput(err)
	}

	return nil
}

// PageURL returns the unescaped :page parameter.
func PageURL(c *fiber.Ctx, handlerName string) (string, error) {
	page, err := url.PathUnescape(c.Params("page"))
	if err != nil || page == "" {
		logger.L().Warn("invalid page parameter", "handler", handlerName, "page", c.Params("page"), "error", err)
		return "", httperr.Fail(httperr.ErrBadRequest)
	}
	return page, nil
}

// PostitID returns the unescaped :id parameter.
func PostitID(c *fiber.Ctx, handlerName string) (string, error) {
	id, err := url.PathUnescape(c.Params("id"))
	if err != nil || id == "" {
		logger.L().Warn("invalid postit id parameter", "handler", handlerName, "id", c.Params("id"), "error", err)
		return "", httperr.Fail(httperr.ErrNotFound)
	}
	return id, nil
}

// HandleServiceError maps service errors onto HTTP errors.
func HandleServiceError(err error, handlerName, page, id string) error {
	logFields := []any{"handler", handlerName, "page", page, "error", err}
	if id != "" {
		logFields = append(logFields, "postit_id", id)
	}

	switch {
	case errors.Is(err, postit.ErrNoteNotFound):
		logger.L().Info("resource not found", logFields...)
		return httperr.Fail(httperr.E{Status: fiber.StatusNotFound, Message: err.Error()})
	case errors.Is(err, postit.ErrNoteExists):
		logger.L().Info("resource conflict", logFields...)
		return httperr.Fail(httperr.E{Status: fiber.StatusConflict, Message: err.Error()})
	case errors.Is(err, postit.ErrInvalidNote):
		logger.L().Warn("invalid note", logFields...)
		return httperr.InvalidInput(err)
	case errors.Is(err, postit.ErrLoadNotes), errors.Is(err, postit.ErrSaveNotes):
		logger.L().Error("store operation failed", logFields...)
		return httperr.Fail(httperr.ErrStoreUnavailable)
	}

	logger.L().Error("service operation failed", logFields...)
	return httperr.Fail(httperr.ErrInternal)
}
