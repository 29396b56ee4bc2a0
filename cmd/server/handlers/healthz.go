package handlers

import (
	"context"
	"time"

	"postit/internal/kv"

	"github.com/gofiber/fiber/v2"
)

const HealthzTimeout = 5 * time.Second

// Healthz returns a handler reporting the health of the durable store.
// Stores that cannot be pinged are reported healthy.
// @Summary Health check
// @Description Check if the server and its store are healthy
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /healthz [get]
func Healthz(store kv.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := store.(kv.Pinger)
		if !ok {
			return c.JSON(fiber.Map{"status": "ok"})
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), HealthzTimeout)
		defer cancel()

		if err := p.Ping(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "down",
				"error":  err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"status": "ok",
		})
	}
}
