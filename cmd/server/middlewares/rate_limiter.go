package middlewares

import (
	"net/url"
	"time"

	"postit/cmd/server/handlers/httperr"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// PageRateLimiter limits each client to max requests per expiration window
// on a single page's notes. Pages are counted separately, so a busy page
// does not lock a client out of the others. max <= 0 disables the limiter.
func PageRateLimiter(max int, expiration time.Duration) fiber.Handler {
	if max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	return limiter.New(limiter.Config{
		Max:          max,
		Expiration:   expiration,
		KeyGenerator: pageKey,
		LimitReached: func(c *fiber.Ctx) error {
			return httperr.Fail(httperr.ErrTooManyRequests)
		},
	})
}

// pageKey buckets requests by client address and decoded page URL.
func pageKey(c *fiber.Ctx) string {
	page := c.Params("page")
	if decoded, err := url.PathUnescape(page); err == nil {
		page = decoded
	}
	return c.IP() + "|" + page
}
