package middlewares

import (
	"postit/cmd/server/handlers/httperr"
	"postit/internal/logger"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// LocalsSubject holds the verified "sub" claim, when the token carries one.
const LocalsSubject = "subject"

// JWT returns a Fiber middleware that requires a Bearer token signed with
// secret (HS256). An empty secret disables authentication.
//
// On any problem it bubbles up a 401 via the global httperr handler.
func JWT(secret string) fiber.Handler {
	if secret == "" {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: []byte(secret)},
		SuccessHandler: func(c *fiber.Ctx) error {
			token, _ := c.Locals("user").(*jwt.Token)
			if token != nil {
				if sub, err := token.Claims.GetSubject(); err == nil && sub != "" {
					c.Locals(LocalsSubject, sub)
				}
			}
			return c.Next()
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			logger.L().Warn("rejected token", "path", c.Path(), "ip", c.IP(), "error", err)
			return httperr.Fail(httperr.ErrUnauthorized)
		},
	})
}
