package main

import (
	"time"

	"postit/cmd/server/handlers"
	gatewayHandlers "postit/cmd/server/handlers/gateway"
	"postit/cmd/server/handlers/httperr"
	postitsHandlers "postit/cmd/server/handlers/postits"
	"postit/cmd/server/middlewares"
	"postit/internal/config"
	"postit/internal/gateway"
	"postit/internal/kv"
	"postit/internal/logger"
	"postit/internal/services/postit"

	_ "postit/docs" // Load swagger docs

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
)

const (
	RateLimitExpiration = 1 * time.Minute
)

// deps are the long-lived components the routes serve.
type deps struct {
	cfg   config.Config
	store kv.Store
	gw    *gateway.Gateway
	calls chan<- gateway.Call
}

// setupRouter configures and returns a Fiber app with all routes
func setupRouter(d deps) *fiber.App {
	cfg := d.cfg

	app := fiber.New(fiber.Config{
		ErrorHandler: httperr.Handler,
		Immutable:    true, // make Fiber copy all request-derived strings
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Content-Type, Authorization",
	}))

	if cfg.RouteMetricsEnabled {
		middlewares.AttachMetrics(app, d.gw.Collectors()...)
	}

	// Health check endpoint, outside versioned API to avoid logging
	app.Get("/healthz", handlers.Healthz(d.store))

	app.Get("/docs/*", swagger.HandlerDefault)

	var v1 fiber.Router
	if cfg.RequestLoggingEnabled {
		v1 = app.Group("/api/v1", fiberlogger.New())
		logger.L().Info("request logging enabled")
	} else {
		v1 = app.Group("/api/v1")
		logger.L().Info("request logging disabled")
	}

	jwtMiddleware := middlewares.JWT(cfg.JWTSecret)
	limiterMW := middlewares.PageRateLimiter(cfg.RateLimitPerMin, RateLimitExpiration)

	svc := postit.NewService(d.store, gateway.NotesKey, logger.L())
	postitsH := postitsHandlers.NewHandlers(svc, validator.New())

	pages := v1.Group("/pages/:page/postits", limiterMW, jwtMiddleware)
	pages.Get("/", postitsH.List)
	pages.Post("/", postitsH.Create)
	pages.Put("/:id", postitsH.Update)
	pages.Delete("/:id", postitsH.Delete)

	wsHandlers := gatewayHandlers.NewWebSocketHandlers(d.gw, d.calls)
	v1.Post("/tabs/:tab/toggle", jwtMiddleware, wsHandlers.Toggle)

	app.Get("/ws/gateway", jwtMiddleware, wsHandlers.WSUpgrade, websocket.New(wsHandlers.WSGateway))

	return app
}
