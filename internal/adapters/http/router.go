package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/waypoint-labs/waypoint/internal/pkg/metrics"
)

// APIVersion is reported in the X-API-Version header.
const APIVersion = "1.0.0"

// RouterConfig tunes the middleware chain.
type RouterConfig struct {
	RequestTimeout time.Duration // per-request timeout for /v1 and /api
	RateLimit      int           // requests per minute per IP, 0 disables
}

// DefaultRouterConfig returns production defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{RequestTimeout: 15 * time.Second, RateLimit: 120}
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies, cfg RouterConfig) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	if cfg.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit,
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
			},
		}))
	}

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", APIVersion)
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	withTimeout := func(h fiber.Handler) fiber.Handler {
		if cfg.RequestTimeout <= 0 {
			return h
		}
		return timeout.NewWithContext(h, cfg.RequestTimeout)
	}

	v1 := app.Group("/v1")
	v1.Get("/addresses", withTimeout(ListAddressesHandler(deps)))
	v1.Post("/addresses", withTimeout(CreateAddressHandler(deps)))
	v1.Get("/addresses/:id", withTimeout(GetAddressHandler(deps)))
	v1.Put("/addresses/:id", withTimeout(UpdateAddressHandler(deps)))
	v1.Delete("/addresses/:id", withTimeout(DeleteAddressHandler(deps)))
	v1.Post("/routes/nearest", withTimeout(NearestHandler(deps)))
	v1.Post("/routes/optimize", withTimeout(OptimizeHandler(deps)))
	v1.Post("/routes/plan", withTimeout(PlanHandler(deps)))

	// Unversioned endpoints kept for existing clients
	legacy := app.Group("/api", DeprecationMiddleware(LegacyRoutes))
	legacy.Get("/addresses", withTimeout(LegacyListAddressesHandler(deps)))
	legacy.Post("/addresses", withTimeout(CreateAddressHandler(deps)))
	legacy.Put("/addresses", withTimeout(LegacyUpdateAddressHandler(deps)))
	legacy.Delete("/addresses", withTimeout(LegacyDeleteAddressHandler(deps)))
	legacy.Post("/routes/nearest", withTimeout(LegacyNearestHandler(deps)))
	legacy.Post("/routes/optimize", withTimeout(OptimizeHandler(deps)))

	app.Post("/graphql", GraphQLHandler(deps))

	SetupDocs(app)

	// WebSocket relay needs NATS
	app.Use("/ws", func(c *fiber.Ctx) error {
		if deps.NATS == nil {
			return errUnavailable(c, "event stream not configured")
		}
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
