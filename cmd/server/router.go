package main

import (
	"time"

	"github.com/ldelvillar/snap-notes-sub000/cmd/server/handlers"
	"github.com/ldelvillar/snap-notes-sub000/cmd/server/handlers/httperr"
	notesHandlers "github.com/ldelvillar/snap-notes-sub000/cmd/server/handlers/notes"
	"github.com/ldelvillar/snap-notes-sub000/cmd/server/middlewares"
	"github.com/ldelvillar/snap-notes-sub000/internal/config"
	"github.com/ldelvillar/snap-notes-sub000/internal/logger"
	notesServices "github.com/ldelvillar/snap-notes-sub000/internal/services/notes"
	util "github.com/ldelvillar/snap-notes-sub000/internal/utils"

	_ "github.com/ldelvillar/snap-notes-sub000/docs" // Load swagger docs

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	RateLimitExpiration = 1 * time.Minute
)

// routerDeps are the long-lived collaborators built in main.
type routerDeps struct {
	Store    notesServices.Store
	Notifier notesServices.Notifier
	Registry *notesServices.Registry
	Metrics  *notesServices.Metrics
	Prom     *prometheus.Registry
}

// setupRouter configures and returns a Fiber app with all routes
func setupRouter(cfg config.Config, deps routerDeps) *fiber.App {
	v := util.NewValidator()
	secret := cfg.SigningSecret()

	app := fiber.New(fiber.Config{
		ErrorHandler: httperr.Handler,
		Immutable:    true, // make Fiber copy all request-derived strings
	})

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Content-Type, Authorization",
	}))

	if deps.Prom != nil {
		middlewares.AttachMetrics(app, deps.Prom, cfg.RouteMetricsEnabled)
	}

	// Health check endpoint, outside versioned API to appease scanners and to avoid logging
	var pinger notesServices.Pinger
	if p, ok := deps.Store.(notesServices.Pinger); ok {
		pinger = p
	}
	app.Get("/healthz", handlers.Healthz(pinger))

	app.Get("/docs/*", swagger.HandlerDefault)

	var v1 fiber.Router
	if cfg.RequestLoggingEnabled {
		v1 = app.Group("/api/v1", fiberlogger.New())
		logger.L().Info("request logging enabled")
	} else {
		v1 = app.Group("/api/v1")
		logger.L().Info("request logging disabled")
	}

	jwtMiddleware := middlewares.JWT(secret)
	limiterMW := middlewares.MutationsOnly(
		middlewares.BuildRateLimiter(cfg.NotesRatePerMin, RateLimitExpiration),
	)

	repo := notesServices.NewRepository(deps.Store, logger.L())
	notesH := notesHandlers.NewHandlers(repo, deps.Notifier, v)

	notesGrp := v1.Group("/notes", jwtMiddleware, limiterMW)
	notesGrp.Post("/", notesH.Create)
	notesGrp.Get("/", notesH.List)
	notesGrp.Get("/:id", notesH.Get)
	notesGrp.Put("/:id", notesH.Update)
	notesGrp.Post("/:id/pin", notesH.TogglePin)
	notesGrp.Delete("/:id", notesH.Delete)

	// WebSocket routes
	wsHandlers := notesHandlers.NewWebSocketHandlers(repo, deps.Registry, deps.Metrics, notesHandlers.WSConfig{
		JWTSecret:     secret,
		MaxSessionSec: cfg.WSMaxSessionSec,
		OutboxBuffer:  cfg.WSOutboxBuffer,
	})
	app.Use("/ws", notesHandlers.LogWSConnections(secret))
	app.Get("/ws/notes/stream", wsHandlers.WSUpgrade, websocket.New(wsHandlers.WSNotesStream))

	v1.Get("/me", jwtMiddleware, handlers.Me)

	return app
}
