// Package main provides the recordflow API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/recordflow/recordflow/pkg/engine"
	"github.com/recordflow/recordflow/pkg/flow"
	"github.com/recordflow/recordflow/pkg/web"
)

type API struct {
	logger   *slog.Logger
	flows    *flow.Repository
	engine   *engine.Engine
	validate *validator.Validate
}

func NewAPI(logger *slog.Logger, flows *flow.Repository, flowEngine *engine.Engine) *API {
	return &API{
		logger:   logger,
		flows:    flows,
		engine:   flowEngine,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.flows, a.engine, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Recordflow API")
	})

	f := app.Group("/flows")
	f.Get("/", handlers.GetFlows)
	f.Post("/", handlers.CreateFlow)
	f.Get("/:id", handlers.GetFlow)
	f.Patch("/:id", handlers.UpdateFlow)
	f.Delete("/:id", handlers.DeleteFlow)

	t := app.Group("/triggers")
	t.Post("/run", handlers.RunTrigger)

	r := app.Group("/records")
	r.Post("/before-create", handlers.RunBeforeCreate)
	r.Post("/pending-actions", handlers.RunPendingActions)

	app.Get("/executions", handlers.GetExecutions)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
