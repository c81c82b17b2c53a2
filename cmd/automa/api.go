package main

import (
	"context"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	cli "github.com/urfave/cli/v3"

	"github.com/calder/automa/pkg/log"
	"github.com/calder/automa/pkg/web"
)

func runAPI(ctx context.Context, command *cli.Command) error {
	logger := log.WithModule("api")
	logger.InfoContext(ctx, "Initializing Automa API")

	a, err := buildApp(ctx, command, logger)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	handlers := web.NewAPIHandlers(
		a.flowService,
		validator.New(validator.WithRequiredStructEnabled()),
		a.registry,
	)

	fiberApp := newFiberApp(handlers)

	return fiberApp.Listen(":" + strconv.Itoa(int(command.Int("port"))))
}

func newFiberApp(handlers *web.APIHandlers) *fiber.App {
	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Automa API")
	})

	flows := app.Group("/flows")
	flows.Get("/", handlers.GetFlows)
	flows.Post("/", handlers.CreateFlow)
	flows.Get("/:id", handlers.GetFlow)
	flows.Patch("/:id", handlers.UpdateFlow)
	flows.Delete("/:id", handlers.DeleteFlow)
	flows.Post("/:id/activate", handlers.ActivateFlow)
	flows.Post("/:id/deactivate", handlers.DeactivateFlow)
	flows.Post("/:id/trigger", handlers.TriggerFlow)
	flows.Post("/:id/duplicate", handlers.DuplicateFlow)
	flows.Post("/:id/validate", handlers.ValidateFlow)
	flows.Get("/:id/executions", handlers.GetFlowExecutions)

	app.Get("/executions/:id", handlers.GetExecution)
	app.Post("/webhooks/:flowID", handlers.Webhook)
	app.Get("/operations", handlers.GetOperations)
	app.Get("/health", handlers.HealthCheck)

	return app
}
