package main

import (
	"context"
	"fmt"
	"log/slog"

	cli "github.com/urfave/cli/v3"

	"github.com/calder/automa/pkg/cmd"
	"github.com/calder/automa/pkg/compiler"
	"github.com/calder/automa/pkg/eventbus"
	"github.com/calder/automa/pkg/executor"
	"github.com/calder/automa/pkg/operations/runflow"
	"github.com/calder/automa/pkg/persistence"
	"github.com/calder/automa/pkg/recorder"
	"github.com/calder/automa/pkg/registry"
	"github.com/calder/automa/pkg/services"
)

// app bundles the wired components every command needs.
type app struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	registry    *registry.Registry
	flowService *services.Flow
}

func buildApp(ctx context.Context, command *cli.Command, logger *slog.Logger) (*app, error) {
	pers, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return nil, fmt.Errorf("failed to set up persistence: %w", err)
	}

	eventBus, err := cmd.NewEventBus(command.Bool("kafka"), "automa", logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up event bus: %w", err)
	}

	reg := cmd.NewRegistry(logger)
	rec := recorder.NewRecorder(pers.ExecutionRepository(), logger)
	comp := compiler.NewCompiler(pers.FlowRepository(), logger)
	exec := executor.NewExecutor(reg, rec, logger, executor.WithEventPublisher(eventBus))

	flowService := services.NewFlow(pers, comp, exec, reg, logger,
		services.WithEventPublisher(eventBus))

	// run_flow needs a way to start other flows, which only exists once the
	// service is built.
	reg.Register(runflow.NewFactory(flowService))

	return &app{
		logger:      logger,
		persistence: pers,
		eventBus:    eventBus,
		registry:    reg,
		flowService: flowService,
	}, nil
}

func (a *app) Close(ctx context.Context) {
	if err := a.eventBus.Close(); err != nil {
		a.logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
	}

	if err := a.persistence.Close(ctx); err != nil {
		a.logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
	}
}
