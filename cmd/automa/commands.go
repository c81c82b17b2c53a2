package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/calder/automa/pkg/log"
	"github.com/calder/automa/pkg/scheduler"
)

const schedulerRefreshInterval = time.Minute

func runScheduler(ctx context.Context, command *cli.Command) error {
	logger := log.WithModule("scheduler")
	logger.InfoContext(ctx, "Initializing Automa scheduler")

	a, err := buildApp(ctx, command, logger)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched := scheduler.NewScheduler(a.persistence.FlowRepository(), a.flowService, logger)

	if err := sched.Start(runCtx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// Pick up newly activated or deactivated flows without a restart.
	go func() {
		ticker := time.NewTicker(schedulerRefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if err := sched.Refresh(runCtx); err != nil {
					logger.ErrorContext(runCtx, "Failed to refresh schedules", "error", err)
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	logger.InfoContext(ctx, "Shutting down scheduler")
	cancel()
	sched.Stop(ctx)

	return nil
}

func runTrigger(ctx context.Context, command *cli.Command) error {
	logger := log.WithModule("trigger")

	flowID := command.Args().First()
	if flowID == "" {
		return fmt.Errorf("flow id argument is required")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(command.String("payload")), &payload); err != nil {
		return fmt.Errorf("invalid payload JSON: %w", err)
	}

	a, err := buildApp(ctx, command, logger)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	record, err := a.flowService.Trigger(ctx, flowID, payload)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(out))

	return nil
}

func runValidate(ctx context.Context, command *cli.Command) error {
	logger := log.WithModule("validate")

	flowID := command.Args().First()
	if flowID == "" {
		return fmt.Errorf("flow id argument is required")
	}

	a, err := buildApp(ctx, command, logger)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	issues, err := a.flowService.Validate(ctx, flowID)
	if err != nil {
		return err
	}

	if len(issues) == 0 {
		fmt.Println("flow is valid")

		return nil
	}

	for _, issue := range issues {
		fmt.Printf("%s: %s\n", issue.Code, issue.Message)
	}

	return fmt.Errorf("flow has %d validation issues", len(issues))
}
