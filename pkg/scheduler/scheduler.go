// Package scheduler runs cron jobs for active flows with a schedule
// trigger. Each tick triggers the flow with a payload describing the
// scheduled firing.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/calder/automa/pkg/models"
	"github.com/calder/automa/pkg/persistence"
)

// FlowTrigger starts a flow run. Implemented by services.Flow.
type FlowTrigger interface {
	Trigger(ctx context.Context, flowID string, payload map[string]any) (*models.ExecutionRecord, error)
}

// Scheduler keeps one cron entry per active schedule flow.
type Scheduler struct {
	flows   persistence.FlowRepository
	trigger FlowTrigger
	logger  *slog.Logger

	cron  *cron.Cron
	jobs  map[string]cron.EntryID
	mutex sync.Mutex
}

// NewScheduler creates a scheduler that triggers flows through the given
// FlowTrigger.
func NewScheduler(flows persistence.FlowRepository, trigger FlowTrigger, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		flows:   flows,
		trigger: trigger,
		logger:  logger.With("module", "scheduler"),
		jobs:    make(map[string]cron.EntryID),
	}
}

// Start loads active schedule flows, registers their cron entries and
// starts the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	if err := s.Refresh(ctx); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "Scheduler started")

	return nil
}

// Refresh re-syncs cron entries with the currently active schedule flows.
// Flows that were deactivated or deleted lose their entry; new ones gain
// one.
func (s *Scheduler) Refresh(ctx context.Context) error {
	status := models.FlowStatusActive

	flows, err := s.flows.List(ctx, persistence.ListFlowsOptions{Limit: 100, Status: &status})
	if err != nil {
		return fmt.Errorf("failed to list active flows: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	seen := make(map[string]bool, len(flows))

	for _, flow := range flows {
		if flow.TriggerType != models.TriggerTypeSchedule {
			continue
		}

		seen[flow.ID] = true

		if _, exists := s.jobs[flow.ID]; exists {
			continue
		}

		if err := s.addJob(ctx, flow); err != nil {
			s.logger.ErrorContext(ctx, "Failed to schedule flow", "flow_id", flow.ID, "error", err)
		}
	}

	for flowID, entryID := range s.jobs {
		if !seen[flowID] {
			s.cron.Remove(entryID)
			delete(s.jobs, flowID)
			s.logger.InfoContext(ctx, "Flow unscheduled", "flow_id", flowID)
		}
	}

	return nil
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}

	stopCtx := s.cron.Stop()

	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}

	s.logger.InfoContext(ctx, "Scheduler stopped")
}

func (s *Scheduler) addJob(ctx context.Context, flow *models.Flow) error {
	cronExpr, _ := flow.TriggerConfig["cron"].(string)
	if cronExpr == "" {
		return fmt.Errorf("flow %s has no cron expression in trigger config", flow.ID)
	}

	if _, err := cron.ParseStandard(cronExpr); err != nil {
		return fmt.Errorf("invalid cron expression %q for flow %s: %w", cronExpr, flow.ID, err)
	}

	flowID := flow.ID

	entryID, err := s.cron.AddFunc(cronExpr, func() {
		s.fire(flowID, cronExpr)
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job for flow %s: %w", flow.ID, err)
	}

	s.jobs[flow.ID] = entryID
	s.logger.InfoContext(ctx, "Flow scheduled", "flow_id", flow.ID, "cron", cronExpr)

	return nil
}

func (s *Scheduler) fire(flowID, cronExpr string) {
	ctx := context.Background()

	payload := map[string]any{
		"source":       "schedule",
		"cron":         cronExpr,
		"scheduled_at": time.Now().UTC().Format(time.RFC3339),
	}

	record, err := s.trigger.Trigger(ctx, flowID, payload)
	if err != nil {
		s.logger.ErrorContext(ctx, "Scheduled trigger failed", "flow_id", flowID, "error", err)

		return
	}

	s.logger.InfoContext(ctx, "Scheduled execution finished",
		"flow_id", flowID,
		"execution_id", record.ID,
		"status", record.Status,
	)
}
