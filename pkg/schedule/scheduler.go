// Package schedule runs cron-triggered flows. Each active flow with a
// schedule trigger contributes one cron entry; the expression lives in the
// trigger node's configuration.
package schedule

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/recordflow/recordflow/pkg/engine"
	"github.com/recordflow/recordflow/pkg/flow"
	"github.com/recordflow/recordflow/pkg/models"
)

// Scheduler keeps the cron table in sync with the persisted schedule flows.
type Scheduler struct {
	engine *engine.Engine
	flows  *flow.Repository
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

func NewScheduler(flowEngine *engine.Engine, flows *flow.Repository, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		engine:  flowEngine,
		flows:   flows,
		cron:    cron.New(),
		logger:  logger.With("module", "schedule"),
		entries: make(map[string]cron.EntryID),
	}
}

// Start syncs the cron table and begins ticking. Callers refresh with Reload
// when flow definitions change.
func (s *Scheduler) Start(ctx context.Context) error {
	err := s.Reload(ctx)
	if err != nil {
		return err
	}

	s.cron.Start()

	return nil
}

// Stop halts the cron ticker and waits for in-flight runs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Reload re-reads every schedule flow and rebuilds the cron entries.
// Unparseable expressions are logged and skipped.
func (s *Scheduler) Reload(ctx context.Context) error {
	flows, err := s.flows.FetchAll(ctx, "")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for flowID, entryID := range s.entries {
		s.cron.Remove(entryID)
		delete(s.entries, flowID)
	}

	for _, definition := range flows {
		if !definition.Active || definition.TriggerType != models.TriggerSchedule {
			continue
		}

		expression := cronExpression(definition)
		if expression == "" {
			s.logger.WarnContext(ctx, "Schedule flow without cron expression; skipping",
				"flow_id", definition.ID)

			continue
		}

		entryID, err := s.cron.AddFunc(expression, s.runFunc(definition))
		if err != nil {
			s.logger.ErrorContext(ctx, "Invalid cron expression; skipping flow",
				"flow_id", definition.ID, "cron", expression, "error", err)

			continue
		}

		s.entries[definition.ID] = entryID

		s.logger.InfoContext(ctx, "Schedule flow registered",
			"flow_id", definition.ID, "cron", expression)
	}

	return nil
}

func (s *Scheduler) runFunc(definition *models.Flow) func() {
	return func() {
		ctx := context.Background()

		run := s.engine.RunScheduledFlow(ctx, definition)

		s.logger.InfoContext(ctx, "Scheduled flow run finished",
			"flow_id", definition.ID, "execution_id", run.ExecutionID,
			"status", run.Status, "nodes_executed", run.NodesExecuted)
	}
}

// cronExpression reads the expression from the trigger node's data.
func cronExpression(definition *models.Flow) string {
	trigger := definition.TriggerNode()
	if trigger == nil {
		return ""
	}

	for _, key := range []string{"cron", "schedule", "cronExpression"} {
		if expression, ok := trigger.Data[key].(string); ok && expression != "" {
			return expression
		}
	}

	return ""
}
