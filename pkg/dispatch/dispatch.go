// Package dispatch consumes record lifecycle events from the event bus and
// runs the matching flows through the engine.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/recordflow/recordflow/pkg/engine"
	"github.com/recordflow/recordflow/pkg/eventbus"
	"github.com/recordflow/recordflow/pkg/events"
	"github.com/recordflow/recordflow/pkg/models"
)

// Dispatcher binds record event types to engine trigger runs. Events of one
// subscription are handled sequentially, preserving per-record ordering the
// way the channel delivers it.
type Dispatcher struct {
	engine *engine.Engine
	bus    eventbus.EventBus
	logger *slog.Logger
}

func NewDispatcher(flowEngine *engine.Engine, bus eventbus.EventBus, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		engine: flowEngine,
		bus:    bus,
		logger: logger.With("module", "dispatch"),
	}
}

// Start registers the handlers and begins consuming. It returns once the
// subscription is established; delivery happens on the bus's goroutine.
func (d *Dispatcher) Start(ctx context.Context) error {
	err := d.bus.Handle(events.RecordCreatedEvent, d.handleRecordCreated)
	if err != nil {
		return fmt.Errorf("failed to register record.created handler: %w", err)
	}

	err = d.bus.Handle(events.RecordUpdatedEvent, d.handleRecordUpdated)
	if err != nil {
		return fmt.Errorf("failed to register record.updated handler: %w", err)
	}

	err = d.bus.Handle(events.RecordDeletedEvent, d.handleRecordDeleted)
	if err != nil {
		return fmt.Errorf("failed to register record.deleted handler: %w", err)
	}

	return d.bus.Subscribe(ctx)
}

func (d *Dispatcher) handleRecordCreated(ctx context.Context, event any) error {
	created, ok := event.(*events.RecordCreated)
	if !ok {
		return fmt.Errorf("%w: expected RecordCreated, got %T", events.ErrUnexpectedEvent, event)
	}

	return d.run(ctx, created.WorkspaceID, models.TriggerCreate, created.TableID, created.Record)
}

func (d *Dispatcher) handleRecordUpdated(ctx context.Context, event any) error {
	updated, ok := event.(*events.RecordUpdated)
	if !ok {
		return fmt.Errorf("%w: expected RecordUpdated, got %T", events.ErrUnexpectedEvent, event)
	}

	return d.run(ctx, updated.WorkspaceID, models.TriggerUpdate, updated.TableID, updated.Record)
}

func (d *Dispatcher) handleRecordDeleted(ctx context.Context, event any) error {
	deleted, ok := event.(*events.RecordDeleted)
	if !ok {
		return fmt.Errorf("%w: expected RecordDeleted, got %T", events.ErrUnexpectedEvent, event)
	}

	return d.run(ctx, deleted.WorkspaceID, models.TriggerDelete, deleted.TableID, deleted.Record)
}

func (d *Dispatcher) run(ctx context.Context, workspaceID string, triggerType models.TriggerType, tableID string, record map[string]any) error {
	outcome, err := d.engine.RunFlowsForTrigger(ctx, workspaceID, triggerType, tableID, record)
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to run flows for trigger",
			"workspace_id", workspaceID, "trigger_type", triggerType, "table_id", tableID, "error", err)

		return err
	}

	d.logger.InfoContext(ctx, "Trigger processed",
		"workspace_id", workspaceID, "trigger_type", triggerType, "table_id", tableID,
		"flows_executed", outcome.Executed)

	return nil
}
