package engine

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/recordflow/recordflow/pkg/models"
)

// BeforeCreateResult is the verdict of the pre-commit evaluation: either the
// (possibly enriched) fields to persist plus the deferred side effects, or a
// block with a user-facing message.
type BeforeCreateResult struct {
	Fields         map[string]any         `json:"fields"`
	FlowExecuted   bool                   `json:"flowExecuted"`
	PendingActions []models.PendingAction `json:"pendingActions,omitempty"`
	Blocked        bool                   `json:"blocked"`
	Error          string                 `json:"error,omitempty"`
	ValidationInfo *models.ConditionCheck `json:"validationInfo,omitempty"`
}

// RunBeforeCreate evaluates the workspace's beforeCreate flows against a
// record that has not been persisted yet. Same-collection updates merge into
// the returned fields; cross-collection writes are deferred as pending
// actions to run after the caller durably persists the record. A block
// short-circuits: nothing merged, nothing pending, the caller must not
// persist.
func (e *Engine) RunBeforeCreate(ctx context.Context, workspaceID, tableID string, fields map[string]any) (*BeforeCreateResult, error) {
	flows, err := e.flows.FlowsFor(ctx, workspaceID, models.TriggerBeforeCreate, tableID)
	if err != nil {
		return nil, err
	}

	outcome := &BeforeCreateResult{Fields: fields}

	if len(flows) == 0 {
		return outcome, nil
	}

	ctx, span := e.tracer.Start(ctx, "engine.run_before_create", trace.WithAttributes(
		attribute.String("recordflow.workspace.id", workspaceID),
		attribute.String("recordflow.table.id", tableID),
		attribute.Int("recordflow.flow.count", len(flows)),
	))
	defer span.End()

	// Fields flow through every matching flow in order: a merge by one flow
	// is visible to the next.
	current := make(map[string]any, len(fields))
	for key, value := range fields {
		current[key] = value
	}

	pending := make([]models.PendingAction, 0)

	for _, definition := range flows {
		entry := e.recorder.Start(ctx, definition, "")

		st := &runState{
			flow:          definition,
			ctx:           models.NewExecutionContext(seedContext(workspaceID, models.TriggerBeforeCreate, tableID, current)),
			precommit:     true,
			creatingTable: tableID,
			mergedFields:  make(map[string]any),
		}

		in := &interpreter{store: e.store, dispatcher: e.dispatcher, logger: e.logger}

		runErr := in.run(ctx, st)

		var blocked *BlockError

		if errors.As(runErr, &blocked) {
			e.recorder.Finish(ctx, workspaceID, entry, models.ExecutionFailed, len(st.results), blocked.Message, resultSummary(st.results))

			outcome.FlowExecuted = true
			outcome.Blocked = true
			outcome.Error = blocked.Message
			outcome.ValidationInfo = blocked.Validation
			outcome.PendingActions = nil
			outcome.Fields = fields

			return outcome, nil
		}

		if runErr != nil {
			e.recorder.Finish(ctx, workspaceID, entry, models.ExecutionFailed, len(st.results), runErr.Error(), resultSummary(st.results))
			e.logger.ErrorContext(ctx, "Pre-commit flow run failed",
				"flow_id", definition.ID, "execution_id", entry.ID, "error", runErr)

			span.RecordError(runErr)

			outcome.FlowExecuted = true

			continue
		}

		e.recorder.Finish(ctx, workspaceID, entry, models.ExecutionCompleted, len(st.results), "", resultSummary(st.results))

		for key, value := range st.mergedFields {
			current[key] = value
		}

		pending = append(pending, st.pending...)
		outcome.FlowExecuted = true
	}

	outcome.Fields = current
	outcome.PendingActions = pending

	return outcome, nil
}
