package engine

import (
	"context"
	"time"

	"github.com/recordflow/recordflow/pkg/models"
	"github.com/recordflow/recordflow/pkg/store"
	"github.com/recordflow/recordflow/pkg/template"
)

// PendingActionResult is the outcome of one deferred action.
type PendingActionResult struct {
	Type        models.PendingActionType `json:"type"`
	TargetTable string                   `json:"targetTable"`
	Success     bool                     `json:"success"`
	RecordID    string                   `json:"recordId,omitempty"`
	Error       string                   `json:"error,omitempty"`
}

// PendingRunResult aggregates a batch of deferred actions.
type PendingRunResult struct {
	Executed int                   `json:"executed"`
	Results  []PendingActionResult `json:"results"`
}

// RunPendingActions executes the side effects a beforeCreate run deferred,
// after the triggering record has been durably persisted. Each action runs
// in the context snapshot it was captured in, extended with the created
// record. Failures are isolated: a failing action is recorded and the rest
// of the batch still runs.
func (e *Engine) RunPendingActions(ctx context.Context, workspaceID string, actions []models.PendingAction, createdRecord map[string]any) *PendingRunResult {
	outcome := &PendingRunResult{Results: make([]PendingActionResult, 0, len(actions))}

	for _, action := range actions {
		result := PendingActionResult{Type: action.Type, TargetTable: action.TargetTable}

		recordID, err := e.runPendingAction(ctx, workspaceID, action, createdRecord)
		if err != nil {
			e.logger.ErrorContext(ctx, "Pending action failed",
				"type", action.Type, "target_table", action.TargetTable, "error", err)

			result.Error = err.Error()
		} else {
			result.Success = true
			result.RecordID = recordID
		}

		outcome.Executed++
		outcome.Results = append(outcome.Results, result)
	}

	return outcome
}

func (e *Engine) runPendingAction(ctx context.Context, workspaceID string, action models.PendingAction, createdRecord map[string]any) (string, error) {
	scope := pendingScope(action, createdRecord)

	switch action.Type {
	case models.PendingUpdate:
		return e.runPendingUpdate(ctx, workspaceID, action, scope)
	default:
		return e.runPendingCreate(ctx, workspaceID, action, scope)
	}
}

// runPendingCreate renders the raw field templates against the rebuilt scope
// and inserts the deferred record. Rendering happens here, not at capture
// time, so the fields can reference the record created in between.
func (e *Engine) runPendingCreate(ctx context.Context, workspaceID string, action models.PendingAction, scope *models.ExecutionContext) (string, error) {
	fields, err := renderActionFields(scope, action.Fields)
	if err != nil {
		return "", err
	}

	record := store.Record(fields).Clone()
	record[store.FieldCreatedAt] = time.Now().UTC().Format(time.RFC3339)
	record[store.FieldCreatedByFlow] = "pending"

	created, err := e.store.Insert(ctx, workspaceID, action.TargetTable, record)
	if err != nil {
		return "", err
	}

	return created.ID(), nil
}

// runPendingUpdate re-resolves the target at execution time, since the
// collection may have changed between capture and now, and renders the raw
// field templates against the captured scope layered with the target.
func (e *Engine) runPendingUpdate(ctx context.Context, workspaceID string, action models.PendingAction, scope *models.ExecutionContext) (string, error) {
	records, err := e.store.Find(ctx, workspaceID, action.TargetTable, nil, store.FindOptions{Limit: queryFetchLimit})
	if err != nil {
		return "", err
	}

	searchValue := pendingSearchValue(action, scope)

	target, found := findRecord(records, action.FilterField, searchValue)
	if !found {
		return "", store.ErrRecordNotFound
	}

	fields, err := renderActionFields(mergedContext(scope, target), action.Fields)
	if err != nil {
		return "", err
	}

	fields[store.FieldUpdatedAt] = time.Now().UTC().Format(time.RFC3339)
	fields[store.FieldUpdatedByFlow] = "pending"

	updated, err := e.store.Update(ctx, workspaceID, action.TargetTable, target.ID(), fields)
	if err != nil {
		return "", err
	}

	return updated.ID(), nil
}

// pendingScope rebuilds the execution scope a deferred action runs in: the
// captured snapshot, the created record's fields layered on top, and the
// whole record under _createdRecord.
func pendingScope(action models.PendingAction, createdRecord map[string]any) *models.ExecutionContext {
	seed := make(map[string]any, len(action.ContextSnapshot)+len(createdRecord)+1)
	for key, value := range action.ContextSnapshot {
		seed[key] = value
	}

	for key, value := range createdRecord {
		seed[key] = value
	}

	seed[models.ContextKeyCreatedRecord] = createdRecord

	return models.NewExecutionContext(seed)
}

func pendingSearchValue(action models.PendingAction, scope *models.ExecutionContext) string {
	if action.FilterValueType == models.FilterValueFixed {
		return template.FormatValue(template.RenderValue(action.FilterValueFixed, scope))
	}

	field := action.FilterValueField
	if field == "" {
		field = action.FilterField
	}

	value, _ := scope.Lookup(field)

	return template.FormatValue(value)
}
