package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/recordflow/recordflow/pkg/models"
	"github.com/recordflow/recordflow/pkg/notify"
	"github.com/recordflow/recordflow/pkg/store"
	"github.com/recordflow/recordflow/pkg/template"
)

// executeAction dispatches on the action node's actionType. Unknown types
// are reported in the result but do not fail the run.
func (in *interpreter) executeAction(ctx context.Context, st *runState, node *models.Node) (branchSignal, models.NodeResult, error) {
	cfg := node.ActionConfig()

	if cfg.TargetTable == "" {
		if st.precommit {
			cfg.TargetTable = st.creatingTable
		} else {
			tableID, _ := st.ctx.Get(models.ContextKeyTableID)
			cfg.TargetTable = template.FormatValue(tableID)
		}
	}

	switch cfg.ActionType {
	case models.ActionCreate:
		return in.actionCreate(ctx, st, node, cfg)

	case models.ActionUpdate:
		return in.actionUpdate(ctx, st, node, cfg, false)

	case models.ActionUpsert:
		return in.actionUpdate(ctx, st, node, cfg, true)

	case models.ActionNotification:
		return in.actionNotification(ctx, st, node, cfg)

	case models.ActionSendMessage:
		return in.actionSendMessage(ctx, st, node, cfg)

	case models.ActionError:
		return in.actionError(st, node, cfg)

	case models.ActionAllow:
		return branchNone, models.NodeResult{
			NodeID:   node.ID,
			NodeType: node.Type,
			Status:   models.NodeStatusSuccess,
			Output:   map[string]any{"actionType": string(models.ActionAllow)},
		}, nil

	default:
		in.logger.WarnContext(ctx, "Unknown action type; skipping node",
			"flow_id", st.flow.ID, "node_id", node.ID, "action_type", cfg.ActionType)

		return branchNone, models.NodeResult{
			NodeID:   node.ID,
			NodeType: node.Type,
			Status:   models.NodeStatusSkipped,
			Output:   map[string]any{"actionType": string(cfg.ActionType)},
		}, nil
	}
}

// actionCreate inserts a record built from the templated fields. During a
// pre-commit run the insert is deferred: the record being validated does not
// exist yet, so any create is captured as a pending action instead.
func (in *interpreter) actionCreate(ctx context.Context, st *runState, node *models.Node, cfg models.ActionConfig) (branchSignal, models.NodeResult, error) {
	result := models.NodeResult{NodeID: node.ID, NodeType: node.Type}

	if st.precommit {
		// Fields stay as raw templates: {{_createdRecord.*}} references can
		// only resolve once the triggering record exists, at deferred-run time.
		st.pending = append(st.pending, models.PendingAction{
			Type:            models.PendingCreate,
			TargetTable:     cfg.TargetTable,
			Fields:          cfg.Fields,
			ContextSnapshot: st.ctx.Snapshot(),
		})

		result.Status = models.NodeStatusDeferred
		result.Output = map[string]any{"targetTable": cfg.TargetTable}

		return branchNone, result, nil
	}

	fields, err := renderActionFields(st.ctx, cfg.Fields)
	if err != nil {
		result.Status = models.NodeStatusFailed
		result.Output = map[string]any{"error": err.Error()}

		return branchNone, result, fmt.Errorf("action node %s: %w", node.ID, err)
	}

	record := store.Record(fields).Clone()
	record[store.FieldCreatedAt] = time.Now().UTC().Format(time.RFC3339)
	record[store.FieldCreatedByFlow] = st.flow.ID

	created, err := in.store.Insert(ctx, in.workspaceID(st), cfg.TargetTable, record)
	if err != nil {
		result.Status = models.NodeStatusFailed
		result.Output = map[string]any{"error": err.Error()}

		return branchNone, result, fmt.Errorf("action node %s: %w", node.ID, err)
	}

	result.Status = models.NodeStatusSuccess
	result.Output = map[string]any{"recordId": created.ID(), "targetTable": cfg.TargetTable}

	return branchNone, result, nil
}

// actionUpdate resolves a target record and merges the templated fields into
// it. Arithmetic field values see the target record's fields layered over
// the run context, so {{precio * cantidad}} can mix both. During a
// pre-commit run, updates to the collection being created merge into the
// record under validation; updates elsewhere are deferred.
func (in *interpreter) actionUpdate(ctx context.Context, st *runState, node *models.Node, cfg models.ActionConfig, upsert bool) (branchSignal, models.NodeResult, error) {
	result := models.NodeResult{NodeID: node.ID, NodeType: node.Type}

	if st.precommit {
		if sameCollection(cfg.TargetTable, st.creatingTable) {
			fields, err := renderActionFields(st.ctx, cfg.Fields)
			if err != nil {
				result.Status = models.NodeStatusFailed
				result.Output = map[string]any{"error": err.Error()}

				return branchNone, result, fmt.Errorf("action node %s: %w", node.ID, err)
			}

			for key, value := range fields {
				st.mergedFields[key] = value
				st.ctx.Set(key, value)
			}

			result.Status = models.NodeStatusSuccess
			result.Output = map[string]any{"merged": true, "fields": len(fields)}

			return branchNone, result, nil
		}

		st.pending = append(st.pending, models.PendingAction{
			Type:             models.PendingUpdate,
			TargetTable:      cfg.TargetTable,
			FilterField:      cfg.FilterField,
			FilterValueType:  cfg.FilterValueType,
			FilterValueField: cfg.FilterValueField,
			FilterValueFixed: cfg.FilterValueFixed,
			Fields:           cfg.Fields,
			ContextSnapshot:  st.ctx.Snapshot(),
		})

		result.Status = models.NodeStatusDeferred
		result.Output = map[string]any{"targetTable": cfg.TargetTable}

		return branchNone, result, nil
	}

	target, found, err := in.resolveTarget(ctx, st, cfg)
	if err != nil {
		result.Status = models.NodeStatusFailed
		result.Output = map[string]any{"error": err.Error()}

		return branchNone, result, fmt.Errorf("action node %s: %w", node.ID, err)
	}

	if !found {
		if !upsert {
			in.logger.WarnContext(ctx, "Update target not found",
				"flow_id", st.flow.ID, "node_id", node.ID, "target_table", cfg.TargetTable)

			result.Status = models.NodeStatusNotFound
			result.Output = map[string]any{"targetTable": cfg.TargetTable}

			return branchNone, result, nil
		}

		return in.upsertCreate(ctx, st, node, cfg)
	}

	fields, err := renderActionFields(mergedContext(st.ctx, target), cfg.Fields)
	if err != nil {
		result.Status = models.NodeStatusFailed
		result.Output = map[string]any{"error": err.Error()}

		return branchNone, result, fmt.Errorf("action node %s: %w", node.ID, err)
	}

	fields[store.FieldUpdatedAt] = time.Now().UTC().Format(time.RFC3339)
	fields[store.FieldUpdatedByFlow] = st.flow.ID

	updated, err := in.store.Update(ctx, in.workspaceID(st), cfg.TargetTable, target.ID(), fields)
	if err != nil {
		result.Status = models.NodeStatusFailed
		result.Output = map[string]any{"error": err.Error()}

		return branchNone, result, fmt.Errorf("action node %s: %w", node.ID, err)
	}

	result.Status = models.NodeStatusSuccess
	result.Output = map[string]any{"recordId": updated.ID(), "targetTable": cfg.TargetTable}

	return branchNone, result, nil
}

// upsertCreate is the create half of upsert: no target matched, so a new
// record is inserted carrying the filter field alongside the action fields.
func (in *interpreter) upsertCreate(ctx context.Context, st *runState, node *models.Node, cfg models.ActionConfig) (branchSignal, models.NodeResult, error) {
	result := models.NodeResult{NodeID: node.ID, NodeType: node.Type}

	fields, err := renderActionFields(st.ctx, cfg.Fields)
	if err != nil {
		result.Status = models.NodeStatusFailed
		result.Output = map[string]any{"error": err.Error()}

		return branchNone, result, fmt.Errorf("action node %s: %w", node.ID, err)
	}

	record := store.Record(fields).Clone()

	if cfg.FilterField != "" {
		if _, exists := record[cfg.FilterField]; !exists {
			record[cfg.FilterField] = in.actionSearchValue(st, cfg)
		}
	}

	record[store.FieldCreatedAt] = time.Now().UTC().Format(time.RFC3339)
	record[store.FieldCreatedByFlow] = st.flow.ID

	created, err := in.store.Insert(ctx, in.workspaceID(st), cfg.TargetTable, record)
	if err != nil {
		result.Status = models.NodeStatusFailed
		result.Output = map[string]any{"error": err.Error()}

		return branchNone, result, fmt.Errorf("action node %s: %w", node.ID, err)
	}

	result.Status = models.NodeStatusSuccess
	result.Output = map[string]any{"recordId": created.ID(), "targetTable": cfg.TargetTable, "created": true}

	return branchNone, result, nil
}

// resolveTarget finds the record an update applies to. Precedence: an
// explicit filter selector, then the simplified filterField form with
// insensitive matching, then the triggering record itself when the action
// targets its own collection.
func (in *interpreter) resolveTarget(ctx context.Context, st *runState, cfg models.ActionConfig) (store.Record, bool, error) {
	workspaceID := in.workspaceID(st)

	if len(cfg.Filter) > 0 {
		selector := make(map[string]any, len(cfg.Filter))
		for field, value := range cfg.Filter {
			selector[field] = template.RenderValue(value, st.ctx)
		}

		records, err := in.store.Find(ctx, workspaceID, cfg.TargetTable, selector, store.FindOptions{Limit: 1})
		if err != nil {
			return nil, false, err
		}

		if len(records) == 0 {
			return nil, false, nil
		}

		return records[0], true, nil
	}

	if cfg.FilterField != "" {
		records, err := in.store.Find(ctx, workspaceID, cfg.TargetTable, nil, store.FindOptions{Limit: queryFetchLimit})
		if err != nil {
			return nil, false, err
		}

		match, found := findRecord(records, cfg.FilterField, in.actionSearchValue(st, cfg))

		return match, found, nil
	}

	// No filter at all: an action targeting the triggering record's own
	// collection updates the triggering record.
	tableID, _ := st.ctx.Get(models.ContextKeyTableID)
	if sameCollection(cfg.TargetTable, template.FormatValue(tableID)) {
		recordID, _ := st.ctx.Get(store.FieldID)

		id := template.FormatValue(recordID)
		if id == "" {
			return nil, false, nil
		}

		record, err := in.store.Get(ctx, workspaceID, cfg.TargetTable, id)
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, false, nil
		}

		if err != nil {
			return nil, false, err
		}

		return record, true, nil
	}

	return nil, false, nil
}

// actionSearchValue resolves the simplified filter's search value from the
// context or the fixed literal.
func (in *interpreter) actionSearchValue(st *runState, cfg models.ActionConfig) string {
	if cfg.FilterValueType == models.FilterValueFixed {
		return template.FormatValue(template.RenderValue(cfg.FilterValueFixed, st.ctx))
	}

	value, _ := st.ctx.Lookup(cfg.FilterValueField)

	return template.FormatValue(value)
}

// actionNotification records a log-only notification. Delivery-less by
// definition; send_message is the delivering variant.
func (in *interpreter) actionNotification(ctx context.Context, st *runState, node *models.Node, cfg models.ActionConfig) (branchSignal, models.NodeResult, error) {
	message := template.Render(cfg.Message.Message, st.ctx)

	in.logger.InfoContext(ctx, "Flow notification",
		"flow_id", st.flow.ID, "node_id", node.ID, "message", message)

	return branchNone, models.NodeResult{
		NodeID:   node.ID,
		NodeType: node.Type,
		Status:   models.NodeStatusSuccess,
		Output:   map[string]any{"message": message},
	}, nil
}

// actionSendMessage delivers through the notification dispatcher. A partial
// delivery failure marks the node failed without terminating the run.
func (in *interpreter) actionSendMessage(ctx context.Context, st *runState, node *models.Node, cfg models.ActionConfig) (branchSignal, models.NodeResult, error) {
	result := models.NodeResult{NodeID: node.ID, NodeType: node.Type}

	if in.dispatcher == nil {
		in.logger.WarnContext(ctx, "No dispatcher configured; skipping send_message node",
			"flow_id", st.flow.ID, "node_id", node.ID)

		result.Status = models.NodeStatusSkipped

		return branchNone, result, nil
	}

	deliveries, err := in.dispatcher.Send(ctx, in.workspaceID(st), cfg.Message, st.ctx)
	if err != nil {
		in.logger.ErrorContext(ctx, "Message dispatch failed",
			"flow_id", st.flow.ID, "node_id", node.ID, "error", err)

		result.Status = models.NodeStatusFailed
		result.Output = map[string]any{"error": err.Error()}

		return branchNone, result, nil
	}

	result.Output = map[string]any{"deliveries": deliveries}

	if notify.AllSucceeded(deliveries) {
		result.Status = models.NodeStatusSuccess
	} else {
		result.Status = models.NodeStatusFailed
	}

	return branchNone, result, nil
}

// actionError terminates the run with a user-facing block. The last
// evaluated condition rides along as validation detail.
func (in *interpreter) actionError(st *runState, node *models.Node, cfg models.ActionConfig) (branchSignal, models.NodeResult, error) {
	message := template.Render(cfg.Message.Message, st.ctx)
	if message == "" {
		message = "flow validation failed"
	}

	return branchNone, models.NodeResult{
		NodeID:   node.ID,
		NodeType: node.Type,
		Status:   models.NodeStatusBlocked,
		Output:   map[string]any{"message": message},
	}, &BlockError{Message: message, Validation: st.ctx.LastCondition()}
}

// renderActionFields templates every configured field value. Arithmetic
// expressions evaluate over the context; plain templates render with type
// preservation; string results pass through the date macros.
func renderActionFields(ctx *models.ExecutionContext, fields map[string]any) (map[string]any, error) {
	rendered := make(map[string]any, len(fields))

	for key, value := range fields {
		s, isString := value.(string)
		if !isString {
			rendered[key] = value

			continue
		}

		if template.IsArithmetic(s) {
			number, err := template.EvalArithmetic(s, func(path string) (float64, bool) {
				resolved, ok := ctx.Lookup(path)
				if !ok {
					return 0, false
				}

				return toFloat(resolved)
			})
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", key, err)
			}

			rendered[key] = number

			continue
		}

		resolved := template.RenderValue(s, ctx)

		if rs, ok := resolved.(string); ok {
			if date, isMacro := template.ResolveDateMacro(rs, time.Now()); isMacro {
				rendered[key] = date

				continue
			}
		}

		rendered[key] = resolved
	}

	return rendered, nil
}

// mergedContext layers a target record's fields over the run context so
// update-field templates and arithmetic can reference both.
func mergedContext(ctx *models.ExecutionContext, record store.Record) *models.ExecutionContext {
	merged := ctx.Snapshot()
	for key, value := range record {
		merged[key] = value
	}

	return models.NewExecutionContext(merged)
}

func sameCollection(a, b string) bool {
	return a == "" || b == "" || normalizeText(a) == normalizeText(b)
}

func (in *interpreter) workspaceID(st *runState) string {
	workspaceID, _ := st.ctx.Get(models.ContextKeyWorkspaceID)

	return template.FormatValue(workspaceID)
}
