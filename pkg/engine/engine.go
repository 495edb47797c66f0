package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/recordflow/recordflow/pkg/auditlog"
	"github.com/recordflow/recordflow/pkg/flow"
	"github.com/recordflow/recordflow/pkg/models"
	"github.com/recordflow/recordflow/pkg/notify"
	"github.com/recordflow/recordflow/pkg/store"
)

// Engine runs the flows of a workspace in response to record lifecycle
// triggers. Flows matching one trigger run sequentially, each isolated: one
// failing flow never prevents the next from running.
type Engine struct {
	flows      *flow.Repository
	store      store.RecordStore
	recorder   *auditlog.Recorder
	dispatcher *notify.Dispatcher
	logger     *slog.Logger
	tracer     trace.Tracer
}

func New(flows *flow.Repository, recordStore store.RecordStore, dispatcher *notify.Dispatcher, logger *slog.Logger) *Engine {
	return &Engine{
		flows:      flows,
		store:      recordStore,
		recorder:   auditlog.NewRecorder(recordStore, logger),
		dispatcher: dispatcher,
		logger:     logger.With("module", "engine"),
		tracer:     otel.Tracer("recordflow.engine"),
	}
}

// Recorder exposes the audit recorder for read access to execution logs.
func (e *Engine) Recorder() *auditlog.Recorder {
	return e.recorder
}

// FlowRunResult is the outcome of one flow run within a trigger.
type FlowRunResult struct {
	FlowID        string              `json:"flowId"`
	FlowName      string              `json:"flowName"`
	ExecutionID   string              `json:"executionId"`
	Status        string              `json:"status"`
	NodesExecuted int                 `json:"nodesExecuted"`
	Results       []models.NodeResult `json:"results"`
	Error         string              `json:"error,omitempty"`
}

// TriggerRunResult aggregates every flow run a single trigger produced.
// Zero matching flows yields Executed=0 with an empty (not nil) Results.
type TriggerRunResult struct {
	Executed int             `json:"executed"`
	Results  []FlowRunResult `json:"results"`
}

// RunFlowsForTrigger runs every active flow of the workspace whose trigger
// matches the event, seeding each run's context from the record's fields.
func (e *Engine) RunFlowsForTrigger(ctx context.Context, workspaceID string, triggerType models.TriggerType, tableID string, record map[string]any) (*TriggerRunResult, error) {
	flows, err := e.flows.FlowsFor(ctx, workspaceID, triggerType, tableID)
	if err != nil {
		return nil, err
	}

	outcome := &TriggerRunResult{Results: make([]FlowRunResult, 0, len(flows))}

	for _, definition := range flows {
		seed := seedContext(workspaceID, triggerType, tableID, record)

		run := e.runFlow(ctx, definition, seed, record)

		outcome.Executed++
		outcome.Results = append(outcome.Results, run)
	}

	return outcome, nil
}

// runFlow executes one flow end to end: audit start, graph walk, audit
// finish. Failures terminate this flow only.
func (e *Engine) runFlow(ctx context.Context, definition *models.Flow, seed map[string]any, record map[string]any) FlowRunResult {
	ctx, span := e.tracer.Start(ctx, "engine.run_flow", trace.WithAttributes(
		attribute.String("recordflow.flow.id", definition.ID),
		attribute.String("recordflow.flow.trigger_type", string(definition.TriggerType)),
		attribute.String("recordflow.workspace.id", definition.WorkspaceID),
	))
	defer span.End()

	entry := e.recorder.Start(ctx, definition, recordID(record))

	st := &runState{
		flow: definition,
		ctx:  models.NewExecutionContext(seed),
	}

	in := &interpreter{store: e.store, dispatcher: e.dispatcher, logger: e.logger}

	runErr := in.run(ctx, st)

	run := FlowRunResult{
		FlowID:        definition.ID,
		FlowName:      definition.Name,
		ExecutionID:   entry.ID,
		NodesExecuted: len(st.results),
		Results:       st.results,
	}

	status := models.ExecutionCompleted

	if runErr != nil {
		status = models.ExecutionFailed
		run.Error = runErr.Error()

		span.RecordError(runErr)

		if errors.Is(runErr, ErrFlowBlocked) {
			e.logger.InfoContext(ctx, "Flow blocked by error action",
				"flow_id", definition.ID, "execution_id", entry.ID, "error", runErr)
		} else {
			e.logger.ErrorContext(ctx, "Flow run failed",
				"flow_id", definition.ID, "execution_id", entry.ID, "error", runErr)
		}
	}

	run.Status = string(status)

	e.recorder.Finish(ctx, definition.WorkspaceID, entry, status, len(st.results), run.Error, resultSummary(st.results))

	return run
}

// seedContext builds the initial execution scope: the record's fields first,
// then the reserved keys, which always win on collision.
func seedContext(workspaceID string, triggerType models.TriggerType, tableID string, record map[string]any) map[string]any {
	seed := make(map[string]any, len(record)+3)
	for key, value := range record {
		seed[key] = value
	}

	seed[models.ContextKeyWorkspaceID] = workspaceID
	seed[models.ContextKeyTableID] = tableID
	seed[models.ContextKeyTriggerType] = string(triggerType)

	return seed
}

func recordID(record map[string]any) string {
	id, _ := record[store.FieldID].(string)

	return id
}

// resultSummary renders a compact per-node trail for the audit row, e.g.
// "trigger:success > condition:success > action:failed".
func resultSummary(results []models.NodeResult) string {
	if len(results) == 0 {
		return ""
	}

	steps := make([]string, 0, len(results))
	for _, result := range results {
		steps = append(steps, string(result.NodeType)+":"+result.Status)
	}

	return strings.Join(steps, " > ")
}
