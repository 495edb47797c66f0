package engine

import (
	"context"

	"github.com/recordflow/recordflow/pkg/models"
)

// RunScheduledFlow runs a schedule-triggered flow. There is no triggering
// record: the context starts from the reserved keys only, and everything the
// flow needs has to come from query nodes.
func (e *Engine) RunScheduledFlow(ctx context.Context, definition *models.Flow) FlowRunResult {
	seed := seedContext(definition.WorkspaceID, models.TriggerSchedule, definition.TriggerTable, nil)

	return e.runFlow(ctx, definition, seed, nil)
}
