// Package auditlog persists a start/finish audit row per flow run in the
// workspace's logging collection.
package auditlog

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/recordflow/recordflow/pkg/models"
	"github.com/recordflow/recordflow/pkg/store"
)

// ExecutionsCollection is the per-workspace logging collection, resolved by
// name through the record store gateway.
const ExecutionsCollection = "flow_executions"

type Recorder struct {
	store  store.RecordStore
	logger *slog.Logger
}

func NewRecorder(recordStore store.RecordStore, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:  recordStore,
		logger: logger.With("module", "auditlog"),
	}
}

// Start creates the audit row with status running. A failed write is logged
// but does not prevent the run itself.
func (r *Recorder) Start(ctx context.Context, flow *models.Flow, triggerRecordID string) *models.ExecutionLog {
	entry := &models.ExecutionLog{
		ID:              uuid.New().String(),
		FlowID:          flow.ID,
		FlowName:        flow.Name,
		TriggerType:     flow.TriggerType,
		TriggerTable:    flow.TriggerTable,
		TriggerRecordID: triggerRecordID,
		Status:          models.ExecutionRunning,
		StartedAt:       time.Now().UTC(),
	}

	_, err := r.store.Insert(ctx, flow.WorkspaceID, ExecutionsCollection, toRecord(entry))
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to persist execution log start",
			"flow_id", flow.ID, "execution_id", entry.ID, "error", err)
	}

	return entry
}

// Finish updates the audit row exactly once with the run outcome.
func (r *Recorder) Finish(ctx context.Context, workspaceID string, entry *models.ExecutionLog, status models.ExecutionStatus, nodesExecuted int, errorMessage, resultSummary string) {
	now := time.Now().UTC()

	entry.Status = status
	entry.CompletedAt = &now
	entry.DurationMs = now.Sub(entry.StartedAt).Milliseconds()
	entry.NodesExecuted = nodesExecuted
	entry.ErrorMessage = errorMessage
	entry.ResultSummary = resultSummary

	_, err := r.store.Update(ctx, workspaceID, ExecutionsCollection, entry.ID, toRecord(entry))
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to persist execution log finish",
			"flow_id", entry.FlowID, "execution_id", entry.ID, "error", err)
	}
}

// List returns the workspace's execution logs, most recent first.
func (r *Recorder) List(ctx context.Context, workspaceID string, limit int) ([]*models.ExecutionLog, error) {
	records, err := r.store.Find(ctx, workspaceID, ExecutionsCollection, nil, store.FindOptions{
		Limit:    limit,
		SortBy:   "startedAt",
		SortDesc: true,
	})
	if err != nil {
		return nil, err
	}

	logs := make([]*models.ExecutionLog, 0, len(records))

	for _, record := range records {
		payload, err := json.Marshal(record)
		if err != nil {
			continue
		}

		var entry models.ExecutionLog

		err = json.Unmarshal(payload, &entry)
		if err != nil {
			continue
		}

		logs = append(logs, &entry)
	}

	return logs, nil
}

func toRecord(entry *models.ExecutionLog) store.Record {
	payload, err := json.Marshal(entry)
	if err != nil {
		return store.Record{store.FieldID: entry.ID}
	}

	var record store.Record

	err = json.Unmarshal(payload, &record)
	if err != nil {
		return store.Record{store.FieldID: entry.ID}
	}

	return record
}
