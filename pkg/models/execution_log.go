package models

import "time"

// ExecutionStatus is the lifecycle state of one flow run's audit record.
type ExecutionStatus string

const (
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
)

// ExecutionLog is the audit record of one flow run. It is created with
// status running when the run starts and updated exactly once when it ends.
type ExecutionLog struct {
	ID              string          `json:"id"`
	FlowID          string          `json:"flowId"`
	FlowName        string          `json:"flowName"`
	TriggerType     TriggerType     `json:"triggerType"`
	TriggerTable    string          `json:"triggerTable"`
	TriggerRecordID string          `json:"triggerRecordId,omitempty"`
	Status          ExecutionStatus `json:"status"`
	StartedAt       time.Time       `json:"startedAt"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
	DurationMs      int64           `json:"durationMs"`
	NodesExecuted   int             `json:"nodesExecuted"`
	ErrorMessage    string          `json:"errorMessage,omitempty"`
	ResultSummary   string          `json:"resultSummary,omitempty"`
}
