package models

// PendingActionType narrows the actions a pre-commit run may defer.
type PendingActionType string

const (
	PendingCreate PendingActionType = "create"
	PendingUpdate PendingActionType = "update"
)

// PendingAction is a side effect on a collection other than the one being
// created, captured during a beforeCreate run and executed only after the
// triggering record is durably persisted. It carries a snapshot of the
// execution context it was captured in.
type PendingAction struct {
	Type             PendingActionType `json:"type"`
	TargetTable      string            `json:"targetTable"`
	FilterField      string            `json:"filterField,omitempty"`
	FilterValueType  FilterValueType   `json:"filterValueType,omitempty"`
	FilterValueField string            `json:"filterValueField,omitempty"`
	FilterValueFixed any               `json:"filterValueFixed,omitempty"`
	Fields           map[string]any    `json:"fields"`
	ContextSnapshot  map[string]any    `json:"contextSnapshot"`
}
