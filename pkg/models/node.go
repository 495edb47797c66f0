package models

import "strings"

// NodeType is the closed set of node kinds the interpreter understands.
type NodeType string

const (
	NodeTypeTrigger      NodeType = "trigger"
	NodeTypeQuery        NodeType = "query"
	NodeTypeCondition    NodeType = "condition"
	NodeTypeAction       NodeType = "action"
	NodeTypeNotification NodeType = "notification"
)

// Node is a single typed step in a flow graph. Data holds the per-type
// configuration as authored by the flow builder; the typed readers in
// node_config.go decode it.
type Node struct {
	ID   string         `json:"id"   validate:"required"`
	Type NodeType       `json:"type" validate:"required"`
	Data map[string]any `json:"data,omitempty"`
}

// Edge is a directed connection between two nodes. Label and SourceHandle
// carry the branch conventions used by the flow builder front ends
// ("Sí"/"Yes"/"true" vs "No"/"false" labels, "yes"/"no" handles).
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source" validate:"required"`
	Target       string `json:"target" validate:"required"`
	Label        string `json:"label,omitempty"`
	SourceHandle string `json:"sourceHandle,omitempty"`
}

// MatchesYes reports whether the edge is marked as the affirmative branch.
func (e *Edge) MatchesYes() bool {
	switch strings.ToLower(e.Label) {
	case "sí", "si", "yes", "true":
		return true
	}

	switch strings.ToLower(e.SourceHandle) {
	case "yes", "true":
		return true
	}

	return false
}

// MatchesNo reports whether the edge is marked as the negative branch.
func (e *Edge) MatchesNo() bool {
	switch strings.ToLower(e.Label) {
	case "no", "false":
		return true
	}

	switch strings.ToLower(e.SourceHandle) {
	case "no", "false":
		return true
	}

	return false
}

// NodeResult is the outcome of one node visit, accumulated in run order.
type NodeResult struct {
	NodeID   string         `json:"nodeId"`
	NodeType NodeType       `json:"nodeType"`
	Status   string         `json:"status"`
	Output   map[string]any `json:"output,omitempty"`
}

// Node result statuses.
const (
	NodeStatusSuccess  = "success"
	NodeStatusFailed   = "failed"
	NodeStatusSkipped  = "skipped"
	NodeStatusNotFound = "not_found"
	NodeStatusDeferred = "deferred"
	NodeStatusBlocked  = "blocked"
)
