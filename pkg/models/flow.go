// Package models defines the core domain models for trigger-driven flow automation.
package models

import (
	"encoding/json"
	"time"
)

// TriggerType is the event class that activates a flow.
type TriggerType string

const (
	TriggerCreate       TriggerType = "create"
	TriggerUpdate       TriggerType = "update"
	TriggerDelete       TriggerType = "delete"
	TriggerBeforeCreate TriggerType = "beforeCreate"
	TriggerSchedule     TriggerType = "schedule"
)

// Flow is a stored automation definition: a graph of typed nodes and
// directed edges, activated by a trigger type and target collection.
// A flow is immutable while it is being executed.
type Flow struct {
	ID           string      `json:"id"`
	WorkspaceID  string      `json:"workspaceId"  validate:"required"`
	Name         string      `json:"name"         validate:"required,min=3"`
	Active       bool        `json:"active"`
	TriggerType  TriggerType `json:"triggerType"  validate:"required"`
	TriggerTable string      `json:"triggerTable" validate:"required"`
	Nodes        []*Node     `json:"nodes"`
	Edges        []*Edge     `json:"edges"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// flowAlias mirrors Flow but captures the legacy field names some stored
// definitions still carry (tableId/targetTable for the trigger table and
// trigger for the trigger type).
type flowAlias struct {
	ID           string      `json:"id"`
	WorkspaceID  string      `json:"workspaceId"`
	Name         string      `json:"name"`
	Active       bool        `json:"active"`
	TriggerType  TriggerType `json:"triggerType"`
	Trigger      TriggerType `json:"trigger"`
	TriggerTable string      `json:"triggerTable"`
	TableID      string      `json:"tableId"`
	TargetTable  string      `json:"targetTable"`
	Nodes        []*Node     `json:"nodes"`
	Edges        []*Edge     `json:"edges"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

func (f *Flow) UnmarshalJSON(data []byte) error {
	var alias flowAlias

	err := json.Unmarshal(data, &alias)
	if err != nil {
		return err
	}

	f.ID = alias.ID
	f.WorkspaceID = alias.WorkspaceID
	f.Name = alias.Name
	f.Active = alias.Active
	f.Nodes = alias.Nodes
	f.Edges = alias.Edges
	f.CreatedAt = alias.CreatedAt
	f.UpdatedAt = alias.UpdatedAt

	f.TriggerType = alias.TriggerType
	if f.TriggerType == "" {
		f.TriggerType = alias.Trigger
	}

	f.TriggerTable = alias.TriggerTable
	if f.TriggerTable == "" {
		f.TriggerTable = alias.TableID
	}

	if f.TriggerTable == "" {
		f.TriggerTable = alias.TargetTable
	}

	return nil
}

// TriggerNode returns the unique trigger node, which is always the
// interpreter's start node. Returns nil if the definition has none.
func (f *Flow) TriggerNode() *Node {
	for _, node := range f.Nodes {
		if node.Type == NodeTypeTrigger {
			return node
		}
	}

	return nil
}

// NodeByID returns the node with the given ID, or nil.
func (f *Flow) NodeByID(id string) *Node {
	for _, node := range f.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// OutgoingEdges returns the edges leaving the given node, in definition order.
func (f *Flow) OutgoingEdges(nodeID string) []*Edge {
	edges := make([]*Edge, 0)

	for _, edge := range f.Edges {
		if edge.Source == nodeID {
			edges = append(edges, edge)
		}
	}

	return edges
}
