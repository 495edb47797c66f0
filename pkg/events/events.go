// Package events defines the record lifecycle events that drive flow
// execution through the event bus.
package events

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrUnexpectedEvent is returned when a handler receives a payload of the
// wrong concrete type.
var ErrUnexpectedEvent = errors.New("unexpected event payload")

type EventType string

// Kafka topic carrying record lifecycle events.
const Topic = "recordflow.records"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RecordCreatedEvent EventType = "record.created"
	RecordUpdatedEvent EventType = "record.updated"
	RecordDeletedEvent EventType = "record.deleted"
)

type BaseEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	WorkspaceID string    `json:"workspaceId"`
	TableID     string    `json:"tableId"`
}

func NewBaseEvent(eventType EventType, workspaceID, tableID string) BaseEvent {
	return BaseEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		WorkspaceID: workspaceID,
		TableID:     tableID,
	}
}

// RecordCreated is published after a record has been durably persisted.
type RecordCreated struct {
	BaseEvent

	RecordID string         `json:"recordId"`
	Record   map[string]any `json:"record"`
}

func (e RecordCreated) GetType() EventType {
	return RecordCreatedEvent
}

// RecordUpdated carries the record state after the update was applied.
type RecordUpdated struct {
	BaseEvent

	RecordID string         `json:"recordId"`
	Record   map[string]any `json:"record"`
	Changed  []string       `json:"changed,omitempty"`
}

func (e RecordUpdated) GetType() EventType {
	return RecordUpdatedEvent
}

// RecordDeleted carries the last known state of the removed record so
// deletion flows can still reference its fields.
type RecordDeleted struct {
	BaseEvent

	RecordID string         `json:"recordId"`
	Record   map[string]any `json:"record,omitempty"`
}

func (e RecordDeleted) GetType() EventType {
	return RecordDeletedEvent
}
