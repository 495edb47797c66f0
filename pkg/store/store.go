// Package store defines the record store gateway contract the flow engine
// consumes: per-(workspace, collection) CRUD and filtered-find access over
// opaque string-keyed records.
package store

import (
	"context"
	"errors"
	"fmt"
)

// Record is an opaque string-keyed document. The engine assumes no schema
// beyond the reserved keys it writes itself (createdAt, updatedAt,
// createdByFlow, updatedByFlow).
type Record map[string]any

// Reserved record keys written by the engine.
const (
	FieldID            = "id"
	FieldCreatedAt     = "createdAt"
	FieldUpdatedAt     = "updatedAt"
	FieldCreatedByFlow = "createdByFlow"
	FieldUpdatedByFlow = "updatedByFlow"
	FieldIsTemplate    = "isTemplate"
)

// ID returns the record identifier, or an empty string.
func (r Record) ID() string {
	id, _ := r[FieldID].(string)

	return id
}

// String returns a field as a string, formatting non-string scalars.
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}

	if s, ok := v.(string); ok {
		return s
	}

	return fmt.Sprintf("%v", v)
}

// IsTemplate reports whether the record is a template/master row, which the
// query node excludes by convention.
func (r Record) IsTemplate() bool {
	v, ok := r[FieldIsTemplate].(bool)

	return ok && v
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	clone := make(Record, len(r))
	for k, v := range r {
		clone[k] = v
	}

	return clone
}

// FindOptions bounds and orders a Find call.
type FindOptions struct {
	Limit    int
	SortBy   string
	SortDesc bool
}

// ErrRecordNotFound indicates a record was not found by the given identifier.
var ErrRecordNotFound = errors.New("record not found")

// RecordStore is the gateway to the external document storage layer. The
// engine performs no client-side locking; concurrent writers are resolved
// last-write-wins at the storage layer.
type RecordStore interface {
	// Find returns records of a collection matching the selector by equality,
	// bounded by the options. An empty selector matches everything.
	Find(ctx context.Context, workspaceID, collection string, selector map[string]any, opts FindOptions) ([]Record, error)

	// Get returns a record by ID or ErrRecordNotFound.
	Get(ctx context.Context, workspaceID, collection, id string) (Record, error)

	// Insert stores a new record and returns it with its identifier set.
	Insert(ctx context.Context, workspaceID, collection string, record Record) (Record, error)

	// Update merges fields into an existing record and returns the result,
	// or ErrRecordNotFound.
	Update(ctx context.Context, workspaceID, collection, id string, fields map[string]any) (Record, error)
}

// MatchesSelector reports whether a record satisfies every equality pair of
// the selector, comparing loosely on string form for scalar values.
func MatchesSelector(record Record, selector map[string]any) bool {
	for field, expected := range selector {
		actual, ok := record[field]
		if !ok {
			return false
		}

		if fmt.Sprintf("%v", actual) != fmt.Sprintf("%v", expected) {
			return false
		}
	}

	return true
}
