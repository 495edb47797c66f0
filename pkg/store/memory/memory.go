// Package memory provides an in-memory record store for tests and local
// development.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/recordflow/recordflow/pkg/store"
)

// Store keeps records in nested maps guarded by a single RWMutex.
type Store struct {
	mu   sync.RWMutex
	data map[string]map[string]map[string]store.Record // workspace -> collection -> id -> record
}

func NewStore() *Store {
	return &Store{
		data: make(map[string]map[string]map[string]store.Record),
	}
}

func (s *Store) Find(_ context.Context, workspaceID, collection string, selector map[string]any, opts store.FindOptions) ([]store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]store.Record, 0)

	for _, record := range s.data[workspaceID][collection] {
		if store.MatchesSelector(record, selector) {
			records = append(records, record.Clone())
		}
	}

	if opts.SortBy != "" {
		sort.Slice(records, func(i, j int) bool {
			less := records[i].String(opts.SortBy) < records[j].String(opts.SortBy)
			if opts.SortDesc {
				return !less
			}

			return less
		})
	} else {
		// Map iteration order is random; keep results stable for callers.
		sort.Slice(records, func(i, j int) bool {
			return records[i].ID() < records[j].ID()
		})
	}

	if opts.Limit > 0 && len(records) > opts.Limit {
		records = records[:opts.Limit]
	}

	return records, nil
}

func (s *Store) Get(_ context.Context, workspaceID, collection, id string) (store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.data[workspaceID][collection][id]
	if !ok {
		return nil, store.ErrRecordNotFound
	}

	return record.Clone(), nil
}

func (s *Store) Insert(_ context.Context, workspaceID, collection string, record store.Record) (store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := record.Clone()
	if stored.ID() == "" {
		stored[store.FieldID] = uuid.New().String()
	}

	if s.data[workspaceID] == nil {
		s.data[workspaceID] = make(map[string]map[string]store.Record)
	}

	if s.data[workspaceID][collection] == nil {
		s.data[workspaceID][collection] = make(map[string]store.Record)
	}

	s.data[workspaceID][collection][stored.ID()] = stored

	return stored.Clone(), nil
}

func (s *Store) Update(_ context.Context, workspaceID, collection, id string, fields map[string]any) (store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.data[workspaceID][collection][id]
	if !ok {
		return nil, store.ErrRecordNotFound
	}

	for k, v := range fields {
		record[k] = v
	}

	return record.Clone(), nil
}
