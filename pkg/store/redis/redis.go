// Package redis provides a Redis-backed record store implementation.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/recordflow/recordflow/pkg/store"
)

// Store keeps each record as a JSON value and maintains a per-collection
// set of record keys for Find scans.
type Store struct {
	client *goredis.Client
}

func NewStore(redisURL string) (*Store, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &Store{client: goredis.NewClient(opts)}, nil
}

// NewStoreWithClient wraps an existing client, used by tests.
func NewStoreWithClient(client *goredis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func recordKey(workspaceID, collection, id string) string {
	return "rf:" + workspaceID + ":" + collection + ":" + id
}

func indexKey(workspaceID, collection string) string {
	return "rf:" + workspaceID + ":" + collection
}

func (s *Store) Find(ctx context.Context, workspaceID, collection string, selector map[string]any, opts store.FindOptions) ([]store.Record, error) {
	ids, err := s.client.SMembers(ctx, indexKey(workspaceID, collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to scan collection %s: %w", collection, err)
	}

	sort.Strings(ids)

	records := make([]store.Record, 0, len(ids))

	for _, id := range ids {
		record, err := s.Get(ctx, workspaceID, collection, id)
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				continue
			}

			return nil, err
		}

		if store.MatchesSelector(record, selector) {
			records = append(records, record)
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
	}

	if opts.Limit > 0 && len(records) > opts.Limit {
		records = records[:opts.Limit]
	}

	return records, nil
}

func (s *Store) Get(ctx context.Context, workspaceID, collection, id string) (store.Record, error) {
	payload, err := s.client.Get(ctx, recordKey(workspaceID, collection, id)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, store.ErrRecordNotFound
		}

		return nil, fmt.Errorf("failed to get record %s: %w", id, err)
	}

	var record store.Record

	err = json.Unmarshal([]byte(payload), &record)
	if err != nil {
		return nil, fmt.Errorf("failed to decode record %s: %w", id, err)
	}

	return record, nil
}

func (s *Store) Insert(ctx context.Context, workspaceID, collection string, record store.Record) (store.Record, error) {
	stored := record.Clone()
	if stored.ID() == "" {
		stored[store.FieldID] = uuid.New().String()
	}

	err := s.write(ctx, workspaceID, collection, stored)
	if err != nil {
		return nil, err
	}

	err = s.client.SAdd(ctx, indexKey(workspaceID, collection), stored.ID()).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to index record %s: %w", stored.ID(), err)
	}

	return stored, nil
}

func (s *Store) Update(ctx context.Context, workspaceID, collection, id string, fields map[string]any) (store.Record, error) {
	record, err := s.Get(ctx, workspaceID, collection, id)
	if err != nil {
		return nil, err
	}

	for k, v := range fields {
		record[k] = v
	}

	err = s.write(ctx, workspaceID, collection, record)
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (s *Store) write(ctx context.Context, workspaceID, collection string, record store.Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", record.ID(), err)
	}

	err = s.client.Set(ctx, recordKey(workspaceID, collection, record.ID()), payload, 0).Err()
	if err != nil {
		return fmt.Errorf("failed to store record %s: %w", record.ID(), err)
	}

	return nil
}
