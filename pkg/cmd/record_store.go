package cmd

import (
	"strings"

	"github.com/recordflow/recordflow/pkg/store"
	"github.com/recordflow/recordflow/pkg/store/memory"
	"github.com/recordflow/recordflow/pkg/store/redis"
)

// NewRecordStore selects the record store gateway from the URL scheme:
// redis:// for the shared backend, anything else for the in-process store.
func NewRecordStore(storeURL string) (store.RecordStore, error) {
	if strings.HasPrefix(storeURL, "redis://") || strings.HasPrefix(storeURL, "rediss://") {
		return redis.NewStore(storeURL)
	}

	return memory.NewStore(), nil
}
