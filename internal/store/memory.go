package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pressmill/pressmill/internal/dataset"
)

// MemoryStore holds snapshots in memory, for tests and ephemeral runs.
// Snapshots are stored as serialized documents so callers never share row
// pointers with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: map[string][]byte{}}
}

func (s *MemoryStore) Save(_ context.Context, ds *dataset.Dataset) error {
	payload, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("marshal dataset %s: %w", ds.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[ds.ID] = payload
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (*dataset.Dataset, error) {
	s.mu.RLock()
	payload, ok := s.snapshots[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var ds dataset.Dataset
	if err := json.Unmarshal(payload, &ds); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return &ds, nil
}
