package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pressmill/pressmill/internal/dataset"
)

// FileStore keeps one JSON document per dataset id under a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the snapshot directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("snapshot dir is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create snapshot dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save overwrites the snapshot atomically (temp file + rename).
func (s *FileStore) Save(_ context.Context, ds *dataset.Dataset) error {
	payload, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dataset %s: %w", ds.ID, err)
	}

	tmp, err := os.CreateTemp(s.dir, ds.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("snapshot temp file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("write snapshot %s: %w", ds.ID, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("close snapshot %s: %w", ds.ID, err)
	}
	if err := os.Rename(name, s.path(ds.ID)); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("store snapshot %s: %w", ds.ID, err)
	}
	return nil
}

// Load reads the snapshot for the id.
func (s *FileStore) Load(_ context.Context, id string) (*dataset.Dataset, error) {
	raw, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read snapshot %s: %w", id, err)
	}
	var ds dataset.Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return &ds, nil
}
