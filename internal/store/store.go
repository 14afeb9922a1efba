// Package store persists dataset snapshots. A snapshot is the whole dataset
// document, fully overwritten at each phase boundary; no history is kept.
package store

import (
	"context"
	"errors"

	"github.com/pressmill/pressmill/internal/dataset"
)

// ErrNotFound is returned when no snapshot exists for the id.
var ErrNotFound = errors.New("store: dataset not found")

// SnapshotStore saves and loads whole-dataset snapshots.
type SnapshotStore interface {
	Save(ctx context.Context, ds *dataset.Dataset) error
	Load(ctx context.Context, id string) (*dataset.Dataset, error)
}
