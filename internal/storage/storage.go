// Package storage persists the event list between runs. It only ever sees
// complete snapshots; the schedule package remains the single owner of
// event state.
package storage

import (
	"context"
	"fmt"

	"monthcal/internal/model"
)

const (
	DriverFile   = "file"
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
)

// Store loads and saves event snapshots.
type Store interface {
	// Load returns the last saved snapshot, or an empty one when nothing
	// has been saved yet.
	Load(ctx context.Context) (model.Snapshot, error)
	// Save replaces the stored snapshot.
	Save(ctx context.Context, snap model.Snapshot) error
	Close() error
}

// Open returns the Store for driver rooted at path.
func Open(driver, path string) (Store, error) {
	if path == "" {
		return nil, fmt.Errorf("storage: path is empty")
	}
	switch driver {
	case DriverFile, "":
		return NewFileStore(path), nil
	case DriverBolt:
		return OpenBolt(path)
	case DriverSQLite:
		return OpenSQLite(path)
	default:
		return nil, &model.ConfigurationError{Setting: "storage.driver", Value: driver}
	}
}
