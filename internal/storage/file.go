package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"monthcal/internal/model"
)

// FileStore keeps the snapshot as a single JSON document of the form
// {"events": [...]}.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Load(_ context.Context) (model.Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.Snapshot{Events: []model.Event{}}, nil
		}
		return model.Snapshot{}, err
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("decode %s: %w", f.path, err)
	}
	if snap.Events == nil {
		snap.Events = []model.Event{}
	}
	return snap, nil
}

// Save writes the snapshot atomically via a temp file in the same
// directory followed by a rename. The file ends up with 0600 permissions.
func (f *FileStore) Save(_ context.Context, snap model.Snapshot) error {
	if snap.Events == nil {
		snap.Events = []model.Event{}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(f.path, data)
}

func (f *FileStore) Close() error {
	return nil
}

// WriteFileAtomic replaces path with data. Parent directories are created
// with 0700.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".monthcal-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
