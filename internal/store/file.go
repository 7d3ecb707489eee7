package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/carlosrabelo/terminalnator/domain/ports"
)

// FileRepository persists profiles in a single YAML or JSON file, chosen by
// extension. A missing file is an empty store.
type FileRepository struct {
	path string
}

// NewFileRepository creates a repository backed by path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Path returns the backing file path.
func (r *FileRepository) Path() string {
	return r.path
}

func (r *FileRepository) isJSON() bool {
	return strings.EqualFold(filepath.Ext(r.path), ".json")
}

// Load reads the snapshot from disk.
func (r *FileRepository) Load(ctx context.Context) (ports.Snapshot, error) {
	var snap ports.Snapshot
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return snap, nil
		}
		return snap, fmt.Errorf("failed to read profiles file %s: %w", r.path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return snap, nil
	}
	if r.isJSON() {
		err = json.Unmarshal(data, &snap)
	} else {
		err = yaml.Unmarshal(data, &snap)
	}
	if err != nil {
		return snap, fmt.Errorf("failed to parse profiles file %s: %w", r.path, err)
	}
	return snap, nil
}

// Save writes the snapshot atomically: temp file, fsync, rename.
func (r *FileRepository) Save(ctx context.Context, snap ports.Snapshot) error {
	var data []byte
	var err error
	if r.isJSON() {
		data, err = json.MarshalIndent(snap, "", "  ")
	} else {
		data, err = yaml.Marshal(snap)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to ensure profiles directory: %w", err)
	}

	// same directory so the rename stays on one filesystem
	tmpFile, err := os.CreateTemp(dir, ".profiles-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if err := tmpFile.Chmod(0600); err != nil {
		return fmt.Errorf("failed to set profiles file mode: %w", err)
	}
	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		return fmt.Errorf("failed to replace profiles file: %w", err)
	}
	return nil
}
