package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/bft-labs/hubterm/internal/domain"
)

const statusFileName = "status.json"

// StatusFile implements ports.StatusRepository using a JSON file.
type StatusFile struct {
	dir string

	// Serializes writers sharing the temp file.
	mu sync.Mutex
}

// NewStatusFile creates a StatusFile for the given directory.
func NewStatusFile(dir string) *StatusFile {
	return &StatusFile{dir: dir}
}

// Load returns the last recorded status.
// Returns an empty record and nil error if no status file exists.
func (r *StatusFile) Load(ctx context.Context) (domain.StatusRecord, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return domain.StatusRecord{}, nil
		}
		return domain.StatusRecord{}, err
	}

	var rec domain.StatusRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.StatusRecord{}, err
	}
	return rec, nil
}

// Record persists rec atomically (write to a temp file, then rename).
func (r *StatusFile) Record(ctx context.Context, rec domain.StatusRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Path returns the full path to the status file.
func (r *StatusFile) Path() string {
	return filepath.Join(r.dir, statusFileName)
}
