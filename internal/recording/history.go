package recording

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// HistoryStore persists the ordered list of stopped session IDs.
type HistoryStore interface {
	Save(ids []string) error
	Load() ([]string, error) // returns an empty list if nothing was saved yet
}

// diskHistory is the concrete HistoryStore that writes a JSON array to disk.
type diskHistory struct {
	path string
}

// NewHistoryFile returns a HistoryStore backed by the JSON file at path.
func NewHistoryFile(path string) HistoryStore {
	return &diskHistory{path: path}
}

// Save marshals ids to JSON and writes them atomically via a temp file + os.Rename.
func (d *diskHistory) Save(ids []string) (err error) {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to persist session history: %w", err)
	}

	// Write to a temp file in the same directory so os.Rename is atomic.
	tmp, err := os.CreateTemp(filepath.Dir(d.path), "sessions-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to persist session history: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up the temp file on any error path.
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist session history: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to persist session history: %w", err)
	}
	if err = os.Rename(tmpName, d.path); err != nil {
		return fmt.Errorf("failed to persist session history: %w", err)
	}
	return nil
}

// Load reads and unmarshals the history file.
func (d *diskHistory) Load() ([]string, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read session history: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed to parse session history: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
