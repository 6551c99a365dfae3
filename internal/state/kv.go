package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	boterrors "github.com/ducminhle1904/equity-signal-bot/internal/errors"
)

// KV persists the whole symbol -> entry price mapping. Save must be atomic:
// a reader never observes a partially written store.
type KV interface {
	Load() (map[string]float64, error)
	Save(entries map[string]float64) error
}

// FileKV stores the mapping as a single JSON object on disk
type FileKV struct {
	path   string
	backup bool
	mu     sync.Mutex
}

// NewFileKV returns a file-backed store. With backup enabled the previous
// file is copied to <path>.bak before each write.
func NewFileKV(path string, backup bool) *FileKV {
	return &FileKV{path: path, backup: backup}
}

// Path returns the backing file path
func (f *FileKV) Path() string {
	return f.path
}

// Load reads the mapping. A missing file is an empty mapping with no error;
// an unreadable or unparseable file is an empty mapping plus a STORAGE error.
func (f *FileKV) Load() (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]float64{}, nil
		}
		return map[string]float64{}, boterrors.NewStorageError("state", "Load", err)
	}

	entries := map[string]float64{}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return map[string]float64{}, boterrors.NewStorageError("state", "Load",
			fmt.Errorf("failed to parse %s: %w", f.path, err))
	}
	return entries, nil
}

// Save writes the mapping to a temp file in the same directory and renames it into place
func (f *FileKV) Save(entries map[string]float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return boterrors.NewStorageError("state", "Save", fmt.Errorf("failed to create state directory: %w", err))
	}

	if f.backup {
		if data, err := os.ReadFile(f.path); err == nil {
			_ = os.WriteFile(f.path+".bak", data, 0644)
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return boterrors.NewStorageError("state", "Save", fmt.Errorf("failed to marshal state: %w", err))
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return boterrors.NewStorageError("state", "Save", fmt.Errorf("failed to create temp state file: %w", err))
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return boterrors.NewStorageError("state", "Save", fmt.Errorf("failed to write temp state file: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return boterrors.NewStorageError("state", "Save", fmt.Errorf("failed to sync temp state file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return boterrors.NewStorageError("state", "Save", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return boterrors.NewStorageError("state", "Save", fmt.Errorf("failed to move state file: %w", err))
	}
	return nil
}
