// Package fieldstore persists the custom metadata field registry as a
// JSON document on disk.
package fieldstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/natefinch/atomic"

	"course-list-sync/internal/core"
)

// File is a core.FieldStore backed by a single JSON file. Writes go
// through an atomic rename so a crash mid-save never leaves a truncated
// registry behind.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile creates a store at path. The file is created on first Save;
// Load of a missing file returns an empty registry.
func NewFile(path string) *File {
	return &File{path: path}
}

// Load reads the registry from disk.
func (f *File) Load() (map[string]core.FieldDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]core.FieldDefinition), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read field registry %s: %w", f.path, err)
	}

	fields := make(map[string]core.FieldDefinition)
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode field registry %s: %w", f.path, err)
	}
	return fields, nil
}

// Save atomically replaces the registry on disk.
func (f *File) Save(fields map[string]core.FieldDefinition) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return fmt.Errorf("encode field registry: %w", err)
	}
	data = append(data, '\n')

	if err := atomic.WriteFile(f.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write field registry %s: %w", f.path, err)
	}
	return nil
}
