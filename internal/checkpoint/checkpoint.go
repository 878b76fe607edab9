package checkpoint

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/bhnan/Long-text-evaluation/internal/doctree"
	"github.com/bhnan/Long-text-evaluation/internal/metrics"
)

// ErrCorrupt means the checkpoint file exists but cannot be trusted. The run
// stops so an operator can inspect or remove it.
var ErrCorrupt = errors.New("corrupt checkpoint")

// Store persists the evaluated units of one document run. A single writer
// per path is assumed.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// PathFor returns the default checkpoint path for a document.
func PathFor(dir, docTitle string) string {
	return filepath.Join(dir, docTitle+".checkpoint.json")
}

func (s *Store) Path() string { return s.path }

// Save atomically replaces the checkpoint with units.
func (s *Store) Save(units []*doctree.EvaluatedUnit) error {
	if units == nil {
		units = []*doctree.EvaluatedUnit{}
	}
	data, err := json.MarshalIndent(units, "", "  ")
	if err != nil {
		metrics.CheckpointWrites.WithLabelValues("error").Inc()
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			metrics.CheckpointWrites.WithLabelValues("error").Inc()
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		metrics.CheckpointWrites.WithLabelValues("error").Inc()
		return fmt.Errorf("write checkpoint: %w", err)
	}
	metrics.CheckpointWrites.WithLabelValues("ok").Inc()
	return nil
}

// Load returns the checkpointed units, or none if no checkpoint exists.
func (s *Store) Load() ([]*doctree.EvaluatedUnit, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	var units []*doctree.EvaluatedUnit
	if err := json.Unmarshal(data, &units); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	for i, u := range units {
		if u == nil {
			return nil, fmt.Errorf("%w: %s: record %d is null", ErrCorrupt, s.path, i)
		}
		if err := u.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: record %d (%q): %v", ErrCorrupt, s.path, i, u.Title, err)
		}
	}
	return units, nil
}

// Clear removes the checkpoint. Removing a missing checkpoint is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear checkpoint: %w", err)
	}
	return nil
}
