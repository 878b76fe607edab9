package results

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"github.com/bhnan/Long-text-evaluation/internal/doctree"
)

// TimeLayout is used both in file names and in EvaluationTime.
const TimeLayout = "20060102_150405"

// File is the persisted outcome of one document evaluation.
type File struct {
	DocumentTitle  string                   `json:"document_title"`
	EvaluationTime string                   `json:"evaluation_time"`
	Topic          string                   `json:"topic,omitempty"`
	Sections       []*doctree.EvaluatedUnit `json:"sections"`
}

// New stamps a result file with the evaluation time.
func New(title, topic string, sections []*doctree.EvaluatedUnit, at time.Time) *File {
	if sections == nil {
		sections = []*doctree.EvaluatedUnit{}
	}
	return &File{
		DocumentTitle:  title,
		EvaluationTime: at.Format(TimeLayout),
		Topic:          topic,
		Sections:       sections,
	}
}

// FileName returns evaluation_<title>_<time>.json.
func (f *File) FileName() string {
	return fmt.Sprintf("evaluation_%s_%s.json", f.DocumentTitle, f.EvaluationTime)
}

// Save writes f under dir and returns the path written. A result with the
// same title and second is never overwritten; the later one gets a _2, _3
// suffix.
func Save(dir string, f *File) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}
	path, err := reserve(dir, f.FileName())
	if err != nil {
		return "", fmt.Errorf("reserve results file: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("write results: %w", err)
	}
	return path, nil
}

func reserve(dir, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		candidate := name
		if n > 1 {
			candidate = fmt.Sprintf("%s_%d%s", stem, n, ext)
		}
		path := filepath.Join(dir, candidate)
		fh, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		return path, fh.Close()
	}
}

// Load reads a result file and validates every section score.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse results %s: %w", path, err)
	}
	for i, s := range f.Sections {
		if s == nil {
			return nil, fmt.Errorf("results %s: section %d is null", path, i)
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("results %s: section %d: %w", path, i, err)
		}
	}
	return &f, nil
}
