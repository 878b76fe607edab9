// Package dataset loads the batch list of documents to evaluate.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Item is one document in a dataset.
type Item struct {
	Key           string `json:"-" yaml:"-"`
	Topic         string `json:"topic" yaml:"topic"`
	FilePath      string `json:"file_path" yaml:"file_path"`
	Description   string `json:"description" yaml:"description"`
	ExpectedStyle string `json:"expected_style,omitempty" yaml:"expected_style,omitempty"`
}

var errEmpty = errors.New("dataset has no items")

// Load reads a JSON or YAML map of key to item. Items are returned sorted by
// key. Relative file paths resolve against the dataset file's directory.
func Load(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	entries := make(map[string]Item)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &entries)
	default:
		err = json.Unmarshal(data, &entries)
	}
	if err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", path, errEmpty)
	}

	base := filepath.Dir(path)
	items := make([]Item, 0, len(entries))
	for key, it := range entries {
		if it.FilePath == "" {
			return nil, fmt.Errorf("dataset item %q: file_path is required", key)
		}
		if !filepath.IsAbs(it.FilePath) {
			it.FilePath = filepath.Join(base, it.FilePath)
		}
		it.Key = key
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return items, nil
}
