package parser

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bhnan/Long-text-evaluation/internal/doctree"
)

// Parser converts raw document bytes into a DocTree.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.DocTree, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt": true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// ParseFile segments the document at path. Failures are logged and yield an
// empty tree rather than an error.
func ParseFile(path string, log *slog.Logger) *doctree.DocTree {
	empty := &doctree.DocTree{Title: DocumentTitle(path)}

	p, err := ForFile(path)
	if err != nil {
		log.Error("unsupported document", "path", path, "error", err)
		return empty
	}
	f, err := os.Open(path)
	if err != nil {
		log.Error("cannot open document", "path", path, "error", err)
		return empty
	}
	defer f.Close()

	tree, err := p.Parse(f, filepath.Base(path))
	if err != nil {
		log.Error("cannot read document", "path", path, "error", err)
		return empty
	}
	return tree
}

// DocumentTitle derives a document title from a path: the base name without
// its extension.
func DocumentTitle(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
