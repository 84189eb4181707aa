package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Local reads invoice documents from the local filesystem
type Local struct{}

// NewLocal creates a new Local source
func NewLocal() *Local {
	return &Local{}
}

// isXMLFile reports whether the filename has an .xml extension, ignoring case
func isXMLFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".xml")
}

// ReadDir reads every .xml file directly inside dir, in name order
func (l *Local) ReadDir(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isXMLFile(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)

	return l.ReadFiles(paths)
}

// ReadFiles reads the given files in order. Files are not filtered by extension.
func (l *Local) ReadFiles(paths []string) ([]Document, error) {
	docs := make([]Document, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", path, err)
		}
		docs = append(docs, Document{
			FileName: filepath.Base(path),
			Content:  string(data),
		})
	}
	return docs, nil
}
