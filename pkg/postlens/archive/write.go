package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cognicore/postlens/pkg/postlens/category"
)

// FileName is the document file name for c.
func FileName(c category.Category) string {
	return string(c) + ".md"
}

// WriteResult reports what WriteDir did for one category.
type WriteResult struct {
	Category category.Category
	Path     string
	Entries  int
	Changed  bool
}

// WriteDir writes one document per category into dir, creating it if
// needed. Categories missing from docs get an empty document stamped with
// generatedAt. Files whose content is unchanged are left untouched.
func WriteDir(dir string, docs map[category.Category]Document, generatedAt time.Time) ([]WriteResult, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}

	results := make([]WriteResult, 0, len(category.All()))
	for _, c := range category.All() {
		doc, ok := docs[c]
		if !ok {
			doc = Document{Category: c, GeneratedAt: generatedAt}
		}
		path := filepath.Join(dir, FileName(c))
		changed, err := writeIfChanged(path, Render(doc))
		if err != nil {
			return results, fmt.Errorf("write %s: %w", FileName(c), err)
		}
		results = append(results, WriteResult{Category: c, Path: path, Entries: len(doc.Entries), Changed: changed})
	}
	return results, nil
}

// writeIfChanged replaces path atomically unless it already holds data.
func writeIfChanged(path string, data []byte) (bool, error) {
	existing, err := os.ReadFile(path)
	switch {
	case err == nil && bytes.Equal(existing, data):
		return false, nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return false, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return false, err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return false, err
	}
	if err := tmp.Close(); err != nil {
		return false, err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return false, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return false, err
	}
	return true, nil
}
