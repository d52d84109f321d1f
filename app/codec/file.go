package codec

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"nought/app/models"
)

// Load imports a document into a fresh store.
func Load(r io.Reader) (*models.Store, error) {
	store := models.NewStore()
	if err := NewImporter(store).Import(r); err != nil {
		return nil, err
	}
	return store, nil
}

// LoadFile imports the document at path into a fresh store.
func LoadFile(path string) (*models.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open todo file: %w", err)
	}
	defer f.Close()

	store, err := Load(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return store, nil
}

// SaveFile exports store to path. The document is written to a temporary
// file first and renamed over path, so a failed save leaves the previous
// document intact.
func SaveFile(store *models.Store, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	w := bufio.NewWriter(f)
	if err := NewExporter(store).Export(w); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("export todos: %w", err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
