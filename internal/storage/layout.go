// Package storage manages the on-disk layout of a knowledge base root:
// per-document raw and markdown files, the vector index snapshot, and the
// registry database, all guarded by an advisory file lock.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

const (
	docsDirName  = "docs"
	indexDirName = "index"
	lockFileName = "librarium.lock"
)

// Layout owns a knowledge base root directory:
//
//	<root>/docs/<id>/raw.<ext>   original source file
//	<root>/docs/<id>/content.md  converted markdown
//	<root>/index/vectors.hnsw    vector index snapshot
//	<root>/registry.db           document registry
//
// Open acquires an advisory lock on the root; a second process opening
// the same root fails fast instead of corrupting the indices.
type Layout struct {
	root string
	lock *flock.Flock
}

// Open prepares the directory tree under root and takes the lock.
func Open(root string) (*Layout, error) {
	for _, dir := range []string{root, filepath.Join(root, docsDirName), filepath.Join(root, indexDirName)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	lock := flock.New(filepath.Join(root, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire storage lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("storage root %s is locked by another process", root)
	}

	return &Layout{root: root, lock: lock}, nil
}

// Root returns the root directory.
func (l *Layout) Root() string {
	return l.root
}

// DocDir returns the directory for one document.
func (l *Layout) DocDir(docID string) string {
	return filepath.Join(l.root, docsDirName, docID)
}

// ContentPath returns the markdown file for one document.
func (l *Layout) ContentPath(docID string) string {
	return filepath.Join(l.DocDir(docID), "content.md")
}

// RawPath returns the raw source copy for one document.
func (l *Layout) RawPath(docID, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return filepath.Join(l.DocDir(docID), "raw"+ext)
}

// VectorIndexPath returns the vector index snapshot file.
func (l *Layout) VectorIndexPath() string {
	return filepath.Join(l.root, indexDirName, "vectors.hnsw")
}

// RegistryPath returns the registry database file.
func (l *Layout) RegistryPath() string {
	return filepath.Join(l.root, "registry.db")
}

// WriteDocument stores a document's raw bytes and markdown text.
func (l *Layout) WriteDocument(docID, ext string, raw []byte, markdown string) error {
	if err := os.MkdirAll(l.DocDir(docID), 0o755); err != nil {
		return fmt.Errorf("create document directory: %w", err)
	}
	if err := os.WriteFile(l.RawPath(docID, ext), raw, 0o644); err != nil {
		return fmt.Errorf("write raw file: %w", err)
	}
	if err := os.WriteFile(l.ContentPath(docID), []byte(markdown), 0o644); err != nil {
		return fmt.Errorf("write markdown file: %w", err)
	}
	return nil
}

// ReadMarkdown returns a document's stored markdown text.
func (l *Layout) ReadMarkdown(docID string) (string, error) {
	data, err := os.ReadFile(l.ContentPath(docID))
	if err != nil {
		return "", fmt.Errorf("read markdown file: %w", err)
	}
	return string(data), nil
}

// RemoveDocument deletes a document's directory. Removing an unknown id
// is a no-op.
func (l *Layout) RemoveDocument(docID string) error {
	if err := os.RemoveAll(l.DocDir(docID)); err != nil {
		return fmt.Errorf("remove document directory: %w", err)
	}
	return nil
}

// ListDocIDs returns the document ids present on disk.
func (l *Layout) ListDocIDs() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(l.root, docsDirName))
	if err != nil {
		return nil, fmt.Errorf("list document directories: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

// Close releases the advisory lock.
func (l *Layout) Close() error {
	if l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release storage lock: %w", err)
	}
	l.lock = nil
	return nil
}
