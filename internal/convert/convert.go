// Package convert turns source files into markdown text for indexing.
// The core only requires a string with newline-delimited lines; richer
// conversion (OCR, PDF extraction) plugs in behind the same interface.
package convert

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFileType is returned for file extensions no converter
// handles.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// Converter produces markdown text from a source file.
type Converter interface {
	// Convert reads the file and returns its markdown text.
	Convert(path string) (string, error)

	// SupportedExtensions returns the extensions (with leading dot,
	// lowercase) this converter accepts.
	SupportedExtensions() []string
}

// PassthroughConverter handles files that already are plain text or
// markdown. Line endings are normalized to \n.
type PassthroughConverter struct{}

// Verify interface implementation at compile time
var _ Converter = PassthroughConverter{}

// SupportedExtensions returns the plain-text extensions.
func (PassthroughConverter) SupportedExtensions() []string {
	return []string{".md", ".markdown", ".txt"}
}

// Convert reads the file and normalizes CRLF line endings.
func (c PassthroughConverter) Convert(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !supported(c.SupportedExtensions(), ext) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read source file: %w", err)
	}

	return strings.ReplaceAll(string(data), "\r\n", "\n"), nil
}

func supported(exts []string, ext string) bool {
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}
