// Package registry persists document metadata: names, tags, line counts,
// and table-of-contents entries. It is the enrichment and tag-filter
// collaborator of the search orchestrator.
package registry

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a document id is not registered.
var ErrNotFound = errors.New("document not found in registry")

// TOCEntry is one heading in a document's table of contents. EndLine is
// the last line of the section: the line before the next heading of the
// same or higher level, or the document end.
type TOCEntry struct {
	Title     string
	Level     int // 1 (top) through 6
	StartLine int
	EndLine   int
}

// Document is a registered document's metadata.
type Document struct {
	ID         string
	Name       string
	SourcePath string
	NumLines   int
	FileSize   int64
	FileType   string
	CreatedAt  time.Time
	Tags       []string
	TOC        []TOCEntry
}

// FormatTOC renders the table of contents as an indented list with line
// ranges, two spaces of indent per heading level.
func (d *Document) FormatTOC() string {
	if len(d.TOC) == 0 {
		return "No table of contents available"
	}

	var b strings.Builder
	for _, e := range d.TOC {
		indent := strings.Repeat("  ", e.Level-1)
		fmt.Fprintf(&b, "%s- %s [lines %d-%d]\n", indent, e.Title, e.StartLine, e.EndLine)
	}
	return strings.TrimRight(b.String(), "\n")
}
