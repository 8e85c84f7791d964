package registry

import (
	"regexp"
	"strings"
)

// tocHeadingPattern matches markdown ATX headings, capturing the marker
// and the title.
var tocHeadingPattern = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

// ExtractTOC scans markdown text for headings and computes each section's
// line range. A section ends on the line before the next heading of the
// same or higher level, or at the document end.
func ExtractTOC(text string) []TOCEntry {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")

	var entries []TOCEntry
	for i, line := range lines {
		m := tocHeadingPattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		entries = append(entries, TOCEntry{
			Title:     strings.TrimSpace(m[2]),
			Level:     len(m[1]),
			StartLine: i + 1,
			EndLine:   len(lines), // provisional, fixed up below
		})
	}

	for i := range entries {
		for j := i + 1; j < len(entries); j++ {
			if entries[j].Level <= entries[i].Level {
				entries[i].EndLine = entries[j].StartLine - 1
				break
			}
		}
	}

	return entries
}
