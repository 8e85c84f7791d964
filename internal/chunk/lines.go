package chunk

import (
	"regexp"
	"strings"
)

// headingPattern matches markdown structural headings (# through ######
// followed by whitespace), tested against the trimmed line.
var headingPattern = regexp.MustCompile(`^#{1,6}\s+`)

// headingLines returns the set of 0-indexed line numbers that are headings.
func headingLines(lines []string) map[int]bool {
	headings := make(map[int]bool)
	for i, line := range lines {
		if headingPattern.MatchString(strings.TrimSpace(line)) {
			headings[i] = true
		}
	}
	return headings
}

// SplitLines splits text into overlapping line-window chunks.
//
// Each chunk spans size lines (clipped to document length). The next chunk
// starts overlap lines before the previous end; when a heading falls inside
// the overlap zone [nextStart, end), the start snaps forward to the first
// such heading so sections begin cleanly. If no heading exists there, the
// overlap proceeds unsnapped.
//
// Guarantees: chunk indexes are 0..n-1 in emission order, the first chunk
// starts at line 1, and every line of the document is covered by at least
// one chunk. Empty input yields zero chunks.
func SplitLines(text, docID string, params Params) ([]*Chunk, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}

	lines := strings.Split(text, "\n")
	total := len(lines)
	headings := headingLines(lines)

	var chunks []*Chunk
	start := 0
	index := 0

	for start < total {
		end := start + params.Size
		if end > total {
			end = total
		}

		chunks = append(chunks, &Chunk{
			DocID:     docID,
			Index:     index,
			StartLine: start + 1,
			EndLine:   end,
			Text:      strings.Join(lines[start:end], "\n"),
		})
		index++

		if end >= total {
			break
		}

		nextStart := end - params.Overlap
		for i := nextStart; i < end; i++ {
			if headings[i] {
				nextStart = i
				break
			}
		}
		start = nextStart
	}

	return chunks, nil
}
