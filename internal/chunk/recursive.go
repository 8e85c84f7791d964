package chunk

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// SplitRecursive splits text into character-window chunks using a recursive
// character splitter that prefers paragraph, line, and word boundaries
// before raw character cuts, then maps each piece back to 1-indexed line
// numbers in the original text.
func SplitRecursive(text, docID string, params Params) ([]*Chunk, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(params.Size),
		textsplitter.WithChunkOverlap(params.Overlap),
	)
	pieces, err := splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("chunk: split document %s: %w", docID, err)
	}

	return locateLines(text, docID, pieces), nil
}

// locateLines assigns line ranges to split pieces by finding each piece in
// the original text. The search always starts after the previous piece's
// located offset, so repeated verbatim text is attributed to its own
// occurrence rather than an earlier duplicate. A piece that cannot be
// located (the splitter rewrote it) falls back to the cursor position
// instead of failing the chunking pass.
func locateLines(text, docID string, pieces []string) []*Chunk {
	chunks := make([]*Chunk, 0, len(pieces))
	cursor := 0

	for i, piece := range pieces {
		offset := cursor
		if idx := strings.Index(text[cursor:], piece); idx >= 0 {
			offset = cursor + idx
		} else {
			slog.Warn("chunk text not found in source, using cursor offset",
				slog.String("doc_id", docID),
				slog.Int("chunk_index", i))
		}

		startLine := strings.Count(text[:offset], "\n") + 1
		endLine := startLine + strings.Count(piece, "\n")

		chunks = append(chunks, &Chunk{
			DocID:     docID,
			Index:     i,
			StartLine: startLine,
			EndLine:   endLine,
			Text:      piece,
		})

		if offset+1 > cursor {
			cursor = offset + 1
		}
	}

	return chunks
}

// Split dispatches to the configured strategy. StrategyRecursive with
// auto=true ignores the given params and derives them from document length.
func Split(text, docID string, strategy Strategy, params Params, auto bool) ([]*Chunk, error) {
	switch strategy {
	case StrategyRecursive:
		if auto {
			params = AdaptiveParams(len(text))
		}
		return SplitRecursive(text, docID, params)
	case StrategyLines, "":
		return SplitLines(text, docID, params)
	default:
		return nil, fmt.Errorf("chunk: unknown strategy %q", strategy)
	}
}
