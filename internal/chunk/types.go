// Package chunk splits document text into overlapping, addressable chunks
// with exact 1-indexed line provenance. Chunks are the unit of indexing and
// scoring for both the lexical and the vector index.
package chunk

import (
	"fmt"
	"strconv"
)

// Chunk is a contiguous line-range slice of a document's text.
// Immutable once created. Index is dense and sequential (0, 1, 2, ...)
// within a document's chunk set and reflects emission order.
type Chunk struct {
	DocID     string // Parent document ID
	Index     int    // Chunk index within the document
	StartLine int    // 1-indexed
	EndLine   int    // 1-indexed, inclusive, >= StartLine
	Text      string
}

// Key returns the chunk's identity key, used for fusion and dedup.
func (c *Chunk) Key() string {
	return c.DocID + ":" + strconv.Itoa(c.Index)
}

// Strategy selects the splitting algorithm.
type Strategy string

const (
	// StrategyLines splits on line windows with heading-boundary snapping.
	StrategyLines Strategy = "lines"

	// StrategyRecursive splits on character windows using a recursive
	// text splitter that prefers structural boundaries.
	StrategyRecursive Strategy = "recursive"
)

// Params holds the window size and overlap for a splitting strategy.
// For StrategyLines the unit is lines; for StrategyRecursive, characters.
type Params struct {
	Size    int
	Overlap int
}

// Validate checks that the parameters describe a terminating split.
func (p Params) Validate() error {
	if p.Size <= 0 {
		return fmt.Errorf("chunk: size must be greater than zero, got %d", p.Size)
	}
	if p.Overlap < 0 {
		return fmt.Errorf("chunk: overlap cannot be negative, got %d", p.Overlap)
	}
	if p.Overlap >= p.Size {
		return fmt.Errorf("chunk: overlap %d must be smaller than size %d", p.Overlap, p.Size)
	}
	return nil
}

// DefaultLineParams are the default line-window parameters.
func DefaultLineParams() Params {
	return Params{Size: 80, Overlap: 20}
}

// Document length thresholds for the adaptive character-window policy.
const (
	shortDocChars = 5_000
	longDocChars  = 50_000
)

// AdaptiveParams selects character-window parameters from total document
// length: short documents get tight chunks, long documents wide ones.
// This is a convenience layer over StrategyRecursive, not a third algorithm.
func AdaptiveParams(totalChars int) Params {
	switch {
	case totalChars < shortDocChars:
		return Params{Size: 500, Overlap: 50}
	case totalChars <= longDocChars:
		return Params{Size: 1500, Overlap: 200}
	default:
		return Params{Size: 3000, Overlap: 400}
	}
}
