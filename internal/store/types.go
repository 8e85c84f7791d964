// Package store provides the two chunk indices: an in-memory Okapi BM25
// lexical index and an HNSW-backed vector store. Both score chunks
// independently; their scores are not comparable until fused.
package store

import (
	"context"

	"github.com/librarium-dev/librarium/internal/chunk"
)

// ScoredChunk pairs a chunk with its relevance score under a single index.
// BM25 scores are unbounded positive; vector scores are cosine similarity
// in [0, 1].
type ScoredChunk struct {
	Chunk *chunk.Chunk
	Score float64
}

// Filter restricts a search to one document or to a set of allowed
// document ids. The zero value matches everything.
type Filter struct {
	// DocID restricts to a single document when non-empty.
	DocID string

	// DocIDs restricts to a set of documents when non-nil.
	// Ignored when DocID is set.
	DocIDs map[string]bool
}

// Match reports whether a chunk from the given document passes the filter.
func (f Filter) Match(docID string) bool {
	if f.DocID != "" {
		return docID == f.DocID
	}
	if f.DocIDs != nil {
		return f.DocIDs[docID]
	}
	return true
}

// Restricted reports whether the filter excludes anything at all.
func (f Filter) Restricted() bool {
	return f.DocID != "" || f.DocIDs != nil
}

// VectorStore is the nearest-neighbor index the vector search path delegates
// to. Implementations carry the full chunk as retrievable metadata, keyed by
// the chunk key "{doc_id}:{chunk_index}".
type VectorStore interface {
	// Upsert inserts or replaces vectors for the given chunks.
	// chunks and vectors must have equal length. No-op on empty input.
	Upsert(ctx context.Context, chunks []*chunk.Chunk, vectors [][]float32) error

	// DeleteDoc removes every vector whose chunk belongs to docID.
	// Removing an unindexed document is a no-op.
	DeleteDoc(ctx context.Context, docID string) error

	// Query returns up to k chunks nearest to the query vector, most
	// similar first, restricted by the filter. An empty store returns an
	// empty list, never an error.
	Query(ctx context.Context, vector []float32, k int, filter Filter) ([]ScoredChunk, error)

	// Count returns the number of live vectors.
	Count() int

	// Persistence.
	Save(path string) error
	Load(path string) error
	Close() error
}
