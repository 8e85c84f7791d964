package search

import (
	"context"
	"fmt"

	"github.com/librarium-dev/librarium/internal/chunk"
	"github.com/librarium-dev/librarium/internal/embed"
	"github.com/librarium-dev/librarium/internal/store"
)

// VectorIndex normalizes an embedder and a vector store into the same
// (Chunk, score) contract as the lexical index. Scores are cosine
// similarity in [0, 1], higher meaning more similar.
type VectorIndex struct {
	embedder embed.Embedder
	store    store.VectorStore
}

// Verify interface implementation at compile time
var _ SemanticIndex = (*VectorIndex)(nil)

// NewVectorIndex creates a vector index over the given embedder and store.
func NewVectorIndex(embedder embed.Embedder, vs store.VectorStore) (*VectorIndex, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrNilDependency)
	}
	if vs == nil {
		return nil, fmt.Errorf("%w: vector store is required", ErrNilDependency)
	}
	return &VectorIndex{embedder: embedder, store: vs}, nil
}

// Add embeds the chunks and upserts them into the store. No-op on empty
// input.
func (v *VectorIndex) Add(ctx context.Context, chunks []*chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := v.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}

	if err := v.store.Upsert(ctx, chunks, vectors); err != nil {
		return fmt.Errorf("vector upsert: %w", err)
	}
	return nil
}

// Remove deletes all vectors belonging to docID.
func (v *VectorIndex) Remove(ctx context.Context, docID string) error {
	if err := v.store.DeleteDoc(ctx, docID); err != nil {
		return fmt.Errorf("vector delete: %w", err)
	}
	return nil
}

// Search embeds the query and runs nearest-neighbor search. Results below
// the similarity threshold are dropped; a zero threshold passes everything
// through. An empty store returns an empty list, never an error.
func (v *VectorIndex) Search(ctx context.Context, query string, topK int, filter store.Filter, threshold float64) ([]store.ScoredChunk, error) {
	vector, err := v.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := v.store.Query(ctx, vector, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	if threshold <= 0 {
		return results, nil
	}

	filtered := results[:0]
	for _, r := range results {
		if r.Score >= threshold {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// Count returns the number of indexed vectors.
func (v *VectorIndex) Count() int {
	return v.store.Count()
}
