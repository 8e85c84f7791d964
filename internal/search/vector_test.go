package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarium-dev/librarium/internal/chunk"
	"github.com/librarium-dev/librarium/internal/embed"
	"github.com/librarium-dev/librarium/internal/store"
)

func newTestVectorIndex(t *testing.T) *VectorIndex {
	t.Helper()
	embedder := embed.NewStaticEmbedder()
	vs, err := store.NewHNSWStore(embedder.Dimensions())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = vs.Close()
		_ = embedder.Close()
	})

	idx, err := NewVectorIndex(embedder, vs)
	require.NoError(t, err)
	return idx
}

func docChunk(docID string, index int, text string) *chunk.Chunk {
	return &chunk.Chunk{DocID: docID, Index: index, StartLine: 1, EndLine: 1, Text: text}
}

func TestNewVectorIndex_NilDependencies(t *testing.T) {
	embedder := embed.NewStaticEmbedder()
	defer embedder.Close()
	vs, err := store.NewHNSWStore(embedder.Dimensions())
	require.NoError(t, err)
	defer vs.Close()

	_, err = NewVectorIndex(nil, vs)
	assert.ErrorIs(t, err, ErrNilDependency)
	_, err = NewVectorIndex(embedder, nil)
	assert.ErrorIs(t, err, ErrNilDependency)
}

func TestVectorIndex_AddAndSearch(t *testing.T) {
	ctx := context.Background()
	idx := newTestVectorIndex(t)

	require.NoError(t, idx.Add(ctx, []*chunk.Chunk{
		docChunk("d1", 0, "recipe for sourdough bread baking"),
		docChunk("d2", 0, "annual financial report earnings"),
	}))
	assert.Equal(t, 2, idx.Count())

	results, err := idx.Search(ctx, "sourdough bread recipe", 2, store.Filter{}, 0)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "d1", results[0].Chunk.DocID)
}

func TestVectorIndex_AddEmptyIsNoop(t *testing.T) {
	idx := newTestVectorIndex(t)
	require.NoError(t, idx.Add(context.Background(), nil))
	assert.Equal(t, 0, idx.Count())
}

func TestVectorIndex_EmptyStoreReturnsEmpty(t *testing.T) {
	idx := newTestVectorIndex(t)

	results, err := idx.Search(context.Background(), "anything", 5, store.Filter{}, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestVectorIndex_ThresholdFiltering(t *testing.T) {
	ctx := context.Background()
	idx := newTestVectorIndex(t)

	require.NoError(t, idx.Add(ctx, []*chunk.Chunk{
		docChunk("d1", 0, "gardening tips for spring"),
		docChunk("d2", 0, "winter car maintenance"),
	}))

	unfiltered, err := idx.Search(ctx, "gardening advice", 10, store.Filter{}, 0)
	require.NoError(t, err)
	require.NotEmpty(t, unfiltered)

	// Threshold 1.0 filters out everything on a non-trivial corpus.
	strict, err := idx.Search(ctx, "gardening advice", 10, store.Filter{}, 1.0)
	require.NoError(t, err)
	assert.Empty(t, strict)

	// Threshold 0.0 behaves like unset.
	loose, err := idx.Search(ctx, "gardening advice", 10, store.Filter{}, 0.0)
	require.NoError(t, err)
	assert.Len(t, loose, len(unfiltered))
}

func TestVectorIndex_Remove(t *testing.T) {
	ctx := context.Background()
	idx := newTestVectorIndex(t)

	require.NoError(t, idx.Add(ctx, []*chunk.Chunk{
		docChunk("d1", 0, "content one"),
		docChunk("d2", 0, "content two"),
	}))

	require.NoError(t, idx.Remove(ctx, "d1"))
	assert.Equal(t, 1, idx.Count())

	// Removing an unindexed document is a no-op.
	require.NoError(t, idx.Remove(ctx, "ghost"))
	assert.Equal(t, 1, idx.Count())
}

// failingEmbedder errors on every call.
type failingEmbedder struct {
	*embed.StaticEmbedder
}

var errEmbedDown = errors.New("embedding service down")

func (f *failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errEmbedDown
}

func (f *failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errEmbedDown
}

func TestVectorIndex_EmbedderFailurePropagates(t *testing.T) {
	ctx := context.Background()
	embedder := &failingEmbedder{StaticEmbedder: embed.NewStaticEmbedder()}
	vs, err := store.NewHNSWStore(embed.StaticDimensions)
	require.NoError(t, err)
	defer vs.Close()

	idx, err := NewVectorIndex(embedder, vs)
	require.NoError(t, err)

	err = idx.Add(ctx, []*chunk.Chunk{docChunk("d1", 0, "text")})
	require.ErrorIs(t, err, errEmbedDown)
	assert.Contains(t, err.Error(), "embed chunks")

	_, err = idx.Search(ctx, "query", 5, store.Filter{}, 0)
	require.ErrorIs(t, err, errEmbedDown)
	assert.Contains(t, err.Error(), "embed query")
}
