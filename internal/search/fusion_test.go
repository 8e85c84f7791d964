package search

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarium-dev/librarium/internal/chunk"
	"github.com/librarium-dev/librarium/internal/store"
)

func scored(docID string, index int, score float64) store.ScoredChunk {
	return store.ScoredChunk{
		Chunk: &chunk.Chunk{
			DocID:     docID,
			Index:     index,
			StartLine: 1,
			EndLine:   1,
			Text:      docID,
		},
		Score: score,
	}
}

func TestReciprocalRankFusion_BoostsChunksInBothLists(t *testing.T) {
	// X appears in both lists, Y and Z in one each.
	listA := []store.ScoredChunk{scored("X", 0, 0.9), scored("Y", 0, 0.5)}
	listB := []store.ScoredChunk{scored("Z", 0, 0.8), scored("X", 0, 0.7)}

	fused := ReciprocalRankFusion([][]store.ScoredChunk{listA, listB}, DefaultRRFConstant, 10)

	require.Len(t, fused, 3)
	assert.Equal(t, "X", fused[0].Chunk.DocID)

	// Rank 1 in A plus rank 2 in B.
	expected := 1.0/61.0 + 1.0/62.0
	assert.InDelta(t, expected, fused[0].Score, 1e-9)
}

func TestReciprocalRankFusion_TopKTruncation(t *testing.T) {
	list := make([]store.ScoredChunk, 20)
	for i := range list {
		list[i] = scored(fmt.Sprintf("d%02d", i), 0, float64(20-i))
	}

	fused := ReciprocalRankFusion([][]store.ScoredChunk{list}, DefaultRRFConstant, 5)

	require.Len(t, fused, 5)
	for i := 1; i < len(fused); i++ {
		assert.Greater(t, fused[i-1].Score, fused[i].Score)
	}
	// Single-list fusion preserves the input order.
	assert.Equal(t, "d00", fused[0].Chunk.DocID)
}

func TestReciprocalRankFusion_IgnoresOriginalScoreScales(t *testing.T) {
	// Wildly different scales; only rank positions matter.
	bm25 := []store.ScoredChunk{scored("a", 0, 412.7), scored("b", 0, 3.1)}
	vec := []store.ScoredChunk{scored("a", 0, 0.92), scored("b", 0, 0.91)}

	fused := ReciprocalRankFusion([][]store.ScoredChunk{bm25, vec}, DefaultRRFConstant, 10)

	require.Len(t, fused, 2)
	assert.Equal(t, "a", fused[0].Chunk.DocID)
	assert.InDelta(t, 2.0/61.0, fused[0].Score, 1e-9)
	assert.InDelta(t, 2.0/62.0, fused[1].Score, 1e-9)
}

func TestReciprocalRankFusion_EmptyInputs(t *testing.T) {
	assert.Empty(t, ReciprocalRankFusion(nil, 60, 10))
	assert.Empty(t, ReciprocalRankFusion([][]store.ScoredChunk{}, 60, 10))
	assert.Empty(t, ReciprocalRankFusion([][]store.ScoredChunk{{}, {}}, 60, 10))
	assert.Empty(t, ReciprocalRankFusion([][]store.ScoredChunk{{scored("a", 0, 1)}}, 60, 0))
}

func TestReciprocalRankFusion_DefaultsKWhenUnset(t *testing.T) {
	list := []store.ScoredChunk{scored("a", 0, 1)}

	fused := ReciprocalRankFusion([][]store.ScoredChunk{list}, 0, 10)

	require.Len(t, fused, 1)
	assert.InDelta(t, 1.0/61.0, fused[0].Score, 1e-9)
}

func TestReciprocalRankFusion_Deterministic(t *testing.T) {
	// Identical ranks in disjoint lists tie; order falls back to chunk key.
	listA := []store.ScoredChunk{scored("b", 0, 1)}
	listB := []store.ScoredChunk{scored("a", 0, 1)}

	for i := 0; i < 5; i++ {
		fused := ReciprocalRankFusion([][]store.ScoredChunk{listA, listB}, 60, 10)
		require.Len(t, fused, 2)
		assert.Equal(t, "a", fused[0].Chunk.DocID)
		assert.Equal(t, "b", fused[1].Chunk.DocID)
	}
}
