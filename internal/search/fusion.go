package search

import (
	"sort"

	"github.com/librarium-dev/librarium/internal/store"
)

// DefaultRRFConstant is the standard RRF smoothing parameter. k=60 is
// empirically validated across domains; larger k flattens the influence
// of rank.
const DefaultRRFConstant = 60

// ReciprocalRankFusion merges independently ranked chunk lists into one
// ranking, ignoring the original scores' scales. Each chunk contributes
// 1/(k + rank) per list it appears in, with rank 1-indexed by position;
// absence from a list contributes nothing. Chunks are identified by
// their "{doc_id}:{chunk_index}" key. The fused list is sorted by score
// descending (ties break on chunk key for run-to-run determinism) and
// truncated to topK.
//
// A chunk near the top of multiple lists outranks one near the top of
// only one list, by construction of the additive scheme.
func ReciprocalRankFusion(lists [][]store.ScoredChunk, k, topK int) []store.ScoredChunk {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	if topK <= 0 {
		return nil
	}

	type fused struct {
		chunk *store.ScoredChunk
		score float64
	}
	scores := make(map[string]*fused)

	for _, list := range lists {
		for rank, sc := range list {
			key := sc.Chunk.Key()
			f, ok := scores[key]
			if !ok {
				f = &fused{chunk: &store.ScoredChunk{Chunk: sc.Chunk}}
				scores[key] = f
			}
			f.score += 1.0 / float64(k+rank+1)
		}
	}

	if len(scores) == 0 {
		return nil
	}

	results := make([]store.ScoredChunk, 0, len(scores))
	for _, f := range scores {
		results = append(results, store.ScoredChunk{Chunk: f.chunk.Chunk, Score: f.score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.Key() < results[j].Chunk.Key()
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}
