package store

import (
	"math"
	"sort"
	"sync"

	"github.com/librarium-dev/librarium/internal/chunk"
)

// Okapi BM25 parameters.
const (
	// DefaultK1 is the term frequency saturation parameter.
	DefaultK1 = 1.5

	// DefaultB is the document length normalization parameter.
	DefaultB = 0.75
)

// bm25Entry is one indexed chunk with its precomputed term statistics.
type bm25Entry struct {
	chunk  *chunk.Chunk
	tf     map[string]int
	length int
}

// BM25Index is an updatable, queryable Okapi BM25 index over all chunks
// across all documents. Mutations rebuild the corpus statistics, so reads
// always see a consistent index; this is a batch-oriented index, not a
// streaming one.
//
// Safe for concurrent use: mutations take the write lock for the duration
// of the rebuild, readers share the read lock.
type BM25Index struct {
	mu      sync.RWMutex
	entries []bm25Entry
	df      map[string]int // document frequency per term
	avgLen  float64
	k1      float64
	b       float64
}

// NewBM25Index creates an empty BM25 index with default parameters.
func NewBM25Index() *BM25Index {
	return &BM25Index{
		df: make(map[string]int),
		k1: DefaultK1,
		b:  DefaultB,
	}
}

// Add tokenizes the chunks and appends them to the corpus, then rebuilds
// the corpus statistics so subsequent queries reflect the new documents.
func (idx *BM25Index) Add(chunks []*chunk.Chunk) {
	if len(chunks) == 0 {
		return
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, c := range chunks {
		tokens := Tokenize(c.Text)
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		idx.entries = append(idx.entries, bm25Entry{
			chunk:  c,
			tf:     tf,
			length: len(tokens),
		})
	}

	idx.rebuild()
}

// Remove deletes all chunks for the given document and rebuilds.
// Removing an unindexed document is a no-op.
func (idx *BM25Index) Remove(docID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	kept := idx.entries[:0]
	for _, e := range idx.entries {
		if e.chunk.DocID != docID {
			kept = append(kept, e)
		}
	}
	idx.entries = kept

	idx.rebuild()
}

// rebuild recomputes document frequencies and the average document length.
// Callers must hold the write lock.
func (idx *BM25Index) rebuild() {
	idx.df = make(map[string]int)
	var totalLen int
	for _, e := range idx.entries {
		totalLen += e.length
		for term := range e.tf {
			idx.df[term]++
		}
	}
	if len(idx.entries) > 0 {
		idx.avgLen = float64(totalLen) / float64(len(idx.entries))
	} else {
		idx.avgLen = 0
	}
}

// Search tokenizes the query, scores every chunk passing the filter against
// the full corpus statistics, and returns the top k results sorted by score
// descending. Ties break on chunk key so results are deterministic
// run-to-run. An empty corpus or a query with no matching terms returns an
// empty list, never an error.
func (idx *BM25Index) Search(query string, topK int, filter Filter) []ScoredChunk {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.entries) == 0 || topK <= 0 {
		return nil
	}

	terms := Tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	n := float64(len(idx.entries))
	results := make([]ScoredChunk, 0, len(idx.entries))

	for _, e := range idx.entries {
		if !filter.Match(e.chunk.DocID) {
			continue
		}

		var score float64
		for _, term := range terms {
			tf := e.tf[term]
			if tf == 0 {
				continue
			}
			df := float64(idx.df[term])
			idf := math.Log(1 + (n-df+0.5)/(df+0.5))
			norm := 1 - idx.b + idx.b*float64(e.length)/idx.avgLen
			score += idf * float64(tf) * (idx.k1 + 1) / (float64(tf) + idx.k1*norm)
		}
		if score <= 0 {
			continue
		}

		results = append(results, ScoredChunk{Chunk: e.chunk, Score: score})
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

// Size returns the number of indexed chunks.
func (idx *BM25Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}
