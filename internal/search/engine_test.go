package search

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarium-dev/librarium/internal/store"
)

// fakeRegistry serves canned document metadata.
type fakeRegistry struct {
	docs map[string]*DocumentInfo
}

func (r *fakeRegistry) Get(_ context.Context, docID string) (*DocumentInfo, error) {
	return r.docs[docID], nil
}

func (r *fakeRegistry) ListAll(_ context.Context) ([]*DocumentInfo, error) {
	docs := make([]*DocumentInfo, 0, len(r.docs))
	for _, d := range r.docs {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (r *fakeRegistry) ListByTags(_ context.Context, tags []string) ([]*DocumentInfo, error) {
	var docs []*DocumentInfo
	for _, d := range r.docs {
		for _, want := range tags {
			if containsTag(d.Tags, want) {
				docs = append(docs, d)
				break
			}
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func containsTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}

// countingLexical records calls and applies the filter to canned results.
type countingLexical struct {
	results  []store.ScoredChunk
	calls    int
	lastTopK int
}

func (l *countingLexical) Search(_ string, topK int, filter store.Filter) []store.ScoredChunk {
	l.calls++
	l.lastTopK = topK

	var out []store.ScoredChunk
	for _, r := range l.results {
		if filter.Match(r.Chunk.DocID) {
			out = append(out, r)
		}
	}
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}

// countingSemantic records calls and can fail on demand.
type countingSemantic struct {
	results []store.ScoredChunk
	calls   int
	err     error
}

func (s *countingSemantic) Search(_ context.Context, _ string, topK int, filter store.Filter, threshold float64) ([]store.ScoredChunk, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}

	var out []store.ScoredChunk
	for _, r := range s.results {
		if !filter.Match(r.Chunk.DocID) {
			continue
		}
		if threshold > 0 && r.Score < threshold {
			continue
		}
		out = append(out, r)
	}
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func testRegistry() *fakeRegistry {
	return &fakeRegistry{docs: map[string]*DocumentInfo{
		"d1": {ID: "d1", Name: "Python Guide", NumLines: 120, Tags: []string{"programming"}, TOC: "- Intro [lines 1-10]"},
		"d2": {ID: "d2", Name: "Java Handbook", NumLines: 300, Tags: []string{"programming", "enterprise"}},
		"d3": {ID: "d3", Name: "Gardening Almanac", NumLines: 80, Tags: []string{"hobby"}},
	}}
}

func newTestEngine(t *testing.T, lexical *countingLexical, semantic *countingSemantic, reg Registry) *Engine {
	t.Helper()
	e, err := NewEngine(lexical, semantic, reg, EngineConfig{})
	require.NoError(t, err)
	return e
}

func TestNewEngine_NilDependencies(t *testing.T) {
	lex := &countingLexical{}
	sem := &countingSemantic{}
	reg := testRegistry()

	_, err := NewEngine(nil, sem, reg, EngineConfig{})
	assert.ErrorIs(t, err, ErrNilDependency)
	_, err = NewEngine(lex, nil, reg, EngineConfig{})
	assert.ErrorIs(t, err, ErrNilDependency)
	_, err = NewEngine(lex, sem, nil, EngineConfig{})
	assert.ErrorIs(t, err, ErrNilDependency)
}

func TestEngine_EmptyQueryReturnsNothing(t *testing.T) {
	lex := &countingLexical{}
	sem := &countingSemantic{}
	e := newTestEngine(t, lex, sem, testRegistry())

	hits, err := e.Search(context.Background(), "   ", Options{})
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Zero(t, lex.calls)
	assert.Zero(t, sem.calls)
}

func TestEngine_TagFilterEmptySetShortCircuits(t *testing.T) {
	lex := &countingLexical{results: []store.ScoredChunk{scored("d1", 0, 5)}}
	sem := &countingSemantic{}
	e := newTestEngine(t, lex, sem, testRegistry())

	hits, err := e.Search(context.Background(), "query", Options{Tags: []string{"nonexistent"}})
	require.NoError(t, err)
	assert.Empty(t, hits)

	// No index is queried when the tag filter resolves to nothing.
	assert.Zero(t, lex.calls)
	assert.Zero(t, sem.calls)
}

func TestEngine_TagFilterRestrictsResults(t *testing.T) {
	lex := &countingLexical{results: []store.ScoredChunk{
		scored("d3", 0, 9),
		scored("d1", 0, 5),
	}}
	sem := &countingSemantic{}
	e := newTestEngine(t, lex, sem, testRegistry())

	hits, err := e.Search(context.Background(), "query", Options{
		Strategy: StrategyBM25,
		Tags:     []string{"programming"},
	})
	require.NoError(t, err)

	require.Len(t, hits, 1)
	assert.Equal(t, "d1", hits[0].DocID)
}

func TestEngine_AggregationCollapsesPerDocumentByMaxScore(t *testing.T) {
	lex := &countingLexical{results: []store.ScoredChunk{
		scored("d1", 0, 9.0),
		scored("d2", 0, 7.0),
		scored("d1", 1, 4.0),
	}}
	sem := &countingSemantic{}
	e := newTestEngine(t, lex, sem, testRegistry())

	hits, err := e.Search(context.Background(), "query", Options{Strategy: StrategyBM25, TopK: 10})
	require.NoError(t, err)

	require.Len(t, hits, 2)
	assert.Equal(t, "d1", hits[0].DocID)
	assert.Equal(t, 9.0, hits[0].Score)
	assert.Equal(t, "d2", hits[1].DocID)

	// Registry enrichment rides along.
	assert.Equal(t, "Python Guide", hits[0].Name)
	assert.Equal(t, 120, hits[0].TotalLines)
	assert.Equal(t, "- Intro [lines 1-10]", hits[0].TOC)
	assert.Equal(t, []string{"programming"}, hits[0].Tags)
}

func TestEngine_AggregationOverfetchesChunks(t *testing.T) {
	lex := &countingLexical{}
	sem := &countingSemantic{}
	e := newTestEngine(t, lex, sem, testRegistry())

	_, err := e.Search(context.Background(), "query", Options{Strategy: StrategyBM25, TopK: 5})
	require.NoError(t, err)
	assert.Equal(t, 15, lex.lastTopK, "aggregation fetches top_k*3 chunks")

	_, err = e.SearchChunks(context.Background(), "query", Options{Strategy: StrategyBM25, TopK: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, lex.lastTopK, "raw chunk search fetches exactly top_k")
}

func TestEngine_SnippetCappedAt200Characters(t *testing.T) {
	long := strings.Repeat("snippet text ", 40) // well over 200 chars
	hit := scored("d1", 0, 3.0)
	hit.Chunk.Text = long

	lex := &countingLexical{results: []store.ScoredChunk{hit}}
	e := newTestEngine(t, lex, &countingSemantic{}, testRegistry())

	hits, err := e.Search(context.Background(), "query", Options{Strategy: StrategyBM25})
	require.NoError(t, err)

	require.Len(t, hits, 1)
	assert.Len(t, []rune(hits[0].Snippet), 200)
	assert.True(t, strings.HasPrefix(long, hits[0].Snippet))
}

func TestEngine_NamesScopeScoring(t *testing.T) {
	e := newTestEngine(t, &countingLexical{}, &countingSemantic{}, testRegistry())

	hits, err := e.Search(context.Background(), "python guide", Options{Scope: ScopeNames})
	require.NoError(t, err)

	// Exact (case-insensitive) match scores 1.0; nothing else contains it.
	require.Len(t, hits, 1)
	assert.Equal(t, "d1", hits[0].DocID)
	assert.Equal(t, 1.0, hits[0].Score)

	hits, err = e.Search(context.Background(), "guide", Options{Scope: ScopeNames})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 0.5, hits[0].Score, "substring containment scores 0.5")

	hits, err = e.Search(context.Background(), "cookbook", Options{Scope: ScopeNames})
	require.NoError(t, err)
	assert.Empty(t, hits, "non-containment is excluded")
}

func TestEngine_NamesScopeRespectsTags(t *testing.T) {
	e := newTestEngine(t, &countingLexical{}, &countingSemantic{}, testRegistry())

	hits, err := e.Search(context.Background(), "a", Options{Scope: ScopeNames, Tags: []string{"hobby"}})
	require.NoError(t, err)

	require.Len(t, hits, 1)
	assert.Equal(t, "d3", hits[0].DocID)
}

func TestEngine_HybridFailsWhenVectorFails(t *testing.T) {
	vecErr := errors.New("store unreachable")
	lex := &countingLexical{results: []store.ScoredChunk{scored("d1", 0, 5)}}
	sem := &countingSemantic{err: vecErr}
	e := newTestEngine(t, lex, sem, testRegistry())

	// No partial degradation: the lexical results are not returned alone.
	_, err := e.Search(context.Background(), "query", Options{Strategy: StrategyHybrid})
	assert.ErrorIs(t, err, vecErr)
}

func TestEngine_HybridFusesBothIndices(t *testing.T) {
	lex := &countingLexical{results: []store.ScoredChunk{
		scored("d1", 0, 8.0),
		scored("d2", 0, 3.0),
	}}
	sem := &countingSemantic{results: []store.ScoredChunk{
		scored("d3", 0, 0.9),
		scored("d1", 0, 0.8),
	}}
	e := newTestEngine(t, lex, sem, testRegistry())

	hits, err := e.Search(context.Background(), "query", Options{TopK: 10})
	require.NoError(t, err)
	require.Len(t, hits, 3)

	// d1 appears in both rankings and wins.
	assert.Equal(t, "d1", hits[0].DocID)
	assert.Equal(t, 1, lex.calls)
	assert.Equal(t, 1, sem.calls)
}

func TestEngine_UnknownStrategy(t *testing.T) {
	e := newTestEngine(t, &countingLexical{}, &countingSemantic{}, testRegistry())

	_, err := e.Search(context.Background(), "query", Options{Strategy: Strategy("sliding")})
	assert.Error(t, err)
}

func TestEngine_SearchChunksReturnsRawHits(t *testing.T) {
	lex := &countingLexical{results: []store.ScoredChunk{
		scored("d1", 0, 9.0),
		scored("d1", 1, 4.0),
		scored("d2", 0, 2.0),
	}}
	e := newTestEngine(t, lex, &countingSemantic{}, testRegistry())

	hits, err := e.SearchChunks(context.Background(), "query", Options{Strategy: StrategyBM25, TopK: 10})
	require.NoError(t, err)

	// No document collapsing: both d1 chunks survive.
	require.Len(t, hits, 3)
	assert.Equal(t, "Python Guide", hits[0].Name)
	assert.Equal(t, "Python Guide", hits[1].Name)
	assert.Equal(t, "Java Handbook", hits[2].Name)
}

func TestEngine_SearchInDocument(t *testing.T) {
	hit := scored("d1", 0, 6.0)
	hit.Chunk.StartLine = 11
	hit.Chunk.EndLine = 20
	hit.Chunk.Text = "matching chunk text"

	lex := &countingLexical{results: []store.ScoredChunk{hit, scored("d2", 0, 9.0)}}
	e := newTestEngine(t, lex, &countingSemantic{}, testRegistry())

	hits, err := e.SearchInDocument(context.Background(), "d1", "query", Options{Strategy: StrategyBM25})
	require.NoError(t, err)

	// The filter keeps only d1 chunks despite d2 scoring higher.
	require.Len(t, hits, 1)
	assert.Equal(t, "d1", hits[0].DocID)
	assert.Equal(t, "Python Guide", hits[0].Name)
	assert.Equal(t, 11, hits[0].StartLine)
	assert.Equal(t, 20, hits[0].EndLine)
	assert.Equal(t, "matching chunk text", hits[0].Text)
}

func TestEngine_SearchInDocumentUnknownID(t *testing.T) {
	e := newTestEngine(t, &countingLexical{}, &countingSemantic{}, testRegistry())

	_, err := e.SearchInDocument(context.Background(), "missing", "query", Options{})
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		input   string
		want    Strategy
		wantErr bool
	}{
		{"", StrategyHybrid, false},
		{"hybrid", StrategyHybrid, false},
		{"BM25", StrategyBM25, false},
		{"vector", StrategyVector, false},
		{"sliding", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
		} else {
			require.NoError(t, err, tt.input)
			assert.Equal(t, tt.want, got)
		}
	}
}
