// Package search provides hybrid document retrieval: BM25 and semantic
// chunk search fused with Reciprocal Rank Fusion, plus the query-facing
// orchestration that filters by tags, scores document names, and
// aggregates chunk hits into document hits.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/librarium-dev/librarium/internal/store"
)

// Strategy selects the retrieval method for a query.
type Strategy string

const (
	// StrategyHybrid runs BM25 and vector search and fuses the rankings.
	StrategyHybrid Strategy = "hybrid"

	// StrategyBM25 runs lexical search only.
	StrategyBM25 Strategy = "bm25"

	// StrategyVector runs semantic search only.
	StrategyVector Strategy = "vector"
)

// ParseStrategy converts a string to a Strategy. Empty defaults to hybrid.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "", string(StrategyHybrid):
		return StrategyHybrid, nil
	case string(StrategyBM25):
		return StrategyBM25, nil
	case string(StrategyVector):
		return StrategyVector, nil
	default:
		return "", fmt.Errorf("unknown search strategy %q (want hybrid, bm25, or vector)", s)
	}
}

// Scope selects what a query is matched against.
type Scope string

const (
	// ScopeContents searches chunk text through the indices.
	ScopeContents Scope = "contents"

	// ScopeNames matches the query against document display names only,
	// bypassing the chunk indices.
	ScopeNames Scope = "names"
)

// Options control a single search call.
type Options struct {
	// TopK is the maximum number of results (default 10).
	TopK int

	// Strategy is the retrieval method (default hybrid).
	Strategy Strategy

	// Scope selects contents or names matching (default contents).
	Scope Scope

	// Tags restricts results to documents carrying any of these tags
	// (OR semantics). Empty means no tag filter.
	Tags []string

	// Threshold drops vector results below this cosine similarity.
	// Zero means no threshold.
	Threshold float64
}

// DocumentHit is an aggregated, document-level result. Derived per query,
// never persisted.
type DocumentHit struct {
	DocID      string
	Name       string
	TotalLines int
	TOC        string
	Tags       []string
	Score      float64
	Snippet    string
}

// ContentHit is a raw chunk-level result.
type ContentHit struct {
	DocID     string
	Name      string
	StartLine int
	EndLine   int
	Text      string
	Score     float64
}

// DocumentInfo is the registry metadata the orchestrator needs to filter
// and enrich results.
type DocumentInfo struct {
	ID       string
	Name     string
	NumLines int
	Tags     []string
	TOC      string
}

// Registry is the document registry contract the orchestrator depends on.
type Registry interface {
	// Get returns the document or nil when the id is unknown.
	Get(ctx context.Context, docID string) (*DocumentInfo, error)

	// ListAll returns every registered document.
	ListAll(ctx context.Context) ([]*DocumentInfo, error)

	// ListByTags returns documents carrying any of the given tags.
	ListByTags(ctx context.Context, tags []string) ([]*DocumentInfo, error)
}

// LexicalIndex is the BM25 side of hybrid search.
type LexicalIndex interface {
	Search(query string, topK int, filter store.Filter) []store.ScoredChunk
}

// SemanticIndex is the vector side of hybrid search.
type SemanticIndex interface {
	Search(ctx context.Context, query string, topK int, filter store.Filter, threshold float64) ([]store.ScoredChunk, error)
}

// ErrDocumentNotFound is returned when a referenced document id does not
// exist in the registry.
var ErrDocumentNotFound = errors.New("document not found")

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")
