package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/librarium-dev/librarium/internal/store"
)

const (
	// DefaultTopK is the result count when the caller does not set one.
	DefaultTopK = 10

	// overfetchFactor compensates for multiple chunks of one document
	// collapsing into a single aggregated result.
	overfetchFactor = 3

	// snippetLimit caps the aggregated snippet length in characters.
	snippetLimit = 200
)

// EngineConfig tunes the orchestrator.
type EngineConfig struct {
	// RRFConstant is the fusion smoothing parameter (default 60).
	RRFConstant int
}

// Engine is the query-facing orchestrator. It selects a retrieval
// strategy, resolves tag filters against the registry, and shapes output
// as document-aggregated or raw content hits. Every operation is a pure
// function of current index contents plus arguments; the engine holds no
// session state.
type Engine struct {
	lexical  LexicalIndex
	semantic SemanticIndex
	registry Registry
	rrfK     int
}

// NewEngine creates the orchestrator. All dependencies are required.
func NewEngine(lexical LexicalIndex, semantic SemanticIndex, registry Registry, cfg EngineConfig) (*Engine, error) {
	if lexical == nil {
		return nil, fmt.Errorf("%w: lexical index is required", ErrNilDependency)
	}
	if semantic == nil {
		return nil, fmt.Errorf("%w: semantic index is required", ErrNilDependency)
	}
	if registry == nil {
		return nil, fmt.Errorf("%w: registry is required", ErrNilDependency)
	}
	k := cfg.RRFConstant
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &Engine{
		lexical:  lexical,
		semantic: semantic,
		registry: registry,
		rrfK:     k,
	}, nil
}

// retriever is the closed strategy variant: one implementation per
// retrieval method.
type retriever interface {
	searchChunks(ctx context.Context, query string, topK int, filter store.Filter, threshold float64) ([]store.ScoredChunk, error)
}

type lexicalRetriever struct {
	index LexicalIndex
}

func (r *lexicalRetriever) searchChunks(_ context.Context, query string, topK int, filter store.Filter, _ float64) ([]store.ScoredChunk, error) {
	return r.index.Search(query, topK, filter), nil
}

type vectorRetriever struct {
	index SemanticIndex
}

func (r *vectorRetriever) searchChunks(ctx context.Context, query string, topK int, filter store.Filter, threshold float64) ([]store.ScoredChunk, error) {
	return r.index.Search(ctx, query, topK, filter, threshold)
}

// hybridRetriever runs both indices concurrently and fuses the rankings.
// Either failure fails the whole query: a caller expecting fused
// relevance must not receive a silently inferior ranking.
type hybridRetriever struct {
	lexical  LexicalIndex
	semantic SemanticIndex
	k        int
}

func (r *hybridRetriever) searchChunks(ctx context.Context, query string, topK int, filter store.Filter, threshold float64) ([]store.ScoredChunk, error) {
	var lexResults, vecResults []store.ScoredChunk

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lexResults = r.lexical.Search(query, topK, filter)
		return nil
	})
	g.Go(func() error {
		results, err := r.semantic.Search(gctx, query, topK, filter, threshold)
		if err != nil {
			return err
		}
		vecResults = results
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return ReciprocalRankFusion([][]store.ScoredChunk{lexResults, vecResults}, r.k, topK), nil
}

func (e *Engine) retrieverFor(strategy Strategy) (retriever, error) {
	switch strategy {
	case StrategyBM25:
		return &lexicalRetriever{index: e.lexical}, nil
	case StrategyVector:
		return &vectorRetriever{index: e.semantic}, nil
	case "", StrategyHybrid:
		return &hybridRetriever{lexical: e.lexical, semantic: e.semantic, k: e.rrfK}, nil
	default:
		return nil, fmt.Errorf("unknown search strategy %q", strategy)
	}
}

func normalizeTopK(topK int) int {
	if topK <= 0 {
		return DefaultTopK
	}
	return topK
}

// resolveTagFilter turns a tag list into a document id filter using OR
// semantics. The empty bool reports that the tags matched no document,
// in which case no index query should be issued at all.
func (e *Engine) resolveTagFilter(ctx context.Context, tags []string) (store.Filter, bool, error) {
	if len(tags) == 0 {
		return store.Filter{}, false, nil
	}

	docs, err := e.registry.ListByTags(ctx, tags)
	if err != nil {
		return store.Filter{}, false, fmt.Errorf("resolve tag filter: %w", err)
	}
	if len(docs) == 0 {
		return store.Filter{}, true, nil
	}

	allowed := make(map[string]bool, len(docs))
	for _, d := range docs {
		allowed[d.ID] = true
	}
	return store.Filter{DocIDs: allowed}, false, nil
}

// Search runs a document-level search: names scope scores display names
// directly, contents scope fetches chunk hits through the selected
// strategy and collapses them per document by max score, keeping the top
// chunk's first 200 characters as the snippet.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]*DocumentHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	topK := normalizeTopK(opts.TopK)

	if opts.Scope == ScopeNames {
		return e.searchNames(ctx, query, topK, opts.Tags)
	}

	filter, empty, err := e.resolveTagFilter(ctx, opts.Tags)
	if err != nil {
		return nil, err
	}
	if empty {
		return nil, nil
	}

	r, err := e.retrieverFor(opts.Strategy)
	if err != nil {
		return nil, err
	}

	hits, err := r.searchChunks(ctx, query, topK*overfetchFactor, filter, opts.Threshold)
	if err != nil {
		return nil, err
	}

	return e.aggregate(ctx, hits, topK)
}

// aggregate collapses chunk hits into document hits. Input is sorted by
// score descending, so the first chunk seen per document is its best one
// and document order follows max chunk score.
func (e *Engine) aggregate(ctx context.Context, hits []store.ScoredChunk, topK int) ([]*DocumentHit, error) {
	seen := make(map[string]bool, len(hits))
	results := make([]*DocumentHit, 0, topK)

	for _, hit := range hits {
		docID := hit.Chunk.DocID
		if seen[docID] {
			continue
		}
		seen[docID] = true

		info, err := e.registry.Get(ctx, docID)
		if err != nil {
			return nil, fmt.Errorf("enrich document %s: %w", docID, err)
		}
		if info == nil {
			// Index and registry drifted; skip rather than fail the query.
			slog.Warn("indexed document missing from registry", slog.String("doc_id", docID))
			continue
		}

		results = append(results, &DocumentHit{
			DocID:      docID,
			Name:       info.Name,
			TotalLines: info.NumLines,
			TOC:        info.TOC,
			Tags:       info.Tags,
			Score:      hit.Score,
			Snippet:    truncateSnippet(hit.Chunk.Text),
		})
		if len(results) == topK {
			break
		}
	}

	return results, nil
}

// truncateSnippet caps text at the snippet limit without splitting a rune.
func truncateSnippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetLimit {
		return text
	}
	return string(runes[:snippetLimit])
}

// searchNames scores each candidate document by case-insensitive
// substring match of the query against its display name: an exact full
// match scores 1.0, any other containment 0.5, non-containment is
// excluded.
func (e *Engine) searchNames(ctx context.Context, query string, topK int, tags []string) ([]*DocumentHit, error) {
	var docs []*DocumentInfo
	var err error
	if len(tags) > 0 {
		docs, err = e.registry.ListByTags(ctx, tags)
	} else {
		docs, err = e.registry.ListAll(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	queryLower := strings.ToLower(query)
	results := make([]*DocumentHit, 0, len(docs))
	for _, d := range docs {
		nameLower := strings.ToLower(d.Name)

		var score float64
		switch {
		case nameLower == queryLower:
			score = 1.0
		case strings.Contains(nameLower, queryLower):
			score = 0.5
		default:
			continue
		}

		results = append(results, &DocumentHit{
			DocID:      d.ID,
			Name:       d.Name,
			TotalLines: d.NumLines,
			TOC:        d.TOC,
			Tags:       d.Tags,
			Score:      score,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Name < results[j].Name
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// SearchChunks runs a contents search and returns the raw per-chunk hits
// without document collapsing, each enriched with its document's display
// name.
func (e *Engine) SearchChunks(ctx context.Context, query string, opts Options) ([]*ContentHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	topK := normalizeTopK(opts.TopK)

	filter, empty, err := e.resolveTagFilter(ctx, opts.Tags)
	if err != nil {
		return nil, err
	}
	if empty {
		return nil, nil
	}

	r, err := e.retrieverFor(opts.Strategy)
	if err != nil {
		return nil, err
	}

	hits, err := r.searchChunks(ctx, query, topK, filter, opts.Threshold)
	if err != nil {
		return nil, err
	}

	return e.contentHits(ctx, hits, topK)
}

// SearchInDocument restricts chunk search to one document and always
// returns content-level hits. Fails with ErrDocumentNotFound when the id
// is unknown.
func (e *Engine) SearchInDocument(ctx context.Context, docID, query string, opts Options) ([]*ContentHit, error) {
	info, err := e.registry.Get(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("look up document %s: %w", docID, err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, docID)
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	topK := normalizeTopK(opts.TopK)

	r, err := e.retrieverFor(opts.Strategy)
	if err != nil {
		return nil, err
	}

	hits, err := r.searchChunks(ctx, query, topK, store.Filter{DocID: docID}, opts.Threshold)
	if err != nil {
		return nil, err
	}

	results := make([]*ContentHit, 0, len(hits))
	for _, hit := range hits {
		results = append(results, &ContentHit{
			DocID:     hit.Chunk.DocID,
			Name:      info.Name,
			StartLine: hit.Chunk.StartLine,
			EndLine:   hit.Chunk.EndLine,
			Text:      hit.Chunk.Text,
			Score:     hit.Score,
		})
	}
	return results, nil
}

// contentHits maps scored chunks to content hits, resolving each
// document's name once.
func (e *Engine) contentHits(ctx context.Context, hits []store.ScoredChunk, topK int) ([]*ContentHit, error) {
	names := make(map[string]string)
	results := make([]*ContentHit, 0, len(hits))

	for _, hit := range hits {
		docID := hit.Chunk.DocID
		name, ok := names[docID]
		if !ok {
			info, err := e.registry.Get(ctx, docID)
			if err != nil {
				return nil, fmt.Errorf("enrich document %s: %w", docID, err)
			}
			if info == nil {
				slog.Warn("indexed document missing from registry", slog.String("doc_id", docID))
				names[docID] = ""
				continue
			}
			name = info.Name
			names[docID] = name
		}
		if name == "" {
			continue
		}

		results = append(results, &ContentHit{
			DocID:     docID,
			Name:      name,
			StartLine: hit.Chunk.StartLine,
			EndLine:   hit.Chunk.EndLine,
			Text:      hit.Chunk.Text,
			Score:     hit.Score,
		})
		if len(results) == topK {
			break
		}
	}

	return results, nil
}
