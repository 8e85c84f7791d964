// Package library owns one knowledge base instance: the storage layout,
// the document registry, both chunk indices, and the search orchestrator.
// Multiple independent libraries can coexist in one process; there is no
// package-level state.
package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/librarium-dev/librarium/internal/chunk"
	"github.com/librarium-dev/librarium/internal/config"
	"github.com/librarium-dev/librarium/internal/convert"
	"github.com/librarium-dev/librarium/internal/embed"
	"github.com/librarium-dev/librarium/internal/registry"
	"github.com/librarium-dev/librarium/internal/search"
	"github.com/librarium-dev/librarium/internal/storage"
	"github.com/librarium-dev/librarium/internal/store"
)

// Sentinel errors surfaced to callers.
var (
	ErrDocumentNotFound    = search.ErrDocumentNotFound
	ErrUnsupportedFileType = convert.ErrUnsupportedFileType
)

// Library is a single knowledge base. Mutations (add, remove, tag) are
// serialized; searches run concurrently against consistent index state.
type Library struct {
	cfg       *config.Config
	layout    *storage.Layout
	registry  *registry.Store
	bm25      *store.BM25Index
	vectors   *store.HNSWStore
	vecIndex  *search.VectorIndex
	engine    *search.Engine
	embedder  embed.Embedder
	converter convert.Converter

	mu sync.Mutex // serializes mutations
}

// Open builds a library at cfg.Storage.Root. The BM25 index is in-memory
// and rebuilt from the stored markdown on every open; the vector index is
// restored from its snapshot when one matches the embedder's dimensions,
// otherwise everything is re-embedded. The library takes ownership of the
// embedder and closes it on Close.
func Open(ctx context.Context, cfg *config.Config, embedder embed.Embedder) (*Library, error) {
	layout, err := storage.Open(cfg.Storage.Root)
	if err != nil {
		return nil, err
	}

	reg, err := registry.Open(layout.RegistryPath())
	if err != nil {
		layout.Close()
		return nil, err
	}

	l := &Library{
		cfg:       cfg,
		layout:    layout,
		registry:  reg,
		bm25:      store.NewBM25Index(),
		embedder:  embedder,
		converter: convert.PassthroughConverter{},
	}

	if err := l.openIndices(ctx); err != nil {
		reg.Close()
		layout.Close()
		return nil, err
	}

	l.engine, err = search.NewEngine(l.bm25, l.vecIndex, &registryAdapter{reg}, search.EngineConfig{
		RRFConstant: cfg.Search.RRFConstant,
	})
	if err != nil {
		reg.Close()
		layout.Close()
		return nil, err
	}

	return l, nil
}

func (l *Library) openIndices(ctx context.Context) error {
	vectors, err := store.NewHNSWStore(l.embedder.Dimensions())
	if err != nil {
		return err
	}

	snapshotLoaded := false
	snapshotPath := l.layout.VectorIndexPath()
	if _, statErr := os.Stat(snapshotPath); statErr == nil {
		if loadErr := vectors.Load(snapshotPath); loadErr != nil {
			slog.Warn("vector snapshot unreadable, re-embedding",
				slog.String("path", snapshotPath),
				slog.String("error", loadErr.Error()))
			vectors, err = store.NewHNSWStore(l.embedder.Dimensions())
			if err != nil {
				return err
			}
		} else if vectors.Dimensions() != l.embedder.Dimensions() {
			slog.Warn("vector snapshot dimension mismatch, re-embedding",
				slog.Int("snapshot", vectors.Dimensions()),
				slog.Int("embedder", l.embedder.Dimensions()))
			vectors, err = store.NewHNSWStore(l.embedder.Dimensions())
			if err != nil {
				return err
			}
		} else {
			snapshotLoaded = true
		}
	}

	l.vectors = vectors
	l.vecIndex, err = search.NewVectorIndex(l.embedder, vectors)
	if err != nil {
		return err
	}

	if err := l.reindex(ctx, snapshotLoaded); err != nil {
		return err
	}
	if !snapshotLoaded {
		if err := l.saveVectors(); err != nil {
			return err
		}
	}
	return nil
}

// reindex rebuilds the in-memory BM25 index from stored markdown and,
// when no usable snapshot was found, re-embeds everything.
func (l *Library) reindex(ctx context.Context, vectorsLoaded bool) error {
	docs, err := l.registry.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list registered documents: %w", err)
	}

	for _, doc := range docs {
		text, err := l.layout.ReadMarkdown(doc.ID)
		if err != nil {
			slog.Warn("stored markdown missing, skipping document",
				slog.String("doc_id", doc.ID),
				slog.String("error", err.Error()))
			continue
		}

		chunks, err := l.chunkText(text, doc.ID)
		if err != nil {
			return fmt.Errorf("chunk document %s: %w", doc.ID, err)
		}

		l.bm25.Add(chunks)
		if !vectorsLoaded {
			if err := l.vecIndex.Add(ctx, chunks); err != nil {
				return fmt.Errorf("embed document %s: %w", doc.ID, err)
			}
		}
	}
	return nil
}

func (l *Library) chunkText(text, docID string) ([]*chunk.Chunk, error) {
	params := chunk.Params{Size: l.cfg.Chunking.Size, Overlap: l.cfg.Chunking.Overlap}
	return chunk.Split(text, docID, chunk.Strategy(l.cfg.Chunking.Strategy), params, l.cfg.Chunking.Auto)
}

func (l *Library) saveVectors() error {
	if err := l.vectors.Save(l.layout.VectorIndexPath()); err != nil {
		return fmt.Errorf("persist vector index: %w", err)
	}
	return nil
}

// newDocID returns a 12-hex document id.
func newDocID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// AddDocument converts, stores, registers, and indexes a file. It returns
// the new document id.
func (l *Library) AddDocument(ctx context.Context, path string, tags []string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	text, err := l.converter.Convert(path)
	if err != nil {
		return "", err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read source file: %w", err)
	}

	id := newDocID()
	ext := strings.ToLower(filepath.Ext(path))
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	if err := l.layout.WriteDocument(id, ext, raw, text); err != nil {
		return "", err
	}

	doc := &registry.Document{
		ID:         id,
		Name:       name,
		SourcePath: path,
		NumLines:   len(strings.Split(text, "\n")),
		FileSize:   int64(len(raw)),
		FileType:   ext,
		Tags:       tags,
		TOC:        registry.ExtractTOC(text),
	}
	if err := l.registry.Add(ctx, doc); err != nil {
		_ = l.layout.RemoveDocument(id)
		return "", err
	}

	if err := l.indexDocument(ctx, id, text); err != nil {
		_ = l.registry.Remove(ctx, id)
		_ = l.layout.RemoveDocument(id)
		return "", err
	}

	slog.Info("document added",
		slog.String("doc_id", id),
		slog.String("name", name),
		slog.Int("lines", doc.NumLines))
	return id, nil
}

func (l *Library) indexDocument(ctx context.Context, docID, text string) error {
	chunks, err := l.chunkText(text, docID)
	if err != nil {
		return err
	}

	l.bm25.Add(chunks)
	if err := l.vecIndex.Add(ctx, chunks); err != nil {
		l.bm25.Remove(docID)
		return err
	}
	return l.saveVectors()
}

// RemoveDocument drops a document from the registry, both indices, and
// disk. Removing an unknown id is a no-op.
func (l *Library) RemoveDocument(ctx context.Context, docID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.registry.Remove(ctx, docID); err != nil {
		return err
	}
	l.bm25.Remove(docID)
	if err := l.vecIndex.Remove(ctx, docID); err != nil {
		return err
	}
	if err := l.layout.RemoveDocument(docID); err != nil {
		return err
	}
	return l.saveVectors()
}

// Tag attaches tags to a document.
func (l *Library) Tag(ctx context.Context, docID string, tags []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return translateNotFound(l.registry.AddTags(ctx, docID, tags), docID)
}

// Untag detaches tags from a document.
func (l *Library) Untag(ctx context.Context, docID string, tags []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return translateNotFound(l.registry.RemoveTags(ctx, docID, tags), docID)
}

func translateNotFound(err error, docID string) error {
	if errors.Is(err, registry.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, docID)
	}
	return err
}

// ListTags returns every tag in use.
func (l *Library) ListTags(ctx context.Context) ([]string, error) {
	return l.registry.ListTags(ctx)
}

// ListDocuments returns registered documents, restricted to any of the
// given tags when supplied.
func (l *Library) ListDocuments(ctx context.Context, tags []string) ([]*registry.Document, error) {
	if len(tags) > 0 {
		return l.registry.ListByTags(ctx, tags)
	}
	return l.registry.ListAll(ctx)
}

// Stats summarizes the knowledge base contents.
type Stats struct {
	Documents int `json:"documents"`
	Tags      int `json:"tags"`
	Chunks    int `json:"chunks"`
	Vectors   int `json:"vectors"`
}

// GetStats reports document, tag, chunk, and vector counts.
func (l *Library) GetStats(ctx context.Context) (*Stats, error) {
	docs, err := l.registry.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	tags, err := l.registry.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Documents: len(docs),
		Tags:      len(tags),
		Chunks:    l.bm25.Size(),
		Vectors:   l.vectors.Count(),
	}, nil
}

// SearchDocuments runs a document-level search (contents or names scope).
func (l *Library) SearchDocuments(ctx context.Context, query string, opts search.Options) ([]*search.DocumentHit, error) {
	return l.engine.Search(ctx, query, opts)
}

// SearchChunks runs a contents search returning raw chunk hits.
func (l *Library) SearchChunks(ctx context.Context, query string, opts search.Options) ([]*search.ContentHit, error) {
	return l.engine.SearchChunks(ctx, query, opts)
}

// SearchDocument searches within one document.
func (l *Library) SearchDocument(ctx context.Context, docID, query string, opts search.Options) ([]*search.ContentHit, error) {
	return l.engine.SearchInDocument(ctx, docID, query, opts)
}

// ReadDocument returns the lines [startLine, endLine] of a document's
// markdown. Out-of-range values clamp instead of failing: startLine to 1,
// endLine to the line count; endLine <= 0 means document end. A range
// that is empty after clamping yields an empty string.
func (l *Library) ReadDocument(ctx context.Context, docID string, startLine, endLine int) (string, error) {
	doc, err := l.registry.Get(ctx, docID)
	if err != nil {
		return "", err
	}
	if doc == nil {
		return "", fmt.Errorf("%w: %s", ErrDocumentNotFound, docID)
	}

	text, err := l.layout.ReadMarkdown(docID)
	if err != nil {
		return "", err
	}
	lines := strings.Split(text, "\n")

	if startLine < 1 {
		startLine = 1
	}
	if endLine <= 0 || endLine > len(lines) {
		endLine = len(lines)
	}
	if startLine > endLine {
		return "", nil
	}

	return strings.Join(lines[startLine-1:endLine], "\n"), nil
}

// Close persists the vector index and releases all resources, including
// the embedder.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	if err := l.saveVectors(); err != nil {
		errs = append(errs, err)
	}
	if err := l.vectors.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := l.registry.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := l.embedder.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := l.layout.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// registryAdapter exposes the SQLite registry through the orchestrator's
// narrower contract.
type registryAdapter struct {
	store *registry.Store
}

var _ search.Registry = (*registryAdapter)(nil)

func (a *registryAdapter) Get(ctx context.Context, docID string) (*search.DocumentInfo, error) {
	doc, err := a.store.Get(ctx, docID)
	if err != nil || doc == nil {
		return nil, err
	}
	return toInfo(doc), nil
}

func (a *registryAdapter) ListAll(ctx context.Context) ([]*search.DocumentInfo, error) {
	docs, err := a.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return toInfos(docs), nil
}

func (a *registryAdapter) ListByTags(ctx context.Context, tags []string) ([]*search.DocumentInfo, error) {
	docs, err := a.store.ListByTags(ctx, tags)
	if err != nil {
		return nil, err
	}
	return toInfos(docs), nil
}

func toInfo(doc *registry.Document) *search.DocumentInfo {
	return &search.DocumentInfo{
		ID:       doc.ID,
		Name:     doc.Name,
		NumLines: doc.NumLines,
		Tags:     doc.Tags,
		TOC:      doc.FormatTOC(),
	}
}

func toInfos(docs []*registry.Document) []*search.DocumentInfo {
	infos := make([]*search.DocumentInfo, len(docs))
	for i, d := range docs {
		infos[i] = toInfo(d)
	}
	return infos
}
