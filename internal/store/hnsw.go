package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	"github.com/librarium-dev/librarium/internal/chunk"
)

// filterOverfetch is how many extra candidates to pull from the graph when
// a document filter is active, since filtering happens after the
// nearest-neighbor search.
const filterOverfetch = 4

// HNSWStore implements VectorStore on a pure Go HNSW graph. Chunks ride
// along as an in-memory metadata sidecar keyed by chunk key, persisted next
// to the graph snapshot.
type HNSWStore struct {
	mu         sync.RWMutex
	graph      *hnsw.Graph[uint64]
	dimensions int

	// ID mapping (chunk key <-> internal graph key).
	idMap   map[string]uint64
	keyMap  map[uint64]string
	chunks  map[string]*chunk.Chunk
	nextKey uint64

	closed bool
}

// hnswSnapshot is the gob-persisted sidecar state.
type hnswSnapshot struct {
	IDMap      map[string]uint64
	Chunks     map[string]*chunk.Chunk
	NextKey    uint64
	Dimensions int
}

// NewHNSWStore creates an empty vector store for vectors of the given
// dimension, using cosine distance.
func NewHNSWStore(dimensions int) (*HNSWStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("vector store: dimensions must be positive, got %d", dimensions)
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25

	return &HNSWStore{
		graph:      graph,
		dimensions: dimensions,
		idMap:      make(map[string]uint64),
		keyMap:     make(map[uint64]string),
		chunks:     make(map[string]*chunk.Chunk),
	}, nil
}

// Upsert inserts or replaces vectors for the given chunks.
func (s *HNSWStore) Upsert(ctx context.Context, chunks []*chunk.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("vector store: chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("vector store is closed")
	}

	for _, v := range vectors {
		if len(v) != s.dimensions {
			return fmt.Errorf("vector store: dimension mismatch: expected %d, got %d", s.dimensions, len(v))
		}
	}

	for i, c := range chunks {
		id := c.Key()

		// Lazy deletion on replace: orphan the old graph node rather than
		// removing it, which trips a coder/hnsw bug on the last node.
		if existing, ok := s.idMap[id]; ok {
			delete(s.keyMap, existing)
			delete(s.idMap, id)
		}

		key := s.nextKey
		s.nextKey++

		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		normalizeInPlace(vec)

		s.graph.Add(hnsw.MakeNode(key, vec))

		s.idMap[id] = key
		s.keyMap[key] = id
		s.chunks[id] = c
	}

	return nil
}

// DeleteDoc removes all vectors whose chunk belongs to docID.
func (s *HNSWStore) DeleteDoc(ctx context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("vector store is closed")
	}

	for id, c := range s.chunks {
		if c.DocID != docID {
			continue
		}
		if key, ok := s.idMap[id]; ok {
			delete(s.keyMap, key)
			delete(s.idMap, id)
		}
		delete(s.chunks, id)
	}

	return nil
}

// Query returns up to k chunks nearest to the query vector.
func (s *HNSWStore) Query(ctx context.Context, vector []float32, k int, filter Filter) ([]ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("vector store is closed")
	}
	if len(vector) != s.dimensions {
		return nil, fmt.Errorf("vector store: dimension mismatch: expected %d, got %d", s.dimensions, len(vector))
	}
	if s.graph.Len() == 0 || k <= 0 {
		return []ScoredChunk{}, nil
	}

	query := make([]float32, len(vector))
	copy(query, vector)
	normalizeInPlace(query)

	// Lazy-deleted orphans still come back from the graph search, so fetch
	// enough extras to cover every orphan that could crowd out a live node.
	fetch := k
	if filter.Restricted() {
		fetch = k * filterOverfetch
	}
	fetch += s.graph.Len() - len(s.idMap)

	nodes := s.graph.Search(query, fetch)

	results := make([]ScoredChunk, 0, k)
	for _, node := range nodes {
		id, ok := s.keyMap[node.Key]
		if !ok {
			// Lazy-deleted orphan still present in the graph.
			continue
		}
		c := s.chunks[id]
		if c == nil || !filter.Match(c.DocID) {
			continue
		}

		distance := s.graph.Distance(query, node.Value)
		results = append(results, ScoredChunk{
			Chunk: c,
			Score: similarityFromDistance(distance),
		})
		if len(results) == k {
			break
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results, nil
}

// Dimensions returns the vector dimension the store was built with.
func (s *HNSWStore) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimensions
}

// Count returns the number of live vectors.
func (s *HNSWStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.idMap)
}

// Save persists the graph and the metadata sidecar atomically
// (temp file + rename).
func (s *HNSWStore) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("vector store is closed")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	if err := s.graph.Export(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("export graph: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename index file: %w", err)
	}

	return s.saveSnapshot(path + ".meta")
}

func (s *HNSWStore) saveSnapshot(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}

	snap := hnswSnapshot{
		IDMap:      s.idMap,
		Chunks:     s.chunks,
		NextKey:    s.nextKey,
		Dimensions: s.dimensions,
	}
	if err := gob.NewEncoder(f).Encode(snap); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close snapshot file: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load restores the graph and metadata sidecar from disk.
func (s *HNSWStore) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("vector store is closed")
	}

	metaFile, err := os.Open(path + ".meta")
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer metaFile.Close()

	var snap hnswSnapshot
	if err := gob.NewDecoder(metaFile).Decode(&snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	// coder/hnsw Import requires an io.ByteReader.
	if err := s.graph.Import(bufio.NewReader(f)); err != nil {
		return fmt.Errorf("import graph: %w", err)
	}

	s.idMap = snap.IDMap
	s.chunks = snap.Chunks
	s.nextKey = snap.NextKey
	s.dimensions = snap.Dimensions
	s.keyMap = make(map[uint64]string, len(snap.IDMap))
	for id, key := range snap.IDMap {
		s.keyMap[key] = id
	}

	return nil
}

// Close releases resources.
func (s *HNSWStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.graph = nil
	return nil
}

// Verify interface implementation.
var _ VectorStore = (*HNSWStore)(nil)

// normalizeInPlace scales a vector to unit length.
func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

// similarityFromDistance converts cosine distance (0..2) to a similarity
// score in [0, 1], higher meaning more similar.
func similarityFromDistance(distance float32) float64 {
	return 1.0 - float64(distance)/2.0
}
