package vector

import (
	"context"
	"sort"
	"sync"

	"github.com/hyperjump/docsage/internal/apperr"
	"github.com/hyperjump/docsage/pkg/utils"
)

// MemoryIndex is an in-memory brute-force index. Vectors are L2-normalized
// on upsert, so scores are cosine similarities and higher is better.
// Suitable for the data volumes this service targets (tens of thousands of
// chunks); persistence is the storage layer's job, the index is rebuilt from
// stored embeddings on open.
type MemoryIndex struct {
	dimensions int
	ids        []string
	vectors    [][]float32
	byID       map[string]int
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, apperr.Newf(apperr.KindInvalidConfiguration, "dimensions must be positive, got %d", dimensions)
	}
	return &MemoryIndex{
		dimensions: dimensions,
		byID:       make(map[string]int),
	}, nil
}

// Upsert stores vectors under the given ids. A colliding id overwrites the
// existing vector in place, so re-adding a document with identical chunking
// leaves exactly one entry per chunk. The whole batch is validated before
// anything is written; a dimension mismatch leaves the index unchanged.
func (m *MemoryIndex) Upsert(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return apperr.Newf(apperr.KindInvalidArgument, "ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}
	for _, v := range vectors {
		if len(v) != m.dimensions {
			return apperr.Newf(apperr.KindEmbeddingMismatch, "vector dimension mismatch: got %d, expected %d", len(v), m.dimensions)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range ids {
		vec := make([]float32, m.dimensions)
		copy(vec, vectors[i])
		utils.NormalizeL2(vec)
		if pos, ok := m.byID[id]; ok {
			m.vectors[pos] = vec
			continue
		}
		m.byID[id] = len(m.ids)
		m.ids = append(m.ids, id)
		m.vectors = append(m.vectors, vec)
	}
	return nil
}

// Search returns the top-k entries by cosine similarity, best first.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]*Result, error) {
	if len(query) != m.dimensions {
		return nil, apperr.Newf(apperr.KindEmbeddingMismatch, "query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	if k <= 0 {
		return nil, apperr.Newf(apperr.KindInvalidArgument, "k must be positive, got %d", k)
	}
	q := make([]float32, m.dimensions)
	copy(q, query)
	utils.NormalizeL2(q)

	m.mu.RLock()
	defer m.mu.RUnlock()
	scored := make([]*Result, len(m.ids))
	for i, vec := range m.vectors {
		var dot float64
		for j := 0; j < m.dimensions; j++ {
			dot += float64(q[j] * vec[j])
		}
		scored[i] = &Result{ID: m.ids[i], Score: dot}
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// Remove deletes the entries with the given ids. Unknown ids are ignored.
func (m *MemoryIndex) Remove(ctx context.Context, ids []string) error {
	removeSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		removeSet[id] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	newIDs := m.ids[:0]
	newVectors := m.vectors[:0]
	for i, id := range m.ids {
		if removeSet[id] {
			delete(m.byID, id)
			continue
		}
		newIDs = append(newIDs, id)
		newVectors = append(newVectors, m.vectors[i])
	}
	m.ids = newIDs
	m.vectors = newVectors
	for i, id := range m.ids {
		m.byID[id] = i
	}
	return nil
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Dimensions returns the index dimension.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
