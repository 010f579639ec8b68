package vector

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/resumatch/pkg/utils"
)

// MemoryIndex is an in-memory vector index using brute-force cosine search.
// It is the search structure behind BoltIndex and is usable on its own for tests
// and ephemeral runs.
type MemoryIndex struct {
	dimensions int
	ids        []string
	vectors    [][]float32
	norms      []float64
	pos        map[string]int
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index. dimensions 0 lets the first Upsert
// establish the dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions < 0 {
		return nil, fmt.Errorf("dimensions must not be negative")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		ids:        make([]string, 0),
		vectors:    make([][]float32, 0),
		norms:      make([]float64, 0),
		pos:        make(map[string]int),
	}, nil
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string {
	return string(IndexTypeMemory)
}

// Dimensions returns the established dimension, or 0 if none yet.
func (m *MemoryIndex) Dimensions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dimensions
}

// Upsert stores a copy of vec under id.
func (m *MemoryIndex) Upsert(ctx context.Context, id string, vec []float32) error {
	if id == "" {
		return fmt.Errorf("empty id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkLocked(vec); err != nil {
		return err
	}
	m.upsertLocked(id, vec)
	return nil
}

func (m *MemoryIndex) checkLocked(vec []float32) error {
	if len(vec) == 0 {
		return &DimensionMismatchError{Got: 0, Want: m.dimensions}
	}
	return checkDimension(len(vec), m.dimensions)
}

func (m *MemoryIndex) upsertLocked(id string, vec []float32) {
	if m.dimensions == 0 {
		m.dimensions = len(vec)
	}
	cp := make([]float32, len(vec))
	copy(cp, vec)
	if i, ok := m.pos[id]; ok {
		m.vectors[i] = cp
		m.norms[i] = utils.L2Norm(cp)
		return
	}
	m.pos[id] = len(m.ids)
	m.ids = append(m.ids, id)
	m.vectors = append(m.vectors, cp)
	m.norms = append(m.norms, utils.L2Norm(cp))
}

// Query returns the k nearest vectors by cosine distance.
func (m *MemoryIndex) Query(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.ids) == 0 {
		return []Neighbor{}, nil
	}
	if err := checkDimension(len(query), m.dimensions); err != nil {
		return nil, err
	}
	qNorm := utils.L2Norm(query)
	cands := make([]candidate, len(m.ids))
	for i, vec := range m.vectors {
		cands[i] = candidate{
			id:   m.ids[i],
			dist: 1 - cosine(query, vec, qNorm, m.norms[i]),
			seq:  uint64(i),
		}
	}
	return topK(cands, k), nil
}

// Count returns the number of vectors in the index.
func (m *MemoryIndex) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids), nil
}

// ListIDs returns the stored IDs in insertion order.
func (m *MemoryIndex) ListIDs(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.ids...), nil
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
