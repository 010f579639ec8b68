package vector

import (
	"context"
	"fmt"
)

// IndexType names a vector index strategy.
type IndexType string

const (
	// IndexTypeIndexed keeps vectors in a bbolt file and searches an in-memory copy.
	IndexTypeIndexed IndexType = "indexed"
	// IndexTypeBruteForce stores one file per vector and scans them all on every query.
	IndexTypeBruteForce IndexType = "bruteforce"
	// IndexTypeMemory is non-persistent.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeQdrant delegates to a Qdrant collection.
	IndexTypeQdrant IndexType = "qdrant"
)

// Options selects and configures an index strategy.
type Options struct {
	Type       string
	Dir        string
	Dimensions int
	Qdrant     QdrantOptions
}

// NewIndex creates the index named by opts.Type. An empty type selects "indexed".
func NewIndex(ctx context.Context, opts Options) (Index, error) {
	var (
		idx Index
		err error
	)
	switch IndexType(opts.Type) {
	case IndexTypeIndexed, "":
		idx, err = NewBoltIndex(opts.Dir, opts.Dimensions)
	case IndexTypeBruteForce:
		idx, err = NewFlatIndex(opts.Dir, opts.Dimensions)
	case IndexTypeMemory:
		idx, err = NewMemoryIndex(opts.Dimensions)
	case IndexTypeQdrant:
		q := opts.Qdrant
		if q.Dimensions == 0 {
			q.Dimensions = opts.Dimensions
		}
		idx, err = NewQdrantIndex(ctx, q)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: indexed, bruteforce, memory, qdrant)", opts.Type)
	}
	if err != nil {
		return nil, err
	}
	return idx, nil
}
