// Package vector provides vector index and similarity search.
package vector

import "context"

// Index stores document embeddings by ID and answers exact nearest-neighbor queries.
//
// Ordering is part of the contract for every implementation: Query results are sorted by
// ascending cosine distance, ties keep insertion order, and undefined (NaN) distances sort last.
// The dimension is fixed at construction when configured, otherwise by the first Upsert.
type Index interface {
	// Upsert stores vec under id. A vector whose length differs from the established dimension
	// fails with *DimensionMismatchError and leaves the index unchanged. Re-upserting an existing
	// id replaces its vector and keeps its insertion position.
	Upsert(ctx context.Context, id string, vec []float32) error
	// Query returns the min(k, Count) closest vectors. An empty index or k <= 0 yields an empty slice.
	Query(ctx context.Context, vec []float32, k int) ([]Neighbor, error)
	// Count returns the number of stored vectors.
	Count(ctx context.Context) (int, error)
	// ListIDs returns all stored IDs in insertion order.
	ListIDs(ctx context.Context) ([]string, error)
	// Type returns the strategy name (see IndexType).
	Type() string
	Close() error
}

// Neighbor is a single query hit. Distance is 1 - cosine similarity, or NaN when the
// similarity is undefined for the pair (zero-norm vector).
type Neighbor struct {
	ID       string
	Distance float64
}
