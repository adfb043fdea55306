// Package vector provides vector storage and similarity search over chunk
// embeddings.
package vector

import "context"

// Index defines vector storage and similarity search. Implementations order
// search results best-first in their native metric and document its
// direction; entries are keyed by id and an upsert with a colliding id
// overwrites the previous vector.
type Index interface {
	Upsert(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*Result, error)
	Remove(ctx context.Context, ids []string) error
	Size() int
	Dimensions() int
	Close() error
}

// Result is a single vector search hit. ID is the chunk id.
type Result struct {
	ID    string
	Score float64
}
