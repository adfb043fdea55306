// Package embedding provides the embedding-provider capability: text in,
// fixed-dimension vectors out. Vectors must be dimensionally consistent
// across calls for the lifetime of an index.
package embedding

import "context"

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
