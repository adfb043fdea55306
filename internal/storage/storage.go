// Package storage defines the persistence boundary for chunks and their
// embeddings. Load-on-start reconstructs the in-memory vector index to an
// equivalent state from what is stored here.
package storage

import (
	"context"

	"github.com/hyperjump/docsage/internal/models"
)

// Storage persists chunks with their embeddings.
type Storage interface {
	// UpsertChunks stores chunks and embeddings in one transaction,
	// replacing rows with colliding chunk ids. len(embeddings) must equal
	// len(chunks). Either all rows land or none do.
	UpsertChunks(ctx context.Context, chunks []models.Chunk, embeddings [][]float32) error

	// GetChunk returns the chunk with the given id.
	GetChunk(ctx context.Context, id string) (*models.Chunk, error)

	// GetChunksByDocID returns all chunks for a document ordered by sequence index.
	GetChunksByDocID(ctx context.Context, docID string) ([]models.Chunk, error)

	// DeleteChunksByDocID removes all chunks for a document and returns the
	// number removed.
	DeleteChunksByDocID(ctx context.Context, docID string) (int64, error)

	// ForEachChunk streams every stored chunk with its embedding, for index
	// reconstruction on startup. Iteration stops on the first fn error.
	ForEachChunk(ctx context.Context, fn func(chunk models.Chunk, embedding []float32) error) error

	// ListDocIDs returns the distinct document ids.
	ListDocIDs(ctx context.Context) ([]string, error)

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
