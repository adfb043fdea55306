// Package index provides the chunk index service: embedding-backed storage
// with top-k similarity queries. It owns the process-wide index state that
// the retrieval and theme layers share.
package index

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/docsage/internal/apperr"
	"github.com/hyperjump/docsage/internal/embedding"
	"github.com/hyperjump/docsage/internal/models"
	"github.com/hyperjump/docsage/internal/storage"
	"github.com/hyperjump/docsage/internal/vector"
)

// ChunkIndex stores chunks with their embeddings and answers similarity
// queries. Reads run concurrently; writes are exclusive with each other and
// with reads, so a query never observes a half-added document. Entry ids are
// doc_id + "_" + sequence_index, so re-adding a document with identical
// chunking overwrites rather than duplicates.
type ChunkIndex struct {
	storage  storage.Storage
	embedder embedding.Embedder
	vectors  vector.Index
	logger   *zap.Logger

	mu sync.RWMutex
}

// Option configures a ChunkIndex.
type Option func(*ChunkIndex)

// WithLogger sets a logger for debug events.
func WithLogger(l *zap.Logger) Option {
	return func(x *ChunkIndex) { x.logger = l }
}

// Open builds a ChunkIndex over the given storage and embedder, rebuilding
// the in-memory vector index from the stored embeddings. The reconstructed
// index holds the same entries as the persisted state.
func Open(ctx context.Context, store storage.Storage, embedder embedding.Embedder, opts ...Option) (*ChunkIndex, error) {
	vectors, err := vector.NewMemoryIndex(embedder.Dimensions())
	if err != nil {
		return nil, err
	}
	x := &ChunkIndex{
		storage:  store,
		embedder: embedder,
		vectors:  vectors,
	}
	for _, opt := range opts {
		opt(x)
	}

	n := 0
	err = store.ForEachChunk(ctx, func(c models.Chunk, emb []float32) error {
		n++
		return vectors.Upsert(ctx, []string{c.ID()}, [][]float32{emb})
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidConfiguration, "rebuild vector index", err)
	}
	if x.logger != nil {
		x.logger.Info("chunk index opened", zap.Int("entries", n))
	}
	return x, nil
}

// Add embeds and stores chunks for docID. Embeddings are computed in one
// batched provider call before any state changes; the batch either fully
// lands (storage row plus vector per chunk) or the index is left unchanged.
// An empty chunk slice is a no-op.
func (x *ChunkIndex) Add(ctx context.Context, docID string, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		if c.DocID != docID {
			return apperr.Newf(apperr.KindInvalidArgument, "chunk %d belongs to %q, not %q", i, c.DocID, docID)
		}
		texts[i] = c.Text
		ids[i] = c.ID()
	}

	embeddings, err := x.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return apperr.Wrap(apperr.KindEmbeddingProvider, "embed chunks", err)
	}
	for i, emb := range embeddings {
		if len(emb) != x.vectors.Dimensions() {
			return apperr.Newf(apperr.KindEmbeddingMismatch, "embedding %d has %d dimensions, index expects %d", i, len(emb), x.vectors.Dimensions())
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.storage.UpsertChunks(ctx, chunks, embeddings); err != nil {
		return err
	}
	if err := x.vectors.Upsert(ctx, ids, embeddings); err != nil {
		return err
	}
	if x.logger != nil {
		x.logger.Debug("document indexed", zap.String("doc_id", docID), zap.Int("chunks", len(chunks)))
	}
	return nil
}

// Remove deletes all entries for docID and returns the number removed.
func (x *ChunkIndex) Remove(ctx context.Context, docID string) (int64, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	chunks, err := x.storage.GetChunksByDocID(ctx, docID)
	if err != nil {
		return 0, err
	}
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID()
	}
	if err := x.vectors.Remove(ctx, ids); err != nil {
		return 0, err
	}
	n, err := x.storage.DeleteChunksByDocID(ctx, docID)
	if err != nil {
		return 0, err
	}
	if x.logger != nil {
		x.logger.Debug("document removed", zap.String("doc_id", docID), zap.Int64("chunks", n))
	}
	return n, nil
}

// Query embeds queryText with the same provider used at add time and returns
// the top-k chunks ordered best-first (cosine similarity, higher is better).
// Fails with EmptyIndex when no entries exist and InvalidArgument when
// topK <= 0.
func (x *ChunkIndex) Query(ctx context.Context, queryText string, topK int) ([]models.SearchResult, error) {
	if topK <= 0 {
		return nil, apperr.Newf(apperr.KindInvalidArgument, "top_k must be positive, got %d", topK)
	}
	if x.Size() == 0 {
		return nil, apperr.New(apperr.KindEmptyIndex, "no documents have been indexed")
	}

	queryEmbedding, err := x.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindEmbeddingProvider, "embed query", err)
	}

	x.mu.RLock()
	defer x.mu.RUnlock()
	hits, err := x.vectors.Search(ctx, queryEmbedding, topK)
	if err != nil {
		return nil, err
	}
	results := make([]models.SearchResult, 0, len(hits))
	for _, hit := range hits {
		chunk, err := x.storage.GetChunk(ctx, hit.ID)
		if err != nil {
			// A vector without a row means the two stores diverged.
			return nil, apperr.Wrap(apperr.KindUnknown, "chunk lookup for "+hit.ID, err)
		}
		results = append(results, models.SearchResult{
			Chunk: *chunk,
			Score: hit.Score,
			Rank:  len(results) + 1,
		})
	}
	return results, nil
}

// Size returns the number of indexed chunks.
func (x *ChunkIndex) Size() int {
	return x.vectors.Size()
}

// DocIDs returns the distinct document ids in the index.
func (x *ChunkIndex) DocIDs(ctx context.Context) ([]string, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.storage.ListDocIDs(ctx)
}

// Stats returns document and chunk counts from storage.
func (x *ChunkIndex) Stats(ctx context.Context) (docs, chunks int64, err error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	docs, err = x.storage.CountDocuments(ctx)
	if err != nil {
		return 0, 0, err
	}
	chunks, err = x.storage.CountChunks(ctx)
	if err != nil {
		return 0, 0, err
	}
	return docs, chunks, nil
}

// Close closes the vector index and the embedder. Storage is owned by the
// caller and closed separately.
func (x *ChunkIndex) Close() error {
	if err := x.vectors.Close(); err != nil {
		return err
	}
	return x.embedder.Close()
}
