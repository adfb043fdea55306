package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/docsage/internal/apperr"
	"github.com/hyperjump/docsage/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "chunks.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testChunks(docID string, n int) ([]models.Chunk, [][]float32) {
	chunks := make([]models.Chunk, n)
	embeddings := make([][]float32, n)
	for i := range chunks {
		chunks[i] = models.Chunk{
			Text:          "chunk text",
			DocID:         docID,
			Page:          1,
			Paragraph:     i + 1,
			SequenceIndex: i,
		}
		embeddings[i] = []float32{float32(i), 1, 2}
	}
	return chunks, embeddings
}

func TestUpsertAndGetChunks(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	chunks, embeddings := testChunks("doc1", 3)
	if err := s.UpsertChunks(ctx, chunks, embeddings); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetChunksByDocID(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d chunks", len(got))
	}
	for i, c := range got {
		if c.SequenceIndex != i {
			t.Errorf("chunk %d out of order: seq=%d", i, c.SequenceIndex)
		}
		if c.Paragraph != i+1 {
			t.Errorf("chunk %d paragraph=%d", i, c.Paragraph)
		}
	}

	one, err := s.GetChunk(ctx, "doc1_1")
	if err != nil {
		t.Fatal(err)
	}
	if one.DocID != "doc1" || one.SequenceIndex != 1 {
		t.Errorf("GetChunk: %+v", one)
	}
}

func TestGetChunk_NotFound(t *testing.T) {
	s := newTestStorage(t)
	_, err := s.GetChunk(context.Background(), "nope_0")
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("want not_found, got %v", err)
	}
}

func TestUpsertChunks_CollidingIDsReplace(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	chunks, embeddings := testChunks("doc1", 2)
	if err := s.UpsertChunks(ctx, chunks, embeddings); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertChunks(ctx, chunks, embeddings); err != nil {
		t.Fatal(err)
	}
	n, err := s.CountChunks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("re-upsert should not duplicate: count=%d", n)
	}
}

func TestUpsertChunks_LengthMismatch(t *testing.T) {
	s := newTestStorage(t)
	chunks, _ := testChunks("doc1", 2)
	err := s.UpsertChunks(context.Background(), chunks, [][]float32{{1}})
	if !apperr.IsKind(err, apperr.KindInvalidArgument) {
		t.Errorf("want invalid_argument, got %v", err)
	}
}

func TestDeleteChunksByDocID(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	c1, e1 := testChunks("doc1", 3)
	c2, e2 := testChunks("doc2", 2)
	if err := s.UpsertChunks(ctx, c1, e1); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertChunks(ctx, c2, e2); err != nil {
		t.Fatal(err)
	}

	n, err := s.DeleteChunksByDocID(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("deleted %d rows, want 3", n)
	}
	ids, err := s.ListDocIDs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != "doc2" {
		t.Errorf("remaining docs: %v", ids)
	}
}

func TestForEachChunk_RoundTripsEmbeddings(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	chunks, embeddings := testChunks("doc1", 2)
	embeddings[0] = []float32{0.25, -1.5, 3}
	if err := s.UpsertChunks(ctx, chunks, embeddings); err != nil {
		t.Fatal(err)
	}

	seen := map[string][]float32{}
	err := s.ForEachChunk(ctx, func(c models.Chunk, emb []float32) error {
		seen[c.ID()] = emb
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 {
		t.Fatalf("saw %d chunks", len(seen))
	}
	got := seen["doc1_0"]
	want := []float32{0.25, -1.5, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("embedding[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestCounts(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	c1, e1 := testChunks("a", 2)
	c2, e2 := testChunks("b", 3)
	_ = s.UpsertChunks(ctx, c1, e1)
	_ = s.UpsertChunks(ctx, c2, e2)

	docs, err := s.CountDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if docs != 2 {
		t.Errorf("CountDocuments = %d", docs)
	}
	chunks, err := s.CountChunks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if chunks != 5 {
		t.Errorf("CountChunks = %d", chunks)
	}
}
