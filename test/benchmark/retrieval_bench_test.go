package benchmark

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/hyperjump/docsage/internal/chunker"
	"github.com/hyperjump/docsage/internal/embedding"
	"github.com/hyperjump/docsage/internal/vector"
)

func BenchmarkChunkerChunk(b *testing.B) {
	c, err := chunker.NewChunker(500, 100, 1800)
	if err != nil {
		b.Fatal(err)
	}
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 400)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Chunk("bench-doc", text)
	}
}

func BenchmarkMemoryIndexSearch(b *testing.B) {
	idx, err := vector.NewMemoryIndex(384)
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	vecs := make([][]float32, 1000)
	ids := make([]string, 1000)
	for i := 0; i < 1000; i++ {
		vecs[i] = make([]float32, 384)
		vecs[i][0] = float32(i) / 1000
		vecs[i][1] = 1
		ids[i] = fmt.Sprintf("doc-%d_0", i)
	}
	if err := idx.Upsert(ctx, ids, vecs); err != nil {
		b.Fatal(err)
	}
	query := make([]float32, 384)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(ctx, query, 10)
	}
}

func BenchmarkMockEmbedderEmbed(b *testing.B) {
	e := embedding.NewMockEmbedder(384)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "benchmark query text for embedding")
	}
}
