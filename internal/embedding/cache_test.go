package embedding

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestCache_GetSet(t *testing.T) {
	c := NewCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float32{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float32{4, 5})
	c.Set("c", []float32{6}) // evicts a
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to remain")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to be present")
	}
}

// countingEmbedder counts inner EmbedBatch texts to verify cache hits skip the provider.
type countingEmbedder struct {
	*MockEmbedder
	embedded int
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.embedded += len(texts)
	return c.MockEmbedder.EmbedBatch(ctx, texts)
}

func TestCached_BatchHitsSkipProvider(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(8)}
	cached := NewCached(inner, 100)
	ctx := context.Background()

	first, err := cached.EmbedBatch(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if inner.embedded != 3 {
		t.Fatalf("first batch embedded %d texts", inner.embedded)
	}
	second, err := cached.EmbedBatch(ctx, []string{"b", "d", "a"})
	if err != nil {
		t.Fatal(err)
	}
	if inner.embedded != 4 {
		t.Errorf("only the miss should hit the provider, embedded=%d", inner.embedded)
	}
	if len(second) != 3 {
		t.Fatalf("got %d vectors", len(second))
	}
	for i, v := range second[0] {
		if v != first[1][i] {
			t.Fatal("cached vector for b differs from original")
		}
	}
}

// Concurrent hits on cached texts exercise the recency-order mutation inside
// Get; run with the race detector.
func TestCached_ConcurrentEmbed(t *testing.T) {
	cached := NewCached(NewMockEmbedder(8), 100)
	ctx := context.Background()

	texts := make([]string, 4)
	for i := range texts {
		texts[i] = fmt.Sprintf("query %d", i)
		if _, err := cached.Embed(ctx, texts[i]); err != nil {
			t.Fatal(err)
		}
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if _, err := cached.Embed(ctx, texts[(g+i)%len(texts)]); err != nil {
					t.Error(err)
					return
				}
			}
		}(g)
	}
	wg.Wait()
}

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder(16)
	ctx := context.Background()
	a1, _ := e.Embed(ctx, "hello")
	a2, _ := e.Embed(ctx, "hello")
	b, _ := e.Embed(ctx, "world")
	for i := range a1 {
		if a1[i] != a2[i] {
			t.Fatal("same text should embed identically")
		}
	}
	same := true
	for i := range a1 {
		if a1[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts should embed differently")
	}
}
