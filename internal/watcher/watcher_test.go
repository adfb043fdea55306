package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/docsage/internal/chunker"
	"github.com/hyperjump/docsage/internal/embedding"
	"github.com/hyperjump/docsage/internal/extract"
	"github.com/hyperjump/docsage/internal/index"
	"github.com/hyperjump/docsage/internal/ingest"
	"github.com/hyperjump/docsage/internal/storage"
)

func newTestSetup(t *testing.T) (*ingest.Ingestor, *index.ChunkIndex) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "chunks.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	idx, err := index.Open(context.Background(), store, embedding.NewMockEmbedder(64))
	if err != nil {
		t.Fatalf("index.Open() error = %v", err)
	}
	t.Cleanup(func() { idx.Close() })

	ch, err := chunker.NewChunker(500, 100, 1800)
	if err != nil {
		t.Fatalf("NewChunker() error = %v", err)
	}
	return ingest.NewIngestor(idx, extract.NewExtractor(), ch, nil), idx
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestWatcherSyncExisting(t *testing.T) {
	ingestor, idx := newTestSetup(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "existing.txt"), []byte("already here"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "skipped.bin"), []byte("binary"), 0644); err != nil {
		t.Fatal(err)
	}

	w := New(ingestor, []string{dir}, []string{".txt", ".md"}, true, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	w.SyncExisting(ctx)
	if got := idx.Size(); got != 1 {
		t.Errorf("index size after sync = %d, want 1 (filtered extension skipped)", got)
	}
}

func TestWatcherIngestsNewFile(t *testing.T) {
	ingestor, idx := newTestSetup(t)
	dir := t.TempDir()

	w := New(ingestor, []string{dir}, []string{".txt"}, true, nil)
	w.debounce = 50 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "new.txt")
	if err := os.WriteFile(path, []byte("freshly written content"), 0644); err != nil {
		t.Fatal(err)
	}

	if !waitFor(t, 3*time.Second, func() bool { return idx.Size() == 1 }) {
		t.Fatalf("index size = %d, want 1 after watched write", idx.Size())
	}
}

func TestWatcherRemovesDeletedFile(t *testing.T) {
	ingestor, idx := newTestSetup(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "doomed.txt")
	if err := os.WriteFile(path, []byte("to be deleted"), 0644); err != nil {
		t.Fatal(err)
	}

	w := New(ingestor, []string{dir}, []string{".txt"}, true, nil)
	w.debounce = 50 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	w.SyncExisting(ctx)
	if idx.Size() != 1 {
		t.Fatalf("index size after sync = %d, want 1", idx.Size())
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 3*time.Second, func() bool { return idx.Size() == 0 }) {
		t.Fatalf("index size = %d, want 0 after file deletion", idx.Size())
	}
}

func TestWatcherCreatesMissingRoot(t *testing.T) {
	ingestor, _ := newTestSetup(t)
	root := filepath.Join(t.TempDir(), "not-yet")

	w := New(ingestor, []string{root}, nil, true, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	if _, err := os.Stat(root); err != nil {
		t.Errorf("root not created: %v", err)
	}
	dirs := w.Directories()
	if len(dirs) != 1 {
		t.Errorf("Directories() = %v, want the single root", dirs)
	}
}

func TestWatcherMatches(t *testing.T) {
	w := New(nil, nil, []string{".txt", "md"}, true, nil)
	tests := []struct {
		path string
		want bool
	}{
		{"/docs/a.txt", true},
		{"/docs/a.TXT", true},
		{"/docs/b.md", true},
		{"/docs/c.pdf", false},
		{"/docs/noext", false},
	}
	for _, tt := range tests {
		if got := w.matches(tt.path); got != tt.want {
			t.Errorf("matches(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}

	all := New(nil, nil, nil, true, nil)
	if !all.matches("/docs/anything.bin") {
		t.Error("empty extension list must match everything")
	}
}

func TestWatcherStopIdempotent(t *testing.T) {
	ingestor, _ := newTestSetup(t)
	w := New(ingestor, []string{t.TempDir()}, nil, true, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	w.Stop()
	w.Stop()
}
