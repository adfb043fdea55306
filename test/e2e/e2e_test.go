package e2e

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/docsage/internal/chunker"
	"github.com/hyperjump/docsage/internal/config"
	"github.com/hyperjump/docsage/internal/embedding"
	"github.com/hyperjump/docsage/internal/extract"
	"github.com/hyperjump/docsage/internal/fileid"
	"github.com/hyperjump/docsage/internal/index"
	"github.com/hyperjump/docsage/internal/ingest"
	"github.com/hyperjump/docsage/internal/retrieval"
	"github.com/hyperjump/docsage/internal/storage"
	"github.com/hyperjump/docsage/internal/synthesis"
	"github.com/hyperjump/docsage/internal/themes"
)

const (
	e2eDimensions = 64
	e2eTopK       = 5
)

type pipeline struct {
	store      storage.Storage
	index      *index.ChunkIndex
	ingestor   *ingest.Ingestor
	retriever  *retrieval.Coordinator
	aggregator *themes.Aggregator
	synth      *synthesis.MockSynthesizer
	cfg        *config.Config
}

func newPipeline(t *testing.T, dir string) *pipeline {
	t.Helper()
	ctx := context.Background()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = filepath.Join(dir, "chunks.db")

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	embedder := embedding.NewMockEmbedder(e2eDimensions)
	idx, err := index.Open(ctx, store, embedder)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })

	ch, err := chunker.NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.Overlap, cfg.Chunking.PageLength)
	if err != nil {
		t.Fatal(err)
	}

	synth := &synthesis.MockSynthesizer{Fn: func(prompt string) string {
		return "synthesized from " + prompt[:min(len(prompt), 40)]
	}}

	logger := zap.NewNop()
	return &pipeline{
		store:      store,
		index:      idx,
		ingestor:   ingest.NewIngestor(idx, extract.NewExtractor(), ch, logger),
		retriever:  retrieval.NewCoordinator(idx, synth, cfg.Retrieval, logger),
		aggregator: themes.NewAggregator(idx, synth, cfg.Themes, logger),
		synth:      synth,
		cfg:        cfg,
	}
}

// writeCorpusFiles writes every corpus document to docDir, cycling through the
// supported file extensions. Returns name -> doc id for the written files.
func writeCorpusFiles(t *testing.T, docDir string, corpus *Corpus) map[string]string {
	t.Helper()
	if err := os.MkdirAll(docDir, 0755); err != nil {
		t.Fatal(err)
	}
	docIDs := make(map[string]string, len(corpus.Documents))
	for i, d := range corpus.Documents {
		ext := SupportedFileExtensions[i%len(SupportedFileExtensions)]
		name := d.Name + ext
		content, err := WriteMinimalFile(ext, d.Content)
		if err != nil {
			t.Fatalf("build %s: %v", name, err)
		}
		if err := os.WriteFile(filepath.Join(docDir, name), content, 0644); err != nil {
			t.Fatal(err)
		}
		docIDs[d.Name] = fileid.DocID(name)
	}
	return docIDs
}

func TestEndToEnd_IngestedFilesAreRetrievable(t *testing.T) {
	dir := t.TempDir()
	p := newPipeline(t, dir)
	ctx := context.Background()

	corpus := BuildCorpus()
	docDir := filepath.Join(dir, "docs")
	docIDs := writeCorpusFiles(t, docDir, corpus)

	n, err := p.ingestor.IngestDirectory(ctx, docDir)
	if err != nil {
		t.Fatalf("ingest directory: %v", err)
	}
	if n != len(corpus.Documents) {
		t.Fatalf("expected %d files ingested, got %d", len(corpus.Documents), n)
	}
	if got := p.index.Size(); got != len(corpus.Documents) {
		t.Fatalf("expected one chunk per document, index has %d", got)
	}

	for _, tc := range corpus.TestCases {
		t.Run(tc.Description, func(t *testing.T) {
			session, err := p.retriever.Search(ctx, tc.Query, e2eTopK)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if len(session.Results) == 0 {
				t.Fatal("no results")
			}
			top := session.Results[0]
			want := docIDs[tc.ExpectedName]
			if top.Chunk.DocID != want {
				t.Errorf("top result doc = %q, want %q (score %.4f)", top.Chunk.DocID, want, top.Score)
			}
			if top.Rank != 1 {
				t.Errorf("top result rank = %d, want 1", top.Rank)
			}
			if !strings.Contains(top.Chunk.Citation(), want) {
				t.Errorf("citation %q does not name doc %q", top.Chunk.Citation(), want)
			}
			if session.Answer == "" {
				t.Error("expected a synthesized answer")
			}
		})
	}
}

func TestEndToEnd_ThemesAndExport(t *testing.T) {
	dir := t.TempDir()
	p := newPipeline(t, dir)
	ctx := context.Background()

	corpus := BuildCorpus()
	docDir := filepath.Join(dir, "docs")
	docIDs := writeCorpusFiles(t, docDir, corpus)
	if _, err := p.ingestor.IngestDirectory(ctx, docDir); err != nil {
		t.Fatal(err)
	}

	target := corpus.Documents[0]
	report, err := p.aggregator.Aggregate(ctx, target.Content)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if report.Empty() {
		t.Fatal("expected a non-empty theme report")
	}
	if _, ok := report.PerDocument[docIDs[target.Name]]; !ok {
		t.Errorf("per-document themes missing %q; have %d entries", docIDs[target.Name], len(report.PerDocument))
	}
	for docID, summary := range report.PerDocument {
		if summary.Err != "" {
			t.Errorf("doc %s: unexpected theme error %q", docID, summary.Err)
		}
		if len(summary.TopChunks) == 0 {
			t.Errorf("doc %s: no supporting chunks", docID)
		}
	}
	if report.Global == nil || report.Global.Summary == "" {
		t.Error("expected a global theme summary")
	}

	if _, err := p.retriever.Search(ctx, target.Content, e2eTopK); err != nil {
		t.Fatal(err)
	}

	csvData, csvName, err := p.retriever.Export(retrieval.ExportCSV)
	if err != nil {
		t.Fatalf("export csv: %v", err)
	}
	if !strings.HasPrefix(string(csvData), "score,doc_id,page,paragraph,chunk") {
		t.Errorf("csv export missing header: %q", firstLine(csvData))
	}
	if !strings.HasPrefix(csvName, "search_results_") || !strings.HasSuffix(csvName, ".csv") {
		t.Errorf("unexpected csv filename %q", csvName)
	}

	txtData, txtName, err := p.retriever.Export(retrieval.ExportText)
	if err != nil {
		t.Fatalf("export txt: %v", err)
	}
	if !strings.Contains(string(txtData), "Query: "+target.Content) {
		t.Error("text export missing query line")
	}
	if !strings.HasSuffix(txtName, ".txt") {
		t.Errorf("unexpected text filename %q", txtName)
	}
}

func TestEndToEnd_RemovedDocumentStopsMatching(t *testing.T) {
	dir := t.TempDir()
	p := newPipeline(t, dir)
	ctx := context.Background()

	corpus := BuildCorpus()
	docDir := filepath.Join(dir, "docs")
	docIDs := writeCorpusFiles(t, docDir, corpus)
	if _, err := p.ingestor.IngestDirectory(ctx, docDir); err != nil {
		t.Fatal(err)
	}

	target := corpus.Documents[3]
	removed, err := p.ingestor.Remove(ctx, docIDs[target.Name])
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed == 0 {
		t.Fatal("expected chunks to be removed")
	}

	session, err := p.retriever.Search(ctx, target.Content, e2eTopK)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range session.Results {
		if r.Chunk.DocID == docIDs[target.Name] {
			t.Errorf("removed document %q still in results", r.Chunk.DocID)
		}
	}
}

func firstLine(data []byte) string {
	s := string(data)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
