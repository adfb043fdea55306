// Package ingest turns document files into indexed chunks: extract text,
// chunk it, and publish the chunks to the index under a filename-derived
// document id.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/docsage/internal/chunker"
	"github.com/hyperjump/docsage/internal/extract"
	"github.com/hyperjump/docsage/internal/fileid"
	"github.com/hyperjump/docsage/internal/index"
	"github.com/hyperjump/docsage/internal/models"
	"github.com/hyperjump/docsage/pkg/utils"
)

// snippetLength bounds the extracted-text preview in ingest reports.
const snippetLength = 300

// Ingestor ingests documents end to end. Re-ingesting a document id removes
// its previous chunks before adding the new ones, so stale entries from a
// shorter re-chunking cannot survive.
type Ingestor struct {
	index     *index.ChunkIndex
	extractor *extract.Extractor
	chunker   *chunker.Chunker
	logger    *zap.Logger
}

// NewIngestor creates an ingestor over the given index.
func NewIngestor(idx *index.ChunkIndex, extractor *extract.Extractor, ch *chunker.Chunker, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		index:     idx,
		extractor: extractor,
		chunker:   ch,
		logger:    logger,
	}
}

// IngestBytes ingests in-memory file content under a document id derived
// from filename. Used for HTTP uploads, where the file never touches disk.
func (g *Ingestor) IngestBytes(ctx context.Context, filename string, content []byte) (*models.IngestReport, error) {
	docID := fileid.DocID(filename)
	ext := strings.ToLower(filepath.Ext(filename))
	text, err := g.extractor.ExtractBytes(content, ext)
	if err != nil {
		return nil, err
	}
	return g.ingestText(ctx, docID, text)
}

// IngestFile reads and ingests the file at path.
func (g *Ingestor) IngestFile(ctx context.Context, path string) (*models.IngestReport, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}
	text, err := g.extractor.Extract(absPath)
	if err != nil {
		return nil, err
	}
	return g.ingestText(ctx, fileid.DocID(absPath), text)
}

// IngestDirectory walks dir recursively and ingests every regular file with
// a supported extension, skipping the rest. Returns the number of files
// ingested and the first error encountered.
func (g *Ingestor) IngestDirectory(ctx context.Context, dir string) (int, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	n := 0
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == "" || !g.extractor.Supported(ext) {
			return nil
		}
		// Resolve symlinks so only regular files are ingested.
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		if _, ingestErr := g.IngestFile(ctx, path); ingestErr != nil {
			return ingestErr
		}
		n++
		return nil
	})
	return n, err
}

// Remove deletes a document's chunks from the index and returns the count.
func (g *Ingestor) Remove(ctx context.Context, docID string) (int64, error) {
	return g.index.Remove(ctx, docID)
}

func (g *Ingestor) ingestText(ctx context.Context, docID, text string) (*models.IngestReport, error) {
	removed, err := g.index.Remove(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("remove previous chunks: %w", err)
	}
	chunks := g.chunker.Chunk(docID, text)
	if err := g.index.Add(ctx, docID, chunks); err != nil {
		return nil, err
	}
	g.logger.Info("document ingested",
		zap.String("doc_id", docID),
		zap.Int("chunks", len(chunks)),
		zap.Bool("replaced", removed > 0))
	return &models.IngestReport{
		DocID:       docID,
		TotalChunks: len(chunks),
		Snippet:     utils.Truncate(text, snippetLength),
		Replaced:    removed > 0,
		IngestedAt:  time.Now().UTC(),
	}, nil
}
