// Package retrieval coordinates query-time work: top-k lookup against the
// chunk index, answer synthesis with inline citations, and export of the
// most recent search session.
package retrieval

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/docsage/internal/apperr"
	"github.com/hyperjump/docsage/internal/config"
	"github.com/hyperjump/docsage/internal/index"
	"github.com/hyperjump/docsage/internal/models"
	"github.com/hyperjump/docsage/internal/synthesis"
)

// ExportFormat selects the export serialization.
type ExportFormat string

const (
	// ExportCSV is a CSV table with a header row.
	ExportCSV ExportFormat = "csv"
	// ExportText is a human-readable plain-text report.
	ExportText ExportFormat = "txt"
)

// Coordinator runs searches and keeps the single most recent session.
// A new search replaces the previous session even when synthesis failed;
// export and theme-by-last-query always speak about the latest query.
type Coordinator struct {
	index       *index.ChunkIndex
	synthesizer synthesis.Synthesizer
	cfg         config.RetrievalConfig
	logger      *zap.Logger

	mu      sync.Mutex
	session *models.SearchSession
}

// NewCoordinator creates a retrieval coordinator. The synthesizer may be nil,
// in which case searches return raw results without a synthesized answer.
func NewCoordinator(idx *index.ChunkIndex, synthesizer synthesis.Synthesizer, cfg config.RetrievalConfig, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		index:       idx,
		synthesizer: synthesizer,
		cfg:         cfg,
		logger:      logger,
	}
}

// Search runs a top-k query and synthesizes an answer over the hits.
// topK <= 0 selects the configured default; values above the configured
// maximum are clamped, not rejected. A synthesis failure degrades the
// session (AnswerErr set, Answer empty) instead of failing the search.
func (c *Coordinator) Search(ctx context.Context, query string, topK int) (*models.SearchSession, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.New(apperr.KindEmptyQuery, "query must not be empty")
	}
	if topK <= 0 {
		topK = c.cfg.DefaultTopK
	}
	if topK > c.cfg.MaxTopK {
		topK = c.cfg.MaxTopK
	}

	results, err := c.index.Query(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	session := &models.SearchSession{
		Query:     query,
		Results:   results,
		CreatedAt: time.Now().UTC(),
	}
	if len(results) > 0 && c.synthesizer != nil {
		answer, err := c.synthesizer.Complete(ctx, buildAnswerPrompt(query, results))
		if err != nil {
			c.logger.Warn("answer synthesis failed",
				zap.String("query", query),
				zap.Error(err))
			session.AnswerErr = err.Error()
		} else {
			session.Answer = answer
		}
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	c.logger.Debug("search completed",
		zap.String("query", query),
		zap.Int("top_k", topK),
		zap.Int("results", len(results)))
	return session, nil
}

// Session returns the most recent search session, or nil if none exists.
func (c *Coordinator) Session() *models.SearchSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Export serializes the most recent session in the given format and returns
// the payload with a timestamped suggested filename. Fails with
// NoActiveSession when no search has produced results yet.
func (c *Coordinator) Export(format ExportFormat) ([]byte, string, error) {
	session := c.Session()
	if session == nil || len(session.Results) == 0 {
		return nil, "", apperr.New(apperr.KindNoActiveSession, "no search results available for export")
	}

	var data []byte
	var err error
	switch format {
	case ExportCSV:
		data, err = exportCSV(session)
	case ExportText:
		data, err = exportText(session)
	default:
		return nil, "", apperr.Newf(apperr.KindInvalidArgument, "unsupported export format %q", format)
	}
	if err != nil {
		return nil, "", err
	}
	name := fmt.Sprintf("search_results_%s.%s", time.Now().Format("20060102_150405"), format)
	return data, name, nil
}

// buildAnswerPrompt formats the retrieved excerpts with their citation tags
// so the model can cite them back verbatim.
func buildAnswerPrompt(query string, results []models.SearchResult) string {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(r.Chunk.Citation())
		b.WriteString(": ")
		b.WriteString(r.Chunk.Text)
	}
	return fmt.Sprintf(`Based on these document excerpts about '%s', provide a concise answer:

%s

Answer in 2-3 sentences, citing sources like [DocID, Page X].`, query, b.String())
}

func exportCSV(session *models.SearchSession) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"score", "doc_id", "page", "paragraph", "chunk"}); err != nil {
		return nil, fmt.Errorf("failed to write export header: %w", err)
	}
	for _, r := range session.Results {
		record := []string{
			strconv.FormatFloat(r.Score, 'f', 4, 64),
			r.Chunk.DocID,
			strconv.Itoa(r.Chunk.Page),
			strconv.Itoa(r.Chunk.Paragraph),
			r.Chunk.Text,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write export row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush export: %w", err)
	}
	return buf.Bytes(), nil
}

func exportText(session *models.SearchSession) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nResults:\n", session.Query)
	for _, r := range session.Results {
		fmt.Fprintf(&b, "\n---\nScore: %.4f\nDoc: %s | Page: %d | Paragraph: %d\n\n%s\n",
			r.Score, r.Chunk.DocID, r.Chunk.Page, r.Chunk.Paragraph, r.Chunk.Text)
	}
	return []byte(b.String()), nil
}
