// Package themes identifies themes across indexed documents: a wide
// retrieval pass grouped by document, per-document summaries synthesized in
// parallel, and a global cross-document synthesis over the top-ranked chunks.
package themes

import (
	"context"
	"fmt"
	"sort"
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

// Aggregator produces theme reports. Per-document synthesis calls run
// concurrently, each under its own deadline; one document failing or timing
// out surfaces in that document's entry only.
type Aggregator struct {
	index       *index.ChunkIndex
	synthesizer synthesis.Synthesizer
	cfg         config.ThemesConfig
	logger      *zap.Logger
}

// NewAggregator creates a theme aggregator.
func NewAggregator(idx *index.ChunkIndex, synthesizer synthesis.Synthesizer, cfg config.ThemesConfig, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		index:       idx,
		synthesizer: synthesizer,
		cfg:         cfg,
		logger:      logger,
	}
}

// Aggregate runs the theme pipeline for query. It retrieves up to the
// configured ceiling of chunks, groups them by document in rank order, and
// synthesizes per-document and global summaries. A query matching nothing
// returns an empty report, not an error.
func (a *Aggregator) Aggregate(ctx context.Context, query string) (*models.ThemeReport, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.New(apperr.KindEmptyQuery, "query must not be empty")
	}

	results, err := a.index.Query(ctx, query, a.cfg.RetrievalCeiling)
	if err != nil {
		return nil, err
	}

	report := &models.ThemeReport{
		Query:       query,
		PerDocument: make(map[string]models.ThemeSummary),
	}
	if len(results) == 0 {
		return report, nil
	}

	// Group by document, preserving the retrieval rank order within each.
	byDoc := make(map[string][]models.SearchResult)
	var docOrder []string
	for _, r := range results {
		if _, seen := byDoc[r.Chunk.DocID]; !seen {
			docOrder = append(docOrder, r.Chunk.DocID)
		}
		byDoc[r.Chunk.DocID] = append(byDoc[r.Chunk.DocID], r)
	}

	docTimeout := time.Duration(a.cfg.DocTimeoutSeconds) * time.Second
	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, docID := range docOrder {
		wg.Add(1)
		go func(docID string, hits []models.SearchResult) {
			defer wg.Done()
			summary := a.summarizeDocument(ctx, query, docID, hits, docTimeout)
			mu.Lock()
			report.PerDocument[docID] = summary
			mu.Unlock()
		}(docID, byDoc[docID])
	}
	wg.Wait()

	global, err := a.summarizeGlobal(ctx, query, results)
	if err != nil {
		a.logger.Warn("global theme synthesis failed",
			zap.String("query", query),
			zap.Error(err))
		report.Global = &models.GlobalThemeSummary{
			Summary: fmt.Sprintf("Error generating overall themes: %v", err),
		}
	} else {
		report.Global = global
	}
	return report, nil
}

func (a *Aggregator) summarizeDocument(ctx context.Context, query, docID string, hits []models.SearchResult, timeout time.Duration) models.ThemeSummary {
	reported := a.cfg.ReportedChunks
	if reported > len(hits) {
		reported = len(hits)
	}
	summary := models.ThemeSummary{
		DocID:     docID,
		TopChunks: hits[:reported],
	}

	docCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	excerpts := citedExcerpts(hits, a.cfg.PerDocumentChunks)

	out, err := a.synthesizer.Complete(docCtx, buildDocumentPrompt(query, excerpts))
	if err != nil {
		a.logger.Warn("document theme synthesis failed",
			zap.String("doc_id", docID),
			zap.Error(err))
		summary.Err = fmt.Sprintf("Failed to analyze document: %v", apperr.Wrap(apperr.KindSynthesis, "theme synthesis", err))
		return summary
	}
	summary.Summary = out
	return summary
}

func (a *Aggregator) summarizeGlobal(ctx context.Context, query string, results []models.SearchResult) (*models.GlobalThemeSummary, error) {
	sorted := make([]models.SearchResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	out, err := a.synthesizer.Complete(ctx, buildGlobalPrompt(query, citedExcerpts(sorted, a.cfg.GlobalChunks)))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindSynthesis, "global theme synthesis", err)
	}
	return &models.GlobalThemeSummary{Summary: out}, nil
}

// citedExcerpts formats up to limit hits as citation-tagged excerpts so the
// model can ground its document references in the tags it is asked to emit.
func citedExcerpts(hits []models.SearchResult, limit int) []string {
	if limit > len(hits) {
		limit = len(hits)
	}
	excerpts := make([]string, limit)
	for i := 0; i < limit; i++ {
		excerpts[i] = hits[i].Chunk.Citation() + ": " + hits[i].Chunk.Text
	}
	return excerpts
}

func buildDocumentPrompt(query string, texts []string) string {
	return fmt.Sprintf(`Identify the key themes in this document that relate to '%s':

%s

Provide:
1. A theme name
2. A 2-3 sentence summary
3. Key supporting points

Format your response as:
Theme: [theme name]
Summary: [summary]
Support: [bullet points]`, query, strings.Join(texts, "\n\n"))
}

func buildGlobalPrompt(query string, texts []string) string {
	return fmt.Sprintf(`Synthesize the common themes across these documents regarding '%s':

%s

Provide:
1. 2-3 main themes with names
2. For each theme, a summary and supporting document references
3. Format as:

Theme 1: [name]
- Summary: [summary]
- Supported by: [Doc1, Page X], [Doc2, Page Y]

Theme 2: [name]
- ...`, query, strings.Join(texts, "\n\n"))
}
