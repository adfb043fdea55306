// Package models defines core data structures for chunks, search sessions, and theme reports.
package models

import (
	"fmt"
	"time"
)

// Chunk is a bounded, positionally tagged span of document text, the unit of
// indexing and citation. Chunks are created by the chunker and never mutated.
type Chunk struct {
	Text          string `json:"text"`
	DocID         string `json:"doc_id"`
	Page          int    `json:"page"`
	Paragraph     int    `json:"paragraph"`
	SequenceIndex int    `json:"sequence_index"`
}

// ID returns the deterministic index id for the chunk. Re-adding the same
// document with identical chunking produces colliding ids, which the index
// resolves by overwriting (idempotent re-ingestion). Re-adding with fewer
// chunks leaves stale entries unless the document is removed first.
func (c *Chunk) ID() string {
	return fmt.Sprintf("%s_%d", c.DocID, c.SequenceIndex)
}

// Citation returns the citation tag used to ground synthesized answers,
// e.g. "[report.pdf, Page 2, Para 7]".
func (c *Chunk) Citation() string {
	return fmt.Sprintf("[%s, Page %d, Para %d]", c.DocID, c.Page, c.Paragraph)
}

// IngestReport summarizes a completed ingestion.
type IngestReport struct {
	DocID       string    `json:"doc_id"`
	TotalChunks int       `json:"total_chunks"`
	Snippet     string    `json:"extracted_text_snippet"`
	Replaced    bool      `json:"replaced"`
	IngestedAt  time.Time `json:"ingested_at"`
}
