// Package chunker splits document text into overlapping, positionally
// addressable chunks.
package chunker

import (
	"strings"

	"github.com/hyperjump/docsage/internal/apperr"
	"github.com/hyperjump/docsage/internal/models"
)

// Chunker slides a fixed-size character window across text. Consecutive
// windows overlap by Overlap characters; the raw window spans cover the full
// input, except that the last window may be shorter.
type Chunker struct {
	chunkSize  int
	overlap    int
	pageLength int
}

// NewChunker creates a chunker. chunkSize and pageLength are in characters;
// overlap must satisfy 0 <= overlap < chunkSize so the window always advances.
// Returns an InvalidConfiguration error otherwise.
func NewChunker(chunkSize, overlap, pageLength int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, apperr.Newf(apperr.KindInvalidConfiguration, "chunk_size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, apperr.Newf(apperr.KindInvalidConfiguration, "overlap must be in [0, chunk_size), got %d for chunk_size %d", overlap, chunkSize)
	}
	if pageLength <= 0 {
		return nil, apperr.Newf(apperr.KindInvalidConfiguration, "page_length must be positive, got %d", pageLength)
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap, pageLength: pageLength}, nil
}

// Chunk splits text into chunks for docID. Each chunk's text is
// whitespace-normalized (runs collapsed to a single space, ends trimmed);
// page is derived from the raw window start offset, paragraph is the 1-based
// chunk ordinal, and sequence indexes are contiguous from 0. Empty input
// yields an empty slice.
func (c *Chunker) Chunk(docID, text string) []models.Chunk {
	if len(text) == 0 {
		return nil
	}
	step := c.chunkSize - c.overlap
	chunks := make([]models.Chunk, 0, len(text)/step+1)
	for start := 0; start < len(text); start += step {
		end := start + c.chunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, models.Chunk{
			Text:          Normalize(text[start:end]),
			DocID:         docID,
			Page:          start/c.pageLength + 1,
			Paragraph:     len(chunks) + 1,
			SequenceIndex: len(chunks),
		})
	}
	return chunks
}

// Spans returns the raw [start, end) byte offsets the chunker would produce
// for an input of length n. Exposed so callers can reason about coverage
// without materializing chunk text.
func (c *Chunker) Spans(n int) [][2]int {
	if n == 0 {
		return nil
	}
	step := c.chunkSize - c.overlap
	spans := make([][2]int, 0, n/step+1)
	for start := 0; start < n; start += step {
		end := start + c.chunkSize
		if end > n {
			end = n
		}
		spans = append(spans, [2]int{start, end})
	}
	return spans
}

// Normalize collapses runs of whitespace to a single space and trims the ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
