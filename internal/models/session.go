package models

import "time"

// SearchResult is a single retrieval hit. Score is in the index's native
// metric, ordered best-first by the index; Rank is 1-based in that order.
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// SearchSession is the cached result of the most recent query. At most one
// live session exists per coordinator (most-recent-wins); it is the sole
// basis for export and theme-by-last-query operations.
type SearchSession struct {
	Query     string         `json:"query"`
	Results   []SearchResult `json:"results"`
	Answer    string         `json:"synthesized_answer,omitempty"`
	AnswerErr string         `json:"answer_error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
