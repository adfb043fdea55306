package models

// ThemeSummary is a per-document theme summary. Exactly one of Summary or
// Err is set; a failed per-document synthesis never aborts the aggregation.
type ThemeSummary struct {
	DocID     string         `json:"doc_id"`
	Summary   string         `json:"theme_summary,omitempty"`
	Err       string         `json:"error,omitempty"`
	TopChunks []SearchResult `json:"top_chunks,omitempty"`
}

// GlobalThemeSummary is the cross-document synthesis over top-ranked chunks.
type GlobalThemeSummary struct {
	Summary string `json:"theme_summary"`
}

// ThemeReport is the result of a theme aggregation. An empty PerDocument map
// with a nil Global means no chunks matched the query.
type ThemeReport struct {
	Query       string                  `json:"query"`
	PerDocument map[string]ThemeSummary `json:"themes_by_document"`
	Global      *GlobalThemeSummary     `json:"global,omitempty"`
}

// Empty reports whether the aggregation matched no documents.
func (r *ThemeReport) Empty() bool {
	return len(r.PerDocument) == 0 && r.Global == nil
}
