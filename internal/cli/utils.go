// Package cli provides output rendering for the docsage command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hyperjump/docsage/internal/models"
	"github.com/hyperjump/docsage/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch s {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteSession writes a search session to w in the given format.
func WriteSession(w io.Writer, session *models.SearchSession, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, session)
	}
	fmt.Fprintf(w, "\nQuery: %s\n", session.Query)
	if session.Answer != "" {
		fmt.Fprintf(w, "\nAnswer:\n%s\n", session.Answer)
	}
	if session.AnswerErr != "" {
		fmt.Fprintf(w, "\nAnswer unavailable: %s\n", session.AnswerErr)
	}
	fmt.Fprintf(w, "\n%d result(s):\n", len(session.Results))
	for _, r := range session.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f | %s\n", r.Rank, r.Score, r.Chunk.Citation())
		fmt.Fprintf(w, "\n%s\n\n", Truncate(r.Chunk.Text, 200))
	}
	return nil
}

// WriteThemeReport writes a theme report to w in the given format.
// Per-document sections are printed in sorted id order for stable output.
func WriteThemeReport(w io.Writer, report *models.ThemeReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	fmt.Fprintf(w, "\nQuery: %s\n", report.Query)
	if report.Empty() {
		fmt.Fprintln(w, "\nNo matching documents.")
		return nil
	}
	docIDs := make([]string, 0, len(report.PerDocument))
	for id := range report.PerDocument {
		docIDs = append(docIDs, id)
	}
	sort.Strings(docIDs)
	for _, id := range docIDs {
		summary := report.PerDocument[id]
		fmt.Fprintf(w, "\n=== %s ===\n", id)
		if summary.Err != "" {
			fmt.Fprintf(w, "error: %s\n", summary.Err)
			continue
		}
		fmt.Fprintln(w, summary.Summary)
	}
	if report.Global != nil {
		fmt.Fprintf(w, "\n=== Across all documents ===\n%s\n", report.Global.Summary)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Truncate truncates s to maxLen bytes without splitting a rune and appends
// "..." if truncated.
func Truncate(s string, maxLen int) string {
	return utils.Truncate(s, maxLen)
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
