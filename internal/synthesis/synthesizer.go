// Package synthesis provides the completion capability used to turn
// retrieved excerpts into answers and theme summaries.
package synthesis

import "context"

// Synthesizer turns a prompt into free-text output. Implementations give no
// determinism or latency guarantee beyond the caller-supplied timeout.
type Synthesizer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Close() error
}
