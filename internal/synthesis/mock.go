package synthesis

import (
	"context"
	"sync"
)

// MockSynthesizer is a test double. Fn, when set, computes the completion;
// otherwise Complete echoes a fixed answer. Err, when set, is returned for
// every call. Safe for concurrent use (theme aggregation fans out).
type MockSynthesizer struct {
	Fn     func(prompt string) string
	Answer string
	Err    error

	mu    sync.Mutex
	calls []string
}

// Complete records the prompt and returns the configured answer or error.
func (m *MockSynthesizer) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, prompt)
	m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Fn != nil {
		return m.Fn(prompt), nil
	}
	return m.Answer, nil
}

// Calls returns a copy of the prompts seen so far.
func (m *MockSynthesizer) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Close is a no-op.
func (m *MockSynthesizer) Close() error {
	return nil
}

