package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	e := New(KindEmptyQuery, "query cannot be empty")
	want := "empty_query: query cannot be empty"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	e := Wrap(KindEmbeddingProvider, "embed batch", cause)
	if !errors.Is(e, cause) {
		t.Error("wrapped cause should be reachable via errors.Is")
	}
	if KindOf(e) != KindEmbeddingProvider {
		t.Errorf("KindOf = %v, want embedding_provider_error", KindOf(e))
	}
}

func TestWrapPromotesDeadlineToTimeout(t *testing.T) {
	e := Wrap(KindEmbeddingProvider, "embed batch", fmt.Errorf("request: %w", context.DeadlineExceeded))
	if KindOf(e) != KindTimeout {
		t.Errorf("deadline exceeded should surface as timeout, got %v", KindOf(e))
	}
}

func TestKindOfDoubleWrapped(t *testing.T) {
	inner := New(KindEmptyIndex, "no entries")
	outer := fmt.Errorf("query: %w", inner)
	if KindOf(outer) != KindEmptyIndex {
		t.Errorf("KindOf through fmt wrapping = %v, want empty_index", KindOf(outer))
	}
	if !IsKind(outer, KindEmptyIndex) {
		t.Error("IsKind should see through fmt wrapping")
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		kind Kind
		want bool
	}{
		{KindTimeout, true},
		{KindEmbeddingProvider, true},
		{KindSynthesis, true},
		{KindInvalidArgument, false},
		{KindUnsupportedFormat, false},
		{KindNoActiveSession, false},
	}
	for _, c := range cases {
		if got := Retryable(New(c.kind, "x")); got != c.want {
			t.Errorf("Retryable(%v) = %v, want %v", c.kind, got, c.want)
		}
	}
	if Retryable(errors.New("plain")) {
		t.Error("plain errors should not be retryable")
	}
}
