package e2e

import (
	"testing"

	"github.com/hyperjump/docsage/internal/chunker"
)

// Corpus content must fit in a single default chunk window so each document
// indexes as exactly one chunk and exact-text queries rank it first.
const maxCorpusContentLen = 400

func TestBuildCorpus_DocumentsAreWellFormed(t *testing.T) {
	c := BuildCorpus()
	if len(c.Documents) == 0 {
		t.Fatal("corpus has no documents")
	}
	seen := make(map[string]bool)
	for _, d := range c.Documents {
		if d.Name == "" {
			t.Error("document with empty name")
		}
		if seen[d.Name] {
			t.Errorf("duplicate document name %q", d.Name)
		}
		seen[d.Name] = true
		if len(d.Content) == 0 || len(d.Content) > maxCorpusContentLen {
			t.Errorf("doc %q: content length %d outside (0, %d]", d.Name, len(d.Content), maxCorpusContentLen)
		}
		if got := chunker.Normalize(d.Content); got != d.Content {
			t.Errorf("doc %q: content is not whitespace-normalized", d.Name)
		}
	}
}

func TestBuildCorpus_TestCasesTargetExistingDocuments(t *testing.T) {
	c := BuildCorpus()
	if len(c.TestCases) == 0 {
		t.Fatal("corpus has no query test cases")
	}
	contentByName := make(map[string]string)
	for _, d := range c.Documents {
		contentByName[d.Name] = d.Content
	}
	for i, tc := range c.TestCases {
		if tc.Query == "" {
			t.Errorf("test case %d: empty query", i)
		}
		content, ok := contentByName[tc.ExpectedName]
		if !ok {
			t.Errorf("test case %d: expected name %q not in corpus", i, tc.ExpectedName)
			continue
		}
		if tc.Query != content {
			t.Errorf("test case %d: query does not match content of %q", i, tc.ExpectedName)
		}
	}
}
