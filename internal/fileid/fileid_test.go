package fileid

import "testing"

func TestDocID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain filename", "report.pdf", "report.pdf"},
		{"path stripped", "/uploads/2024/report.pdf", "report.pdf"},
		{"spaces replaced", "annual report 2024.docx", "annual_report_2024.docx"},
		{"unsafe characters replaced", "a&b(c).txt", "a_b_c_.txt"},
		{"surrounding whitespace", "  notes.md  ", "notes.md"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DocID(tt.in); got != tt.want {
				t.Errorf("DocID(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDocIDDeterministic(t *testing.T) {
	if DocID("report.pdf") != DocID("report.pdf") {
		t.Error("same name must give the same id")
	}
}

func TestDocIDEmptyFallsBackToUUID(t *testing.T) {
	id1 := DocID("...")
	id2 := DocID("...")
	if id1 == "" || id2 == "" {
		t.Fatal("fallback id must not be empty")
	}
	if id1 == id2 {
		t.Error("fallback ids must be unique per call")
	}
}
