// Package fileid derives document ids from file names. Ids appear verbatim
// in citation tags, so they stay human readable rather than hashed.
package fileid

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DocID returns the document id for a file path or upload filename: the base
// name with path separators stripped and unsafe characters replaced by
// underscores. A name that sanitizes to nothing gets a random uuid instead.
func DocID(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	id := strings.Trim(b.String(), "._")
	if id == "" {
		return uuid.New().String()
	}
	return id
}
