// Package utils provides small shared helpers for text, vector math, and
// logger construction.
package utils

import "unicode/utf8"

// Truncate returns s cut to at most maxLen bytes with "..." appended when
// anything was cut. The cut never splits a UTF-8 sequence; the result may be
// up to three bytes shorter than maxLen. Non-positive maxLen returns s as is.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
