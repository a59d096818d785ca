// Package patterns masks the volatile parts of failure messages and stack
// traces: addresses, hashes, paths and numbers.
//
// Compact keeps what a reader needs (file names, line numbers) and only
// shortens. Signature is aggressive, so that failures differing only in
// volatile details share one key.
package patterns

import (
	"regexp"
	"strings"
)

var (
	timestampPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}([.,]\d+)?(Z|[+-]\d{2}:?\d{2})?`)
	uuidPattern      = regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`)
	hexAddrPattern   = regexp.MustCompile(`\b0x[0-9a-fA-F]+\b`)
	// Git SHAs, container and block IDs.
	longHashPattern = regexp.MustCompile(`\b[a-f0-9]{12,}\b`)
	numberPattern   = regexp.MustCompile(`\b\d+(\.\d+)?\b`)
	// Absolute paths of three or more directories; the file name and
	// optional line number are captured.
	longPathPattern   = regexp.MustCompile(`/(?:[^/\s]+/){3,}([^/\s:()]+(?::\d+)?)`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Compact shortens s for display: leading timestamps are dropped, addresses
// and hashes masked, and long paths cut to their file name.
func Compact(s string) string {
	if loc := timestampPattern.FindStringIndex(s); loc != nil && loc[0] < 5 {
		s = s[loc[1]:]
	}
	s = uuidPattern.ReplaceAllString(s, "<UUID>")
	s = hexAddrPattern.ReplaceAllString(s, "<HEX>")
	s = longPathPattern.ReplaceAllString(s, ".../$1")
	s = longHashPattern.ReplaceAllString(s, "<HASH>")
	return collapse(s)
}

// Signature reduces s to a grouping key. Numbers are masked too, so line
// numbers and durations do not split a group.
func Signature(s string) string {
	s = timestampPattern.ReplaceAllString(s, "[TIMESTAMP]")
	s = uuidPattern.ReplaceAllString(s, "[UUID]")
	s = hexAddrPattern.ReplaceAllString(s, "[HEX]")
	s = longPathPattern.ReplaceAllString(s, "[PATH]")
	s = longHashPattern.ReplaceAllString(s, "[HASH]")
	s = numberPattern.ReplaceAllString(s, "[NUM]")
	return collapse(s)
}

func collapse(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}
