// Package sanitize normalizes raw CI log text into the canonical form the
// result parsers and the diagnostics classifier search over: "\n" line
// endings, single-space whitespace runs, printable ASCII only, lower case.
// Unicode whitespace joins a whitespace run; every other non-ASCII rune is
// dropped.
//
// The transformation is a small state machine exposed as a
// golang.org/x/text/transform.Transformer, so large logs are processed in
// fixed-size chunks without buffering the whole body twice.
package sanitize

import (
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/transform"
)

// ChunkSize is the read size used when streaming a log through the sanitizer.
const ChunkSize = 128 * 1024

// Transformer implements transform.Transformer. The only state carried across
// chunk boundaries is a pending carriage return and whether the last emitted
// byte opened a whitespace run.
type Transformer struct {
	pendingCR bool
	inSpace   bool
}

// NewTransformer returns a sanitizing transformer in its initial state.
func NewTransformer() *Transformer {
	return &Transformer{}
}

// Reset implements transform.Transformer.
func (t *Transformer) Reset() {
	t.pendingCR = false
	t.inSpace = false
}

// Transform implements transform.Transformer. Every source rune produces at
// most one destination byte; a carriage return is held until the next byte
// shows whether it was part of "\r\n", and a multi-byte rune split across
// chunks is held back until it is complete.
func (t *Transformer) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		if nDst >= len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}

		if t.pendingCR {
			t.pendingCR = false
			t.inSpace = false
			dst[nDst] = '\n'
			nDst++
			if src[nSrc] == '\n' {
				nSrc++
			}
			continue
		}

		b := src[nSrc]
		if b >= utf8.RuneSelf {
			if !atEOF && !utf8.FullRune(src[nSrc:]) {
				return nDst, nSrc, transform.ErrShortSrc
			}
			r, size := utf8.DecodeRune(src[nSrc:])
			nSrc += size
			if r != utf8.RuneError && unicode.IsSpace(r) {
				t.space(dst, &nDst)
			}
			continue
		}
		nSrc++

		switch {
		case b == '\r':
			t.pendingCR = true
		case b == '\n':
			t.inSpace = false
			dst[nDst] = '\n'
			nDst++
		case b == ' ' || b == '\t' || b == '\v' || b == '\f':
			t.space(dst, &nDst)
		case b < 0x20 || b == 0x7f:
			// dropped; does not interrupt a whitespace run
		default:
			if b >= 'A' && b <= 'Z' {
				b += 'a' - 'A'
			}
			t.inSpace = false
			dst[nDst] = b
			nDst++
		}
	}

	if atEOF && t.pendingCR {
		if nDst >= len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		t.pendingCR = false
		t.inSpace = false
		dst[nDst] = '\n'
		nDst++
	}

	return nDst, nSrc, nil
}

// space emits one space at the start of a whitespace run.
func (t *Transformer) space(dst []byte, nDst *int) {
	if t.inSpace {
		return
	}
	t.inSpace = true
	dst[*nDst] = ' '
	*nDst++
}

// Sanitize returns the canonical form of text. It never fails.
func Sanitize(text string) string {
	if text == "" {
		return ""
	}
	out, err := SanitizeReader(strings.NewReader(text))
	if err != nil {
		// strings.Reader never returns a read error
		return ""
	}
	return out
}

// SanitizeReader streams r through the sanitizer in ChunkSize reads.
func SanitizeReader(r io.Reader) (string, error) {
	var b strings.Builder
	buf := make([]byte, ChunkSize)
	if _, err := io.CopyBuffer(&b, transform.NewReader(r, NewTransformer()), buf); err != nil {
		return "", err
	}
	return b.String(), nil
}
