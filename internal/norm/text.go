package norm

import (
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// spaceLike are the no-break variants PDF extractors emit inside amounts
// and between label words.
var spaceLike = runes.Map(func(r rune) rune {
	switch r {
	case '\u00a0', '\u202f', '\u2007', '\u2009':
		return ' '
	}
	return r
})

// CleanText composes the text to NFC (so "ø" from decomposed PDFs matches
// label patterns) and turns no-break spaces into plain spaces.
func CleanText(s string) string {
	out, _, err := transform.String(transform.Chain(norm.NFC, spaceLike), s)
	if err != nil {
		return s
	}
	return out
}
