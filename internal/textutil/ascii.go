// Package textutil prepares arbitrary text for an ASCII font strip.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Replacement stands in for runes with no ASCII form.
const Replacement = '?'

// ASCII folds s to 7-bit ASCII: accented letters lose their marks and
// anything else outside ASCII becomes Replacement.
func ASCII(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return Replacement
		}
		return r
	}, folded)
}

// JoinLines keeps lines[begin:end] and concatenates them without separators.
// A zero end means through the last line. Out of range bounds are clamped.
func JoinLines(lines []string, begin, end int) string {
	if end <= 0 || end > len(lines) {
		end = len(lines)
	}
	if begin < 0 {
		begin = 0
	}
	if begin >= end {
		return ""
	}
	return strings.Join(lines[begin:end], "")
}
