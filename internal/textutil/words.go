package textutil

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// wordPattern is a whole token: an ASCII letter followed by letters or hyphens.
var wordPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z-]+$`)

// Words returns the alphabetic tokens of text in order of appearance,
// preserving case. Text is split on whitespace and punctuation other than
// hyphens; tokens holding digits or non-ASCII letters ("5pm", "café") are
// rejected whole rather than cut down to their ASCII runs.
func Words(text string) []string {
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsSymbol(r) || (unicode.IsPunct(r) && r != '-')
	})
	out := tokens[:0]
	for _, tok := range tokens {
		if !wordPattern.MatchString(tok) {
			continue
		}
		w := strings.TrimRight(tok, "-")
		if len(w) < 2 {
			continue
		}
		out = append(out, w)
	}
	return out
}

// TruncateRunes returns at most n runes of s without splitting a code point.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
