package intent

import (
	"strings"
	"unicode"
)

// fullwidthPunct maps full-width punctuation to its ASCII form so grammar
// patterns only need to spell the half-width variant.
var fullwidthPunct = map[rune]rune{
	'，': ',',
	'。': '.',
	'！': '!',
	'？': '?',
	'：': ':',
	'；': ';',
	'（': '(',
	'）': ')',
	'“': '"',
	'”': '"',
	'‘': '\'',
	'’': '\'',
	'、': ',',
}

// Normalize canonicalizes an utterance before matching: trim, lowercase,
// full-width punctuation to half-width, and whitespace runs collapsed to a
// single space. Chinese text passes through unchanged apart from
// punctuation.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	lastSpace := false
	for _, r := range strings.TrimSpace(text) {
		if repl, ok := fullwidthPunct[r]; ok {
			r = repl
		}
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
			}
			lastSpace = true
			continue
		}
		lastSpace = false
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// stripTrailingPunct removes trailing sentence punctuation left over from
// the transcriber.
func stripTrailingPunct(s string) string {
	return strings.TrimRight(s, ".,!?;: ")
}
