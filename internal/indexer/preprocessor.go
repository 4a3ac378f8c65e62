package indexer

import (
	"strings"
	"unicode"
)

// Preprocess normalizes extracted page text before chunking. Line endings become "\n" and
// runs of horizontal whitespace inside a line collapse to one space. Whitespace at line
// edges is dropped. Several blank lines collapse to a single paragraph break.
func Preprocess(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var b strings.Builder
	b.Grow(len(text))
	newlines := 0
	pendingSpace := false
	for _, r := range strings.TrimSpace(text) {
		switch {
		case r == '\n':
			pendingSpace = false
			newlines++
		case unicode.IsSpace(r):
			if newlines == 0 {
				pendingSpace = true
			}
		default:
			if newlines > 0 {
				b.WriteString(strings.Repeat("\n", min(newlines, 2)))
				newlines = 0
			} else if pendingSpace {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		}
	}
	return b.String()
}
