package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// AlphaNum lowercases value and strips everything outside [a-z0-9].
// Accented letters are folded to their base letter first.
func AlphaNum(value string) string {
	if value == "" {
		return ""
	}
	folded := foldMarks(value)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	return b.String()
}

func foldMarks(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, value)
	if err != nil {
		return value
	}
	return folded
}

// Words splits text on any run of whitespace. Paragraph breaks count as
// ordinary whitespace.
func Words(text string) []string {
	return strings.Fields(text)
}

// WordCount returns len(Words(text)) without allocating the slice.
func WordCount(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			count++
			inWord = true
		}
	}
	return count
}

// CollapseSpace joins the words of text with single spaces.
func CollapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
