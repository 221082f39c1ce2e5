package namematch

import (
	"fmt"
	"path/filepath"
	"strings"

	"farcomms/internal/textutil"
)

// DefaultMinScore is the lowest score Find accepts unless overridden.
const DefaultMinScore = 40

// Kind identifies which scoring rule produced a match.
type Kind string

const (
	KindFullExact             Kind = "full_exact"
	KindBothExact             Kind = "both_exact"
	KindPartialFirstExactLast Kind = "partial_first_exact_last"
	KindFirstExact            Kind = "first_exact"
	KindLastExact             Kind = "last_exact"
	KindFirstPartial          Kind = "first_partial"
	KindLastPartial           Kind = "last_partial"
	KindFirstMedium           Kind = "first_medium"
	KindLastMedium            Kind = "last_medium"
	KindNone                  Kind = "no_match"
)

const (
	scoreFullExact    = 100
	scoreBothExact    = 90
	scorePartialFirst = 85
	scoreSingleExact  = 80
	scoreLongPrefix   = 60
	scoreMediumPrefix = 40

	minPrefixLen       = 4
	longPrefixLen      = 6
	mediumPrefixMinLen = 5
)

// Match describes the scoring outcome for one candidate.
type Match struct {
	Path        string
	Filename    string // folded base name that was scored
	Score       int
	Specificity int
	Kind        Kind
	Detail      string // matched fragment(s), for logs
}

// Partial reports whether the match is weaker than both names matching exactly.
func (m Match) Partial() bool {
	return m.Score < scoreBothExact
}

// String renders the match the way it is logged.
func (m Match) String() string {
	return fmt.Sprintf("%s via %s:%s (score=%d specificity=%d)", filepath.Base(m.Path), m.Kind, m.Detail, m.Score, m.Specificity)
}

type options struct {
	minScore int
}

// Option customizes Find.
type Option func(*options)

// WithMinScore overrides the minimum accepted score (defaults to 40).
func WithMinScore(score int) Option {
	return func(o *options) {
		o.minScore = score
	}
}

// Tokens splits a free-text name on whitespace and folds each token. Tokens
// that fold to nothing (stray punctuation) are discarded.
func Tokens(name string) []string {
	raw := strings.Fields(name)
	tokens := make([]string, 0, len(raw))
	for _, part := range raw {
		if folded := textutil.AlphaNum(part); folded != "" {
			tokens = append(tokens, folded)
		}
	}
	return tokens
}

// Find scores every candidate against name and returns the best one when its
// score reaches the minimum. The boolean is false when no candidate
// qualifies; the returned Match then carries the best score seen, for logs.
func Find(name string, candidates []string, opts ...Option) (Match, bool) {
	cfg := options{minScore: DefaultMinScore}
	for _, opt := range opts {
		opt(&cfg)
	}

	tokens := Tokens(name)
	if len(tokens) == 0 || len(candidates) == 0 {
		return Match{Kind: KindNone}, false
	}

	best := Match{Kind: KindNone}
	found := false
	for _, path := range candidates {
		m := Score(tokens, filepath.Base(path))
		m.Path = path
		if !found || better(m, best) {
			best = m
			found = true
		}
	}

	if best.Score == 0 || best.Score < cfg.minScore {
		return best, false
	}
	return best, true
}

// better reports whether a strictly beats b on (score, specificity). Equal
// pairs never win, so the earliest candidate is kept.
func better(a, b Match) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Specificity > b.Specificity
}

// Score applies the scoring ladder to one filename. tokens must already be
// folded (see Tokens). Path is left empty.
func Score(tokens []string, filename string) Match {
	clean := textutil.AlphaNum(filename)
	m := Match{Filename: clean, Kind: KindNone, Detail: "none"}
	if len(tokens) == 0 {
		return m
	}

	first := tokens[0]
	var last string
	if len(tokens) > 1 {
		last = tokens[len(tokens)-1]
	}

	full := strings.Join(tokens, "")
	if strings.Contains(clean, full) {
		return m.with(scoreFullExact, len(full), KindFullExact, full)
	}

	if last != "" && strings.Contains(clean, first) && strings.Contains(clean, last) {
		return m.with(scoreBothExact, len(first)+len(last), KindBothExact, first+"+"+last)
	}

	if last != "" && strings.Contains(clean, last) {
		if n := longestPrefix(first, clean); n >= minPrefixLen {
			return m.with(scorePartialFirst, n+len(last), KindPartialFirstExactLast, first[:n]+"+"+last)
		}
	}

	firstHit := strings.Contains(clean, first)
	lastHit := last != "" && strings.Contains(clean, last)
	switch {
	case firstHit && lastHit && len(last) > len(first):
		return m.with(scoreSingleExact, len(last), KindLastExact, last)
	case firstHit:
		return m.with(scoreSingleExact, len(first), KindFirstExact, first)
	case lastHit:
		return m.with(scoreSingleExact, len(last), KindLastExact, last)
	}

	if prefix, ok := prefixHit(first, longPrefixLen, longPrefixLen, clean); ok {
		return m.with(scoreLongPrefix, longPrefixLen, KindFirstPartial, prefix)
	}
	if prefix, ok := prefixHit(last, longPrefixLen, longPrefixLen, clean); ok {
		return m.with(scoreLongPrefix, longPrefixLen, KindLastPartial, prefix)
	}

	if prefix, ok := prefixHit(first, minPrefixLen, mediumPrefixMinLen, clean); ok {
		return m.with(scoreMediumPrefix, minPrefixLen, KindFirstMedium, prefix)
	}
	if prefix, ok := prefixHit(last, minPrefixLen, mediumPrefixMinLen, clean); ok {
		return m.with(scoreMediumPrefix, minPrefixLen, KindLastMedium, prefix)
	}

	return m
}

func (m Match) with(score, specificity int, kind Kind, detail string) Match {
	m.Score = score
	m.Specificity = specificity
	m.Kind = kind
	m.Detail = detail
	return m
}

// longestPrefix returns the length of the longest proper prefix of token
// (at least minPrefixLen long) contained in haystack, or 0.
func longestPrefix(token, haystack string) int {
	for n := len(token) - 1; n >= minPrefixLen; n-- {
		if strings.Contains(haystack, token[:n]) {
			return n
		}
	}
	return 0
}

// prefixHit checks the n-character prefix of token against haystack. The
// token must be at least minLen long.
func prefixHit(token string, n, minLen int, haystack string) (string, bool) {
	if len(token) < minLen || len(token) < n {
		return "", false
	}
	prefix := token[:n]
	return prefix, strings.Contains(haystack, prefix)
}
