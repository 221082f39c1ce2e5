package subtitles

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"farcomms/internal/textutil"
)

const (
	// DefaultDriftTolerance is the largest accepted relative word-count
	// difference between original and cleaned text.
	DefaultDriftTolerance = 0.10
	// DefaultMinRetention is the retention ratio below which a result is
	// flagged as possibly truncated.
	DefaultMinRetention = 0.90
)

var (
	// ErrAlignmentDrift reports that the cleaned text differs too much in
	// length from the original to be realigned safely.
	ErrAlignmentDrift = errors.New("realign: word count drift exceeds tolerance")
	// ErrEmptyCleanedText reports that the cleaned text has no words.
	ErrEmptyCleanedText = errors.New("realign: cleaned text is empty")
)

// DriftError carries the word counts behind an ErrAlignmentDrift failure.
type DriftError struct {
	OriginalWords int
	CleanedWords  int
	Drift         float64
	Tolerance     float64
}

func (e *DriftError) Error() string {
	if e.OriginalWords == 0 {
		return fmt.Sprintf("%v: original track has no words (cleaned=%d)", ErrAlignmentDrift, e.CleanedWords)
	}
	return fmt.Sprintf("%v: original=%d cleaned=%d drift=%.3f tolerance=%.3f",
		ErrAlignmentDrift, e.OriginalWords, e.CleanedWords, e.Drift, e.Tolerance)
}

func (e *DriftError) Unwrap() error { return ErrAlignmentDrift }

// Reconstruction is the outcome of Realign.
type Reconstruction struct {
	Track Track
	// Retention is cleaned words divided by original words. It is 1 when
	// RetentionApplicable is false (empty input track).
	Retention           float64
	RetentionApplicable bool
	// LowRetention is set when Retention falls below the minimum; the track
	// is still usable.
	LowRetention  bool
	OriginalWords int
	CleanedWords  int
	// Dropped counts cues omitted for lack of words.
	Dropped int
	// Similarity is the word-frequency cosine similarity between the original
	// and cleaned text, for diagnostics.
	Similarity float64
}

type alignOptions struct {
	driftTolerance float64
	minRetention   float64
}

// AlignOption customizes Realign.
type AlignOption func(*alignOptions)

// WithDriftTolerance overrides the drift tolerance (defaults to 0.10).
func WithDriftTolerance(tolerance float64) AlignOption {
	return func(o *alignOptions) {
		o.driftTolerance = tolerance
	}
}

// WithMinRetention overrides the minimum retention ratio (defaults to 0.90).
func WithMinRetention(ratio float64) AlignOption {
	return func(o *alignOptions) {
		o.minRetention = ratio
	}
}

// Realign distributes the words of cleaned across the cues of original so
// that every cue receives as many words as it originally held. Cue indices
// and timestamps are copied unchanged, and a cue spread over several lines
// keeps its line breaks at the same word offsets. Words left over after the
// last cue are appended to the last emitted cue.
//
// Cues that held no words, or that get none because the cleaned text ran
// short, are omitted, so the result can hold fewer cues than original;
// Reconstruction.Dropped counts them. The cue count is preserved only when
// every cue has words and the cleaned text reaches the last one.
//
// On error the returned Reconstruction still carries the word counts, and
// callers should keep the original track.
func Realign(original Track, cleaned string, opts ...AlignOption) (Reconstruction, error) {
	cfg := alignOptions{
		driftTolerance: DefaultDriftTolerance,
		minRetention:   DefaultMinRetention,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(original) == 0 {
		return Reconstruction{Track: Track{}, Retention: 1}, nil
	}

	counts := original.WordCounts()
	originalWords := 0
	for _, n := range counts {
		originalWords += n
	}
	words := textutil.Words(cleaned)

	result := Reconstruction{
		OriginalWords:       originalWords,
		CleanedWords:        len(words),
		Retention:           1,
		RetentionApplicable: originalWords > 0,
	}
	if len(words) == 0 {
		return result, ErrEmptyCleanedText
	}
	if originalWords == 0 {
		return result, &DriftError{CleanedWords: len(words), Drift: math.Inf(1), Tolerance: cfg.driftTolerance}
	}

	result.Retention = float64(len(words)) / float64(originalWords)
	result.LowRetention = result.Retention < cfg.minRetention

	drift := math.Abs(float64(originalWords-len(words))) / float64(originalWords)
	if drift > cfg.driftTolerance {
		return result, &DriftError{
			OriginalWords: originalWords,
			CleanedWords:  len(words),
			Drift:         drift,
			Tolerance:     cfg.driftTolerance,
		}
	}

	type placement struct {
		seg      Segment
		from, to int
	}
	placed := make([]placement, 0, len(original))
	cursor := 0
	for i, seg := range original {
		k := counts[i]
		if k == 0 {
			result.Dropped++
			continue
		}
		end := min(cursor+k, len(words))
		if end == cursor {
			result.Dropped++
			continue
		}
		placed = append(placed, placement{seg: seg, from: cursor, to: end})
		cursor = end
	}
	if n := len(placed); n > 0 {
		placed[n-1].to = len(words)
	}

	rebuilt := make(Track, 0, len(placed))
	for _, p := range placed {
		p.seg.Text = layoutLines(words[p.from:p.to], lineWordCounts(p.seg.Text))
		rebuilt = append(rebuilt, p.seg)
	}
	result.Track = rebuilt
	result.Similarity = textutil.WordSimilarity(original.Text(), cleaned)
	return result, nil
}

// lineWordCounts returns the word count of every line of text that has
// words.
func lineWordCounts(text string) []int {
	var counts []int
	for line := range strings.SplitSeq(text, "\n") {
		if n := textutil.WordCount(line); n > 0 {
			counts = append(counts, n)
		}
	}
	return counts
}

// layoutLines joins words into lines holding lineCounts words each. The last
// line takes whatever is left, and lines stop early when words run out.
func layoutLines(words []string, lineCounts []int) string {
	if len(lineCounts) <= 1 {
		return strings.Join(words, " ")
	}
	lines := make([]string, 0, len(lineCounts))
	cursor := 0
	for i, n := range lineCounts {
		if cursor >= len(words) {
			break
		}
		end := min(cursor+n, len(words))
		if i == len(lineCounts)-1 {
			end = len(words)
		}
		lines = append(lines, strings.Join(words[cursor:end], " "))
		cursor = end
	}
	return strings.Join(lines, "\n")
}
