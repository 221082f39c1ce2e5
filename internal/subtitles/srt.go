package subtitles

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"farcomms/internal/textutil"
)

// ErrNoCues is returned by Parse when the content holds no valid cue block.
var ErrNoCues = errors.New("srt: no cues found")

// Segment is a single subtitle cue.
type Segment struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// Words returns the whitespace-delimited words of the cue text.
func (s Segment) Words() []string {
	return textutil.Words(s.Text)
}

// Track is an ordered sequence of cues as they appear in the source.
type Track []Segment

// WordCounts returns the per-cue word counts in track order.
func (t Track) WordCounts() []int {
	counts := make([]int, len(t))
	for i, seg := range t {
		counts[i] = textutil.WordCount(seg.Text)
	}
	return counts
}

// Text joins the text of every cue with single spaces, dropping timing.
func (t Track) Text() string {
	parts := make([]string, 0, len(t))
	for _, seg := range t {
		if text := textutil.CollapseSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// Format renders the track as SRT text.
func (t Track) Format() string {
	var sb strings.Builder
	_, _ = t.WriteTo(&sb)
	return sb.String()
}

// WriteTo writes the track as SRT text to w.
func (t Track) WriteTo(w io.Writer) (int64, error) {
	var written int64
	for i, seg := range t {
		var block strings.Builder
		if i > 0 {
			block.WriteString("\n")
		}
		fmt.Fprintf(&block, "%d\n", seg.Index)
		fmt.Fprintf(&block, "%s --> %s\n", FormatTimestamp(seg.Start), FormatTimestamp(seg.End))
		block.WriteString(seg.Text)
		block.WriteString("\n")
		n, err := io.WriteString(w, block.String())
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("write srt cue %d: %w", seg.Index, err)
		}
	}
	return written, nil
}

var blockSeparator = regexp.MustCompile(`\n[ \t]*\n`)

// Parse reads SRT content into a Track. Blocks that lack a numeric index line
// or a valid timing line are skipped. A block with timing but no text yields
// a cue with empty text.
func Parse(content string) (Track, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimSpace(strings.TrimPrefix(content, "\ufeff"))
	if content == "" {
		return nil, ErrNoCues
	}

	var track Track
	for _, block := range blockSeparator.Split(content, -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		seg, ok := parseBlock(block)
		if !ok {
			continue
		}
		track = append(track, seg)
	}
	if len(track) == 0 {
		return nil, ErrNoCues
	}
	return track, nil
}

func parseBlock(block string) (Segment, bool) {
	lines := strings.Split(block, "\n")
	if len(lines) < 2 {
		return Segment{}, false
	}

	index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return Segment{}, false
	}

	start, end, err := parseTiming(lines[1])
	if err != nil {
		return Segment{}, false
	}

	text := strings.TrimSpace(strings.Join(lines[2:], "\n"))
	return Segment{Index: index, Start: start, End: end, Text: text}, true
}

func parseTiming(line string) (time.Duration, time.Duration, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid timing line %q", line)
	}
	start, err := ParseTimestamp(parts[0])
	if err != nil {
		return 0, 0, err
	}
	// Positioning hints may follow the end timestamp.
	endFields := strings.Fields(parts[1])
	if len(endFields) == 0 {
		return 0, 0, fmt.Errorf("invalid timing line %q", line)
	}
	end, err := ParseTimestamp(endFields[0])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// ParseTimestamp parses an SRT timestamp (HH:MM:SS,mmm). A period is accepted
// in place of the comma.
func ParseTimestamp(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, errors.New("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if hours < 0 || minutes < 0 || seconds < 0 || millis < 0 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond, nil
}

// FormatTimestamp renders d as HH:MM:SS,mmm. Negative durations clamp to zero.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	msTotal := d.Milliseconds()
	hours := msTotal / 3_600_000
	msTotal %= 3_600_000
	minutes := msTotal / 60_000
	msTotal %= 60_000
	secs := msTotal / 1_000
	millis := msTotal % 1_000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
