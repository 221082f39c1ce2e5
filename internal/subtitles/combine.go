package subtitles

import "strings"

// CombinePairs merges every two consecutive cues into one that spans from the
// first cue's start to the second cue's end. Cues are renumbered from 1. With
// an odd number of cues the last one is kept on its own.
func CombinePairs(track Track) Track {
	if len(track) == 0 {
		return Track{}
	}
	combined := make(Track, 0, (len(track)+1)/2)
	for i := 0; i < len(track); i += 2 {
		first := track[i]
		seg := Segment{
			Index: len(combined) + 1,
			Start: first.Start,
			End:   first.End,
			Text:  strings.TrimSpace(first.Text),
		}
		if i+1 < len(track) {
			second := track[i+1]
			seg.End = second.End
			seg.Text = strings.TrimSpace(seg.Text + " " + strings.TrimSpace(second.Text))
		}
		combined = append(combined, seg)
	}
	return combined
}
