// Package subtitles parses and writes SRT tracks and realigns cleaned
// transcript text onto an existing track without touching its timing.
//
// # Realignment
//
// A transcript is usually cleaned by an external rewriter that sees only the
// flat text (fillers removed, punctuation fixed, paragraphs added). Realign
// puts that text back on the original cues by word count: each cue consumes
// as many cleaned words as it originally held, in order. Indices and
// timestamps are never changed, only the text payload.
//
// Realign refuses to guess when the two texts differ too much in length
// (ErrAlignmentDrift) or when the cleaned text is empty (ErrEmptyCleanedText);
// callers keep the original track in both cases. A word-retention ratio below
// the configured minimum is reported on the result as LowRetention and never
// blocks output.
//
// # Entry Points
//
// Parse: SRT text to Track.
// Track.Format: Track to SRT text.
// Realign: cleaned text onto a Track.
// CombinePairs: merge consecutive cue pairs into longer cues.
//
// Nothing in this package touches the file system.
package subtitles
