// Package reconcile wires the matching, alignment, and repair components to
// configuration and logging.
//
// The components themselves are pure functions; Engine adds what a caller in
// a processing pipeline needs around them: config-driven thresholds, a
// correlation id per call, structured logs with stage and speaker fields,
// and a bounded fan-out for matching many speakers at once.
//
// # Entry Points
//
// New: build an Engine from config, a logger, and an optional rewriter.
// NewRewriter: build the OpenRouter rewriter when [llm] is configured.
// Engine.MatchSpeakerFile / Engine.MatchSpeakers: speaker to file matching.
// Engine.RealignTranscript: put cleaned text back onto SRT timings.
// Engine.CombineTranscriptLines: merge consecutive cue pairs.
// Engine.RepairJSON: bounded JSON repair with fallback.
package reconcile
