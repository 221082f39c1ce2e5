// Package repair turns free-form model output into a valid JSON value without
// ever failing the caller.
//
// # Pipeline
//
// Repair runs up to max attempts (default 3), stopping at the first success:
//
//  1. Framing: strip a Markdown code fence, wrap a body whose outer braces
//     were cut off, or cut a JSON object out of a prose preamble.
//  2. Direct parse with encoding/json into the caller's target type.
//  3. Structural repair (trailing commas, unescaped or smart quotes,
//     unterminated structures) via github.com/kaptinlin/jsonrepair, then
//     parse again. No external call is made. Prose the library merely
//     quotes into a JSON string does not count.
//  4. If attempts remain, ask the injected Rewriter for a corrected version
//     and start over from step 1 with its output. A rewriter error that is
//     not services.ErrTransient stops further rewrites for the call.
//
// When every attempt fails the caller's fallback is returned with
// UsedFallback set and Attempts equal to the maximum. Steps 1 to 3 are
// deterministic; step 4 is as deterministic as the Rewriter.
//
// The loop imposes no timeout of its own. The context is passed through to
// the Rewriter untouched, and the Rewriter owns cancellation.
//
// # Entry Points
//
// Repair: full pipeline with fallback, returns a tagged Result.
// NormalizeFraming: step 1 on its own, for callers that log the candidate.
package repair
