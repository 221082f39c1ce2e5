package repair

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"farcomms/internal/logging"
	"farcomms/internal/services"
)

// DefaultMaxAttempts bounds the repair loop unless overridden.
const DefaultMaxAttempts = 3

// RewritePrompt instructs a text generator to return corrected JSON only.
const RewritePrompt = "Fix the malformed JSON supplied by the user so that it is valid JSON. " +
	"Keep every key and value that can be recovered. " +
	"Return ONLY the corrected JSON with no Markdown formatting or commentary."

var errNullPayload = errors.New("payload is null")

// Rewriter asks an external text generator for a corrected version of text.
type Rewriter interface {
	Rewrite(ctx context.Context, text string) (string, error)
}

// RewriterFunc adapts a function to the Rewriter interface.
type RewriterFunc func(ctx context.Context, text string) (string, error)

// Rewrite calls f.
func (f RewriterFunc) Rewrite(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

// Stage names the pipeline step an attempt ended in.
type Stage string

const (
	StageDirect     Stage = "direct"
	StageStructural Stage = "structural"
	StageRewrite    Stage = "rewrite"
	StageExhausted  Stage = "exhausted"
)

// Attempt records one pass through the pipeline.
type Attempt struct {
	Number int
	Input  string
	// Stage is where the attempt succeeded, or the last step it reached.
	Stage      Stage
	Parsed     bool
	ParseErr   error
	RewriteErr error
}

// Outcome tags how a Result was produced.
type Outcome string

const (
	OutcomeParsed   Outcome = "parsed"
	OutcomeFallback Outcome = "fallback"
)

// Result is the value Repair settled on plus how it got there.
type Result[T any] struct {
	Value        T
	Attempts     int
	UsedFallback bool
	Outcome      Outcome
	History      []Attempt
}

// Parsed reports whether Value came from the input rather than the fallback.
func (r Result[T]) Parsed() bool {
	return r.Outcome == OutcomeParsed
}

type options struct {
	maxAttempts int
	logger      *slog.Logger
}

// Option customizes Repair.
type Option func(*options)

// WithMaxAttempts overrides the attempt bound (defaults to 3, minimum 1).
func WithMaxAttempts(attempts int) Option {
	return func(o *options) {
		o.maxAttempts = attempts
	}
}

// WithLogger attaches a logger for per-attempt diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Repair parses raw into a T, repairing it as needed, and falls back to
// fallback when every attempt fails. A nil rewriter leaves the text as is
// between attempts. A rewriter error that services.Retryable rejects (a
// missing key, a refused request, a panic) ends rewriting for this call; the
// remaining attempts still run and still count. Repair never panics on string
// input and never returns an error; inspect Result.Outcome to tell a genuine
// parse from the fallback.
func Repair[T any](ctx context.Context, raw string, fallback T, rewriter Rewriter, opts ...Option) Result[T] {
	cfg := options{maxAttempts: DefaultMaxAttempts, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxAttempts < 1 {
		cfg.maxAttempts = 1
	}
	logger := cfg.logger

	history := make([]Attempt, 0, cfg.maxAttempts)
	text := raw
	for n := 1; n <= cfg.maxAttempts; n++ {
		rec := Attempt{Number: n, Input: text, Stage: StageDirect}
		candidate := NormalizeFraming(text)

		value, err := parseAs[T](candidate)
		if err == nil {
			rec.Parsed = true
			history = append(history, rec)
			logger.Debug("json parsed", logging.Int("attempt", n), logging.String("stage", string(StageDirect)))
			return Result[T]{Value: value, Attempts: n, Outcome: OutcomeParsed, History: history}
		}
		rec.ParseErr = err

		rec.Stage = StageStructural
		if value, ok := structuralParse[T](candidate); ok {
			rec.Parsed = true
			history = append(history, rec)
			logger.Debug("json repaired structurally", logging.Int("attempt", n))
			return Result[T]{Value: value, Attempts: n, Outcome: OutcomeParsed, History: history}
		}

		logger.Debug("json repair attempt failed",
			logging.Int("attempt", n),
			logging.Int("max_attempts", cfg.maxAttempts),
			logging.String("error", err.Error()),
			logging.String("payload_snippet", summarizePayloadSnippet(candidate)),
		)

		if n < cfg.maxAttempts {
			rec.Stage = StageRewrite
			rewritten, rerr := rewrite(ctx, rewriter, candidate)
			switch {
			case rerr != nil:
				rec.RewriteErr = rerr
				logger.Debug("json rewrite failed", logging.Int("attempt", n), logging.Error(rerr))
				if rewriter != nil && !services.Retryable(rerr) {
					logging.WarnWithContext(logger, "json rewriter disabled for this call", "json_rewriter_disabled",
						logging.Error(rerr),
						logging.String(logging.FieldErrorHint, "check the llm settings and the model's availability"),
						logging.String(logging.FieldImpact, "remaining attempts run without a rewrite"),
					)
					rewriter = nil
				}
			case strings.TrimSpace(rewritten) == "":
				rec.RewriteErr = errors.New("rewriter returned empty text")
			default:
				text = rewritten
			}
		} else {
			rec.Stage = StageExhausted
		}
		history = append(history, rec)
	}

	logging.WarnWithContext(logger, "json repair exhausted; using fallback", "json_repair_exhausted",
		logging.Int("attempts", cfg.maxAttempts),
		logging.String("payload_snippet", summarizePayloadSnippet(raw)),
		logging.String(logging.FieldErrorHint, "inspect the generator output for truncation"),
		logging.String(logging.FieldImpact, "fallback value used"),
	)
	return Result[T]{
		Value:        fallback,
		Attempts:     cfg.maxAttempts,
		UsedFallback: true,
		Outcome:      OutcomeFallback,
		History:      history,
	}
}

func parseAs[T any](text string) (T, error) {
	var value T
	if err := unmarshalStrict(text, &value); err != nil {
		var zero T
		return zero, err
	}
	return value, nil
}

func unmarshalStrict(text string, target any) error {
	trimmed := bytes.TrimSpace([]byte(text))
	if len(trimmed) == 0 {
		return errors.New("empty payload")
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return errNullPayload
	}
	return json.Unmarshal(trimmed, target)
}

func structuralParse[T any](candidate string) (T, bool) {
	for _, repaired := range structuralCandidates(candidate) {
		if value, err := parseAs[T](repaired); err == nil {
			return value, true
		}
	}
	var zero T
	return zero, false
}

// structuralCandidates returns repaired variants of text, plain first, then
// with typographic quotes replaced by ASCII ones.
func structuralCandidates(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var out []string
	if repaired, ok := structuralRepair(text); ok {
		out = append(out, repaired)
	}
	if swapped := replaceSmartQuotes(text); swapped != text {
		if repaired, ok := structuralRepair(swapped); ok {
			out = append(out, repaired)
		}
	}
	return out
}

// structuralRepair runs jsonrepair over text. The library quotes bare prose
// into a JSON string, so a repair only counts when it yields an object or
// array, or when text already opened like a JSON value.
func structuralRepair(text string) (repaired string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			repaired, ok = "", false
		}
	}()
	out, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return "", false
	}
	if !opensWith(out, "{[") && !opensWith(text, "{[\"") {
		return "", false
	}
	return out, true
}

func opensWith(text, openers string) bool {
	trimmed := strings.TrimSpace(text)
	return trimmed != "" && strings.ContainsRune(openers, rune(trimmed[0]))
}

func rewrite(ctx context.Context, rewriter Rewriter, text string) (out string, err error) {
	if rewriter == nil {
		return text, nil
	}
	defer func() {
		if r := recover(); r != nil {
			out, err = "", fmt.Errorf("rewriter panic: %v", r)
		}
	}()
	return rewriter.Rewrite(ctx, text)
}
