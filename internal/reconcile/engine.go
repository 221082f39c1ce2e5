package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"farcomms/internal/config"
	"farcomms/internal/logging"
	"farcomms/internal/namematch"
	"farcomms/internal/repair"
	"farcomms/internal/services"
	"farcomms/internal/services/llm"
	"farcomms/internal/subtitles"
)

const (
	stageMatch   = "match"
	stageAlign   = "align"
	stageCombine = "combine"
	stageRepair  = "repair"
)

// Engine runs the reconciliation components with shared settings.
type Engine struct {
	cfg      config.Config
	logger   *slog.Logger
	rewriter repair.Rewriter
}

// New builds an Engine. A nil cfg uses config.Default, a nil logger discards
// output, and a nil rewriter runs JSON repair without the rewrite step.
func New(cfg *config.Config, logger *slog.Logger, rewriter repair.Rewriter) *Engine {
	settings := config.Default()
	if cfg != nil {
		settings = *cfg
	}
	return &Engine{
		cfg:      settings,
		logger:   logging.Component(logger, "reconcile"),
		rewriter: rewriter,
	}
}

// NewRewriter returns an LLM-backed rewriter when cfg carries an API key and
// model, and nil otherwise.
func NewRewriter(cfg *config.Config) repair.Rewriter {
	if cfg == nil || !cfg.LLM.Enabled() {
		return nil
	}
	return llm.New(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
}

// begin stamps ctx with a correlation id (unless present), the stage and
// the speaker, and returns the matching logger. An empty speaker keeps the
// caller's.
func (e *Engine) begin(ctx context.Context, stage, speaker string) (context.Context, *slog.Logger) {
	if ctx == nil {
		ctx = context.Background()
	}
	scope := services.Scope{Stage: stage, Speaker: speaker}
	if services.ScopeFrom(ctx).RequestID == "" {
		scope.RequestID = uuid.NewString()
	}
	ctx = services.WithScope(ctx, scope)
	return ctx, logging.WithContext(ctx, e.logger)
}

// MatchSpeakerFile picks the file in candidates that best matches speaker.
// The bool is false when no file scores at or above matching.min_score; the
// returned Match then describes the best candidate seen, if any.
func (e *Engine) MatchSpeakerFile(ctx context.Context, speaker string, candidates []string) (namematch.Match, bool) {
	_, logger := e.begin(ctx, stageMatch, speaker)

	match, ok := namematch.Find(speaker, candidates, namematch.WithMinScore(e.cfg.Matching.MinScore))
	if !ok {
		logging.WarnWithContext(logger, "no file matched speaker", "speaker_match_missing",
			logging.Int("candidates", len(candidates)),
			logging.Int("best_score", match.Score),
			logging.Int("min_score", e.cfg.Matching.MinScore),
			logging.String(logging.FieldErrorHint, "check the speaker spelling against the file names"),
			logging.String(logging.FieldImpact, "speaker left without a file"),
		)
		return match, false
	}

	attrs := []logging.Attr{
		logging.String("file", match.Path),
		logging.String("match_kind", string(match.Kind)),
		logging.Int("score", match.Score),
		logging.Int("specificity", match.Specificity),
		logging.String("detail", match.Detail),
	}
	if match.Partial() {
		attrs = append(attrs, logging.Alert("partial_match"))
	}
	logger.Info("speaker matched", logging.Args(attrs...)...)
	return match, true
}

// MatchSpeakers matches every speaker independently, at most
// matching.parallelism at a time. Speakers without a qualifying file are
// absent from the result. Cancellation stops speakers that have not started.
func (e *Engine) MatchSpeakers(ctx context.Context, speakers []string, candidates []string) map[string]namematch.Match {
	if ctx == nil {
		ctx = context.Background()
	}
	results := make(map[string]namematch.Match, len(speakers))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(max(e.cfg.Matching.Parallelism, 1))
	for _, speaker := range speakers {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			match, ok := e.MatchSpeakerFile(ctx, speaker, candidates)
			if !ok {
				return nil
			}
			mu.Lock()
			results[speaker] = match
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// RealignTranscript realigns cleaned text onto the timings of srtContent and
// returns the rendered SRT. When the content cannot be parsed, the cleaned
// text is empty, or the word counts drift beyond alignment.drift_tolerance,
// it returns srtContent unchanged together with the error, so callers can
// keep the original track.
func (e *Engine) RealignTranscript(ctx context.Context, srtContent, cleaned string) (string, subtitles.Reconstruction, error) {
	_, logger := e.begin(ctx, stageAlign, "")

	track, err := subtitles.Parse(srtContent)
	if err != nil {
		// Blank content is an empty track, which realigns to an empty track.
		if !errors.Is(err, subtitles.ErrNoCues) || strings.TrimSpace(srtContent) != "" {
			return srtContent, subtitles.Reconstruction{}, services.Wrap(services.ErrValidation, stageAlign, "parse", err)
		}
	}

	rec, err := subtitles.Realign(track, cleaned,
		subtitles.WithDriftTolerance(e.cfg.Alignment.DriftTolerance),
		subtitles.WithMinRetention(e.cfg.Alignment.MinRetention),
	)
	if err != nil {
		logging.WarnWithContext(logger, "transcript realignment rejected; keeping original", "alignment_rejected",
			logging.Int("original_words", rec.OriginalWords),
			logging.Int("cleaned_words", rec.CleanedWords),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "compare the cleaned text against the source transcript"),
			logging.String(logging.FieldImpact, "original subtitle track kept"),
		)
		return srtContent, rec, services.Wrap(services.ErrValidation, stageAlign, "realign", err)
	}

	if rec.LowRetention {
		logging.WarnWithContext(logger, "cleaned transcript lost words", "alignment_low_retention",
			logging.Float64("retention", rec.Retention),
			logging.Float64("min_retention", e.cfg.Alignment.MinRetention),
			logging.Int("dropped_cues", rec.Dropped),
			logging.String(logging.FieldErrorHint, "review the cleaning prompt for over-aggressive edits"),
			logging.String(logging.FieldImpact, "realigned track may be missing speech"),
		)
	}
	logger.Info("transcript realigned",
		logging.Int("cues", len(rec.Track)),
		logging.Int("dropped_cues", rec.Dropped),
		logging.String("retention", fmt.Sprintf("%.1f%%", rec.Retention*100)),
		logging.Float64("similarity", rec.Similarity),
	)
	return rec.Track.Format(), rec, nil
}

// CombineTranscriptLines merges consecutive cue pairs of srtContent into one
// cue each and returns the rendered SRT.
func (e *Engine) CombineTranscriptLines(ctx context.Context, srtContent string) (string, error) {
	_, logger := e.begin(ctx, stageCombine, "")

	track, err := subtitles.Parse(srtContent)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, stageCombine, "parse", err)
	}
	combined := subtitles.CombinePairs(track)
	logger.Debug("cue pairs combined", logging.Int("cues_in", len(track)), logging.Int("cues_out", len(combined)))
	return combined.Format(), nil
}

// RepairJSON parses raw into a JSON object, repairing it as needed, and
// returns fallback when every attempt fails. It never returns an error.
func (e *Engine) RepairJSON(ctx context.Context, raw string, fallback map[string]any) repair.Result[map[string]any] {
	ctx, logger := e.begin(ctx, stageRepair, "")

	res := repair.Repair(ctx, raw, fallback, e.rewriter,
		repair.WithMaxAttempts(e.cfg.Repair.MaxAttempts),
		repair.WithLogger(logger),
	)
	if res.Parsed() && res.Attempts > 1 {
		logger.Info("json recovered after rewrite",
			logging.Int("attempts", res.Attempts),
			logging.String("outcome", string(res.Outcome)),
		)
	}
	return res
}
