package logging

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

const consoleTimeLayout = "2006-01-02 15:04:05.000"

// fieldOrder lists the keys printed right after the message, in this order.
// Other keys follow in the order they were added.
var fieldOrder = []string{
	FieldEventType,
	FieldAlert,
	"match_kind",
	"score",
	"file",
	"retention",
	"dropped_cues",
	"attempts",
	"outcome",
	"error",
	FieldErrorHint,
	FieldImpact,
}

// debugFields are only printed when the logger runs at debug level.
var debugFields = map[string]bool{
	FieldCorrelationID: true,
	"payload_snippet":  true,
	"specificity":      true,
	"similarity":       true,
}

type field struct {
	key   string
	value slog.Value
}

// consoleHandler writes one line per record:
//
//	2026-01-02 15:04:05.000 INFO [reconcile] Jane Doe (match): speaker matched match_kind=full_exact score=100
//
// Component, speaker and stage move into the header; the rest become
// key=value pairs.
type consoleHandler struct {
	mu         *sync.Mutex
	w          io.Writer
	level      slog.Leveler
	withCaller bool
	prefix     string
	fields     []field
}

func newConsoleHandler(w io.Writer, level slog.Leveler, withCaller bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: level, withCaller: withCaller}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.fields = slices.Clip(h.fields)
	for _, attr := range attrs {
		clone.fields = appendField(clone.fields, h.prefix, attr)
	}
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	fields := slices.Clip(h.fields)
	r.Attrs(func(attr slog.Attr) bool {
		fields = appendField(fields, h.prefix, attr)
		return true
	})
	fields = lastValueWins(fields)

	var component, stage, speaker string
	rest := make([]field, 0, len(fields))
	for _, f := range fields {
		switch f.key {
		case FieldComponent:
			component = f.value.String()
		case FieldStage:
			stage = f.value.String()
		case FieldSpeaker:
			speaker = f.value.String()
		default:
			rest = append(rest, f)
		}
	}
	slices.SortStableFunc(rest, func(a, b field) int {
		return fieldRank(a.key) - fieldRank(b.key)
	})

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var b strings.Builder
	b.WriteString(ts.Local().Format(consoleTimeLayout))
	b.WriteByte(' ')
	b.WriteString(levelName(r.Level))
	if component != "" {
		b.WriteString(" [" + component + "]")
	}
	if subject := subjectOf(speaker, stage); subject != "" {
		b.WriteString(" " + subject)
	}
	b.WriteString(": ")
	b.WriteString(r.Message)

	verbose := r.Level < slog.LevelInfo || h.level.Level() <= slog.LevelDebug
	hidden := 0
	for _, f := range rest {
		if debugFields[f.key] && !verbose {
			hidden++
			continue
		}
		b.WriteByte(' ')
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(formatValue(f.value))
	}
	if hidden > 0 {
		b.WriteString(" (+" + strconv.Itoa(hidden) + " hidden)")
	}
	if h.withCaller && r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		if frame.File != "" {
			b.WriteString(" @" + filepath.Base(frame.File) + ":" + strconv.Itoa(frame.Line))
		}
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func appendField(dst []field, prefix string, attr slog.Attr) []field {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	if attr.Value.Kind() == slog.KindGroup {
		inner := prefix
		if attr.Key != "" {
			inner = prefix + attr.Key + "."
		}
		for _, member := range attr.Value.Group() {
			dst = appendField(dst, inner, member)
		}
		return dst
	}
	return append(dst, field{key: prefix + attr.Key, value: attr.Value})
}

// lastValueWins drops repeated keys, keeping the first position and the
// last value.
func lastValueWins(fields []field) []field {
	seen := make(map[string]int, len(fields))
	out := make([]field, 0, len(fields))
	for _, f := range fields {
		if i, ok := seen[f.key]; ok {
			out[i].value = f.value
			continue
		}
		seen[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

func fieldRank(key string) int {
	if i := slices.Index(fieldOrder, key); i >= 0 {
		return i
	}
	return len(fieldOrder)
}

func subjectOf(speaker, stage string) string {
	switch {
	case speaker != "" && stage != "":
		return speaker + " (" + stage + ")"
	case speaker != "":
		return speaker
	default:
		return stage
	}
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

func formatValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindTime:
		return v.Time().Local().Format(consoleTimeLayout)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok && err != nil {
			s = err.Error()
		} else {
			s = v.String()
		}
	default:
		return v.String()
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
