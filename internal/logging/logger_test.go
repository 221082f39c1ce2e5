package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"farcomms/internal/config"
	"farcomms/internal/logging"
	"farcomms/internal/services"
)

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json record: %v (%q)", err, buf.String())
	}
	return record
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Dir = filepath.Join(t.TempDir(), "logs")

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("engine ready")

	content, err := os.ReadFile(filepath.Join(cfg.Logging.Dir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "engine ready") {
		t.Fatalf("log file missing message: %q", content)
	}
}

func TestNewWritesToWriterAndFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "nested", "run.log")
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf, File: path})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("both sinks")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !bytes.Equal(content, buf.Bytes()) {
		t.Fatalf("file %q differs from writer %q", content, buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestConsoleLineLayout(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.Component(logger, "namematch").Info("speaker matched",
		logging.String(logging.FieldSpeaker, "Jane Doe"),
		logging.String(logging.FieldStage, "match"),
		logging.String("file", "talks/jane doe.mp4"),
		logging.String(logging.FieldCorrelationID, "req-1"),
		logging.String("match_kind", "full_exact"),
	)

	out := buf.String()
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("expected a single line, got %q", out)
	}
	want := `INFO [namematch] Jane Doe (match): speaker matched match_kind=full_exact file="talks/jane doe.mp4" (+1 hidden)`
	if !strings.Contains(out, want) {
		t.Fatalf("console output = %q, want it to contain %q", out, want)
	}
	if strings.Contains(out, "req-1") || strings.Contains(out, ".go:") {
		t.Fatalf("info line leaked debug detail: %q", out)
	}
}

func TestConsoleDebugShowsEverything(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.WithGroup("rewrite").Info("json parsed",
		logging.String(logging.FieldCorrelationID, "req-9"),
		logging.Int("attempt", 2),
		logging.Error(errors.New("bad token")),
	)

	out := buf.String()
	for _, want := range []string{
		"rewrite.correlation_id=req-9",
		"rewrite.attempt=2",
		`rewrite.error="bad token"`,
		"@logger_test.go:",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("console output missing %q: %q", want, out)
		}
	}
}

func TestConsoleLastValueWins(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.With(logging.String("outcome", "pending")).Warn("done", logging.String("outcome", "fallback"))

	out := buf.String()
	if strings.Contains(out, "pending") || strings.Count(out, "outcome=") != 1 {
		t.Fatalf("expected a single outcome=fallback: %q", out)
	}
	if !strings.Contains(out, "WARN: done outcome=fallback") {
		t.Fatalf("unexpected line: %q", out)
	}
}

func TestJSONRecordKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "debug", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("json message", logging.String("k", "v"))

	record := decodeRecord(t, &buf)
	if record["msg"] != "json message" || record["level"] != "info" || record["k"] != "v" {
		t.Fatalf("unexpected record: %+v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key: %+v", record)
	}
	if caller, _ := record["caller"].(string); !strings.HasPrefix(caller, "logger_test.go:") {
		t.Fatalf("caller = %v", record["caller"])
	}
}

func TestInvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "invalid", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestWithContextAddsScope(t *testing.T) {
	ctx := services.WithScope(context.Background(), services.Scope{
		RequestID: "req-xyz",
		Stage:     "align",
		Speaker:   "Ada Lovelace",
	})

	var buf bytes.Buffer
	base, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WithContext(ctx, base).Info("contextual log")

	record := decodeRecord(t, &buf)
	for key, want := range map[string]string{
		logging.FieldStage:         "align",
		logging.FieldSpeaker:       "Ada Lovelace",
		logging.FieldCorrelationID: "req-xyz",
	} {
		if got, _ := record[key].(string); got != want {
			t.Fatalf("field %s = %v, want %q", key, record[key], want)
		}
	}
}

func TestWarnWithContextFillsMissingFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WarnWithContext(logger, "retention low", "alignment_low_retention",
		logging.String(logging.FieldImpact, "transcript may be missing text"))

	record := decodeRecord(t, &buf)
	if record["level"] != "warn" || record[logging.FieldEventType] != "alignment_low_retention" {
		t.Fatalf("unexpected record: %+v", record)
	}
	if hint, _ := record[logging.FieldErrorHint].(string); hint == "" {
		t.Fatal("expected default error_hint")
	}
	if record[logging.FieldImpact] != "transcript may be missing text" {
		t.Fatalf("impact overwritten: %v", record[logging.FieldImpact])
	}
}

func TestNilAndNopLoggersAreSafe(t *testing.T) {
	logging.WarnWithContext(nil, "ignored", "noop")
	logging.NewNop().Info("discarded")
	if logging.WithContext(context.Background(), nil) == nil {
		t.Fatal("WithContext must return a logger")
	}
	if logging.Component(nil, "x") == nil {
		t.Fatal("Component must return a logger")
	}
}
