package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"farcomms/internal/repair"
	"farcomms/internal/services"
)

func replyWith(t *testing.T, choice map[string]any) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewEncoder(w).Encode(map[string]any{"choices": []any{choice}}); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}
}

func content(text string) map[string]any {
	return map[string]any{"message": map[string]any{"content": text}}
}

func noWait() Option {
	return WithSleeper(func(time.Duration) {})
}

func TestRewriteRequestShape(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test" {
			t.Errorf("authorization = %q", auth)
		}
		if title := r.Header.Get("X-Title"); title != "farcomms" {
			t.Errorf("x-title = %q", title)
		}
		if referer := r.Header.Get("HTTP-Referer"); referer != "https://example.org" {
			t.Errorf("http-referer = %q", referer)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		replyWith(t, content("```json\n{\"title\":\"Keynote\"}\n```"))(w, r)
	}))
	defer server.Close()

	client := New(Config{APIKey: " test ", BaseURL: server.URL, Model: "demo-model", Title: "farcomms", Referer: "https://example.org"})
	out, err := client.Rewrite(context.Background(), `{"title": "Keynote"`)
	if err != nil {
		t.Fatalf("Rewrite returned error: %v", err)
	}
	if !strings.HasPrefix(out, "```json") {
		t.Fatalf("expected the raw model reply, got %q", out)
	}
	if got.Model != "demo-model" || len(got.Messages) != 2 {
		t.Fatalf("unexpected request: %+v", got)
	}
	if got.Messages[0].Role != "system" || got.Messages[0].Content != repair.RewritePrompt {
		t.Fatalf("system message = %+v", got.Messages[0])
	}
	if got.Messages[1].Role != "user" || got.Messages[1].Content != `{"title": "Keynote"` {
		t.Fatalf("user message = %+v", got.Messages[1])
	}
}

func TestRewriteFeedsRepairLoop(t *testing.T) {
	server := httptest.NewServer(replyWith(t, content(`{"linkedin": "Watch the keynote"}`)))
	defer server.Close()

	client := New(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	res := repair.Repair(context.Background(), "the model said nothing useful", map[string]any{}, client)
	if !res.Parsed() || res.Attempts != 2 {
		t.Fatalf("expected parse on the second attempt, got %+v", res)
	}
	if res.Value["linkedin"] != "Watch the keynote" {
		t.Fatalf("value = %+v", res.Value)
	}
}

func TestRewriteErrorKinds(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		_, err := New(Config{Model: "demo-model"}).Rewrite(context.Background(), "{")
		if !errors.Is(err, services.ErrConfiguration) || services.Retryable(err) {
			t.Fatalf("expected non-retryable configuration error, got %v", err)
		}
	})
	t.Run("blank text", func(t *testing.T) {
		_, err := New(Config{APIKey: "test"}).Rewrite(context.Background(), "  ")
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
	t.Run("rejected request", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"bad request"}`))
		}))
		defer server.Close()

		_, err := New(Config{APIKey: "test", BaseURL: server.URL}, noWait()).Rewrite(context.Background(), "{")
		if !errors.Is(err, services.ErrExternalTool) || services.Retryable(err) {
			t.Fatalf("expected non-retryable external tool error, got %v", err)
		}
		if !strings.Contains(err.Error(), "http 400") {
			t.Fatalf("expected status in error, got %v", err)
		}
		if calls.Load() != 1 {
			t.Fatalf("a 400 must not be retried, got %d calls", calls.Load())
		}
	})
	t.Run("api error body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":{"message":"model not found"}}`))
		}))
		defer server.Close()

		_, err := New(Config{APIKey: "test", BaseURL: server.URL}).Rewrite(context.Background(), "{")
		if !errors.Is(err, services.ErrExternalTool) || !strings.Contains(err.Error(), "model not found") {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestRewriteOutageStaysRetryable(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(Config{APIKey: "test", BaseURL: server.URL}, WithRetry(3, time.Millisecond, time.Millisecond), noWait())
	_, err := client.Rewrite(context.Background(), "{")
	if !services.Retryable(err) {
		t.Fatalf("expected a retryable error after exhausting tries, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
}

func TestRewriteEmptyContent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		text := ""
		if calls.Add(1) >= 3 {
			text = `{"ok":true}`
		}
		replyWith(t, map[string]any{"finish_reason": "stop", "message": map[string]any{"content": text}})(w, r)
	}))
	defer server.Close()

	client := New(Config{APIKey: "test", BaseURL: server.URL}, WithRetry(5, 0, 0), noWait())
	out, err := client.Rewrite(context.Background(), "{ok: true")
	if err != nil {
		t.Fatalf("Rewrite returned error: %v", err)
	}
	if out != `{"ok":true}` || calls.Load() != 3 {
		t.Fatalf("out = %q after %d calls", out, calls.Load())
	}

	calls.Store(-100)
	_, err = New(Config{APIKey: "test", BaseURL: server.URL}, WithRetry(2, 0, 0), noWait()).Rewrite(context.Background(), "{")
	if err == nil || !strings.Contains(err.Error(), "empty content") || !strings.Contains(err.Error(), `finish_reason="stop"`) {
		t.Fatalf("expected empty-content detail, got %v", err)
	}
}

func TestRewriteReadsDeltaAndLegacyText(t *testing.T) {
	for name, choice := range map[string]map[string]any{
		"delta": {"delta": map[string]any{"content": "fixed"}},
		"text":  {"finish_reason": "stop", "text": "fixed"},
	} {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(replyWith(t, choice))
			defer server.Close()

			out, err := New(Config{APIKey: "test", BaseURL: server.URL}).Rewrite(context.Background(), "{")
			if err != nil {
				t.Fatalf("Rewrite returned error: %v", err)
			}
			if out != "fixed" {
				t.Fatalf("out = %q", out)
			}
		})
	}
}

func TestRewriteHonoursRetryAfter(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		replyWith(t, content(`{"ok":true}`))(w, r)
	}))
	defer server.Close()

	var slept []time.Duration
	client := New(
		Config{APIKey: "test", BaseURL: server.URL},
		WithRetry(5, 0, 10*time.Second),
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	if _, err := client.Rewrite(context.Background(), "{ok: true"); err != nil {
		t.Fatalf("Rewrite returned error: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected a single 1s wait, got %v", slept)
	}
}

func TestRewriteStopsOnCancel(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := New(Config{APIKey: "test", BaseURL: server.URL}, WithRetry(5, time.Second, time.Second),
		WithSleeper(func(time.Duration) { cancel() }))
	_, err := client.Rewrite(ctx, "{")
	if !errors.Is(err, context.Canceled) || services.Retryable(err) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", calls.Load())
	}
}

func TestBackoffDelay(t *testing.T) {
	b := backoff{base: time.Second, max: 5 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, expected := range want {
		if got := b.delay(i+1, errors.New("x")); got != expected {
			t.Fatalf("delay(%d) = %s, want %s", i+1, got, expected)
		}
	}
	retryAfter := services.Wrap(services.ErrTransient, "llm", "send", &statusError{Code: 429, RetryAfter: time.Minute})
	if got := b.delay(1, retryAfter); got != 5*time.Second {
		t.Fatalf("Retry-After should be capped, got %s", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d, ok := parseRetryAfter("3"); !ok || d != 3*time.Second {
		t.Fatalf("parseRetryAfter(3) = %s %v", d, ok)
	}
	if _, ok := parseRetryAfter("-1"); ok {
		t.Fatal("negative Retry-After must be rejected")
	}
	if _, ok := parseRetryAfter("soon"); ok {
		t.Fatal("garbage Retry-After must be rejected")
	}
}
