package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"farcomms/internal/services"
)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse accepts the chat schema plus the two shapes some providers
// send by mistake: the streaming delta and the legacy completion text.
type chatResponse struct {
	Choices []struct {
		Message      replyBody `json:"message"`
		Delta        replyBody `json:"delta"`
		Text         string    `json:"text"`
		FinishReason string    `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type replyBody struct {
	Content string `json:"content"`
	Refusal string `json:"refusal"`
}

// statusError is a non-2xx reply. RetryAfter is zero when the server sent
// no usable Retry-After header.
type statusError struct {
	Code       int
	Body       string
	RetryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, snippet(e.Body))
}

// exchange sends one request and returns the reply text. Every error it
// returns is a *services.Error whose kind says whether to retry.
func (c *Client) exchange(ctx context.Context, req chatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "llm", "encode", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "llm", "request", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.Referer != "" {
		httpReq.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		httpReq.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", services.Wrap(transportKind(err), "llm", "send", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.Wrap(transportKind(err), "llm", "read", err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		serr := &statusError{Code: resp.StatusCode, Body: string(raw)}
		serr.RetryAfter, _ = parseRetryAfter(resp.Header.Get("Retry-After"))
		return "", services.Wrap(statusKind(resp.StatusCode), "llm", "send", serr)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", services.Wrap(services.ErrTransient, "llm", "decode", fmt.Errorf("%w (body: %s)", err, snippet(string(raw))))
	}
	if parsed.Error != nil {
		return "", services.Wrap(services.ErrExternalTool, "llm", "reply", errors.New(strings.TrimSpace(parsed.Error.Message)))
	}
	reply, finish, refusal := replyText(parsed)
	if reply == "" {
		return "", services.Wrap(services.ErrTransient, "llm", "reply",
			fmt.Errorf("empty content (finish_reason=%q refusal=%q body=%s)", finish, refusal, snippet(string(raw))))
	}
	return reply, nil
}

func replyText(resp chatResponse) (reply, finish, refusal string) {
	for _, choice := range resp.Choices {
		if finish == "" {
			finish = choice.FinishReason
		}
		if refusal == "" {
			refusal = strings.TrimSpace(choice.Message.Refusal + choice.Delta.Refusal)
		}
		for _, candidate := range []string{choice.Message.Content, choice.Delta.Content, choice.Text} {
			if text := strings.TrimSpace(candidate); text != "" {
				return text, finish, refusal
			}
		}
	}
	return "", finish, refusal
}

func statusKind(code int) error {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests, code >= http.StatusInternalServerError:
		return services.ErrTransient
	default:
		return services.ErrExternalTool
	}
}

func transportKind(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return services.ErrExternalTool
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return services.ErrTransient
	}
	return services.ErrExternalTool
}

func snippet(text string) string {
	clean := strings.Join(strings.Fields(text), " ")
	if clean == "" {
		return "<empty>"
	}
	if runes := []rune(clean); len(runes) > 160 {
		return string(runes[:160]) + "..."
	}
	return clean
}
