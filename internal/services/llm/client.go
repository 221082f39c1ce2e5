package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"farcomms/internal/repair"
	"farcomms/internal/services"
)

const (
	defaultEndpoint  = "https://openrouter.ai/api/v1/chat/completions"
	defaultTimeout   = 60 * time.Second
	defaultTries     = 4
	defaultBaseDelay = time.Second
	defaultMaxDelay  = 10 * time.Second
)

// Config holds the [llm] settings the client needs.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// Client rewrites malformed JSON through an OpenRouter chat model.
type Client struct {
	cfg     Config
	http    *http.Client
	backoff backoff
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithRetry sets how many requests one Rewrite may send and the backoff
// between them.
func WithRetry(tries int, baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.backoff.tries = tries
		c.backoff.base = baseDelay
		c.backoff.max = maxDelay
	}
}

// WithSleeper replaces the timer used between retries.
func WithSleeper(sleep func(time.Duration)) Option {
	return func(c *Client) {
		c.backoff.sleep = sleep
	}
}

// New builds a Client. Blank fields of cfg fall back to the OpenRouter
// endpoint and a 60 second request timeout.
func New(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.Referer = strings.TrimSpace(cfg.Referer)
	cfg.Title = strings.TrimSpace(cfg.Title)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultEndpoint
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: timeout},
		backoff: backoff{tries: defaultTries, base: defaultBaseDelay, max: defaultMaxDelay},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rewrite asks the model for a corrected version of text and returns the
// reply unvalidated. It satisfies repair.Rewriter.
func (c *Client) Rewrite(ctx context.Context, text string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", services.Wrap(services.ErrConfiguration, "repair", "rewrite", errors.New("llm api key required"))
	}
	if strings.TrimSpace(text) == "" {
		return "", services.Wrap(services.ErrValidation, "repair", "rewrite", errors.New("nothing to rewrite"))
	}
	req := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: repair.RewritePrompt},
			{Role: "user", Content: text},
		},
	}
	reply, err := c.backoff.run(ctx, func() (string, error) {
		return c.exchange(ctx, req)
	})
	if err != nil {
		// Exchange errors already carry their kind; only a cancelled wait
		// between tries arrives bare.
		var tagged *services.Error
		if errors.As(err, &tagged) {
			return "", err
		}
		return "", services.Wrap(services.ErrExternalTool, "repair", "rewrite", err)
	}
	return reply, nil
}

var _ repair.Rewriter = (*Client)(nil)
