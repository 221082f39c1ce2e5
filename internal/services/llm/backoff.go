package llm

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"farcomms/internal/services"
)

type backoff struct {
	tries int
	base  time.Duration
	max   time.Duration
	sleep func(time.Duration)
}

// run calls send until it succeeds, returns an error services.Retryable
// rejects, the context ends, or the tries are used up.
func (b backoff) run(ctx context.Context, send func() (string, error)) (string, error) {
	tries := max(b.tries, 1)
	var err error
	for try := 1; try <= tries; try++ {
		var out string
		out, err = send()
		if err == nil {
			return out, nil
		}
		if !services.Retryable(err) || try == tries || ctx.Err() != nil {
			break
		}
		if werr := b.wait(ctx, b.delay(try, err)); werr != nil {
			return "", werr
		}
	}
	return "", err
}

// delay doubles from base on every try, capped at max. A Retry-After from
// the server replaces the computed delay, still capped.
func (b backoff) delay(try int, err error) time.Duration {
	var serr *statusError
	if errors.As(err, &serr) && serr.RetryAfter > 0 {
		return b.capped(serr.RetryAfter)
	}
	if b.base <= 0 {
		return 0
	}
	d := b.base
	for i := 1; i < try && (b.max <= 0 || d < b.max); i++ {
		d *= 2
	}
	return b.capped(d)
}

func (b backoff) capped(d time.Duration) time.Duration {
	if b.max > 0 && d > b.max {
		return b.max
	}
	return d
}

func (b backoff) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	if b.sleep != nil {
		b.sleep(d)
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseRetryAfter reads delay-seconds or an HTTP date.
func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		if d := time.Until(when); d > 0 {
			return d, true
		}
	}
	return 0, false
}
