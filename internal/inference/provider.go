// Package inference performs the external model call behind the pipeline.
//
// One file per vendor, all implementing Provider. The Client wrapper owns
// the retry policy: a provider 429 is retried exactly once after the
// provider-specified backoff (or a fixed default), any other failure is
// terminal for the request.
package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fieldsense/fieldsense/internal/devlog"
)

// ErrNoCredential means no API key is configured. A configuration error,
// surfaced distinctly — never folded into an empty suggestion result.
var ErrNoCredential = errors.New("no API credential configured")

// Request is one completion call.
type Request struct {
	System      string
	User        string
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// Provider performs a single completion call with no retry of its own.
type Provider interface {
	ID() string
	Complete(ctx context.Context, req Request) (string, error)
}

// RateLimitError reports a provider 429 with the backoff it asked for.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("provider rate limited, retry after %s", e.RetryAfter)
}

// defaultBackoff is used when the provider supplies no Retry-After.
const defaultBackoff = 2 * time.Second

// maxAttempts bounds the call: the original attempt plus one retry.
const maxAttempts = 2

// Client wraps a Provider with the bounded retry policy.
type Client struct {
	provider Provider
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewClient wraps provider.
func NewClient(provider Provider) *Client {
	return &Client{provider: provider, sleep: sleepCtx}
}

// ID reports the underlying provider's identifier.
func (c *Client) ID() string { return c.provider.ID() }

// Complete performs the call. On a rate-limit response it waits out the
// backoff and retries once; a second rate limit or any other error is
// terminal.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		text, err := c.provider.Complete(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err

		var rle *RateLimitError
		if !errors.As(err, &rle) || attempt == maxAttempts {
			break
		}
		backoff := rle.RetryAfter
		if backoff <= 0 {
			backoff = defaultBackoff
		}
		devlog.Printf("[inference] %s rate limited, retrying in %s", c.provider.ID(), backoff)
		if err := c.sleep(ctx, backoff); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("%s completion: %w", c.provider.ID(), lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// retryAfter reads the backoff a 429 response asked for. Supports both
// delta-seconds and HTTP-date forms; zero means "none given".
func retryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	v := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// ValidateCredential checks the key against the vendor's known prefix. A
// format check only — the provider remains the authority.
func ValidateCredential(providerID, key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrNoCredential
	}
	var prefix string
	switch providerID {
	case "openai":
		prefix = "sk-"
	case "anthropic":
		prefix = "sk-ant-"
	default:
		return nil
	}
	if !strings.HasPrefix(key, prefix) {
		return fmt.Errorf("%s credential does not start with %q", providerID, prefix)
	}
	return nil
}
