package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const userAgent = "choropleth-slider/1.0 (github.com/Zachdehooge/choropleth-slider)"

// Fetcher loads sources from local paths or http(s) URLs.
type Fetcher struct {
	Client *http.Client
	// MaxRetries bounds retries of transient HTTP failures.
	MaxRetries uint64
	// InitialInterval is the first backoff delay.
	InitialInterval time.Duration
}

// New returns a Fetcher with the given request timeout and retry budget.
func New(timeout time.Duration, maxRetries uint64) *Fetcher {
	return &Fetcher{
		Client:          &http.Client{Timeout: timeout},
		MaxRetries:      maxRetries,
		InitialInterval: 500 * time.Millisecond,
	}
}

// IsURL reports whether src is fetched over HTTP.
func IsURL(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// Fetch reads src from disk or over HTTP.
func (f *Fetcher) Fetch(ctx context.Context, src string) ([]byte, error) {
	if !IsURL(src) {
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", src, err)
		}
		return data, nil
	}

	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		b, err := f.get(ctx, src)
		if err != nil {
			slog.Debug("fetch attempt failed", "component", "fetcher", "url", src, "attempt", attempt, "err", err)
			return err
		}
		body = b
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = f.InitialInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, f.MaxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", src, err)
	}
	return body, nil
}

// StatusError is a non-200 HTTP response.
type StatusError struct {
	StatusCode int
	Snippet    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned HTTP %d: %s", e.StatusCode, e.Snippet)
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/geo+json, application/json, application/yaml, */*")

	resp, err := f.Client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, backoff.Permanent(err)
		}
		return nil, fmt.Errorf("HTTP GET failed: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		snip := body
		if len(snip) > 200 {
			snip = snip[:200]
		}
		statusErr := &StatusError{StatusCode: resp.StatusCode, Snippet: string(snip)}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, statusErr
		}
		return nil, backoff.Permanent(statusErr)
	}
	return body, nil
}
