package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// maxBodyBytes caps a downloaded dataset; the real file is well under 1 MiB.
const maxBodyBytes = 64 << 20

// Fetcher downloads a dataset over HTTP, retrying timeouts, 429 and 5xx responses
// with capped exponential backoff.
type Fetcher struct {
	httpClient       *http.Client
	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	logger           *zap.Logger
	sleep            func(context.Context, time.Duration) error
}

// NewFetcher allows customizing HTTP timeout and retry/backoff behavior.
// Non-positive values fall back to 60s, 3 attempts, 500ms base and 4s cap.
func NewFetcher(httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration, logger *zap.Logger) *Fetcher {
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	if retryMax <= 0 {
		retryMax = 3
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 4 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		httpClient:       &http.Client{Timeout: httpTimeout},
		retryMaxAttempts: retryMax,
		retryBaseDelay:   baseDelay,
		retryMaxDelay:    maxDelay,
		logger:           logger,
		sleep:            sleepCtx,
	}
}

// statusError is a non-2xx response.
type statusError struct {
	StatusCode int
	Status     string
	Body       string
	RetryAfter time.Duration
}

func (e *statusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("unexpected status %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("unexpected status %s", e.Status)
}

func (e *statusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || (e.StatusCode >= 500 && e.StatusCode <= 599)
}

// Fetch downloads url and returns the body. Failures are wrapped in SourceUnavailableError.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	backoff := f.retryBaseDelay
	var lastErr error
	for attempt := 1; attempt <= f.retryMaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, &SourceUnavailableError{Source: url, Err: ctx.Err()}
		}
		body, err := f.fetchOnce(ctx, url)
		if err == nil {
			f.logger.Debug("fetched dataset", zap.String("url", url), zap.Int("bytes", len(body)), zap.Int("attempt", attempt))
			return body, nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == f.retryMaxAttempts {
			break
		}
		wait := withJitter(backoff)
		if wait > f.retryMaxDelay {
			wait = f.retryMaxDelay
		}
		var se *statusError
		if errors.As(err, &se) && se.RetryAfter > 0 {
			wait = se.RetryAfter
		}
		f.logger.Warn("fetch failed, retrying",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", f.retryMaxAttempts),
			zap.Duration("wait", wait),
			zap.Error(err))
		if err := f.sleep(ctx, wait); err != nil {
			return nil, &SourceUnavailableError{Source: url, Err: err}
		}
		backoff *= 2
	}
	return nil, &SourceUnavailableError{Source: url, Err: lastErr}
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "carloom-cli")
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		se := &statusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(b)}
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				se.RetryAfter = time.Duration(secs) * time.Second
			}
		}
		return nil, se
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func isRetryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.retryable()
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return false
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	// +/-20%
	j := time.Duration(float64(d) * (0.8 + 0.4*rand.Float64()))
	if j <= 0 {
		return d
	}
	return j
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
