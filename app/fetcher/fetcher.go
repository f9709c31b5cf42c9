package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lysyi3m/content-hub/app/content"
)

const (
	maxBodySize = 10 << 20
	maxDelay    = 30 * time.Second
)

var ErrBodyTooLarge = errors.New("response body too large")

type Options struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
	// MaxBodySize defaults to 10 MiB.
	MaxBodySize int64
}

// Fetcher retrieves raw documents over HTTP. Every attempt gets its own
// timeout; transient failures are retried with exponential backoff.
type Fetcher struct {
	client *http.Client
	opts   Options
}

func New(client *http.Client, opts Options) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = maxBodySize
	}
	return &Fetcher{client: client, opts: opts}
}

func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= f.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := f.backoff(attempt)
			slog.Debug("Retrying fetch", "url", url, "attempt", attempt, "delay", delay.String(), "error", lastErr)

			select {
			case <-ctx.Done():
				return nil, &content.FetchError{URL: url, Err: ctx.Err()}
			case <-time.After(delay):
			}
		}

		data, err := f.fetchOnce(ctx, url)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if !retryable(err) || ctx.Err() != nil {
			break
		}
	}

	return nil, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, &content.FetchError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &content.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &content.FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("HTTP error: %s", resp.Status)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodySize+1))
	if err != nil {
		return nil, &content.FetchError{URL: url, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	if int64(len(data)) > f.opts.MaxBodySize {
		return nil, &content.FetchError{URL: url, Err: fmt.Errorf("%w: exceeds %d bytes", ErrBodyTooLarge, f.opts.MaxBodySize)}
	}

	return data, nil
}

func (f *Fetcher) backoff(attempt int) time.Duration {
	delay := f.opts.BaseDelay << uint(attempt-1)
	if delay > maxDelay || delay <= 0 {
		delay = maxDelay
	}
	return delay
}

func retryable(err error) bool {
	var fetchErr *content.FetchError
	if !errors.As(err, &fetchErr) {
		return false
	}
	if fetchErr.StatusCode == 0 {
		return !errors.Is(fetchErr.Err, context.Canceled) && !errors.Is(fetchErr.Err, ErrBodyTooLarge)
	}
	return fetchErr.StatusCode >= 500 || fetchErr.StatusCode == http.StatusTooManyRequests
}
