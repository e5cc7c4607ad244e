package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrNotFound            = errors.New("upstream: resource not found")
	ErrUpstreamUnavailable = errors.New("upstream: unavailable")
)

// StatusError is returned for non-retryable, non-2xx responses.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %s", e.Status)
}

// Options configures the API client.
type Options struct {
	// Timeout for individual requests.
	Timeout time.Duration

	// RetryAttempts is the number of retries after the first attempt.
	RetryAttempts int

	// RetryBackoff is the initial backoff; it doubles per attempt up to
	// RetryMaxBackoff. Zero disables waiting between attempts.
	RetryBackoff    time.Duration
	RetryMaxBackoff time.Duration

	// RequestsPerSecond limits outgoing requests. Zero disables limiting.
	RequestsPerSecond float64

	UserAgent string
}

func DefaultOptions() Options {
	return Options{
		Timeout:           30 * time.Second,
		RetryAttempts:     5,
		RetryBackoff:      time.Second,
		RetryMaxBackoff:   30 * time.Second,
		RequestsPerSecond: 5,
		UserAgent:         "mangadl (+https://github.com/kerbaras/mangadl)",
	}
}

// API is a small JSON client shared by everything that talks to the
// upstream. Image downloads reuse its http.Client and limiter.
type API struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
	opts    Options
	logger  *slog.Logger
}

func NewAPI(baseURL string, opts Options, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return &API{
		client:  &http.Client{Timeout: opts.Timeout},
		baseURL: baseURL,
		limiter: limiter,
		opts:    opts,
		logger:  logger,
	}
}

func (a *API) BaseURL() string { return a.baseURL }

func (a *API) Client() *http.Client { return a.client }

func (a *API) Limiter() *rate.Limiter { return a.limiter }

func (a *API) UserAgent() string { return a.opts.UserAgent }

// Get issues a GET against baseURL+path and decodes the JSON body into v.
// Transport errors, 429 and 5xx responses are retried; once the retry
// budget is spent the error wraps ErrUpstreamUnavailable.
func (a *API) Get(ctx context.Context, path string, params url.Values, v any) error {
	target := a.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= a.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			a.logger.Debug("retrying request", "url", target, "attempt", attempt, "error", lastErr)
			if err := a.backoff(ctx, attempt); err != nil {
				return err
			}
		}

		retry, err := a.do(ctx, target, v)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("%w: GET %s failed after %d attempts: %w", ErrUpstreamUnavailable, path, a.opts.RetryAttempts+1, lastErr)
}

func (a *API) do(ctx context.Context, target string, v any) (bool, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if a.opts.UserAgent != "" {
		req.Header.Set("User-Agent", a.opts.UserAgent)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body)
		return true, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return false, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		// A body cut short is a transport problem, not a schema one.
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return true, err
		}
		return false, fmt.Errorf("decode response: %w", err)
	}
	return false, nil
}

// backoff waits for an exponentially increasing duration with jitter.
func (a *API) backoff(ctx context.Context, attempt int) error {
	wait := Backoff(a.opts.RetryBackoff, a.opts.RetryMaxBackoff, attempt)
	if wait <= 0 {
		return ctx.Err()
	}

	// Add jitter: 0.5 to 1.5 of backoff
	jitter := time.Duration(float64(wait) * (0.5 + rand.Float64()))

	timer := time.NewTimer(jitter)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Backoff returns base doubled attempt-1 times, capped at max.
func Backoff(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 || attempt <= 0 {
		return 0
	}
	wait := base
	for i := 1; i < attempt; i++ {
		wait *= 2
		if max > 0 && wait >= max {
			return max
		}
	}
	if max > 0 && wait > max {
		return max
	}
	return wait
}
