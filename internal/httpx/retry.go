// Package httpx sends rate-limited JSON requests with retries on transient
// failures.
package httpx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// MaxResponseBytes caps how much of a response body is read.
const MaxResponseBytes = 8 << 20

// DefaultBackoffs are the delays between attempts.
var DefaultBackoffs = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

const maxRetryAfter = 30 * time.Second

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// Client wraps an http.Client with a limiter and retry policy. Retries happen
// on transport errors, 429 and 5xx; a Retry-After header on 429 overrides the
// backoff (capped at 30s).
type Client struct {
	HTTP     *http.Client
	Limiter  *rate.Limiter
	Backoffs []time.Duration
	Header   http.Header
}

// New returns a client with the given timeout and requests-per-second limit.
// A non-positive rps disables limiting.
func New(timeout time.Duration, rps float64) *Client {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Client{
		HTTP:     &http.Client{Timeout: timeout},
		Limiter:  rate.NewLimiter(limit, 1),
		Backoffs: DefaultBackoffs,
		Header:   make(http.Header),
	}
}

// Do sends method to url with body (nil for none) and returns the response
// body of the first 2xx response.
func (c *Client) Do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= len(c.Backoffs); attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		for k, vs := range c.Header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.HTTP.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			if err := c.wait(ctx, attempt, 0); err != nil {
				return nil, err
			}
			continue
		}

		data, readErr := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("read response: %w", readErr)
			if err := c.wait(ctx, attempt, 0); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return data, nil
		}

		statusErr := &StatusError{Code: resp.StatusCode, Body: truncate(string(data), 512)}
		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
			return nil, statusErr
		}
		lastErr = statusErr

		var retryAfter time.Duration
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		}
		if err := c.wait(ctx, attempt, retryAfter); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("request failed after %d retries: %w", len(c.Backoffs), lastErr)
}

func (c *Client) wait(ctx context.Context, attempt int, override time.Duration) error {
	if attempt >= len(c.Backoffs) {
		return nil
	}
	delay := c.Backoffs[attempt]
	if override > 0 {
		delay = override
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(v string) time.Duration {
	seconds, err := strconv.Atoi(v)
	if err != nil || seconds <= 0 {
		return 0
	}
	d := time.Duration(seconds) * time.Second
	if d > maxRetryAfter {
		d = maxRetryAfter
	}
	return d
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
