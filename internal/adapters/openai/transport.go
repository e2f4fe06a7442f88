package openaiad

import (
	"context"
	crand "crypto/rand"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"monobook/internal/adapters/observability"
)

const maxAttempts = 4

// RetryDoer is the HTTP client handed to go-openai: client-side rate limiting plus retries
// on 429 and transient 5xx, honoring Retry-After when provided.
type RetryDoer struct {
	hc *http.Client
	rl *rate.Limiter
}

func NewRetryDoer(rps float64) *RetryDoer {
	if rps <= 0 {
		rps = 5
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &RetryDoer{
		hc: &http.Client{Timeout: 30 * time.Second},
		rl: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (d *RetryDoer) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if err := d.rl.Wait(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		attempt, err := rewind(req, i)
		if err != nil {
			return nil, err
		}
		start := time.Now()
		resp, err := d.hc.Do(attempt)
		if err != nil {
			observability.ObserveExternal("openai", req.URL.Path, 0, time.Since(start))
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			if i < maxAttempts-1 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr
		}
		observability.ObserveExternal("openai", req.URL.Path, resp.StatusCode, time.Since(start))

		if !retryable(resp.StatusCode) || i == maxAttempts-1 {
			// the caller decodes both success and error bodies
			return resp, nil
		}
		wait := retryAfter(resp)
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if wait == 0 {
			wait = backoff(i)
		}
		if !sleepCtx(ctx, wait) {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// rewind returns req for the first attempt and a copy with a fresh body afterwards.
func rewind(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 0 || req.Body == nil || req.GetBody == nil {
		return req, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	r := req.Clone(req.Context())
	r.Body = body
	return r, nil
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
