package mediawiki

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	// proactiveRate throttles requests below the level anonymous API
	// clients are granted, so background polling never trips the limit.
	proactiveRate = 2.0

	// headerRetryAfter is the back-off header (seconds).
	headerRetryAfter = "Retry-After"
)

// rateLimiter wraps proactive token-bucket throttling with reactive
// Retry-After handling.
type rateLimiter struct {
	bucket *rate.Limiter
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{
		bucket: rate.NewLimiter(rate.Limit(proactiveRate), 1),
	}
}

// wait blocks until it is safe to make a request.
func (r *rateLimiter) wait(ctx context.Context) error {
	return r.bucket.Wait(ctx)
}

// check returns a RateLimitError when the response says to back off.
func (r *rateLimiter) check(resp *http.Response) error {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}
	retryAfter := time.Minute
	if header := resp.Header.Get(headerRetryAfter); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			retryAfter = time.Duration(seconds) * time.Second
		}
	}
	return &RateLimitError{RetryAfter: retryAfter}
}
