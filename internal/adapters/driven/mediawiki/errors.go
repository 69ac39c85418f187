package mediawiki

import (
	"fmt"
	"time"

	"github.com/jwbth/talkwatch/internal/core/domain"
)

// APIError is a well-formed error response from the content service. It is
// logged with its code and surfaced only where relevant; background
// polling swallows it and re-arms the next alarm.
type APIError struct {
	Code string
	Info string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %s: %s", e.Code, e.Info)
}

// RateLimitError indicates the API asked us to back off.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// Unwrap lets callers test with errors.Is(err, domain.ErrRateLimited).
func (e *RateLimitError) Unwrap() error {
	return domain.ErrRateLimited
}
