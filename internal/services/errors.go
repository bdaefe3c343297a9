package services

import (
	"errors"
	"fmt"
	"time"
)

// Admission errors, rejected before any state change. Infrastructure
// failures are returned as ordinary wrapped errors and map to 500.
var (
	ErrSiteNotFound     = errors.New("site not found")
	ErrOriginNotAllowed = errors.New("origin not allowed for this site")
	ErrCaptchaRequired  = errors.New("captcha token required for new devices")
	ErrCaptchaInvalid   = errors.New("captcha validation failed")
)

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}
