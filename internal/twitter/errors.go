package twitter

import (
	"fmt"
	"time"
)

// RateLimit carries the throttle metadata the platform attaches to a
// limited response.
type RateLimit struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// APIError is the closed error type produced at the client boundary.
// Everything above this package decides retry behavior by inspecting it
// instead of sniffing response bodies.
type APIError struct {
	StatusCode int
	Code       int
	Detail     string
	RateLimit  *RateLimit
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("twitter: %s (status %d)", e.Detail, e.StatusCode)
	}
	return fmt.Sprintf("twitter: request failed with status %d", e.StatusCode)
}

// IsRateLimit reports whether the platform throttled the request. Code 88
// is the legacy v1.1 rate-limit error code.
func (e *APIError) IsRateLimit() bool {
	return e.StatusCode == 429 || e.Code == 88
}
