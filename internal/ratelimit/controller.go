package ratelimit

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/Akash01010101/threadcraft/internal/twitter"
)

type Kind int

const (
	// KindRateLimited means the platform throttled the call; retry after
	// the attached wait.
	KindRateLimited Kind = iota
	// KindTransient covers network-level failures worth a single bounded
	// retry.
	KindTransient
	// KindFatal means the caller must not retry.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindTransient:
		return "transient"
	default:
		return "fatal"
	}
}

// Classification is the decision record for one failed call. Wait is
// always non-negative; ResetAt is zero when the platform supplied no
// reset hint.
type Classification struct {
	Kind    Kind
	Wait    time.Duration
	ResetAt time.Time
}

// State tracks throttle status for one credential across one call chain.
// It lives in process memory only and must not be shared between
// credentials or concurrent chains.
type State struct {
	Throttled  bool
	ResetAt    time.Time
	RetryCount int
}

// DefaultWait applies when a throttled response carries no reset hint.
const DefaultWait = time.Minute

// Controller turns API errors into retry decisions. It never sleeps;
// callers own the waiting so interactive paths can surface the delay
// instead of blocking on it.
type Controller struct {
	MaxAttempts  int
	InitialDelay time.Duration
	now          func() time.Time
}

func New(maxAttempts int, initialDelay time.Duration) *Controller {
	return &Controller{
		MaxAttempts:  maxAttempts,
		InitialDelay: initialDelay,
		now:          time.Now,
	}
}

// NewWithClock is for tests that need a fixed notion of now.
func NewWithClock(maxAttempts int, initialDelay time.Duration, now func() time.Time) *Controller {
	c := New(maxAttempts, initialDelay)
	c.now = now
	return c
}

// Classify maps an error from the platform client into the retry
// taxonomy. Rate limits come from the tagged APIError; plain network
// failures are transient; everything else is fatal.
func (c *Controller) Classify(err error) Classification {
	var apiErr *twitter.APIError
	if errors.As(err, &apiErr) {
		if apiErr.IsRateLimit() {
			cl := Classification{Kind: KindRateLimited, Wait: DefaultWait}
			if apiErr.RateLimit != nil && !apiErr.RateLimit.Reset.IsZero() {
				cl.ResetAt = apiErr.RateLimit.Reset
				cl.Wait = apiErr.RateLimit.Reset.Sub(c.now())
				if cl.Wait < 0 {
					cl.Wait = 0
				}
			}
			return cl
		}
		return Classification{Kind: KindFatal}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return Classification{Kind: KindTransient}
	}

	return Classification{Kind: KindFatal}
}

// ShouldRetry decides whether attempt (zero-based count of failures so
// far) warrants another try. Transient failures get exactly one retry;
// rate limits are bounded by MaxAttempts; fatal never retries.
func (c *Controller) ShouldRetry(attempt int, cl Classification) bool {
	switch cl.Kind {
	case KindRateLimited:
		return attempt < c.MaxAttempts
	case KindTransient:
		return attempt < 1
	default:
		return false
	}
}

// Backoff computes how long to wait before the next attempt: the
// platform-supplied reset wait when present, otherwise exponential
// backoff doubling from InitialDelay.
func (c *Controller) Backoff(attempt int, cl Classification) time.Duration {
	if cl.Kind == KindRateLimited && cl.Wait > 0 {
		return cl.Wait
	}
	return c.InitialDelay << uint(attempt)
}

// Observe folds a classification into the per-credential state.
func (c *Controller) Observe(st *State, cl Classification) {
	st.RetryCount++
	if cl.Kind == KindRateLimited {
		st.Throttled = true
		st.ResetAt = cl.ResetAt
	}
}
