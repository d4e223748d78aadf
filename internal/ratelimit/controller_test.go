package ratelimit

import (
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/Akash01010101/threadcraft/internal/twitter"
	"github.com/stretchr/testify/assert"
)

func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestClassifyRateLimitWithReset(t *testing.T) {
	c := NewWithClock(3, time.Second, fixedNow)

	reset := fixedNow().Add(30 * time.Second)
	err := &twitter.APIError{
		StatusCode: 429,
		RateLimit:  &twitter.RateLimit{Reset: reset},
	}

	cl := c.Classify(err)

	assert.Equal(t, KindRateLimited, cl.Kind)
	assert.Equal(t, reset, cl.ResetAt)
	assert.GreaterOrEqual(t, cl.Wait, time.Duration(0))
	assert.LessOrEqual(t, cl.Wait, 30*time.Second)
}

func TestClassifyRateLimitResetInPast(t *testing.T) {
	c := NewWithClock(3, time.Second, fixedNow)

	err := &twitter.APIError{
		StatusCode: 429,
		RateLimit:  &twitter.RateLimit{Reset: fixedNow().Add(-10 * time.Second)},
	}

	cl := c.Classify(err)

	assert.Equal(t, KindRateLimited, cl.Kind)
	assert.Equal(t, time.Duration(0), cl.Wait, "wait must never be negative")
}

func TestClassifyRateLimitWithoutReset(t *testing.T) {
	c := NewWithClock(3, time.Second, fixedNow)

	cl := c.Classify(&twitter.APIError{StatusCode: 429})

	assert.Equal(t, KindRateLimited, cl.Kind)
	assert.Equal(t, DefaultWait, cl.Wait)
	assert.True(t, cl.ResetAt.IsZero())
}

func TestClassifyLegacyCode88(t *testing.T) {
	c := NewWithClock(3, time.Second, fixedNow)

	cl := c.Classify(&twitter.APIError{StatusCode: 403, Code: 88})

	assert.Equal(t, KindRateLimited, cl.Kind)
}

func TestClassifyWrappedAPIError(t *testing.T) {
	c := NewWithClock(3, time.Second, fixedNow)

	wrapped := fmt.Errorf("error posting tweet 2 of thread: %w", &twitter.APIError{StatusCode: 429})
	cl := c.Classify(wrapped)

	assert.Equal(t, KindRateLimited, cl.Kind)
}

func TestClassifyFatal(t *testing.T) {
	c := NewWithClock(3, time.Second, fixedNow)

	assert.Equal(t, KindFatal, c.Classify(&twitter.APIError{StatusCode: 401}).Kind)
	assert.Equal(t, KindFatal, c.Classify(&twitter.APIError{StatusCode: 404}).Kind)
	assert.Equal(t, KindFatal, c.Classify(errors.New("malformed request")).Kind)
}

func TestClassifyTransientNetworkError(t *testing.T) {
	c := NewWithClock(3, time.Second, fixedNow)

	var netErr net.Error = &net.DNSError{Err: "timeout", IsTimeout: true}
	cl := c.Classify(fmt.Errorf("HTTP request error: %w", netErr))

	assert.Equal(t, KindTransient, cl.Kind)
}

func TestShouldRetryBounds(t *testing.T) {
	c := NewWithClock(3, time.Second, fixedNow)

	limited := Classification{Kind: KindRateLimited}
	assert.True(t, c.ShouldRetry(0, limited))
	assert.True(t, c.ShouldRetry(2, limited))
	assert.False(t, c.ShouldRetry(3, limited))

	transient := Classification{Kind: KindTransient}
	assert.True(t, c.ShouldRetry(0, transient))
	assert.False(t, c.ShouldRetry(1, transient), "transient gets a single retry")

	assert.False(t, c.ShouldRetry(0, Classification{Kind: KindFatal}))
}

func TestBackoffUsesResetWaitWhenPresent(t *testing.T) {
	c := NewWithClock(3, time.Second, fixedNow)

	cl := Classification{Kind: KindRateLimited, Wait: 42 * time.Second}
	assert.Equal(t, 42*time.Second, c.Backoff(0, cl))
	assert.Equal(t, 42*time.Second, c.Backoff(2, cl))
}

func TestBackoffDoublesWithoutHint(t *testing.T) {
	c := NewWithClock(3, 2*time.Second, fixedNow)

	cl := Classification{Kind: KindTransient}
	assert.Equal(t, 2*time.Second, c.Backoff(0, cl))
	assert.Equal(t, 4*time.Second, c.Backoff(1, cl))
	assert.Equal(t, 8*time.Second, c.Backoff(2, cl))
}

func TestObserveMarksThrottled(t *testing.T) {
	c := NewWithClock(3, time.Second, fixedNow)

	var st State
	reset := fixedNow().Add(time.Minute)
	c.Observe(&st, Classification{Kind: KindRateLimited, ResetAt: reset})
	c.Observe(&st, Classification{Kind: KindTransient})

	assert.True(t, st.Throttled)
	assert.Equal(t, reset, st.ResetAt)
	assert.Equal(t, 2, st.RetryCount)
}
