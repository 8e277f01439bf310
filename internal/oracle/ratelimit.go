package oracle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrDailyLimitReached is returned when the daily search quota has been exhausted.
var ErrDailyLimitReached = errors.New("daily oracle limit reached")

// RateLimiter bounds outbound oracle calls with a token bucket and an
// optional rolling 24-hour quota. One RateLimiter is shared by every
// concurrent scan worker.
type RateLimiter struct {
	limiter  *rate.Limiter
	maxDaily int64

	mu      sync.Mutex
	daily   int64
	resetAt time.Time
	nowFunc func() time.Time
}

// RateLimiterOption configures the RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithRateLimiterNowFunc overrides the time function for testing.
func WithRateLimiterNowFunc(f func() time.Time) RateLimiterOption {
	return func(r *RateLimiter) {
		r.nowFunc = f
	}
}

// NewRateLimiter creates a limiter allowing perSecond calls with the given
// burst. maxDaily <= 0 disables the daily quota.
func NewRateLimiter(perSecond float64, burst int, maxDaily int64, opts ...RateLimiterOption) *RateLimiter {
	r := &RateLimiter{
		limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
		maxDaily: maxDaily,
		nowFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.resetAt = r.nowFunc().Add(24 * time.Hour)
	return r
}

// Wait blocks until a call is allowed or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.reserveDaily(); err != nil {
		return err
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	return nil
}

func (r *RateLimiter) reserveDaily() error {
	if r.maxDaily <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.nowFunc()
	if now.After(r.resetAt) {
		r.daily = 0
		r.resetAt = now.Add(24 * time.Hour)
	}
	if r.daily >= r.maxDaily {
		return fmt.Errorf("%w (%d/%d)", ErrDailyLimitReached, r.daily, r.maxDaily)
	}
	r.daily++
	return nil
}

// DailyCount returns the number of calls made in the current window.
func (r *RateLimiter) DailyCount() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.daily
}

// Remaining returns the calls left in the current window, or -1 when the
// daily quota is disabled.
func (r *RateLimiter) Remaining() int64 {
	if r.maxDaily <= 0 {
		return -1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return max(r.maxDaily-r.daily, 0)
}

// MaxDaily returns the configured daily quota; 0 means unlimited.
func (r *RateLimiter) MaxDaily() int64 {
	return max(r.maxDaily, 0)
}

// ResetAt returns when the current daily window ends.
func (r *RateLimiter) ResetAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resetAt
}
