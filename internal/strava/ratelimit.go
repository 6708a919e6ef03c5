package strava

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Strava rate limits:
// - 100 requests per 15 minutes
// - 1000 requests per day
const (
	DefaultShortLimit  = 100
	DefaultDailyLimit  = 1000
	ShortWindow        = 15 * time.Minute
	DefaultMinInterval = 150 * time.Millisecond // ~6.6 req/s max
)

// RateLimiter manages Strava API rate limits
type RateLimiter struct {
	mu sync.Mutex

	// 15-minute window
	shortLimit    int
	shortUsage    int
	shortResetsAt time.Time

	// Daily window
	dailyLimit    int
	dailyUsage    int
	dailyResetsAt time.Time

	// Minimum interval between requests
	minInterval time.Duration
	lastRequest time.Time

	now func() time.Time
}

// NewRateLimiter creates a new rate limiter with Strava's limits
func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithLimits(DefaultShortLimit, DefaultDailyLimit, DefaultMinInterval)
}

// NewRateLimiterWithLimits creates a rate limiter with custom limits
func NewRateLimiterWithLimits(shortLimit, dailyLimit int, minInterval time.Duration) *RateLimiter {
	r := &RateLimiter{
		shortLimit:  shortLimit,
		dailyLimit:  dailyLimit,
		minInterval: minInterval,
		now:         time.Now,
	}
	r.resetWindows(r.now())
	return r
}

// resetWindows starts fresh windows if the current ones have expired.
// Strava's daily window resets at midnight UTC.
func (r *RateLimiter) resetWindows(now time.Time) {
	if !now.Before(r.shortResetsAt) {
		r.shortUsage = 0
		r.shortResetsAt = now.Add(ShortWindow)
	}
	if !now.Before(r.dailyResetsAt) {
		r.dailyUsage = 0
		r.dailyResetsAt = now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	}
}

// delay reports how long the caller must wait before the next request
func (r *RateLimiter) delay(now time.Time) time.Duration {
	r.resetWindows(now)

	var wait time.Duration
	if r.shortUsage >= r.shortLimit {
		wait = r.shortResetsAt.Sub(now)
	}
	if r.dailyUsage >= r.dailyLimit {
		wait = max(wait, r.dailyResetsAt.Sub(now))
	}
	if elapsed := now.Sub(r.lastRequest); elapsed < r.minInterval {
		wait = max(wait, r.minInterval-elapsed)
	}
	return wait
}

// Wait blocks until a request can be made without exceeding rate limits
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := r.now()
		wait := r.delay(now)
		if wait <= 0 {
			r.shortUsage++
			r.dailyUsage++
			r.lastRequest = now
			r.mu.Unlock()
			return nil
		}
		r.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// UpdateFromHeaders updates rate limit state from Strava response headers
func (r *RateLimiter) UpdateFromHeaders(h http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Strava returns: X-RateLimit-Limit: "100,1000" and X-RateLimit-Usage: "34,512"
	if short, daily, ok := parsePair(h.Get("X-RateLimit-Usage")); ok {
		r.shortUsage, r.dailyUsage = short, daily
	}
	if short, daily, ok := parsePair(h.Get("X-RateLimit-Limit")); ok {
		r.shortLimit, r.dailyLimit = short, daily
	}
}

func parsePair(v string) (int, int, bool) {
	parts := strings.Split(v, ",")
	if len(parts) < 2 {
		return 0, 0, false
	}
	a, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	b, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return a, b, true
}

// Exhaust marks the short window as used up, as after a 429 response
func (r *RateLimiter) Exhaust() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shortUsage = r.shortLimit
}

// Status returns current rate limit status
func (r *RateLimiter) Status() (shortRemaining, dailyRemaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shortLimit - r.shortUsage, r.dailyLimit - r.dailyUsage
}

// Usage returns current usage counts
func (r *RateLimiter) Usage() (shortUsage, dailyUsage int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shortUsage, r.dailyUsage
}
