package strava

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeClock(start time.Time) (func() time.Time, func(time.Duration)) {
	now := start
	return func() time.Time { return now }, func(d time.Duration) { now = now.Add(d) }
}

func newFakeLimiter(short, daily int, interval time.Duration, start time.Time) (*RateLimiter, func(time.Duration)) {
	now, advance := fakeClock(start)
	r := NewRateLimiterWithLimits(short, daily, interval)
	r.now = now
	r.shortResetsAt = time.Time{}
	r.dailyResetsAt = time.Time{}
	r.resetWindows(now())
	return r, advance
}

func TestRateLimiter_ShortWindow(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	r, advance := newFakeLimiter(2, 100, 0, start)
	ctx := context.Background()

	require.NoError(t, r.Wait(ctx))
	require.NoError(t, r.Wait(ctx))
	assert.Equal(t, ShortWindow, r.delay(start))

	advance(ShortWindow)
	assert.Zero(t, r.delay(start.Add(ShortWindow)))
	require.NoError(t, r.Wait(ctx))

	short, daily := r.Usage()
	assert.Equal(t, 1, short)
	assert.Equal(t, 3, daily)
}

func TestRateLimiter_DailyWindowResetsAtMidnightUTC(t *testing.T) {
	start := time.Date(2024, 5, 1, 22, 0, 0, 0, time.UTC)
	r, _ := newFakeLimiter(100, 1, 0, start)

	require.NoError(t, r.Wait(context.Background()))
	assert.Equal(t, 2*time.Hour, r.delay(start))
}

func TestRateLimiter_MinInterval(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	r, _ := newFakeLimiter(100, 1000, time.Second, start)

	require.NoError(t, r.Wait(context.Background()))
	assert.Equal(t, time.Second, r.delay(start))
	assert.Equal(t, 400*time.Millisecond, r.delay(start.Add(600*time.Millisecond)))
}

func TestRateLimiter_WaitHonoursContext(t *testing.T) {
	r, _ := newFakeLimiter(1, 1000, 0, time.Now())
	require.NoError(t, r.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Wait(ctx), context.Canceled)
}

func TestRateLimiter_UpdateFromHeaders(t *testing.T) {
	r := NewRateLimiter()
	h := http.Header{}
	h.Set("X-RateLimit-Limit", "200, 2000")
	h.Set("X-RateLimit-Usage", "50,700")
	r.UpdateFromHeaders(h)

	short, daily := r.Status()
	assert.Equal(t, 150, short)
	assert.Equal(t, 1300, daily)

	// Malformed headers are ignored
	h.Set("X-RateLimit-Usage", "garbage")
	r.UpdateFromHeaders(h)
	short, _ = r.Status()
	assert.Equal(t, 150, short)
}
