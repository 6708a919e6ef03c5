package analysis

import (
	"sync"
	"time"

	"trainload/internal/store"
)

// LoadCache memoizes the load series and resumes the recursion from the first
// day whose total changed. Results are identical to ComputeLoadSeries.
// A change of settings version or constants discards everything.
type LoadCache struct {
	mu        sync.Mutex
	constants LoadConstants
	version   int64
	totals    map[time.Time]float64
	series    []DailyLoadPoint
	resumed   int
}

// NewLoadCache creates an empty cache for the given constants
func NewLoadCache(constants LoadConstants) *LoadCache {
	constants, _ = constants.Resolve()
	return &LoadCache{constants: constants}
}

// SetConstants changes the time constants and drops the cached series
func (c *LoadCache) SetConstants(constants LoadConstants) {
	constants, _ = constants.Resolve()
	c.mu.Lock()
	defer c.mu.Unlock()
	if constants != c.constants {
		c.constants = constants
		c.reset()
	}
}

// Reset drops the cached series
func (c *LoadCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func (c *LoadCache) reset() {
	c.totals = nil
	c.series = nil
}

// Resumed reports how many leading days the last Series call reused
func (c *LoadCache) Resumed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resumed
}

// Series returns the load series for activities annotated under settingsVersion
func (c *LoadCache) Series(activities []store.Activity, settingsVersion int64, today time.Time) []DailyLoadPoint {
	c.mu.Lock()
	defer c.mu.Unlock()

	if settingsVersion != c.version {
		c.version = settingsVersion
		c.reset()
	}

	if len(activities) == 0 {
		c.reset()
		c.resumed = 0
		return nil
	}

	totals := DailyTotals(activities)
	first, last := dayRange(totals)
	end := seriesEnd(last, today)

	keep := c.reusableDays(totals, first, end)
	c.resumed = keep

	series := append([]DailyLoadPoint(nil), c.series[:keep]...)
	from := first.AddDate(0, 0, keep)
	series = extendSeries(series, totals, c.constants, from, end)

	c.totals = totals
	c.series = series
	return append([]DailyLoadPoint(nil), series...)
}

// reusableDays counts the leading cached points still valid for totals
func (c *LoadCache) reusableDays(totals map[time.Time]float64, first, end time.Time) int {
	if len(c.series) == 0 || !c.series[0].Date.Equal(first) {
		return 0
	}
	if c.series[len(c.series)-1].Date.After(end) {
		return 0
	}

	keep := len(c.series)
	for d, v := range totals {
		if c.totals[d] != v {
			keep = min(keep, dayIndex(first, d))
		}
	}
	for d, v := range c.totals {
		if _, ok := totals[d]; !ok && v != 0 {
			keep = min(keep, dayIndex(first, d))
		}
	}
	if keep < 0 {
		return 0
	}
	return keep
}

func dayIndex(first, d time.Time) int {
	return int(d.Sub(first).Hours() / 24)
}
