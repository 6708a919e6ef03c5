package analysis

import (
	"sync"

	"trainload/internal/store"
)

type peakKey struct {
	activityID int64
	version    int64
}

type peakEntry struct {
	peaks ActivityPeaks
	err   error
}

// PeakCache memoizes per-activity peaks keyed by (activity id, settings version)
// so changing the lookback or scope doesn't rescan every stream.
// The window list and coverage are fixed for the cache's lifetime.
type PeakCache struct {
	mu       sync.Mutex
	windows  []int
	coverage float64
	entries  map[peakKey]peakEntry
	hits     int
	misses   int
}

// NewPeakCache creates a cache; zero windows or coverage take the defaults
func NewPeakCache(windows []int, coverage float64) *PeakCache {
	opts := PeakOptions{Windows: windows, Coverage: coverage}.withDefaults()
	return &PeakCache{
		windows:  opts.Windows,
		coverage: opts.Coverage,
		entries:  make(map[peakKey]peakEntry),
	}
}

// Curves is ComputePeakCurves backed by the cache
func (c *PeakCache) Curves(activities []store.Activity, scope Scope, opts PeakOptions, settingsVersion int64) ([]PeakRecord, []SkippedActivity) {
	opts.Windows = c.windows
	opts.Coverage = c.coverage
	opts = opts.withDefaults()
	return mergePeaks(activities, scope, opts, func(a store.Activity) (ActivityPeaks, error) {
		return c.get(a, settingsVersion)
	})
}

func (c *PeakCache) get(a store.Activity, version int64) (ActivityPeaks, error) {
	key := peakKey{activityID: a.ID, version: version}

	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		c.hits++
		c.mu.Unlock()
		return e.peaks, e.err
	}
	c.misses++
	c.mu.Unlock()

	peaks, err := ComputeActivityPeaks(a, c.windows, c.coverage)

	c.mu.Lock()
	c.entries[key] = peakEntry{peaks: peaks, err: err}
	c.mu.Unlock()
	return peaks, err
}

// Invalidate drops the cached peaks of one activity, e.g. after its streams change
func (c *PeakCache) Invalidate(activityID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.activityID == activityID {
			delete(c.entries, k)
		}
	}
}

// Prune drops entries of any settings version other than current
func (c *PeakCache) Prune(current int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.version != current {
			delete(c.entries, k)
		}
	}
}

// Stats returns cache hits, misses and the number of entries
func (c *PeakCache) Stats() (hits, misses, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.entries)
}
