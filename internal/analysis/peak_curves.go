package analysis

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"trainload/internal/store"
)

// PeakWindows are the mean-maximal durations in seconds, ascending.
// A window is a time span, not a sample count: at 1 Hz an N second window
// holds N+1 samples, so the 1s peak is the best mean of two adjacent samples.
var PeakWindows = []int{1, 5, 15, 30, 60, 180, 300, 600, 1200, 2400, 3600, 7200}

// DefaultCoverage is the fraction of a window the samples must span to count.
// It absorbs small irregularities in timestamp spacing.
const DefaultCoverage = 0.95

// PeakMetric is a stream quantity with a mean-maximal curve
type PeakMetric string

const (
	MetricHeartRate PeakMetric = "heartrate"
	MetricSpeed     PeakMetric = "speed"
	MetricPower     PeakMetric = "power"
)

// PeakMetrics lists metrics in output order
var PeakMetrics = []PeakMetric{MetricHeartRate, MetricSpeed, MetricPower}

// Scope selects which activities contribute to a curve: all of them, or one sport
type Scope string

const ScopeAll Scope = "all"

// SportScope returns the scope for a single sport
func SportScope(sport store.Sport) Scope { return Scope(sport) }

func (s Scope) matches(sport store.Sport) bool {
	return s == ScopeAll || s == Scope(sport)
}

// Lookback is the eligible period in days; 0 means all history
type Lookback int

const (
	Lookback90Days Lookback = 90
	LookbackYear   Lookback = 365
	LookbackAll    Lookback = 0
)

// ParseLookback accepts "90d", "365d", "1y" and "all"
func ParseLookback(s string) (Lookback, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "" || s == "all":
		return LookbackAll, nil
	case strings.HasSuffix(s, "y"):
		n, err := strconv.Atoi(strings.TrimSuffix(s, "y"))
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid lookback %q", s)
		}
		return Lookback(365 * n), nil
	case strings.HasSuffix(s, "d"):
		n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid lookback %q", s)
		}
		return Lookback(n), nil
	}
	return 0, fmt.Errorf("invalid lookback %q", s)
}

func (l Lookback) String() string {
	if l <= 0 {
		return "all"
	}
	return fmt.Sprintf("%dd", int(l))
}

// Includes reports whether an activity on day falls inside the lookback ending at now
func (l Lookback) Includes(day, now time.Time) bool {
	if l <= 0 {
		return true
	}
	cutoff := store.DayKey(now).AddDate(0, 0, -int(l))
	return !store.DayKey(day).Before(cutoff)
}

// PeakRecord is the best rolling average for one scope, metric and window
type PeakRecord struct {
	Scope         Scope
	Metric        PeakMetric
	WindowSeconds int
	Value         float64
	ActivityID    int64
	ActivityName  string
	Date          time.Time
}

// PeakOptions control curve extraction
type PeakOptions struct {
	Windows  []int   // defaults to PeakWindows
	Coverage float64 // defaults to DefaultCoverage
	Lookback Lookback
	Now      time.Time
}

func (o PeakOptions) withDefaults() PeakOptions {
	if len(o.Windows) == 0 {
		o.Windows = PeakWindows
	}
	if o.Coverage <= 0 || o.Coverage > 1 {
		o.Coverage = DefaultCoverage
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	return o
}

// ActivityPeaks is the per-window best average of one activity for each metric.
// A zero entry means the activity had no eligible window of that length.
type ActivityPeaks map[PeakMetric][]float64

// ComputeActivityPeaks runs the sliding window over every metric of one activity
func ComputeActivityPeaks(a store.Activity, windows []int, coverage float64) (ActivityPeaks, error) {
	s, err := usableStreams(a)
	if err != nil {
		return nil, err
	}

	peaks := make(ActivityPeaks)
	for _, m := range PeakMetrics {
		times, values := metricSamples(s, m)
		if len(values) == 0 {
			continue
		}
		best := make([]float64, len(windows))
		for i, w := range windows {
			best[i] = bestRollingAverage(times, values, w, coverage)
		}
		peaks[m] = best
	}
	return peaks, nil
}

// metricSamples returns the valid (time, value) pairs of one metric
func metricSamples(s *store.Streams, m PeakMetric) ([]int, []float64) {
	var raw []float64
	minValid := 0.0
	switch m {
	case MetricHeartRate:
		raw = s.Heartrate
		minValid = 1 // dropouts read as 0
	case MetricSpeed:
		raw = s.Speed
	case MetricPower:
		raw = s.Power
	}
	if raw == nil {
		return nil, nil
	}

	times := make([]int, 0, len(raw))
	values := make([]float64, 0, len(raw))
	for i, v := range raw {
		if v < minValid {
			continue
		}
		times = append(times, s.Time[i])
		values = append(values, v)
	}
	return times, values
}

// bestRollingAverage is a two-pointer sliding window: the right edge advances,
// the left edge shrinks whenever the span exceeds the window, and the mean is
// a candidate once the span covers coverage*window seconds.
func bestRollingAverage(times []int, values []float64, window int, coverage float64) float64 {
	need := coverage * float64(window)
	var best, sum float64
	left := 0
	for right := range values {
		sum += values[right]
		for times[right]-times[left] > window {
			sum -= values[left]
			left++
		}
		if float64(times[right]-times[left]) >= need {
			if avg := sum / float64(right-left+1); avg > best {
				best = avg
			}
		}
	}
	return best
}

// ComputePeakCurves returns the mean-maximal curve of every metric for one
// scope over the lookback, ordered by metric then window ascending. Windows
// no activity could fill are omitted. Activities with degenerate streams are
// reported in skipped.
func ComputePeakCurves(activities []store.Activity, scope Scope, opts PeakOptions) (records []PeakRecord, skipped []SkippedActivity) {
	opts = opts.withDefaults()
	return mergePeaks(activities, scope, opts, func(a store.Activity) (ActivityPeaks, error) {
		return ComputeActivityPeaks(a, opts.Windows, opts.Coverage)
	})
}

// ScopesFor returns ScopeAll followed by every sport present, in display order
func ScopesFor(activities []store.Activity) []Scope {
	present := make(map[store.Sport]bool)
	for _, a := range activities {
		present[a.Sport] = true
	}
	scopes := []Scope{ScopeAll}
	for _, sport := range store.Sports {
		if present[sport] {
			scopes = append(scopes, SportScope(sport))
		}
	}
	return scopes
}

func mergePeaks(activities []store.Activity, scope Scope, opts PeakOptions, peaksOf func(store.Activity) (ActivityPeaks, error)) ([]PeakRecord, []SkippedActivity) {
	type best struct {
		value    float64
		activity *store.Activity
	}
	results := make(map[PeakMetric][]best)
	var skipped []SkippedActivity

	for i := range activities {
		a := &activities[i]
		if !scope.matches(a.Sport) || !opts.Lookback.Includes(a.StartDateLocal, opts.Now) {
			continue
		}
		if a.Streams == nil {
			continue
		}
		peaks, err := peaksOf(*a)
		if err != nil {
			skipped = append(skipped, SkippedActivity{ActivityID: a.ID, Reason: err})
			continue
		}
		for m, values := range peaks {
			if results[m] == nil {
				results[m] = make([]best, len(opts.Windows))
			}
			for w, v := range values {
				// Strictly greater keeps the earliest activity on ties
				if v > results[m][w].value {
					results[m][w] = best{value: v, activity: a}
				}
			}
		}
	}

	var records []PeakRecord
	for _, m := range PeakMetrics {
		for w, b := range results[m] {
			if b.activity == nil {
				continue
			}
			records = append(records, PeakRecord{
				Scope:         scope,
				Metric:        m,
				WindowSeconds: opts.Windows[w],
				Value:         b.value,
				ActivityID:    b.activity.ID,
				ActivityName:  b.activity.Name,
				Date:          b.activity.StartDateLocal,
			})
		}
	}
	return records, skipped
}

// MaxPaceSecondsPerKm is the displayed pace ceiling for near-zero speed
const MaxPaceSecondsPerKm = 1200.0

// PaceSecondsPerKm converts speed in m/s to pace, capped for walking or stationary speeds
func PaceSecondsPerKm(speed float64) float64 {
	if speed <= 0.5 {
		return MaxPaceSecondsPerKm
	}
	return min(1000/speed, MaxPaceSecondsPerKm)
}
