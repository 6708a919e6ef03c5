package analysis

import (
	"math"
	"sort"
	"time"

	"trainload/internal/store"
)

// The readiness score is a simple linear heuristic: it starts at 100 and loses
// fixed points for each warning sign. It is not a statistical or clinical model.

// BaselineDays is the rolling window for HRV and resting heart rate baselines
const BaselineDays = 90

// HRVBand is the half-width of the normal HRV band around baseline
const HRVBand = 0.10

type penaltyTier struct {
	over    float64
	penalty float64
}

var (
	// prior-day TSS above threshold
	loadTiers = []penaltyTier{{150, 20}, {100, 12}, {60, 5}}

	// fractional HRV drop below baseline
	hrvTiers = []penaltyTier{{0.20, 25}, {0.10, 15}, {0.05, 5}}
)

func tierPenalty(tiers []penaltyTier, value float64) float64 {
	for _, t := range tiers {
		if value > t.over {
			return t.penalty
		}
	}
	return 0
}

func sleepPenalty(hours float64) float64 {
	switch {
	case hours <= 0:
		return 0 // not recorded
	case hours < 5:
		return 25
	case hours < 6:
		return 15
	case hours < 7:
		return 7
	}
	return 0
}

func restingHRPenalty(delta float64) float64 {
	switch {
	case delta >= 7:
		return 20
	case delta >= 5:
		return 12
	case delta >= 3:
		return 5
	}
	return 0
}

// ReadinessPenalties is the breakdown of points deducted on one day
type ReadinessPenalties struct {
	Load      float64
	Sleep     float64
	HRV       float64
	RestingHR float64
}

// Total returns the sum of all penalties
func (p ReadinessPenalties) Total() float64 {
	return p.Load + p.Sleep + p.HRV + p.RestingHR
}

// ReadinessSample is the readiness score of one day with its inputs
type ReadinessSample struct {
	Date        time.Time
	Score       float64 // 0-100
	Penalties   ReadinessPenalties
	PriorDayTSS float64
	HRV         float64
	HRVBaseline float64 // 0 when no history
	HRVLow      float64
	HRVHigh     float64
	RestingHR   float64
	RHRBaseline float64
	SleepHours  float64
	IsSimulated bool
}

// InNormalBand reports whether HRV sits within baseline ±10%
func (r ReadinessSample) InNormalBand() bool {
	if r.HRVBaseline <= 0 || r.HRV <= 0 {
		return true
	}
	return r.HRV >= r.HRVLow && r.HRV <= r.HRVHigh
}

// ComputeReadiness scores every day that has a wellness sample. Baselines are
// the mean of positive values over the BaselineDays before that day.
func ComputeReadiness(series []DailyLoadPoint, wellness []store.WellnessSample) []ReadinessSample {
	return ComputeReadinessWindow(series, wellness, BaselineDays)
}

// ComputeReadinessWindow is ComputeReadiness with a custom baseline window.
// A window <= 0 uses BaselineDays.
func ComputeReadinessWindow(series []DailyLoadPoint, wellness []store.WellnessSample, baselineDays int) []ReadinessSample {
	if baselineDays <= 0 {
		baselineDays = BaselineDays
	}
	if len(wellness) == 0 {
		return nil
	}

	samples := append([]store.WellnessSample(nil), wellness...)
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Date.Before(samples[j].Date) })

	loadByDay := make(map[time.Time]float64, len(series))
	for _, p := range series {
		loadByDay[store.DayKey(p.Date)] = p.DailyTSS
	}

	hrv := newRollingMean(baselineDays)
	rhr := newRollingMean(baselineDays)

	out := make([]ReadinessSample, 0, len(samples))
	for _, w := range samples {
		day := store.DayKey(w.Date)
		hrv.advance(day)
		rhr.advance(day)

		r := ReadinessSample{
			Date:        day,
			PriorDayTSS: loadByDay[day.AddDate(0, 0, -1)],
			HRV:         w.HRV,
			RestingHR:   w.RestingHR,
			SleepHours:  w.SleepHours,
			IsSimulated: w.IsSimulated,
			HRVBaseline: hrv.mean(),
			RHRBaseline: rhr.mean(),
		}
		r.HRVLow = r.HRVBaseline * (1 - HRVBand)
		r.HRVHigh = r.HRVBaseline * (1 + HRVBand)

		r.Penalties.Load = tierPenalty(loadTiers, r.PriorDayTSS)
		r.Penalties.Sleep = sleepPenalty(w.SleepHours)
		if r.HRVBaseline > 0 && w.HRV > 0 {
			drop := (r.HRVBaseline - w.HRV) / r.HRVBaseline
			r.Penalties.HRV = tierPenalty(hrvTiers, drop)
		}
		if r.RHRBaseline > 0 && w.RestingHR > 0 {
			r.Penalties.RestingHR = restingHRPenalty(w.RestingHR - r.RHRBaseline)
		}

		r.Score = clamp(100-r.Penalties.Total(), 0, 100)
		out = append(out, r)

		hrv.add(day, w.HRV)
		rhr.add(day, w.RestingHR)
	}
	return out
}

// SimulatedShare returns the fraction of readiness samples built on simulated input
func SimulatedShare(samples []ReadinessSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	n := 0
	for _, s := range samples {
		if s.IsSimulated {
			n++
		}
	}
	return float64(n) / float64(len(samples))
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// rollingMean keeps positive values whose day lies within the last days days
type rollingMean struct {
	days   int
	dates  []time.Time
	values []float64
	sum    float64
}

func newRollingMean(days int) *rollingMean {
	return &rollingMean{days: days}
}

// advance evicts values older than the window ending the day before today
func (r *rollingMean) advance(today time.Time) {
	cutoff := today.AddDate(0, 0, -r.days)
	for len(r.dates) > 0 && r.dates[0].Before(cutoff) {
		r.sum -= r.values[0]
		r.dates = r.dates[1:]
		r.values = r.values[1:]
	}
}

func (r *rollingMean) add(day time.Time, v float64) {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	r.dates = append(r.dates, day)
	r.values = append(r.values, v)
	r.sum += v
}

func (r *rollingMean) mean() float64 {
	if len(r.values) == 0 {
		return 0
	}
	return r.sum / float64(len(r.values))
}
