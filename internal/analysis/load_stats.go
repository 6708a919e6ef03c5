package analysis

import "math"

// DefaultMonotonySentinel is reported as monotony when a week of non-zero
// load has no variability at all.
const DefaultMonotonySentinel = 10.0

// WeeklyStats are Foster's monotony and strain over the last 7 days plus
// the acute:chronic workload ratio over the last 28.
type WeeklyStats struct {
	WeeklyTSS float64
	Mean      float64
	StdDev    float64 // population
	Monotony  float64
	Strain    float64
	ACWR      float64
	Saturated bool // monotony is the sentinel value
}

// ComputeWeeklyStats derives weekly statistics from the tail of a load series.
// Histories shorter than the window use the days available.
func ComputeWeeklyStats(series []DailyLoadPoint, sentinel float64) WeeklyStats {
	if sentinel <= 0 {
		sentinel = DefaultMonotonySentinel
	}

	week := tailTotals(series, 7)
	if len(week) == 0 {
		return WeeklyStats{}
	}

	var stats WeeklyStats
	for _, v := range week {
		stats.WeeklyTSS += v
	}
	stats.Mean = stats.WeeklyTSS / float64(len(week))

	var variance float64
	for _, v := range week {
		d := v - stats.Mean
		variance += d * d
	}
	stats.StdDev = math.Sqrt(variance / float64(len(week)))

	switch {
	case stats.StdDev > 0:
		stats.Monotony = stats.Mean / stats.StdDev
	case stats.Mean > 0:
		stats.Monotony = sentinel
		stats.Saturated = true
	}
	stats.Strain = stats.WeeklyTSS * stats.Monotony

	if chronic := mean(tailTotals(series, 28)); chronic > 0 {
		stats.ACWR = stats.Mean / chronic
	}
	return stats
}

func tailTotals(series []DailyLoadPoint, n int) []float64 {
	if n > len(series) {
		n = len(series)
	}
	out := make([]float64, n)
	for i, p := range series[len(series)-n:] {
		out[i] = p.DailyTSS
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
