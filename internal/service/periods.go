package service

import (
	"time"

	"trainload/internal/store"
)

// Period types for PeriodStatsFor
const (
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// PeriodStats holds aggregated load for a calendar period
type PeriodStats struct {
	PeriodStart   time.Time
	PeriodLabel   string
	Count         int
	TotalTSS      int
	DurationMin   float64
	TotalDistance float64 // meters
	AvgHR         float64 // mean of activity averages with heart rate
}

// ComparisonStats holds two periods and their deltas
type ComparisonStats struct {
	Label         string
	Current       PeriodStats
	Previous      PeriodStats
	DeltaCount    int
	DeltaTSS      int
	DeltaDuration float64
	DeltaDistance float64
}

// PeriodStatsFor aggregates activities into the last numPeriods weeks or months ending at now.
// Activities must carry TSS already (see Snapshot.Activities).
func PeriodStatsFor(activities []store.Activity, periodType string, numPeriods int, now time.Time) []PeriodStats {
	today := store.DayKey(now)
	stats := make([]PeriodStats, numPeriods)

	currentMonday := getMonday(today)
	currentFirst := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < numPeriods; i++ {
		var start time.Time
		var label string
		if periodType == PeriodWeekly {
			start = currentMonday.AddDate(0, 0, -7*(numPeriods-1-i))
			label = start.Format("Jan 02")
		} else {
			start = currentFirst.AddDate(0, -(numPeriods - 1 - i), 0)
			label = start.Format("Jan 2006")
		}
		stats[i] = PeriodStats{PeriodStart: start, PeriodLabel: label}
	}

	for i := range stats {
		end := periodEnd(stats[i].PeriodStart, periodType)
		stats[i] = aggregate(activities, stats[i].PeriodStart, end, stats[i].PeriodLabel)
	}
	return stats
}

// Comparisons returns week-over-week, month-over-month and rolling 30-day comparisons
func Comparisons(activities []store.Activity, now time.Time) []ComparisonStats {
	today := store.DayKey(now)
	tomorrow := today.AddDate(0, 0, 1)

	monday := getMonday(today)
	lastMonday := monday.AddDate(0, 0, -7)
	week := buildComparison("This Week vs Last Week",
		aggregate(activities, monday, tomorrow, "This Week"),
		aggregate(activities, lastMonday, monday, "Last Week"))

	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastFirst := first.AddDate(0, -1, 0)
	month := buildComparison("This Month vs Last Month",
		aggregate(activities, first, tomorrow, first.Format("Jan 2006")),
		aggregate(activities, lastFirst, first, lastFirst.Format("Jan 2006")))

	thirtyDaysAgo := tomorrow.AddDate(0, 0, -Rolling30Days)
	sixtyDaysAgo := tomorrow.AddDate(0, 0, -Rolling30Days*2)
	rolling := buildComparison("Rolling 30 Days vs Prior 30",
		aggregate(activities, thirtyDaysAgo, tomorrow, "Last 30 Days"),
		aggregate(activities, sixtyDaysAgo, thirtyDaysAgo, "Prior 30 Days"))

	return []ComparisonStats{week, month, rolling}
}

// aggregate sums activities whose local day falls in [start, end)
func aggregate(activities []store.Activity, start, end time.Time, label string) PeriodStats {
	stats := PeriodStats{PeriodStart: start, PeriodLabel: label}

	var hrSum float64
	var hrCount int
	for _, a := range activities {
		day := store.DayKey(a.StartDateLocal)
		if day.Before(start) || !day.Before(end) {
			continue
		}
		stats.Count++
		stats.TotalTSS += a.TSS
		stats.DurationMin += a.DurationMin
		stats.TotalDistance += a.Distance
		if a.AverageHeartrate > 0 {
			hrSum += a.AverageHeartrate
			hrCount++
		}
	}
	if hrCount > 0 {
		stats.AvgHR = hrSum / float64(hrCount)
	}
	return stats
}

func periodEnd(start time.Time, periodType string) time.Time {
	if periodType == PeriodWeekly {
		return start.AddDate(0, 0, 7)
	}
	return start.AddDate(0, 1, 0)
}

func buildComparison(label string, current, previous PeriodStats) ComparisonStats {
	return ComparisonStats{
		Label:         label,
		Current:       current,
		Previous:      previous,
		DeltaCount:    current.Count - previous.Count,
		DeltaTSS:      current.TotalTSS - previous.TotalTSS,
		DeltaDuration: current.DurationMin - previous.DurationMin,
		DeltaDistance: current.TotalDistance - previous.TotalDistance,
	}
}

// getMonday returns the Monday that starts the week containing day
func getMonday(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
