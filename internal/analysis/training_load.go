package analysis

import (
	"sort"
	"time"

	"trainload/internal/store"
)

// LoadConstants are the impulse-response time constants in days
type LoadConstants struct {
	ChronicDays float64
	AcuteDays   float64
}

// DefaultLoadConstants returns the conventional 42/7 day windows
func DefaultLoadConstants() LoadConstants {
	return LoadConstants{ChronicDays: 42, AcuteDays: 7}
}

// Resolve replaces non-positive windows with the defaults
func (c LoadConstants) Resolve() (LoadConstants, []Substitution) {
	def := DefaultLoadConstants()
	var subs []Substitution
	if c.ChronicDays <= 0 {
		subs = append(subs, Substitution{Field: "chronic_days", Given: c.ChronicDays, Used: def.ChronicDays})
		c.ChronicDays = def.ChronicDays
	}
	if c.AcuteDays <= 0 {
		subs = append(subs, Substitution{Field: "acute_days", Given: c.AcuteDays, Used: def.AcuteDays})
		c.AcuteDays = def.AcuteDays
	}
	return c, subs
}

// DailyLoadPoint is the load model state at the end of one calendar day
type DailyLoadPoint struct {
	Date     time.Time
	CTL      float64 // Chronic Training Load - "Fitness"
	ATL      float64 // Acute Training Load - "Fatigue"
	TSB      float64 // Training Stress Balance (CTL - ATL) - "Form"
	DailyTSS float64
}

// DailyTotals sums activity TSS per local calendar day
func DailyTotals(activities []store.Activity) map[time.Time]float64 {
	totals := make(map[time.Time]float64)
	for _, a := range activities {
		totals[store.DayKey(a.StartDateLocal)] += float64(a.TSS)
	}
	return totals
}

// ComputeLoadSeries walks every day from the first activity through today
// (or the last activity, if later) and returns one point per day with no gaps.
// CTL and ATL are seeded with the first day's total. Activities must already
// carry TSS.
func ComputeLoadSeries(activities []store.Activity, constants LoadConstants, today time.Time) []DailyLoadPoint {
	if len(activities) == 0 {
		return nil
	}
	constants, _ = constants.Resolve()
	totals := DailyTotals(activities)
	first, last := dayRange(totals)
	return extendSeries(nil, totals, constants, first, seriesEnd(last, today))
}

func dayRange(totals map[time.Time]float64) (first, last time.Time) {
	days := make([]time.Time, 0, len(totals))
	for d := range totals {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days[0], days[len(days)-1]
}

func seriesEnd(lastActivityDay, today time.Time) time.Time {
	end := store.DayKey(today)
	if lastActivityDay.After(end) {
		return lastActivityDay
	}
	return end
}

// extendSeries continues the recursion from the last point of series
// (or seeds it at from when series is empty) through end inclusive.
func extendSeries(series []DailyLoadPoint, totals map[time.Time]float64, c LoadConstants, from, end time.Time) []DailyLoadPoint {
	d := from
	if len(series) == 0 {
		seed := totals[d]
		series = append(series, DailyLoadPoint{Date: d, CTL: seed, ATL: seed, TSB: 0, DailyTSS: seed})
		d = d.AddDate(0, 0, 1)
	}

	prev := series[len(series)-1]
	ctl, atl := prev.CTL, prev.ATL
	for ; !d.After(end); d = d.AddDate(0, 0, 1) {
		tss := totals[d]
		ctl += (tss - ctl) / c.ChronicDays
		atl += (tss - atl) / c.AcuteDays
		series = append(series, DailyLoadPoint{
			Date:     d,
			CTL:      ctl,
			ATL:      atl,
			TSB:      ctl - atl,
			DailyTSS: tss,
		})
	}
	return series
}

// CurrentLoad returns the last point of a series
func CurrentLoad(series []DailyLoadPoint) DailyLoadPoint {
	if len(series) == 0 {
		return DailyLoadPoint{}
	}
	return series[len(series)-1]
}

// RampRate is the CTL change over the 7 days ending at index i.
// With fewer than 7 prior days the first day is used.
func RampRate(series []DailyLoadPoint, i int) float64 {
	if i < 0 || i >= len(series) {
		return 0
	}
	j := i - 7
	if j < 0 {
		j = 0
	}
	return series[i].CTL - series[j].CTL
}

// TrainingPhase classifies the direction of fitness change
type TrainingPhase string

const (
	PhaseOverreaching TrainingPhase = "overreaching"
	PhaseProductive   TrainingPhase = "productive"
	PhaseBuilding     TrainingPhase = "building"
	PhaseTapering     TrainingPhase = "tapering"
)

// ClassifyPhase maps a weekly ramp rate to a training phase
func ClassifyPhase(ramp float64) TrainingPhase {
	switch {
	case ramp > 8:
		return PhaseOverreaching
	case ramp > 3:
		return PhaseProductive
	case ramp > 0:
		return PhaseBuilding
	default:
		return PhaseTapering
	}
}

// FormDescription returns a human-readable description of TSB
func FormDescription(tsb float64) string {
	switch {
	case tsb > 25:
		return "Very fresh (possibly detrained)"
	case tsb > 10:
		return "Fresh and ready to race"
	case tsb > 0:
		return "Neutral - good for training"
	case tsb > -10:
		return "Slightly fatigued"
	case tsb > -25:
		return "Tired but building fitness"
	default:
		return "Very fatigued - rest needed"
	}
}
