package analysis

import (
	"math"

	"trainload/internal/store"
)

// LightActivityRate is the flat hourly stress applied when heart rate is unusable
const LightActivityRate = 30.0

// MinPlausibleHR is the average heart rate at or below which the reading is ignored
const MinPlausibleHR = 40.0

type stressBand struct {
	below float64 // ratio upper bound, exclusive
	rate  float64 // stress per hour
}

// Hourly stress rate by hr/LTHR, used when integrating over a heart rate stream
var streamStressBands = []stressBand{
	{0.81, 20},
	{0.90, 50},
	{0.94, 70},
	{1.00, 90},
	{1.03, 105},
	{1.06, 120},
}

const streamStressTop = 140.0

func streamStressRate(ratio float64) float64 {
	for _, b := range streamStressBands {
		if ratio < b.below {
			return b.rate
		}
	}
	return streamStressTop
}

// averageStressRate is the coarse four-bucket table for activities without streams.
// A ratio of exactly 1.00 scores as threshold effort.
func averageStressRate(ratio float64) float64 {
	switch {
	case ratio < 0.81:
		return 25
	case ratio < 0.90:
		return 55
	case ratio <= 1.00:
		return 85
	default:
		return 115
	}
}

// ComputeTSS returns the training stress score of one activity.
// A usable heart rate stream is integrated sample by sample; otherwise the
// average heart rate is scored against the coarse table.
func ComputeTSS(a store.Activity, settings store.AthleteSettings) int {
	tss, _ := computeTSS(a, settings)
	return tss
}

func computeTSS(a store.Activity, settings store.AthleteSettings) (int, []Substitution) {
	if a.DurationMin <= 0 {
		return 0, nil
	}

	ss, subs := ResolveSportSettings(settings, a.Sport)
	for i := range subs {
		subs[i].ActivityID = a.ID
	}

	if s, err := usableStreams(a); err == nil && s.HasHeartrate() {
		if total, ok := integrateStress(s, ss.LTHR); ok {
			return int(math.Round(total)), subs
		}
	}

	hours := a.DurationMin / 60
	if a.AverageHeartrate <= MinPlausibleHR {
		return int(math.Round(LightActivityRate * hours)), subs
	}
	return int(math.Round(averageStressRate(a.AverageHeartrate/ss.LTHR) * hours)), subs
}

// integrateStress accumulates rate*dt over consecutive sample pairs using the
// later sample's heart rate. Pairs with a dropout or no elapsed time add nothing.
// ok is false when no pair contributed.
func integrateStress(s *store.Streams, lthr float64) (total float64, ok bool) {
	for i := 1; i < len(s.Time); i++ {
		dt := float64(s.Time[i] - s.Time[i-1])
		hr := s.Heartrate[i]
		if dt <= 0 || hr <= 0 {
			continue
		}
		total += streamStressRate(hr/lthr) * dt / 3600
		ok = true
	}
	return total, ok
}

// AnnotateTSS returns copies of activities with TSS set from the current settings,
// along with every default that had to be substituted.
func AnnotateTSS(activities []store.Activity, settings store.AthleteSettings) ([]store.Activity, []Substitution) {
	out := make([]store.Activity, len(activities))
	var subs []Substitution
	seen := make(map[store.Sport]bool)

	for i, a := range activities {
		tss, s := computeTSS(a, settings)
		a.TSS = tss
		out[i] = a
		// One report per sport is enough; every activity of the sport shares it.
		if len(s) > 0 && !seen[a.Sport] {
			seen[a.Sport] = true
			subs = append(subs, s...)
		}
	}
	return out, subs
}

// TRIMP calculates Banister's training impulse:
// duration (min) * ΔHR ratio * e^(1.92 * ΔHR ratio)
func TRIMP(a store.Activity, restingHR, maxHR float64) float64 {
	avgHR := 0.0
	if s, err := usableStreams(a); err == nil {
		avgHR = averageHR(s.Heartrate)
	}
	if avgHR == 0 {
		avgHR = a.AverageHeartrate
	}
	if avgHR <= MinPlausibleHR {
		return 0
	}

	hrReserve := maxHR - restingHR
	if hrReserve <= 0 {
		return 0
	}

	ratio := (avgHR - restingHR) / hrReserve
	ratio = math.Max(0, math.Min(1, ratio))

	return a.DurationMin * ratio * math.Exp(1.92*ratio)
}
