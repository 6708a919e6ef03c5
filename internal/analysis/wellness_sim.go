package analysis

import (
	"math"
	"time"

	"trainload/internal/store"
)

// SimulatedSource labels wellness samples produced by SimulateWellness
const SimulatedSource = "simulated"

// SimulateWellness derives a stand-in wellness sample for each day of the load
// series, used only when no measured wellness data exists. Fatigue above
// fitness (ATL > CTL) depresses HRV and raises resting heart rate; the day's
// load shortens sleep. Every sample is flagged IsSimulated. The output is a
// deterministic function of its inputs.
func SimulateWellness(series []DailyLoadPoint, restingHR float64, since time.Time) []store.WellnessSample {
	if restingHR <= 0 {
		restingHR = DefaultRestingHR
	}

	var out []store.WellnessSample
	for _, p := range series {
		if !since.IsZero() && p.Date.Before(store.DayKey(since)) {
			continue
		}
		overload := math.Max(0, p.ATL-p.CTL)
		out = append(out, store.WellnessSample{
			Date:        p.Date,
			HRV:         math.Max(20, 65-0.4*overload),
			SleepHours:  math.Max(4, 7.5-0.004*p.DailyTSS),
			RestingHR:   restingHR + 0.15*overload,
			Source:      SimulatedSource,
			IsSimulated: true,
		})
	}
	return out
}
