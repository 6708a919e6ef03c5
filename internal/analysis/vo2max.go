package analysis

import (
	"time"

	"trainload/internal/store"
)

// VO2maxMethod names the heuristic behind an estimate
type VO2maxMethod string

const (
	MethodRunSpeed  VO2maxMethod = "run_speed_hr"
	MethodBikePower VO2maxMethod = "bike_power_hr"
	MethodHRRatio   VO2maxMethod = "hr_ratio"
)

// Effort selection and eligibility
const (
	VO2maxEffortSeconds = 1200
	minRunSpeed         = 1.0 // m/s
	minHRFraction       = 0.65
	maxHRFraction       = 1.0
)

// VO2maxEstimate is an approximate maximal aerobic capacity in ml/kg/min.
// Heuristic is set when the value comes from resting/max heart rate alone
// rather than from a recorded effort.
type VO2maxEstimate struct {
	Sport         store.Sport
	Value         float64
	Method        VO2maxMethod
	Heuristic     bool
	ActivityID    int64
	Date          time.Time
	Substitutions []Substitution
}

// VO2maxOptions bound the history searched for an effort
type VO2maxOptions struct {
	Lookback Lookback // defaults to 90 days; LookbackAll is not accepted here
	Now      time.Time
}

// EstimateVO2max returns the best estimate for a sport over the lookback.
// ok is false when no activity qualifies, which is distinct from an estimate
// of zero. Only running and cycling have estimators.
func EstimateVO2max(activities []store.Activity, settings store.AthleteSettings, sport store.Sport, opts VO2maxOptions) (VO2maxEstimate, bool) {
	if opts.Lookback <= 0 {
		opts.Lookback = Lookback90Days
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	ss, subs := ResolveSportSettings(settings, sport)
	weight, resting, bodySubs := ResolveBody(settings)

	switch sport {
	case store.SportRun:
		est, ok := bestEffortEstimate(activities, sport, ss.MaxHR, opts, runEffort)
		est.Substitutions = subs
		return est, ok

	case store.SportBike:
		if !anyPower(activities, sport) {
			if !anySport(activities, sport) {
				return VO2maxEstimate{}, false
			}
			return VO2maxEstimate{
				Sport:         sport,
				Value:         15.3 * ss.MaxHR / resting,
				Method:        MethodHRRatio,
				Heuristic:     true,
				Substitutions: append(subs, bodySubs...),
			}, true
		}
		est, ok := bestEffortEstimate(activities, sport, ss.MaxHR, opts, bikeEffort(weight))
		for _, s := range bodySubs {
			if s.Field == "weight_kg" {
				subs = append(subs, s)
			}
		}
		est.Substitutions = subs
		return est, ok
	}
	return VO2maxEstimate{}, false
}

// effortScorer turns an effort (primary metric, heart rate fraction) into a
// VO2max value; ok is false when the effort is ineligible.
type effortScorer struct {
	method  VO2maxMethod
	primary func(*store.Streams) []float64
	average func(store.Activity) float64
	score   func(primary, hrFraction float64) (float64, bool)
}

var runEffort = effortScorer{
	method:  MethodRunSpeed,
	primary: func(s *store.Streams) []float64 { return s.Speed },
	average: func(a store.Activity) float64 { return a.AverageSpeed },
	score: func(speed, frac float64) (float64, bool) {
		if speed <= minRunSpeed {
			return 0, false
		}
		// ACSM running equation, level ground
		vo2 := 0.2*speed*60 + 3.5
		return vo2 / frac, true
	},
}

func bikeEffort(weightKg float64) effortScorer {
	return effortScorer{
		method:  MethodBikePower,
		primary: func(s *store.Streams) []float64 { return s.Power },
		average: func(a store.Activity) float64 { return a.AveragePower },
		score: func(watts, frac float64) (float64, bool) {
			if watts <= 0 {
				return 0, false
			}
			// ACSM leg cycling equation
			vo2 := 10.8*watts/weightKg + 7
			return vo2 / frac, true
		},
	}
}

func bestEffortEstimate(activities []store.Activity, sport store.Sport, maxHR float64, opts VO2maxOptions, scorer effortScorer) (VO2maxEstimate, bool) {
	var best VO2maxEstimate
	found := false

	for _, a := range activities {
		if a.Sport != sport || !opts.Lookback.Includes(a.StartDateLocal, opts.Now) {
			continue
		}
		primary, hr, ok := activityEffort(a, scorer)
		if !ok || hr <= MinPlausibleHR {
			continue
		}
		frac := hr / maxHR
		if frac < minHRFraction || frac > maxHRFraction {
			continue
		}
		value, ok := scorer.score(primary, frac)
		if !ok {
			continue
		}
		if !found || value > best.Value {
			best = VO2maxEstimate{
				Sport:      sport,
				Value:      value,
				Method:     scorer.method,
				ActivityID: a.ID,
				Date:       a.StartDateLocal,
			}
			found = true
		}
	}
	return best, found
}

// activityEffort returns the best paired 20-minute window from streams, or the
// activity averages when the streams can't supply one.
func activityEffort(a store.Activity, scorer effortScorer) (primary, hr float64, ok bool) {
	if s, err := usableStreams(a); err == nil && s.HasHeartrate() {
		if values := scorer.primary(s); values != nil {
			if p, h, found := bestPairedWindow(s.Time, values, s.Heartrate, VO2maxEffortSeconds, DefaultCoverage); found {
				return p, h, true
			}
		}
	}
	if p := scorer.average(a); p > 0 && a.AverageHeartrate > 0 {
		return p, a.AverageHeartrate, true
	}
	return 0, 0, false
}

// bestPairedWindow finds the window with the highest mean primary value using only
// samples where both primary and heart rate are valid, and returns both means.
func bestPairedWindow(times []int, primary, hr []float64, window int, coverage float64) (bestPrimary, bestHR float64, found bool) {
	var t []int
	var p, h []float64
	for i := range times {
		if primary[i] > 0 && hr[i] > 0 {
			t = append(t, times[i])
			p = append(p, primary[i])
			h = append(h, hr[i])
		}
	}

	need := coverage * float64(window)
	var sumP, sumH float64
	left := 0
	for right := range p {
		sumP += p[right]
		sumH += h[right]
		for t[right]-t[left] > window {
			sumP -= p[left]
			sumH -= h[left]
			left++
		}
		if float64(t[right]-t[left]) < need {
			continue
		}
		n := float64(right - left + 1)
		if avg := sumP / n; !found || avg > bestPrimary {
			bestPrimary, bestHR, found = avg, sumH/n, true
		}
	}
	return bestPrimary, bestHR, found
}

func anySport(activities []store.Activity, sport store.Sport) bool {
	for _, a := range activities {
		if a.Sport == sport {
			return true
		}
	}
	return false
}

func anyPower(activities []store.Activity, sport store.Sport) bool {
	for _, a := range activities {
		if a.Sport == sport && a.HasPower() {
			return true
		}
	}
	return false
}
