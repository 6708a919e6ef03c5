package analysis

import "trainload/internal/store"

// ActivityMetrics are the derived per-activity numbers shown on a detail view.
// Stream-based fields are nil when the streams are missing or degenerate.
type ActivityMetrics struct {
	ActivityID        int64
	TSS               int
	TRIMP             float64
	EfficiencyFactor  *float64
	GradeAdjustedEF   *float64
	AerobicDecoupling *float64
	CardiacDrift      *float64
	SteadyStatePct    *float64
	DataQualityScore  *float64
	PaceAtZ1          *float64
	PaceAtZ2          *float64
	PaceAtZ3          *float64
	StreamError       error
}

// ComputeActivityMetrics calculates all metrics for a single activity
func ComputeActivityMetrics(a store.Activity, settings store.AthleteSettings) ActivityMetrics {
	ss, _ := ResolveSportSettings(settings, a.Sport)
	_, restingHR, _ := ResolveBody(settings)

	metrics := ActivityMetrics{
		ActivityID: a.ID,
		TSS:        ComputeTSS(a, settings),
		TRIMP:      TRIMP(a, restingHR, ss.MaxHR),
	}

	s, err := usableStreams(a)
	if err != nil {
		metrics.StreamError = err
		return metrics
	}

	if ef := EfficiencyFactor(s); ef > 0 {
		metrics.EfficiencyFactor = &ef
	}
	if gef := GradeAdjustedEfficiency(s); gef > 0 {
		metrics.GradeAdjustedEF = &gef
	}
	if decoupling := AerobicDecoupling(s); decoupling != 0 {
		metrics.AerobicDecoupling = &decoupling
	}

	avgSpeed := a.AverageSpeed
	if avgSpeed == 0 && a.DurationMin > 0 {
		avgSpeed = a.Distance / (a.DurationMin * 60)
	}
	if drift := CardiacDrift(s, avgSpeed); drift != 0 {
		metrics.CardiacDrift = &drift
	}
	if steady := SteadyStatePct(s, avgSpeed); steady > 0 {
		metrics.SteadyStatePct = &steady
	}

	// Data Quality Score: share of samples with a heart rate reading
	if s.HasHeartrate() {
		valid := 0
		for _, hr := range s.Heartrate {
			if hr > 0 {
				valid++
			}
		}
		quality := float64(valid) / float64(s.Len())
		metrics.DataQualityScore = &quality
	}

	// Pace at the midpoints of zones 1-3 on the heart rate reserve
	if a.Sport == store.SportRun {
		reserve := ss.MaxHR - restingHR
		targets := []struct {
			frac float64
			dst  **float64
		}{
			{0.6, &metrics.PaceAtZ1},
			{0.7, &metrics.PaceAtZ2},
			{0.8, &metrics.PaceAtZ3},
		}
		for _, t := range targets {
			if pace := PaceAtHR(s, restingHR+reserve*t.frac, 5); pace > 0 {
				*t.dst = &pace
			}
		}
	}

	return metrics
}

// DataQualityDescription returns a human-readable data quality assessment
func DataQualityDescription(score float64) string {
	switch {
	case score >= 0.95:
		return "Excellent"
	case score >= 0.85:
		return "Good"
	case score >= 0.70:
		return "Fair"
	case score >= 0.50:
		return "Poor"
	default:
		return "Very Poor"
	}
}

// DecouplingAssessment returns a human-readable decoupling assessment
func DecouplingAssessment(decoupling float64) string {
	switch {
	case decoupling < 3:
		return "Excellent aerobic base"
	case decoupling < 5:
		return "Good aerobic fitness"
	case decoupling < 8:
		return "Developing aerobic base"
	case decoupling < 12:
		return "Needs more easy miles"
	default:
		return "Aerobic system needs work"
	}
}
