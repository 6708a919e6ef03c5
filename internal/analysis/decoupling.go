package analysis

import "trainload/internal/store"

// minDecouplingSamples is two minutes of 1 Hz data
const minDecouplingSamples = 120

// AerobicDecoupling calculates the output:HR drift between first and second half.
// Output is power when the stream has it, otherwise speed.
// Returns percentage - positive means second half was less efficient.
// < 5% on long efforts indicates good aerobic base.
func AerobicDecoupling(s *store.Streams) float64 {
	if ValidateStreams(s) != nil || !s.HasHeartrate() || s.Len() < minDecouplingSamples {
		return 0
	}
	output := outputStream(s)
	if output == nil {
		return 0
	}

	mid := s.Len() / 2
	firstEF := halfEfficiency(output[:mid], s.Heartrate[:mid])
	secondEF := halfEfficiency(output[mid:], s.Heartrate[mid:])

	if firstEF == 0 || secondEF == 0 {
		return 0
	}

	// ((first / second) - 1) * 100
	return ((firstEF / secondEF) - 1) * 100
}

// outputStream prefers power over speed
func outputStream(s *store.Streams) []float64 {
	if len(s.Power) > 0 {
		return s.Power
	}
	return s.Speed
}

func halfEfficiency(output, hr []float64) float64 {
	var totalOut, totalHR float64
	var count int
	for i := range output {
		if validEffortSample(output[i], hr[i]) {
			totalOut += output[i]
			totalHR += hr[i]
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return (totalOut / float64(count)) / (totalHR / float64(count))
}

// validEffortSample filters noise: moving, with a believable heart rate
func validEffortSample(output, hr float64) bool {
	return output > 0.5 && hr > 80 && hr < 220
}

// CardiacDrift measures HR increase during steady-state effort.
// Filters to samples where speed is within 10% of avgSpeed and
// returns the HR difference (bpm) between first and last quarter.
func CardiacDrift(s *store.Streams, avgSpeed float64) float64 {
	if ValidateStreams(s) != nil || !s.HasHeartrate() || len(s.Speed) == 0 || avgSpeed == 0 {
		return 0
	}
	if s.Len() < 2*minDecouplingSamples {
		return 0
	}

	var steadyHR []float64
	for i, v := range s.Speed {
		ratio := v / avgSpeed
		if ratio > 0.9 && ratio < 1.1 && s.Heartrate[i] > 0 {
			steadyHR = append(steadyHR, s.Heartrate[i])
		}
	}

	if len(steadyHR) < minDecouplingSamples {
		return 0
	}

	q := len(steadyHR) / 4
	firstHR := averageHR(steadyHR[:q])
	lastHR := averageHR(steadyHR[len(steadyHR)-q:])
	if firstHR == 0 {
		return 0
	}
	return lastHR - firstHR
}

// SteadyStatePct calculates what percentage of the effort was at steady speed
// (within 10% of average)
func SteadyStatePct(s *store.Streams, avgSpeed float64) float64 {
	if s == nil || len(s.Speed) == 0 || avgSpeed == 0 {
		return 0
	}

	steady := 0
	for _, v := range s.Speed {
		ratio := v / avgSpeed
		if ratio > 0.9 && ratio < 1.1 {
			steady++
		}
	}
	return float64(steady) / float64(len(s.Speed)) * 100
}
