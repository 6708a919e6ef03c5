package analysis

import "trainload/internal/store"

// EfficiencyFactor calculates output:HR efficiency.
// For speed streams: (m/min) / HR, typical values 1.0 to 2.0.
// For power streams: watts / HR, typical values 1.0 to 2.5.
// Higher is better - more output for the same HR.
func EfficiencyFactor(s *store.Streams) float64 {
	if ValidateStreams(s) != nil || !s.HasHeartrate() {
		return 0
	}

	usePower := len(s.Power) > 0
	output := outputStream(s)
	if output == nil {
		return 0
	}

	var totalOut, totalHR float64
	var count int
	for i := range output {
		if validEffortSample(output[i], s.Heartrate[i]) {
			totalOut += output[i]
			totalHR += s.Heartrate[i]
			count++
		}
	}
	if count == 0 {
		return 0
	}

	avgOut := totalOut / float64(count)
	avgHR := totalHR / float64(count)
	if usePower {
		return avgOut / avgHR
	}
	return avgOut * 60 / avgHR
}

// GradeAdjustedEfficiency adjusts the speed-based factor for elevation change,
// deriving grade from consecutive altitude and distance covered.
func GradeAdjustedEfficiency(s *store.Streams) float64 {
	if ValidateStreams(s) != nil || !s.HasHeartrate() || len(s.Speed) == 0 {
		return 0
	}
	if len(s.Altitude) == 0 {
		return EfficiencyFactor(&store.Streams{Time: s.Time, Heartrate: s.Heartrate, Speed: s.Speed})
	}

	var totalNGP, totalHR float64
	var count int
	for i := 1; i < s.Len(); i++ {
		vel, hr := s.Speed[i], s.Heartrate[i]
		if !validEffortSample(vel, hr) {
			continue
		}

		dt := float64(s.Time[i] - s.Time[i-1])
		grade := 0.0
		if dist := vel * dt; dist > 0 {
			grade = (s.Altitude[i] - s.Altitude[i-1]) / dist
		}

		// +10% grade costs roughly 30% more effort
		gradeFactor := 1.0 + grade*3.0
		if gradeFactor < 0.5 {
			gradeFactor = 0.5
		}
		if gradeFactor > 3.0 {
			gradeFactor = 3.0
		}

		totalNGP += vel * gradeFactor
		totalHR += hr
		count++
	}

	if count == 0 {
		return 0
	}
	return (totalNGP / float64(count)) * 60 / (totalHR / float64(count))
}

// PaceAtHR calculates the average pace (min/km) while heart rate was within
// tolerance of targetHR. Returns 0 with fewer than 30 matching samples.
func PaceAtHR(s *store.Streams, targetHR, tolerance float64) float64 {
	if ValidateStreams(s) != nil || !s.HasHeartrate() || len(s.Speed) == 0 {
		return 0
	}

	var totalPace float64
	var count int
	for i, vel := range s.Speed {
		hr := s.Heartrate[i]
		if hr >= targetHR-tolerance && hr <= targetHR+tolerance && vel > 0.5 {
			totalPace += PaceSecondsPerKm(vel) / 60
			count++
		}
	}

	if count < 30 {
		return 0
	}
	return totalPace / float64(count)
}
