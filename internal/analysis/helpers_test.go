package analysis

import (
	"time"

	"trainload/internal/store"
)

var testDay = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func floatPtr(f float64) *float64 {
	return &f
}

// constantStreams builds a 1 Hz stream from t=0 through t=seconds inclusive
func constantStreams(seconds int, hr, speed float64) *store.Streams {
	s := &store.Streams{
		Time:      make([]int, seconds+1),
		Heartrate: make([]float64, seconds+1),
		Speed:     make([]float64, seconds+1),
	}
	for i := range s.Time {
		s.Time[i] = i
		s.Heartrate[i] = hr
		s.Speed[i] = speed
	}
	return s
}

// splitStreams builds a 1 Hz stream whose second half uses different values
func splitStreams(seconds int, hr1, speed1, hr2, speed2 float64) *store.Streams {
	s := constantStreams(seconds-1, hr1, speed1)
	for i := seconds / 2; i < seconds; i++ {
		s.Heartrate[i] = hr2
		s.Speed[i] = speed2
	}
	return s
}

func activityOn(id int64, day time.Time, sport store.Sport, tss int) store.Activity {
	start := day.Add(7 * time.Hour)
	return store.Activity{
		ID:             id,
		Name:           "activity",
		Sport:          sport,
		StartDate:      start,
		StartDateLocal: start,
		DurationMin:    60,
		TSS:            tss,
	}
}

func streamActivity(id int64, day time.Time, sport store.Sport, s *store.Streams) store.Activity {
	a := activityOn(id, day, sport, 0)
	a.Streams = s
	a.DurationMin = float64(s.Time[len(s.Time)-1]) / 60
	a.HasHeartrate = s.HasHeartrate()
	return a
}

func settingsWith(sport store.Sport, lthr, maxHR float64) store.AthleteSettings {
	return store.AthleteSettings{
		Sports:    map[store.Sport]store.SportSettings{sport: {LTHR: lthr, MaxHR: maxHR}},
		WeightKg:  70,
		RestingHR: 50,
	}
}
