package service

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trainload/internal/analysis"
	"trainload/internal/store"
)

var testDay = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC) // a Monday

func newTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSettings() store.AthleteSettings {
	return store.AthleteSettings{
		Sports: map[store.Sport]store.SportSettings{
			store.SportRun: {LTHR: 165, MaxHR: 190},
		},
		WeightKg:  70,
		RestingHR: 50,
	}
}

func testOptions() PipelineOptions {
	return PipelineOptions{
		Constants:           analysis.DefaultLoadConstants(),
		MonotonySentinel:    analysis.DefaultMonotonySentinel,
		Coverage:            analysis.DefaultCoverage,
		BaselineDays:        analysis.BaselineDays,
		SimulateWhenMissing: true,
		Seed:                testSettings(),
	}
}

// runOn stores a one hour run at 07:00 on testDay plus day
func runOn(t *testing.T, db *store.DB, id int64, day int, avgHR float64) *store.Activity {
	t.Helper()
	start := testDay.AddDate(0, 0, day).Add(7 * time.Hour)
	a := &store.Activity{
		ID:               id,
		Name:             "Run",
		Sport:            store.SportRun,
		Source:           "strava",
		StartDate:        start,
		StartDateLocal:   start,
		DurationMin:      60,
		Distance:         10800,
		AverageHeartrate: avgHR,
		AverageSpeed:     3,
		HasHeartrate:     avgHR > 0,
	}
	require.NoError(t, db.UpsertActivity(a))
	return a
}

// steadyStreams builds a 1 Hz stream from t=0 through t=seconds inclusive
func steadyStreams(seconds int, hr, speed float64) *store.Streams {
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
