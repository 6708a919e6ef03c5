package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainload/internal/store"
)

func TestGetActivityDetailByID(t *testing.T) {
	db := newTestDB(t)
	a := runOn(t, db, 1, 0, 150)

	s := steadyStreams(1200, 150, 3)
	for i := 600; i <= 1200; i++ {
		s.Heartrate[i] = 185
	}
	require.NoError(t, db.SaveStreams(a.ID, s))
	require.NoError(t, db.MarkStreamsSynced(a.ID))

	q := NewQueryService(db, NewPipeline(db, testOptions(), quietLogger()))
	detail, err := q.GetActivityDetailByID(a.ID)
	require.NoError(t, err)

	assert.Greater(t, detail.Metrics.TSS, 0)
	assert.Equal(t, detail.Metrics.TSS, detail.Activity.TSS)
	require.NotNil(t, detail.Metrics.EfficiencyFactor)
	assert.Equal(t, 185.0, detail.MaxHR)

	// Zones derive from max HR 190: 150 is tempo (<=152), 185 is maximum
	require.Len(t, detail.HRZones, 5)
	assert.Equal(t, 599, detail.HRZones[2].Seconds)
	assert.Equal(t, 601, detail.HRZones[4].Seconds)
	assert.InDelta(t, 100.0, detail.HRZones[2].Percent+detail.HRZones[4].Percent, 1e-9)

	// 3 m/s for 1200 s is 3.6 km
	require.Len(t, detail.Splits, 3)
	assert.Equal(t, 1, detail.Splits[0].Km)
	assert.InDelta(t, 334, detail.Splits[0].Duration, 1)
	assert.Equal(t, 150.0, detail.Splits[0].AvgHR)

	assert.Len(t, detail.SpeedData, 21)
	assert.Len(t, detail.HRData, 21)
	assert.Equal(t, 3.0, detail.SpeedData[0])

	_, err = q.GetActivityDetailByID(99)
	assert.ErrorIs(t, err, store.ErrActivityNotFound)
}

func TestGetActivityDetailByID_NoStreams(t *testing.T) {
	db := newTestDB(t)
	a := runOn(t, db, 1, 0, 150)

	q := NewQueryService(db, NewPipeline(db, testOptions(), quietLogger()))
	detail, err := q.GetActivityDetailByID(a.ID)
	require.NoError(t, err)

	assert.Equal(t, 85, detail.Metrics.TSS)
	assert.Nil(t, detail.Metrics.EfficiencyFactor)
	assert.Empty(t, detail.HRZones)
	assert.Empty(t, detail.Splits)
}

func TestRecentActivities(t *testing.T) {
	snap := &Snapshot{Activities: []store.Activity{{ID: 1}, {ID: 2}, {ID: 3}}}

	recent := RecentActivities(snap, 2)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(3), recent[0].ID)
	assert.Equal(t, int64(2), recent[1].ID)

	assert.Len(t, RecentActivities(snap, 0), 3)
	assert.Len(t, RecentActivities(snap, 10), 3)
	assert.Nil(t, RecentActivities(nil, 5))
}

func activityAt(day time.Time, tss int, hr float64) store.Activity {
	return store.Activity{
		StartDateLocal:   day.Add(18 * time.Hour),
		TSS:              tss,
		DurationMin:      45,
		Distance:         8000,
		AverageHeartrate: hr,
	}
}

func TestPeriodStatsFor(t *testing.T) {
	now := testDay.AddDate(0, 0, 9).Add(12 * time.Hour) // Wednesday of the second week
	activities := []store.Activity{
		activityAt(testDay.AddDate(0, 0, -4), 10, 0), // Feb 29, before the first week
		activityAt(testDay, 50, 140),
		activityAt(testDay.AddDate(0, 0, 6), 70, 160),
		activityAt(testDay.AddDate(0, 0, 7), 40, 0),
	}

	weeks := PeriodStatsFor(activities, PeriodWeekly, 2, now)
	require.Len(t, weeks, 2)
	assert.True(t, weeks[0].PeriodStart.Equal(testDay))
	assert.Equal(t, "Mar 04", weeks[0].PeriodLabel)
	assert.Equal(t, 2, weeks[0].Count)
	assert.Equal(t, 120, weeks[0].TotalTSS)
	assert.Equal(t, 90.0, weeks[0].DurationMin)
	assert.Equal(t, 150.0, weeks[0].AvgHR)
	assert.Equal(t, 1, weeks[1].Count)
	assert.Zero(t, weeks[1].AvgHR)

	months := PeriodStatsFor(activities, PeriodMonthly, 2, now)
	require.Len(t, months, 2)
	assert.Equal(t, "Feb 2024", months[0].PeriodLabel)
	assert.Equal(t, 1, months[0].Count)
	assert.Equal(t, 3, months[1].Count)
}

func TestComparisons(t *testing.T) {
	now := testDay.AddDate(0, 0, 9)
	activities := []store.Activity{
		activityAt(testDay, 50, 140),
		activityAt(testDay.AddDate(0, 0, 7), 40, 0),
		activityAt(testDay.AddDate(0, 0, 9), 30, 0),
	}

	comparisons := Comparisons(activities, now)
	require.Len(t, comparisons, 3)

	week := comparisons[0]
	assert.Equal(t, 2, week.Current.Count, "today counts toward this week")
	assert.Equal(t, 1, week.Previous.Count)
	assert.Equal(t, 1, week.DeltaCount)
	assert.Equal(t, 20, week.DeltaTSS)

	month := comparisons[1]
	assert.Equal(t, 3, month.Current.Count)
	assert.Zero(t, month.Previous.Count)

	rolling := comparisons[2]
	assert.Equal(t, 3, rolling.Current.Count)
	assert.Equal(t, 120, rolling.Current.TotalTSS)
	assert.Equal(t, 8000.0*3, rolling.DeltaDistance)
}

func TestGetMonday(t *testing.T) {
	for i := 0; i < 7; i++ {
		assert.True(t, getMonday(testDay.AddDate(0, 0, i)).Equal(testDay), "day %d", i)
	}
	assert.True(t, getMonday(testDay.AddDate(0, 0, -1)).Equal(testDay.AddDate(0, 0, -7)))
}
