package analysis

import (
	"math"
	"testing"
	"time"

	"trainload/internal/store"
)

func dailyActivities(days int, tss int) []store.Activity {
	activities := make([]store.Activity, days)
	for i := range activities {
		activities[i] = activityOn(int64(i+1), testDay.AddDate(0, 0, i), store.SportRun, tss)
	}
	return activities
}

func TestComputeLoadSeries_Empty(t *testing.T) {
	if series := ComputeLoadSeries(nil, DefaultLoadConstants(), testDay); series != nil {
		t.Errorf("ComputeLoadSeries(nil) = %v, want nil", series)
	}
}

func TestComputeLoadSeries_Recursion(t *testing.T) {
	activities := []store.Activity{
		activityOn(1, testDay, store.SportRun, 100),
		activityOn(2, testDay.AddDate(0, 0, 2), store.SportRun, 70),
	}
	series := ComputeLoadSeries(activities, DefaultLoadConstants(), testDay.AddDate(0, 0, 2))

	if len(series) != 3 {
		t.Fatalf("len(series) = %d, want 3", len(series))
	}

	// Seeded with the first day's total, not zero
	if series[0].CTL != 100 || series[0].ATL != 100 || series[0].TSB != 0 {
		t.Errorf("day 0 = %+v, want CTL=ATL=100, TSB=0", series[0])
	}

	ctl, atl := 100.0, 100.0
	for i, tss := range []float64{100, 0, 70} {
		if i > 0 {
			ctl += (tss - ctl) / 42
			atl += (tss - atl) / 7
		}
		p := series[i]
		if p.CTL != ctl || p.ATL != atl {
			t.Errorf("day %d CTL/ATL = %v/%v, want %v/%v", i, p.CTL, p.ATL, ctl, atl)
		}
		if p.DailyTSS != tss {
			t.Errorf("day %d DailyTSS = %v, want %v", i, p.DailyTSS, tss)
		}
	}

	// day 1: 100 + (0-100)/42
	if math.Abs(series[1].CTL-97.619) > 0.001 {
		t.Errorf("day 1 CTL = %v, want 97.619", series[1].CTL)
	}
	if math.Abs(series[1].ATL-85.714) > 0.001 {
		t.Errorf("day 1 ATL = %v, want 85.714", series[1].ATL)
	}
}

func TestComputeLoadSeries_Convergence(t *testing.T) {
	// Start away from steady state, then hold 100/day
	activities := dailyActivities(600, 100)
	activities[0].TSS = 20

	series := ComputeLoadSeries(activities, DefaultLoadConstants(), activities[len(activities)-1].StartDateLocal)
	last := CurrentLoad(series)

	if math.Abs(last.CTL-100) > 0.01 {
		t.Errorf("CTL = %v, want ~100", last.CTL)
	}
	if math.Abs(last.ATL-100) > 0.01 {
		t.Errorf("ATL = %v, want ~100", last.ATL)
	}
	if math.Abs(last.TSB) > 0.01 {
		t.Errorf("TSB = %v, want ~0", last.TSB)
	}
}

func TestComputeLoadSeries_TSBExactAndNoGaps(t *testing.T) {
	activities := []store.Activity{
		activityOn(1, testDay, store.SportRun, 80),
		activityOn(2, testDay.AddDate(0, 0, 3), store.SportBike, 120),
		activityOn(3, testDay.AddDate(0, 0, 3), store.SportSwim, 30),
		activityOn(4, testDay.AddDate(0, 0, 17), store.SportRun, 95),
	}
	today := testDay.AddDate(0, 0, 40)
	series := ComputeLoadSeries(activities, DefaultLoadConstants(), today)

	if len(series) != 41 {
		t.Fatalf("len(series) = %d, want 41 (first activity through today)", len(series))
	}
	if !series[0].Date.Equal(testDay) || !series[40].Date.Equal(today) {
		t.Errorf("series spans %v..%v, want %v..%v", series[0].Date, series[40].Date, testDay, today)
	}

	for i, p := range series {
		if p.TSB != p.CTL-p.ATL {
			t.Errorf("day %d TSB = %v, want exactly CTL-ATL = %v", i, p.TSB, p.CTL-p.ATL)
		}
		if i > 0 {
			if gap := p.Date.Sub(series[i-1].Date); gap != 24*time.Hour {
				t.Errorf("day %d follows previous by %v, want 24h", i, gap)
			}
		}
	}

	// Same-day activities are summed
	if series[3].DailyTSS != 150 {
		t.Errorf("day 3 DailyTSS = %v, want 150", series[3].DailyTSS)
	}
	if series[10].DailyTSS != 0 {
		t.Errorf("rest day DailyTSS = %v, want 0", series[10].DailyTSS)
	}
}

func TestComputeLoadSeries_EndsAtLastActivityWhenLater(t *testing.T) {
	activities := dailyActivities(10, 50)
	series := ComputeLoadSeries(activities, DefaultLoadConstants(), testDay.AddDate(0, 0, 3))

	if len(series) != 10 {
		t.Errorf("len(series) = %d, want 10", len(series))
	}
}

func TestComputeLoadSeries_LocalCalendarDay(t *testing.T) {
	// 23:30 local on Jan 1 is already Jan 2 in UTC
	a := store.Activity{
		ID:             1,
		StartDate:      time.Date(2024, 1, 2, 4, 30, 0, 0, time.UTC),
		StartDateLocal: time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC),
		TSS:            60,
	}
	series := ComputeLoadSeries([]store.Activity{a}, DefaultLoadConstants(), testDay)

	if len(series) != 1 || !series[0].Date.Equal(testDay) {
		t.Errorf("series = %+v, want one point on %v", series, testDay)
	}
}

func TestComputeLoadSeries_InvalidConstants(t *testing.T) {
	activities := dailyActivities(20, 60)
	activities[5].TSS = 0
	today := testDay.AddDate(0, 0, 19)

	want := ComputeLoadSeries(activities, DefaultLoadConstants(), today)
	got := ComputeLoadSeries(activities, LoadConstants{ChronicDays: 0, AcuteDays: -3}, today)

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("day %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	_, subs := LoadConstants{}.Resolve()
	if len(subs) != 2 {
		t.Errorf("Resolve() substitutions = %d, want 2", len(subs))
	}
}

func TestComputeLoadSeries_Deterministic(t *testing.T) {
	activities := dailyActivities(90, 0)
	for i := range activities {
		activities[i].TSS = (i * 37) % 150
	}
	today := testDay.AddDate(0, 0, 100)

	first := ComputeLoadSeries(activities, DefaultLoadConstants(), today)
	second := ComputeLoadSeries(activities, DefaultLoadConstants(), today)

	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("day %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestRampRate(t *testing.T) {
	series := make([]DailyLoadPoint, 10)
	for i := range series {
		series[i].CTL = float64(i * 2)
	}

	tests := []struct {
		index    int
		expected float64
	}{
		{9, 14}, // 18 - 4
		{7, 14}, // 14 - 0
		{3, 6},  // fewer than 7 prior days: vs day 0
		{0, 0},
		{-1, 0},
		{10, 0},
	}

	for _, tt := range tests {
		if got := RampRate(series, tt.index); got != tt.expected {
			t.Errorf("RampRate(series, %d) = %v, want %v", tt.index, got, tt.expected)
		}
	}
}

func TestClassifyPhase(t *testing.T) {
	tests := []struct {
		ramp     float64
		expected TrainingPhase
	}{
		{10, PhaseOverreaching},
		{8.01, PhaseOverreaching},
		{8, PhaseProductive},
		{4, PhaseProductive},
		{3, PhaseBuilding},
		{0.5, PhaseBuilding},
		{0, PhaseTapering},
		{-5, PhaseTapering},
	}

	for _, tt := range tests {
		if got := ClassifyPhase(tt.ramp); got != tt.expected {
			t.Errorf("ClassifyPhase(%v) = %v, want %v", tt.ramp, got, tt.expected)
		}
	}
}

func TestFormDescription(t *testing.T) {
	tests := []struct {
		tsb      float64
		expected string
	}{
		{30, "Very fresh (possibly detrained)"},
		{15, "Fresh and ready to race"},
		{5, "Neutral - good for training"},
		{-5, "Slightly fatigued"},
		{-15, "Tired but building fitness"},
		{-30, "Very fatigued - rest needed"},
	}

	for _, tt := range tests {
		if got := FormDescription(tt.tsb); got != tt.expected {
			t.Errorf("FormDescription(%v) = %q, want %q", tt.tsb, got, tt.expected)
		}
	}
}
