package analysis

import (
	"math"
	"testing"

	"trainload/internal/store"
)

func TestStreamStressRate(t *testing.T) {
	tests := []struct {
		ratio float64
		want  float64
	}{
		{0.50, 20},
		{0.80, 20},
		{0.81, 50},
		{0.89, 50},
		{0.90, 70},
		{0.94, 90},
		{0.999, 90},
		{1.00, 105},
		{1.03, 120},
		{1.059, 120},
		{1.06, 140},
		{1.50, 140},
	}

	for _, tt := range tests {
		if got := streamStressRate(tt.ratio); got != tt.want {
			t.Errorf("streamStressRate(%v) = %v, want %v", tt.ratio, got, tt.want)
		}
	}
}

func TestAverageStressRate(t *testing.T) {
	tests := []struct {
		ratio float64
		want  float64
	}{
		{0.70, 25},
		{0.81, 55},
		{0.90, 85},
		{1.00, 85},
		{1.0001, 115},
		{1.20, 115},
	}

	for _, tt := range tests {
		if got := averageStressRate(tt.ratio); got != tt.want {
			t.Errorf("averageStressRate(%v) = %v, want %v", tt.ratio, got, tt.want)
		}
	}
}

func TestComputeTSS(t *testing.T) {
	run170 := settingsWith(store.SportRun, 170, 190)

	// Second half of the hour has heart rate dropouts
	dropouts := constantStreams(3600, 160, 3)
	for i := 0; i <= 1800; i++ {
		dropouts.Heartrate[i] = 0
	}

	misaligned := constantStreams(3600, 200, 3)
	misaligned.Heartrate = misaligned.Heartrate[:10]

	tests := []struct {
		name     string
		activity store.Activity
		settings store.AthleteSettings
		expected int
	}{
		{
			name:     "threshold hour without streams",
			activity: store.Activity{Sport: store.SportRun, DurationMin: 60, AverageHeartrate: 170},
			settings: run170,
			expected: 85,
		},
		{
			name:     "endurance hour without streams",
			activity: store.Activity{Sport: store.SportRun, DurationMin: 60, AverageHeartrate: 150},
			settings: run170,
			// 150/170 = 0.88 -> 55/h
			expected: 55,
		},
		{
			name:     "hard 90 minutes without streams",
			activity: store.Activity{Sport: store.SportRun, DurationMin: 90, AverageHeartrate: 190},
			settings: run170,
			// 115 * 1.5 = 172.5
			expected: 173,
		},
		{
			name:     "no heart rate uses light activity rate",
			activity: store.Activity{Sport: store.SportRun, DurationMin: 120},
			settings: run170,
			expected: 60,
		},
		{
			name:     "implausible heart rate uses light activity rate",
			activity: store.Activity{Sport: store.SportRun, DurationMin: 60, AverageHeartrate: 40},
			settings: run170,
			expected: 30,
		},
		{
			name:     "zero duration",
			activity: store.Activity{Sport: store.SportRun, DurationMin: 0, AverageHeartrate: 170},
			settings: run170,
			expected: 0,
		},
		{
			name:     "negative duration",
			activity: store.Activity{Sport: store.SportRun, DurationMin: -30, AverageHeartrate: 170},
			settings: run170,
			expected: 0,
		},
		{
			name:     "missing LTHR falls back to sport default",
			activity: store.Activity{Sport: store.SportRun, DurationMin: 60, AverageHeartrate: 165},
			settings: store.AthleteSettings{},
			// default run LTHR 165 -> ratio 1.00
			expected: 85,
		},
		{
			name: "stream integration",
			activity: store.Activity{
				Sport:       store.SportRun,
				DurationMin: 60,
				Streams:     constantStreams(3600, 160, 3),
			},
			settings: run170,
			// 160/170 = 0.94 -> 90/h for one hour
			expected: 90,
		},
		{
			name: "stream dropouts contribute nothing",
			activity: store.Activity{
				Sport:       store.SportRun,
				DurationMin: 60,
				Streams:     dropouts,
			},
			settings: run170,
			expected: 45,
		},
		{
			name: "misaligned stream falls back to average",
			activity: store.Activity{
				Sport:            store.SportRun,
				DurationMin:      60,
				AverageHeartrate: 170,
				Streams:          misaligned,
			},
			settings: run170,
			expected: 85,
		},
		{
			name: "stream without heart rate falls back to average",
			activity: store.Activity{
				Sport:            store.SportRun,
				DurationMin:      60,
				AverageHeartrate: 150,
				Streams:          constantStreams(3600, 0, 3),
			},
			settings: run170,
			expected: 55,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ComputeTSS(tt.activity, tt.settings)
			if result != tt.expected {
				t.Errorf("ComputeTSS() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestAnnotateTSS(t *testing.T) {
	activities := []store.Activity{
		{ID: 1, Sport: store.SportRun, DurationMin: 60, AverageHeartrate: 170},
		{ID: 2, Sport: store.SportBike, DurationMin: 60, AverageHeartrate: 158},
		{ID: 3, Sport: store.SportBike, DurationMin: 30, AverageHeartrate: 158},
	}
	settings := settingsWith(store.SportRun, 170, 190)

	annotated, subs := AnnotateTSS(activities, settings)

	if len(annotated) != 3 {
		t.Fatalf("AnnotateTSS() returned %d activities, want 3", len(annotated))
	}
	want := []int{85, 85, 43}
	for i, a := range annotated {
		if a.TSS != want[i] {
			t.Errorf("annotated[%d].TSS = %v, want %v", i, a.TSS, want[i])
		}
	}
	if activities[0].TSS != 0 {
		t.Errorf("AnnotateTSS() modified its input")
	}

	// Bike has no settings: lthr and max_hr substituted once for the sport
	if len(subs) != 2 {
		t.Fatalf("AnnotateTSS() substitutions = %v, want 2 for bike", subs)
	}
	if subs[0].Sport != store.SportBike || subs[0].Field != "lthr" || subs[0].Used != 158 {
		t.Errorf("first substitution = %+v, want bike lthr 158", subs[0])
	}
	if subs[0].ActivityID != 2 {
		t.Errorf("substitution ActivityID = %v, want 2", subs[0].ActivityID)
	}
}

func TestResolveSportSettings(t *testing.T) {
	settings := store.AthleteSettings{
		Sports: map[store.Sport]store.SportSettings{
			store.SportRun:  {LTHR: 170, MaxHR: 190},
			store.SportSwim: {LTHR: -5, MaxHR: 0},
			store.SportBike: {LTHR: 160, MaxHR: 150},
		},
	}

	ss, subs := ResolveSportSettings(settings, store.SportRun)
	if ss.LTHR != 170 || ss.MaxHR != 190 || len(subs) != 0 {
		t.Errorf("run settings = %+v, %v; want unchanged", ss, subs)
	}

	ss, subs = ResolveSportSettings(settings, store.SportSwim)
	if ss.LTHR != 150 || ss.MaxHR != DefaultMaxHR || len(subs) != 2 {
		t.Errorf("swim settings = %+v, %v; want defaults", ss, subs)
	}

	// Max HR below threshold is raised to threshold
	ss, _ = ResolveSportSettings(settings, store.SportBike)
	if ss.MaxHR != 160 {
		t.Errorf("bike MaxHR = %v, want 160", ss.MaxHR)
	}
}

func TestTRIMP(t *testing.T) {
	tests := []struct {
		name     string
		activity store.Activity
		expected float64
		delta    float64
	}{
		{
			name:     "uses activity avg HR",
			activity: store.Activity{DurationMin: 60, AverageHeartrate: 150},
			// hrRatio = (150-50)/(185-50) = 0.741
			// TRIMP = 60 * 0.741 * e^(1.92*0.741)
			expected: 184.3,
			delta:    1,
		},
		{
			name:     "no HR data",
			activity: store.Activity{DurationMin: 60},
			expected: 0,
		},
		{
			name: "uses stream HR over activity HR",
			activity: store.Activity{
				DurationMin:      60,
				AverageHeartrate: 170,
				Streams:          constantStreams(100, 150, 3),
			},
			expected: 184.3,
			delta:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TRIMP(tt.activity, 50, 185)
			if math.Abs(result-tt.expected) > tt.delta {
				t.Errorf("TRIMP() = %v, want %v (±%v)", result, tt.expected, tt.delta)
			}
		})
	}

	if got := TRIMP(store.Activity{DurationMin: 60, AverageHeartrate: 150}, 185, 185); got != 0 {
		t.Errorf("TRIMP() with zero HR reserve = %v, want 0", got)
	}
}
