package analysis

import (
	"errors"
	"testing"

	"trainload/internal/store"
)

func TestValidateStreams(t *testing.T) {
	tests := []struct {
		name    string
		streams *store.Streams
		wantErr error
	}{
		{
			name:    "nil streams",
			streams: nil,
			wantErr: ErrNoStreams,
		},
		{
			name:    "empty time base",
			streams: &store.Streams{Heartrate: []float64{150}},
			wantErr: ErrNoStreams,
		},
		{
			name:    "valid",
			streams: constantStreams(60, 150, 3),
		},
		{
			name:    "repeated timestamps are allowed",
			streams: &store.Streams{Time: []int{0, 1, 1, 2}, Heartrate: []float64{140, 141, 142, 143}},
		},
		{
			name:    "heartrate shorter than time",
			streams: &store.Streams{Time: []int{0, 1, 2}, Heartrate: []float64{140, 141}},
			wantErr: ErrStreamMisaligned,
		},
		{
			name:    "power longer than time",
			streams: &store.Streams{Time: []int{0, 1}, Power: []float64{200, 210, 220}},
			wantErr: ErrStreamMisaligned,
		},
		{
			name:    "time goes backwards",
			streams: &store.Streams{Time: []int{0, 5, 3}, Speed: []float64{3, 3, 3}},
			wantErr: ErrTimeNotMonotonic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStreams(tt.streams)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateStreams() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateStreams() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestUsableStreams(t *testing.T) {
	a := activityOn(1, testDay, store.SportRun, 0)
	if _, err := usableStreams(a); !errors.Is(err, ErrNoStreams) {
		t.Errorf("usableStreams() without streams = %v, want ErrNoStreams", err)
	}

	a.Streams = constantStreams(10, 150, 3)
	if s, err := usableStreams(a); err != nil || s != a.Streams {
		t.Errorf("usableStreams() = %v, %v", s, err)
	}
}

func TestAverageHR(t *testing.T) {
	tests := []struct {
		hr       []float64
		expected float64
	}{
		{nil, 0},
		{[]float64{0, 0}, 0},
		{[]float64{140, 160}, 150},
		{[]float64{140, 0, 160}, 150},
	}
	for _, tt := range tests {
		if got := averageHR(tt.hr); got != tt.expected {
			t.Errorf("averageHR(%v) = %v, want %v", tt.hr, got, tt.expected)
		}
	}
}
