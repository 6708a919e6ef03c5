package analysis

import (
	"errors"
	"fmt"

	"trainload/internal/store"
)

// Degenerate stream errors. An activity failing validation is skipped by the
// window-based calculations but still scores TSS from its averages.
var (
	ErrNoStreams        = errors.New("no stream samples")
	ErrStreamMisaligned = errors.New("stream arrays are not aligned with time")
	ErrTimeNotMonotonic = errors.New("stream time is not non-decreasing")
)

// ValidateStreams checks that every present array matches the time base
// and that time never decreases.
func ValidateStreams(s *store.Streams) error {
	if s.Len() == 0 {
		return ErrNoStreams
	}

	n := len(s.Time)
	arrays := []struct {
		name   string
		values []float64
	}{
		{"heartrate", s.Heartrate},
		{"speed", s.Speed},
		{"altitude", s.Altitude},
		{"cadence", s.Cadence},
		{"power", s.Power},
	}
	for _, a := range arrays {
		if a.values != nil && len(a.values) != n {
			return fmt.Errorf("%w: %s has %d samples, time has %d", ErrStreamMisaligned, a.name, len(a.values), n)
		}
	}

	for i := 1; i < n; i++ {
		if s.Time[i] < s.Time[i-1] {
			return fmt.Errorf("%w: t[%d]=%d after t[%d]=%d", ErrTimeNotMonotonic, i, s.Time[i], i-1, s.Time[i-1])
		}
	}
	return nil
}

// SkippedActivity reports an activity excluded from a stream-based calculation
type SkippedActivity struct {
	ActivityID int64
	Reason     error
}

// usableStreams returns the activity's streams if they pass validation
func usableStreams(a store.Activity) (*store.Streams, error) {
	if a.Streams == nil {
		return nil, ErrNoStreams
	}
	if err := ValidateStreams(a.Streams); err != nil {
		return nil, err
	}
	return a.Streams, nil
}

// averageHR returns the mean of positive heart rate samples
func averageHR(hr []float64) float64 {
	var total float64
	var count int
	for _, v := range hr {
		if v > 0 {
			total += v
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}
