package strava

import (
	"time"

	"trainload/internal/store"
)

// Source is the provenance recorded on synced activities
const Source = "strava"

// Activity represents a Strava activity from the API
type Activity struct {
	ID                 int64     `json:"id"`
	Athlete            Athlete   `json:"athlete"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	SportType          string    `json:"sport_type"`
	StartDate          time.Time `json:"start_date"`
	StartDateLocal     time.Time `json:"start_date_local"`
	Timezone           string    `json:"timezone"`
	Distance           float64   `json:"distance"`             // meters
	MovingTime         int       `json:"moving_time"`          // seconds
	ElapsedTime        int       `json:"elapsed_time"`         // seconds
	TotalElevationGain float64   `json:"total_elevation_gain"` // meters
	AverageSpeed       float64   `json:"average_speed"`        // m/s
	MaxSpeed           float64   `json:"max_speed"`            // m/s
	AverageHeartrate   float64   `json:"average_heartrate"`    // bpm
	MaxHeartrate       float64   `json:"max_heartrate"`        // bpm
	AverageWatts       float64   `json:"average_watts"`        // watts
	DeviceWatts        bool      `json:"device_watts"`         // false when Strava estimated the power
	HasHeartrate       bool      `json:"has_heartrate"`
}

// Athlete represents a Strava athlete (minimal info in activity response)
type Athlete struct {
	ID int64 `json:"id"`
}

// ToStore converts the API summary into a store activity.
// Duration is moving time, or elapsed time when moving time is missing.
// Estimated power is dropped so only measured watts feed power-based estimates.
func (a Activity) ToStore() *store.Activity {
	sportType := a.SportType
	if sportType == "" {
		sportType = a.Type
	}

	seconds := a.MovingTime
	if seconds <= 0 {
		seconds = a.ElapsedTime
	}

	activity := &store.Activity{
		ID:               a.ID,
		Name:             a.Name,
		Sport:            store.ParseSport(sportType),
		Source:           Source,
		StartDate:        a.StartDate.UTC(),
		StartDateLocal:   a.StartDateLocal,
		DurationMin:      float64(seconds) / 60,
		Distance:         a.Distance,
		AverageHeartrate: a.AverageHeartrate,
		AverageSpeed:     a.AverageSpeed,
		HasHeartrate:     a.HasHeartrate,
	}
	if a.DeviceWatts {
		activity.AveragePower = a.AverageWatts
	}
	return activity
}

// Streams represents activity stream data from the API
// Strava returns streams keyed by type when key_by_type=true
type Streams struct {
	Time           *StreamData[int]     `json:"time"`
	Altitude       *StreamData[float64] `json:"altitude"`
	VelocitySmooth *StreamData[float64] `json:"velocity_smooth"`
	Heartrate      *StreamData[float64] `json:"heartrate"`
	Cadence        *StreamData[float64] `json:"cadence"`
	Watts          *StreamData[float64] `json:"watts"`
	Distance       *StreamData[float64] `json:"distance"`
}

// StreamData represents a single stream type
type StreamData[T any] struct {
	Data         []T    `json:"data"`
	SeriesType   string `json:"series_type"`
	OriginalSize int    `json:"original_size"`
	Resolution   string `json:"resolution"`
}

// Len returns the length of the stream, or 0 if nil
func (s *Streams) Len() int {
	if s == nil || s.Time == nil {
		return 0
	}
	return len(s.Time.Data)
}

// HasHeartrate returns true if heartrate data exists
func (s *Streams) HasHeartrate() bool {
	return s != nil && s.Heartrate != nil && len(s.Heartrate.Data) > 0
}

// ToStore converts API streams into the store's parallel arrays.
// Arrays are copied as delivered; length mismatches are left for validation downstream.
func (s *Streams) ToStore() *store.Streams {
	if s.Len() == 0 {
		return nil
	}
	return &store.Streams{
		Time:      append([]int(nil), s.Time.Data...),
		Heartrate: data(s.Heartrate),
		Speed:     data(s.VelocitySmooth),
		Altitude:  data(s.Altitude),
		Cadence:   data(s.Cadence),
		Power:     data(s.Watts),
	}
}

func data(d *StreamData[float64]) []float64 {
	if d == nil || len(d.Data) == 0 {
		return nil
	}
	return append([]float64(nil), d.Data...)
}
