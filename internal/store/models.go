package store

import (
	"strings"
	"time"
)

// Sport is the enumerated sport class used by every load calculation
type Sport string

const (
	SportRun      Sport = "Run"
	SportBike     Sport = "Bike"
	SportSwim     Sport = "Swim"
	SportStrength Sport = "Strength"
	SportWalk     Sport = "Walk"
	SportOther    Sport = "Other"
)

// Sports lists every sport class in display order
var Sports = []Sport{SportRun, SportBike, SportSwim, SportStrength, SportWalk, SportOther}

// ParseSport maps a provider activity type (Strava "Ride", "TrailRun", ...) to a sport class
func ParseSport(activityType string) Sport {
	switch strings.ToLower(strings.TrimSpace(activityType)) {
	case "run", "trailrun", "virtualrun", "treadmill":
		return SportRun
	case "bike", "ride", "virtualride", "mountainbikeride", "gravelride", "ebikeride", "cycling":
		return SportBike
	case "swim", "swimming", "openwaterswim", "poolswim":
		return SportSwim
	case "strength", "weighttraining", "workout", "crossfit", "hiit", "training":
		return SportStrength
	case "walk", "walking", "hike":
		return SportWalk
	default:
		return SportOther
	}
}

// Auth represents OAuth tokens for provider API access
type Auth struct {
	AthleteID    int64
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Scope        string
}

// Activity is one completed workout.
// TSS is derived from the current athlete settings and is never stored.
type Activity struct {
	ID               int64
	Name             string
	Sport            Sport
	Source           string    // "strava", "fit", "manual"
	StartDate        time.Time // UTC
	StartDateLocal   time.Time // athlete-local wall clock, used for the calendar day
	DurationMin      float64
	Distance         float64 // meters
	AverageHeartrate float64 // bpm, 0 = absent
	AverageSpeed     float64 // m/s, 0 = absent
	AveragePower     float64 // watts, 0 = absent
	HasHeartrate     bool
	StreamsSynced    bool

	Streams *Streams
	TSS     int
}

// HasPower reports whether the activity carries power data at any resolution
func (a Activity) HasPower() bool {
	if a.AveragePower > 0 {
		return true
	}
	return a.Streams != nil && len(a.Streams.Power) > 0
}

// Streams holds parallel per-sample arrays sharing the Time base (elapsed seconds).
// Any array other than Time may be nil.
type Streams struct {
	Time      []int
	Heartrate []float64
	Speed     []float64
	Altitude  []float64
	Cadence   []float64
	Power     []float64
}

// Len returns the number of samples, or 0 if nil
func (s *Streams) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Time)
}

// HasHeartrate returns true if heart rate samples exist
func (s *Streams) HasHeartrate() bool {
	return s != nil && len(s.Heartrate) > 0
}

// SportSettings are the per-sport heart rate anchors
type SportSettings struct {
	LTHR  float64    `json:"lthr"`
	MaxHR float64    `json:"max_hr"`
	Zones [5]float64 `json:"zones"` // ascending upper bounds in bpm
}

// AthleteSettings is the read-only input to every analysis component.
// Version increases on every save so derived caches can be invalidated.
type AthleteSettings struct {
	Sports    map[Sport]SportSettings
	WeightKg  float64
	RestingHR float64
	Version   int64
	UpdatedAt time.Time
}

// For returns the settings for a sport, or the zero value if none are stored
func (a AthleteSettings) For(sport Sport) SportSettings {
	if a.Sports == nil {
		return SportSettings{}
	}
	return a.Sports[sport]
}

// WellnessSample is one day of recovery measurements
type WellnessSample struct {
	Date        time.Time // calendar day, 00:00 UTC
	HRV         float64   // ms, 0 = absent
	SleepHours  float64   // 0 = absent
	RestingHR   float64   // bpm, 0 = absent
	Source      string
	IsSimulated bool
}

// DayKey returns the calendar day of t as 00:00 UTC, preserving t's wall-clock date
func DayKey(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
