package analysis

import (
	"fmt"

	"trainload/internal/store"
)

// Fallback physiology used when athlete settings are missing or invalid
const (
	DefaultMaxHR     = 185.0
	DefaultRestingHR = 50.0
	DefaultWeightKg  = 70.0
)

// DefaultLTHR is the lactate threshold heart rate assumed per sport when none is configured
var DefaultLTHR = map[store.Sport]float64{
	store.SportRun:      165,
	store.SportBike:     158,
	store.SportSwim:     150,
	store.SportWalk:     140,
	store.SportStrength: 150,
	store.SportOther:    150,
}

// Substitution records a configuration value that was replaced by a default.
// The analysis functions never log; callers report these.
type Substitution struct {
	ActivityID int64 // 0 when not tied to one activity
	Sport      store.Sport
	Field      string
	Given      float64
	Used       float64
}

func (s Substitution) String() string {
	if s.Sport != "" {
		return fmt.Sprintf("%s %s=%g replaced by %g", s.Sport, s.Field, s.Given, s.Used)
	}
	return fmt.Sprintf("%s=%g replaced by %g", s.Field, s.Given, s.Used)
}

func defaultLTHR(sport store.Sport) float64 {
	if v, ok := DefaultLTHR[sport]; ok {
		return v
	}
	return DefaultLTHR[store.SportOther]
}

// ResolveSportSettings returns usable heart rate anchors for a sport,
// substituting defaults for zero or negative values.
func ResolveSportSettings(settings store.AthleteSettings, sport store.Sport) (store.SportSettings, []Substitution) {
	ss := settings.For(sport)
	var subs []Substitution

	if ss.LTHR <= 0 {
		used := defaultLTHR(sport)
		subs = append(subs, Substitution{Sport: sport, Field: "lthr", Given: ss.LTHR, Used: used})
		ss.LTHR = used
	}
	if ss.MaxHR <= 0 {
		subs = append(subs, Substitution{Sport: sport, Field: "max_hr", Given: ss.MaxHR, Used: DefaultMaxHR})
		ss.MaxHR = DefaultMaxHR
	}
	if ss.MaxHR < ss.LTHR {
		subs = append(subs, Substitution{Sport: sport, Field: "max_hr", Given: ss.MaxHR, Used: ss.LTHR})
		ss.MaxHR = ss.LTHR
	}
	return ss, subs
}

// ResolveBody returns usable body weight and resting heart rate
func ResolveBody(settings store.AthleteSettings) (weightKg, restingHR float64, subs []Substitution) {
	weightKg, restingHR = settings.WeightKg, settings.RestingHR
	if weightKg <= 0 {
		subs = append(subs, Substitution{Field: "weight_kg", Given: weightKg, Used: DefaultWeightKg})
		weightKg = DefaultWeightKg
	}
	if restingHR <= 0 {
		subs = append(subs, Substitution{Field: "resting_hr", Given: restingHR, Used: DefaultRestingHR})
		restingHR = DefaultRestingHR
	}
	return weightKg, restingHR, subs
}

// DefaultZones derives five ascending zone ceilings from max heart rate
func DefaultZones(maxHR float64) [5]float64 {
	return [5]float64{maxHR * 0.60, maxHR * 0.70, maxHR * 0.80, maxHR * 0.90, maxHR}
}
