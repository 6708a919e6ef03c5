package tui

import (
	"fmt"

	"trainload/internal/analysis"
	"trainload/internal/config"
)

const (
	metersPerMile = 1609.34
	metersPerKm   = 1000.0
)

// Units formats distances and paces in the configured unit
type Units struct {
	cfg config.DisplayConfig
}

// NewUnits creates a new Units helper with the given display config
func NewUnits(cfg config.DisplayConfig) Units {
	return Units{cfg: cfg}
}

// IsMiles returns true if distance unit is miles
func (u Units) IsMiles() bool {
	return u.cfg.DistanceUnit == "mi"
}

func (u Units) paceMiles() bool {
	return u.cfg.PaceUnit == "min/mi"
}

// FormatDistance formats a distance in meters to the user's preferred unit
func (u Units) FormatDistance(meters float64) string {
	if u.IsMiles() {
		return fmt.Sprintf("%.1f mi", meters/metersPerMile)
	}
	return fmt.Sprintf("%.1f km", meters/metersPerKm)
}

// DistanceLabel returns the short unit label ("mi" or "km")
func (u Units) DistanceLabel() string {
	if u.IsMiles() {
		return "mi"
	}
	return "km"
}

// PaceLabel returns the pace unit label ("min/mi" or "min/km")
func (u Units) PaceLabel() string {
	if u.paceMiles() {
		return "min/mi"
	}
	return "min/km"
}

// PaceSeconds converts a speed in m/s to seconds per pace unit, capped for
// near-stationary speeds
func (u Units) PaceSeconds(speed float64) float64 {
	perKm := analysis.PaceSecondsPerKm(speed)
	if u.paceMiles() {
		return perKm * metersPerMile / metersPerKm
	}
	return perKm
}

// FormatPace formats a speed in m/s as m:ss per pace unit
func (u Units) FormatPace(speed float64) string {
	if speed <= 0 {
		return "-"
	}
	secs := int(u.PaceSeconds(speed) + 0.5)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// FormatPaceWithUnit formats pace with the unit label
func (u Units) FormatPaceWithUnit(speed float64) string {
	pace := u.FormatPace(speed)
	if pace == "-" {
		return pace
	}
	return pace + "/" + u.DistanceLabel()
}

// PaceSeries converts per-minute speeds to pace minutes for charting.
// Zero speeds stay zero so they can be trimmed.
func (u Units) PaceSeries(speeds []float64) []float64 {
	out := make([]float64, len(speeds))
	for i, s := range speeds {
		if s > 0 {
			out[i] = u.PaceSeconds(s) / 60
		}
	}
	return out
}

// FormatPeak renders a peak value in the unit of its metric
func (u Units) FormatPeak(metric analysis.PeakMetric, value float64) string {
	switch metric {
	case analysis.MetricHeartRate:
		return fmt.Sprintf("%.0f bpm", value)
	case analysis.MetricPower:
		return fmt.Sprintf("%.0f W", value)
	case analysis.MetricSpeed:
		return u.FormatPaceWithUnit(value)
	}
	return fmt.Sprintf("%.1f", value)
}

// formatDuration renders minutes as "1h 05m" or "42m"
func formatDuration(minutes float64) string {
	total := int(minutes + 0.5)
	h, m := total/60, total%60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// formatWindow renders a peak window length as 5s, 20m or 1h
func formatWindow(seconds int) string {
	switch {
	case seconds >= 3600 && seconds%3600 == 0:
		return fmt.Sprintf("%dh", seconds/3600)
	case seconds >= 60 && seconds%60 == 0:
		return fmt.Sprintf("%dm", seconds/60)
	}
	return fmt.Sprintf("%ds", seconds)
}

func truncateName(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
