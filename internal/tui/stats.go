package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"trainload/internal/service"
	"trainload/internal/store"
)

// StatsModel is the period stats and comparisons screen model
type StatsModel struct {
	units       Units
	activities  []store.Activity
	stats       []service.PeriodStats // most recent first, periods with data only
	comparisons []service.ComparisonStats
	periodType  string // service.PeriodWeekly or service.PeriodMonthly
	loading     bool
	err         error
	cursor      int
	offset      int
	pageSize    int
	now         func() time.Time
}

// NewStatsModel creates a new stats model
func NewStatsModel(units Units) StatsModel {
	return StatsModel{
		units:      units,
		periodType: service.PeriodWeekly,
		loading:    true,
		pageSize:   12,
		now:        time.Now,
	}
}

func (m StatsModel) withSnapshot(snap *service.Snapshot, err error) StatsModel {
	m.loading = false
	m.err = err
	if snap != nil {
		m.activities = snap.Activities
	}
	return m.rebuild()
}

// rebuild aggregates the activities for the current period type
func (m StatsModel) rebuild() StatsModel {
	now := m.now()
	numPeriods := 104 // 2 years of weeks
	if m.periodType == service.PeriodMonthly {
		numPeriods = 36 // 3 years of months
	}

	all := service.PeriodStatsFor(m.activities, m.periodType, numPeriods, now)
	m.stats = nil
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Count > 0 {
			m.stats = append(m.stats, all[i])
		}
	}
	m.comparisons = service.Comparisons(m.activities, now)
	m.cursor, m.offset = 0, 0
	return m
}

// Init initializes the stats screen
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "w":
		if m.periodType != service.PeriodWeekly {
			m.periodType = service.PeriodWeekly
			return m.rebuild(), nil
		}
	case "m":
		if m.periodType != service.PeriodMonthly {
			m.periodType = service.PeriodMonthly
			return m.rebuild(), nil
		}
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		} else if m.offset > 0 {
			m.offset -= m.pageSize
			m.cursor = m.pageSize - 1
		}
	case "down", "j":
		visible := m.visibleCount()
		if m.cursor < visible-1 {
			m.cursor++
		} else if m.offset+visible < len(m.stats) {
			m.offset += m.pageSize
			m.cursor = 0
		}
	case "pgup":
		if m.offset > 0 {
			m.offset -= m.pageSize
			if m.offset < 0 {
				m.offset = 0
			}
			m.cursor = 0
		}
	case "pgdown":
		if m.offset+m.pageSize < len(m.stats) {
			m.offset += m.pageSize
			m.cursor = 0
		}
	}
	return m, nil
}

func (m StatsModel) visibleCount() int {
	remaining := len(m.stats) - m.offset
	if remaining > m.pageSize {
		return m.pageSize
	}
	return remaining
}

// View renders the stats screen
func (m StatsModel) View() string {
	if m.loading {
		return "\n  Loading stats..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	var sections []string

	periodLabel := "Weekly"
	if m.periodType == service.PeriodMonthly {
		periodLabel = "Monthly"
	}

	if len(m.stats) == 0 {
		title := cardTitleStyle.Render(fmt.Sprintf("Period Stats (%s)", periodLabel))
		sections = append(sections, title)
		sections = append(sections, "\n  No data available. Sync some activities first.")
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	for _, comp := range m.comparisons {
		sections = append(sections, m.renderComparison(comp))
	}

	start := m.offset + 1
	end := m.offset + m.visibleCount()
	title := cardTitleStyle.Render(fmt.Sprintf("Period Stats (%s) - %d-%d of %d", periodLabel, start, end, len(m.stats)))
	sections = append(sections, "", title)

	header := tableHeaderStyle.Render(fmt.Sprintf("   %-12s  %5s  %6s  %9s  %8s  %7s",
		"Period", "Count", "TSS", "Distance", "Time", "Avg HR"))
	sections = append(sections, header)

	for i := m.offset; i < m.offset+m.visibleCount(); i++ {
		s := m.stats[i]

		hr := "-"
		if s.AvgHR > 0 {
			hr = fmt.Sprintf("%.0f", s.AvgHR)
		}

		cursor := "  "
		if i-m.offset == m.cursor {
			cursor = "> "
		}

		row := fmt.Sprintf("%s%-12s  %5d  %6s  %9s  %8s  %7s",
			cursor,
			s.PeriodLabel,
			s.Count,
			humanize.Comma(int64(s.TotalTSS)),
			m.units.FormatDistance(s.TotalDistance),
			formatDuration(s.DurationMin),
			hr,
		)

		if i-m.offset == m.cursor {
			sections = append(sections, tableSelectedStyle.Render(row))
		} else {
			sections = append(sections, tableRowStyle.Render(row))
		}
	}

	help := statusStyle.Render("\n  w/m: weekly/monthly  j/k: navigate  pgup/pgdn: page  r: refresh")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m StatsModel) renderComparison(comp service.ComparisonStats) string {
	titleLine := metricLabelStyle.Render(fmt.Sprintf("── %s ", comp.Label))

	header := fmt.Sprintf("                    %-14s  %-14s  %s",
		comp.Current.PeriodLabel,
		comp.Previous.PeriodLabel,
		"Delta")
	headerLine := tableHeaderStyle.Render(header)

	rows := []string{
		m.renderRow("Activities", fmt.Sprintf("%d", comp.Current.Count), fmt.Sprintf("%d", comp.Previous.Count), float64(comp.DeltaCount), "%.0f"),
		m.renderRow("TSS", fmt.Sprintf("%d", comp.Current.TotalTSS), fmt.Sprintf("%d", comp.Previous.TotalTSS), float64(comp.DeltaTSS), "%.0f"),
		m.renderRow("Time", formatDuration(comp.Current.DurationMin), formatDuration(comp.Previous.DurationMin), comp.DeltaDuration, "%.0f min"),
		m.renderRow("Distance", m.units.FormatDistance(comp.Current.TotalDistance), m.units.FormatDistance(comp.Previous.TotalDistance), m.distanceValue(comp.DeltaDistance), "%.1f "+m.units.DistanceLabel()),
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		"",
		titleLine,
		headerLine,
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func (m StatsModel) distanceValue(meters float64) float64 {
	if m.units.IsMiles() {
		return meters / metersPerMile
	}
	return meters / metersPerKm
}

func (m StatsModel) renderRow(label, current, previous string, delta float64, format string) string {
	deltaStr := fmt.Sprintf(format, delta)
	var styledDelta string
	switch {
	case delta > 0.005:
		styledDelta = trendUpStyle.Render("+" + deltaStr + " ↑")
	case delta < -0.005:
		styledDelta = trendDownStyle.Render(deltaStr + " ↓")
	default:
		styledDelta = trendFlatStyle.Render("0 →")
	}

	row := fmt.Sprintf("  %-16s  %-14s  %-14s  %s",
		label,
		current,
		previous,
		styledDelta)

	return tableRowStyle.Render(row)
}
