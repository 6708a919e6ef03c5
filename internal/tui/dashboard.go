package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"

	"trainload/internal/service"
)

// DashboardModel is the dashboard screen model
type DashboardModel struct {
	units   Units
	snap    *service.Snapshot
	loading bool
	err     error
}

// NewDashboardModel creates a new dashboard model
func NewDashboardModel(units Units) DashboardModel {
	return DashboardModel{
		units:   units,
		loading: true,
	}
}

func (m DashboardModel) withSnapshot(snap *service.Snapshot, err error) DashboardModel {
	m.loading = false
	m.snap = snap
	m.err = err
	return m
}

// Init initializes the dashboard
func (m DashboardModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

// View renders the dashboard
func (m DashboardModel) View() string {
	if m.loading {
		return "\n  Computing training load..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if m.snap == nil || len(m.snap.Activities) == 0 {
		return "\n  No activities yet. Press 's' to sync or run 'trainload import' with FIT files."
	}

	var sections []string

	// Top row: load, this week and performance side by side
	topRow := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderLoadCard(), "  ", m.renderWeekCard(), "  ", m.renderPerformanceCard())
	sections = append(sections, topRow)

	if len(m.snap.Series) > 2 {
		sections = append(sections, m.renderChart())
	}

	sections = append(sections, m.renderRecentActivities())

	if n := len(m.snap.Substitutions); n > 0 {
		sections = append(sections, warningStyle.Render(fmt.Sprintf(
			"  %d setting(s) replaced by defaults, see the log for details", n)))
	}

	help := statusStyle.Render("Press 'r' to refresh, 's' to sync, '2' for activities list")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m DashboardModel) renderLoadCard() string {
	title := cardTitleStyle.Render("Training Load")
	cur := m.snap.Current

	lines := []string{
		RenderMetric("Fitness (CTL)", fmt.Sprintf("%.0f", cur.CTL), ""),
		RenderMetric("Fatigue (ATL)", fmt.Sprintf("%.0f", cur.ATL), ""),
		RenderMetric("Form (TSB)", fmt.Sprintf("%.0f", cur.TSB), ""),
		RenderMetric("Ramp (7d)", signed("%.1f", m.snap.RampRate), ""),
		RenderMetric("Phase", phaseStyle(m.snap.Phase).Render(string(m.snap.Phase)), ""),
		"",
		mutedStyle.Render(m.snap.Form),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Width(38).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func (m DashboardModel) renderWeekCard() string {
	title := cardTitleStyle.Render("Last 7 Days")
	w := m.snap.Weekly

	monotony := fmt.Sprintf("%.2f", w.Monotony)
	if w.Saturated {
		monotony += " (max)"
	}

	lines := []string{
		RenderMetric("Weekly TSS", fmt.Sprintf("%.0f", w.WeeklyTSS), ""),
		RenderMetric("Daily mean", fmt.Sprintf("%.0f", w.Mean), ""),
		RenderMetric("Monotony", monotony, ""),
		RenderMetric("Strain", fmt.Sprintf("%.0f", w.Strain), ""),
		RenderMetric("ACWR", fmt.Sprintf("%.2f", w.ACWR), ""),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Width(34).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func (m DashboardModel) renderPerformanceCard() string {
	title := cardTitleStyle.Render("Performance")

	var lines []string
	for _, sport := range service.VO2maxSports {
		est, ok := m.snap.VO2max[sport]
		if !ok {
			lines = append(lines, RenderMetric("VO2max "+string(sport), "-", ""))
			continue
		}
		value := fmt.Sprintf("%.1f", est.Value)
		if est.Heuristic {
			value += "*"
		}
		lines = append(lines, RenderMetric("VO2max "+string(sport), value, ""))
	}

	if r, ok := m.snap.LatestReadiness(); ok {
		score := readinessStyle(r.Score).Render(fmt.Sprintf("%.0f", r.Score))
		if r.IsSimulated {
			score += mutedStyle.Render(" (sim)")
		}
		lines = append(lines, "", RenderMetric("Readiness", score, ""))
	}

	for _, est := range m.snap.VO2max {
		if est.Heuristic {
			lines = append(lines, "", mutedStyle.Render("* HR ratio estimate"))
			break
		}
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Width(34).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func (m DashboardModel) renderChart() string {
	title := cardTitleStyle.Render(fmt.Sprintf("Fitness, Fatigue and Form - Last %d Days", service.ChartDays))

	series := m.snap.Series
	if len(series) > service.ChartDays {
		series = series[len(series)-service.ChartDays:]
	}
	ctl := make([]float64, len(series))
	atl := make([]float64, len(series))
	tsb := make([]float64, len(series))
	for i, p := range series {
		ctl[i], atl[i], tsb[i] = p.CTL, p.ATL, p.TSB
	}

	graph := asciigraph.PlotMany([][]float64{ctl, atl, tsb},
		asciigraph.Height(10),
		asciigraph.Width(70),
		asciigraph.Precision(0),
		asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Red, asciigraph.Green),
		asciigraph.Caption("CTL (blue)  ATL (red)  TSB (green)"),
	)

	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, graph))
}

func (m DashboardModel) renderRecentActivities() string {
	title := cardTitleStyle.Render("Recent Activities")

	recent := service.RecentActivities(m.snap, service.RecentActivitiesLimit)

	header := tableHeaderStyle.Render(fmt.Sprintf("%-14s  %-22s  %-8s  %9s  %8s  %5s",
		"When", "Name", "Sport", "Distance", "Time", "TSS"))

	rows := []string{header}
	for _, a := range recent {
		row := tableRowStyle.Render(fmt.Sprintf("%-14s  %-22s  %-8s  %9s  %8s  %5d",
			humanize.Time(a.StartDate),
			truncateName(a.Name, 22),
			a.Sport,
			m.units.FormatDistance(a.Distance),
			formatDuration(a.DurationMin),
			a.TSS,
		))
		rows = append(rows, row)
	}

	table := strings.Join(rows, "\n")
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, table))
}
