package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HelpModel is the help screen model
type HelpModel struct{}

// NewHelpModel creates a new help model
func NewHelpModel() HelpModel {
	return HelpModel{}
}

// Init initializes the help screen
func (m HelpModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m HelpModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

// View renders the help screen
func (m HelpModel) View() string {
	var sections []string

	title := cardTitleStyle.Render("Keyboard Shortcuts")
	sections = append(sections, title)

	navSection := m.renderSection("Navigation", []keyHelp{
		{"1", "Dashboard"},
		{"2", "Activities list"},
		{"3", "Peak curves"},
		{"4", "Readiness"},
		{"5", "Period stats"},
		{"6 or s", "Sync screen"},
		{"?", "Help (this screen)"},
		{"q", "Quit"},
		{"esc", "Back / close help"},
	})
	sections = append(sections, navSection)

	actSection := m.renderSection("Activities", []keyHelp{
		{"j / down", "Move cursor down"},
		{"k / up", "Move cursor up"},
		{"pgdn / pgup", "Next / previous page"},
		{"enter", "Open activity detail"},
		{"r", "Recompute"},
	})
	sections = append(sections, actSection)

	peakSection := m.renderSection("Peak Curves", []keyHelp{
		{"l", "Cycle lookback (90d, 1y, all)"},
		{"tab / arrows", "Switch sport"},
	})
	sections = append(sections, peakSection)

	statsSection := m.renderSection("Period Stats", []keyHelp{
		{"w / m", "Weekly / monthly periods"},
	})
	sections = append(sections, statsSection)

	syncSection := m.renderSection("Sync Screen", []keyHelp{
		{"s / enter", "Start sync"},
		{"esc", "Cancel a running sync"},
	})
	sections = append(sections, syncSection)

	sections = append(sections, m.renderMetricsHelp())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

type keyHelp struct {
	key  string
	desc string
}

func (m HelpModel) renderSection(title string, keys []keyHelp) string {
	var lines []string

	lines = append(lines, "")
	lines = append(lines, sectionTitleStyle.Render(title))

	for _, k := range keys {
		lines = append(lines, "  "+RenderKeyHelp(k.key, k.desc))
	}

	return strings.Join(lines, "\n")
}

func (m HelpModel) renderMetricsHelp() string {
	var lines []string

	lines = append(lines, "")
	lines = append(lines, sectionTitleStyle.Render("Metrics Explained"))
	lines = append(lines, "")

	metrics := []struct {
		name string
		desc string
	}{
		{"TSS", "Training stress of one activity. 100 = one hour at threshold."},
		{"CTL (Fitness)", "42 day exponentially weighted average of daily TSS."},
		{"ATL (Fatigue)", "7 day exponentially weighted average of daily TSS."},
		{"TSB (Form)", "CTL - ATL. Positive = fresh, negative = carrying fatigue."},
		{"Ramp rate", "CTL change over the last 7 days. Drives the training phase."},
		{"Monotony / Strain", "Weekly mean TSS over its spread, and weekly TSS times monotony."},
		{"ACWR", "Acute to chronic workload ratio. 0.8-1.3 is the usual safe band."},
		{"Peaks", "Best rolling average HR, pace and power per window length."},
		{"VO2max", "Estimated from speed or power against HR. * marks the HR ratio fallback."},
		{"Readiness", "0-100 from prior-day load, sleep, HRV and resting HR against baseline."},
	}

	for _, metric := range metrics {
		lines = append(lines, "  "+helpKeyStyle.Render(metric.name))
		lines = append(lines, "  "+mutedStyle.Render(metric.desc))
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}
