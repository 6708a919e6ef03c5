package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"

	"trainload/internal/analysis"
	"trainload/internal/service"
)

const (
	readinessChartDays = 60
	readinessTableDays = 7
)

// ReadinessModel is the readiness screen model
type ReadinessModel struct {
	samples   []analysis.ReadinessSample
	simulated bool
	loading   bool
	err       error
}

// NewReadinessModel creates a new readiness model
func NewReadinessModel() ReadinessModel {
	return ReadinessModel{loading: true}
}

func (m ReadinessModel) withSnapshot(snap *service.Snapshot, err error) ReadinessModel {
	m.loading = false
	m.err = err
	if snap != nil {
		m.samples = snap.Readiness
		m.simulated = snap.SimulatedWellness
	}
	return m
}

// Init initializes the readiness screen
func (m ReadinessModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m ReadinessModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

// View renders the readiness screen
func (m ReadinessModel) View() string {
	if m.loading {
		return "\n  Computing readiness..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if len(m.samples) == 0 {
		return "\n  No wellness data. Import a CSV with 'trainload wellness file.csv'\n" +
			"  or enable wellness.simulate_when_missing in the config."
	}

	var sections []string
	if m.simulated {
		sections = append(sections, warningStyle.Render(
			"  Wellness is simulated from training load. Import measured HRV, sleep and resting HR for real scores."))
	}

	latest := m.samples[len(m.samples)-1]
	top := lipgloss.JoinHorizontal(lipgloss.Top, m.renderToday(latest), "  ", m.renderInputs(latest))
	sections = append(sections, top)

	if len(m.samples) > 2 {
		sections = append(sections, m.renderChart())
	}
	sections = append(sections, m.renderRecent())

	sections = append(sections, statusStyle.Render(
		"  A simple heuristic of load, sleep, HRV and resting HR. Not medical advice."))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m ReadinessModel) renderToday(r analysis.ReadinessSample) string {
	title := cardTitleStyle.Render("Readiness " + r.Date.Format("Mon Jan 02"))
	score := readinessStyle(r.Score).Render(fmt.Sprintf("%.0f / 100", r.Score))

	p := r.Penalties
	lines := []string{
		score,
		"",
		RenderMetric("Load penalty", fmt.Sprintf("-%.0f", p.Load), ""),
		RenderMetric("Sleep penalty", fmt.Sprintf("-%.0f", p.Sleep), ""),
		RenderMetric("HRV penalty", fmt.Sprintf("-%.0f", p.HRV), ""),
		RenderMetric("Resting HR penalty", fmt.Sprintf("-%.0f", p.RestingHR), ""),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Width(36).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func (m ReadinessModel) renderInputs(r analysis.ReadinessSample) string {
	title := cardTitleStyle.Render("Inputs")

	hrv := "-"
	if r.HRV > 0 {
		hrv = fmt.Sprintf("%.0f ms", r.HRV)
		if r.HRVBaseline > 0 {
			hrv += fmt.Sprintf(" (%.0f-%.0f)", r.HRVLow, r.HRVHigh)
		}
	}
	hrvTrend := ""
	if !r.InNormalBand() {
		hrvTrend = signed("%.0f", r.HRV-r.HRVBaseline)
	}

	rhr := "-"
	rhrTrend := ""
	if r.RestingHR > 0 {
		rhr = fmt.Sprintf("%.0f bpm", r.RestingHR)
		if r.RHRBaseline > 0 {
			// A rising resting HR is the bad direction, so flip the sign for coloring
			rhrTrend = signed("%.0f", r.RHRBaseline-r.RestingHR)
		}
	}

	sleep := "-"
	if r.SleepHours > 0 {
		sleep = fmt.Sprintf("%.1f h", r.SleepHours)
	}

	lines := []string{
		RenderMetric("Prior-day TSS", humanize.Comma(int64(r.PriorDayTSS+0.5)), ""),
		RenderMetric("Sleep", sleep, ""),
		RenderMetric("HRV", hrv, hrvTrend),
		RenderMetric("Resting HR", rhr, rhrTrend),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Width(44).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func (m ReadinessModel) renderChart() string {
	samples := m.samples
	if len(samples) > readinessChartDays {
		samples = samples[len(samples)-readinessChartDays:]
	}
	scores := make([]float64, len(samples))
	for i, r := range samples {
		scores[i] = r.Score
	}

	title := cardTitleStyle.Render(fmt.Sprintf("Readiness - Last %d Days", len(samples)))
	graph := asciigraph.Plot(scores,
		asciigraph.Height(8),
		asciigraph.Width(60),
		asciigraph.Precision(0),
		asciigraph.LowerBound(0),
		asciigraph.UpperBound(100),
	)
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, graph))
}

func (m ReadinessModel) renderRecent() string {
	samples := m.samples
	if len(samples) > readinessTableDays {
		samples = samples[len(samples)-readinessTableDays:]
	}

	header := tableHeaderStyle.Render(fmt.Sprintf("%-10s  %5s  %6s  %6s  %6s  %4s",
		"Day", "Score", "TSS-1", "Sleep", "HRV", ""))
	rows := []string{header}
	for i := len(samples) - 1; i >= 0; i-- {
		r := samples[i]
		flag := ""
		if r.IsSimulated {
			flag = "sim"
		}
		rows = append(rows, tableRowStyle.Render(fmt.Sprintf("%-10s  %5.0f  %6.0f  %6.1f  %6.0f  %4s",
			r.Date.Format("Mon Jan 02"), r.Score, r.PriorDayTSS, r.SleepHours, r.HRV, flag)))
	}
	return strings.Join(rows, "\n")
}
