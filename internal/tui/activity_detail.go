package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"trainload/internal/analysis"
	"trainload/internal/service"
)

// ActivityDetailModel is the activity detail screen model
type ActivityDetailModel struct {
	queryService *service.QueryService
	units        Units
	activityID   int64
	detail       *service.ActivityDetail
	viewport     viewport.Model
	loading      bool
	err          error
	width        int
	height       int
	ready        bool
}

// NewActivityDetailModel creates a new activity detail model
func NewActivityDetailModel(qs *service.QueryService, units Units, activityID int64, width, height int) ActivityDetailModel {
	m := ActivityDetailModel{
		queryService: qs,
		units:        units,
		activityID:   activityID,
		loading:      true,
		width:        width,
		height:       height,
	}

	if width > 0 && height > 0 {
		m.viewport = viewport.New(width, height-6) // Reserve space for header/footer
		m.ready = true
	}

	return m
}

// Init initializes the activity detail screen
func (m ActivityDetailModel) Init() tea.Cmd {
	return m.loadDetail
}

type activityDetailLoadedMsg struct {
	detail *service.ActivityDetail
	err    error
}

func (m ActivityDetailModel) loadDetail() tea.Msg {
	detail, err := m.queryService.GetActivityDetailByID(m.activityID)
	return activityDetailLoadedMsg{detail: detail, err: err}
}

// Update handles messages
func (m ActivityDetailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case activityDetailLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.detail = msg.detail
		if m.ready {
			m.viewport.SetContent(m.renderContent())
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-6)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 6
		}
		if m.detail != nil {
			m.viewport.SetContent(m.renderContent())
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			if m.queryService != nil {
				m.loading = true
				return m, m.loadDetail
			}
		}
	}

	// Handle viewport scrolling
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the activity detail screen
func (m ActivityDetailModel) View() string {
	if m.loading {
		return "\n  Loading activity details..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	footer := statusStyle.Render("  esc: back to list  j/k or arrows: scroll  r: refresh")

	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), footer)
}

func (m ActivityDetailModel) renderContent() string {
	if m.detail == nil {
		return "No data"
	}

	sections := []string{m.renderHeader(), m.renderSummary()}

	if len(m.detail.Splits) > 0 {
		sections = append(sections, m.renderSplits())
	}

	if len(m.detail.HRZones) > 0 {
		sections = append(sections, m.renderHRZones())
	}

	if len(m.detail.SpeedData) > 5 {
		sections = append(sections, m.renderPaceChart())
	}

	if len(m.detail.HRData) > 5 {
		sections = append(sections, m.renderHRChart())
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m ActivityDetailModel) renderHeader() string {
	a := m.detail.Activity
	title := cardTitleStyle.Render(a.Name)

	date := a.StartDateLocal.Format("Monday, January 2, 2006 at 3:04 PM")
	subtitle := mutedStyle.Render(fmt.Sprintf("%s  •  %s  •  source %s", date, a.Sport, a.Source))

	parts := []string{m.units.FormatDistance(a.Distance), formatDuration(a.DurationMin)}
	if a.AverageSpeed > 0 {
		parts = append(parts, m.units.FormatPaceWithUnit(a.AverageSpeed))
	}
	statsLine := metricValueStyle.Render(strings.Join(parts, "  •  "))

	return lipgloss.JoinVertical(lipgloss.Left, "", title, subtitle, statsLine, "")
}

func optional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func (m ActivityDetailModel) renderSummary() string {
	a := m.detail.Activity
	met := m.detail.Metrics

	lines := []string{
		sectionTitleStyle.Render("Summary"),
		fmt.Sprintf("  Training Stress:      %d TSS", met.TSS),
		fmt.Sprintf("  Training Impulse:     %.0f", met.TRIMP),
		fmt.Sprintf("  Efficiency Factor:    %s", optional(met.EfficiencyFactor, "%.3f")),
		fmt.Sprintf("  Aerobic Decoupling:   %s", optional(met.AerobicDecoupling, "%.1f%%")),
		fmt.Sprintf("  Cardiac Drift:        %s", optional(met.CardiacDrift, "%.1f%%")),
	}
	if q := met.DataQualityScore; q != nil {
		lines = append(lines, fmt.Sprintf("  Data Quality:         %.0f%% (%s)", *q*100, analysis.DataQualityDescription(*q)))
	}

	if a.AverageHeartrate > 0 {
		lines = append(lines, fmt.Sprintf("  Average HR:           %.0f bpm", a.AverageHeartrate))
	}
	if m.detail.MaxHR > 0 {
		lines = append(lines, fmt.Sprintf("  Max HR:               %.0f bpm", m.detail.MaxHR))
	}
	if a.AveragePower > 0 {
		lines = append(lines, fmt.Sprintf("  Average Power:        %.0f W", a.AveragePower))
	}
	if met.StreamError != nil {
		lines = append(lines, warningStyle.Render(fmt.Sprintf("  Streams unusable: %v", met.StreamError)))
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func (m ActivityDetailModel) renderSplits() string {
	lines := []string{sectionTitleStyle.Render("Kilometer Splits")}

	header := fmt.Sprintf("  %-4s  %8s  %6s", "Km", "Pace", "HR")
	lines = append(lines, lipgloss.NewStyle().Foreground(primaryColor).Render(header))

	// Find fastest split for highlighting
	fastest := 0
	for _, s := range m.detail.Splits {
		if s.Duration > 0 && (fastest == 0 || s.Duration < fastest) {
			fastest = s.Duration
		}
	}

	for _, s := range m.detail.Splits {
		hr := "-"
		if s.AvgHR > 0 {
			hr = fmt.Sprintf("%.0f", s.AvgHR)
		}
		pace := fmt.Sprintf("%d:%02d", s.Duration/60, s.Duration%60)

		row := fmt.Sprintf("  %-4d  %8s  %6s", s.Km, pace, hr)
		if s.Duration == fastest {
			lines = append(lines, successStyle.Bold(true).Render(row))
		} else {
			lines = append(lines, row)
		}
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func (m ActivityDetailModel) renderHRZones() string {
	ceiling := m.detail.HRZones[len(m.detail.HRZones)-1].Ceiling
	lines := []string{sectionTitleStyle.Render(fmt.Sprintf("HR Zone Distribution (max HR %.0f)", ceiling))}

	zoneColors := []lipgloss.Color{
		lipgloss.Color("#10B981"), // Zone 1 - Green (recovery)
		lipgloss.Color("#3B82F6"), // Zone 2 - Blue (endurance)
		lipgloss.Color("#F59E0B"), // Zone 3 - Amber (tempo)
		lipgloss.Color("#EF4444"), // Zone 4 - Red (threshold)
		lipgloss.Color("#9333EA"), // Zone 5 - Purple (maximum)
	}

	maxBarWidth := 30
	for i, z := range m.detail.HRZones {
		barWidth := int(z.Percent / 100 * float64(maxBarWidth))
		if barWidth < 1 && z.Seconds > 0 {
			barWidth = 1
		}

		bar := strings.Repeat("█", barWidth)
		color := zoneColors[i%len(zoneColors)]

		label := fmt.Sprintf("  Z%d %-10s <%3.0f  ", z.Zone, z.Name, z.Ceiling)
		pct := fmt.Sprintf("%5.1f%%", z.Percent)
		timeStr := formatDuration(float64(z.Seconds) / 60)

		line := label + lipgloss.NewStyle().Foreground(color).Render(bar) + " " + pct + " (" + timeStr + ")"
		lines = append(lines, line)
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func (m ActivityDetailModel) renderPaceChart() string {
	lines := []string{sectionTitleStyle.Render(fmt.Sprintf("Pace Over Time (%s)", m.units.PaceLabel()))}

	data := trimTrailingZeros(downsample(m.units.PaceSeries(m.detail.SpeedData), 60))
	if len(data) > 2 {
		lines = append(lines, asciigraph.Plot(data,
			asciigraph.Height(8),
			asciigraph.Width(50),
			asciigraph.Precision(1),
		))
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func (m ActivityDetailModel) renderHRChart() string {
	lines := []string{sectionTitleStyle.Render("Heart Rate Over Time (bpm)")}

	data := trimTrailingZeros(downsample(m.detail.HRData, 60))
	if len(data) > 2 {
		lines = append(lines, asciigraph.Plot(data,
			asciigraph.Height(8),
			asciigraph.Width(50),
		))
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

// downsample averages data into targetLen buckets, ignoring zeros
func downsample(data []float64, targetLen int) []float64 {
	if len(data) <= targetLen {
		return data
	}

	result := make([]float64, targetLen)
	ratio := float64(len(data)) / float64(targetLen)

	for i := 0; i < targetLen; i++ {
		start := int(float64(i) * ratio)
		end := int(float64(i+1) * ratio)
		if end > len(data) {
			end = len(data)
		}

		sum := 0.0
		count := 0
		for j := start; j < end; j++ {
			if data[j] > 0 {
				sum += data[j]
				count++
			}
		}
		if count > 0 {
			result[i] = sum / float64(count)
		}
	}

	return result
}

func trimTrailingZeros(data []float64) []float64 {
	end := len(data)
	for end > 0 && data[end-1] == 0 {
		end--
	}
	return data[:end]
}
