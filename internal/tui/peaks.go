package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"trainload/internal/analysis"
	"trainload/internal/service"
)

var peakLookbacks = []analysis.Lookback{analysis.Lookback90Days, analysis.LookbackYear, analysis.LookbackAll}

// PeaksModel is the peak curves screen model
type PeaksModel struct {
	pipeline *service.Pipeline
	units    Units
	lookback analysis.Lookback
	scope    int
	snap     *service.Snapshot
	loading  bool
	err      error
}

// NewPeaksModel creates a new peaks model
func NewPeaksModel(p *service.Pipeline, units Units, lookback analysis.Lookback) PeaksModel {
	return PeaksModel{
		pipeline: p,
		units:    units,
		lookback: lookback,
		loading:  true,
	}
}

type peaksLoadedMsg struct {
	lookback analysis.Lookback
	snap     *service.Snapshot
	err      error
}

// Init loads the curves for the current lookback
func (m PeaksModel) Init() tea.Cmd {
	return m.loadPeaks
}

func (m PeaksModel) loadPeaks() tea.Msg {
	snap, err := m.pipeline.Compute(context.Background(), service.ComputeOptions{
		Lookback: m.lookback,
		Now:      time.Now(),
	})
	return peaksLoadedMsg{lookback: m.lookback, snap: snap, err: err}
}

func nextLookback(current analysis.Lookback) analysis.Lookback {
	for i, lb := range peakLookbacks {
		if lb == current {
			return peakLookbacks[(i+1)%len(peakLookbacks)]
		}
	}
	return peakLookbacks[0]
}

// Update handles messages
func (m PeaksModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case peaksLoadedMsg:
		// Results for a lookback the user has since toggled away from are stale
		if msg.lookback != m.lookback {
			return m, nil
		}
		m.loading = false
		m.err = msg.err
		m.snap = msg.snap
		if m.snap != nil && m.scope >= len(m.snap.Scopes) {
			m.scope = 0
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "l":
			m.lookback = nextLookback(m.lookback)
			m.loading = true
			return m, m.loadPeaks
		case "tab", "right":
			if m.snap != nil && len(m.snap.Scopes) > 0 {
				m.scope = (m.scope + 1) % len(m.snap.Scopes)
			}
		case "shift+tab", "left":
			if m.snap != nil && len(m.snap.Scopes) > 0 {
				m.scope = (m.scope - 1 + len(m.snap.Scopes)) % len(m.snap.Scopes)
			}
		case "r":
			m.loading = true
			return m, m.loadPeaks
		}
	}
	return m, nil
}

// View renders the peak table of the selected scope
func (m PeaksModel) View() string {
	if m.loading {
		return "\n  Computing peak curves..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if m.snap == nil || len(m.snap.Scopes) == 0 {
		return "\n  No activities yet. Press 's' to sync."
	}

	scope := m.snap.Scopes[m.scope]
	var sections []string

	title := cardTitleStyle.Render(fmt.Sprintf("Peak Curves: %s", scopeLabel(scope))) +
		"  " + statusStyle.Render("lookback "+m.lookback.String())
	sections = append(sections, title)
	sections = append(sections, m.renderScopeTabs())

	records := m.snap.Peaks[scope]
	if len(records) == 0 {
		sections = append(sections, "\n  No stream data in this lookback.")
	} else {
		sections = append(sections, m.renderTable(records))
	}

	if n := len(m.snap.Skipped); n > 0 {
		sections = append(sections, warningStyle.Render(fmt.Sprintf("\n  %d activities skipped for unusable streams", n)))
	}

	help := statusStyle.Render("\n  l: cycle lookback  tab/arrows: switch sport  r: refresh")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func scopeLabel(s analysis.Scope) string {
	if s == analysis.ScopeAll {
		return "All sports"
	}
	return string(s)
}

func (m PeaksModel) renderScopeTabs() string {
	tabs := make([]string, len(m.snap.Scopes))
	for i, s := range m.snap.Scopes {
		if i == m.scope {
			tabs[i] = navActiveStyle.Render("[" + scopeLabel(s) + "]")
		} else {
			tabs[i] = navInactiveStyle.Render(" " + scopeLabel(s) + " ")
		}
	}
	return strings.Join(tabs, " ")
}

func (m PeaksModel) renderTable(records []analysis.PeakRecord) string {
	type key struct {
		metric analysis.PeakMetric
		window int
	}
	best := make(map[key]analysis.PeakRecord, len(records))
	var windows []int
	seen := make(map[int]bool)
	for _, r := range records {
		best[key{r.Metric, r.WindowSeconds}] = r
		if !seen[r.WindowSeconds] {
			seen[r.WindowSeconds] = true
			windows = append(windows, r.WindowSeconds)
		}
	}

	sort.Ints(windows)

	header := tableHeaderStyle.Render(fmt.Sprintf("%-6s  %-22s  %-22s  %-22s",
		"Window", "Heart rate", "Pace", "Power"))
	rows := []string{"", header}

	for _, w := range windows {
		cells := make([]string, len(analysis.PeakMetrics))
		for i, metric := range analysis.PeakMetrics {
			r, ok := best[key{metric, w}]
			if !ok {
				cells[i] = "-"
				continue
			}
			cells[i] = fmt.Sprintf("%s (%s)", m.units.FormatPeak(metric, r.Value), r.Date.Format("Jan 02"))
		}
		rows = append(rows, tableRowStyle.Render(fmt.Sprintf("%-6s  %-22s  %-22s  %-22s",
			formatWindow(w), cells[0], cells[1], cells[2])))
	}

	return strings.Join(rows, "\n")
}
