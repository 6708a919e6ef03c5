package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"trainload/internal/service"
	"trainload/internal/store"
)

// ActivitiesModel is the activities list screen model
type ActivitiesModel struct {
	units      Units
	activities []store.Activity // newest first
	cursor     int
	offset     int
	pageSize   int
	loading    bool
	err        error
}

// NewActivitiesModel creates a new activities model
func NewActivitiesModel(units Units) ActivitiesModel {
	return ActivitiesModel{
		units:    units,
		pageSize: 15,
		loading:  true,
	}
}

func (m ActivitiesModel) withSnapshot(snap *service.Snapshot, err error) ActivitiesModel {
	m.loading = false
	m.err = err
	if err != nil {
		return m
	}
	m.activities = service.RecentActivities(snap, 0)
	if m.offset+m.cursor >= len(m.activities) {
		m.offset, m.cursor = 0, 0
	}
	return m
}

// Init initializes the activities screen
func (m ActivitiesModel) Init() tea.Cmd {
	return nil
}

func (m ActivitiesModel) page() []store.Activity {
	end := m.offset + m.pageSize
	if end > len(m.activities) {
		end = len(m.activities)
	}
	if m.offset >= end {
		return nil
	}
	return m.activities[m.offset:end]
}

// Update handles messages
func (m ActivitiesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	total := len(m.activities)
	switch keyMsg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		} else if m.offset > 0 {
			// Go to previous page
			m.offset -= m.pageSize
			m.cursor = m.pageSize - 1
		}
	case "down", "j":
		if m.cursor < len(m.page())-1 {
			m.cursor++
		} else if m.offset+m.pageSize < total {
			// Go to next page
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
		if m.offset+m.pageSize < total {
			m.offset += m.pageSize
			m.cursor = 0
		}
	case "enter":
		page := m.page()
		if m.cursor < len(page) {
			activityID := page[m.cursor].ID
			return m, func() tea.Msg {
				return OpenActivityDetailMsg{ActivityID: activityID}
			}
		}
	}
	return m, nil
}

// View renders the activities list
func (m ActivitiesModel) View() string {
	if m.loading {
		return "\n  Loading activities..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if len(m.activities) == 0 {
		return "\n  No activities found. Press 's' to sync with Strava."
	}

	var sections []string

	page := m.page()
	title := cardTitleStyle.Render(fmt.Sprintf("Activities (%d-%d of %d)",
		m.offset+1, m.offset+len(page), len(m.activities)))
	sections = append(sections, title)

	header := tableHeaderStyle.Render(fmt.Sprintf("   %-10s  %-25s  %-8s  %9s  %7s  %8s  %6s  %4s",
		"Date", "Name", "Sport", "Distance", "Time", "Pace", "Avg HR", "TSS"))
	sections = append(sections, header)

	for i, a := range page {
		hr := "-"
		if a.AverageHeartrate > 0 {
			hr = fmt.Sprintf("%.0f", a.AverageHeartrate)
		}

		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		row := fmt.Sprintf("%s%-10s  %-25s  %-8s  %9s  %7s  %8s  %6s  %4d",
			cursor,
			a.StartDateLocal.Format("Jan 02"),
			truncateName(a.Name, 25),
			a.Sport,
			m.units.FormatDistance(a.Distance),
			formatDuration(a.DurationMin),
			m.units.FormatPace(a.AverageSpeed),
			hr,
			a.TSS,
		)

		if i == m.cursor {
			sections = append(sections, tableSelectedStyle.Render(row))
		} else {
			sections = append(sections, tableRowStyle.Render(row))
		}
	}

	help := statusStyle.Render("\n  enter: view details  j/k: navigate  pgup/pgdn: page  r: refresh")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
