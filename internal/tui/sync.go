package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"trainload/internal/service"
)

// SyncModel is the sync screen model
type SyncModel struct {
	syncService *service.SyncService
	spinner     spinner.Model
	bar         progress.Model
	syncing     bool
	current     service.SyncProgress
	result      *service.SyncResult
	err         error
	done        bool
	cancel      context.CancelFunc
	updates     <-chan service.SyncProgress
}

// NewSyncModel creates a new sync model. ss may be nil, in which case the
// screen only explains how to configure a provider.
func NewSyncModel(ss *service.SyncService) SyncModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return SyncModel{
		syncService: ss,
		spinner:     s,
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

// Init initializes the sync screen
func (m SyncModel) Init() tea.Cmd {
	return nil
}

// SyncDoneMsg is sent when sync finishes
type SyncDoneMsg struct {
	Result *service.SyncResult
	Err    error
}

type syncProgressMsg service.SyncProgress

// waitForProgress delivers the next progress update; a closed channel ends the loop
func waitForProgress(ch <-chan service.SyncProgress) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return nil
		}
		return syncProgressMsg(p)
	}
}

func waitForDone(ch <-chan SyncDoneMsg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

func (m SyncModel) start() (SyncModel, tea.Cmd) {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.syncing = true
	m.done = false
	m.err = nil
	m.result = nil
	m.current = service.SyncProgress{}

	updates := make(chan service.SyncProgress, 16)
	done := make(chan SyncDoneMsg, 1)
	m.updates = updates
	ss := m.syncService
	go func() {
		result, err := ss.SyncAll(ctx, updates)
		done <- SyncDoneMsg{Result: result, Err: err}
	}()

	return m, tea.Batch(m.spinner.Tick, waitForProgress(updates), waitForDone(done))
}

// Update handles messages
func (m SyncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SyncDoneMsg:
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		m.syncing = false
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		return m, func() tea.Msg { return SyncCompleteMsg{} }

	case syncProgressMsg:
		m.current = service.SyncProgress(msg)
		return m, waitForProgress(m.updates)

	case spinner.TickMsg:
		if !m.syncing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.syncing {
			switch msg.String() {
			case "esc", "ctrl+c":
				if m.cancel != nil {
					m.cancel()
				}
			}
			return m, nil
		}
		switch msg.String() {
		case "enter", "s":
			if m.syncService == nil {
				return m, nil
			}
			return m.start()
		}
	}
	return m, nil
}

// View renders the sync screen
func (m SyncModel) View() string {
	var sections []string

	title := cardTitleStyle.Render("Strava Sync")
	sections = append(sections, title)

	if m.syncService == nil {
		sections = append(sections, "\n  No Strava account configured. Add strava.client_id and",
			"  strava.client_secret to the config file, or import FIT files with 'trainload import'.")
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	if m.err != nil && !m.syncing {
		msg := fmt.Sprintf("\n  Error: %v", m.err)
		if errors.Is(m.err, context.Canceled) {
			msg = "\n  Sync cancelled. Stored data is kept."
		}
		sections = append(sections, errorStyle.Render(msg))
		sections = append(sections, m.renderSummary())
		sections = append(sections, "\n"+statusStyle.Render("  Press 's' or Enter to retry"))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	if m.done && !m.syncing {
		sections = append(sections, successStyle.Render("\n  Sync complete!"))
		sections = append(sections, m.renderSummary())
		sections = append(sections, "\n"+statusStyle.Render("  Press '1' to go to dashboard"))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	if m.syncing {
		sections = append(sections, m.renderProgress())
	} else {
		sections = append(sections, m.renderStartPrompt())
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m SyncModel) renderStartPrompt() string {
	lines := []string{
		"",
		"  This will sync your Strava activities:",
		"",
		"  1. Fetch activities newer than the last sync",
		"  2. Download heart rate, speed and power streams",
		"  3. Recompute load, peaks and readiness",
		"",
	}

	if runID, at, err := m.syncService.LastRun(); err == nil && !at.IsZero() {
		lines = append(lines, statusStyle.Render(fmt.Sprintf("  Last sync %s (run %s)", humanize.Time(at), shortID(runID))))
	}

	short, daily := m.syncService.RateLimitStatus()
	lines = append(lines, statusStyle.Render(fmt.Sprintf("  API calls left: %d (15min), %d (daily)", short, daily)))
	lines = append(lines, "")
	lines = append(lines, statusStyle.Render("  Press 's' or Enter to start sync"))

	return strings.Join(lines, "\n")
}

func (m SyncModel) renderProgress() string {
	p := m.current
	phase := "Fetching activity list"
	if p.Phase == service.PhaseStreams {
		phase = "Downloading streams"
	}

	lines := []string{"", "  " + m.spinner.View() + " " + phase}

	if p.Total > 0 {
		pct := float64(p.Completed) / float64(p.Total)
		lines = append(lines, "", "  "+m.bar.ViewAs(pct),
			statusStyle.Render(fmt.Sprintf("  %d of %d", p.Completed, p.Total)))
	} else if p.Completed > 0 {
		lines = append(lines, statusStyle.Render(fmt.Sprintf("  %d activities so far", p.Completed)))
	}

	if p.CurrentActivity != "" {
		lines = append(lines, mutedStyle.Render("  "+truncateName(p.CurrentActivity, 50)))
	}
	if p.Error != nil {
		lines = append(lines, warningStyle.Render(fmt.Sprintf("  %v", p.Error)))
	}

	lines = append(lines, "", statusStyle.Render("  esc: cancel"))
	return strings.Join(lines, "\n")
}

func (m SyncModel) renderSummary() string {
	if m.result == nil {
		return ""
	}

	r := m.result
	lines := []string{""}

	if r.ActivitiesStored > 0 {
		lines = append(lines, successStyle.Render(fmt.Sprintf("  %d activities synced", r.ActivitiesStored)))
	} else {
		lines = append(lines, statusStyle.Render("  No new activities"))
	}

	if r.StreamsFetched > 0 {
		lines = append(lines, successStyle.Render(fmt.Sprintf("  %d streams downloaded", r.StreamsFetched)))
	}

	if r.RateLimited {
		lines = append(lines, warningStyle.Render(fmt.Sprintf(
			"  Rate limit reached, %d streams left for the next sync", r.StreamsPending)))
	}

	if len(r.Errors) > 0 {
		lines = append(lines, "")
		lines = append(lines, warningStyle.Render(fmt.Sprintf("  %d errors occurred, see the log", len(r.Errors))))
	}

	return strings.Join(lines, "\n")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
