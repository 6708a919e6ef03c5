package tui

import (
	"context"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"trainload/internal/analysis"
	"trainload/internal/service"
)

// Screen identifiers
type Screen int

const (
	ScreenDashboard Screen = iota
	ScreenActivities
	ScreenActivityDetail
	ScreenPeaks
	ScreenReadiness
	ScreenStats
	ScreenSync
	ScreenHelp
)

// App is the root Bubble Tea model
type App struct {
	screen     Screen
	prevScreen Screen

	// Screen models
	dashboard  DashboardModel
	activities ActivitiesModel
	detail     ActivityDetailModel
	peaks      PeaksModel
	readiness  ReadinessModel
	stats      StatsModel
	syncScreen SyncModel
	help       HelpModel

	// Services
	pipeline     *service.Pipeline
	queryService *service.QueryService
	syncService  *service.SyncService
	units        Units
	logger       *slog.Logger

	// Window dimensions
	width  int
	height int

	// Status message
	status string
}

// NewApp creates a new App with all dependencies. syncService may be nil when
// no provider account is configured.
func NewApp(pipeline *service.Pipeline, queryService *service.QueryService, syncService *service.SyncService, units Units, lookback analysis.Lookback, logger *slog.Logger) *App {
	return &App{
		screen:       ScreenDashboard,
		pipeline:     pipeline,
		queryService: queryService,
		syncService:  syncService,
		units:        units,
		logger:       logger,
		dashboard:    NewDashboardModel(units),
		activities:   NewActivitiesModel(units),
		peaks:        NewPeaksModel(pipeline, units, lookback),
		readiness:    NewReadinessModel(),
		stats:        NewStatsModel(units),
		syncScreen:   NewSyncModel(syncService),
		help:         NewHelpModel(),
	}
}

type snapshotLoadedMsg struct {
	snap *service.Snapshot
	err  error
}

// loadSnapshot recomputes the derived state shared by the snapshot screens
func (a *App) loadSnapshot() tea.Msg {
	snap, err := a.pipeline.Compute(context.Background(), service.ComputeOptions{
		Lookback: analysis.Lookback90Days,
		Now:      time.Now(),
	})
	if err != nil {
		a.logger.Error("computing snapshot", "error", err)
	}
	return snapshotLoadedMsg{snap: snap, err: err}
}

// Init initializes the app
func (a *App) Init() tea.Cmd {
	return a.loadSnapshot
}

func (a *App) setSnapshot(msg snapshotLoadedMsg) {
	a.dashboard = a.dashboard.withSnapshot(msg.snap, msg.err)
	a.activities = a.activities.withSnapshot(msg.snap, msg.err)
	a.readiness = a.readiness.withSnapshot(msg.snap, msg.err)
	a.stats = a.stats.withSnapshot(msg.snap, msg.err)
	if msg.err == nil {
		a.status = "Updated " + msg.snap.GeneratedAt.Format("15:04:05")
	}
}

func (a *App) refresh() tea.Cmd {
	a.dashboard.loading = true
	a.activities.loading = true
	a.readiness.loading = true
	a.stats.loading = true
	return a.loadSnapshot
}

// Update handles messages
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Global keybindings (unless a sync is running)
		if a.screen != ScreenSync || !a.syncScreen.syncing {
			switch msg.String() {
			case "q", "ctrl+c":
				return a, tea.Quit
			case "1":
				a.screen = ScreenDashboard
				return a, nil
			case "2":
				a.screen = ScreenActivities
				return a, nil
			case "3":
				a.screen = ScreenPeaks
				return a, a.peaks.Init()
			case "4":
				a.screen = ScreenReadiness
				return a, nil
			case "5":
				a.screen = ScreenStats
				return a, nil
			case "6", "s":
				if a.screen != ScreenSync {
					a.screen = ScreenSync
					return a, a.syncScreen.Init()
				}
				// Let 's' fall through to sync screen when already there
			case "r":
				switch a.screen {
				case ScreenDashboard, ScreenActivities, ScreenReadiness, ScreenStats:
					return a, a.refresh()
				}
			case "?":
				a.prevScreen = a.screen
				a.screen = ScreenHelp
				return a, nil
			case "esc":
				switch a.screen {
				case ScreenHelp:
					a.screen = a.prevScreen
					return a, nil
				case ScreenActivityDetail:
					a.screen = ScreenActivities
					return a, nil
				}
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		m, cmd := a.detail.Update(msg)
		a.detail = m.(ActivityDetailModel)
		return a, cmd

	case snapshotLoadedMsg:
		a.setSnapshot(msg)
		return a, nil

	case OpenActivityDetailMsg:
		a.screen = ScreenActivityDetail
		a.detail = NewActivityDetailModel(a.queryService, a.units, msg.ActivityID, a.width, a.height)
		return a, a.detail.Init()

	case SyncCompleteMsg:
		// New activities invalidate every snapshot screen and the peak cache view
		a.peaks.loading = true
		return a, tea.Batch(a.refresh(), a.peaks.Init())
	}

	// Delegate to current screen
	var cmd tea.Cmd
	switch a.screen {
	case ScreenDashboard:
		var m tea.Model
		m, cmd = a.dashboard.Update(msg)
		a.dashboard = m.(DashboardModel)
	case ScreenActivities:
		var m tea.Model
		m, cmd = a.activities.Update(msg)
		a.activities = m.(ActivitiesModel)
	case ScreenActivityDetail:
		var m tea.Model
		m, cmd = a.detail.Update(msg)
		a.detail = m.(ActivityDetailModel)
	case ScreenPeaks:
		var m tea.Model
		m, cmd = a.peaks.Update(msg)
		a.peaks = m.(PeaksModel)
	case ScreenReadiness:
		var m tea.Model
		m, cmd = a.readiness.Update(msg)
		a.readiness = m.(ReadinessModel)
	case ScreenStats:
		var m tea.Model
		m, cmd = a.stats.Update(msg)
		a.stats = m.(StatsModel)
	case ScreenSync:
		var m tea.Model
		m, cmd = a.syncScreen.Update(msg)
		a.syncScreen = m.(SyncModel)
	case ScreenHelp:
		var m tea.Model
		m, cmd = a.help.Update(msg)
		a.help = m.(HelpModel)
	}

	// Background results can arrive after the user has moved to another screen
	switch msg.(type) {
	case peaksLoadedMsg:
		if a.screen != ScreenPeaks {
			m, _ := a.peaks.Update(msg)
			a.peaks = m.(PeaksModel)
		}
	case SyncDoneMsg, syncProgressMsg:
		if a.screen != ScreenSync {
			m, syncCmd := a.syncScreen.Update(msg)
			a.syncScreen = m.(SyncModel)
			cmd = tea.Batch(cmd, syncCmd)
		}
	}

	return a, cmd
}

// View renders the app
func (a *App) View() string {
	header := a.renderHeader()
	nav := a.renderNav()

	var content string
	switch a.screen {
	case ScreenDashboard:
		content = a.dashboard.View()
	case ScreenActivities:
		content = a.activities.View()
	case ScreenActivityDetail:
		content = a.detail.View()
	case ScreenPeaks:
		content = a.peaks.View()
	case ScreenReadiness:
		content = a.readiness.View()
	case ScreenStats:
		content = a.stats.View()
	case ScreenSync:
		content = a.syncScreen.View()
	case ScreenHelp:
		content = a.help.View()
	}

	footer := a.renderFooter()

	return lipgloss.JoinVertical(lipgloss.Left, header, nav, content, footer)
}

func (a *App) renderHeader() string {
	return headerStyle.Render("trainload: training load and readiness")
}

func (a *App) renderNav() string {
	items := []struct {
		key    string
		label  string
		screen Screen
	}{
		{"1", "Dashboard", ScreenDashboard},
		{"2", "Activities", ScreenActivities},
		{"3", "Peaks", ScreenPeaks},
		{"4", "Readiness", ScreenReadiness},
		{"5", "Stats", ScreenStats},
		{"6", "Sync", ScreenSync},
		{"?", "Help", ScreenHelp},
	}

	var nav string
	for i, item := range items {
		if i > 0 {
			nav += "  "
		}

		label := "[" + item.key + "] " + item.label
		active := a.screen == item.screen ||
			(item.screen == ScreenActivities && a.screen == ScreenActivityDetail)
		if active {
			nav += navActiveStyle.Render(label)
		} else {
			nav += navInactiveStyle.Render(label)
		}
	}

	nav += "  " + navInactiveStyle.Render("[q] Quit")

	return navStyle.Render(nav)
}

func (a *App) renderFooter() string {
	if a.status != "" {
		return statusStyle.Render(a.status)
	}
	return ""
}

// SyncCompleteMsg is sent when sync finishes
type SyncCompleteMsg struct{}

// OpenActivityDetailMsg asks the app to show one activity
type OpenActivityDetailMsg struct {
	ActivityID int64
}
