// Package tui implements the full-screen run dashboard shown by
// "stepper run --dashboard". The dashboard is a Bubble Tea program fed by an
// EventBridge: engine events drive the context list and the event log, root
// progress drives the status bar.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/AbdelazizMoustafa10m/stepper/internal/logging"
)

// AppConfig configures the dashboard.
type AppConfig struct {
	// Version is shown in the title bar.
	Version string
	// GroupID and GroupLabel identify the group being run.
	GroupID    string
	GroupLabel string
	// ContextIDs seeds the context list in run order.
	ContextIDs []string
	// Cancel is called once when the user asks to stop the run.
	Cancel func()
}

// App is the top-level Bubble Tea model of the dashboard.
//
// The first quit key press cancels the run and waits for it to unwind; the
// dashboard then exits on its own. A second press exits immediately. Once the
// run has finished, the quit key exits.
type App struct {
	config AppConfig
	theme  Theme
	keys   KeyMap
	layout Layout

	sidebar   SidebarModel
	eventLog  EventLogModel
	statusBar StatusBarModel
	help      HelpOverlay

	focus      FocusPanel
	ready      bool
	cancelling bool
	finished   bool
	quitting   bool
	result     error
}

// NewApp builds the dashboard model. Focus starts on the context list.
func NewApp(cfg AppConfig) App {
	theme := DefaultTheme()
	keys := DefaultKeyMap()
	a := App{
		config:    cfg,
		theme:     theme,
		keys:      keys,
		layout:    NewLayout(),
		sidebar:   NewSidebarModel(theme, keys, cfg.ContextIDs),
		eventLog:  NewEventLogModel(theme, keys),
		statusBar: NewStatusBarModel(theme),
		help:      NewHelpOverlay(theme, keys),
		focus:     FocusContexts,
	}
	a.sidebar.SetFocused(true)
	return a
}

// Init starts the elapsed timer.
func (a App) Init() tea.Cmd {
	return tickCmd()
}

// Finished reports whether the run has returned, and its result.
func (a App) Finished() (bool, error) {
	return a.finished, a.result
}

// Update dispatches messages to the panels and handles global keys.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.ready = true
		if a.layout.Resize(m.Width, m.Height) {
			a.sidebar.SetDimensions(a.layout.Sidebar.Width, a.layout.Sidebar.Height)
			a.eventLog.SetDimensions(a.layout.EventLog.Width, a.layout.EventLog.Height)
			a.statusBar.SetWidth(a.layout.StatusBar.Width)
		}
		a.help.SetDimensions(m.Width, m.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(m)

	case TickMsg:
		a.statusBar = a.statusBar.Update(m)
		if a.finished {
			return a, nil
		}
		return a, tickCmd()

	case RunEventMsg:
		a.sidebar = a.sidebar.Update(m)
		a.eventLog = a.eventLog.Update(m)
		a.statusBar = a.statusBar.Update(m)
		return a, nil

	case ProgressMsg:
		a.statusBar = a.statusBar.Update(m)
		return a, nil

	case RunFinishedMsg:
		a.finished = true
		a.result = m.Err
		a.statusBar = a.statusBar.Update(m)
		label := resultLabel(m.Err)
		a.eventLog.AddEntry(categoryForSeverity(label), fmt.Sprintf("run finished (%s), press q to exit", label))
		if a.cancelling {
			a.quitting = true
			return a, tea.Quit
		}
		return a, nil
	}
	return a, nil
}

func (a App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.help.IsVisible() {
		a.help = a.help.Update(m)
		return a, nil
	}

	switch {
	case key.Matches(m, a.keys.Quit):
		if a.finished || a.cancelling {
			a.quitting = true
			return a, tea.Quit
		}
		a.cancelling = true
		a.statusBar.SetState("cancelling")
		a.eventLog.AddEntry(EventWarning, "cancelling run, press q again to quit without waiting")
		logging.New("tui").Debug("run cancel requested")
		if a.config.Cancel != nil {
			a.config.Cancel()
		}
		return a, nil

	case key.Matches(m, a.keys.Help):
		a.help.Toggle()
		return a, nil

	case key.Matches(m, a.keys.FocusNext):
		return a.setFocus(NextFocus(a.focus)), nil

	case key.Matches(m, a.keys.FocusPrev):
		return a.setFocus(PrevFocus(a.focus)), nil
	}

	a.sidebar = a.sidebar.Update(m)
	a.eventLog = a.eventLog.Update(m)
	return a, nil
}

func (a App) setFocus(p FocusPanel) App {
	a.focus = p
	msg := FocusChangedMsg{Panel: p}
	a.sidebar = a.sidebar.Update(msg)
	a.eventLog = a.eventLog.Update(msg)
	return a
}

// View renders the dashboard.
func (a App) View() string {
	if a.quitting {
		return ""
	}
	if !a.ready {
		return "Starting dashboard..."
	}
	if a.layout.IsTooSmall() {
		return a.layout.RenderTooSmall(a.theme)
	}
	if a.help.IsVisible() {
		return a.help.View()
	}
	return a.layout.Render(a.renderTitleBar(), a.sidebar.View(), a.eventLog.View(), a.statusBar.View())
}

func (a App) renderTitleBar() string {
	title := "stepper"
	if a.config.Version != "" {
		title += " v" + a.config.Version
	}
	group := a.config.GroupID
	if a.config.GroupLabel != "" && a.config.GroupLabel != a.config.GroupID {
		group = fmt.Sprintf("%s (%s)", a.config.GroupLabel, a.config.GroupID)
	}
	if group != "" {
		title += "  |  " + group
	}
	return a.theme.TitleBar.
		Width(a.layout.TitleBar.Width).
		Render(title + "  " + a.theme.TitleHint.Render(fmt.Sprintf("%d context(s)", len(a.config.ContextIDs))))
}

// NewProgram wraps app in a full-screen program.
func NewProgram(app App, opts ...tea.ProgramOption) *tea.Program {
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	return tea.NewProgram(app, opts...)
}

var _ tea.Model = App{}
