package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/AbdelazizMoustafa10m/stepper/internal/stepper"
)

// RunEventMsg carries one engine event into the dashboard.
type RunEventMsg struct {
	Event stepper.Event
}

// ProgressMsg carries a root progress update.
type ProgressMsg struct {
	Update stepper.ProgressUpdate
}

// RunFinishedMsg is sent once when the run returns. Err is the run result.
type RunFinishedMsg struct {
	Err error
}

// TickMsg drives the elapsed timer.
type TickMsg struct {
	Time time.Time
}

// FocusChangedMsg tells panels which one holds keyboard focus.
type FocusChangedMsg struct {
	Panel FocusPanel
}

// tickInterval is how often the elapsed timer is refreshed.
const tickInterval = time.Second

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}
