package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/AbdelazizMoustafa10m/stepper/internal/status"
	"github.com/AbdelazizMoustafa10m/stepper/internal/stepper"
)

const statusProgressWidth = 20

// StatusBarModel is the bottom line of the dashboard: run state, a progress
// bar, the current sub-task and the elapsed time.
type StatusBarModel struct {
	theme Theme
	width int
	bar   progress.Model

	state     string
	label     string
	subTask   string
	worked    float64
	total     int
	startTime time.Time
	elapsed   time.Duration
	finished  bool
}

// NewStatusBarModel creates a status bar in the "starting" state.
func NewStatusBarModel(theme Theme) StatusBarModel {
	return StatusBarModel{
		theme: theme,
		state: "starting",
		total: stepper.UnknownWork,
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(statusProgressWidth),
			progress.WithoutPercentage(),
		),
	}
}

// SetWidth updates the bar width.
func (sb *StatusBarModel) SetWidth(width int) {
	sb.width = width
}

// SetState overrides the state label, e.g. "cancelling".
func (sb *StatusBarModel) SetState(state string) {
	sb.state = state
}

// State returns the state label.
func (sb StatusBarModel) State() string {
	return sb.state
}

// Percent returns the completed fraction, or -1 when the total is unknown.
func (sb StatusBarModel) Percent() float64 {
	if sb.finished {
		return 1
	}
	if sb.total <= 0 {
		return -1
	}
	return min(sb.worked/float64(sb.total), 1)
}

// Update applies progress, timer and lifecycle messages.
func (sb StatusBarModel) Update(msg tea.Msg) StatusBarModel {
	switch m := msg.(type) {
	case ProgressMsg:
		u := m.Update
		if u.Label != "" {
			sb.label = u.Label
		}
		sb.subTask = u.SubTask
		sb.worked = u.Worked
		sb.total = u.Total
	case RunEventMsg:
		if m.Event.Type == stepper.EventRunStarted && sb.startTime.IsZero() {
			sb.startTime = m.Event.Timestamp
			if sb.state == "starting" {
				sb.state = "running"
			}
		}
	case TickMsg:
		if !sb.finished && !sb.startTime.IsZero() {
			sb.elapsed = max(m.Time.Sub(sb.startTime), 0)
		}
	case RunFinishedMsg:
		sb.finished = true
		if !sb.startTime.IsZero() {
			sb.elapsed = max(time.Since(sb.startTime), 0)
		}
		sb.state = resultLabel(m.Err)
	}
	return sb
}

// resultLabel names the outcome of a finished run.
func resultLabel(err error) string {
	st := status.FromError(err)
	if st.IsOK() {
		return "ok"
	}
	return st.Severity.String()
}

func (sb StatusBarModel) stateStyle() lipgloss.Style {
	switch sb.state {
	case "ok", "info":
		return sb.theme.StatusCompleted
	case "error":
		return sb.theme.StatusFailed
	case "warning", "cancel", "cancelling":
		return sb.theme.StatusWarning
	default:
		return sb.theme.StatusRunning
	}
}

// View renders the single status line. Segments that do not fit are dropped
// from the right, the help hint always stays.
func (sb StatusBarModel) View() string {
	if sb.width <= 0 {
		return ""
	}
	sep := sb.theme.StatusSeparator.Render(" | ")

	progressSeg := sb.theme.StatusValue.Render("working...")
	if pct := sb.Percent(); pct >= 0 {
		progressSeg = sb.bar.ViewAs(pct) + " " + sb.theme.StatusValue.Render(fmt.Sprintf("%3.0f%%", pct*100))
	}
	task := sb.subTask
	if task == "" {
		task = sb.label
	}

	segments := []string{
		sb.stateStyle().Render("[" + sb.state + "]"),
		sep + progressSeg,
		sep + sb.theme.StatusKey.Render("Time") + " " + sb.theme.StatusValue.Render(formatElapsed(sb.elapsed)),
		sep + sb.theme.StatusValue.Render(task),
	}
	help := sep + sb.theme.HelpKey.Render("?") + " " + sb.theme.HelpDesc.Render("help")

	inner := sb.width - 2 // StatusBar padding
	budget := inner - lipgloss.Width(help)
	var left strings.Builder
	used := 0
	for i, seg := range segments {
		w := lipgloss.Width(seg)
		if i > 0 && used+w > budget {
			break
		}
		left.WriteString(seg)
		used += w
	}
	gap := max(inner-used-lipgloss.Width(help), 0)

	return sb.theme.StatusBar.
		Width(sb.width).
		MaxHeight(1).
		Render(left.String() + strings.Repeat(" ", gap) + help)
}

// formatElapsed renders d as HH:MM:SS. Negative durations are zero.
func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}
