package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/AbdelazizMoustafa10m/stepper/internal/stepper"
)

// MaxEventLogEntries bounds the log; the oldest entries are evicted first.
const MaxEventLogEntries = 500

// EventCategory classifies a log entry for color coding.
type EventCategory int

const (
	EventInfo EventCategory = iota
	EventSuccess
	EventWarning
	EventError
	EventDebug
)

// EventEntry is one line of the event log.
type EventEntry struct {
	Timestamp time.Time
	Category  EventCategory
	Message   string
}

// EventLogModel is the scrollable event log on the right of the dashboard.
// It keeps a bounded buffer of entries and renders them in a viewport that
// follows the tail until the user scrolls up.
type EventLogModel struct {
	theme      Theme
	keys       KeyMap
	width      int
	height     int
	focused    bool
	entries    []EventEntry
	viewport   viewport.Model
	autoScroll bool
}

// NewEventLogModel creates an empty log with auto-scroll enabled.
func NewEventLogModel(theme Theme, keys KeyMap) EventLogModel {
	return EventLogModel{
		theme:      theme,
		keys:       keys,
		autoScroll: true,
		viewport:   viewport.New(0, 0),
	}
}

// SetDimensions resizes the panel. One row is reserved for the header.
func (el *EventLogModel) SetDimensions(width, height int) {
	el.width = width
	el.height = height
	el.viewport.Width = width
	el.viewport.Height = max(height-1, 0)
	el.rebuildContent()
}

// SetFocused sets whether the log has keyboard focus.
func (el *EventLogModel) SetFocused(focused bool) {
	el.focused = focused
}

// Entries returns a copy of the buffered entries.
func (el EventLogModel) Entries() []EventEntry {
	return append([]EventEntry(nil), el.entries...)
}

// AddEntry appends an entry stamped with the current time.
func (el *EventLogModel) AddEntry(category EventCategory, message string) {
	el.addAt(time.Now(), category, message)
}

func (el *EventLogModel) addAt(ts time.Time, category EventCategory, message string) {
	el.entries = append(el.entries, EventEntry{Timestamp: ts, Category: category, Message: message})
	if len(el.entries) > MaxEventLogEntries {
		el.entries = el.entries[len(el.entries)-MaxEventLogEntries:]
	}
	el.rebuildContent()
}

func (el *EventLogModel) rebuildContent() {
	lines := make([]string, len(el.entries))
	for i, e := range el.entries {
		lines[i] = el.formatEntry(e)
	}
	el.viewport.SetContent(strings.Join(lines, "\n"))
	if el.autoScroll {
		el.viewport.GotoBottom()
	}
}

func (el EventLogModel) formatEntry(e EventEntry) string {
	ts := el.theme.EventTimestamp.Render(e.Timestamp.Format("15:04:05"))
	return ts + " " + el.theme.Category(e.Category).Render(e.Message)
}

// Update logs run events and, when focused, scrolls.
func (el EventLogModel) Update(msg tea.Msg) EventLogModel {
	switch msg := msg.(type) {
	case RunEventMsg:
		if cat, text, ok := classifyRunEvent(msg.Event); ok {
			ts := msg.Event.Timestamp
			if ts.IsZero() {
				ts = time.Now()
			}
			el.addAt(ts, cat, text)
		}
	case FocusChangedMsg:
		el.focused = msg.Panel == FocusEventLog
	case tea.KeyMsg:
		if el.focused {
			return el.handleKey(msg)
		}
	}
	return el
}

func (el EventLogModel) handleKey(msg tea.KeyMsg) EventLogModel {
	switch {
	case key.Matches(msg, el.keys.Up):
		el.viewport.ScrollUp(1)
		el.autoScroll = false
	case key.Matches(msg, el.keys.Down):
		el.viewport.ScrollDown(1)
		el.autoScroll = el.viewport.AtBottom()
	case key.Matches(msg, el.keys.PageUp):
		el.viewport.PageUp()
		el.autoScroll = false
	case key.Matches(msg, el.keys.PageDown):
		el.viewport.PageDown()
		el.autoScroll = el.viewport.AtBottom()
	case key.Matches(msg, el.keys.Home):
		el.viewport.GotoTop()
		el.autoScroll = false
	case key.Matches(msg, el.keys.End):
		el.viewport.GotoBottom()
		el.autoScroll = true
	}
	return el
}

// View renders the header and the viewport.
func (el EventLogModel) View() string {
	if el.width <= 0 || el.height <= 0 {
		return ""
	}
	title := "EVENTS"
	if !el.autoScroll {
		title += " (scrolled)"
	}
	header := el.theme.SidebarTitle.Render(title)
	if el.focused {
		header = el.theme.SidebarTitle.Underline(true).Render(title)
	}
	if len(el.entries) == 0 {
		return header + "\n" + el.theme.Muted.Render("No events yet")
	}
	return header + "\n" + el.viewport.View()
}

// classifyRunEvent maps an engine event to a log line. ok is false for
// events that get no line.
func classifyRunEvent(ev stepper.Event) (cat EventCategory, text string, ok bool) {
	prefix := ""
	if ev.ContextID != "" {
		prefix = "[" + ev.ContextID + "] "
	}
	step := shortStepID(ev.Step)
	withErr := func(s string) string {
		if ev.Error != "" {
			return s + ": " + ev.Error
		}
		return s
	}

	switch ev.Type {
	case stepper.EventContextStarted:
		return EventInfo, prefix + "context started", true
	case stepper.EventContextFinished:
		return categoryForSeverity(ev.Severity), withErr(prefix + "context finished (" + severityLabel(ev.Severity) + ")"), true
	case stepper.EventGroupStarted:
		return EventDebug, prefix + "group " + step, true
	case stepper.EventIterationStarted:
		return EventDebug, prefix + ev.Message, true
	case stepper.EventStepStarted:
		return EventInfo, prefix + "▶ " + step, true
	case stepper.EventStepCompleted:
		sev := severityLabel(ev.Severity)
		if sev == "ok" {
			return EventSuccess, prefix + "✓ " + step, true
		}
		return categoryForSeverity(ev.Severity), withErr(fmt.Sprintf("%s✓ %s (%s)", prefix, step, sev)), true
	case stepper.EventStepFailed:
		return EventError, withErr(prefix + "✗ " + step), true
	case stepper.EventStepSkipped:
		return EventDebug, prefix + "skipped " + step, true
	case stepper.EventRollbackStarted:
		return EventWarning, prefix + "rolling back", true
	case stepper.EventStepRolledBack:
		return EventWarning, prefix + "↺ " + step, true
	case stepper.EventRollbackFailed:
		return EventError, withErr(prefix + "rollback failed " + step), true
	case stepper.EventRunFailed:
		return EventError, withErr(prefix + "run failed"), true
	default:
		return EventInfo, "", false
	}
}

func severityLabel(sev string) string {
	if sev == "" {
		return "ok"
	}
	return sev
}

func categoryForSeverity(sev string) EventCategory {
	switch sev {
	case "error":
		return EventError
	case "warning", "cancel":
		return EventWarning
	case "ok", "":
		return EventSuccess
	default:
		return EventInfo
	}
}
