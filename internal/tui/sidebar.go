package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/AbdelazizMoustafa10m/stepper/internal/fqid"
	"github.com/AbdelazizMoustafa10m/stepper/internal/stepper"
)

// ContextStatus is the dashboard state of one context.
type ContextStatus int

const (
	ContextPending ContextStatus = iota
	ContextRunning
	ContextRollingBack
	ContextOK
	ContextWarning
	ContextFailed
	ContextCancelled
)

var contextStatusStrings = []string{"pending", "running", "rolling back", "ok", "warning", "failed", "cancelled"}

// String returns the status label, or "unknown" out of range.
func (s ContextStatus) String() string {
	if int(s) < 0 || int(s) >= len(contextStatusStrings) {
		return "unknown"
	}
	return contextStatusStrings[s]
}

// contextStatusFromSeverity maps a finished context's severity name.
func contextStatusFromSeverity(sev string) ContextStatus {
	switch sev {
	case "error":
		return ContextFailed
	case "cancel":
		return ContextCancelled
	case "warning":
		return ContextWarning
	default:
		return ContextOK
	}
}

// ContextEntry is one row of the context list.
type ContextEntry struct {
	ID     string
	Status ContextStatus
	// Step is the short id of the step running or last run.
	Step  string
	Steps int
	Error string
}

// SidebarModel is the context list on the left of the dashboard. Rows are
// created from the configured contexts and updated from run events.
type SidebarModel struct {
	theme   Theme
	keys    KeyMap
	width   int
	height  int
	focused bool

	entries      []ContextEntry
	index        map[string]int
	selectedIdx  int
	scrollOffset int
}

// NewSidebarModel creates a list with one pending row per context id.
func NewSidebarModel(theme Theme, keys KeyMap, contextIDs []string) SidebarModel {
	m := SidebarModel{
		theme: theme,
		keys:  keys,
		index: make(map[string]int, len(contextIDs)),
	}
	for _, id := range contextIDs {
		m.index[id] = len(m.entries)
		m.entries = append(m.entries, ContextEntry{ID: id})
	}
	return m
}

// SetDimensions updates the panel size.
func (m *SidebarModel) SetDimensions(width, height int) {
	m.width = width
	m.height = height
	m.scrollOffset = adjustScroll(m.scrollOffset, m.selectedIdx, m.listHeight())
}

// SetFocused sets whether the list has keyboard focus.
func (m *SidebarModel) SetFocused(focused bool) {
	m.focused = focused
}

// Entries returns a copy of the rows.
func (m SidebarModel) Entries() []ContextEntry {
	return append([]ContextEntry(nil), m.entries...)
}

// Selected returns the selected row, if any.
func (m SidebarModel) Selected() (ContextEntry, bool) {
	if len(m.entries) == 0 {
		return ContextEntry{}, false
	}
	return m.entries[m.selectedIdx], true
}

// Update applies run events and, when focused, navigation keys.
func (m SidebarModel) Update(msg tea.Msg) SidebarModel {
	switch msg := msg.(type) {
	case RunEventMsg:
		return m.handleEvent(msg.Event)
	case FocusChangedMsg:
		m.focused = msg.Panel == FocusContexts
	case tea.KeyMsg:
		if m.focused {
			return m.handleKey(msg)
		}
	}
	return m
}

func (m SidebarModel) handleEvent(ev stepper.Event) SidebarModel {
	if ev.ContextID == "" {
		return m
	}
	i, ok := m.index[ev.ContextID]
	if !ok {
		m.index[ev.ContextID] = len(m.entries)
		m.entries = append(m.entries, ContextEntry{ID: ev.ContextID})
		i = len(m.entries) - 1
	}
	e := &m.entries[i]

	switch ev.Type {
	case stepper.EventContextStarted, stepper.EventRunStarted:
		e.Status = ContextRunning
	case stepper.EventStepStarted:
		e.Status = ContextRunning
		e.Step = shortStepID(ev.Step)
	case stepper.EventStepCompleted:
		e.Steps++
	case stepper.EventStepFailed:
		e.Steps++
		e.Error = ev.Error
	case stepper.EventRollbackStarted:
		e.Status = ContextRollingBack
	case stepper.EventContextFinished:
		e.Status = contextStatusFromSeverity(ev.Severity)
		if ev.Error != "" {
			e.Error = ev.Error
		}
	}
	return m
}

func (m SidebarModel) handleKey(msg tea.KeyMsg) SidebarModel {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.selectedIdx = clampIdx(m.selectedIdx-1, len(m.entries))
	case key.Matches(msg, m.keys.Down):
		m.selectedIdx = clampIdx(m.selectedIdx+1, len(m.entries))
	case key.Matches(msg, m.keys.Home):
		m.selectedIdx = 0
	case key.Matches(msg, m.keys.End):
		m.selectedIdx = clampIdx(len(m.entries)-1, len(m.entries))
	}
	m.scrollOffset = adjustScroll(m.scrollOffset, m.selectedIdx, m.listHeight())
	return m
}

// shortStepID returns "id" or "id#secondary" of the last segment of a full
// qualified id. Unparsable values are returned unchanged.
func shortStepID(s string) string {
	id, err := fqid.Parse(s)
	if err != nil {
		return s
	}
	if id.SecondaryID() != "" {
		return id.ID() + "#" + id.SecondaryID()
	}
	return id.ID()
}

func clampIdx(idx, n int) int {
	if n == 0 || idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}

// adjustScroll keeps selected inside a window of visible rows.
func adjustScroll(offset, selected, visible int) int {
	if visible < 1 {
		return 0
	}
	if selected < offset {
		return selected
	}
	if selected >= offset+visible {
		return selected - visible + 1
	}
	return offset
}

// detailRows is the space reserved below the list for the selected context.
const detailRows = 4

func (m SidebarModel) listHeight() int {
	h := m.height - 2 - detailRows // header and blank line
	if h < 1 {
		return 1
	}
	return h
}

func (m SidebarModel) indicator(s ContextStatus) string {
	switch s {
	case ContextRunning:
		return m.theme.StatusRunning.Render("●")
	case ContextRollingBack:
		return m.theme.StatusWarning.Render("↺")
	case ContextOK:
		return m.theme.StatusCompleted.Render("✓")
	case ContextWarning:
		return m.theme.StatusWarning.Render("!")
	case ContextFailed:
		return m.theme.StatusFailed.Render("✗")
	case ContextCancelled:
		return m.theme.StatusWarning.Render("⊘")
	default:
		return m.theme.StatusPending.Render("○")
	}
}

// truncateName shortens name to maxWidth columns with a trailing "…".
func truncateName(name string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if lipgloss.Width(name) <= maxWidth {
		return name
	}
	var sb strings.Builder
	col := 0
	for _, r := range name {
		rw := lipgloss.Width(string(r))
		if col+rw > maxWidth-1 {
			break
		}
		sb.WriteRune(r)
		col += rw
	}
	sb.WriteString("…")
	return sb.String()
}

// View renders the list and the details of the selected context.
func (m SidebarModel) View() string {
	if m.width == 0 && m.height == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(m.theme.SidebarTitle.Render(fmt.Sprintf("CONTEXTS (%d)", len(m.entries))))
	sb.WriteString("\n\n")

	nameWidth := m.width - 3 // padding, indicator, space
	end := m.scrollOffset + m.listHeight()
	if end > len(m.entries) {
		end = len(m.entries)
	}
	for i := m.scrollOffset; i < end; i++ {
		e := m.entries[i]
		line := m.indicator(e.Status) + " " + truncateName(e.ID, nameWidth)
		if i == m.selectedIdx && m.focused {
			sb.WriteString(m.theme.SidebarActive.Render(line))
		} else {
			sb.WriteString(m.theme.SidebarItem.Render(line))
		}
		sb.WriteString("\n")
	}

	if sel, ok := m.Selected(); ok {
		sb.WriteString("\n")
		detail := []string{
			fmt.Sprintf("%s: %s", sel.ID, sel.Status),
			fmt.Sprintf("steps: %d", sel.Steps),
		}
		if sel.Step != "" {
			detail = append(detail, "at: "+sel.Step)
		}
		if sel.Error != "" {
			detail = append(detail, sel.Error)
		}
		for _, d := range detail {
			sb.WriteString(m.theme.SidebarDetail.Render(truncateName(d, m.width-1)))
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
