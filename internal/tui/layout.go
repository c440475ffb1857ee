package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// MinTerminalWidth and MinTerminalHeight are the smallest terminal size the
// full dashboard renders in.
const (
	MinTerminalWidth  = 60
	MinTerminalHeight = 12
)

// DefaultSidebarWidth is the column width of the context list.
const DefaultSidebarWidth = 28

const (
	titleBarHeight  = 1
	statusBarHeight = 1
	borderWidth     = 1
)

// PanelDimensions is the size of one panel in terminal cells.
type PanelDimensions struct {
	Width  int
	Height int
}

// Layout computes panel sizes for the dashboard. Call Resize on every
// tea.WindowSizeMsg.
//
//	+------------------------------------------+
//	| Title Bar                                |
//	+-------------+----------------------------+
//	| Contexts    | Event Log                  |
//	|             |                            |
//	+-------------+----------------------------+
//	| Status Bar                               |
//	+------------------------------------------+
type Layout struct {
	termWidth    int
	termHeight   int
	sidebarWidth int

	TitleBar  PanelDimensions
	Sidebar   PanelDimensions
	EventLog  PanelDimensions
	StatusBar PanelDimensions
}

// NewLayout returns a Layout with DefaultSidebarWidth.
func NewLayout() Layout {
	return Layout{sidebarWidth: DefaultSidebarWidth}
}

// Resize recalculates the panel dimensions. It records the raw size and
// returns false when the terminal is below the minimum.
func (l *Layout) Resize(width, height int) bool {
	l.termWidth = width
	l.termHeight = height
	if l.IsTooSmall() {
		return false
	}

	contentHeight := height - titleBarHeight - statusBarHeight
	mainWidth := width - l.sidebarWidth - borderWidth

	l.TitleBar = PanelDimensions{Width: width, Height: titleBarHeight}
	l.Sidebar = PanelDimensions{Width: l.sidebarWidth, Height: contentHeight}
	l.EventLog = PanelDimensions{Width: mainWidth, Height: contentHeight}
	l.StatusBar = PanelDimensions{Width: width, Height: statusBarHeight}
	return true
}

// IsTooSmall reports whether the last known size is below the minimum.
func (l Layout) IsTooSmall() bool {
	return l.termWidth < MinTerminalWidth || l.termHeight < MinTerminalHeight
}

// Render assembles a frame from the pre-rendered panel contents.
func (l Layout) Render(titleBar, sidebar, eventLog, statusBar string) string {
	size := func(d PanelDimensions, s string) string {
		return lipgloss.NewStyle().Width(d.Width).Height(d.Height).MaxHeight(d.Height).Render(s)
	}

	divider := lipgloss.NewStyle().
		Foreground(DefaultPalette().Border).
		Render(strings.TrimSuffix(strings.Repeat("│\n", l.Sidebar.Height), "\n"))

	middle := lipgloss.JoinHorizontal(lipgloss.Top,
		size(l.Sidebar, sidebar), divider, size(l.EventLog, eventLog))
	return lipgloss.JoinVertical(lipgloss.Left,
		size(l.TitleBar, titleBar), middle, size(l.StatusBar, statusBar))
}

// RenderTooSmall returns a resize hint centered in the terminal.
func (l Layout) RenderTooSmall(theme Theme) string {
	msg := theme.ErrorText.Render(fmt.Sprintf("Terminal too small.\nPlease resize to at least %dx%d.",
		MinTerminalWidth, MinTerminalHeight))
	if l.termWidth <= 0 || l.termHeight <= 0 {
		return msg
	}
	return lipgloss.Place(l.termWidth, l.termHeight, lipgloss.Center, lipgloss.Center, msg)
}
