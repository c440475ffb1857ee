package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette is the set of adaptive colors a Theme is derived from.
type Palette struct {
	Primary   lipgloss.AdaptiveColor
	Running   lipgloss.AdaptiveColor
	Success   lipgloss.AdaptiveColor
	Warning   lipgloss.AdaptiveColor
	Error     lipgloss.AdaptiveColor
	Text      lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
}

// DefaultPalette is a teal-accented palette readable on light and dark
// terminals.
func DefaultPalette() Palette {
	return Palette{
		Primary:   lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#22D3EE"},
		Running:   lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#60A5FA"},
		Success:   lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#4ADE80"},
		Warning:   lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FCD34D"},
		Error:     lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#FCA5A5"},
		Text:      lipgloss.AdaptiveColor{Light: "#0F172A", Dark: "#F1F5F9"},
		Muted:     lipgloss.AdaptiveColor{Light: "#64748B", Dark: "#94A3B8"},
		Border:    lipgloss.AdaptiveColor{Light: "#CBD5E1", Dark: "#334155"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E2E8F0", Dark: "#1E293B"},
	}
}

// Theme holds the lipgloss styles of the run dashboard. Sizes are applied by
// the layout at render time.
type Theme struct {
	Palette Palette

	TitleBar  lipgloss.Style
	TitleHint lipgloss.Style

	SidebarTitle  lipgloss.Style
	SidebarItem   lipgloss.Style
	SidebarActive lipgloss.Style
	SidebarDetail lipgloss.Style

	EventTimestamp lipgloss.Style
	EventMessage   lipgloss.Style

	StatusBar       lipgloss.Style
	StatusKey       lipgloss.Style
	StatusValue     lipgloss.Style
	StatusSeparator lipgloss.Style

	StatusRunning   lipgloss.Style
	StatusCompleted lipgloss.Style
	StatusFailed    lipgloss.Style
	StatusWarning   lipgloss.Style
	StatusPending   lipgloss.Style

	HelpKey   lipgloss.Style
	HelpDesc  lipgloss.Style
	HelpBox   lipgloss.Style
	Divider   lipgloss.Style
	Muted     lipgloss.Style
	ErrorText lipgloss.Style
}

// DefaultTheme returns NewTheme(DefaultPalette()).
func DefaultTheme() Theme {
	return NewTheme(DefaultPalette())
}

// NewTheme derives every dashboard style from p.
func NewTheme(p Palette) Theme {
	fg := func(c lipgloss.AdaptiveColor) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }
	bold := func(c lipgloss.AdaptiveColor) lipgloss.Style { return fg(c).Bold(true) }

	return Theme{
		Palette: p,

		TitleBar:  bold(p.Text).Background(p.Highlight).Padding(0, 1),
		TitleHint: fg(p.Muted),

		SidebarTitle:  bold(p.Primary),
		SidebarItem:   lipgloss.NewStyle().PaddingLeft(1),
		SidebarActive: lipgloss.NewStyle().Bold(true).Background(p.Highlight).PaddingLeft(1),
		SidebarDetail: fg(p.Muted).PaddingLeft(1),

		EventTimestamp: fg(p.Muted),
		EventMessage:   fg(p.Text),

		StatusBar:       fg(p.Muted).Background(p.Highlight).Padding(0, 1),
		StatusKey:       bold(p.Primary),
		StatusValue:     fg(p.Text),
		StatusSeparator: fg(p.Border),

		StatusRunning:   bold(p.Running),
		StatusCompleted: fg(p.Success),
		StatusFailed:    bold(p.Error),
		StatusWarning:   fg(p.Warning),
		StatusPending:   fg(p.Muted),

		HelpKey:   bold(p.Primary),
		HelpDesc:  fg(p.Muted),
		HelpBox:   lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(p.Primary).Padding(1, 2),
		Divider:   fg(p.Border),
		Muted:     fg(p.Muted),
		ErrorText: bold(p.Error),
	}
}

// Category returns the style of an event log entry.
func (t Theme) Category(cat EventCategory) lipgloss.Style {
	switch cat {
	case EventSuccess:
		return t.StatusCompleted
	case EventWarning:
		return t.StatusWarning
	case EventError:
		return t.StatusFailed
	case EventDebug:
		return t.Muted
	default:
		return t.EventMessage
	}
}
