package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// KeyMap defines the dashboard keybindings. Global keys are always active;
// scrolling keys go to the focused panel.
type KeyMap struct {
	Quit      key.Binding
	Help      key.Binding
	FocusNext key.Binding
	FocusPrev key.Binding

	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding
}

// DefaultKeyMap returns the default dashboard keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q/ctrl+c", "cancel run, again to quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		FocusNext: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next panel"),
		),
		FocusPrev: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev panel"),
		),

		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "page down"),
		),
		Home: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("home/g", "top"),
		),
		End: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("end/G", "bottom"),
		),
	}
}

// FocusPanel identifies which panel has keyboard focus.
type FocusPanel int

const (
	// FocusContexts is the context list on the left.
	FocusContexts FocusPanel = iota
	// FocusEventLog is the event log on the right.
	FocusEventLog
)

const focusPanelCount = 2

// NextFocus returns the next panel in the focus cycle.
func NextFocus(current FocusPanel) FocusPanel {
	return FocusPanel((int(current) + 1) % focusPanelCount)
}

// PrevFocus returns the previous panel in the focus cycle.
func PrevFocus(current FocusPanel) FocusPanel {
	return FocusPanel((int(current) + focusPanelCount - 1) % focusPanelCount)
}

// HelpOverlay displays a centered keybinding reference over the dashboard.
type HelpOverlay struct {
	theme   Theme
	keyMap  KeyMap
	visible bool
	width   int
	height  int
}

// NewHelpOverlay creates a hidden HelpOverlay.
func NewHelpOverlay(theme Theme, keyMap KeyMap) HelpOverlay {
	return HelpOverlay{theme: theme, keyMap: keyMap}
}

// SetDimensions updates the terminal size the overlay is centered in.
func (h *HelpOverlay) SetDimensions(width, height int) {
	h.width = width
	h.height = height
}

// Toggle flips the overlay visibility.
func (h *HelpOverlay) Toggle() {
	h.visible = !h.visible
}

// IsVisible reports whether the overlay is shown.
func (h HelpOverlay) IsVisible() bool {
	return h.visible
}

// Update dismisses the overlay on '?' or Esc. Other keys are swallowed.
func (h HelpOverlay) Update(msg tea.Msg) HelpOverlay {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if key.Matches(keyMsg, h.keyMap.Help) || keyMsg.Type == tea.KeyEsc {
			h.visible = false
		}
	}
	return h
}

// View renders the overlay, or "" when hidden or unsized.
func (h HelpOverlay) View() string {
	if !h.visible || h.width == 0 || h.height == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(h.theme.SidebarTitle.Render("Keyboard Shortcuts"))
	sb.WriteString("\n\n")
	for _, b := range []key.Binding{
		h.keyMap.FocusNext, h.keyMap.FocusPrev,
		h.keyMap.Up, h.keyMap.Down, h.keyMap.PageUp, h.keyMap.PageDown, h.keyMap.Home, h.keyMap.End,
		h.keyMap.Help, h.keyMap.Quit,
	} {
		sb.WriteString(h.bindingLine(b))
	}
	sb.WriteString("\n")
	sb.WriteString(h.theme.HelpDesc.Italic(true).Render("Press ? or Esc to close"))

	boxed := h.theme.HelpBox.Render(sb.String())
	return lipgloss.Place(h.width, h.height, lipgloss.Center, lipgloss.Center, boxed)
}

func (h HelpOverlay) bindingLine(b key.Binding) string {
	k := h.theme.HelpKey.Width(10).Render(b.Help().Key)
	return "  " + k + "  " + h.theme.HelpDesc.Render(b.Help().Desc) + "\n"
}
