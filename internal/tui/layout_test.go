package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayout_Resize(t *testing.T) {
	t.Parallel()
	l := NewLayout()
	require.True(t, l.Resize(100, 30))
	assert.False(t, l.IsTooSmall())

	assert.Equal(t, PanelDimensions{Width: 100, Height: 1}, l.TitleBar)
	assert.Equal(t, PanelDimensions{Width: DefaultSidebarWidth, Height: 28}, l.Sidebar)
	assert.Equal(t, PanelDimensions{Width: 100 - DefaultSidebarWidth - 1, Height: 28}, l.EventLog)
	assert.Equal(t, PanelDimensions{Width: 100, Height: 1}, l.StatusBar)
}

func TestLayout_TooSmall(t *testing.T) {
	t.Parallel()
	tests := []struct{ w, h int }{
		{MinTerminalWidth - 1, 40},
		{120, MinTerminalHeight - 1},
		{0, 0},
	}
	for _, tt := range tests {
		l := NewLayout()
		assert.False(t, l.Resize(tt.w, tt.h))
		assert.True(t, l.IsTooSmall())
		assert.Contains(t, l.RenderTooSmall(DefaultTheme()), "Terminal too small")
	}
}

func TestLayout_TooSmallKeepsPreviousPanels(t *testing.T) {
	t.Parallel()
	l := NewLayout()
	require.True(t, l.Resize(100, 30))
	before := l.Sidebar
	l.Resize(10, 5)
	assert.Equal(t, before, l.Sidebar)
}

func TestLayout_RenderFillsTerminal(t *testing.T) {
	t.Parallel()
	l := NewLayout()
	require.True(t, l.Resize(80, 20))

	frame := l.Render("title", "contexts", "events", "status")
	lines := strings.Split(frame, "\n")
	assert.Len(t, lines, 20)
	assert.Equal(t, 80, lipgloss.Width(frame))
	assert.Contains(t, lines[0], "title")
	assert.Contains(t, lines[1], "contexts")
	assert.Contains(t, lines[1], "events")
	assert.Contains(t, lines[19], "status")
}
