package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/charmbracelet/huh"
	"github.com/stretchr/testify/assert"
)

func TestMapSelectErr(t *testing.T) {
	assert.ErrorIs(t, mapSelectErr(huh.ErrUserAborted), ErrSelectionCancelled)
	assert.ErrorIs(t, mapSelectErr(fmt.Errorf("form: %w", huh.ErrUserAborted)), ErrSelectionCancelled)

	other := errors.New("tty gone")
	assert.Equal(t, other, mapSelectErr(other))
	assert.NoError(t, mapSelectErr(nil))
}

func TestSelectionSummary(t *testing.T) {
	got := selectionSummary(&runSelection{GroupID: "main", ContextIDs: []string{"a", "b"}, ContinueOnError: true})
	assert.Equal(t, "Group: main\nContexts: a, b\nContinue on error: true", got)

	got = selectionSummary(&runSelection{GroupID: "main"})
	assert.Equal(t, "Group: main\nContinue on error: false", got)
}
