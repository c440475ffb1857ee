package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanCmd_DefaultGroup(t *testing.T) {
	dir := inProject(t, "nobody")

	stdout, _, code := captureOutput(t, "--no-color", "plan")
	assert.Equal(t, ExitOK, code)
	assert.Contains(t, stdout, "Plan: Main (main)")
	assert.Contains(t, stdout, "mark")
	assert.Contains(t, stdout, "check")
	assert.Contains(t, stdout, "Contexts (2): alpha, beta")
	assert.Empty(t, readMarks(t, dir))
}

func TestPlanCmd_NamedGroupAndContext(t *testing.T) {
	inProject(t, "nobody")

	stdout, _, code := captureOutput(t, "--no-color", "plan", "other", "-c", "beta")
	assert.Equal(t, ExitOK, code)
	assert.Contains(t, stdout, "(other)")
	assert.Contains(t, stdout, "note")
	assert.Contains(t, stdout, "Contexts (1): beta")
}

func TestPlanCmd_UnknownGroup(t *testing.T) {
	inProject(t, "nobody")

	_, stderr, code := captureOutput(t, "plan", "ghost")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, `unknown group "ghost"`)
}

func TestPlanCmd_NoConfig(t *testing.T) {
	inEmptyDir(t)

	_, stderr, code := captureOutput(t, "plan")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "no groups configured")
}
