package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizMoustafa10m/stepper/internal/config"
	"github.com/AbdelazizMoustafa10m/stepper/internal/status"
	"github.com/AbdelazizMoustafa10m/stepper/internal/stepper"
)

func TestRunCmd_Flags(t *testing.T) {
	cmd := newRunCmd()
	for _, name := range []string{"context", "continue-on-error", "report", "no-report", "select", "no-progress", "dashboard"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "c", cmd.Flags().Lookup("context").Shorthand)
	assert.Contains(t, cmd.Long, "Exit codes:")
}

func TestRunCmd_AllContextsSucceed(t *testing.T) {
	skipOnWindows(t)
	dir := inProject(t, "nobody")

	stdout, stderr, code := captureOutput(t, "run", "--no-progress")
	require.Equal(t, ExitOK, code, "stdout: %s\nstderr: %s", stdout, stderr)

	assert.Equal(t, "alpha\nbeta\n", readMarks(t, dir))
	assert.Contains(t, stdout, "Run Summary")
	assert.Contains(t, stdout, "alpha")
	assert.Contains(t, stdout, "beta")

	report, err := stepper.LoadReport(filepath.Join(dir, config.DefaultReportFile))
	require.NoError(t, err)
	assert.Equal(t, "main", report.StepGroup)
	assert.Equal(t, "ok", report.Severity)
	require.Len(t, report.Contexts, 2)
}

func TestRunCmd_FailureRollsBackAndExitsTwo(t *testing.T) {
	skipOnWindows(t)
	dir := inProject(t, "alpha")

	_, stderr, code := captureOutput(t, "run", "--no-progress")
	assert.Equal(t, ExitFailed, code)
	assert.Contains(t, stderr, "run failed")
	assert.Equal(t, "alpha\nundo-alpha\n", readMarks(t, dir), "beta never runs")
}

func TestRunCmd_ContinueOnError(t *testing.T) {
	skipOnWindows(t)
	dir := inProject(t, "alpha")

	_, _, code := captureOutput(t, "run", "--no-progress", "--continue-on-error")
	assert.Equal(t, ExitFailed, code)
	assert.Equal(t, "alpha\nundo-alpha\nbeta\n", readMarks(t, dir))
}

func TestRunCmd_ContextPattern(t *testing.T) {
	skipOnWindows(t)
	dir := inProject(t, "alpha")

	_, _, code := captureOutput(t, "run", "--no-progress", "-c", "b*")
	assert.Equal(t, ExitOK, code)
	assert.Equal(t, "beta\n", readMarks(t, dir))
}

func TestRunCmd_ContextPatternFromEnv(t *testing.T) {
	skipOnWindows(t)
	dir := inProject(t, "alpha")
	t.Setenv("STEPPER_CONTEXTS", "beta")

	_, _, code := captureOutput(t, "run", "--no-progress")
	assert.Equal(t, ExitOK, code)
	assert.Equal(t, "beta\n", readMarks(t, dir))
}

func TestRunCmd_NoMatchingContext(t *testing.T) {
	inProject(t, "nobody")

	_, stderr, code := captureOutput(t, "run", "-c", "gamma")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "no context matches")
}

func TestRunCmd_UnknownGroup(t *testing.T) {
	inProject(t, "nobody")

	_, stderr, code := captureOutput(t, "run", "nope")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, `unknown group "nope"`)
}

func TestRunCmd_NamedGroupWithInfoOutcome(t *testing.T) {
	dir := inProject(t, "nobody")

	stdout, _, code := captureOutput(t, "run", "other", "--no-progress", "--no-report")
	assert.Equal(t, ExitOK, code, "info outcomes are not failures")
	assert.Contains(t, stdout, "info")
	assert.NoFileExists(t, filepath.Join(dir, config.DefaultReportFile))
}

func TestRunCmd_CustomReportPath(t *testing.T) {
	skipOnWindows(t)
	dir := inProject(t, "nobody")

	_, _, code := captureOutput(t, "run", "--no-progress", "--report", "out/report.json")
	assert.Equal(t, ExitOK, code)
	assert.FileExists(t, filepath.Join(dir, "out", "report.json"))
}

func TestRunCmd_DryRunPrintsPlan(t *testing.T) {
	dir := inProject(t, "nobody")

	stdout, _, code := captureOutput(t, "--dry-run", "--no-color", "run")
	assert.Equal(t, ExitOK, code)
	assert.Contains(t, stdout, "Plan: Main (main)")
	assert.Contains(t, stdout, "mark")
	assert.Contains(t, stdout, "Contexts (2): alpha, beta")
	assert.Empty(t, readMarks(t, dir), "dry run executes nothing")
}

func TestRunCmd_SelectRequiresTTY(t *testing.T) {
	inProject(t, "nobody")
	if isStdinTTY() {
		t.Skip("stdin is a terminal")
	}
	_, stderr, code := captureOutput(t, "run", "--select")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "interactive terminal")
}

func TestRunCmd_DashboardRequiresTTY(t *testing.T) {
	dir := inProject(t, "nobody")
	if isStdinTTY() && isStdoutTTY() {
		t.Skip("attached to a terminal")
	}
	_, stderr, code := captureOutput(t, "run", "--dashboard")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "interactive terminal")
	assert.Empty(t, readMarks(t, dir))
}

func TestRunCmd_DashboardIgnoredOnDryRun(t *testing.T) {
	inProject(t, "nobody")
	stdout, _, code := captureOutput(t, "--dry-run", "--no-color", "run", "--dashboard")
	assert.Equal(t, ExitOK, code)
	assert.Contains(t, stdout, "Plan: Main (main)")
}

func TestLockedBuffer(t *testing.T) {
	var b lockedBuffer
	_, err := b.Write([]byte("one "))
	require.NoError(t, err)
	got := b.Bytes()
	_, _ = b.Write([]byte("two"))
	assert.Equal(t, "one ", string(got), "Bytes returns a copy")
	assert.Equal(t, "one two", string(b.Bytes()))
}

func TestRunCmd_InvalidConfig(t *testing.T) {
	dir := inEmptyDir(t)
	writeToml(t, dir, "[steps.x]\ntype = \"bogus\"\n")

	_, stderr, code := captureOutput(t, "run")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "steps.x.type")
}

func TestRunOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "nil", err: nil, code: ExitOK},
		{name: "warning", err: status.New(status.Warning, "careful"), code: ExitOK},
		{name: "info", err: status.New(status.Info, "fyi"), code: ExitOK},
		{name: "error", err: status.New(status.Error, "broken"), code: ExitFailed},
		{name: "cancel", err: status.New(status.Cancel, "stopped"), code: ExitCancelled},
		{name: "context canceled", err: context.Canceled, code: ExitCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runOutcome(tt.err)
			if tt.code == ExitOK {
				assert.NoError(t, err)
				return
			}
			var ee *exitError
			require.True(t, errors.As(err, &ee))
			assert.Equal(t, tt.code, ee.code)
		})
	}
}

func TestReportPath(t *testing.T) {
	cfg := config.NewDefaults()
	assert.Equal(t, filepath.Join("/proj", config.DefaultReportFile), reportPath(cfg, "/proj"))

	cfg.Engine.ReportFile = "r.json"
	assert.Equal(t, filepath.Join("/proj", "r.json"), reportPath(cfg, "/proj"))

	abs := filepath.Join(os.TempDir(), "abs.json")
	cfg.Engine.ReportFile = abs
	assert.Equal(t, abs, reportPath(cfg, "/proj"))
}

func TestFilterContexts(t *testing.T) {
	all := []stepper.StepContext{stepper.NewContext("a", ""), stepper.NewContext("b", ""), stepper.NewContext("c", "")}
	got := filterContexts(all, []string{"c", "a"})
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID(), "configured order is kept")
	assert.Equal(t, "c", got[1].ID())
}

func TestResolveGroupID(t *testing.T) {
	inProject(t, "nobody")
	p, err := loadProject(nil)
	require.NoError(t, err)

	id, err := p.resolveGroupID(nil)
	require.NoError(t, err)
	assert.Equal(t, "main", id, "engine.default_group")

	id, err = p.resolveGroupID([]string{"other"})
	require.NoError(t, err)
	assert.Equal(t, "other", id)

	p.resolved.Config.Engine.DefaultGroup = ""
	_, err = p.resolveGroupID(nil)
	assert.ErrorContains(t, err, "no group given")
}
