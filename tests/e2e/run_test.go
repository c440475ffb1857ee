package e2e_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSucceeds(t *testing.T) {
	tp := newTestProject(t)
	tp.writeConfig(deployConfig("nobody"))

	out := tp.runExpectSuccess("run")
	assert.Contains(t, out, "Run Summary")
	assert.Equal(t, "alpha\nbeta\n", tp.readFile("marks.log"))

	var report struct {
		StepGroup string `json:"step_group"`
		Severity  string `json:"severity"`
		Contexts  []json.RawMessage
	}
	data, err := os.ReadFile(filepath.Join(tp.Dir, ".stepper", "last-run.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "deploy", report.StepGroup)
	assert.Equal(t, "ok", report.Severity)
	assert.Len(t, report.Contexts, 2)
}

func TestRunFailureRollsBack(t *testing.T) {
	tp := newTestProject(t)
	tp.writeConfig(deployConfig("alpha"))

	_, code := tp.runExpectFailure("run")
	assert.Equal(t, 2, code)
	assert.Equal(t, "alpha\nundo-alpha\n", tp.readFile("marks.log"))

	out := tp.runExpectSuccess("report")
	assert.Contains(t, out, "error")
	assert.Contains(t, out, "rolled back: 1")
}

func TestRunContinueOnError(t *testing.T) {
	tp := newTestProject(t)
	tp.writeConfig(deployConfig("alpha"))

	_, code := tp.runExpectFailure("run", "--continue-on-error")
	assert.Equal(t, 2, code)
	assert.Equal(t, "alpha\nundo-alpha\nbeta\n", tp.readFile("marks.log"))
}

func TestRunDryRunExecutesNothing(t *testing.T) {
	tp := newTestProject(t)
	tp.writeConfig(deployConfig("nobody"))

	out := tp.runExpectSuccess("--dry-run", "run")
	assert.Contains(t, out, "Plan: Deploy (deploy)")
	assert.Empty(t, tp.readFile("marks.log"))
}

func TestRunPublishedJSONDrivesIteration(t *testing.T) {
	tp := newTestProject(t)
	tp.writeConfig(`
[steps.discover]
type = "exec"
command = "echo '{\"images\":[\"boot\",\"system\"]}'"
publish_json = true

[steps.flash]
type = "exec"
command = "echo $STEPPER_ITERATION_VALUE >> flashed.log"

[groups.flash-all]
iterate_over = "images"
[[groups.flash-all.entries]]
step = "flash"

[groups.main]
[[groups.main.entries]]
step = "discover"
[[groups.main.entries]]
group = "flash-all"
`)

	tp.runExpectSuccess("run", "main")
	assert.Equal(t, "boot\nsystem\n", tp.readFile("flashed.log"))
}

func TestRunInterruptCancels(t *testing.T) {
	tp := newTestProject(t)
	tp.writeConfig(`
[steps.started]
type = "exec"
command = "touch started"
rollback = "touch rolled-back"

[steps.wait]
type = "delay"
duration = "1m"

[groups.main]
[[groups.main.entries]]
step = "started"
[[groups.main.entries]]
step = "wait"
`)

	cmd := tp.run("run", "main")
	require.NoError(t, cmd.Start())
	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(tp.Dir, "started"))
		return err == nil
	}, 10*time.Second, 20*time.Millisecond)
	require.NoError(t, cmd.Process.Signal(syscall.SIGINT))

	err := cmd.Wait()
	require.Error(t, err)
	assert.Equal(t, 3, cmd.ProcessState.ExitCode())
	assert.FileExists(t, filepath.Join(tp.Dir, "rolled-back"))
}
