package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// captureOutput runs Execute() with the provided args, capturing stdout and
// stderr. It returns (stdout, stderr, exitCode).
func captureOutput(t *testing.T, args ...string) (string, string, int) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr
	rOut, wOut, err := os.Pipe()
	require.NoError(t, err)
	rErr, wErr, err := os.Pipe()
	require.NoError(t, err)

	os.Stdout = wOut
	os.Stderr = wErr
	t.Cleanup(func() {
		os.Stdout = oldStdout
		os.Stderr = oldStderr
	})

	rootCmd.SetArgs(args)

	// Drain concurrently so large outputs do not fill the pipe buffers.
	var stdoutBuf, stderrBuf bytes.Buffer
	done := make(chan struct{}, 2)
	go func() { _, _ = stdoutBuf.ReadFrom(rOut); done <- struct{}{} }()
	go func() { _, _ = stderrBuf.ReadFrom(rErr); done <- struct{}{} }()

	code := Execute()

	wOut.Close()
	wErr.Close()
	<-done
	<-done

	os.Stdout = oldStdout
	os.Stderr = oldStderr

	return stdoutBuf.String(), stderrBuf.String(), code
}

// projectTOML declares two contexts, a group that marks each context and
// fails in the context named by $FAIL, and a second report-only group.
const projectTOML = `
[engine]
default_group = "main"

[contexts.alpha]
name = "Alpha"
[contexts.alpha.vars]
HOST = "alpha.local"

[contexts.beta]
name = "Beta"

[steps.mark]
type = "exec"
label = "Mark context"
command = "echo $STEPPER_CONTEXT_ID >> marks.log"
rollback = "echo undo-$STEPPER_CONTEXT_ID >> marks.log"

[steps.check]
type = "exec"
command = "test \"$STEPPER_CONTEXT_ID\" != \"$FAIL\""
dependencies = ["mark"]

[steps.note]
type = "report"
severity = "info"
message = "noted"

[groups.main]
label = "Main"
[[groups.main.entries]]
step = "mark"
[[groups.main.entries]]
step = "check"

[groups.other]
[[groups.other.entries]]
step = "note"
`

// writeToml writes stepper.toml into dir and returns its path.
func writeToml(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "stepper.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// inProject resets the command tree, writes projectTOML with failOn
// substituted for $FAIL into a temp dir and changes into it.
func inProject(t *testing.T, failOn string) string {
	t.Helper()
	resetRootCmd(t)
	dir := t.TempDir()
	writeToml(t, dir, strings.ReplaceAll(projectTOML, "$FAIL", failOn))
	require.NoError(t, os.Chdir(dir))
	return dir
}

// inEmptyDir resets the command tree and changes into a fresh temp dir.
func inEmptyDir(t *testing.T) string {
	t.Helper()
	resetRootCmd(t)
	dir := t.TempDir()
	require.NoError(t, os.Chdir(dir))
	return dir
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("exec steps use sh")
	}
}

func readMarks(t *testing.T, dir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "marks.log"))
	if os.IsNotExist(err) {
		return ""
	}
	require.NoError(t, err)
	return string(data)
}
