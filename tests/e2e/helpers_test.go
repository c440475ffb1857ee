package e2e_test

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// testProject is an isolated project directory with its own stepper binary.
type testProject struct {
	Dir        string
	BinaryPath string
	t          *testing.T
}

var (
	buildOnce   sync.Once
	binaryPath  string
	buildOutput []byte
	buildErr    error
)

// TestMain removes the shared binary directory after the run.
func TestMain(m *testing.M) {
	code := m.Run()
	if binaryPath != "" {
		_ = os.RemoveAll(filepath.Dir(binaryPath))
	}
	os.Exit(code)
}

// stepperBinary builds ./cmd/stepper once per test run.
func stepperBinary(t *testing.T) string {
	t.Helper()
	buildOnce.Do(func() {
		dir, err := os.MkdirTemp("", "stepper-e2e-")
		if err != nil {
			buildErr = err
			return
		}
		binaryPath = filepath.Join(dir, "stepper")
		build := exec.Command("go", "build", "-o", binaryPath, "./cmd/stepper")
		build.Dir = projectRoot()
		buildOutput, buildErr = build.CombinedOutput()
	})
	require.NoError(t, buildErr, "building stepper: %s", buildOutput)
	return binaryPath
}

// newTestProject returns a fresh project directory for a parallel E2E test.
// E2E tests are skipped in short mode and on Windows.
func newTestProject(t *testing.T) *testProject {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping E2E test in short mode")
	}
	if runtime.GOOS == "windows" {
		t.Skip("E2E tests run exec steps through sh")
	}
	t.Parallel()
	return &testProject{Dir: t.TempDir(), BinaryPath: stepperBinary(t), t: t}
}

// projectRoot returns the repository root, two directories above this file.
func projectRoot() string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(thisFile), "..", "..")
}

// writeConfig writes content to stepper.toml in tp.Dir.
func (tp *testProject) writeConfig(content string) {
	tp.t.Helper()
	err := os.WriteFile(filepath.Join(tp.Dir, "stepper.toml"), []byte(content), 0o644)
	require.NoError(tp.t, err)
}

// readFile returns the content of a file below tp.Dir, or "" if missing.
func (tp *testProject) readFile(name string) string {
	tp.t.Helper()
	data, err := os.ReadFile(filepath.Join(tp.Dir, name))
	if os.IsNotExist(err) {
		return ""
	}
	require.NoError(tp.t, err)
	return string(data)
}

// run creates an exec.Cmd for stepper in tp.Dir with colors disabled.
func (tp *testProject) run(args ...string) *exec.Cmd {
	cmd := exec.Command(tp.BinaryPath, args...)
	cmd.Dir = tp.Dir
	cmd.Env = append(os.Environ(),
		"NO_COLOR=1",
		"STEPPER_LOG_FORMAT=json",
	)
	return cmd
}

// runExpectSuccess runs stepper and asserts exit code 0. It returns the
// combined output.
func (tp *testProject) runExpectSuccess(args ...string) string {
	tp.t.Helper()
	out, err := tp.run(args...).CombinedOutput()
	require.NoError(tp.t, err, "stepper %v failed:\n%s", args, string(out))
	return string(out)
}

// runExpectFailure runs stepper and asserts a non-zero exit code. It returns
// the combined output and the exit code.
func (tp *testProject) runExpectFailure(args ...string) (string, int) {
	tp.t.Helper()
	out, err := tp.run(args...).CombinedOutput()
	require.Error(tp.t, err, "stepper %v expected to fail but succeeded:\n%s", args, string(out))
	var exitErr *exec.ExitError
	require.True(tp.t, errors.As(err, &exitErr), "expected *exec.ExitError, got %T: %v", err, err)
	return string(out), exitErr.ExitCode()
}

// deployConfig declares two contexts and a group whose check step fails in
// the context named failOn. The mark step records runs and rollbacks.
func deployConfig(failOn string) string {
	return `
[engine]
default_group = "deploy"

[contexts.alpha]
[contexts.beta]

[steps.mark]
type = "exec"
command = "echo $STEPPER_CONTEXT_ID >> marks.log"
rollback = "echo undo-$STEPPER_CONTEXT_ID >> marks.log"

[steps.check]
type = "exec"
command = "test \"$STEPPER_CONTEXT_ID\" != \"` + failOn + `\""
dependencies = ["mark"]

[groups.deploy]
label = "Deploy"
[[groups.deploy.entries]]
step = "mark"
[[groups.deploy.entries]]
step = "check"
`
}
