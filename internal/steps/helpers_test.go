package steps

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AbdelazizMoustafa10m/stepper/internal/config"
	"github.com/AbdelazizMoustafa10m/stepper/internal/fqid"
	"github.com/AbdelazizMoustafa10m/stepper/internal/props"
	"github.com/AbdelazizMoustafa10m/stepper/internal/stepper"
)

// skipOnWindows skips tests that rely on a POSIX shell.
func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

// invocation returns an Invocation for a step at
// stepper:test/group:g/step:<stepID> running against context "dev1".
func invocation(stepID string) (stepper.Invocation, *stepper.Monitor) {
	progress := stepper.NewProgress(nil)
	id := fqid.Root(fqid.TypeStepper, "test", "").
		Child(fqid.TypeGroup, "g", "").
		Child(fqid.TypeStep, stepID, "")
	return stepper.Invocation{
		Context:  config.NewContext("dev1", "Device 1", map[string]string{"HOST": "10.0.0.9"}),
		Data:     props.New(),
		ID:       id,
		Progress: progress,
	}, progress
}

func mustNew(t *testing.T, id string, sc config.StepConfig, opts ...Option) stepper.Step {
	t.Helper()
	step, err := New(id, sc, opts...)
	require.NoError(t, err)
	return step
}
