package steps

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizMoustafa10m/stepper/internal/config"
	"github.com/AbdelazizMoustafa10m/stepper/internal/status"
	"github.com/AbdelazizMoustafa10m/stepper/internal/stepper"
)

func TestSetStep_ExecuteAndRollback(t *testing.T) {
	t.Parallel()
	step := mustNew(t, "seed", config.StepConfig{
		Type:   config.StepTypeSet,
		Values: map[string]any{"images": []any{"boot.img"}, "mode": "fast"},
	})
	inv, _ := invocation("seed")
	inv.Data.Set("mode", "slow")

	require.NoError(t, step.Execute(context.Background(), inv))
	assert.Equal(t, []string{"boot.img"}, inv.Data.GetStrings("images"))
	assert.Equal(t, "fast", inv.Data.GetString("mode"))

	rb, ok := step.(stepper.Rollbacker)
	require.True(t, ok)
	require.NoError(t, rb.Rollback(context.Background(), inv, status.New(status.Error, "later failure")))
	assert.False(t, inv.Data.Has("images"), "keys the step created are removed")
	assert.Equal(t, "slow", inv.Data.GetString("mode"), "overwritten keys are restored")
}

func TestSetStep_RollbackWithoutExecuteIsNoop(t *testing.T) {
	t.Parallel()
	step := mustNew(t, "seed", config.StepConfig{Type: config.StepTypeSet, Values: map[string]any{"k": 1}})
	inv, _ := invocation("seed")
	inv.Data.Set("k", 0)
	require.NoError(t, step.(stepper.Rollbacker).Rollback(context.Background(), inv, nil))
	assert.Equal(t, 0, inv.Data.GetInt("k", -1))
}
