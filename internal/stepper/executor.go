package stepper

import (
	"context"
	"fmt"

	"github.com/AbdelazizMoustafa10m/stepper/internal/fqid"
	"github.com/AbdelazizMoustafa10m/stepper/internal/status"
)

// Executor runs one step against one context with one progress slice.
type Executor interface {
	Execute(ctx context.Context, step Step, inv Invocation) error
}

// ExecutorFactory returns the executor for the step about to run under id.
type ExecutorFactory func(step Step, id *fqid.FullQualifiedID) Executor

// DefaultExecutor delegates to Step.Execute, converting panics into Error
// statuses and closing the progress slice when the step returns.
type DefaultExecutor struct{}

// Execute implements Executor.
func (DefaultExecutor) Execute(ctx context.Context, step Step, inv Invocation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = status.Newf(status.Error, "step %q panicked: %v", step.ID(), r)
		}
		if inv.Progress != nil {
			inv.Progress.Done()
		}
	}()
	if inv.Progress != nil {
		inv.Progress.SubTask(step.Label())
	}
	return step.Execute(ctx, inv)
}

func defaultExecutorFactory(Step, *fqid.FullQualifiedID) Executor { return DefaultExecutor{} }

// safeRollback calls Rollback, converting panics into errors.
func safeRollback(ctx context.Context, rb Rollbacker, inv Invocation, cause *status.Status) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rollback panicked: %v", r)
		}
		if inv.Progress != nil {
			inv.Progress.Done()
		}
	}()
	return rb.Rollback(ctx, inv, cause)
}
