package stepper

import (
	"context"
	"sync"

	"github.com/AbdelazizMoustafa10m/stepper/internal/callback"
)

// Job runs a Runner's Execute on its own goroutine so the caller can cancel
// or wait for it. The runner must already be initialized; Job calls Cleanup
// once Execute returns.
type Job struct {
	cancel  context.CancelFunc
	monitor *callback.Monitor

	mu  sync.Mutex
	err error
}

// StartJob starts runner in the background under a context derived from ctx.
func StartJob(ctx context.Context, runner Runner) *Job {
	jobCtx, cancel := context.WithCancel(ctx)
	j := &Job{cancel: cancel}
	j.monitor = callback.NewPlainMonitor(cancel, runner)

	go func() {
		err := runner.Execute(jobCtx)
		runner.Cleanup()
		j.mu.Lock()
		j.err = err
		j.mu.Unlock()
		j.monitor.Unlock(runner, nil)
	}()
	return j
}

// Cancel requests cancellation. The runner observes it at its next check
// point.
func (j *Job) Cancel() { j.cancel() }

// Done returns a channel closed when the runner has finished and been
// cleaned up.
func (j *Job) Done() <-chan struct{} { return j.monitor.Done() }

// Wait blocks until the job finishes and returns the runner's result.
func (j *Job) Wait() error {
	<-j.monitor.Done()
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}
