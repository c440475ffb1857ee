package steps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/AbdelazizMoustafa10m/stepper/internal/callback"
	"github.com/AbdelazizMoustafa10m/stepper/internal/status"
	"github.com/AbdelazizMoustafa10m/stepper/internal/stepper"
)

// ParallelStep runs several shell commands concurrently, at most limit at a
// time (0 means no limit). Every command runs to completion even when
// another fails; the step's status merges the failures in command order.
// The stdout of every command is published under PropOutputs.
type ParallelStep struct {
	base
	commands []string
	limit    int
	warnOnly bool
	timeout  time.Duration
	dir      string
	logger   *log.Logger
}

func (s *ParallelStep) Execute(ctx context.Context, inv stepper.Invocation) error {
	inv.Progress.BeginTask(s.Label(), len(s.commands))
	defer inv.Progress.Done()
	if len(s.commands) == 0 {
		return nil
	}

	keys := make([]any, len(s.commands))
	for i := range s.commands {
		keys[i] = i
	}
	outputs := make([]string, len(s.commands))
	monitor := callback.NewMonitor(nil, keys...)
	monitor.SetLogger(s.logger)

	env := commandEnv(inv)
	var g errgroup.Group
	if s.limit > 0 {
		g.SetLimit(s.limit)
	}

	for i, command := range s.commands {
		g.Go(func() error {
			if inv.Progress.IsCancelled() {
				monitor.Unlock(i, status.Newf(status.Cancel, "command %q not started", command))
				return nil
			}
			res, err := runCommand(ctx, commandSpec{command: command, dir: s.dir, env: env, timeout: s.timeout})
			if err != nil {
				monitor.UnlockErr(i, err)
				return nil
			}
			outputs[i] = strings.TrimRight(res.Stdout, "\n")
			inv.Progress.Worked(1)
			if res.Passed {
				monitor.Unlock(i, nil)
				return nil
			}
			if s.logger != nil {
				s.logger.Warn("parallel command failed", "step", inv.ID, "command", command, "exit_code", res.ExitCode)
			}
			monitor.Unlock(i, status.Newf(s.failureSeverity(), "command %q %s", command, res.describe()))
			return nil
		})
	}

	// Every command unlocks its key exactly once, after writing its output,
	// so the monitor firing is the join. The errgroup only bounds launches.
	<-monitor.Done()
	_ = g.Wait()
	stepper.SetQualified(inv.Data, inv.ID, PropOutputs, outputs)

	st := monitor.Result()
	if st.IsOK() {
		return nil
	}
	if len(st.Children) == 1 {
		return st.Children[0]
	}
	if st.IsMulti() {
		st.Message = fmt.Sprintf("%d of %d commands failed", len(st.Children), len(s.commands))
	}
	return st
}

func (s *ParallelStep) failureSeverity() status.Severity {
	if s.warnOnly {
		return status.Warning
	}
	return status.Error
}
