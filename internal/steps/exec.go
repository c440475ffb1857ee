package steps

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/AbdelazizMoustafa10m/stepper/internal/jsonutil"
	"github.com/AbdelazizMoustafa10m/stepper/internal/status"
	"github.com/AbdelazizMoustafa10m/stepper/internal/stepper"
)

// ExecStep runs a shell command. A non-zero exit fails the step, or only
// warns when warn_only is set. The command's stdout and exit code are
// published under PropOutput and PropExitCode, qualified by the step id.
//
// With publish_json, every field of the last JSON object on stdout is stored
// unqualified, so later steps and iterate_over groups can read it.
type ExecStep struct {
	base
	command     string
	warnOnly    bool
	publishJSON bool
	timeout     time.Duration
	dir         string
	logger      *log.Logger
}

func (s *ExecStep) Execute(ctx context.Context, inv stepper.Invocation) error {
	inv.Progress.BeginTask(s.Label(), 1)
	defer inv.Progress.Done()
	inv.Progress.SubTask(s.command)

	if s.logger != nil {
		s.logger.Debug("running command", "step", inv.ID, "command", s.command)
	}

	res, err := runCommand(ctx, commandSpec{
		command: s.command,
		dir:     s.dir,
		env:     commandEnv(inv),
		timeout: s.timeout,
	})
	if err != nil {
		return err
	}

	stepper.SetQualified(inv.Data, inv.ID, PropOutput, strings.TrimRight(res.Stdout, "\n"))
	stepper.SetQualified(inv.Data, inv.ID, PropExitCode, res.ExitCode)
	inv.Progress.Worked(1)

	sev := status.Error
	if s.warnOnly {
		sev = status.Warning
	}

	if res.Passed {
		if s.publishJSON {
			return s.publish(inv, res.Stdout, sev)
		}
		return nil
	}
	st := status.Newf(sev, "command %q %s", s.command, res.describe())
	if stderr := strings.TrimSpace(res.Stderr); stderr != "" {
		st.Message += ": " + lastLine(stderr)
	}
	if s.logger != nil {
		s.logger.Warn("command failed", "step", inv.ID, "exit_code", res.ExitCode, "timed_out", res.TimedOut, "duration", res.Duration)
	}
	return st
}

func (s *ExecStep) publish(inv stepper.Invocation, stdout string, sev status.Severity) error {
	obj, err := jsonutil.LastObject(stdout)
	if err != nil {
		return status.Wrap(sev, err, fmt.Sprintf("command %q printed no JSON object", s.command))
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		inv.Data.Set(k, obj[k])
	}
	if s.logger != nil {
		s.logger.Debug("published values", "step", inv.ID, "keys", keys)
	}
	return nil
}

// RollbackExecStep is an ExecStep with an undo command. The rollback
// command receives the failure that triggered it in STEPPER_ROLLBACK_CAUSE.
type RollbackExecStep struct {
	*ExecStep
	rollback string
}

func (s *RollbackExecStep) Rollback(ctx context.Context, inv stepper.Invocation, cause *status.Status) error {
	env := commandEnv(inv)
	if cause != nil {
		env = append(env, EnvRollbackCause+"="+cause.Message)
	}
	if s.logger != nil {
		s.logger.Info("rolling back", "step", inv.ID, "command", s.rollback)
	}

	res, err := runCommand(ctx, commandSpec{
		command: s.rollback,
		dir:     s.dir,
		env:     env,
		timeout: s.timeout,
	})
	if err != nil {
		return err
	}
	if !res.Passed {
		return status.Newf(status.Error, "rollback command %q %s", s.rollback, res.describe())
	}
	return nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
