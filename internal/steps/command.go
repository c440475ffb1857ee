package steps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/AbdelazizMoustafa10m/stepper/internal/stepper"
)

const (
	// maxOutputBytes caps the stdout/stderr kept per command.
	maxOutputBytes = 16 * 1024
	// truncationLines is how many head and tail lines survive truncation.
	truncationLines = 50
)

// Environment variables exported to every command.
const (
	EnvContextID      = "STEPPER_CONTEXT_ID"
	EnvContextName    = "STEPPER_CONTEXT_NAME"
	EnvStepID         = "STEPPER_STEP_ID"
	EnvIteration      = "STEPPER_ITERATION"
	EnvIterationValue = "STEPPER_ITERATION_VALUE"
	EnvRollbackCause  = "STEPPER_ROLLBACK_CAUSE"
)

// CommandResult is the outcome of one shell command.
type CommandResult struct {
	Command  string        `json:"command"`
	ExitCode int           `json:"exit_code"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Duration time.Duration `json:"duration"`
	Passed   bool          `json:"passed"`
	TimedOut bool          `json:"timed_out"`
}

// describe returns a short failure description, e.g. "exited with code 2".
func (r *CommandResult) describe() string {
	switch {
	case r.TimedOut:
		return "timed out"
	case r.ExitCode < 0:
		return "could not be started"
	default:
		return fmt.Sprintf("exited with code %d", r.ExitCode)
	}
}

// commandSpec describes how to run a single command.
type commandSpec struct {
	command string
	dir     string
	env     []string
	timeout time.Duration
}

// runCommand executes spec.command through the platform shell.
//
// runCommand returns a non-nil error only when ctx ends before the command
// finishes. Command failures (non-zero exit codes, timeouts) are reported in
// the returned CommandResult with Passed == false.
func runCommand(ctx context.Context, spec commandSpec) (*CommandResult, error) {
	start := time.Now()

	execCtx := ctx
	var cancel context.CancelFunc
	if spec.timeout > 0 {
		execCtx, cancel = context.WithTimeout(ctx, spec.timeout)
		defer cancel()
	}

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(execCtx, "cmd", "/c", spec.command)
	} else {
		cmd = exec.CommandContext(execCtx, "sh", "-c", spec.command)
	}
	setProcGroup(cmd)
	cmd.Dir = spec.dir
	cmd.Env = spec.env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	result := &CommandResult{
		Command:  spec.command,
		Duration: time.Since(start),
	}

	if runErr != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("running %q: %w", spec.command, ctx.Err())
		}
		var exitErr *exec.ExitError
		switch {
		case errors.Is(execCtx.Err(), context.DeadlineExceeded):
			result.TimedOut = true
			result.ExitCode = -1
		case errors.As(runErr, &exitErr):
			result.ExitCode = exitErr.ExitCode()
		default:
			result.ExitCode = -1
			if stderr.Len() == 0 {
				stderr.WriteString(runErr.Error())
			}
		}
	}

	result.Stdout = truncateOutput(stdout.String())
	result.Stderr = truncateOutput(stderr.String())
	result.Passed = result.ExitCode == 0 && !result.TimedOut
	return result, nil
}

// commandEnv returns the process environment extended with the context,
// step and iteration of inv. Context variables come last so they win over
// inherited values.
func commandEnv(inv stepper.Invocation) []string {
	env := os.Environ()
	if inv.ID != nil {
		env = append(env, EnvStepID+"="+inv.ID.String())
		if it := inv.ID.Iteration(); it >= 0 {
			env = append(env, EnvIteration+"="+strconv.Itoa(it))
		}
	}
	if inv.Data != nil {
		if v := stepper.GetQualifiedString(inv.Data, inv.ID, stepper.PropIterationValue); v != "" {
			env = append(env, EnvIterationValue+"="+v)
		}
	}
	if inv.Context != nil {
		env = append(env,
			EnvContextID+"="+inv.Context.ID(),
			EnvContextName+"="+inv.Context.Name(),
		)
		if vc, ok := inv.Context.(interface{ Vars() map[string]string }); ok {
			vars := vc.Vars()
			keys := make([]string, 0, len(vars))
			for k := range vars {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				env = append(env, k+"="+vars[k])
			}
		}
	}
	return env
}

// truncateOutput returns the output unchanged when it is within maxOutputBytes.
// When it exceeds the limit, it keeps the first truncationLines lines and the
// last truncationLines lines with a truncation notice in between.
func truncateOutput(output string) string {
	if len(output) <= maxOutputBytes {
		return output
	}

	lines := strings.Split(output, "\n")
	if len(lines) <= truncationLines*2 {
		const notice = "\n... (output truncated)"
		cutoff := maxOutputBytes - len(notice)
		if cutoff > len(output) {
			cutoff = len(output)
		}
		for cutoff > 0 && cutoff < len(output) && !utf8.RuneStart(output[cutoff]) {
			cutoff--
		}
		return output[:cutoff] + notice
	}

	head := lines[:truncationLines]
	tail := lines[len(lines)-truncationLines:]
	omitted := len(lines) - truncationLines*2

	var sb strings.Builder
	sb.WriteString(strings.Join(head, "\n"))
	fmt.Fprintf(&sb, "\n\n... (%d lines omitted) ...\n\n", omitted)
	sb.WriteString(strings.Join(tail, "\n"))
	return sb.String()
}
