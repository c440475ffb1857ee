// Package steps provides the built-in step types that stepper.toml can
// declare: exec, delay, set, report and parallel.
package steps

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/AbdelazizMoustafa10m/stepper/internal/config"
	"github.com/AbdelazizMoustafa10m/stepper/internal/props"
	"github.com/AbdelazizMoustafa10m/stepper/internal/status"
	"github.com/AbdelazizMoustafa10m/stepper/internal/stepper"
)

// Property keys published by built-in steps, qualified by the step's id.
const (
	// PropOutput holds the stdout of an exec step.
	PropOutput = "output"
	// PropExitCode holds the exit code of an exec step.
	PropExitCode = "exitCode"
	// PropOutputs holds the stdout of every parallel command, in order.
	PropOutputs = "outputs"
)

// Option configures the steps created by New.
type Option func(*options)

type options struct {
	logger  *log.Logger
	baseDir string
}

// WithLogger sets the logger used by command steps. A nil logger disables
// logging.
func WithLogger(logger *log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithBaseDir resolves relative working directories against dir, usually the
// directory holding stepper.toml.
func WithBaseDir(dir string) Option {
	return func(o *options) { o.baseDir = dir }
}

// Factory returns a config.StepFactory that builds steps with New.
func Factory(opts ...Option) config.StepFactory {
	return func(id string, sc config.StepConfig) (stepper.Step, error) {
		return New(id, sc, opts...)
	}
}

// New creates the step described by sc.
func New(id string, sc config.StepConfig, opts ...Option) (stepper.Step, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	b := base{id: id, label: sc.Label, deps: append([]string(nil), sc.Dependencies...), work: sc.Work}

	switch sc.Type {
	case config.StepTypeExec:
		if sc.Command == "" {
			return nil, fmt.Errorf("exec step %q: command is required", id)
		}
		timeout, err := parseOptionalDuration(sc.Timeout)
		if err != nil {
			return nil, fmt.Errorf("exec step %q: timeout: %w", id, err)
		}
		b.defaultWork(1)
		step := &ExecStep{
			base:        b,
			command:     sc.Command,
			warnOnly:    sc.WarnOnly,
			publishJSON: sc.PublishJSON,
			timeout:     timeout,
			dir:         o.resolveDir(sc.Dir),
			logger:      o.logger,
		}
		if sc.Rollback != "" {
			return &RollbackExecStep{ExecStep: step, rollback: sc.Rollback}, nil
		}
		return step, nil

	case config.StepTypeDelay:
		d, err := time.ParseDuration(sc.Duration)
		if err != nil {
			return nil, fmt.Errorf("delay step %q: duration: %w", id, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("delay step %q: duration must not be negative", id)
		}
		b.defaultWork(1)
		return &DelayStep{base: b, duration: d}, nil

	case config.StepTypeSet:
		values := make(map[string]any, len(sc.Values))
		for k, v := range sc.Values {
			values[k] = v
		}
		return &SetStep{base: b, values: values, previous: make(map[string][]previousValue)}, nil

	case config.StepTypeReport:
		sev, err := status.ParseSeverity(sc.Severity)
		if err != nil {
			return nil, fmt.Errorf("report step %q: %w", id, err)
		}
		return &ReportStep{base: b, severity: sev, message: sc.Message}, nil

	case config.StepTypeParallel:
		if len(sc.Commands) == 0 {
			return nil, fmt.Errorf("parallel step %q: commands are required", id)
		}
		if sc.Limit < 0 {
			return nil, fmt.Errorf("parallel step %q: limit must not be negative", id)
		}
		timeout, err := parseOptionalDuration(sc.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parallel step %q: timeout: %w", id, err)
		}
		b.defaultWork(len(sc.Commands))
		return &ParallelStep{
			base:     b,
			commands: append([]string(nil), sc.Commands...),
			limit:    sc.Limit,
			warnOnly: sc.WarnOnly,
			timeout:  timeout,
			dir:      o.resolveDir(sc.Dir),
			logger:   o.logger,
		}, nil

	default:
		return nil, fmt.Errorf("step %q: unknown type %q", id, sc.Type)
	}
}

func (o *options) resolveDir(dir string) string {
	switch {
	case dir == "":
		return o.baseDir
	case filepath.IsAbs(dir) || o.baseDir == "":
		return dir
	default:
		return filepath.Join(o.baseDir, dir)
	}
}

func parseOptionalDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", s)
	}
	return d, nil
}

// base carries the fields every built-in step shares.
type base struct {
	id    string
	label string
	deps  []string
	work  int
}

// defaultWork replaces an unset (zero) work estimate.
func (b *base) defaultWork(n int) {
	if b.work == 0 {
		b.work = n
	}
}

func (b *base) ID() string { return b.id }

func (b *base) Label() string {
	if b.label == "" {
		return b.id
	}
	return b.label
}

func (b *base) Dependencies() []string { return b.deps }

func (b *base) TotalWork(stepper.StepContext, *props.Container) int { return b.work }
