package stepper

import (
	"context"

	"github.com/AbdelazizMoustafa10m/stepper/internal/fqid"
	"github.com/AbdelazizMoustafa10m/stepper/internal/props"
	"github.com/AbdelazizMoustafa10m/stepper/internal/status"
)

// UnknownWork is returned by Step.TotalWork when a step cannot estimate its
// work. It is infectious: a group containing any unknown child is unknown.
const UnknownWork = -1

// StepContext identifies the target a run is performed against, for example
// a connected device. It must not change for the duration of a run.
type StepContext interface {
	ID() string
	Name() string
}

type simpleContext struct {
	id   string
	name string
}

func (c simpleContext) ID() string { return c.id }

func (c simpleContext) Name() string {
	if c.name == "" {
		return c.id
	}
	return c.name
}

// NewContext returns an immutable StepContext. An empty name falls back to id.
func NewContext(id, name string) StepContext {
	return simpleContext{id: id, name: name}
}

// Invocation bundles what the engine hands to steps, iterators and rollback
// hooks. Data is shared by reference with the caller and every other step.
type Invocation struct {
	Context  StepContext
	Data     *props.Container
	ID       *fqid.FullQualifiedID
	Progress Progress
}

// Step is the smallest unit of work the engine executes. Implementations
// report non-fatal outcomes by returning a *status.Status with Info or Warning
// severity; any other non-nil error is fatal.
type Step interface {
	// ID is the step id used by dependency declarations.
	ID() string

	// Label is a human-readable name.
	Label() string

	// Dependencies lists step ids (optionally "id##qualifier") that must
	// have executed earlier in the same run.
	Dependencies() []string

	// TotalWork estimates the work units of Execute, or UnknownWork.
	TotalWork(sc StepContext, data *props.Container) int

	// Execute runs the step. Long-running steps should poll
	// inv.Progress.IsCancelled or ctx.Done themselves.
	Execute(ctx context.Context, inv Invocation) error
}

// Rollbacker is implemented by steps that can undo their effects. The engine
// calls Rollback in reverse execution order after a fatal failure. cause is
// the fatal status that triggered the rollback.
type Rollbacker interface {
	Rollback(ctx context.Context, inv Invocation, cause *status.Status) error
}

// StepGroup is an ordered, optionally iterated collection of steps and nested
// groups.
type StepGroup interface {
	ID() string
	Label() string

	// Steps returns the ordered entries to run for sc.
	Steps(sc StepContext) ([]*Groupable, error)

	// NewIterator returns a fresh iterator for one execution of the group,
	// or nil when the group runs its entries exactly once.
	NewIterator() StepGroupIterator
}

// StepGroupIterator drives repeated passes over a group's entries.
type StepGroupIterator interface {
	// Initialize is called once before the first HasNext.
	Initialize(ctx context.Context, inv Invocation) error

	// HasNext reports whether another pass should run.
	HasNext(ctx context.Context, inv Invocation) (bool, error)

	// Next advances to the next pass.
	Next(ctx context.Context, inv Invocation) error

	// Iteration returns the zero-based index of the current pass.
	Iteration() int
}

// ExecutedStep is a ledger entry. It is appended the moment a step starts so
// that a step failing mid-way is still rolled back.
type ExecutedStep struct {
	ID   *fqid.FullQualifiedID
	Step Step
}

// Runner is the lifecycle shared by Stepper and MultiContextStepper.
type Runner interface {
	Initialize(sc StepContext, data *props.Container, id *fqid.FullQualifiedID, progress Progress) error
	Execute(ctx context.Context) error
	Cleanup()
	IsInitialized() bool
	IsFinished() bool
	ID() *fqid.FullQualifiedID
	Label() string
}

// State is the lifecycle state of a runner.
type State int

const (
	StateCreated State = iota
	StateInitialized
	StateExecuting
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitialized:
		return "initialized"
	case StateExecuting:
		return "executing"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}
