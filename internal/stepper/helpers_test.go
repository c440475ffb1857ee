package stepper

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AbdelazizMoustafa10m/stepper/internal/fqid"
	"github.com/AbdelazizMoustafa10m/stepper/internal/props"
	"github.com/AbdelazizMoustafa10m/stepper/internal/status"
)

// ---------------------------------------------------------------------------
// Compile-time interface checks
// ---------------------------------------------------------------------------

var _ Step = (*fakeStep)(nil)
var _ Step = (*rollbackStep)(nil)
var _ Rollbacker = (*rollbackStep)(nil)
var _ Runner = (*Stepper)(nil)
var _ Runner = (*MultiContextStepper)(nil)
var _ StepGroupIterator = (*CountIterator)(nil)
var _ StepGroupIterator = (*ListIterator)(nil)
var _ GroupProvider = (*Registry)(nil)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// journal records execute and rollback calls across steps in order.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(entry string) {
	j.mu.Lock()
	j.entries = append(j.entries, entry)
	j.mu.Unlock()
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.entries))
	copy(out, j.entries)
	return out
}

// fakeStep records "exec:<id>" in its journal and returns result, or the
// result of run when set.
type fakeStep struct {
	id     string
	deps   []string
	work   int
	j      *journal
	result error
	run    func(ctx context.Context, inv Invocation) error
}

func newStep(j *journal, id string, deps ...string) *fakeStep {
	return &fakeStep{id: id, deps: deps, work: 1, j: j}
}

func (f *fakeStep) ID() string             { return f.id }
func (f *fakeStep) Label() string          { return "Step " + f.id }
func (f *fakeStep) Dependencies() []string { return f.deps }

func (f *fakeStep) TotalWork(StepContext, *props.Container) int { return f.work }

func (f *fakeStep) Execute(ctx context.Context, inv Invocation) error {
	if f.j != nil {
		f.j.add("exec:" + f.id)
	}
	if f.run != nil {
		return f.run(ctx, inv)
	}
	return f.result
}

// rollbackStep is a fakeStep that records "rb:<id>" when rolled back.
type rollbackStep struct {
	*fakeStep
	rbErr   error
	rbPanic bool
	causes  []*status.Status
}

func newRollbackStep(j *journal, id string, deps ...string) *rollbackStep {
	return &rollbackStep{fakeStep: newStep(j, id, deps...)}
}

func (r *rollbackStep) Rollback(_ context.Context, _ Invocation, cause *status.Status) error {
	r.j.add("rb:" + r.id)
	r.causes = append(r.causes, cause)
	if r.rbPanic {
		panic("rollback exploded")
	}
	return r.rbErr
}

// testRoot is the id handed to steppers under test.
func testRoot() *fqid.FullQualifiedID {
	return fqid.Root(fqid.TypeStepper, "test", "")
}

// newRun builds a registry holding group and an initialized Stepper for it.
func newRun(t *testing.T, group StepGroup, progress Progress, opts ...Option) (*Stepper, *props.Container) {
	t.Helper()
	reg := NewRegistry()
	reg.RegisterGroup(group)

	data := props.New()
	data.Set(PropStepGroupID, group.ID())

	s := New(reg, opts...)
	require.NoError(t, s.Initialize(NewContext("dev1", "Device 1"), data, testRoot(), progress))
	return s, data
}

// runGroup initializes and executes a Stepper for group.
func runGroup(t *testing.T, group StepGroup, opts ...Option) (*Stepper, error) {
	t.Helper()
	s, _ := newRun(t, group, nil, opts...)
	return s, s.Execute(context.Background())
}

// stepIDs returns the step ids of ledger entries.
func stepIDs(entries []ExecutedStep) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Step.ID()
	}
	return out
}

// drain closes ch and returns everything buffered in it.
func drain(ch chan Event) []Event {
	close(ch)
	var out []Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func eventTypes(events []Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}
