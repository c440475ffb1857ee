package stepper

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/AbdelazizMoustafa10m/stepper/internal/fqid"
	"github.com/AbdelazizMoustafa10m/stepper/internal/props"
	"github.com/AbdelazizMoustafa10m/stepper/internal/status"
)

const defaultLabel = "stepper"

// Stepper executes one step group against one context. A Stepper is single
// use: Initialize once, Execute once, then Cleanup, after which it may be
// initialized again.
//
// Control flow is synchronous on the goroutine calling Execute. Steps that
// start asynchronous work must join it before returning.
type Stepper struct {
	groups      GroupProvider
	logger      *log.Logger
	events      chan<- Event
	newExecutor ExecutorFactory
	fixedLabel  string

	state       State
	sc          StepContext
	data        *props.Container
	id          *fqid.FullQualifiedID
	progress    Progress
	stepGroupID string
	label       string
	run         *run
}

// run is the per-Execute bookkeeping: the ledger of started steps, the
// accumulated non-fatal statuses and the rollback outcome.
type run struct {
	ledger           []ExecutedStep
	executed         []ExecutedStep
	accumulated      []*status.Status
	rolledBack       []*fqid.FullQualifiedID
	rollbackFailures []*status.Status
}

// Option configures a Stepper.
type Option func(*Stepper)

// WithLogger attaches a charmbracelet/log Logger. When nil the stepper
// operates silently.
func WithLogger(logger *log.Logger) Option {
	return func(s *Stepper) { s.logger = logger }
}

// WithEventChannel sets the channel on which the stepper broadcasts Events.
// Sends never block.
func WithEventChannel(ch chan<- Event) Option {
	return func(s *Stepper) { s.events = ch }
}

// WithExecutor overrides how the executor for each step is obtained.
func WithExecutor(factory ExecutorFactory) Option {
	return func(s *Stepper) { s.newExecutor = factory }
}

// WithLabel fixes the label instead of taking it from the step group.
func WithLabel(label string) Option {
	return func(s *Stepper) { s.fixedLabel = label }
}

// New creates a Stepper resolving step groups through groups, which must not
// be nil.
func New(groups GroupProvider, opts ...Option) *Stepper {
	s := &Stepper{
		groups:      groups,
		newExecutor: defaultExecutorFactory,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.label = s.fixedLabel
	return s
}

// Initialize prepares the stepper for one run. The step group id is read
// from data under PropStepGroupID. A nil progress is replaced by a silent
// monitor.
func (s *Stepper) Initialize(sc StepContext, data *props.Container, id *fqid.FullQualifiedID, progress Progress) error {
	if s.state != StateCreated {
		return contractError(ErrAlreadyInitialized, fmt.Sprintf("stepper %s is %s", s.id, s.state))
	}
	if sc == nil || data == nil || id == nil {
		return contractError(ErrInvalidArgument, "initialize requires a context, data and id")
	}
	if progress == nil {
		progress = NewProgress(nil)
	}
	s.sc = sc
	s.data = data
	s.id = id
	s.progress = progress
	s.stepGroupID = data.GetString(PropStepGroupID)
	s.state = StateInitialized
	return nil
}

// Execute runs the configured step group. It returns nil when every step
// succeeded without non-fatal statuses; the accumulated status (a
// multi-status if there is more than one) when only non-fatal statuses were
// reported; or the fatal status after rolling back every executed step.
func (s *Stepper) Execute(ctx context.Context) error {
	switch s.state {
	case StateCreated:
		return contractError(ErrNotInitialized, "execute called before initialize")
	case StateExecuting, StateFinished:
		return contractError(ErrAlreadyInitialized, fmt.Sprintf("stepper %s already executed", s.id))
	}
	s.state = StateExecuting
	defer func() { s.state = StateFinished }()

	r := &run{}
	s.run = r

	s.emit(Event{Type: EventRunStarted, Message: fmt.Sprintf("run of step group %q started", s.stepGroupID)})
	s.info("run started", "group", s.stepGroupID, "context", s.sc.ID())

	st := s.execute(ctx, r)
	if st == nil {
		s.emit(Event{Type: EventRunCompleted, Message: "run completed"})
		s.info("run completed", "group", s.stepGroupID, "context", s.sc.ID())
		return nil
	}
	if st.Severity.IsFatal() {
		s.emit(Event{Type: EventRunFailed, Severity: st.Severity.String(), Message: "run failed", Error: st.Error()})
		s.logError("run failed", "group", s.stepGroupID, "context", s.sc.ID(), "error", st)
	} else {
		s.emit(Event{Type: EventRunCompleted, Severity: st.Severity.String(), Message: "run completed with statuses", Error: st.Error()})
		s.warn("run completed with statuses", "group", s.stepGroupID, "context", s.sc.ID(), "statuses", len(st.Flatten()))
	}
	return st
}

func (s *Stepper) execute(ctx context.Context, r *run) *status.Status {
	if s.stepGroupID == "" {
		return contractError(ErrMissingStepGroupID, fmt.Sprintf("property %q is not set", PropStepGroupID))
	}
	group, err := s.groups.StepGroup(s.stepGroupID)
	if err != nil {
		return status.Wrap(status.Error, err, err.Error())
	}
	if s.label == "" {
		s.label = group.Label()
	}

	total, err := TotalWork(group, s.sc, s.data)
	if err != nil {
		return status.Wrap(status.Error, err, fmt.Sprintf("estimate work of step group %q", group.ID()))
	}
	s.progress.BeginTask(s.Label(), total)

	if st := s.executeStepGroup(ctx, r, group, s.id.Child(fqid.TypeGroup, group.ID(), "")); st != nil {
		return st
	}
	return status.Combine(fmt.Sprintf("step group %q reported %d status(es)", group.ID(), len(r.accumulated)), r.accumulated)
}

// executeStepGroup runs group, whose own id is id, once or once per iterator
// pass.
func (s *Stepper) executeStepGroup(ctx context.Context, r *run, group StepGroup, id *fqid.FullQualifiedID) *status.Status {
	if st := s.checkCancelled(ctx, r, id); st != nil {
		return st
	}
	entries, err := group.Steps(s.sc)
	if err != nil {
		return s.handle(ctx, r, status.Wrap(status.Error, err, fmt.Sprintf("resolve steps of group %q", group.ID())))
	}

	s.emit(Event{Type: EventGroupStarted, Step: id.String(), Message: fmt.Sprintf("step group %q started", group.ID())})
	s.debug("group started", "group", id)

	it := group.NewIterator()
	if it == nil {
		return s.executeEntries(ctx, r, entries, id)
	}

	inv := Invocation{Context: s.sc, Data: s.data, ID: id, Progress: s.progress}
	if err := it.Initialize(ctx, inv); err != nil {
		if st := s.handle(ctx, r, err); st != nil {
			return st
		}
	}
	for {
		if st := s.checkCancelled(ctx, r, id); st != nil {
			return st
		}
		more, err := it.HasNext(ctx, inv)
		if err != nil {
			if st := s.handle(ctx, r, err); st != nil {
				return st
			}
			break
		}
		if !more {
			break
		}
		before := it.Iteration()
		if err := it.Next(ctx, inv); err != nil {
			if st := s.handle(ctx, r, err); st != nil {
				return st
			}
			// The pass is skipped. An iterator that did not advance cannot
			// make further progress.
			s.debug("iteration skipped", "group", id, "iteration", it.Iteration(), "error", err)
			if it.Iteration() == before {
				break
			}
			continue
		}

		iterID := IterationID(id, it.Iteration())
		s.emit(Event{Type: EventIterationStarted, Step: iterID.String(), Message: fmt.Sprintf("iteration %d of step group %q started", it.Iteration(), group.ID())})
		s.debug("iteration started", "group", id, "iteration", it.Iteration())

		if st := s.executeEntries(ctx, r, entries, iterID); st != nil {
			return st
		}
	}
	return nil
}

// IterationID returns the id of pass n of the group identified by groupID.
func IterationID(groupID *fqid.FullQualifiedID, n int) *fqid.FullQualifiedID {
	return groupID.Child(fqid.TypeIteration, strconv.Itoa(n), "")
}

func (s *Stepper) executeEntries(ctx context.Context, r *run, entries []*Groupable, parentID *fqid.FullQualifiedID) *status.Status {
	for _, entry := range entries {
		if st := s.executeGroupable(ctx, r, entry, parentID); st != nil {
			return st
		}
	}
	return nil
}

func (s *Stepper) executeGroupable(ctx context.Context, r *run, entry *Groupable, parentID *fqid.FullQualifiedID) *status.Status {
	if st := s.checkCancelled(ctx, r, parentID); st != nil {
		return st
	}
	if entry.Disabled {
		s.emit(Event{Type: EventStepSkipped, Step: parentID.Child(entryType(entry), entry.ExtensionID(), entry.SecondaryID).String(), Message: fmt.Sprintf("%s is disabled", entry)})
		s.debug("entry disabled", "entry", entry.String())
		return nil
	}
	if st := checkDependencies(entry, r.ledger); st != nil {
		s.logError("dependency check failed", "entry", entry.String(), "error", st)
		return s.handle(ctx, r, st)
	}

	switch entry.Kind() {
	case KindGroup:
		return s.executeStepGroup(ctx, r, entry.Group(), parentID.Child(fqid.TypeGroup, entry.Group().ID(), entry.SecondaryID))
	case KindStep:
		return s.executeStep(ctx, r, entry, parentID)
	default:
		return s.handle(ctx, r, status.Newf(status.Error, "unsupported entry kind %d", entry.Kind()))
	}
}

func (s *Stepper) executeStep(ctx context.Context, r *run, entry *Groupable, parentID *fqid.FullQualifiedID) *status.Status {
	step := entry.Step()
	id := parentID.Child(fqid.TypeStep, step.ID(), entry.SecondaryID)
	executor := s.newExecutor(step, id)

	executed := ExecutedStep{ID: id, Step: step}
	r.ledger = append(r.ledger, executed)
	r.executed = append(r.executed, executed)

	work := step.TotalWork(s.sc, s.data)
	if work < 0 {
		work = 0
	}
	inv := Invocation{Context: s.sc, Data: s.data, ID: id, Progress: s.progress.Sub(work)}

	s.emit(Event{Type: EventStepStarted, Step: id.String(), Message: fmt.Sprintf("step %q started", step.ID())})
	s.info("step started", "step", id)

	err := executor.Execute(ctx, step, inv)
	if err == nil {
		s.emit(Event{Type: EventStepCompleted, Step: id.String(), Severity: status.OK.String(), Message: fmt.Sprintf("step %q completed", step.ID())})
		s.debug("step completed", "step", id)
		return nil
	}

	own := status.FromError(err)
	fatal := s.normalize(r, err)
	if fatal == nil {
		s.emit(Event{Type: EventStepCompleted, Step: id.String(), Severity: own.Severity.String(), Message: fmt.Sprintf("step %q completed with %s", step.ID(), own.Severity), Error: own.Error()})
		if own.Severity != status.OK {
			s.warn("step reported status", "step", id, "severity", own.Severity, "message", own.Message)
		}
		return nil
	}

	s.emit(Event{Type: EventStepFailed, Step: id.String(), Severity: own.Severity.String(), Message: fmt.Sprintf("step %q failed", step.ID()), Error: own.Error()})
	s.logError("step failed", "step", id, "error", own)
	return s.fail(ctx, r, fatal)
}

// normalize classifies err. OK statuses are dropped and Info/Warning are
// accumulated, both yielding nil. Error and Cancel yield the fatal status,
// merged with everything accumulated so far. Cancel also raises the progress
// cancellation flag.
func (s *Stepper) normalize(r *run, err error) *status.Status {
	st := status.FromError(err)
	switch {
	case st == nil || st.Severity == status.OK:
		return nil
	case st.Severity.IsAccumulated():
		r.accumulated = append(r.accumulated, st)
		return nil
	}

	if st.Severity == status.Cancel && !s.progress.IsCancelled() {
		s.progress.SetCancelled(true)
	}
	if len(r.accumulated) == 0 {
		return st
	}
	merged := status.Merge(st.Message, append(r.accumulated, st)...)
	r.accumulated = nil
	return merged
}

// handle normalizes err and, when it is fatal, rolls back and returns it.
func (s *Stepper) handle(ctx context.Context, r *run, err error) *status.Status {
	fatal := s.normalize(r, err)
	if fatal == nil {
		return nil
	}
	return s.fail(ctx, r, fatal)
}

func (s *Stepper) fail(ctx context.Context, r *run, fatal *status.Status) *status.Status {
	s.rollback(ctx, r, fatal)
	return fatal
}

// checkCancelled trips on an external cancel request, a cancelled ctx, or a
// Cancel status reported by an earlier step.
func (s *Stepper) checkCancelled(ctx context.Context, r *run, at *fqid.FullQualifiedID) *status.Status {
	if ctx.Err() != nil && !s.progress.IsCancelled() {
		s.progress.SetCancelled(true)
	}
	if !s.progress.IsCancelled() {
		return nil
	}
	s.info("cancellation requested", "at", at)
	return s.handle(ctx, r, status.Wrap(status.Cancel, ErrCancelled, fmt.Sprintf("cancelled at %s", at)))
}

// rollback unwinds the ledger in strict reverse order. Entries whose step is
// not a Rollbacker are dropped. A failing rollback is recorded and unwinding
// continues with the next older entry. Rollback ignores cancellation of ctx.
func (s *Stepper) rollback(ctx context.Context, r *run, cause *status.Status) {
	if len(r.ledger) == 0 {
		return
	}
	s.emit(Event{Type: EventRollbackStarted, Message: fmt.Sprintf("rolling back %d step(s)", len(r.ledger)), Severity: cause.Severity.String()})
	s.info("rollback started", "steps", len(r.ledger))

	rbCtx := context.WithoutCancel(ctx)
	for len(r.ledger) > 0 {
		last := r.ledger[len(r.ledger)-1]
		r.ledger = r.ledger[:len(r.ledger)-1]

		rb, ok := last.Step.(Rollbacker)
		if !ok {
			continue
		}
		inv := Invocation{Context: s.sc, Data: s.data, ID: last.ID, Progress: s.progress.Sub(1)}
		if err := safeRollback(rbCtx, rb, inv, cause); err != nil {
			failure := status.Wrap(status.Error, err, fmt.Sprintf("rollback of %s failed", last.ID))
			r.rollbackFailures = append(r.rollbackFailures, failure)
			s.emit(Event{Type: EventRollbackFailed, Step: last.ID.String(), Message: failure.Message, Error: err.Error()})
			s.warn("rollback failed", "step", last.ID, "error", err)
			continue
		}
		r.rolledBack = append(r.rolledBack, last.ID)
		s.emit(Event{Type: EventStepRolledBack, Step: last.ID.String(), Message: fmt.Sprintf("step %q rolled back", last.Step.ID())})
		s.debug("step rolled back", "step", last.ID)
	}
}

// Cleanup closes the progress monitor and resets the stepper to its created
// state. It is safe to call more than once.
func (s *Stepper) Cleanup() {
	if s.progress != nil {
		s.progress.Done()
	}
	s.sc = nil
	s.data = nil
	s.id = nil
	s.progress = nil
	s.stepGroupID = ""
	s.label = s.fixedLabel
	s.run = nil
	s.state = StateCreated
}

// IsInitialized reports whether Initialize succeeded and Cleanup has not run.
func (s *Stepper) IsInitialized() bool { return s.state != StateCreated }

// IsFinished reports whether Execute has returned.
func (s *Stepper) IsFinished() bool { return s.state == StateFinished }

// State returns the lifecycle state.
func (s *Stepper) State() State { return s.state }

// ID returns the id passed to Initialize.
func (s *Stepper) ID() *fqid.FullQualifiedID { return s.id }

// Context returns the context passed to Initialize.
func (s *Stepper) Context() StepContext { return s.sc }

// StepGroupID returns the step group id read during Initialize.
func (s *Stepper) StepGroupID() string { return s.stepGroupID }

// Label returns the fixed label, the step group label once resolved, or a
// generic default.
func (s *Stepper) Label() string {
	if s.label == "" {
		return defaultLabel
	}
	return s.label
}

// Executed returns every step started during the last Execute, in order.
// Unlike the ledger it is not drained by rollback.
func (s *Stepper) Executed() []ExecutedStep {
	if s.run == nil {
		return nil
	}
	out := make([]ExecutedStep, len(s.run.executed))
	copy(out, s.run.executed)
	return out
}

// Ledger returns the entries still awaiting rollback: all executed steps
// after a successful run, none after a fatal one.
func (s *Stepper) Ledger() []ExecutedStep {
	if s.run == nil {
		return nil
	}
	out := make([]ExecutedStep, len(s.run.ledger))
	copy(out, s.run.ledger)
	return out
}

// RolledBack returns the ids of steps whose Rollback succeeded, in the order
// they were rolled back.
func (s *Stepper) RolledBack() []*fqid.FullQualifiedID {
	if s.run == nil {
		return nil
	}
	out := make([]*fqid.FullQualifiedID, len(s.run.rolledBack))
	copy(out, s.run.rolledBack)
	return out
}

// RollbackFailures returns the statuses of rollbacks that failed. They are
// reported separately and never replace the fatal status Execute returns.
func (s *Stepper) RollbackFailures() []*status.Status {
	if s.run == nil {
		return nil
	}
	out := make([]*status.Status, len(s.run.rollbackFailures))
	copy(out, s.run.rollbackFailures)
	return out
}

func entryType(entry *Groupable) string {
	if entry.Kind() == KindGroup {
		return fqid.TypeGroup
	}
	return fqid.TypeStep
}

func contractError(sentinel error, msg string) *status.Status {
	return status.Wrap(status.Error, sentinel, msg)
}

func (s *Stepper) emit(ev Event) {
	if s.events == nil {
		return
	}
	ev.StepperID = s.id.String()
	if s.sc != nil {
		ev.ContextID = s.sc.ID()
	}
	emitTo(s.events, ev)
}

func (s *Stepper) debug(msg string, kvs ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, kvs...)
	}
}

func (s *Stepper) info(msg string, kvs ...any) {
	if s.logger != nil {
		s.logger.Info(msg, kvs...)
	}
}

func (s *Stepper) warn(msg string, kvs ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, kvs...)
	}
}

func (s *Stepper) logError(msg string, kvs ...any) {
	if s.logger != nil {
		s.logger.Error(msg, kvs...)
	}
}
