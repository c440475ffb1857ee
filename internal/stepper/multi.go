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

// childTicks is the progress share of one context in a multi-context run.
const childTicks = 100

// ContextRun pairs a context with the runner executing it.
type ContextRun struct {
	Context StepContext
	ID      *fqid.FullQualifiedID
	Runner  Runner
}

// MultiContextStepper runs the same step group against every context listed
// under PropContexts, one child runner per context, sequentially.
type MultiContextStepper struct {
	groups      GroupProvider
	stepperOpts []Option
	newChild    func(sc StepContext) Runner
	logger      *log.Logger
	events      chan<- Event
	label       string

	state    State
	sc       StepContext
	data     *props.Container
	id       *fqid.FullQualifiedID
	progress Progress
	children []ContextRun
}

// MultiOption configures a MultiContextStepper.
type MultiOption func(*MultiContextStepper)

// WithStepperOptions sets the options used for default child steppers.
func WithStepperOptions(opts ...Option) MultiOption {
	return func(m *MultiContextStepper) { m.stepperOpts = append(m.stepperOpts, opts...) }
}

// WithChildFactory overrides how the child runner for a context is built.
// Returning nil falls back to a default Stepper.
func WithChildFactory(factory func(sc StepContext) Runner) MultiOption {
	return func(m *MultiContextStepper) { m.newChild = factory }
}

// WithMultiLogger attaches a logger to the multi-context stepper itself.
func WithMultiLogger(logger *log.Logger) MultiOption {
	return func(m *MultiContextStepper) { m.logger = logger }
}

// WithMultiEvents sets the channel for context_started/context_finished
// events. Child steppers need WithEventChannel through WithStepperOptions.
func WithMultiEvents(ch chan<- Event) MultiOption {
	return func(m *MultiContextStepper) { m.events = ch }
}

// WithMultiLabel sets the label.
func WithMultiLabel(label string) MultiOption {
	return func(m *MultiContextStepper) { m.label = label }
}

// NewMulti creates a MultiContextStepper.
func NewMulti(groups GroupProvider, opts ...MultiOption) *MultiContextStepper {
	m := &MultiContextStepper{groups: groups}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize builds and initializes one child runner per context found in
// data. sc is optional and only recorded. For context i the child id is
// id.Child(stepper, "<id>/<i>", contextID), and the association is stored in
// data under PropStepperIDPrefix+contextID and as PropContextID qualified by
// the child id.
func (m *MultiContextStepper) Initialize(sc StepContext, data *props.Container, id *fqid.FullQualifiedID, progress Progress) error {
	if m.state != StateCreated {
		return contractError(ErrAlreadyInitialized, fmt.Sprintf("multi-context stepper %s is %s", m.id, m.state))
	}
	if data == nil || id == nil {
		return contractError(ErrInvalidArgument, "initialize requires data and id")
	}
	contexts := ContextsFrom(data)
	if len(contexts) == 0 {
		return contractError(ErrNoContexts, fmt.Sprintf("property %q holds no contexts", PropContexts))
	}
	if progress == nil {
		progress = NewProgress(nil)
	}
	progress.BeginTask(m.Label(), childTicks*len(contexts))

	children := make([]ContextRun, 0, len(contexts))
	for i, c := range contexts {
		child := m.childFor(c)
		childID := id.Child(fqid.TypeStepper, id.ID()+"/"+strconv.Itoa(i), c.ID())

		SetQualified(data, childID, PropContextID, c.ID())
		data.Set(PropStepperIDPrefix+c.ID(), childID.String())

		if err := child.Initialize(c, data, childID, progress.Sub(childTicks)); err != nil {
			for _, done := range children {
				done.Runner.Cleanup()
			}
			return err
		}
		children = append(children, ContextRun{Context: c, ID: childID, Runner: child})
	}

	m.sc = sc
	m.data = data
	m.id = id
	m.progress = progress
	m.children = children
	m.state = StateInitialized
	return nil
}

func (m *MultiContextStepper) childFor(sc StepContext) Runner {
	if m.newChild != nil {
		if r := m.newChild(sc); r != nil {
			return r
		}
	}
	return New(m.groups, m.stepperOpts...)
}

// Execute runs every child in order. Before each child the running index,
// count and context id are published in data. When the run is cancelable
// (PropCancelable, default true) the first fatal child outcome is returned
// at once, merged with what was accumulated before it; otherwise it is
// accumulated and the next context runs. Non-fatal child outcomes are always
// accumulated.
func (m *MultiContextStepper) Execute(ctx context.Context) error {
	switch m.state {
	case StateCreated:
		return contractError(ErrNotInitialized, "execute called before initialize")
	case StateExecuting, StateFinished:
		return contractError(ErrAlreadyInitialized, fmt.Sprintf("multi-context stepper %s already executed", m.id))
	}
	m.state = StateExecuting
	defer func() { m.state = StateFinished }()

	cancelable := m.IsCancelable()
	var accumulated []*status.Status
	for i, child := range m.children {
		m.data.Set(PropContextIndex, i)
		m.data.Set(PropContextCount, len(m.children))
		m.data.Set(PropContextID, child.Context.ID())

		m.emit(Event{Type: EventContextStarted, ContextID: child.Context.ID(), Step: child.ID.String(), Message: fmt.Sprintf("context %d/%d started", i+1, len(m.children))})
		m.info("context started", "context", child.Context.ID(), "index", i, "count", len(m.children))

		err := child.Runner.Execute(ctx)
		st := status.FromError(err)

		m.emit(Event{Type: EventContextFinished, ContextID: child.Context.ID(), Step: child.ID.String(), Severity: severityOf(st), Message: fmt.Sprintf("context %d/%d finished", i+1, len(m.children)), Error: errorText(st)})

		if st.IsOK() {
			continue
		}
		if st.Severity.IsFatal() {
			m.logError("context failed", "context", child.Context.ID(), "error", st)
			if cancelable {
				if len(accumulated) == 0 {
					return st
				}
				return status.Merge(st.Message, append(accumulated, st)...)
			}
		} else {
			m.warn("context reported status", "context", child.Context.ID(), "severity", st.Severity)
		}
		accumulated = append(accumulated, st)
	}

	if merged := status.Combine(fmt.Sprintf("%d of %d context(s) reported status", len(accumulated), len(m.children)), accumulated); merged != nil {
		return merged
	}
	return nil
}

// IsCancelable reports whether a fatal context failure stops the run.
func (m *MultiContextStepper) IsCancelable() bool {
	if m.data == nil {
		return true
	}
	return m.data.GetBool(PropCancelable, true)
}

// Cleanup cascades to every child and resets the stepper.
func (m *MultiContextStepper) Cleanup() {
	for _, child := range m.children {
		child.Runner.Cleanup()
	}
	if m.progress != nil {
		m.progress.Done()
	}
	m.children = nil
	m.sc = nil
	m.data = nil
	m.id = nil
	m.progress = nil
	m.state = StateCreated
}

// Children returns the per-context runners created by Initialize.
func (m *MultiContextStepper) Children() []ContextRun {
	out := make([]ContextRun, len(m.children))
	copy(out, m.children)
	return out
}

func (m *MultiContextStepper) IsInitialized() bool { return m.state != StateCreated }

func (m *MultiContextStepper) IsFinished() bool { return m.state == StateFinished }

func (m *MultiContextStepper) ID() *fqid.FullQualifiedID { return m.id }

func (m *MultiContextStepper) Label() string {
	if m.label == "" {
		return "multi-context " + defaultLabel
	}
	return m.label
}

func severityOf(st *status.Status) string {
	if st == nil {
		return status.OK.String()
	}
	return st.Severity.String()
}

func errorText(st *status.Status) string {
	if st.IsOK() {
		return ""
	}
	return st.Error()
}

func (m *MultiContextStepper) emit(ev Event) {
	if m.events == nil {
		return
	}
	ev.StepperID = m.id.String()
	emitTo(m.events, ev)
}

func (m *MultiContextStepper) info(msg string, kvs ...any) {
	if m.logger != nil {
		m.logger.Info(msg, kvs...)
	}
}

func (m *MultiContextStepper) warn(msg string, kvs ...any) {
	if m.logger != nil {
		m.logger.Warn(msg, kvs...)
	}
}

func (m *MultiContextStepper) logError(msg string, kvs ...any) {
	if m.logger != nil {
		m.logger.Error(msg, kvs...)
	}
}
