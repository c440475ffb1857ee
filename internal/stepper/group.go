package stepper

import "fmt"

// Kind tags the case held by a Groupable.
type Kind int

const (
	KindStep Kind = iota
	KindGroup
)

func (k Kind) String() string {
	if k == KindGroup {
		return "group"
	}
	return "step"
}

// Groupable wraps exactly one Step or one nested StepGroup and adds a
// secondary id, extra dependencies and a disabled flag. Build values with
// StepEntry or GroupEntry; the zero value is not valid.
type Groupable struct {
	kind  Kind
	step  Step
	group StepGroup

	SecondaryID  string
	Dependencies []string
	Disabled     bool
}

// EntryOption configures a Groupable.
type EntryOption func(*Groupable)

// WithSecondaryID sets the secondary id, which distinguishes repeated uses of
// the same step or group within one parent.
func WithSecondaryID(id string) EntryOption {
	return func(g *Groupable) { g.SecondaryID = id }
}

// WithDependencies adds dependencies on top of the step's own.
func WithDependencies(deps ...string) EntryOption {
	return func(g *Groupable) { g.Dependencies = append(g.Dependencies, deps...) }
}

// Disabled marks the entry as skipped. Disabled entries never run, never
// enter the ledger and never satisfy dependencies.
func Disabled(disabled bool) EntryOption {
	return func(g *Groupable) { g.Disabled = disabled }
}

// StepEntry wraps a Step. It panics on a nil step.
func StepEntry(step Step, opts ...EntryOption) *Groupable {
	if step == nil {
		panic("stepper: StepEntry called with nil step")
	}
	g := &Groupable{kind: KindStep, step: step}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GroupEntry wraps a nested StepGroup. It panics on a nil group.
func GroupEntry(group StepGroup, opts ...EntryOption) *Groupable {
	if group == nil {
		panic("stepper: GroupEntry called with nil group")
	}
	g := &Groupable{kind: KindGroup, group: group}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Kind returns which case the entry holds.
func (g *Groupable) Kind() Kind { return g.kind }

// Step returns the wrapped step, or nil for a group entry.
func (g *Groupable) Step() Step { return g.step }

// Group returns the wrapped group, or nil for a step entry.
func (g *Groupable) Group() StepGroup { return g.group }

// ExtensionID returns the id of the wrapped step or group.
func (g *Groupable) ExtensionID() string {
	switch g.kind {
	case KindGroup:
		return g.group.ID()
	default:
		return g.step.ID()
	}
}

// AllDependencies returns the entry's own dependencies followed by those the
// wrapped step declares.
func (g *Groupable) AllDependencies() []string {
	deps := make([]string, 0, len(g.Dependencies))
	deps = append(deps, g.Dependencies...)
	if g.kind == KindStep {
		deps = append(deps, g.step.Dependencies()...)
	}
	return deps
}

func (g *Groupable) String() string {
	if g.SecondaryID != "" {
		return fmt.Sprintf("%s %s#%s", g.kind, g.ExtensionID(), g.SecondaryID)
	}
	return fmt.Sprintf("%s %s", g.kind, g.ExtensionID())
}

// Group is the stock StepGroup: a static, context-independent entry list with
// an optional iterator factory.
type Group struct {
	id          string
	label       string
	description string
	entries     []*Groupable
	newIterator func() StepGroupIterator
}

// NewGroup creates a group with the given entries.
func NewGroup(id, label string, entries ...*Groupable) *Group {
	return &Group{id: id, label: label, entries: entries}
}

// Add appends entries and returns g for chaining.
func (g *Group) Add(entries ...*Groupable) *Group {
	g.entries = append(g.entries, entries...)
	return g
}

// WithIterator sets the factory used to create one iterator per execution.
func (g *Group) WithIterator(factory func() StepGroupIterator) *Group {
	g.newIterator = factory
	return g
}

// WithDescription sets a free-form description shown by the plan formatter.
func (g *Group) WithDescription(desc string) *Group {
	g.description = desc
	return g
}

func (g *Group) ID() string { return g.id }

func (g *Group) Label() string {
	if g.label == "" {
		return g.id
	}
	return g.label
}

// Description returns the group description.
func (g *Group) Description() string { return g.description }

// Steps returns a copy of the entry list. The list is the same for every
// context.
func (g *Group) Steps(StepContext) ([]*Groupable, error) {
	out := make([]*Groupable, len(g.entries))
	copy(out, g.entries)
	return out, nil
}

func (g *Group) NewIterator() StepGroupIterator {
	if g.newIterator == nil {
		return nil
	}
	return g.newIterator()
}
