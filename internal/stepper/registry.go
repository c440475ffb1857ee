package stepper

import (
	"fmt"
	"sort"
	"sync"
)

// GroupProvider resolves step groups by id. It is the only view of the
// registry the engine needs, so tests can substitute a fake.
type GroupProvider interface {
	StepGroup(id string) (StepGroup, error)
}

// Registry maps ids to step groups and steps. Registration normally happens
// once at startup, but lookups and registration are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	groups map[string]StepGroup
	steps  map[string]Step
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		groups: make(map[string]StepGroup),
		steps:  make(map[string]Step),
	}
}

// RegisterGroup adds group keyed by group.ID(). It panics if group is nil,
// has an empty id, or duplicates an existing id. These are programming errors
// that should be caught at startup.
func (r *Registry) RegisterGroup(group StepGroup) {
	if group == nil {
		panic("stepper: RegisterGroup called with nil group")
	}
	id := group.ID()
	if id == "" {
		panic("stepper: RegisterGroup called with group that returns empty id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.groups[id]; exists {
		panic(fmt.Sprintf("stepper: step group %q is already registered", id))
	}
	r.groups[id] = group
}

// RegisterStep adds step keyed by step.ID(), with the same panic conditions
// as RegisterGroup.
func (r *Registry) RegisterStep(step Step) {
	if step == nil {
		panic("stepper: RegisterStep called with nil step")
	}
	id := step.ID()
	if id == "" {
		panic("stepper: RegisterStep called with step that returns empty id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.steps[id]; exists {
		panic(fmt.Sprintf("stepper: step %q is already registered", id))
	}
	r.steps[id] = step
}

// StepGroup returns the group registered under id, or ErrStepGroupNotFound
// wrapped with the id.
func (r *Registry) StepGroup(id string) (StepGroup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.groups[id]
	if !ok {
		return nil, fmt.Errorf("step group %q: %w", id, ErrStepGroupNotFound)
	}
	return g, nil
}

// Step returns the step registered under id, or ErrStepNotFound wrapped with
// the id.
func (r *Registry) Step(id string) (Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.steps[id]
	if !ok {
		return nil, fmt.Errorf("step %q: %w", id, ErrStepNotFound)
	}
	return s, nil
}

// HasGroup reports whether a group is registered under id.
func (r *Registry) HasGroup(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.groups[id]
	return ok
}

// HasStep reports whether a step is registered under id.
func (r *Registry) HasStep(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.steps[id]
	return ok
}

// Groups returns the registered group ids in alphabetical order.
func (r *Registry) Groups() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.groups)
}

// Steps returns the registered step ids in alphabetical order.
func (r *Registry) Steps() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.steps)
}

// MustStepGroup returns the group registered under id, or panics. Intended
// for initialization code where a missing group is unrecoverable.
func (r *Registry) MustStepGroup(id string) StepGroup {
	g, err := r.StepGroup(id)
	if err != nil {
		panic(fmt.Sprintf("stepper: MustStepGroup: %v", err))
	}
	return g
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
