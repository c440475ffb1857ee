package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/AbdelazizMoustafa10m/stepper/internal/stepper"
)

// LocalContextID is the context used when stepper.toml defines none.
const LocalContextID = "local"

// StepFactory creates the step for a [steps.<id>] section.
type StepFactory func(id string, sc StepConfig) (stepper.Step, error)

// Context is a StepContext backed by a [contexts.<id>] section.
type Context struct {
	id   string
	name string
	vars map[string]string
}

// NewContext creates a Context. vars is copied.
func NewContext(id, name string, vars map[string]string) *Context {
	c := &Context{id: id, name: name, vars: make(map[string]string, len(vars))}
	for k, v := range vars {
		c.vars[k] = v
	}
	return c
}

func (c *Context) ID() string { return c.id }

func (c *Context) Name() string {
	if c.name == "" {
		return c.id
	}
	return c.name
}

// Vars returns a copy of the context variables.
func (c *Context) Vars() map[string]string {
	out := make(map[string]string, len(c.vars))
	for k, v := range c.vars {
		out[k] = v
	}
	return out
}

// BuildRegistry creates every configured step with factory and assembles the
// configured groups. Group references are resolved in a second pass so that
// entries may refer to groups declared later in the file. Cycles between
// groups are rejected.
func BuildRegistry(cfg *Config, factory StepFactory) (*stepper.Registry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("building registry: configuration is nil")
	}
	if factory == nil {
		return nil, fmt.Errorf("building registry: step factory is nil")
	}
	if cycle := findGroupCycle(cfg.Groups); cycle != nil {
		return nil, fmt.Errorf("building registry: group cycle %s", strings.Join(cycle, " -> "))
	}

	reg := stepper.NewRegistry()

	steps := make(map[string]stepper.Step, len(cfg.Steps))
	for _, id := range sortedIDs(cfg.Steps) {
		step, err := factory(id, cfg.Steps[id])
		if err != nil {
			return nil, fmt.Errorf("building step %q: %w", id, err)
		}
		if step == nil || step.ID() != id {
			return nil, fmt.Errorf("building step %q: factory returned a step with a different id", id)
		}
		steps[id] = step
		reg.RegisterStep(step)
	}

	groups := make(map[string]*stepper.Group, len(cfg.Groups))
	for _, id := range sortedIDs(cfg.Groups) {
		gc := cfg.Groups[id]
		g := stepper.NewGroup(id, gc.Label).WithDescription(gc.Description)
		switch {
		case gc.Iterations > 0:
			n := gc.Iterations
			g.WithIterator(func() stepper.StepGroupIterator { return stepper.NewCountIterator(n) })
		case gc.IterateOver != "":
			key := gc.IterateOver
			g.WithIterator(func() stepper.StepGroupIterator { return stepper.NewListIterator(key) })
		}
		groups[id] = g
	}

	for _, id := range sortedIDs(cfg.Groups) {
		for i, ec := range cfg.Groups[id].Entries {
			entry, err := buildEntry(ec, steps, groups)
			if err != nil {
				return nil, fmt.Errorf("building group %q entry %d: %w", id, i, err)
			}
			groups[id].Add(entry)
		}
		reg.RegisterGroup(groups[id])
	}

	return reg, nil
}

func buildEntry(ec EntryConfig, steps map[string]stepper.Step, groups map[string]*stepper.Group) (*stepper.Groupable, error) {
	opts := []stepper.EntryOption{
		stepper.WithSecondaryID(ec.SecondaryID),
		stepper.Disabled(ec.Disabled),
	}
	if len(ec.Dependencies) > 0 {
		opts = append(opts, stepper.WithDependencies(ec.Dependencies...))
	}

	switch {
	case ec.Step != "" && ec.Group != "":
		return nil, fmt.Errorf("step and group are mutually exclusive")
	case ec.Step != "":
		step, ok := steps[ec.Step]
		if !ok {
			return nil, fmt.Errorf("undefined step %q", ec.Step)
		}
		return stepper.StepEntry(step, opts...), nil
	case ec.Group != "":
		group, ok := groups[ec.Group]
		if !ok {
			return nil, fmt.Errorf("undefined group %q", ec.Group)
		}
		return stepper.GroupEntry(group, opts...), nil
	default:
		return nil, fmt.Errorf("one of step or group must be set")
	}
}

// findGroupCycle returns the ids along the first cycle found between groups,
// starting and ending with the same id, or nil.
func findGroupCycle(groups map[string]GroupConfig) []string {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(groups))
	var path []string

	var visit func(id string) []string
	visit = func(id string) []string {
		switch state[id] {
		case visiting:
			for i, p := range path {
				if p == id {
					return append(append([]string{}, path[i:]...), id)
				}
			}
			return []string{id, id}
		case done:
			return nil
		}
		state[id] = visiting
		path = append(path, id)
		for _, e := range groups[id].Entries {
			if e.Group == "" {
				continue
			}
			if _, ok := groups[e.Group]; !ok {
				continue
			}
			if cycle := visit(e.Group); cycle != nil {
				return cycle
			}
		}
		path = path[:len(path)-1]
		state[id] = done
		return nil
	}

	for _, id := range sortedIDs(groups) {
		if cycle := visit(id); cycle != nil {
			return cycle
		}
	}
	return nil
}

// BuildContexts returns the configured contexts whose ids match any of
// patterns, in id order. No patterns selects every context. When no
// contexts are configured, a single "local" context is returned. Selecting
// nothing is an error.
func BuildContexts(cfg *Config, patterns []string) ([]stepper.StepContext, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid context pattern %q", p)
		}
	}

	var all []stepper.StepContext
	if cfg == nil || len(cfg.Contexts) == 0 {
		all = []stepper.StepContext{NewContext(LocalContextID, "", nil)}
	} else {
		for _, id := range sortedIDs(cfg.Contexts) {
			cc := cfg.Contexts[id]
			all = append(all, NewContext(id, cc.Name, cc.Vars))
		}
	}
	if len(patterns) == 0 {
		return all, nil
	}

	var selected []stepper.StepContext
	for _, sc := range all {
		for _, p := range patterns {
			if ok, _ := doublestar.Match(p, sc.ID()); ok {
				selected = append(selected, sc)
				break
			}
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no context matches %s", strings.Join(patterns, ", "))
	}
	return selected, nil
}

// ValidateRegistry walks the named groups (every top-level group when none
// are named) the way the engine would for sc and converts structural problems into
// validation issues under "groups.<path>". Issues found through more than one
// parent are reported once.
func ValidateRegistry(reg *stepper.Registry, sc stepper.StepContext, groupIDs ...string) *ValidationResult {
	vr := &ValidationResult{}
	if reg == nil {
		addError(vr, "", "registry is nil")
		return vr
	}
	if len(groupIDs) == 0 {
		groupIDs = rootGroups(reg, sc)
	}

	seen := make(map[string]bool)
	add := func(sev ValidationSeverity, issue stepper.ValidationIssue) {
		field := "groups"
		if issue.Path != "" {
			field += "." + strings.ReplaceAll(issue.Path, "/", ".")
		}
		key := string(sev) + "|" + issue.Code + "|" + field
		if seen[key] {
			return
		}
		seen[key] = true
		vr.Issues = append(vr.Issues, ValidationIssue{
			Severity: sev,
			Field:    field,
			Message:  fmt.Sprintf("[%s] %s", issue.Code, issue.Message),
		})
	}

	ids := append([]string(nil), groupIDs...)
	sort.Strings(ids)
	for _, id := range ids {
		group, err := reg.StepGroup(id)
		if err != nil {
			addError(vr, "groups."+id, err.Error())
			continue
		}
		res := stepper.ValidateGroup(group, sc)
		for _, issue := range res.Errors {
			add(SeverityError, issue)
		}
		for _, issue := range res.Warnings {
			add(SeverityWarning, issue)
		}
	}
	return vr
}

// rootGroups returns the ids of groups no other group includes. A registry
// made only of cycles has no roots, so every group is returned instead.
func rootGroups(reg *stepper.Registry, sc stepper.StepContext) []string {
	included := make(map[string]bool)
	for _, id := range reg.Groups() {
		group, err := reg.StepGroup(id)
		if err != nil {
			continue
		}
		entries, err := group.Steps(sc)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.Kind() == stepper.KindGroup {
				included[e.ExtensionID()] = true
			}
		}
	}

	var roots []string
	for _, id := range reg.Groups() {
		if !included[id] {
			roots = append(roots, id)
		}
	}
	if len(roots) == 0 {
		return reg.Groups()
	}
	return roots
}
