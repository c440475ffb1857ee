package stepper

import (
	"fmt"
	"strings"

	"github.com/AbdelazizMoustafa10m/stepper/internal/props"
)

// Issue code constants classify each ValidationIssue. Codes are stable
// strings so callers can switch on them.
const (
	// IssueEmptyGroup is reported for a group without entries.
	IssueEmptyGroup = "EMPTY_GROUP"

	// IssueGroupCycle is reported when a group contains itself through
	// nested entries; executing it would never terminate.
	IssueGroupCycle = "GROUP_CYCLE"

	// IssueUnresolvedSteps is reported when a group cannot list its entries.
	IssueUnresolvedSteps = "UNRESOLVED_STEPS"

	// IssueDuplicateEntry is reported when the same step or group appears
	// twice in one group without distinct secondary ids.
	IssueDuplicateEntry = "DUPLICATE_ENTRY"

	// IssueUnsatisfiedDependency is reported when a dependency names a step
	// that never runs before the dependent entry.
	IssueUnsatisfiedDependency = "UNSATISFIED_DEPENDENCY"

	// IssueDisabledDependency is reported when a dependency can only be
	// satisfied by a disabled entry.
	IssueDisabledDependency = "DISABLED_DEPENDENCY"

	// IssueUnknownWork is reported for steps that cannot estimate their
	// work; progress for the whole run becomes indeterminate.
	IssueUnknownWork = "UNKNOWN_WORK"
)

// ValidationIssue describes a single structural problem in a step group.
type ValidationIssue struct {
	// Code is one of the Issue* constants.
	Code string

	// Path locates the entry, e.g. "deploy/flash/copy#boot".
	Path string

	// Message is a human-readable description.
	Message string
}

// ValidationResult holds the outcome of validating a step group. Errors make
// a run fail; warnings do not.
type ValidationResult struct {
	Errors   []ValidationIssue
	Warnings []ValidationIssue
}

// IsValid reports whether there are no errors.
func (r *ValidationResult) IsValid() bool { return len(r.Errors) == 0 }

// String returns a multi-line summary in the format
//
//	Errors (N):
//	  [CODE] path: message
//	Warnings (N):
//	  [CODE] path: message
func (r *ValidationResult) String() string {
	var b strings.Builder
	writeIssues := func(title string, issues []ValidationIssue) {
		fmt.Fprintf(&b, "%s (%d):\n", title, len(issues))
		for _, issue := range issues {
			if issue.Path != "" {
				fmt.Fprintf(&b, "  [%s] %s: %s\n", issue.Code, issue.Path, issue.Message)
			} else {
				fmt.Fprintf(&b, "  [%s] %s\n", issue.Code, issue.Message)
			}
		}
	}
	writeIssues("Errors", r.Errors)
	writeIssues("Warnings", r.Warnings)
	return b.String()
}

// ValidateGroup walks group the way the engine would for sc, without running
// anything, and reports structural problems. Iterated groups are walked once.
func ValidateGroup(group StepGroup, sc StepContext) *ValidationResult {
	v := &validator{
		sc:        sc,
		data:      props.New(),
		result:    &ValidationResult{},
		visiting:  map[string]bool{},
		executed:  map[string]bool{},
		disabled:  map[string]bool{},
		reportedW: map[string]bool{},
	}
	if group == nil {
		v.addError(IssueUnresolvedSteps, "", "step group is nil")
		return v.result
	}
	v.walk(group, group.ID())
	return v.result
}

type validator struct {
	sc       StepContext
	data     *props.Container
	result   *ValidationResult
	visiting map[string]bool
	// executed holds step ids that would already be in the ledger at the
	// current point of the walk.
	executed  map[string]bool
	disabled  map[string]bool
	reportedW map[string]bool
}

func (v *validator) walk(group StepGroup, path string) {
	if v.visiting[group.ID()] {
		v.addError(IssueGroupCycle, path, fmt.Sprintf("step group %q contains itself", group.ID()))
		return
	}
	v.visiting[group.ID()] = true
	defer delete(v.visiting, group.ID())

	entries, err := group.Steps(v.sc)
	if err != nil {
		v.addError(IssueUnresolvedSteps, path, err.Error())
		return
	}
	if len(entries) == 0 {
		v.addWarning(IssueEmptyGroup, path, fmt.Sprintf("step group %q has no entries", group.ID()))
		return
	}

	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		entryPath := path + "/" + entry.ExtensionID()
		if entry.SecondaryID != "" {
			entryPath += "#" + entry.SecondaryID
		}

		key := entry.Kind().String() + ":" + entry.ExtensionID() + "#" + entry.SecondaryID
		if seen[key] {
			v.addWarning(IssueDuplicateEntry, entryPath, fmt.Sprintf("%s appears more than once without a distinct secondary id", entry))
		}
		seen[key] = true

		if entry.Disabled {
			if entry.Kind() == KindStep {
				v.disabled[entry.ExtensionID()] = true
			}
			continue
		}

		for _, dep := range entry.AllDependencies() {
			want := DependencyStepID(dep)
			if want == "" || v.executed[want] {
				continue
			}
			if v.disabled[want] {
				v.addError(IssueDisabledDependency, entryPath, fmt.Sprintf("required step %q is disabled", want))
			} else {
				v.addError(IssueUnsatisfiedDependency, entryPath, fmt.Sprintf("required step %q does not run before this entry", want))
			}
		}

		switch entry.Kind() {
		case KindGroup:
			v.walk(entry.Group(), entryPath)
		case KindStep:
			step := entry.Step()
			if step.TotalWork(v.sc, v.data) < 0 && !v.reportedW[step.ID()] {
				v.reportedW[step.ID()] = true
				v.addWarning(IssueUnknownWork, entryPath, fmt.Sprintf("step %q cannot estimate its work", step.ID()))
			}
			v.executed[step.ID()] = true
		}
	}
}

func (v *validator) addError(code, path, msg string) {
	v.result.Errors = append(v.result.Errors, ValidationIssue{Code: code, Path: path, Message: msg})
}

func (v *validator) addWarning(code, path, msg string) {
	v.result.Warnings = append(v.result.Warnings, ValidationIssue{Code: code, Path: path, Message: msg})
}
