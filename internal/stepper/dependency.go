package stepper

import (
	"fmt"
	"strings"

	"github.com/AbdelazizMoustafa10m/stepper/internal/status"
)

// QualifierSeparator splits a dependency into the step id and a qualifier
// that the dependency check ignores.
const QualifierSeparator = "##"

// DependencyStepID returns the step id part of a dependency declaration.
func DependencyStepID(dep string) string {
	id, _, _ := strings.Cut(dep, QualifierSeparator)
	return strings.TrimSpace(id)
}

// checkDependencies verifies that every dependency of entry names a step
// already present in ledger. The scan is linear over the current run only.
func checkDependencies(entry *Groupable, ledger []ExecutedStep) *status.Status {
	for _, dep := range entry.AllDependencies() {
		want := DependencyStepID(dep)
		if want == "" {
			continue
		}
		if !ledgerContains(ledger, want) {
			return status.Wrap(status.Error, ErrDependencyNotExecuted,
				fmt.Sprintf("%s: required step %q not executed", entry, want))
		}
	}
	return nil
}

func ledgerContains(ledger []ExecutedStep, stepID string) bool {
	for _, e := range ledger {
		if e.Step.ID() == stepID {
			return true
		}
	}
	return false
}

// cycleError reports a nested group that contains itself.
type cycleError struct{ group string }

func newCycleError(group string) error { return &cycleError{group: group} }

func (e *cycleError) Error() string {
	return fmt.Sprintf("step group %q contains itself", e.group)
}
