package stepper

import (
	"github.com/AbdelazizMoustafa10m/stepper/internal/fqid"
	"github.com/AbdelazizMoustafa10m/stepper/internal/props"
)

// Well-known property keys read or published by the engine.
const (
	// PropStepGroupID names the step group a Stepper runs.
	PropStepGroupID = "stepper.stepGroupId"

	// PropContexts holds the []StepContext a MultiContextStepper fans out to.
	PropContexts = "stepper.contexts"

	// PropContextID holds the id of the context currently running. The
	// MultiContextStepper also stores it qualified by each child's id.
	PropContextID = "stepper.contextId"

	// PropContextIndex and PropContextCount tell steps which of N contexts
	// is running.
	PropContextIndex = "stepper.contextIndex"
	PropContextCount = "stepper.contextCount"

	// PropStepperIDPrefix + context id maps a context to its child stepper id.
	PropStepperIDPrefix = "stepper.stepperId."

	// PropCancelable makes a MultiContextStepper stop at the first fatal
	// context failure. Defaults to true.
	PropCancelable = "stepper.cancelable"

	// PropIterationValue is published by ListIterator, qualified by the
	// iteration id.
	PropIterationValue = "stepper.iterationValue"
)

// QualifiedKey returns the key under which a value for id is stored.
func QualifiedKey(id *fqid.FullQualifiedID, key string) string {
	if id == nil {
		return key
	}
	return key + "@" + id.String()
}

// SetQualified stores value under key scoped to id, so repeated iterations
// or contexts do not overwrite each other.
func SetQualified(data *props.Container, id *fqid.FullQualifiedID, key string, value any) {
	data.Set(QualifiedKey(id, key), value)
}

// GetQualified looks key up scoped to id, then to each ancestor of id, and
// finally unqualified.
func GetQualified(data *props.Container, id *fqid.FullQualifiedID, key string) (any, bool) {
	for cur := id; cur != nil; cur = cur.Parent() {
		if v, ok := data.Get(QualifiedKey(cur, key)); ok {
			return v, true
		}
	}
	return data.Get(key)
}

// GetQualifiedString is GetQualified for string values.
func GetQualifiedString(data *props.Container, id *fqid.FullQualifiedID, key string) string {
	v, ok := GetQualified(data, id, key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// SetContexts stores the contexts a MultiContextStepper runs against.
func SetContexts(data *props.Container, contexts ...StepContext) {
	cp := make([]StepContext, len(contexts))
	copy(cp, contexts)
	data.Set(PropContexts, cp)
}

// ContextsFrom returns the contexts stored with SetContexts.
func ContextsFrom(data *props.Container) []StepContext {
	v, ok := data.Get(PropContexts)
	if !ok {
		return nil
	}
	contexts, _ := v.([]StepContext)
	return contexts
}
