package stepper

import "time"

// Event type constants identify the lifecycle milestone of an Event. String
// values are used so events round-trip cleanly through JSON run reports.
const (
	// EventRunStarted is emitted when Execute begins.
	EventRunStarted = "run_started"

	// EventRunCompleted is emitted when Execute returns without a fatal
	// status. Accumulated warnings may still be reported.
	EventRunCompleted = "run_completed"

	// EventRunFailed is emitted when Execute returns a fatal status.
	EventRunFailed = "run_failed"

	// EventGroupStarted is emitted when a step group starts.
	EventGroupStarted = "group_started"

	// EventIterationStarted is emitted at the start of every iterator pass.
	EventIterationStarted = "iteration_started"

	// EventStepStarted is emitted after the ledger entry is written and
	// before the step runs.
	EventStepStarted = "step_started"

	// EventStepCompleted is emitted when a step returns OK or a non-fatal
	// status.
	EventStepCompleted = "step_completed"

	// EventStepFailed is emitted when a step returns a fatal status.
	EventStepFailed = "step_failed"

	// EventStepSkipped is emitted for disabled entries.
	EventStepSkipped = "step_skipped"

	// EventRollbackStarted is emitted once before unwinding the ledger.
	EventRollbackStarted = "rollback_started"

	// EventStepRolledBack is emitted after a successful Rollback call.
	EventStepRolledBack = "step_rolled_back"

	// EventRollbackFailed is emitted when a Rollback call fails or panics.
	EventRollbackFailed = "rollback_failed"

	// EventContextStarted and EventContextFinished bracket each context of a
	// MultiContextStepper.
	EventContextStarted  = "context_started"
	EventContextFinished = "context_finished"
)

// Event is a structured message emitted during a run. Events are delivered
// over a channel with a non-blocking send, so a slow consumer drops events
// instead of stalling the run.
type Event struct {
	// Type is one of the Event* constants.
	Type string `json:"type"`

	// StepperID is the full qualified id of the emitting stepper.
	StepperID string `json:"stepper_id"`

	// ContextID is the id of the context the run targets.
	ContextID string `json:"context_id,omitempty"`

	// Step is the full qualified id of the step, group or iteration.
	Step string `json:"step,omitempty"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Severity is the status severity for step and run outcomes.
	Severity string `json:"severity,omitempty"`

	// Error holds the error text for failure events.
	Error string `json:"error,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// emitTo sends ev on ch without blocking. It is a no-op for a nil channel.
func emitTo(ch chan<- Event, ev Event) {
	if ch == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case ch <- ev:
	default:
	}
}
