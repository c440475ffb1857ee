package stepper

import "errors"

// Contract violations. The engine returns them wrapped in an Error-severity
// *status.Status, so both errors.Is and status.FromError work on the result.
var (
	ErrAlreadyInitialized    = errors.New("stepper already initialized")
	ErrNotInitialized        = errors.New("stepper not initialized")
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrMissingStepGroupID    = errors.New("missing step group id")
	ErrStepGroupNotFound     = errors.New("step group not found")
	ErrStepNotFound          = errors.New("step not found")
	ErrDependencyNotExecuted = errors.New("required step not executed")
	ErrNoContexts            = errors.New("no step contexts")
	ErrCancelled             = errors.New("execution cancelled")
)
