package steps

import (
	"context"
	"time"

	"github.com/AbdelazizMoustafa10m/stepper/internal/status"
	"github.com/AbdelazizMoustafa10m/stepper/internal/stepper"
)

// pollInterval is how often a delay step checks for cancellation.
const pollInterval = 50 * time.Millisecond

// DelayStep waits for a fixed duration. It stops early with a Cancel status
// when the run's progress is cancelled.
type DelayStep struct {
	base
	duration time.Duration
}

func (s *DelayStep) Execute(ctx context.Context, inv stepper.Invocation) error {
	inv.Progress.BeginTask(s.Label(), int(s.duration/pollInterval))
	defer inv.Progress.Done()

	if inv.Progress.IsCancelled() {
		return status.New(status.Cancel, "delay cancelled")
	}

	timer := time.NewTimer(s.duration)
	defer timer.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case <-ticker.C:
			if inv.Progress.IsCancelled() {
				return status.New(status.Cancel, "delay cancelled")
			}
			inv.Progress.Worked(1)
		}
	}
}
