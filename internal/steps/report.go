package steps

import (
	"context"
	"fmt"
	"os"

	"github.com/AbdelazizMoustafa10m/stepper/internal/status"
	"github.com/AbdelazizMoustafa10m/stepper/internal/stepper"
)

// ReportStep returns a fixed status. It is used to surface notices and to
// fail a run on purpose. ${key} in the message expands to the shared value
// stored under key, looked up from the step's scope outwards.
type ReportStep struct {
	base
	severity status.Severity
	message  string
}

func (s *ReportStep) Execute(_ context.Context, inv stepper.Invocation) error {
	if s.severity == status.OK {
		return nil
	}
	msg := os.Expand(s.message, func(key string) string {
		v, ok := stepper.GetQualified(inv.Data, inv.ID, key)
		if !ok {
			return ""
		}
		return fmt.Sprint(v)
	})
	if msg == "" {
		msg = fmt.Sprintf("step %q reported %s", s.ID(), s.severity)
	}
	return status.New(s.severity, msg)
}
