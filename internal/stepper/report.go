package stepper

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/AbdelazizMoustafa10m/stepper/internal/status"
)

// Report is the JSON summary of one run, built by feeding it the run's
// events. It is safe to Record from one goroutine while another calls Finish.
type Report struct {
	mu sync.Mutex

	StepperID  string           `json:"stepper_id"`
	StepGroup  string           `json:"step_group"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at,omitempty"`
	Duration   time.Duration    `json:"duration"`
	Severity   string           `json:"severity"`
	Error      string           `json:"error,omitempty"`
	Contexts   []*ContextReport `json:"contexts"`
}

// ContextReport is the outcome for one context.
type ContextReport struct {
	ContextID        string       `json:"context_id"`
	StepperID        string       `json:"stepper_id,omitempty"`
	Severity         string       `json:"severity,omitempty"`
	Error            string       `json:"error,omitempty"`
	Steps            []StepRecord `json:"steps"`
	RolledBack       []string     `json:"rolled_back,omitempty"`
	RollbackFailures []string     `json:"rollback_failures,omitempty"`
}

// StepRecord captures a single step execution within a run.
type StepRecord struct {
	ID        string        `json:"id"`
	Severity  string        `json:"severity,omitempty"`
	Skipped   bool          `json:"skipped,omitempty"`
	StartedAt time.Time     `json:"started_at,omitempty"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// NewReport starts a report for the run of stepGroup under stepperID.
func NewReport(stepperID, stepGroup string) *Report {
	return &Report{
		StepperID: stepperID,
		StepGroup: stepGroup,
		StartedAt: time.Now(),
		Contexts:  []*ContextReport{},
	}
}

// Record applies ev to the report.
func (r *Report) Record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Type {
	case EventContextStarted:
		cr := r.contextLocked(ev.ContextID)
		cr.StepperID = ev.Step
	case EventStepStarted:
		cr := r.contextLocked(ev.ContextID)
		cr.Steps = append(cr.Steps, StepRecord{ID: ev.Step, StartedAt: ev.Timestamp})
	case EventStepCompleted, EventStepFailed:
		cr := r.contextLocked(ev.ContextID)
		rec := lastStep(cr, ev.Step)
		if rec == nil {
			cr.Steps = append(cr.Steps, StepRecord{ID: ev.Step})
			rec = &cr.Steps[len(cr.Steps)-1]
		}
		rec.Severity = ev.Severity
		rec.Error = ev.Error
		if !rec.StartedAt.IsZero() {
			rec.Duration = ev.Timestamp.Sub(rec.StartedAt)
		}
	case EventStepSkipped:
		cr := r.contextLocked(ev.ContextID)
		cr.Steps = append(cr.Steps, StepRecord{ID: ev.Step, Skipped: true})
	case EventStepRolledBack:
		cr := r.contextLocked(ev.ContextID)
		cr.RolledBack = append(cr.RolledBack, ev.Step)
	case EventRollbackFailed:
		cr := r.contextLocked(ev.ContextID)
		cr.RollbackFailures = append(cr.RollbackFailures, fmt.Sprintf("%s: %s", ev.Step, ev.Error))
	case EventRunCompleted, EventRunFailed, EventContextFinished:
		cr := r.contextLocked(ev.ContextID)
		cr.Severity = ev.Severity
		if cr.Severity == "" {
			cr.Severity = status.OK.String()
		}
		cr.Error = ev.Error
	}
}

// Finish records the overall outcome of the run.
func (r *Report) Finish(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FinishedAt = time.Now()
	r.Duration = r.FinishedAt.Sub(r.StartedAt)
	st := status.FromError(err)
	r.Severity = severityOf(st)
	r.Error = errorText(st)
}

// Context returns the report for contextID, or nil.
func (r *Report) Context(contextID string) *ContextReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cr := range r.Contexts {
		if cr.ContextID == contextID {
			return cr
		}
	}
	return nil
}

// MarshalJSON encodes the report under its lock.
func (r *Report) MarshalJSON() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	type plain struct {
		StepperID  string           `json:"stepper_id"`
		StepGroup  string           `json:"step_group"`
		StartedAt  time.Time        `json:"started_at"`
		FinishedAt time.Time        `json:"finished_at,omitempty"`
		Duration   time.Duration    `json:"duration"`
		Severity   string           `json:"severity"`
		Error      string           `json:"error,omitempty"`
		Contexts   []*ContextReport `json:"contexts"`
	}
	return json.Marshal(plain{
		StepperID:  r.StepperID,
		StepGroup:  r.StepGroup,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Duration:   r.Duration,
		Severity:   r.Severity,
		Error:      r.Error,
		Contexts:   r.Contexts,
	})
}

// WriteReport writes the report as indented JSON to path atomically: the
// data goes to a temp file in the same directory that is then renamed.
func (r *Report) WriteReport(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling run report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory %q: %w", dir, err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing temp report file %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("renaming temp report file to %q: %w", path, err)
	}
	return nil
}

// LoadReport reads a report written by WriteReport.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run report %q: %w", path, err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing run report %q: %w", path, err)
	}
	return &r, nil
}

func (r *Report) contextLocked(contextID string) *ContextReport {
	for _, cr := range r.Contexts {
		if cr.ContextID == contextID {
			return cr
		}
	}
	cr := &ContextReport{ContextID: contextID, Steps: []StepRecord{}}
	r.Contexts = append(r.Contexts, cr)
	return cr
}

func lastStep(cr *ContextReport, id string) *StepRecord {
	for i := len(cr.Steps) - 1; i >= 0; i-- {
		if cr.Steps[i].ID == id {
			return &cr.Steps[i]
		}
	}
	return nil
}
