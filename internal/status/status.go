// Package status provides the severity-tagged outcome type shared by the
// stepper engine, its steps and the callback join primitive.
//
// A *Status implements error so steps can return one directly from Execute.
// Severity decides how the engine treats it:
//
//	OK              dropped
//	Info, Warning   accumulated, surfaced at the end of the run
//	Error, Cancel   fatal, triggers rollback
//
// Any other error returned by a step is classified by FromError.
package status

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Severity is the ordered outcome class of a Status. Higher values are more
// severe, so the severity of a multi-status is the maximum of its children.
type Severity int

const (
	OK Severity = iota
	Info
	Warning
	Error
	Cancel
)

var severityNames = [...]string{
	OK:      "ok",
	Info:    "info",
	Warning: "warning",
	Error:   "error",
	Cancel:  "cancel",
}

// String returns the lower-case name of the severity.
func (s Severity) String() string {
	if s < OK || int(s) >= len(severityNames) {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// IsFatal reports whether the severity aborts a run (Error or Cancel).
func (s Severity) IsFatal() bool { return s >= Error }

// IsAccumulated reports whether the severity is collected and surfaced at
// the end of a run without aborting it (Info or Warning).
func (s Severity) IsAccumulated() bool { return s == Info || s == Warning }

// ParseSeverity converts a severity name back into a Severity.
func ParseSeverity(name string) (Severity, error) {
	for i, n := range severityNames {
		if strings.EqualFold(n, name) {
			return Severity(i), nil
		}
	}
	return OK, fmt.Errorf("unknown severity %q", name)
}

// Status is a severity-tagged outcome with an optional cause and optional
// children. A Status with children is a multi-status.
type Status struct {
	Severity Severity
	Message  string
	Cause    error
	Children []*Status
}

// New returns a Status with the given severity and message.
func New(sev Severity, msg string) *Status {
	return &Status{Severity: sev, Message: msg}
}

// Newf is New with fmt.Sprintf formatting.
func Newf(sev Severity, format string, args ...any) *Status {
	return &Status{Severity: sev, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns a Status carrying cause.
func Wrap(sev Severity, cause error, msg string) *Status {
	return &Status{Severity: sev, Message: msg, Cause: cause}
}

// Errorf returns an Error-severity Status. As with fmt.Errorf, a %w verb
// records the wrapped error as the cause.
func Errorf(format string, args ...any) *Status {
	err := fmt.Errorf(format, args...)
	return &Status{Severity: Error, Message: err.Error(), Cause: errors.Unwrap(err)}
}

// OKStatus returns a fresh OK status.
func OKStatus() *Status { return &Status{Severity: OK, Message: "ok"} }

// IsMulti reports whether s carries child statuses.
func (s *Status) IsMulti() bool { return s != nil && len(s.Children) > 0 }

// IsOK reports whether s is nil or has OK severity.
func (s *Status) IsOK() bool { return s == nil || s.Severity == OK }

// Error implements error. Multi-statuses render their children after the
// message, separated by "; ".
func (s *Status) Error() string {
	if s == nil {
		return "<nil status>"
	}
	var b strings.Builder
	b.WriteString(s.Severity.String())
	if s.Message != "" {
		b.WriteString(": ")
		b.WriteString(s.Message)
	}
	if s.Cause != nil && !strings.Contains(s.Message, s.Cause.Error()) {
		b.WriteString(": ")
		b.WriteString(s.Cause.Error())
	}
	if len(s.Children) > 0 {
		b.WriteString(" [")
		for i, c := range s.Children {
			if i > 0 {
				b.WriteString("; ")
			}
			b.WriteString(c.Error())
		}
		b.WriteString("]")
	}
	return b.String()
}

// Unwrap exposes the cause and every child so errors.Is and errors.As
// search the whole status tree.
func (s *Status) Unwrap() []error {
	if s == nil {
		return nil
	}
	errs := make([]error, 0, len(s.Children)+1)
	if s.Cause != nil {
		errs = append(errs, s.Cause)
	}
	for _, c := range s.Children {
		errs = append(errs, c)
	}
	return errs
}

// Flatten returns the leaf statuses of s in depth-first order. A status
// without children is its own single leaf.
func (s *Status) Flatten() []*Status {
	if s == nil {
		return nil
	}
	if len(s.Children) == 0 {
		return []*Status{s}
	}
	var out []*Status
	for _, c := range s.Children {
		out = append(out, c.Flatten()...)
	}
	return out
}

// Merge builds a multi-status from statuses. Nil entries are skipped. The
// severity of the result is the maximum child severity; with no children
// Merge returns an OK status.
func Merge(msg string, statuses ...*Status) *Status {
	out := &Status{Severity: OK, Message: msg}
	for _, st := range statuses {
		if st == nil {
			continue
		}
		out.Children = append(out.Children, st)
		if st.Severity > out.Severity {
			out.Severity = st.Severity
		}
	}
	return out
}

// Combine collapses an accumulated status list into the single outcome the
// engine reports: nil for an empty list, the status itself for one entry,
// and a multi-status otherwise.
func Combine(msg string, statuses []*Status) *Status {
	switch len(statuses) {
	case 0:
		return nil
	case 1:
		return statuses[0]
	default:
		return Merge(msg, statuses...)
	}
}

// FromError classifies err as a Status. FromError(nil) returns nil.
//
// The first *Status in the chain is returned as-is unless another branch of
// the tree is worse: a joined plain error still makes the whole error an
// Error, and context cancellation makes it Cancel. Such trees are wrapped at
// their worst severity so errors.Is and errors.As still reach every branch.
func FromError(err error) *Status {
	if err == nil {
		return nil
	}
	var st *Status
	if !errors.As(err, &st) {
		if isCancellation(err) {
			return Wrap(Cancel, err, "operation cancelled")
		}
		return Wrap(Error, err, err.Error())
	}
	if sev := worstSeverity(err); sev > st.Severity {
		return Wrap(sev, err, err.Error())
	}
	return st
}

// worstSeverity walks the error tree. A *Status decides its own branch; any
// other leaf is Error, or Cancel for context cancellation.
func worstSeverity(err error) Severity {
	if st, ok := err.(*Status); ok {
		return st.Severity
	}
	switch x := err.(type) {
	case interface{ Unwrap() []error }:
		worst, seen := OK, false
		for _, e := range x.Unwrap() {
			if e == nil {
				continue
			}
			seen = true
			worst = max(worst, worstSeverity(e))
		}
		if seen {
			return worst
		}
	case interface{ Unwrap() error }:
		if inner := x.Unwrap(); inner != nil {
			return worstSeverity(inner)
		}
	}
	if isCancellation(err) {
		return Cancel
	}
	return Error
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
