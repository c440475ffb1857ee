package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/AbdelazizMoustafa10m/stepper/internal/status"
	"github.com/AbdelazizMoustafa10m/stepper/internal/stepper"
)

// ValidationSeverity indicates whether a validation issue is an error or warning.
type ValidationSeverity string

const (
	// SeverityError indicates a fatal validation issue; the configuration is unusable.
	SeverityError ValidationSeverity = "error"
	// SeverityWarning indicates an informational validation issue; the configuration works
	// but may have problems.
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationIssue represents a single validation finding.
type ValidationIssue struct {
	Severity ValidationSeverity
	Field    string // dotted path, e.g., "steps.flash.command"
	Message  string
}

// ValidationResult holds all validation findings.
type ValidationResult struct {
	Issues []ValidationIssue
}

// HasErrors returns true if any issue has error severity.
func (vr *ValidationResult) HasErrors() bool {
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasWarnings returns true if any issue has warning severity.
func (vr *ValidationResult) HasWarnings() bool {
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// Errors returns only error-severity issues.
func (vr *ValidationResult) Errors() []ValidationIssue {
	var errs []ValidationIssue
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityError {
			errs = append(errs, issue)
		}
	}
	return errs
}

// Warnings returns only warning-severity issues.
func (vr *ValidationResult) Warnings() []ValidationIssue {
	var warns []ValidationIssue
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityWarning {
			warns = append(warns, issue)
		}
	}
	return warns
}

var knownStepTypes = map[string]bool{
	StepTypeExec:     true,
	StepTypeDelay:    true,
	StepTypeSet:      true,
	StepTypeReport:   true,
	StepTypeParallel: true,
}

// Validate checks the configuration for correctness and completeness.
// It performs structural validation, reference checks, and unknown key detection.
//
// Parameters:
//   - cfg: the configuration to validate
//   - meta: TOML metadata from BurntSushi/toml (may be nil if no file was loaded)
//
// Returns validation results. Check HasErrors() to determine if the config is usable.
// Group cycles and dependency ordering are checked later by ValidateRegistry,
// once the registry has been built.
func Validate(cfg *Config, meta *toml.MetaData) *ValidationResult {
	vr := &ValidationResult{}

	if cfg == nil {
		addError(vr, "", "configuration is nil")
		return vr
	}

	validateEngine(vr, cfg)
	validateContexts(vr, cfg.Contexts)
	validateSteps(vr, cfg.Steps)
	validateGroups(vr, cfg)
	validateUnknownKeys(vr, meta)

	return vr
}

// validateEngine checks the [engine] section.
func validateEngine(vr *ValidationResult, cfg *Config) {
	e := &cfg.Engine

	// Error: default_group must name a defined group.
	if e.DefaultGroup != "" {
		if _, ok := cfg.Groups[e.DefaultGroup]; !ok {
			addError(vr, "engine.default_group",
				fmt.Sprintf("references undefined group %q", e.DefaultGroup))
		}
	}

	// Error: context selectors must be valid glob patterns.
	for i, pattern := range e.Contexts {
		if !doublestar.ValidatePattern(pattern) {
			addError(vr, fmt.Sprintf("engine.contexts[%d]", i),
				fmt.Sprintf("invalid glob pattern %q", pattern))
		}
	}
}

// validateContexts checks all [contexts.*] sections.
func validateContexts(vr *ValidationResult, contexts map[string]ContextConfig) {
	if len(contexts) == 0 {
		addWarning(vr, "contexts", "no contexts defined; runs use the implicit \"local\" context")
		return
	}
	for _, id := range sortedIDs(contexts) {
		for name := range contexts[id].Vars {
			if name == "" || strings.ContainsAny(name, "= ") {
				addError(vr, "contexts."+id+".vars",
					fmt.Sprintf("invalid variable name %q", name))
			}
		}
	}
}

// validateSteps checks all [steps.*] sections.
func validateSteps(vr *ValidationResult, steps map[string]StepConfig) {
	for _, id := range sortedIDs(steps) {
		s := steps[id]
		prefix := "steps." + id

		// Error: type must be a built-in step type.
		if !knownStepTypes[s.Type] {
			addError(vr, prefix+".type",
				fmt.Sprintf("unrecognized type %q; must be one of: %s", s.Type, strings.Join(StepTypes, ", ")))
		}

		// Error: work is a positive estimate or -1 for unknown.
		if s.Work < stepper.UnknownWork {
			addError(vr, prefix+".work", fmt.Sprintf("must be >= %d, got %d", stepper.UnknownWork, s.Work))
		}

		switch s.Type {
		case StepTypeExec:
			if strings.TrimSpace(s.Command) == "" {
				addError(vr, prefix+".command", "must not be empty")
			}
			if s.Timeout != "" {
				if d, err := time.ParseDuration(s.Timeout); err != nil || d <= 0 {
					addError(vr, prefix+".timeout",
						fmt.Sprintf("invalid duration %q", s.Timeout))
				}
			}
		case StepTypeDelay:
			if d, err := time.ParseDuration(s.Duration); err != nil || d < 0 {
				addError(vr, prefix+".duration",
					fmt.Sprintf("invalid duration %q", s.Duration))
			}
		case StepTypeSet:
			if len(s.Values) == 0 {
				addWarning(vr, prefix+".values", "no values to set")
			}
		case StepTypeReport:
			if _, err := status.ParseSeverity(s.Severity); err != nil {
				addError(vr, prefix+".severity", err.Error())
			}
		case StepTypeParallel:
			if len(s.Commands) == 0 {
				addError(vr, prefix+".commands", "must not be empty")
			}
			for i, cmd := range s.Commands {
				if strings.TrimSpace(cmd) == "" {
					addError(vr, fmt.Sprintf("%s.commands[%d]", prefix, i), "must not be an empty string")
				}
			}
			if s.Limit < 0 {
				addError(vr, prefix+".limit", fmt.Sprintf("must be >= 0, got %d", s.Limit))
			}
		}

		// Error: step-level dependencies must name defined steps.
		for i, dep := range s.Dependencies {
			if _, ok := steps[stepper.DependencyStepID(dep)]; !ok {
				addError(vr, fmt.Sprintf("%s.dependencies[%d]", prefix, i),
					fmt.Sprintf("references undefined step %q", dep))
			}
		}
	}
}

// validateGroups checks all [groups.*] sections and their entries.
func validateGroups(vr *ValidationResult, cfg *Config) {
	for _, id := range sortedIDs(cfg.Groups) {
		g := cfg.Groups[id]
		prefix := "groups." + id

		if g.Iterations < 0 {
			addError(vr, prefix+".iterations", fmt.Sprintf("must be >= 0, got %d", g.Iterations))
		}
		if g.Iterations > 0 && g.IterateOver != "" {
			addError(vr, prefix, "iterations and iterate_over are mutually exclusive")
		}
		if len(g.Entries) == 0 {
			addWarning(vr, prefix+".entries", "group has no entries")
		}

		for i, e := range g.Entries {
			field := fmt.Sprintf("%s.entries[%d]", prefix, i)
			switch {
			case e.Step != "" && e.Group != "":
				addError(vr, field, "step and group are mutually exclusive")
			case e.Step == "" && e.Group == "":
				addError(vr, field, "one of step or group must be set")
			case e.Step != "":
				if _, ok := cfg.Steps[e.Step]; !ok {
					addError(vr, field+".step", fmt.Sprintf("references undefined step %q", e.Step))
				}
			default:
				if _, ok := cfg.Groups[e.Group]; !ok {
					addError(vr, field+".group", fmt.Sprintf("references undefined group %q", e.Group))
				}
			}
			for j, dep := range e.Dependencies {
				if _, ok := cfg.Steps[stepper.DependencyStepID(dep)]; !ok {
					addError(vr, fmt.Sprintf("%s.dependencies[%d]", field, j),
						fmt.Sprintf("references undefined step %q", dep))
				}
			}
		}
	}
}

// validateUnknownKeys checks for TOML keys that did not map to any config struct field.
func validateUnknownKeys(vr *ValidationResult, meta *toml.MetaData) {
	if meta == nil {
		return
	}

	for _, key := range meta.Undecoded() {
		path := strings.Join(key, ".")
		addWarning(vr, path, "unknown configuration key")
	}
}

// addError appends an error-severity issue to the validation result.
func addError(vr *ValidationResult, field, message string) {
	vr.Issues = append(vr.Issues, ValidationIssue{
		Severity: SeverityError,
		Field:    field,
		Message:  message,
	})
}

// addWarning appends a warning-severity issue to the validation result.
func addWarning(vr *ValidationResult, field, message string) {
	vr.Issues = append(vr.Issues, ValidationIssue{
		Severity: SeverityWarning,
		Field:    field,
		Message:  message,
	})
}

func sortedIDs[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
