package config

// Config is the top-level configuration structure mapping to stepper.toml.
type Config struct {
	Engine   EngineConfig             `toml:"engine"`
	Contexts map[string]ContextConfig `toml:"contexts"`
	Steps    map[string]StepConfig    `toml:"steps"`
	Groups   map[string]GroupConfig   `toml:"groups"`
}

// EngineConfig maps to the [engine] section in stepper.toml.
type EngineConfig struct {
	DefaultGroup    string   `toml:"default_group"`
	ContinueOnError bool     `toml:"continue_on_error"`
	ReportFile      string   `toml:"report_file"`
	Contexts        []string `toml:"contexts"` // glob patterns selecting context ids
}

// ContextConfig maps to a [contexts.<id>] section in stepper.toml.
type ContextConfig struct {
	Name string            `toml:"name"`
	Vars map[string]string `toml:"vars"`
}

// Built-in step types accepted in [steps.<id>].type.
const (
	StepTypeExec     = "exec"
	StepTypeDelay    = "delay"
	StepTypeSet      = "set"
	StepTypeReport   = "report"
	StepTypeParallel = "parallel"
)

// StepTypes lists the built-in step types in display order.
var StepTypes = []string{StepTypeExec, StepTypeDelay, StepTypeSet, StepTypeReport, StepTypeParallel}

// StepConfig maps to a [steps.<id>] section in stepper.toml. Only the keys
// relevant to Type are read.
type StepConfig struct {
	Type         string   `toml:"type"`
	Label        string   `toml:"label"`
	Dependencies []string `toml:"dependencies"`
	Work         int      `toml:"work"`

	// exec
	Command  string `toml:"command"`
	Rollback string `toml:"rollback"`
	WarnOnly bool   `toml:"warn_only"`
	Timeout  string `toml:"timeout"`
	Dir      string `toml:"dir"`
	// PublishJSON shares the fields of the last JSON object the command
	// prints as run-wide values.
	PublishJSON bool `toml:"publish_json"`

	// delay
	Duration string `toml:"duration"`

	// set
	Values map[string]any `toml:"values"`

	// report
	Severity string `toml:"severity"`
	Message  string `toml:"message"`

	// parallel
	Commands []string `toml:"commands"`
	Limit    int      `toml:"limit"`
}

// GroupConfig maps to a [groups.<id>] section in stepper.toml.
type GroupConfig struct {
	Label       string        `toml:"label"`
	Description string        `toml:"description"`
	Iterations  int           `toml:"iterations"`
	IterateOver string        `toml:"iterate_over"`
	Entries     []EntryConfig `toml:"entries"`
}

// EntryConfig maps to one [[groups.<id>.entries]] table. Exactly one of
// Step and Group must be set.
type EntryConfig struct {
	Step         string   `toml:"step"`
	Group        string   `toml:"group"`
	SecondaryID  string   `toml:"secondary_id"`
	Dependencies []string `toml:"dependencies"`
	Disabled     bool     `toml:"disabled"`
}
