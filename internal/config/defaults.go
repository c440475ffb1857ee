package config

// DefaultReportFile is where run reports are written when report output is
// requested without an explicit path.
const DefaultReportFile = ".stepper/last-run.json"

// NewDefaults returns a Config populated with all default values. Runs stop
// at the first failing context unless continue_on_error is set.
func NewDefaults() *Config {
	return &Config{
		Engine:   EngineConfig{},
		Contexts: map[string]ContextConfig{},
		Steps:    map[string]StepConfig{},
		Groups:   map[string]GroupConfig{},
	}
}
