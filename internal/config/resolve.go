package config

import (
	"strconv"
	"strings"
)

// ConfigSource identifies where a configuration value came from.
type ConfigSource string

const (
	// SourceDefault indicates the value came from built-in defaults.
	SourceDefault ConfigSource = "default"
	// SourceFile indicates the value came from the stepper.toml config file.
	SourceFile ConfigSource = "file"
	// SourceEnv indicates the value came from an environment variable.
	SourceEnv ConfigSource = "env"
	// SourceCLI indicates the value came from a CLI flag.
	SourceCLI ConfigSource = "cli"
)

// ResolvedConfig holds the fully-resolved configuration with source tracking.
// The Config field contains the merged values; Sources tracks where each came from.
type ResolvedConfig struct {
	Config  *Config
	Sources map[string]ConfigSource // key is dotted path, e.g., "engine.default_group"
	Path    string                  // path to the config file used (empty if none)
}

// CLIOverrides captures flag values that can override configuration.
// A nil field means "not set" (do not override).
type CLIOverrides struct {
	DefaultGroup    *string
	ContinueOnError *bool
	ReportFile      *string
	Contexts        []string
}

// EnvFunc is a function that looks up environment variables.
// Default implementation is os.LookupEnv. Injected for testability.
type EnvFunc func(key string) (string, bool)

// Resolve merges configuration from all sources in priority order:
// CLI flags > environment variables > config file > defaults.
//
// Parameters:
//   - defaults: built-in default config (from NewDefaults())
//   - fileConfig: parsed config from stepper.toml (nil if no file found)
//   - envFn: function to look up environment variables
//   - overrides: CLI flag values (nil fields mean "not set")
//
// Contexts, steps and groups come from the file only and are deep-copied.
func Resolve(defaults *Config, fileConfig *Config, envFn EnvFunc, overrides *CLIOverrides) *ResolvedConfig {
	rc := &ResolvedConfig{
		Config:  &Config{},
		Sources: make(map[string]ConfigSource),
	}

	if defaults == nil {
		defaults = &Config{}
	}
	if envFn == nil {
		envFn = func(string) (string, bool) { return "", false }
	}
	if overrides == nil {
		overrides = &CLIOverrides{}
	}

	// Layer 1: defaults.
	resolveEngineFromDefaults(rc, defaults)
	resolveTablesFrom(rc, defaults, SourceDefault)

	// Layer 2: file. Non-zero values override; tables merge by id.
	if fileConfig != nil {
		resolveEngineFromFile(rc, fileConfig)
		resolveTablesFrom(rc, fileConfig, SourceFile)
	}

	// Layer 3: environment.
	resolveFromEnv(rc, envFn)

	// Layer 4: CLI.
	resolveFromCLI(rc, overrides)

	return rc
}

// --- Layer 1: Defaults ---

func resolveEngineFromDefaults(rc *ResolvedConfig, defaults *Config) {
	e := &rc.Config.Engine
	d := &defaults.Engine

	setString(&e.DefaultGroup, d.DefaultGroup, "engine.default_group", SourceDefault, rc.Sources)
	setString(&e.ReportFile, d.ReportFile, "engine.report_file", SourceDefault, rc.Sources)
	e.ContinueOnError = d.ContinueOnError
	rc.Sources["engine.continue_on_error"] = SourceDefault
	e.Contexts = copyStrings(d.Contexts)
	rc.Sources["engine.contexts"] = SourceDefault
}

// --- Layer 2: File ---

func resolveEngineFromFile(rc *ResolvedConfig, file *Config) {
	e := &rc.Config.Engine
	f := &file.Engine

	mergeString(&e.DefaultGroup, f.DefaultGroup, "engine.default_group", SourceFile, rc.Sources)
	mergeString(&e.ReportFile, f.ReportFile, "engine.report_file", SourceFile, rc.Sources)
	if f.ContinueOnError {
		e.ContinueOnError = true
		rc.Sources["engine.continue_on_error"] = SourceFile
	}
	if len(f.Contexts) > 0 {
		e.Contexts = copyStrings(f.Contexts)
		rc.Sources["engine.contexts"] = SourceFile
	}
}

func resolveTablesFrom(rc *ResolvedConfig, src *Config, source ConfigSource) {
	if rc.Config.Contexts == nil {
		rc.Config.Contexts = make(map[string]ContextConfig)
	}
	if rc.Config.Steps == nil {
		rc.Config.Steps = make(map[string]StepConfig)
	}
	if rc.Config.Groups == nil {
		rc.Config.Groups = make(map[string]GroupConfig)
	}
	for id, c := range src.Contexts {
		rc.Config.Contexts[id] = copyContextConfig(c)
		rc.Sources["contexts."+id] = source
	}
	for id, s := range src.Steps {
		rc.Config.Steps[id] = copyStepConfig(s)
		rc.Sources["steps."+id] = source
	}
	for id, g := range src.Groups {
		rc.Config.Groups[id] = copyGroupConfig(g)
		rc.Sources["groups."+id] = source
	}
}

// --- Layer 3: Environment ---

// Environment variable mapping:
//
//	STEPPER_DEFAULT_GROUP      -> engine.default_group
//	STEPPER_CONTINUE_ON_ERROR  -> engine.continue_on_error (any strconv.ParseBool value)
//	STEPPER_REPORT_FILE        -> engine.report_file
//	STEPPER_CONTEXTS           -> engine.contexts (comma-separated globs)
func resolveFromEnv(rc *ResolvedConfig, envFn EnvFunc) {
	e := &rc.Config.Engine

	if val, ok := envFn("STEPPER_DEFAULT_GROUP"); ok {
		e.DefaultGroup = val
		rc.Sources["engine.default_group"] = SourceEnv
	}
	if val, ok := envFn("STEPPER_CONTINUE_ON_ERROR"); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
			e.ContinueOnError = b
			rc.Sources["engine.continue_on_error"] = SourceEnv
		}
	}
	if val, ok := envFn("STEPPER_REPORT_FILE"); ok {
		e.ReportFile = val
		rc.Sources["engine.report_file"] = SourceEnv
	}
	if val, ok := envFn("STEPPER_CONTEXTS"); ok {
		e.Contexts = splitList(val)
		rc.Sources["engine.contexts"] = SourceEnv
	}
}

// --- Layer 4: CLI overrides ---

func resolveFromCLI(rc *ResolvedConfig, overrides *CLIOverrides) {
	e := &rc.Config.Engine

	if overrides.DefaultGroup != nil {
		e.DefaultGroup = *overrides.DefaultGroup
		rc.Sources["engine.default_group"] = SourceCLI
	}
	if overrides.ContinueOnError != nil {
		e.ContinueOnError = *overrides.ContinueOnError
		rc.Sources["engine.continue_on_error"] = SourceCLI
	}
	if overrides.ReportFile != nil {
		e.ReportFile = *overrides.ReportFile
		rc.Sources["engine.report_file"] = SourceCLI
	}
	if len(overrides.Contexts) > 0 {
		e.Contexts = copyStrings(overrides.Contexts)
		rc.Sources["engine.contexts"] = SourceCLI
	}
}

// --- Helpers ---

// setString unconditionally sets the target to the given value and records the source.
func setString(target *string, value string, path string, source ConfigSource, sources map[string]ConfigSource) {
	*target = value
	sources[path] = source
}

// mergeString overwrites the target only if value is non-empty (non-zero string).
// For file-layer merging, an empty string in the file means "not set in file",
// so it does not override the default.
func mergeString(target *string, value string, path string, source ConfigSource, sources map[string]ConfigSource) {
	if value != "" {
		*target = value
		sources[path] = source
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func copyStrings(src []string) []string {
	if src == nil {
		return nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

func copyContextConfig(src ContextConfig) ContextConfig {
	c := ContextConfig{Name: src.Name}
	if src.Vars != nil {
		c.Vars = make(map[string]string, len(src.Vars))
		for k, v := range src.Vars {
			c.Vars[k] = v
		}
	}
	return c
}

func copyStepConfig(src StepConfig) StepConfig {
	s := src
	s.Dependencies = copyStrings(src.Dependencies)
	s.Commands = copyStrings(src.Commands)
	if src.Values != nil {
		s.Values = make(map[string]any, len(src.Values))
		for k, v := range src.Values {
			s.Values[k] = v
		}
	}
	return s
}

func copyGroupConfig(src GroupConfig) GroupConfig {
	g := src
	if src.Entries != nil {
		g.Entries = make([]EntryConfig, len(src.Entries))
		for i, e := range src.Entries {
			e.Dependencies = copyStrings(e.Dependencies)
			g.Entries[i] = e
		}
	}
	return g
}
