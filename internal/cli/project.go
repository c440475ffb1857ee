package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/AbdelazizMoustafa10m/stepper/internal/config"
	"github.com/AbdelazizMoustafa10m/stepper/internal/logging"
	"github.com/AbdelazizMoustafa10m/stepper/internal/stepper"
	"github.com/AbdelazizMoustafa10m/stepper/internal/steps"
)

// loadAndResolveConfig loads and resolves the configuration from all sources
// (file, env, CLI flags). It returns the resolved config, the TOML metadata
// (nil when no file was found), and any loading error.
//
// When flagConfig is set, that path is used directly. Otherwise,
// config.FindConfigFile searches upward from the current directory.
func loadAndResolveConfig(overrides *config.CLIOverrides) (*config.ResolvedConfig, *toml.MetaData, error) {
	var (
		fileCfg *config.Config
		meta    *toml.MetaData
		cfgPath string
	)

	if flagConfig != "" {
		cfgPath = flagConfig
	} else {
		found, err := config.FindConfigFile(".")
		if err != nil {
			return nil, nil, fmt.Errorf("finding config file: %w", err)
		}
		cfgPath = found
	}

	if cfgPath != "" {
		fc, md, err := config.LoadFromFile(cfgPath)
		if err != nil {
			return nil, nil, fmt.Errorf("loading config: %w", err)
		}
		fileCfg = fc
		meta = &md
	}

	resolved := config.Resolve(config.NewDefaults(), fileCfg, os.LookupEnv, overrides)
	resolved.Path = cfgPath
	return resolved, meta, nil
}

// project is a loaded, validated configuration together with the registry
// built from it.
type project struct {
	resolved *config.ResolvedConfig
	registry *stepper.Registry
	baseDir  string
	warnings []config.ValidationIssue
}

func (p *project) config() *config.Config { return p.resolved.Config }

// baseDirFor returns the directory relative step paths resolve against: the
// directory holding the config file, or the working directory.
func baseDirFor(rc *config.ResolvedConfig) (string, error) {
	if rc.Path == "" {
		return os.Getwd()
	}
	abs, err := filepath.Abs(rc.Path)
	if err != nil {
		return "", err
	}
	return filepath.Dir(abs), nil
}

func buildRegistry(rc *config.ResolvedConfig) (*stepper.Registry, string, error) {
	baseDir, err := baseDirFor(rc)
	if err != nil {
		return nil, "", fmt.Errorf("resolving base directory: %w", err)
	}
	factory := steps.Factory(
		steps.WithBaseDir(baseDir),
		steps.WithLogger(logging.New("steps")),
	)
	reg, err := config.BuildRegistry(rc.Config, factory)
	if err != nil {
		return nil, "", err
	}
	return reg, baseDir, nil
}

// validateAll runs the static configuration checks and, when they pass, the
// structural checks of every group.
func validateAll(rc *config.ResolvedConfig, meta *toml.MetaData) *config.ValidationResult {
	result := config.Validate(rc.Config, meta)
	if result.HasErrors() {
		return result
	}
	reg, _, err := buildRegistry(rc)
	if err != nil {
		result.Issues = append(result.Issues, config.ValidationIssue{
			Severity: config.SeverityError,
			Field:    "groups",
			Message:  err.Error(),
		})
		return result
	}
	contexts, err := config.BuildContexts(rc.Config, nil)
	if err != nil {
		result.Issues = append(result.Issues, config.ValidationIssue{
			Severity: config.SeverityError,
			Field:    "contexts",
			Message:  err.Error(),
		})
		return result
	}
	structural := config.ValidateRegistry(reg, contexts[0])
	result.Issues = append(result.Issues, structural.Issues...)
	return result
}

// loadProject resolves the configuration with overrides, rejects it when it
// has errors, and builds the step registry.
func loadProject(overrides *config.CLIOverrides) (*project, error) {
	resolved, meta, err := loadAndResolveConfig(overrides)
	if err != nil {
		return nil, err
	}
	vr := config.Validate(resolved.Config, meta)
	if vr.HasErrors() {
		return nil, validationError(vr)
	}
	reg, baseDir, err := buildRegistry(resolved)
	if err != nil {
		return nil, err
	}
	return &project{
		resolved: resolved,
		registry: reg,
		baseDir:  baseDir,
		warnings: vr.Warnings(),
	}, nil
}

// validationError summarizes the errors in vr as a single error.
func validationError(vr *config.ValidationResult) error {
	errs := vr.Errors()
	msg := fmt.Sprintf("configuration has %d error(s)", len(errs))
	for _, issue := range errs {
		msg += fmt.Sprintf("\n  [%s] %s", issue.Field, issue.Message)
	}
	return errors.New(msg)
}

// resolveGroupID picks the group to run: the argument, else the configured
// default group, else the only registered group.
func (p *project) resolveGroupID(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		if !p.registry.HasGroup(args[0]) {
			return "", fmt.Errorf("unknown group %q (available: %v)", args[0], p.registry.Groups())
		}
		return args[0], nil
	}
	if id := p.config().Engine.DefaultGroup; id != "" {
		return id, nil
	}
	groups := p.registry.Groups()
	switch len(groups) {
	case 0:
		return "", fmt.Errorf("no groups configured")
	case 1:
		return groups[0], nil
	default:
		return "", fmt.Errorf("no group given and no engine.default_group set (available: %v)", groups)
	}
}
