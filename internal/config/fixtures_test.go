package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizMoustafa10m/stepper/internal/props"
	"github.com/AbdelazizMoustafa10m/stepper/internal/stepper"
)

// sampleTOML is a complete stepper.toml fixture that passes Validate with no
// errors and builds into a registry.
const sampleTOML = `
[engine]
default_group = "provision"
continue_on_error = true
report_file = "out/report.json"
contexts = ["rack-a-*"]

[contexts.rack-a-1]
name = "Rack A / 1"

[contexts.rack-a-1.vars]
HOST = "10.0.0.1"

[contexts.rack-a-2]
name = "Rack A / 2"

[contexts.rack-b-1]

[steps.seed]
type = "set"
label = "Seed images"

[steps.seed.values]
images = ["boot.img", "system.img"]

[steps.flash]
type = "exec"
label = "Flash"
command = "echo flash"
rollback = "echo unflash"
dependencies = ["seed"]
timeout = "30s"
work = 10

[steps.wait]
type = "delay"
duration = "10ms"

[steps.checks]
type = "parallel"
commands = ["true", "true"]
limit = 1

[steps.note]
type = "report"
severity = "warning"
message = "done"

[groups.flash-all]
label = "Flash all"
iterate_over = "images"

[[groups.flash-all.entries]]
step = "flash"

[groups.provision]
label = "Provision"
description = "Seed then flash."

[[groups.provision.entries]]
step = "seed"

[[groups.provision.entries]]
group = "flash-all"

[[groups.provision.entries]]
step = "wait"
secondary_id = "settle"
dependencies = ["flash##after"]

[[groups.provision.entries]]
step = "checks"
disabled = true

[[groups.provision.entries]]
step = "note"
`

func loadSample(t *testing.T) (*Config, toml.MetaData) {
	t.Helper()
	cfg, md, err := LoadFromString(sampleTOML)
	require.NoError(t, err)
	return cfg, md
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

type testStep struct {
	id   string
	deps []string
	work int
}

func (s *testStep) ID() string                                          { return s.id }
func (s *testStep) Label() string                                       { return s.id }
func (s *testStep) Dependencies() []string                              { return s.deps }
func (s *testStep) TotalWork(stepper.StepContext, *props.Container) int { return s.work }
func (s *testStep) Execute(context.Context, stepper.Invocation) error   { return nil }

func testFactory(id string, sc StepConfig) (stepper.Step, error) {
	return &testStep{id: id, deps: sc.Dependencies, work: sc.Work}, nil
}
