package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizMoustafa10m/stepper/internal/config"
)

// inInitDir resets the command tree and the init flag globals, then changes
// into a fresh directory named name.
func inInitDir(t *testing.T, name string) string {
	t.Helper()
	resetRootCmd(t)
	initFlagName = ""
	initFlagForce = false
	initFlagContexts = nil
	dir := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, os.Chdir(dir))
	return dir
}

func loadRendered(t *testing.T, dir string) *config.Config {
	t.Helper()
	cfg, _, err := config.LoadFromFile(filepath.Join(dir, config.ConfigFileName))
	require.NoError(t, err)
	return cfg
}

func TestInitCmd_Flags(t *testing.T) {
	for _, name := range []string{"name", "force", "context"} {
		assert.NotNil(t, initCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "n", initCmd.Flags().Lookup("name").Shorthand)
	assert.Equal(t, "c", initCmd.Flags().Lookup("context").Shorthand)
}

func TestInitCmd_DefaultTemplate(t *testing.T) {
	dir := inInitDir(t, "widgets")

	_, stderr, code := captureOutput(t, "init")
	require.Equal(t, ExitOK, code, stderr)
	assert.Contains(t, stderr, `Initialized "widgets" from template "basic"`)
	assert.Contains(t, stderr, "stepper.toml")
	assert.Contains(t, stderr, "stepper config validate")

	cfg := loadRendered(t, dir)
	assert.Equal(t, "main", cfg.Engine.DefaultGroup)
	assert.Equal(t, "widgets", cfg.Groups["main"].Label)
	assert.Contains(t, cfg.Contexts, "local")
}

func TestInitCmd_FleetWithContexts(t *testing.T) {
	dir := inInitDir(t, "racks")

	_, stderr, code := captureOutput(t, "init", "fleet", "-c", "rack-a-1", "-c", "rack-a-2", "--name", "Rack A")
	require.Equal(t, ExitOK, code, stderr)

	cfg := loadRendered(t, dir)
	assert.Len(t, cfg.Contexts, 2)
	assert.Equal(t, "rack-a-2", cfg.Contexts["rack-a-2"].Vars["HOST"])
	assert.Equal(t, "Rack A", cfg.Groups["provision"].Label)
	assert.Equal(t, "images", cfg.Groups["flash-all"].IterateOver)
}

func TestInitCmd_RenderedTemplatesValidate(t *testing.T) {
	names, err := config.ListTemplates()
	require.NoError(t, err)
	require.NotEmpty(t, names)

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			dir := inInitDir(t, "proj")
			_, stderr, code := captureOutput(t, "init", name)
			require.Equal(t, ExitOK, code, stderr)

			var raw map[string]any
			_, err := toml.DecodeFile(filepath.Join(dir, config.ConfigFileName), &raw)
			require.NoError(t, err, "rendered file must be valid TOML")

			resolved, meta, err := loadAndResolveConfig(nil)
			require.NoError(t, err)
			vr := validateAll(resolved, meta)
			assert.False(t, vr.HasErrors(), "issues: %v", vr.Errors())
			assert.Empty(t, vr.Warnings())
		})
	}
}

func TestInitCmd_ExistingFileNeedsForce(t *testing.T) {
	dir := inInitDir(t, "proj")
	path := filepath.Join(dir, config.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("# mine\n"), 0o644))

	_, stderr, code := captureOutput(t, "init")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "--force")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# mine\n", string(data))
}

func TestInitCmd_Force(t *testing.T) {
	dir := inInitDir(t, "proj")
	path := filepath.Join(dir, config.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("# mine\n"), 0o644))

	_, _, code := captureOutput(t, "init", "--force")
	assert.Equal(t, ExitOK, code)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[groups.main]")
}

func TestInitCmd_UnknownTemplate(t *testing.T) {
	inInitDir(t, "proj")

	_, stderr, code := captureOutput(t, "init", "nope")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, `template "nope" not found`)
	assert.Contains(t, stderr, "basic")
	assert.Contains(t, stderr, "fleet")
}

func TestInitCmd_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "control char in name", args: []string{"init", "--name", "a\x00b"}, want: "invalid project name"},
		{name: "dotted context", args: []string{"init", "-c", "a.b"}, want: `invalid context id "a.b"`},
		{name: "spaced context", args: []string{"init", "-c", "a b"}, want: "invalid context id"},
		{name: "too many args", args: []string{"init", "basic", "fleet"}, want: "accepts at most 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := inInitDir(t, "proj")
			_, stderr, code := captureOutput(t, tt.args...)
			assert.Equal(t, ExitError, code)
			assert.Contains(t, stderr, tt.want)
			assert.NoFileExists(t, filepath.Join(dir, config.ConfigFileName))
		})
	}
}

func TestInitCmd_RespectsDirFlag(t *testing.T) {
	inInitDir(t, "elsewhere")
	target := t.TempDir()

	_, _, code := captureOutput(t, "--dir", target, "init")
	assert.Equal(t, ExitOK, code)
	assert.FileExists(t, filepath.Join(target, config.ConfigFileName))
}

func TestInitCmd_TemplateCompletion(t *testing.T) {
	names, directive := initCmd.ValidArgsFunction(initCmd, nil, "")
	assert.ElementsMatch(t, []string{"basic", "fleet"}, names)
	assert.NotZero(t, directive)
}

func TestInitCmd_LongListsTemplates(t *testing.T) {
	assert.Contains(t, initCmd.Long, "Templates:")
	assert.Contains(t, initCmd.Long, "basic   one local context")
	assert.Contains(t, initCmd.Long, "fleet   several contexts")
}

func TestInitCmd_QuotedProjectName(t *testing.T) {
	dir := inInitDir(t, "proj")
	_, stderr, code := captureOutput(t, "init", "--name", `say "hi"`)
	require.Equal(t, ExitOK, code, stderr)

	var cfg config.Config
	_, err := toml.DecodeFile(filepath.Join(dir, config.ConfigFileName), &cfg)
	require.NoError(t, err)
	assert.Equal(t, `say "hi"`, cfg.Groups["main"].Label)
}
