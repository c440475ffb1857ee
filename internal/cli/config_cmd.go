package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/stepper/internal/config"
)

// configCmd is the parent "config" namespace command. It has no action of its
// own -- it groups debug and validate subcommands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  "Inspect, validate, and debug stepper configuration.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// configDebugCmd implements "stepper config debug".
var configDebugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Show resolved configuration with source annotations",
	Long: `Display the fully-resolved configuration showing each value and
the source where it came from (cli flag, environment variable, config file, or default).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved, _, err := loadAndResolveConfig(nil)
		if err != nil {
			return err
		}
		printResolvedConfig(cmd, resolved)
		return nil
	},
}

// configValidateCmd implements "stepper config validate". Besides the static
// checks it builds the registry and walks every group the way a run would.
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and report issues",
	Long: `Check the configuration for errors and warnings. When the file itself
is valid, every group is also checked for undefined references, dependency
problems and cycles.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved, meta, err := loadAndResolveConfig(nil)
		if err != nil {
			return err
		}
		result := validateAll(resolved, meta)
		printValidationResult(cmd, result)
		if result.HasErrors() {
			return fmt.Errorf("configuration has %d error(s)", len(result.Errors()))
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configDebugCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

// ---- Lipgloss styles --------------------------------------------------------

// sourceStyle returns a lipgloss style for a given ConfigSource.
// When --no-color is active, lipgloss strips ANSI because the root
// PersistentPreRunE sets the color profile to Ascii.
func sourceStyle(src config.ConfigSource) lipgloss.Style {
	switch src {
	case config.SourceFile:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("12")) // bright blue
	case config.SourceEnv:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // bright yellow
	case config.SourceCLI:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9")) // bright red
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // bright green
	}
}

var (
	styleHeader    = lipgloss.NewStyle().Bold(true)
	styleSeparator = lipgloss.NewStyle()
	styleSection   = lipgloss.NewStyle().Bold(true)
	styleErrorLbl  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	styleWarnLbl   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	styleSuccess   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleDim       = lipgloss.NewStyle().Faint(true)
)

// printHeading writes a bold title underlined with "=".
func printHeading(out io.Writer, title string) {
	fmt.Fprintln(out, styleHeader.Render(title))
	fmt.Fprintln(out, styleSeparator.Render(strings.Repeat("=", len(title))))
	fmt.Fprintln(out)
}

// ---- printResolvedConfig ----------------------------------------------------

const fieldWidth = 20 // column width for field names

// printResolvedConfig writes the formatted resolved configuration to cmd's
// output writer (stdout by default).
func printResolvedConfig(cmd *cobra.Command, rc *config.ResolvedConfig) {
	out := cmd.OutOrStdout()
	printHeading(out, "Configuration Debug")

	if rc.Path != "" {
		fmt.Fprintf(out, "Config file: %s\n", rc.Path)
	} else {
		fmt.Fprintln(out, "Config file: none found")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, styleSection.Render("[engine]"))
	e := rc.Config.Engine
	printField(out, "default_group", fmtStr(e.DefaultGroup), rc.Sources["engine.default_group"])
	printField(out, "continue_on_error", fmt.Sprintf("%t", e.ContinueOnError), rc.Sources["engine.continue_on_error"])
	printField(out, "report_file", fmtStr(e.ReportFile), rc.Sources["engine.report_file"])
	printField(out, "contexts", fmtSlice(e.Contexts), rc.Sources["engine.contexts"])
	fmt.Fprintln(out)

	for _, id := range sortedKeys(rc.Config.Contexts) {
		c := rc.Config.Contexts[id]
		src := rc.Sources["contexts."+id]
		fmt.Fprintln(out, styleSection.Render(fmt.Sprintf("[contexts.%s]", id)))
		printField(out, "name", fmtStr(c.Name), src)
		for _, k := range sortedKeys(c.Vars) {
			printField(out, "vars."+k, fmtStr(c.Vars[k]), src)
		}
		fmt.Fprintln(out)
	}

	for _, id := range sortedKeys(rc.Config.Steps) {
		s := rc.Config.Steps[id]
		src := rc.Sources["steps."+id]
		fmt.Fprintln(out, styleSection.Render(fmt.Sprintf("[steps.%s]", id)))
		printField(out, "type", fmtStr(s.Type), src)
		if s.Label != "" {
			printField(out, "label", fmtStr(s.Label), src)
		}
		if len(s.Dependencies) > 0 {
			printField(out, "dependencies", fmtSlice(s.Dependencies), src)
		}
		for _, kv := range stepTypeFields(s) {
			printField(out, kv[0], kv[1], src)
		}
		fmt.Fprintln(out)
	}

	for _, id := range sortedKeys(rc.Config.Groups) {
		g := rc.Config.Groups[id]
		src := rc.Sources["groups."+id]
		fmt.Fprintln(out, styleSection.Render(fmt.Sprintf("[groups.%s]", id)))
		printField(out, "label", fmtStr(g.Label), src)
		if g.Iterations > 0 {
			printField(out, "iterations", fmt.Sprintf("%d", g.Iterations), src)
		}
		if g.IterateOver != "" {
			printField(out, "iterate_over", fmtStr(g.IterateOver), src)
		}
		entries := make([]string, 0, len(g.Entries))
		for _, en := range g.Entries {
			entries = append(entries, entryName(en))
		}
		printField(out, "entries", fmtSlice(entries), src)
		fmt.Fprintln(out)
	}
}

// stepTypeFields returns the type-specific keys of s worth showing.
func stepTypeFields(s config.StepConfig) [][2]string {
	var out [][2]string
	add := func(k, v string) { out = append(out, [2]string{k, v}) }
	switch s.Type {
	case config.StepTypeExec:
		add("command", fmtStr(s.Command))
		if s.Rollback != "" {
			add("rollback", fmtStr(s.Rollback))
		}
		if s.Timeout != "" {
			add("timeout", fmtStr(s.Timeout))
		}
		if s.WarnOnly {
			add("warn_only", "true")
		}
		if s.PublishJSON {
			add("publish_json", "true")
		}
	case config.StepTypeDelay:
		add("duration", fmtStr(s.Duration))
	case config.StepTypeSet:
		add("values", fmtSlice(sortedKeys(s.Values)))
	case config.StepTypeReport:
		add("severity", fmtStr(s.Severity))
		add("message", fmtStr(s.Message))
	case config.StepTypeParallel:
		add("commands", fmtSlice(s.Commands))
		add("limit", fmt.Sprintf("%d", s.Limit))
	}
	return out
}

// entryName renders a group entry the way the plan shows it.
func entryName(e config.EntryConfig) string {
	name := e.Step
	if e.Group != "" {
		name = "group:" + e.Group
	}
	if e.SecondaryID != "" {
		name += "#" + e.SecondaryID
	}
	if e.Disabled {
		name += " (disabled)"
	}
	return name
}

// printField writes a single key = value (source: ...) line.
func printField(out io.Writer, name, value string, src config.ConfigSource) {
	padded := fmt.Sprintf("  %-*s", fieldWidth, name)
	srcLabel := sourceStyle(src).Render(fmt.Sprintf("(source: %s)", src))
	fmt.Fprintf(out, "%s = %-40s %s\n", padded, value, srcLabel)
}

// fmtStr formats a string value for display (quoted).
func fmtStr(s string) string {
	return fmt.Sprintf("%q", s)
}

// fmtSlice formats a string slice for display.
func fmtSlice(ss []string) string {
	if len(ss) == 0 {
		return "[]"
	}
	quoted := make([]string, len(ss))
	for i, s := range ss {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ---- printValidationResult --------------------------------------------------

// printValidationResult writes the formatted validation report to cmd's
// output writer.
func printValidationResult(cmd *cobra.Command, result *config.ValidationResult) {
	out := cmd.OutOrStdout()
	printHeading(out, "Configuration Validation")

	errs := result.Errors()
	warns := result.Warnings()

	if len(errs) == 0 && len(warns) == 0 {
		fmt.Fprintln(out, styleSuccess.Render("No issues found."))
		return
	}

	if len(errs) > 0 {
		fmt.Fprintln(out, styleErrorLbl.Render("Errors:"))
		for _, issue := range errs {
			fmt.Fprintf(out, "  [%s] %s\n", issue.Field, issue.Message)
		}
		fmt.Fprintln(out)
	}

	if len(warns) > 0 {
		fmt.Fprintln(out, styleWarnLbl.Render("Warnings:"))
		for _, issue := range warns {
			fmt.Fprintf(out, "  [%s] %s\n", issue.Field, issue.Message)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "%d error(s), %d warning(s)\n", len(errs), len(warns))
}
