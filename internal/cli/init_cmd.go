package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/stepper/internal/config"
)

// defaultTemplate is rendered when init is given no template name.
const defaultTemplate = "basic"

var (
	initFlagName     string
	initFlagForce    bool
	initFlagContexts []string
)

// initCmd implements "stepper init [template]". It scaffolds a stepper.toml
// from an embedded template and never loads an existing configuration.
var initCmd = &cobra.Command{
	Use:   "init [template]",
	Short: "Create a stepper.toml from a template",
	Long: `Create a stepper.toml in the working directory by rendering an
embedded template. An existing stepper.toml is preserved unless --force is
supplied.

Examples:
  stepper init                                  # basic template
  stepper init fleet -c rack-a-1 -c rack-a-2    # fleet with two contexts
  stepper init basic --name release --force     # overwrite existing file`,
	Args: cobra.MaximumNArgs(1),
	ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		names, _ := config.ListTemplates()
		completions := make([]string, 0, len(names))
		for _, n := range names {
			completions = append(completions, n+"\t"+config.DescribeTemplate(n))
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initFlagName, "name", "n", "", "Label of the generated group (defaults to the directory name)")
	initCmd.Flags().BoolVar(&initFlagForce, "force", false, "Overwrite existing files")
	initCmd.Flags().StringSliceVarP(&initFlagContexts, "context", "c", nil, "Context id to declare; repeatable")
	initCmd.Long += "\n\nTemplates:\n" + templateList()
	rootCmd.AddCommand(initCmd)
}

// runInit is the RunE handler for the init command.
func runInit(cmd *cobra.Command, args []string) error {
	templateName := defaultTemplate
	if len(args) > 0 {
		templateName = args[0]
	}

	if !config.TemplateExists(templateName) {
		available, listErr := config.ListTemplates()
		if listErr != nil {
			return fmt.Errorf("listing available templates: %w", listErr)
		}
		return fmt.Errorf("template %q not found; available templates: %s",
			templateName, strings.Join(available, ", "))
	}

	destDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	projectName := initFlagName
	if projectName == "" {
		projectName = filepath.Base(destDir)
	}
	if strings.IndexFunc(projectName, unicode.IsControl) >= 0 {
		return fmt.Errorf("invalid project name %q: must not contain control characters", projectName)
	}
	for _, id := range initFlagContexts {
		if id == "" || strings.ContainsAny(id, " .\"[]") {
			return fmt.Errorf("invalid context id %q", id)
		}
	}

	cfgPath := filepath.Join(destDir, config.ConfigFileName)
	if _, statErr := os.Stat(cfgPath); statErr == nil && !initFlagForce {
		return fmt.Errorf("%s already exists in %s; use --force to overwrite", config.ConfigFileName, destDir)
	}

	vars := config.TemplateVars{
		ProjectName: projectName,
		Contexts:    initFlagContexts,
	}
	created, err := config.RenderTemplate(templateName, destDir, vars, initFlagForce)
	if err != nil {
		return fmt.Errorf("rendering template %q: %w", templateName, err)
	}

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "Initialized %q from template %q\n\n", projectName, templateName)
	if len(created) > 0 {
		fmt.Fprintln(stderr, "Created files:")
		for _, f := range created {
			rel, relErr := filepath.Rel(destDir, f)
			if relErr != nil {
				rel = f
			}
			fmt.Fprintf(stderr, "  %s\n", rel)
		}
		fmt.Fprintln(stderr)
	}

	fmt.Fprintln(stderr, "Next steps:")
	fmt.Fprintf(stderr, "  1. Edit %s to describe your steps\n", cfgPath)
	fmt.Fprintln(stderr, "  2. Check it: stepper config validate")
	fmt.Fprintln(stderr, "  3. Preview:  stepper plan")
	fmt.Fprintln(stderr, "  4. Run:      stepper run")
	return nil
}

// templateList renders one "name  summary" line per embedded template.
func templateList() string {
	names, err := config.ListTemplates()
	if err != nil {
		return ""
	}
	var b strings.Builder
	for _, n := range names {
		fmt.Fprintf(&b, "  %-7s %s\n", n, config.DescribeTemplate(n))
	}
	return strings.TrimRight(b.String(), "\n")
}
