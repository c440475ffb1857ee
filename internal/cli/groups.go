package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/stepper/internal/config"
	"github.com/AbdelazizMoustafa10m/stepper/internal/props"
	"github.com/AbdelazizMoustafa10m/stepper/internal/stepper"
)

// newGroupsCmd creates the "stepper groups" command.
func newGroupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List the configured step groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProject(nil)
			if err != nil {
				return err
			}
			printGroups(cmd.OutOrStdout(), p)
			return nil
		},
	}
}

// newStepsCmd creates the "stepper steps" command.
func newStepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "steps",
		Short: "List the configured steps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProject(nil)
			if err != nil {
				return err
			}
			printSteps(cmd.OutOrStdout(), p)
			return nil
		},
	}
}

// newContextsCmd creates the "stepper contexts" command.
func newContextsCmd() *cobra.Command {
	var patterns []string
	cmd := &cobra.Command{
		Use:   "contexts",
		Short: "List the configured execution contexts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolved, _, err := loadAndResolveConfig(&config.CLIOverrides{Contexts: patterns})
			if err != nil {
				return err
			}
			contexts, err := config.BuildContexts(resolved.Config, resolved.Config.Engine.Contexts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printHeading(out, "Contexts")
			for _, sc := range contexts {
				line := fmt.Sprintf("  %-20s %s", sc.ID(), sc.Name())
				if c, ok := sc.(*config.Context); ok && len(c.Vars()) > 0 {
					line += styleDim.Render(fmt.Sprintf("  vars: %s", strings.Join(sortedKeys(c.Vars()), ", ")))
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&patterns, "context", "c", nil, "Context id glob pattern; repeatable")
	return cmd
}

func init() {
	rootCmd.AddCommand(newGroupsCmd())
	rootCmd.AddCommand(newStepsCmd())
	rootCmd.AddCommand(newContextsCmd())
}

func printGroups(out io.Writer, p *project) {
	printHeading(out, "Step Groups")
	data := props.New()
	for _, id := range p.registry.Groups() {
		group := p.registry.MustStepGroup(id)
		marker := "  "
		if id == p.config().Engine.DefaultGroup {
			marker = styleSuccess.Render("* ")
		}
		entries, _ := group.Steps(nil)
		work := "?"
		if total, err := stepper.TotalWork(group, nil, data); err == nil && total != stepper.UnknownWork {
			work = fmt.Sprintf("%d", total)
		}
		fmt.Fprintf(out, "%s%-20s %-30s %s\n", marker, id, truncate(group.Label(), 30),
			styleDim.Render(fmt.Sprintf("entries: %d  work: %s", len(entries), work)))
	}
}

func printSteps(out io.Writer, p *project) {
	printHeading(out, "Steps")
	for _, id := range p.registry.Steps() {
		sc := p.config().Steps[id]
		line := fmt.Sprintf("  %-20s %-10s %s", id, sc.Type, truncate(sc.Label, 30))
		if len(sc.Dependencies) > 0 {
			line += styleDim.Render("  after: " + strings.Join(sc.Dependencies, ", "))
		}
		fmt.Fprintln(out, line)
	}
}
