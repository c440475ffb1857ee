package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/stepper/internal/config"
	"github.com/AbdelazizMoustafa10m/stepper/internal/props"
	"github.com/AbdelazizMoustafa10m/stepper/internal/stepper"
)

// newPlanCmd creates the "stepper plan" command.
func newPlanCmd() *cobra.Command {
	var contexts []string

	cmd := &cobra.Command{
		Use:   "plan [group]",
		Short: "Show the execution plan of a step group",
		Long: `Print the ordered steps of a step group, including nested groups,
iterators, dependencies and the estimated total work, without running anything.

The plan is resolved for the first selected context.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeGroupIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(&config.CLIOverrides{Contexts: contexts})
			if err != nil {
				return err
			}
			groupID, err := p.resolveGroupID(args)
			if err != nil {
				return err
			}
			group, err := p.registry.StepGroup(groupID)
			if err != nil {
				return err
			}
			selected, err := config.BuildContexts(p.config(), p.config().Engine.Contexts)
			if err != nil {
				return err
			}
			return printRunPlan(cmd, group, selected)
		},
	}
	cmd.Flags().StringSliceVarP(&contexts, "context", "c", nil, "Context id glob pattern; repeatable")
	_ = cmd.RegisterFlagCompletionFunc("context", completeContextIDs)
	return cmd
}

func init() {
	rootCmd.AddCommand(newPlanCmd())
}

// printRunPlan writes the plan of group for the first of contexts and lists
// every context the run would target.
func printRunPlan(cmd *cobra.Command, group stepper.StepGroup, contexts []stepper.StepContext) error {
	out := cmd.OutOrStdout()
	var sc stepper.StepContext
	if len(contexts) > 0 {
		sc = contexts[0]
	}
	if err := stepper.NewPlanFormatter(out, !flagNoColor).Print(group, sc, props.New()); err != nil {
		return fmt.Errorf("printing plan: %w", err)
	}

	ids := contextIDs(contexts)
	fmt.Fprintf(out, "Contexts (%d): %s\n", len(ids), strings.Join(ids, ", "))
	return nil
}
