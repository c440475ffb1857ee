package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/stepper/internal/stepper"
)

// newReportCmd creates the "stepper report" command.
func newReportCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "report [path]",
		Short: "Show the report of the last run",
		Long: `Show a run report written by "stepper run". Without a path, the
configured engine.report_file (or .stepper/last-run.json) is read.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			} else {
				resolved, _, err := loadAndResolveConfig(nil)
				if err != nil {
					return err
				}
				baseDir, err := baseDirFor(resolved)
				if err != nil {
					return err
				}
				path = reportPath(resolved.Config, baseDir)
			}

			report, err := stepper.LoadReport(path)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printRunSummary(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the raw report as JSON")
	return cmd
}

func init() {
	rootCmd.AddCommand(newReportCmd())
}

// severityStyle colors a severity name the way validation output does.
func severityStyle(sev string) lipgloss.Style {
	switch sev {
	case "error":
		return styleErrorLbl
	case "cancel", "warning":
		return styleWarnLbl
	case "ok", "info", "":
		return styleSuccess
	default:
		return lipgloss.NewStyle()
	}
}

// printRunSummary writes a per-context summary of report.
func printRunSummary(out io.Writer, report *stepper.Report) {
	fmt.Fprintln(out)
	printHeading(out, "Run Summary")

	sev := report.Severity
	if sev == "" {
		sev = "ok"
	}
	fmt.Fprintf(out, "Group:    %s\n", report.StepGroup)
	fmt.Fprintf(out, "Result:   %s\n", severityStyle(sev).Render(sev))
	fmt.Fprintf(out, "Duration: %s\n", report.Duration.Round(time.Millisecond))
	fmt.Fprintln(out)

	for _, cr := range report.Contexts {
		if cr.ContextID == "" {
			continue
		}
		csev := cr.Severity
		if csev == "" {
			csev = "running"
		}
		executed, skipped := 0, 0
		for _, s := range cr.Steps {
			if s.Skipped {
				skipped++
			} else {
				executed++
			}
		}
		line := fmt.Sprintf("  %-20s %s steps: %d", cr.ContextID, severityStyle(cr.Severity).Render(fmt.Sprintf("%-9s", csev)), executed)
		if skipped > 0 {
			line += fmt.Sprintf("  skipped: %d", skipped)
		}
		if len(cr.RolledBack) > 0 {
			line += fmt.Sprintf("  rolled back: %d", len(cr.RolledBack))
		}
		fmt.Fprintln(out, line)
		if cr.Error != "" {
			fmt.Fprintf(out, "    %s\n", styleDim.Render(truncate(cr.Error, 100)))
		}
		for _, f := range cr.RollbackFailures {
			fmt.Fprintf(out, "    %s %s\n", styleErrorLbl.Render("rollback failed:"), truncate(f, 90))
		}
	}
	if report.Error != "" && len(report.Contexts) == 0 {
		fmt.Fprintf(out, "  %s\n", report.Error)
	}
}
