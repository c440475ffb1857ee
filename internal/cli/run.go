package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/stepper/internal/buildinfo"
	"github.com/AbdelazizMoustafa10m/stepper/internal/config"
	"github.com/AbdelazizMoustafa10m/stepper/internal/fqid"
	"github.com/AbdelazizMoustafa10m/stepper/internal/logging"
	"github.com/AbdelazizMoustafa10m/stepper/internal/props"
	"github.com/AbdelazizMoustafa10m/stepper/internal/status"
	"github.com/AbdelazizMoustafa10m/stepper/internal/stepper"
	"github.com/AbdelazizMoustafa10m/stepper/internal/tui"
)

// eventBufferSize bounds the event channel between the engine and the report
// recorder. Events are dropped, not blocked on, when it fills up.
const eventBufferSize = 4096

// runFlags holds parsed flag values for the run command.
type runFlags struct {
	Contexts        []string
	ContinueOnError bool
	Report          string
	NoReport        bool
	Select          bool
	NoProgress      bool
	Dashboard       bool
}

// newRunCmd creates the "stepper run" command.
func newRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run [group]",
		Short: "Run a step group against the selected contexts",
		Long: `Run a step group against every selected context, one context at a time.

The group defaults to engine.default_group. Contexts are selected with one or
more --context glob patterns (default: engine.contexts, or every context).
Unless --continue-on-error is set, the first failing context stops the run.
Steps that already ran in a failing context are rolled back in reverse order.

A JSON run report is written to --report (default: engine.report_file, or
.stepper/last-run.json). Use --dry-run to print the execution plan instead.

With --dashboard the run is shown in a full-screen view of the contexts and
the event log. Press q once to cancel the run, twice to leave immediately.

Exit codes:
  0  all contexts finished without errors (warnings allowed)
  1  configuration or usage error
  2  at least one context failed
  3  the run was cancelled (Ctrl+C)`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeGroupIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args, flags)
		},
	}

	cmd.Flags().StringSliceVarP(&flags.Contexts, "context", "c", nil, "Context id glob pattern; repeatable (env: STEPPER_CONTEXTS)")
	cmd.Flags().BoolVar(&flags.ContinueOnError, "continue-on-error", false, "Keep running remaining contexts after one fails (env: STEPPER_CONTINUE_ON_ERROR)")
	cmd.Flags().StringVar(&flags.Report, "report", "", "Write the JSON run report to this path (env: STEPPER_REPORT_FILE)")
	cmd.Flags().BoolVar(&flags.NoReport, "no-report", false, "Do not write a run report")
	cmd.Flags().BoolVar(&flags.Select, "select", false, "Choose the group and contexts interactively")
	cmd.Flags().BoolVar(&flags.NoProgress, "no-progress", false, "Disable the progress bar")
	cmd.Flags().BoolVar(&flags.Dashboard, "dashboard", false, "Show the run in a full-screen dashboard")

	_ = cmd.RegisterFlagCompletionFunc("context", completeContextIDs)
	return cmd
}

func init() {
	rootCmd.AddCommand(newRunCmd())
}

// overridesFromFlags converts explicitly set run flags into config overrides.
func overridesFromFlags(cmd *cobra.Command, flags runFlags) *config.CLIOverrides {
	o := &config.CLIOverrides{Contexts: flags.Contexts}
	if cmd.Flags().Changed("continue-on-error") {
		v := flags.ContinueOnError
		o.ContinueOnError = &v
	}
	if cmd.Flags().Changed("report") {
		v := flags.Report
		o.ReportFile = &v
	}
	return o
}

func runRun(cmd *cobra.Command, args []string, flags runFlags) error {
	dashboard := flags.Dashboard && !flagDryRun
	if dashboard {
		if !isStdinTTY() || !isStdoutTTY() {
			return fmt.Errorf("--dashboard requires an interactive terminal")
		}
		// Log lines would tear the full-screen view; hold them until it closes.
		held := &lockedBuffer{}
		logging.SetOutput(held)
		defer func() {
			logging.SetOutput(os.Stderr)
			_, _ = os.Stderr.Write(held.Bytes())
		}()
	}
	logger := logging.New("run")

	p, err := loadProject(overridesFromFlags(cmd, flags))
	if err != nil {
		return err
	}
	for _, w := range p.warnings {
		logger.Warn("config", "field", w.Field, "issue", w.Message)
	}
	cfg := p.config()

	var groupID string
	if len(args) > 0 || !flags.Select {
		groupID, err = p.resolveGroupID(args)
		if err != nil {
			return err
		}
	}

	contexts, err := config.BuildContexts(cfg, cfg.Engine.Contexts)
	if err != nil {
		return err
	}
	continueOnError := cfg.Engine.ContinueOnError

	if flags.Select {
		if !isStdinTTY() {
			return fmt.Errorf("--select requires an interactive terminal")
		}
		sel := &runSelection{GroupID: groupID, ContinueOnError: continueOnError}
		if err := selectRun(p.registry, contexts, sel); err != nil {
			if errors.Is(err, ErrSelectionCancelled) {
				return withExitCode(ExitCancelled, err)
			}
			return err
		}
		groupID = sel.GroupID
		continueOnError = sel.ContinueOnError
		if len(sel.ContextIDs) > 0 {
			contexts = filterContexts(contexts, sel.ContextIDs)
		}
	}

	group, err := p.registry.StepGroup(groupID)
	if err != nil {
		return err
	}

	vr := config.ValidateRegistry(p.registry, contexts[0], groupID)
	for _, w := range vr.Warnings() {
		logger.Warn("group", "field", w.Field, "issue", w.Message)
	}
	if vr.HasErrors() {
		return validationError(vr)
	}

	if flagDryRun {
		return printRunPlan(cmd, group, contexts)
	}

	data := props.New()
	data.Set(stepper.PropStepGroupID, groupID)
	data.Set(stepper.PropCancelable, !continueOnError)
	stepper.SetContexts(data, contexts...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		program      *tea.Program
		bridge       tui.EventBridge
		listener     stepper.ProgressListener
		stopProgress = func() {}
		view         *progressView
	)
	if dashboard {
		program = tui.NewProgram(tui.NewApp(tui.AppConfig{
			Version:    buildinfo.GetInfo().Version,
			GroupID:    groupID,
			GroupLabel: group.Label(),
			ContextIDs: contextIDs(contexts),
			Cancel:     cancel,
		}))
		bridge = tui.NewEventBridge(program)
		listener, stopProgress = bridge.ProgressListener()
	} else if !flags.NoProgress && !flagQuiet && isStderrTTY() {
		view = newProgressView(cmd.ErrOrStderr())
		listener = view.Listener()
	}

	root := fqid.Root(fqid.TypeStepper, groupID, "")
	report := stepper.NewReport(root.String(), groupID)
	events := make(chan stepper.Event, eventBufferSize)
	var recorder sync.WaitGroup
	recorder.Add(1)
	go func() {
		defer recorder.Done()
		for ev := range events {
			report.Record(ev)
			if program != nil {
				bridge.Event(ev)
			}
		}
	}()

	engineLogger := logging.New("engine")
	multi := stepper.NewMulti(p.registry,
		stepper.WithMultiLogger(engineLogger),
		stepper.WithMultiEvents(events),
		stepper.WithMultiLabel(group.Label()),
		stepper.WithStepperOptions(
			stepper.WithLogger(engineLogger),
			stepper.WithEventChannel(events),
		),
	)
	if err := multi.Initialize(nil, data, root, stepper.NewProgressContext(ctx, listener)); err != nil {
		close(events)
		stopProgress()
		return fmt.Errorf("initializing run: %w", err)
	}

	logger.Info("run started", "group", groupID, "contexts", len(contexts), "continue_on_error", continueOnError)
	job := stepper.StartJob(ctx, multi)
	var runErr error
	if program != nil {
		done := make(chan error, 1)
		go func() {
			err := job.Wait()
			stopProgress()
			bridge.Finished(err)
			done <- err
		}()
		if _, err := program.Run(); err != nil {
			logger.Error("dashboard failed", "error", err)
		}
		// Leaving the dashboard early cancels whatever is still running.
		cancel()
		runErr = <-done
	} else {
		runErr = job.Wait()
	}
	close(events)
	recorder.Wait()
	if view != nil {
		view.Finish()
	}
	report.Finish(runErr)

	if !flags.NoReport {
		path := reportPath(cfg, p.baseDir)
		if err := report.WriteReport(path); err != nil {
			logger.Error("writing run report", "path", path, "error", err)
		} else {
			logger.Debug("run report written", "path", path)
		}
	}

	if !flagQuiet {
		printRunSummary(cmd.OutOrStdout(), report)
	}
	return runOutcome(runErr)
}

// runOutcome maps the engine result to the command error and exit code.
// Warnings and infos are not failures.
func runOutcome(err error) error {
	st := status.FromError(err)
	if st.IsOK() {
		return nil
	}
	switch st.Severity {
	case status.Cancel:
		return withExitCode(ExitCancelled, fmt.Errorf("run cancelled: %w", err))
	case status.Error:
		return withExitCode(ExitFailed, fmt.Errorf("run failed: %w", err))
	default:
		return nil
	}
}

// reportPath returns where the run report goes. Relative paths resolve
// against the project directory.
func reportPath(cfg *config.Config, baseDir string) string {
	path := cfg.Engine.ReportFile
	if path == "" {
		path = config.DefaultReportFile
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	return path
}

func filterContexts(all []stepper.StepContext, ids []string) []stepper.StepContext {
	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	var out []stepper.StepContext
	for _, sc := range all {
		if keep[sc.ID()] {
			out = append(out, sc)
		}
	}
	return out
}

func contextIDs(contexts []stepper.StepContext) []string {
	ids := make([]string, len(contexts))
	for i, sc := range contexts {
		ids[i] = sc.ID()
	}
	return ids
}

// lockedBuffer is an io.Writer safe for concurrent loggers.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// Bytes returns a copy of everything written so far.
func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

// completeGroupIDs offers group ids from the discovered configuration.
func completeGroupIDs(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	resolved, _, err := loadAndResolveConfig(nil)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return sortedKeys(resolved.Config.Groups), cobra.ShellCompDirectiveNoFileComp
}

// completeContextIDs offers context ids from the discovered configuration.
func completeContextIDs(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	resolved, _, err := loadAndResolveConfig(nil)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return sortedKeys(resolved.Config.Contexts), cobra.ShellCompDirectiveNoFileComp
}
