package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/stepper/internal/logging"
)

// Global flag values accessible to all subcommands.
var (
	flagVerbose  bool
	flagQuiet    bool
	flagConfig   string
	flagDir      string
	flagDryRun   bool
	flagNoColor  bool
	flagLogLevel string
)

// rootCmd is the base command for stepper.
var rootCmd = &cobra.Command{
	Use:   "stepper",
	Short: "Step and workflow orchestration engine",
	Long: `Stepper runs named step groups, declared in stepper.toml, against one or
more execution contexts. Steps run in order, can depend on each other, report
progress, and are rolled back in reverse order when a run fails.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: persistentPreRun,
}

// persistentPreRun applies environment fallbacks for unset flags, initializes
// logging and color handling, and changes into --dir.
func persistentPreRun(cmd *cobra.Command, _ []string) error {
	if !cmd.Flags().Changed("verbose") && os.Getenv("STEPPER_VERBOSE") != "" {
		flagVerbose = true
	}
	if !cmd.Flags().Changed("quiet") && os.Getenv("STEPPER_QUIET") != "" {
		flagQuiet = true
	}
	if !cmd.Flags().Changed("no-color") && (os.Getenv("NO_COLOR") != "" || os.Getenv("STEPPER_NO_COLOR") != "") {
		flagNoColor = true
	}
	if !cmd.Flags().Changed("log-level") {
		if lvl := os.Getenv(logging.EnvLogLevel); lvl != "" {
			flagLogLevel = lvl
		}
	}

	err := logging.Setup(logging.Options{
		Verbose: flagVerbose,
		Quiet:   flagQuiet,
		JSON:    os.Getenv("STEPPER_LOG_FORMAT") == "json",
		Level:   flagLogLevel,
	})
	if err != nil {
		return err
	}

	if flagNoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	if flagDir != "" {
		if err := os.Chdir(flagDir); err != nil {
			return fmt.Errorf("changing directory to %s: %w", flagDir, err)
		}
	}
	return nil
}

func init() {
	registerPersistentFlags(rootCmd,
		&flagVerbose, &flagQuiet, &flagConfig, &flagDir, &flagDryRun, &flagNoColor, &flagLogLevel)
}

func registerPersistentFlags(cmd *cobra.Command, verbose, quiet *bool, config, dir *string, dryRun, noColor *bool, logLevel *string) {
	pf := cmd.PersistentFlags()
	pf.BoolVarP(verbose, "verbose", "v", false, "Enable verbose (debug) output (env: STEPPER_VERBOSE)")
	pf.BoolVarP(quiet, "quiet", "q", false, "Suppress all output except errors (env: STEPPER_QUIET)")
	pf.StringVar(config, "config", "", "Path to stepper.toml config file")
	pf.StringVar(dir, "dir", "", "Override working directory")
	pf.BoolVar(dryRun, "dry-run", false, "Show the execution plan without running any step")
	pf.BoolVar(noColor, "no-color", false, "Disable colored output (env: STEPPER_NO_COLOR, NO_COLOR)")
	pf.StringVar(logLevel, "log-level", "", "Log level: debug, info, warn, error (env: STEPPER_LOG_LEVEL)")
}

// Exit codes returned by Execute.
const (
	ExitOK        = 0
	ExitError     = 1
	ExitFailed    = 2
	ExitCancelled = 3
)

// exitError carries a specific process exit code through cobra's error path.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

// Execute runs the root command and returns the exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return ExitOK
	}
	fmt.Fprintln(os.Stderr, err)
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitError
}

// NewRootCmd returns a new instance of the root command for use in external
// tools such as the shell completion generator and man page generator. The
// flags are bound to local variables so the command is safe for concurrent
// use by generators.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               rootCmd.Use,
		Short:             rootCmd.Short,
		Long:              rootCmd.Long,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: rootCmd.PersistentPreRunE,
	}

	var (
		verbose, quiet, dryRun, noColor bool
		config, dir, logLevel           string
	)
	registerPersistentFlags(cmd, &verbose, &quiet, &config, &dir, &dryRun, &noColor, &logLevel)

	for _, child := range rootCmd.Commands() {
		cmd.AddCommand(child)
	}
	return cmd
}
