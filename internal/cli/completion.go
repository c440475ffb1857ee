package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
)

// CompletionShell describes how to generate and install completion for one
// shell.
type CompletionShell struct {
	Name string
	// File is the conventional file name for release archives.
	File    string
	Install string
	gen     func(root *cobra.Command, w io.Writer) error
}

var completionShells = []CompletionShell{
	{
		Name:    "bash",
		File:    "stepper.bash",
		Install: "stepper completion bash | sudo tee /etc/bash_completion.d/stepper > /dev/null",
		gen:     func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	},
	{
		Name:    "zsh",
		File:    "_stepper",
		Install: `stepper completion zsh > "${fpath[1]}/_stepper"`,
		gen:     func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	},
	{
		Name:    "fish",
		File:    "stepper.fish",
		Install: "stepper completion fish > ~/.config/fish/completions/stepper.fish",
		gen:     func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	},
	{
		Name:    "powershell",
		File:    "stepper.ps1",
		Install: `stepper completion powershell > stepper.ps1, then dot-source it from $PROFILE`,
		gen:     func(root *cobra.Command, w io.Writer) error { return root.GenPowerShellCompletionWithDesc(w) },
	},
}

// CompletionShells returns the supported shells in a stable order.
func CompletionShells() []CompletionShell {
	out := make([]CompletionShell, len(completionShells))
	copy(out, completionShells)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// WriteCompletion writes the completion script for shell to w.
func WriteCompletion(root *cobra.Command, shell string, w io.Writer) error {
	for _, s := range completionShells {
		if s.Name == shell {
			return s.gen(root, w)
		}
	}
	return fmt.Errorf("unsupported shell %q", shell)
}

func newCompletionCmd() *cobra.Command {
	names := make([]string, 0, len(completionShells))
	long := `Generate a shell completion script. Group and context ids are
completed from the stepper.toml found in the working directory.

Install:
`
	for _, s := range completionShells {
		names = append(names, s.Name)
		long += fmt.Sprintf("  %-11s %s\n", s.Name, s.Install)
	}

	return &cobra.Command{
		Use:                   "completion [bash|zsh|fish|powershell]",
		Short:                 "Generate shell completion scripts",
		Long:                  long,
		DisableFlagsInUseLine: true,
		ValidArgs:             names,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return WriteCompletion(cmd.Root(), args[0], cmd.OutOrStdout())
		},
	}
}

func init() {
	rootCmd.AddCommand(newCompletionCmd())
}
