package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/wgslcore"
)

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file.wgsl>...",
		Short: "Report the diagnostics of shaders",
		Long: `Parse, resolve and validate WGSL shaders without lowering them and
print every diagnostic with its source context. Exits with status 1 when
any input has errors.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(args, cmd)
		},
	}
}

func runCheck(paths []string, cmd *cobra.Command) error {
	files, err := readSources(paths)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	failed := 0
	for _, f := range files {
		mod, diags := wgslcore.Parse(f.source)
		if !diags.ContainsErrors() {
			_, _, more := wgslcore.Resolve(mod)
			diags.Append(more)
		}
		if len(diags) == 0 {
			fmt.Fprintf(w, "%s: ok\n", f.name)
			continue
		}
		if diags.ContainsErrors() {
			failed++
		}
		fmt.Fprint(w, diags.WithSource(f.name).FormatAll(f.source))
	}
	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d inputs have errors", failed, len(files)))
	}
	return nil
}
