package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gogpu/wgslcore"
	"github.com/gogpu/wgslcore/batch"
	"github.com/gogpu/wgslcore/diag"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	// Passes replaces the configured pass list when set.
	Passes []string
	// Out is a directory receiving one <name>.ir file per input.
	Out string
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <file.wgsl>...",
		Short: "Compile shaders to transformed IR",
		Long: `Compile WGSL shaders through the full pipeline and print the IR after
the configured passes. Inputs are compiled concurrently.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args, cmd)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Passes, "passes", "p", nil, "comma separated pass list (overrides the configuration)")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output directory")

	return cmd
}

func runCompile(opts *CompileOptions, paths []string, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if opts.Passes != nil {
		cfg.Passes = opts.Passes
	}
	copts, err := wgslcore.OptionsFromConfig(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "building pipeline", err)
	}
	files, err := readSources(paths)
	if err != nil {
		return err
	}
	if opts.Out != "" {
		if err := os.MkdirAll(opts.Out, 0o755); err != nil {
			return WrapExitError(ExitCommandError, "creating output directory", err)
		}
	}

	inputs := make([]batch.Input, len(files))
	for i, f := range files {
		inputs[i] = batch.Input{Name: f.name, Source: f.source}
	}
	compiler := &batch.Compiler{
		Workers: cfg.Workers,
		Options: copts,
		Logger:  opts.logger(cmd.ErrOrStderr(), cfg),
	}
	outs := compiler.Compile(cmd.Context(), inputs)

	failed := 0
	stdout := cmd.OutOrStdout()
	for i, out := range outs {
		if out.Err != nil {
			failed++
			reportFailure(cmd.ErrOrStderr(), files[i], out)
			continue
		}
		if opts.Out != "" {
			dst := filepath.Join(opts.Out, strings.TrimSuffix(filepath.Base(out.Name), ".wgsl")+".ir")
			if err := os.WriteFile(dst, []byte(out.Result.Text), 0o644); err != nil {
				return WrapExitError(ExitCommandError, "writing output", err)
			}
			fmt.Fprintf(stdout, "%s -> %s\n", out.Name, dst)
			continue
		}
		if len(outs) > 1 {
			fmt.Fprintf(stdout, "// %s\n", out.Name)
		}
		io.WriteString(stdout, out.Result.Text)
	}
	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d inputs failed", failed, len(outs)))
	}
	return nil
}

// reportFailure prints the diagnostics of a failed compilation, or the
// error itself when it is not a user diagnostic.
func reportFailure(w io.Writer, f sourceFile, out batch.Output) {
	var list diag.List
	if out.Result != nil && errors.As(out.Err, &list) {
		fmt.Fprint(w, out.Result.Diagnostics.WithSource(f.name).FormatAll(f.source))
		return
	}
	fmt.Fprintf(w, "%s: %v\n", f.name, out.Err)
}
