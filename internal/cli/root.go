// Package cli implements the wgslc command line.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gogpu/wgslcore/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	// Config is the path of a YAML configuration file.
	Config  string
	Verbose bool
}

// NewRootCommand creates the root command for the wgslc CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "wgslc",
		Short: "wgslc - WGSL front-end compiler",
		Long: `Parse, resolve and validate WGSL shaders, lower them to IR and run
the configured IR transforms.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "configuration file (YAML)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log pass progress to stderr")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewDepsCommand(opts))
	cmd.AddCommand(NewPassesCommand(opts))

	return cmd
}

// loadConfig resolves the configuration named by the flags.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Resolve(o.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "loading configuration", err)
	}
	return cfg, nil
}

// logger returns a logger writing to w. Without --verbose only warnings
// and errors are logged.
func (o *RootOptions) logger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = min(cfg.Level(), slog.LevelInfo)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
