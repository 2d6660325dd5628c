package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/gogpu/wgslcore/pipeline"
)

// NewPassesCommand creates the passes command.
func NewPassesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "passes",
		Short: "List the registered IR passes",
		Long: `List the registered IR passes. Passes in the effective configuration
are marked with '*' and numbered in execution order.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, name := range pipeline.Names() {
				mark := "   "
				if i := slices.Index(cfg.Passes, name); i >= 0 {
					mark = fmt.Sprintf("*%d ", i+1)
				}
				fmt.Fprintf(w, "%s%-22s %s\n", mark, name, pipeline.Describe(name))
			}
			return nil
		},
	}
}
