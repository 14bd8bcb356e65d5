package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.trai.ch/stale/internal/core/domain"
)

func (c *CLI) newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [OUTPUT TEMPLATE]",
		Short: "Re-check outputs whenever a file changes",
		Long: "Check outputs like \"stale check\", then check again whenever a file below the\n" +
			"project root changes. Stops on interrupt.",
		Args: pairArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			quiet, _ := cmd.Flags().GetBool("quiet")
			base, _ := os.Getwd()
			out := cmd.OutOrStdout()

			runs := 0
			return c.app.Watch(cmd.Context(), checkOptions(cmd, args), func(report *domain.Report) {
				if runs > 0 {
					_, _ = fmt.Fprintln(out)
				}
				runs++
				_ = renderReport(out, report, renderOptions{Base: base, Quiet: quiet})
			})
		},
	}
	addCheckFlags(cmd)
	return cmd
}
