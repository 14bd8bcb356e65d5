package commands

import (
	"os"

	"github.com/spf13/cobra"
	"go.trai.ch/stale/internal/app"
	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/zerr"
)

func (c *CLI) newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [OUTPUT TEMPLATE]",
		Short: "Report which outputs must be recompiled",
		Long: "Report which outputs must be recompiled.\n\n" +
			"Without arguments every target of stale.yaml is checked. With an output and a\n" +
			"template only that pair is checked; stale.yaml still supplies options when present.",
		Args: pairArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exitCode, _ := cmd.Flags().GetBool("exit-code")
			quiet, _ := cmd.Flags().GetBool("quiet")

			report, err := c.app.Check(cmd.Context(), checkOptions(cmd, args))
			if err != nil {
				return err
			}

			base, _ := os.Getwd()
			if err := renderReport(cmd.OutOrStdout(), report, renderOptions{Base: base, Quiet: quiet}); err != nil {
				return err
			}

			if exitCode && report.StaleCount() > 0 {
				return domain.ErrStaleTargets
			}
			return nil
		},
	}
	cmd.Flags().Bool("exit-code", false, "Exit with status 1 when any output is stale")
	addCheckFlags(cmd)
	return cmd
}

// pairArgs accepts either no arguments or an output and a template.
func pairArgs(_ *cobra.Command, args []string) error {
	if len(args) != 0 && len(args) != 2 {
		return zerr.With(domain.ErrInvalidTarget, "args", len(args))
	}
	return nil
}

func addCheckFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("quiet", "q", false, "Only list stale outputs")
	cmd.Flags().StringArrayP("load-path", "I", nil, "Additional directory to search for imports (repeatable)")
	cmd.Flags().IntP("workers", "j", 0, "Number of concurrent checks (default: from stale.yaml, or one per CPU)")
}

func checkOptions(cmd *cobra.Command, args []string) app.CheckOptions {
	loadPaths, _ := cmd.Flags().GetStringArray("load-path")
	workers, _ := cmd.Flags().GetInt("workers")

	opts := app.CheckOptions{
		LoadPaths: loadPaths,
		Workers:   workers,
	}
	if len(args) == 2 {
		opts.Output, opts.Template = args[0], args[1]
	}
	return opts
}
