// Package commands implements the CLI commands for stale.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.trai.ch/stale/internal/app"
	"go.trai.ch/stale/internal/build"
	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/zerr"
)

// CLI represents the command line interface for stale.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
	trace   io.Closer
}

// Application represents the application logic interface.
type Application interface {
	Check(ctx context.Context, opts app.CheckOptions) (*domain.Report, error)
	Watch(ctx context.Context, opts app.CheckOptions, onReport func(*domain.Report)) error
	SetLogJSON(enable bool)
	RecordTrace(w io.Writer)
	FlushTrace(ctx context.Context) error
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "stale",
		Short:         "Tell which compiled stylesheets are out of date with their templates",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.PersistentFlags().Bool("log-json", false, "Write log messages as JSON")
	rootCmd.PersistentFlags().String("trace", "", "Write a JSON trace of every check to `file`")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		logJSON, _ := cmd.Flags().GetBool("log-json")
		a.SetLogJSON(logJSON)

		tracePath, _ := cmd.Flags().GetString("trace")
		if tracePath == "" {
			return nil
		}
		f, err := os.Create(tracePath)
		if err != nil {
			return zerr.With(zerr.Wrap(err, "failed to create trace file"), "path", tracePath)
		}
		c.trace = f
		a.RecordTrace(f)
		return nil
	}

	rootCmd.AddCommand(c.newCheckCmd())
	rootCmd.AddCommand(c.newWatchCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
// A trace file requested with --trace is flushed and closed before returning.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	err := c.rootCmd.Execute()
	if c.trace == nil {
		return err
	}

	flushErr := c.app.FlushTrace(context.WithoutCancel(ctx))
	closeErr := c.trace.Close()
	c.trace = nil
	return errors.Join(err, flushErr, closeErr)
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}
