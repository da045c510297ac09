package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gogpu/compose"
)

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "gradecomp",
		Short:         "Composite and color-grade scene documents",
		Long:          `gradecomp loads a YAML or TOML scene document, composites its nodes with per-node grading and blend modes, and writes PNG frames.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			compose.SetLogger(newLogger(cmd.ErrOrStderr(), verbose))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")

	root.AddCommand(newRenderCmd(), newWatchCmd(), newValidateCmd())
	return root
}

// newLogger returns the text logger used by every subcommand.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
