// Package cmd implements the inkbench command line: synthetic drawing
// sessions against an ink surface, PNG previews, and configuration files.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gogpu/ink"
)

var version = "dev"

func Execute() error {
	return newRootCmd().Execute()
}

type globalFlags struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:   "inkbench",
		Short: "Exercise ink stroke retention, culling and caching",
		Long: "inkbench drives an ink surface with a reproducible multi-user drawing session " +
			"and reports how the stroke pool, viewport culler, geometry cache and retention " +
			"manager behave under the configured limits.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if g.verbose {
				level = slog.LevelDebug
			}
			ink.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "config file (default ./ink.toml if present)")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log component activity to stderr")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSimulateCmd(g),
		newRenderCmd(g),
		newConfigCmd(g),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the inkbench version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write([]byte("inkbench " + version + "\n"))
			return err
		},
	}
}
