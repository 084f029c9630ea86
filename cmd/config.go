package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gogpu/ink/config"
)

func newConfigCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "default",
			Short: "Print the default configuration as TOML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return config.WriteDefault(cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration after file and environment overrides",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				f, err := config.Load(viper.New(), g.configPath)
				if err != nil {
					return err
				}
				if _, err := f.Surface(); err != nil {
					return err
				}
				return config.Write(cmd.OutOrStdout(), f)
			},
		},
	)

	return cmd
}
