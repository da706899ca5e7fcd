package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/flagship-go/internal/cli"
)

var configsVersion string

var configsCmd = &cobra.Command{
	Use:   "configs",
	Short: "List the remote config values served to this platform/environment",
	Long: `List the remote config document for the configured
platform/environment pair and the selected version channel.

Examples:
  flagshipctl configs --env prod --platform ios
  flagshipctl configs --env prod --version latest
  flagshipctl configs --env prod --version 2.14.0 --format yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLoader()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		configs, err := l.Config(context.Background(), configsVersion)
		if err != nil {
			return fmt.Errorf("failed to load configs: %w", err)
		}

		if quiet {
			return nil
		}
		if len(configs) == 0 {
			fmt.Println("No configs found")
			return nil
		}
		return cli.PrintConfigs(configs, cli.OutputFormat(format))
	},
}

func init() {
	rootCmd.AddCommand(configsCmd)

	configsCmd.Flags().StringVar(&configsVersion, "version", "stable", "Config version channel (stable, latest, or a pinned version)")
}
