package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/flagship-go/definitions"
	"github.com/TimurManjosov/flagship-go/internal/cli"
)

var flagsEnabledOnly bool

var flagsCmd = &cobra.Command{
	Use:   "flags",
	Short: "List the flag definitions served to this platform/environment",
	Long: `List all flag definitions the API serves to the configured
platform/environment pair.

Examples:
  flagshipctl flags --env prod --platform ios
  flagshipctl flags --env prod --format json
  flagshipctl flags --env prod --enabled-only`,
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLoader()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		flags, err := l.Flags(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list flags: %w", err)
		}

		if flagsEnabledOnly {
			enabled := make(map[string]definitions.FlagDefinition)
			for key, f := range flags {
				if f.Enabled {
					enabled[key] = f
				}
			}
			flags = enabled
		}

		if quiet {
			return nil
		}
		if len(flags) == 0 {
			fmt.Println("No flags found")
			return nil
		}
		return cli.PrintFlags(flags, cli.OutputFormat(format))
	},
}

func init() {
	rootCmd.AddCommand(flagsCmd)

	flagsCmd.Flags().BoolVar(&flagsEnabledOnly, "enabled-only", false, "Show only enabled flags")
}
