package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/flagship-go/definitions"
	"github.com/TimurManjosov/flagship-go/internal/cli"
)

var experimentsRunningOnly bool

var experimentsCmd = &cobra.Command{
	Use:   "experiments",
	Short: "List the experiment definitions served to this platform/environment",
	Long: `List all experiment definitions the API serves to the configured
platform/environment pair.

Examples:
  flagshipctl experiments --env prod --platform ios
  flagshipctl experiments --env prod --running-only`,
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLoader()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		experiments, err := l.Experiments(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list experiments: %w", err)
		}

		if experimentsRunningOnly {
			running := make(map[string]definitions.ExperimentDefinition)
			for key, e := range experiments {
				if e.Status == definitions.StatusRunning {
					running[key] = e
				}
			}
			experiments = running
		}

		if quiet {
			return nil
		}
		if len(experiments) == 0 {
			fmt.Println("No experiments found")
			return nil
		}
		return cli.PrintExperiments(experiments, cli.OutputFormat(format))
	},
}

func init() {
	rootCmd.AddCommand(experimentsCmd)

	experimentsCmd.Flags().BoolVar(&experimentsRunningOnly, "running-only", false, "Show only running experiments")
}
