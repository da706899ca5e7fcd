package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/flagship-go/engine"
	"github.com/TimurManjosov/flagship-go/internal/cli"
)

var (
	variantIdentity string
	variantCountry  string
	variantLanguage string
)

var variantCmd = &cobra.Command{
	Use:   "variant <experiment-key>",
	Short: "Resolve an identity's experiment variant",
	Long: `Resolve which variant an identity falls into for an experiment,
using the same deterministic bucketing the SDK uses. No exposure is
recorded.

Examples:
  flagshipctl variant pricing-test --identity user-42
  flagshipctl variant pricing-test --identity user-42 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]

		l, err := newLoader()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		experiments, err := l.Experiments(context.Background())
		if err != nil {
			return fmt.Errorf("failed to load experiments: %w", err)
		}
		def, ok := experiments[key]
		if !ok {
			return fmt.Errorf("experiment '%s' not found", key)
		}

		assignment := engine.Allocate(&def, engine.ExperimentContext{
			Identity: variantIdentity,
			Country:  variantCountry,
			Language: variantLanguage,
		})

		if quiet {
			return nil
		}
		return cli.PrintAssignment(assignment, cli.OutputFormat(format))
	},
}

func init() {
	rootCmd.AddCommand(variantCmd)

	variantCmd.Flags().StringVar(&variantIdentity, "identity", "", "Identity to resolve for")
	variantCmd.Flags().StringVar(&variantCountry, "country", "", "Country code of the identity")
	variantCmd.Flags().StringVar(&variantLanguage, "language", "", "Language code of the identity")
	_ = variantCmd.MarkFlagRequired("identity")
}
