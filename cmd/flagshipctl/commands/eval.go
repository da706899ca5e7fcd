package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/flagship-go/engine"
	"github.com/TimurManjosov/flagship-go/internal/cli"
)

var (
	evalIdentity string
	evalCountry  string
	evalLanguage string
)

var evalCmd = &cobra.Command{
	Use:   "eval <flag-key>",
	Short: "Evaluate a flag for an identity",
	Long: `Evaluate a flag for an identity exactly the way the SDK would:
same targeting cascade, same bucketing, same served value.

Examples:
  flagshipctl eval dark-mode --identity user-42
  flagshipctl eval dark-mode --identity user-42 --country DE --language de
  flagshipctl eval dark-mode --identity user-42 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]

		l, err := newLoader()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		flags, err := l.Flags(context.Background())
		if err != nil {
			return fmt.Errorf("failed to load flags: %w", err)
		}
		def, ok := flags[key]
		if !ok {
			return fmt.Errorf("flag '%s' not found", key)
		}

		result := engine.EvaluateFlag(&def, engine.FlagContext{
			Identity: evalIdentity,
			Country:  evalCountry,
			Language: evalLanguage,
		})

		if quiet {
			return nil
		}
		return cli.PrintFlagResult(result, cli.OutputFormat(format))
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVar(&evalIdentity, "identity", "", "Identity to evaluate for")
	evalCmd.Flags().StringVar(&evalCountry, "country", "", "Country code of the identity")
	evalCmd.Flags().StringVar(&evalLanguage, "language", "", "Language code of the identity")
	_ = evalCmd.MarkFlagRequired("identity")
}
