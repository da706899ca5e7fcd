package commands

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/TimurManjosov/flagship-go/cache"
	"github.com/TimurManjosov/flagship-go/internal/cli"
	"github.com/TimurManjosov/flagship-go/loader"
	"github.com/TimurManjosov/flagship-go/transport"
)

var (
	// Global flags
	baseURL  string
	apiKey   string
	env      string
	platform string
	format   string
	quiet    bool
	verbose  bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "flagshipctl",
	Short: "CLI tool for inspecting Flagship feature delivery",
	Long: `Flagshipctl inspects the flags, experiments, and remote configs the
Flagship API serves to a platform/environment pair, and evaluates them
for a given identity exactly the way the SDK would.

Examples:
  flagshipctl flags --env prod --platform ios
  flagshipctl eval dark-mode --identity user-42 --country DE
  flagshipctl variant pricing-test --identity user-42
  flagshipctl configs --env prod --format json`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Base URL of the Flagship API")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for authentication")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "Environment (dev, staging, prod)")
	rootCmd.PersistentFlags().StringVar(&platform, "platform", "", "Platform (ios, android, web)")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
}

// newLoader resolves the effective environment and builds an uncached loader
// against it. CLI invocations are one-shot, so caching would never hit.
func newLoader() (*loader.Loader, error) {
	envCfg, effectiveEnv, err := cli.GetEnvConfig(env, baseURL, apiKey, platform)
	if err != nil {
		return nil, err
	}

	log := zerolog.Nop()
	if verbose {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	tr := transport.NewHTTP(envCfg.BaseURL, envCfg.APIKey, 10*time.Second, log)
	layer := cache.NewLayer(cache.NewMemoryStore(), 0, false, log)
	return loader.New(tr, layer, envCfg.Platform, effectiveEnv, log), nil
}
