package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"contact-guard/pkg/guard"
)

var (
	verbose    bool
	policyFile string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "contact-guard",
	Short: "Validates, rate limits and relays contact form submissions",
	Long: `contact-guard sits between a static site's contact form and EmailJS.

It rejects bot, spam and malformed submissions, limits how often a visitor
can write, and forwards accepted messages to the mail relay.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}

		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&policyFile, "policy", "", "YAML policy file (overrides POLICY_FILE)")

	rootCmd.AddCommand(serveCmd, checkCmd)
}

// loadPolicy resolves the guard policy from --policy, then POLICY_FILE,
// then the built-in defaults.
func loadPolicy(fromEnv string) (guard.Policy, error) {
	path := policyFile
	if path == "" {
		path = fromEnv
	}
	if path == "" {
		return guard.DefaultPolicy(), nil
	}
	return guard.LoadPolicy(path)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
