// Package cli implements the rollcall command tree.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/okian/rollcall/internal/config"
)

// NewRootCmd builds the command tree. Each call returns fresh flag state.
func NewRootCmd() *cobra.Command {
	var (
		configPath string
		envFile    string
	)
	root := &cobra.Command{
		Use:   "rollcall",
		Short: "Turn face-recognition sightings into daily attendance",
		Long: `rollcall debounces per-frame identity matches into confirmed presences and
records each subject at most once per calendar day in a durable ledger.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			// .env is optional
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("load %s: %w", envFile, err)
				}
			}
			if configPath != "" {
				if err := os.Setenv(config.EnvFile, configPath); err != nil {
					return fmt.Errorf("set %s: %w", config.EnvFile, err)
				}
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (overrides "+config.EnvFile+")")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before configuration")

	root.AddCommand(
		newServeCmd(),
		newReplayCmd(),
		newTodayCmd(),
		newArchiveCmd(),
	)
	return root
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
