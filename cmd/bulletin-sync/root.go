package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ignite/bulletin-sync/internal/config"
	"github.com/ignite/bulletin-sync/internal/pkg/logger"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "bulletin-sync",
	Short: "Sync bulletin signups to the directory and dispatch the weather bulletin",
	Long: `bulletin-sync keeps the contact directory in line with bulletin signups
and sends the weather bulletin to every opted-in contact.

  import    reconcile a record file into the directory and tag interested contacts
  dispatch  send the bulletin, clone the recurring campaign and trigger it
  serve     expose both runs over HTTP and run the daily dispatch schedule`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadFromEnv(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		return logger.Init(level, cfg.Logging.Redact())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file (env vars override it)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(dispatchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
