// Package cmd implements the commands of the price-drop-tracker server.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "price-drop-tracker",
	Short: "Watch product prices and notify subscribers of drops",
	Long: "A service that keeps per-user product subscriptions, periodically checks current " +
		"prices through a price oracle, and notifies users when a price falls below their reference.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file loaded before the config")
	rootCmd.AddCommand(versionCommand())
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
