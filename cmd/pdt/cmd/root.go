// Package cmd implements the pdt CLI commands.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	apiclient "github.com/donaldgifford/price-drop-tracker/internal/api/client"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "pdt",
		Short: "CLI client for Price Drop Tracker",
		Long: "pdt is a command-line client for the Price Drop Tracker API.\n" +
			"It lets you manage a user's subscriptions, run a price scan on demand,\n" +
			"and inspect scan history from the terminal.",
		SilenceUsage: true,
	}
)

// Root returns the root cobra command for documentation generation.
func Root() *cobra.Command {
	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().
		StringVar(&cfgFile, "config", "", "config file (default $HOME/.pdt.yaml)")
	rootCmd.PersistentFlags().
		String("server", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().
		String("output", "table", "output format (table, json)")
	rootCmd.PersistentFlags().
		String("currency", "RUB", "currency code used when printing prices")

	cobra.CheckErr(viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server")))
	cobra.CheckErr(viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output")))
	cobra.CheckErr(viper.BindPFlag("currency", rootCmd.PersistentFlags().Lookup("currency")))

	rootCmd.AddCommand(
		searchCmd(),
		subscribeCmd(),
		subscriptionsCmd(),
		unsubscribeCmd(),
		scanCmd(),
		jobsCmd(),
		quotaCmd(),
	)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".pdt")
	}

	viper.SetEnvPrefix("PDT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func newClient() *apiclient.Client {
	return apiclient.New(viper.GetString("server"))
}

func jsonOutput() bool {
	return viper.GetString("output") == "json"
}

// addUserFlag registers --user on cmd. When the flag is not given the user
// comes from PDT_USER or the config file's "user" key.
func addUserFlag(cmd *cobra.Command) {
	cmd.Flags().Int64("user", 0, "user id to act for (default $PDT_USER)")
}

func userID(cmd *cobra.Command) (int64, error) {
	id, err := cmd.Flags().GetInt64("user")
	if err != nil {
		return 0, err
	}
	if id == 0 {
		id = viper.GetInt64("user")
	}
	if id == 0 {
		return 0, errors.New("a user id is required: pass --user or set PDT_USER")
	}
	return id, nil
}
