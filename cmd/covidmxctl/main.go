// Command covidmxctl manages the case database and prints dashboard
// figures from the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"covidmx/internal/cli"
	"covidmx/internal/config"
	applog "covidmx/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "covidmxctl",
	Short: "Manage the COVID-19 Mexico case database",
	Long: `covidmxctl prepares and inspects the data behind the covidmx dashboard.

Available subcommands:
  migrate - Create or upgrade the SQLite case tables
  import  - Load an open-data CSV file into a year table
  summary - Print the headline figures of a year`,
	SilenceUsage: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		cli.LoadEnvFile()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd, importCmd, summaryCmd)
}

// setup loads the configuration and the logger every subcommand needs.
func setup() (*config.Config, *applog.Logger, error) {
	cfg, err := cli.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	return cfg, cli.SetupLogger(cfg).WithComponent(applog.ComponentCLI), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
