package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var logLevel string // Log verbosity level

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "bikesimtools",
	Short: "Couple a SUMO traffic simulation with a driving simulator",
	Long: `bikesimtools connects to a running SUMO instance over TraCI and keeps
it in sync with a driving simulator over UDP: it receives ego vehicle
updates, fires polygon triggers, runs dynamic traffic flows, and times
conflict vehicles to meet the ego vehicle at intersections.`,
}

// setupLogging applies the --log flag before any command runs.
func setupLogging(cmd *cobra.Command, args []string) {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentPreRun = setupLogging
}
