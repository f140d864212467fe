package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/patmalcolm91/bikesimtools/bikesim"
)

var validateFile string // Path to the scenario YAML file

// validateCmd parses and validates a scenario file without connecting to
// SUMO
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a scenario file for errors",
	Run: func(cmd *cobra.Command, args []string) {
		spec, err := bikesim.LoadScenario(validateFile)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		fmt.Printf("%s: OK (%d flows, %d triggered, %d conflicts)\n",
			validateFile, len(spec.Flows), len(spec.TriggeredFlows), len(spec.Conflicts))
	},
}

// init sets up CLI flags and subcommands
func init() {
	validateCmd.Flags().StringVar(&validateFile, "scenario", "", "Path to the scenario YAML file")
	_ = validateCmd.MarkFlagRequired("scenario")

	rootCmd.AddCommand(validateCmd)
}
