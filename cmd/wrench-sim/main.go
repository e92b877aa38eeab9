// Command wrench-sim is a composition root and demo harness for the
// wrench execution kernel: it wires a Config, a set of execution
// hosts, and the batch/serverless/cloud services, then drives one of
// the built-in end-to-end scenarios on a virtual clock, printing the
// resulting event stream. It is scaffolding for exercising the
// kernel, not a scheduling front-end.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/wrench-sim/wrench/pkg/log"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "wrench-sim",
	Short:   "Run wrench execution-kernel demo scenarios",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("wrench-sim version %s (%s)\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the built-in demo scenarios",
	RunE: func(cmd *cobra.Command, args []string) error {
		names := make([]string, 0, len(scenarios))
		for name := range scenarios {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%-4s %s\n", name, scenarios[name].description)
		}
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run SCENARIO",
	Short: "Run a built-in demo scenario to completion and print its events",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		sc, ok := scenarios[name]
		if !ok {
			return fmt.Errorf("unknown scenario %q (see 'wrench-sim list')", name)
		}
		configPath, _ := cmd.Flags().GetString("config")

		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		fmt.Printf("=== %s ===\n%s\n\n", name, sc.description)
		events, err := sc.run(cfg)
		if err != nil {
			return fmt.Errorf("running scenario %s: %w", name, err)
		}
		for _, e := range events {
			printEvent(e)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().String("config", "", "Path to a YAML config file (defaults applied for keys it omits)")
}
