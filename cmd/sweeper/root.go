package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"

	configPath string
	debugLog   bool

	rootCmd = &cobra.Command{
		Use:   "sweeper",
		Short: "Cloud resource janitor",
		Long: `Sweeper - Cloud Resource Janitor

Sweeper periodically scans cloud accounts for resources that violate
cleanup rules, marks them for deletion, notifies their owners, and
deletes them once the grace period has elapsed.

Every namespace (account, region, resource type) runs its own
mark/notify/delete cycle with per-namespace policy: age thresholds,
retention periods, exclusions, and opt-outs.`,
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			if debugLog {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`Sweeper {{.Version}} - Cloud Resource Janitor
`)
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "sweeper.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "Enable debug logging")
}
