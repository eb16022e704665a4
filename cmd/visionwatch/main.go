package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is the CLI version, overridable at build time with -ldflags.
var Version = "0.3.0"

var (
	cfgFile       string
	profileFlag   string
	stateFileFlag string
	quietFlag     bool
)

var rootCmd = &cobra.Command{
	Use:   "visionwatch",
	Short: "Vision Helpdesk ticket watcher",
	Long: `visionwatch polls a Vision Helpdesk instance for new and updated
support tickets and turns them into chat alerts, optionally enriched with an
AI-generated triage summary.

One invocation runs one polling cycle; schedule it with cron or a systemd
timer. State between cycles lives in a small JSON file.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&profileFlag, "profile", "p", "", "credential profile")
	rootCmd.PersistentFlags().StringVar(&stateFileFlag, "state-file", "", "state file path")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "only output on new tickets")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
