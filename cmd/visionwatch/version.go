package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the visionwatch version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("visionwatch %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
