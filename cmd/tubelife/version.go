package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/tubelife"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of tubelife",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tubelife version %s\n", strings.TrimSpace(tubelife.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
