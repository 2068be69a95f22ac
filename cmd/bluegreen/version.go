package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/bluegreen"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of bluegreen",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "bluegreen version %s\n", strings.TrimSpace(bluegreen.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
