package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/haptix"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of haptix",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "haptix version %s\n", strings.TrimSpace(haptix.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
