package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lunglab/parcellate"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of parcellate",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("parcellate version %s\n", strings.TrimSpace(parcellate.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
