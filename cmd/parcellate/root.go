package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "parcellate",
	Short: "Parcellate resolves plugin computations across a region hierarchy",
	Long: `Parcellate runs plugins written against one anatomical granularity (say, a
single lung) and resolves their results at whatever region a caller asks for,
cropping broader results down or compositing narrower ones up.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}
