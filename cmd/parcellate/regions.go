package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lunglab/parcellate/internal/presentation/tui"
)

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Print the region hierarchy",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, _, _, err := setup(cmd, nil)
		if err != nil {
			return err
		}

		describe, _ := cmd.Flags().GetBool("describe")
		if describe {
			render := tui.NewRenderer()
			out, err := render(tui.DescribeMarkdown(engine.Hierarchy()))
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		}

		fmt.Print(tui.RenderTree(engine.Hierarchy()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(regionsCmd)
	regionsCmd.Flags().Bool("describe", false, "Render a markdown description instead of the tree")
}
