package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lunglab/parcellate"
	"github.com/lunglab/parcellate/pkg/domain"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <plugin>",
	Short: "Resolve a plugin for a region or region set",
	Long: `Resolves a registered plugin at the requested granularity and prints the
result as JSON. Depending on how the plugin's native region set relates to the
target, the engine invokes it directly, crops a broader run down, or runs it
per child region and composites.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, _, _, err := setup(cmd, nil)
		if err != nil {
			return err
		}

		target, _ := cmd.Flags().GetString("region")
		dataset, _ := cmd.Flags().GetString("dataset")
		argsJSON, _ := cmd.Flags().GetString("args")
		noCache, _ := cmd.Flags().GetBool("no-cache")
		withImage, _ := cmd.Flags().GetBool("image")

		pluginArgs := map[string]any{}
		if argsJSON != "" {
			if err := json.Unmarshal([]byte(argsJSON), &pluginArgs); err != nil {
				return fmt.Errorf("invalid --args JSON: %w", err)
			}
		}

		out, err := engine.Resolve(cmd.Context(), parcellate.Request{
			Plugin:        args[0],
			Target:        target,
			Dataset:       dataset,
			Args:          pluginArgs,
			GenerateImage: withImage,
			AllowCaching:  !noCache,
			Chain:         []string{"cli"},
		})
		if err != nil {
			return err
		}

		raw, err := domain.EncodeResult(out.Result)
		if err != nil {
			return err
		}
		payload := map[string]any{
			"result":  json.RawMessage(raw),
			"was_run": out.WasRun,
		}
		if out.CacheInfo != nil {
			payload["cache_info"] = out.CacheInfo
		}
		if out.Image != nil {
			payload["image"] = map[string]any{"bounds": out.Image.Bounds()}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().StringP("region", "r", "", "Region or region set to resolve (default: hierarchy default)")
	resolveCmd.Flags().StringP("dataset", "d", "default", "Dataset identifier")
	resolveCmd.Flags().String("args", "", "Plugin arguments as a JSON object")
	resolveCmd.Flags().Bool("no-cache", false, "Bypass memoized results")
	resolveCmd.Flags().Bool("image", false, "Also generate an output image")
}
