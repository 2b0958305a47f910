package main

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/lunglab/parcellate"
	"github.com/lunglab/parcellate/internal/cli"
	"github.com/lunglab/parcellate/internal/logging"
)

// setup loads the config and builds an engine following the shared CLI flags.
func setup(cmd *cobra.Command, metricsReg prometheus.Registerer) (*parcellate.Engine, cli.Config, *slog.Logger, error) {
	configPath, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")

	cfg, err := cli.LoadConfig(configPath)
	if err != nil {
		return nil, cli.Config{}, nil, err
	}

	level := cli.LogLevel(cfg.LogLevel)
	if debug {
		level = slog.LevelDebug
	}
	logger := logging.New(level)

	engine, err := cli.CreateEngine(cfg, logger, metricsReg)
	if err != nil {
		return nil, cli.Config{}, nil, err
	}
	return engine, cfg, logger, nil
}
