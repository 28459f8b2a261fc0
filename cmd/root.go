/*
DESCRIPTION
  root.go wires the av1grain command tree together: persistent flags shared
  by every subcommand, and the logger/config setup run before any of them.

AUTHORS
  av1grain contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package cmd implements the av1grain command-line tool: inspect, apply,
// remove, and generate film grain parameters in an AV1 bitstream, and diff
// a source/denoised pair to suggest them.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ausocean/av1grain/internal/config"
	"github.com/ausocean/av1grain/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "av1grain",
	Short: "Inspect and rewrite AV1 film grain synthesis parameters.",
	Long: `av1grain reads and rewrites the film_grain_params() fields inside an
AV1 bitstream, together with the sequence header's film_grain_params_present
bit and the OBU size fields those edits change: coded pixel data, tile
layout, and reference-frame bookkeeping pass through unchanged.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg.Logger = logging.New(logging.ParseLevel(cfg.LogLevel), cfg.LogFile)
	},
	Version:          "v1.0.0",
	TraverseChildren: true,
	SilenceUsage:     true,
}

var cfg config.Config

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	rootCmd.PersistentFlags().StringVarP(&cfg.LogLevel, "log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&cfg.LogFile, "log-file", "", "additionally write logs to this rotating file")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Force, "force", "y", false, "overwrite the output path without prompting")

	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}
