/*
DESCRIPTION
  apply.go implements `av1grain apply`: splice a grain table's segments
  into the bitstream, keyed by each packet's presentation time.

AUTHORS
  av1grain contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ausocean/av1grain/grtable"
)

var applyCmd = &cobra.Command{
	Use:   "apply <input>",
	Short: "Apply a grain table's film grain parameters to the bitstream",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		table, err := os.Open(cfg.GrainTablePath)
		if err != nil {
			return err
		}
		segments, err := grtable.ReadFile(table)
		table.Close()
		if err != nil {
			return err
		}

		in, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer in.Close()

		out, err := openOutput(applyOut, cfg.Force)
		if err != nil {
			return err
		}
		defer out.Close()

		policy := newApplyPolicy(segments)
		cfg.Logger.Info("applying grain table", "input", args[0], "table", cfg.GrainTablePath, "segments", len(segments))
		return rewriteIVF(in, out, policy, policy.advance, func(i int, err error) {
			cfg.Logger.Error("rewrite failed", "packet", i, "error", err.Error())
		})
	},
}

var applyOut string

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().StringVarP(&applyOut, "output", "o", "", "output IVF path")
	applyCmd.MarkFlagRequired("output")
	applyCmd.Flags().StringVarP(&cfg.GrainTablePath, "grain-table", "g", "", "grain table to apply")
	applyCmd.MarkFlagRequired("grain-table")
}
