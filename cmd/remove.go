/*
DESCRIPTION
  remove.go implements `av1grain remove`: strip film grain synthesis from
  every frame, idempotently.

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
)

var removeCmd = &cobra.Command{
	Use:   "remove <input>",
	Short: "Disable film grain synthesis throughout the bitstream",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		in, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer in.Close()

		out, err := openOutput(removeOut, cfg.Force)
		if err != nil {
			return err
		}
		defer out.Close()

		cfg.Logger.Info("removing film grain", "input", args[0], "output", removeOut)
		return rewriteIVF(in, out, removePolicy{}, nil, func(i int, err error) {
			cfg.Logger.Error("rewrite failed", "packet", i, "error", err.Error())
		})
	},
}

var removeOut string

func init() {
	rootCmd.AddCommand(removeCmd)
	removeCmd.Flags().StringVarP(&removeOut, "output", "o", "", "output IVF path")
	removeCmd.MarkFlagRequired("output")
}
