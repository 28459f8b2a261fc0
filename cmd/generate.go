/*
DESCRIPTION
  generate.go implements `av1grain generate`: synthesize film grain
  parameters from a simulated sensor ISO and stamp them onto every frame.

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
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ausocean/av1grain/photonnoise"
)

var generateCmd = &cobra.Command{
	Use:   "generate <input>",
	Short: "Synthesize film grain parameters from a simulated sensor ISO",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		in, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer in.Close()

		out, err := openOutput(generateOut, cfg.Force)
		if err != nil {
			return err
		}
		defer out.Close()

		seed := rand.New(rand.NewSource(time.Now().UnixNano())).Intn(1 << 16)
		params := photonnoise.Generate(photonnoise.Options{
			ISO:    cfg.ISO,
			Chroma: cfg.Chroma,
			Seed:   uint16(seed),
		})

		cfg.Logger.Info("generating film grain", "input", args[0], "iso", cfg.ISO, "chroma", cfg.Chroma, "seed", seed)
		return rewriteIVF(in, out, generatePolicy{params: params}, nil, func(i int, err error) {
			cfg.Logger.Error("rewrite failed", "packet", i, "error", err.Error())
		})
	},
}

var generateOut string

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVarP(&generateOut, "output", "o", "", "output IVF path")
	generateCmd.MarkFlagRequired("output")
	generateCmd.Flags().IntVar(&cfg.ISO, "iso", 100, "simulated sensor ISO")
	generateCmd.Flags().BoolVar(&cfg.Chroma, "chroma", false, "synthesize independent chroma grain instead of deriving it from luma")
}
