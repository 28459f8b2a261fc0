/*
DESCRIPTION
  diff.go implements `av1grain diff`: compare a source video against its
  denoised counterpart, frame by frame, and suggest a grain table whose
  segments cover the frames where the comparison indicates visible grain.
  av1grain does not decode AV1 pictures, so both inputs here are raw planar
  8-bit luma: width*height bytes per frame, concatenated with no header.

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
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ausocean/av1grain/codec/av1/grain"
	"github.com/ausocean/av1grain/diffengine"
	"github.com/ausocean/av1grain/diffengine/filterchain"
	"github.com/ausocean/av1grain/grtable"
	"github.com/ausocean/av1grain/photonnoise"
	"github.com/ausocean/av1grain/timeline"
)

// isoPerDiffUnit converts a mean-abs-diff statistic into a rough simulated
// ISO to drive photonnoise.Generate: higher measured noise maps to a higher
// ISO, which widens the synthesized scaling curve accordingly.
const isoPerDiffUnit = 40.0

var diffCmd = &cobra.Command{
	Use:   "diff <source> <denoised>",
	Short: "Suggest a grain table from a source/denoised frame comparison",
	Args:  cobra.ExactArgs(2),
	RunE: func(c *cobra.Command, args []string) error {
		if diffWidth <= 0 || diffHeight <= 0 {
			return errors.New("diff: --width and --height are required")
		}
		chain, err := filterchain.Parse(cfg.FilterChain)
		if err != nil {
			return err
		}

		srcFile, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer srcFile.Close()
		denFile, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer denFile.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		srcCh := make(chan diffengine.Frame)
		denCh := make(chan diffengine.Frame)
		go feedRawPlanes(ctx, srcFile, diffWidth, diffHeight, chain, srcCh)
		go feedRawPlanes(ctx, denFile, diffWidth, diffHeight, chain, denCh)

		engine := diffengine.NewEngine(diffThreshold)
		stats := engine.Run(ctx, srcCh, denCh)

		agg := timeline.NewAggregator(uint64(diffFPSNum), uint64(diffFPSDen))
		for stat := range stats {
			agg.Push(statToGrain(stat))
		}

		out, err := openOutput(diffOut, cfg.Force)
		if err != nil {
			return err
		}
		defer out.Close()

		segments := agg.Segments()
		cfg.Logger.Info("diff complete", "source", args[0], "denoised", args[1], "segments", len(segments))
		return grtable.WriteFile(out, segments)
	},
}

func statToGrain(s diffengine.Stat) grain.Header {
	if !s.HasGrain {
		return grain.Header{Variant: grain.Disable}
	}
	iso := int(s.MeanAbsDiff * isoPerDiffUnit)
	params := photonnoise.Generate(photonnoise.Options{ISO: iso, Seed: uint16(s.Index)})
	return grain.Header{Variant: grain.UpdateGrain, Params: params}
}

// feedRawPlanes reads fixed-size raw luma frames from r, applies chain, and
// sends each as a diffengine.Frame until r is exhausted or ctx is canceled.
func feedRawPlanes(ctx context.Context, r io.Reader, width, height int, chain *filterchain.Chain, out chan<- diffengine.Frame) {
	defer close(out)
	frameSize := width * height
	buf := make([]byte, frameSize)
	for index := 0; ; index++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return
		}
		luma := make([]float64, frameSize)
		for i, b := range buf {
			luma[i] = float64(b)
		}
		f := chain.Apply(diffengine.Frame{Index: index, Luma: luma, Width: width, Height: height})
		select {
		case out <- f:
		case <-ctx.Done():
			return
		}
	}
}

var (
	diffOut       string
	diffWidth     int
	diffHeight    int
	diffFPSNum    int
	diffFPSDen    int
	diffThreshold float64
)

func init() {
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().StringVarP(&diffOut, "output", "o", "", "output grain table path")
	diffCmd.MarkFlagRequired("output")
	diffCmd.Flags().StringVarP(&cfg.FilterChain, "filters", "f", "", "crop/resize filter chain applied to both inputs before comparison")
	diffCmd.Flags().IntVar(&diffWidth, "width", 0, "raw luma plane width in pixels")
	diffCmd.Flags().IntVar(&diffHeight, "height", 0, "raw luma plane height in pixels")
	diffCmd.Flags().IntVar(&diffFPSNum, "fps-num", 30, "frame rate numerator")
	diffCmd.Flags().IntVar(&diffFPSDen, "fps-den", 1, "frame rate denominator")
	diffCmd.Flags().Float64Var(&diffThreshold, "threshold", 0, "mean-abs-diff threshold for flagging grain (0 uses the engine default)")
}
