/*
DESCRIPTION
  inspect.go implements `av1grain inspect`: walk a bitstream's OBUs and
  report the film grain timeline as either a grain table or JSON.

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
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/ausocean/av1grain/av1err"
	"github.com/ausocean/av1grain/codec/av1/obu"
	"github.com/ausocean/av1grain/container/ivf"
	"github.com/ausocean/av1grain/grtable"
	"github.com/ausocean/av1grain/timeline"
)

var inspectJSON = jsoniter.ConfigCompatibleWithStandardLibrary

var inspectCmd = &cobra.Command{
	Use:   "inspect <input>",
	Short: "Report the film grain timeline of a bitstream",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		in, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer in.Close()

		demux, err := ivf.NewDemuxer(in)
		if err != nil {
			return err
		}
		hdr := demux.Header()
		if got := string(hdr.FourCC[:]); got != ivf.FourCC {
			return av1err.New(av1err.UnsupportedFeature).WithField("codec " + got)
		}
		agg := timeline.NewAggregator(uint64(hdr.RateNum), uint64(hdr.RateDen))

		ctx := obu.NewContext()
		for i := 0; ; i++ {
			pkt, err := demux.ReadPacket()
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
			units, err := obu.Walk(ctx, pkt.Data, 0)
			if err != nil {
				cfg.Logger.Error("inspect: malformed packet", "packet", i, "error", err.Error())
				return err
			}
			for _, u := range units {
				if u.FrameHdr != nil {
					agg.Push(u.FrameHdr.FilmGrain)
				}
			}
		}

		segments := agg.Segments()
		cfg.Logger.Info("inspected bitstream", "input", args[0], "segments", len(segments))

		var w io.Writer = os.Stdout
		if inspectOut != "" {
			f, err := openOutput(inspectOut, cfg.Force)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}

		if inspectJSONOut {
			enc := inspectJSON.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(segments)
		}
		return grtable.WriteFile(w, segments)
	},
}

var (
	inspectOut     string
	inspectJSONOut bool
)

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVarP(&inspectOut, "output", "o", "", "write the grain timeline here instead of stdout")
	inspectCmd.Flags().BoolVar(&inspectJSONOut, "json", false, "report as JSON instead of a grain table")
}
