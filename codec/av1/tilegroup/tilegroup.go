/*
DESCRIPTION
  tilegroup.go parses the tile_group_obu() header: just enough of it to
  know whether this tile group is the last one covering the current
  frame, which clears the seen_frame_header latch for the next OBU.

AUTHORS
  av1grain contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package tilegroup parses the tile_group_obu() header. Tile data itself
// carries no film-grain information, so only the num_tiles/tg_end
// bookkeeping needed to track seen_frame_header is implemented.
package tilegroup

import (
	"github.com/pkg/errors"

	"github.com/ausocean/av1grain/codec/av1/bits"
	"github.com/ausocean/av1grain/codec/av1/frame"
)

// Handle reads tile_group_obu()'s header fields from br and reports whether
// this tile group is the last one for the current frame (tg_end ==
// num_tiles-1).
func Handle(br *bits.Reader, tileInfo frame.TileInfo) (isLastTileGroup bool, err error) {
	numTiles := tileInfo.TileCols * tileInfo.TileRows

	var tileStartAndEndPresent bool
	if numTiles > 1 {
		v, err := br.ReadBool()
		if err != nil {
			return false, errors.Wrap(err, "tile_start_and_end_present_flag")
		}
		tileStartAndEndPresent = v
	}

	var tgEnd uint32
	if numTiles == 1 || !tileStartAndEndPresent {
		tgEnd = numTiles - 1
	} else {
		tileBits := int(tileInfo.TileColsLog2 + tileInfo.TileRowsLog2)
		if _, err := br.ReadBits(tileBits); err != nil { // tg_start
			return false, errors.Wrap(err, "tg_start")
		}
		v, err := br.ReadBits(tileBits)
		if err != nil {
			return false, errors.Wrap(err, "tg_end")
		}
		tgEnd = uint32(v)
	}

	return tgEnd == numTiles-1, nil
}
