/*
DESCRIPTION
  context.go ties the sequence header, reference-frame bookkeeping, and
  seen_frame_header latch together across a sequence of OBUs, dispatching
  each payload to the parser that owns its syntax.

AUTHORS
  av1grain contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package obu

import (
	"github.com/ausocean/av1grain/av1err"
	"github.com/ausocean/av1grain/codec/av1/bits"
	"github.com/ausocean/av1grain/codec/av1/frame"
	"github.com/ausocean/av1grain/codec/av1/refstate"
	"github.com/ausocean/av1grain/codec/av1/seq"
	"github.com/ausocean/av1grain/codec/av1/tilegroup"
)

// Context carries the cross-OBU state a single AV1 bitstream's parse needs:
// the installed sequence header, reference-frame bookkeeping, the previous
// frame header (for show_existing_frame and tile_info inheritance), and the
// seen_frame_header latch that suppresses redundant frame-header parses.
type Context struct {
	SequenceHeader      *seq.SequenceHeader
	RefState            refstate.ReferenceState
	PreviousFrameHeader *frame.FrameHeader
	OBUIndex            int

	seenFrameHeader bool
}

// NewContext returns a fresh Context for the start of a bitstream.
func NewContext() *Context { return &Context{} }

// HandleTemporalDelimiter clears the seen_frame_header latch at the start
// of a new temporal unit, per the temporal_delimiter_obu() semantics.
func (c *Context) HandleTemporalDelimiter() { c.seenFrameHeader = false }

// HandleSequenceHeader installs sh as the active sequence header, replacing
// any prior one: the most recent sequence header always wins.
func (c *Context) HandleSequenceHeader(br *bits.Reader) (*seq.SequenceHeader, error) {
	sh, err := seq.Parse(br)
	if err != nil {
		return nil, err
	}
	c.SequenceHeader = sh
	return sh, nil
}

func (c *Context) prevTileInfo() frame.TileInfo {
	if c.PreviousFrameHeader != nil {
		return c.PreviousFrameHeader.TileInfo
	}
	return frame.TileInfo{}
}

// HandleFrameHeader parses a standalone frame_header_obu (OBU type
// FrameHeaderType or RedundantFrameHdr). It returns (nil, nil) when
// seen_frame_header is already set, mirroring parse_frame_header's
// redundant-copy short circuit.
func (c *Context) HandleFrameHeader(br *bits.Reader, ext Extension) (*frame.FrameHeader, error) {
	if c.seenFrameHeader {
		return nil, nil
	}
	if c.SequenceHeader == nil {
		return nil, av1err.New(av1err.SequenceHeaderMissing).WithPacket(c.OBUIndex)
	}

	fh, err := frame.Parse(br, c.SequenceHeader, &c.RefState, c.prevTileInfo(), frame.Extension{
		TemporalID: ext.TemporalID,
		SpatialID:  ext.SpatialID,
	})
	if err != nil {
		return nil, err
	}

	c.seenFrameHeader = !fh.ShowExistingFrame
	c.PreviousFrameHeader = fh
	return fh, nil
}

// HandleFrame parses a Frame OBU: frame_header_obu() immediately followed
// by byte_alignment() and tile_group_obu() sharing one payload.
func (c *Context) HandleFrame(br *bits.Reader, ext Extension) (*frame.FrameHeader, error) {
	fh, err := c.HandleFrameHeader(br, ext)
	if err != nil {
		return nil, err
	}

	tileInfo := c.prevTileInfo()
	if fh != nil {
		if fh.ShowExistingFrame {
			return fh, nil
		}
		tileInfo = fh.TileInfo
	}

	br.AlignToByte()
	last, err := tilegroup.Handle(br, tileInfo)
	if err != nil {
		return nil, err
	}
	c.CompleteTileGroup(last)
	return fh, nil
}

// HandleTileGroup parses a standalone TileGroup OBU.
func (c *Context) HandleTileGroup(br *bits.Reader) error {
	last, err := tilegroup.Handle(br, c.prevTileInfo())
	if err != nil {
		return err
	}
	c.CompleteTileGroup(last)
	return nil
}

// CompleteTileGroup clears the seen_frame_header latch when last reports
// that the tile group just parsed was the final one for the current frame.
// Exported so callers that drive tile_group_obu() parsing themselves (the
// rewriter, which must know the tile-group byte offset) can still keep the
// latch in sync with Context's bookkeeping.
func (c *Context) CompleteTileGroup(last bool) {
	if last {
		c.seenFrameHeader = false
	}
}
