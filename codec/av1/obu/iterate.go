/*
DESCRIPTION
  iterate.go walks a byte-aligned buffer of concatenated OBUs (one
  container packet's payload), dispatching each to Context and reporting
  the parsed artifacts plus enough framing metadata for the rewriter to
  splice film-grain headers back in.

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
	"bytes"

	"github.com/pkg/errors"

	"github.com/ausocean/av1grain/av1err"
	"github.com/ausocean/av1grain/codec/av1/bits"
	"github.com/ausocean/av1grain/codec/av1/frame"
	"github.com/ausocean/av1grain/codec/av1/seq"
)

// Unit is one parsed OBU within a packet: its header framing plus whichever
// parser output its type produced (only one of SeqHdr/FrameHdr is non-nil).
type Unit struct {
	Header   Header
	SeqHdr   *seq.SequenceHeader
	FrameHdr *frame.FrameHeader
}

// Walk dispatches every OBU in buf through ctx, in order, returning one Unit
// per OBU (including ones Filtered out, so callers can still account for
// their byte ranges when rewriting). curOperatingPointIdc selects which
// extension-layer OBUs are skipped; 0 disables filtering.
func Walk(ctx *Context, buf []byte, curOperatingPointIdc uint16) ([]Unit, error) {
	var units []Unit
	offset := 0

	for offset < len(buf) {
		remaining := buf[offset:]
		br := bits.NewReader(bytes.NewReader(remaining))

		h, err := ParseHeader(br, offset, len(remaining))
		if err != nil {
			return units, errors.Wrapf(err, "obu header at offset %d", offset)
		}

		payloadStart := offset + h.HeaderBytes
		if payloadStart+h.PayloadSize > len(buf) {
			return units, av1err.New(av1err.LengthMismatch).WithField(h.Type.String()).WithPacket(ctx.OBUIndex)
		}
		payload := buf[payloadStart : payloadStart+h.PayloadSize]

		u := Unit{Header: h}

		if !Filtered(h, curOperatingPointIdc) {
			payloadReader := bits.NewReader(bytes.NewReader(payload))
			switch h.Type {
			case TemporalDelimiter:
				ctx.HandleTemporalDelimiter()
			case SequenceHeader:
				sh, err := ctx.HandleSequenceHeader(payloadReader)
				if err != nil {
					return units, errors.Wrapf(err, "sequence_header at offset %d", offset)
				}
				u.SeqHdr = sh
			case FrameHeaderType, RedundantFrameHdr:
				fh, err := ctx.HandleFrameHeader(payloadReader, h.Extension)
				if err != nil {
					return units, errors.Wrapf(err, "frame_header at offset %d", offset)
				}
				u.FrameHdr = fh
			case Frame:
				fh, err := ctx.HandleFrame(payloadReader, h.Extension)
				if err != nil {
					return units, errors.Wrapf(err, "frame at offset %d", offset)
				}
				u.FrameHdr = fh
			case TileGroup:
				if err := ctx.HandleTileGroup(payloadReader); err != nil {
					return units, errors.Wrapf(err, "tile_group at offset %d", offset)
				}
			}
		}

		units = append(units, u)
		ctx.OBUIndex++
		offset = payloadStart + h.PayloadSize
	}

	return units, nil
}
