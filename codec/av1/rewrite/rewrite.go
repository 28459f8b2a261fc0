/*
DESCRIPTION
  rewrite.go implements the packet assembler: given a packet's OBUs and a
  grain policy decided by the caller, it produces a replacement packet
  whose sequence-header grain-present bit and frame-header grain blocks
  reflect the policy, splicing enclosing OBU size LEB128s when a payload's
  length changes.

AUTHORS
  av1grain contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package rewrite assembles replacement AV1 packets from a grain-rewrite
// policy. It copies each OBU through unchanged except for
// the sequence header's film_grain_params_present bit and each frame
// header's film_grain_params() block, re-encoding the enclosing LEB128 size
// field whenever a payload's length changes.
package rewrite

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/ausocean/av1grain/av1err"
	"github.com/ausocean/av1grain/codec/av1/bits"
	"github.com/ausocean/av1grain/codec/av1/frame"
	"github.com/ausocean/av1grain/codec/av1/grain"
	"github.com/ausocean/av1grain/codec/av1/obu"
	"github.com/ausocean/av1grain/codec/av1/seq"
	"github.com/ausocean/av1grain/codec/av1/tilegroup"
)

// GrainDecision is the caller-supplied replacement for one frame header's
// grain block, along with whether the sequence header's
// film_grain_params_present bit should end up set across the whole stream.
type GrainDecision struct {
	Header       grain.Header
	FrameIsInter bool
}

// Policy decides, for each OBU a packet carries, what its rewritten grain
// state should be. Decide is called once per FrameHeaderType/Frame OBU that
// successfully parsed a non-nil *frame.FrameHeader; SequencePresent is
// consulted once per SequenceHeader OBU.
type Policy interface {
	// SequencePresent reports the film_grain_params_present bit the
	// rewritten sequence header should carry.
	SequencePresent(sh *seq.SequenceHeader) bool
	// Decide returns the grain header to splice in place of fh.FilmGrain.
	Decide(fh *frame.FrameHeader) GrainDecision
}

// Assembler rewrites one packet (a buffer of concatenated OBUs) according
// to policy, using ctx to track cross-OBU parser state exactly as a
// read-only pass would.
type Assembler struct {
	ctx    *obu.Context
	policy Policy
}

// NewAssembler returns an Assembler sharing ctx's sequence/reference state
// with the read path, so a stream can be inspected and rewritten in the
// same pass.
func NewAssembler(ctx *obu.Context, policy Policy) *Assembler {
	return &Assembler{ctx: ctx, policy: policy}
}

// RewritePacket returns the replacement bytes for one packet, or the
// original buf unchanged (a fresh copy) if nothing in it needed rewriting.
func (a *Assembler) RewritePacket(buf []byte, curOperatingPointIdc uint16) ([]byte, error) {
	var out bytes.Buffer
	offset := 0

	for offset < len(buf) {
		remaining := buf[offset:]
		br := bits.NewReader(bytes.NewReader(remaining))

		h, err := obu.ParseHeader(br, 0, len(remaining))
		if err != nil {
			return nil, errors.Wrapf(err, "obu header at offset %d", offset)
		}

		payloadStart := h.HeaderBytes
		if payloadStart+h.PayloadSize > len(remaining) {
			return nil, av1err.New(av1err.LengthMismatch).WithField(h.Type.String()).WithPacket(a.ctx.OBUIndex)
		}
		payload := remaining[payloadStart : payloadStart+h.PayloadSize]

		newPayload := payload
		if !obu.Filtered(h, curOperatingPointIdc) {
			switch h.Type {
			case obu.TemporalDelimiter:
				a.ctx.HandleTemporalDelimiter()
			case obu.SequenceHeader:
				np, err := a.rewriteSequenceHeader(payload)
				if err != nil {
					return nil, errors.Wrapf(err, "sequence_header at offset %d", offset)
				}
				newPayload = np
			case obu.FrameHeaderType, obu.RedundantFrameHdr:
				np, err := a.rewriteFrameHeaderOnly(payload, h.Extension)
				if err != nil {
					return nil, errors.Wrapf(err, "frame_header at offset %d", offset)
				}
				newPayload = np
			case obu.Frame:
				np, err := a.rewriteFrame(payload, h.Extension)
				if err != nil {
					return nil, errors.Wrapf(err, "frame at offset %d", offset)
				}
				newPayload = np
			case obu.TileGroup:
				if err := a.ctx.HandleTileGroup(bits.NewReader(bytes.NewReader(payload))); err != nil {
					return nil, errors.Wrapf(err, "tile_group at offset %d", offset)
				}
			}
		}

		writeHeaderAndPayload(&out, remaining[:payloadStart], h, newPayload)

		a.ctx.OBUIndex++
		offset += payloadStart + h.PayloadSize
	}

	return out.Bytes(), nil
}

// writeHeaderAndPayload copies origHeader (the raw header bytes, extension
// byte and size LEB128 included) through unchanged when newPayload keeps the
// original payload length or the OBU has no size field; otherwise it writes
// the fixed header bytes, a size LEB128 re-encoded for newPayload, and then
// newPayload itself.
func writeHeaderAndPayload(out *bytes.Buffer, origHeader []byte, h obu.Header, newPayload []byte) {
	if !h.HasSizeField || len(newPayload) == h.PayloadSize {
		out.Write(origHeader)
		out.Write(newPayload)
		return
	}
	fixedHeaderLen := h.HeaderBytes - h.SizeFieldLen
	out.Write(origHeader[:fixedHeaderLen])
	bw := bits.NewWriter()
	bw.WriteLEB128(uint64(len(newPayload)))
	out.Write(bw.Bytes())
	out.Write(newPayload)
}

// rewriteSequenceHeader flips film_grain_params_present in place; a
// single-bit change never alters the payload's length.
func (a *Assembler) rewriteSequenceHeader(payload []byte) ([]byte, error) {
	br := bits.NewReader(bytes.NewReader(payload))
	sh, err := a.ctx.HandleSequenceHeader(br)
	if err != nil {
		return nil, err
	}

	want := a.policy.SequencePresent(sh)
	out := append([]byte(nil), payload...)
	flipBit(out, sh.GrainPresentBitPos, want)
	return out, nil
}

// flipBit sets bit bitPos (0 = MSB of byte 0) of buf to v.
func flipBit(buf []byte, bitPos int, v bool) {
	byteIdx := bitPos / 8
	bitIdx := uint(7 - bitPos%8)
	if v {
		buf[byteIdx] |= 1 << bitIdx
	} else {
		buf[byteIdx] &^= 1 << bitIdx
	}
}

// rewriteFrameHeaderOnly rewrites a standalone FrameHeaderType/
// RedundantFrameHdr OBU's payload.
func (a *Assembler) rewriteFrameHeaderOnly(payload []byte, ext obu.Extension) ([]byte, error) {
	br := bits.NewReader(bytes.NewReader(payload))
	fh, err := a.ctx.HandleFrameHeader(br, ext)
	if err != nil {
		return nil, err
	}
	if fh == nil || fh.ShowExistingFrame {
		return payload, nil
	}
	return spliceGrain(payload, fh, a.policy.Decide(fh))
}

// rewriteFrame rewrites a Frame OBU: frame_header_obu() followed by
// byte_alignment() and tile_group_obu() in the same payload. Only the
// frame-header prefix up to and including trailing_bits() can change
// length; the tile-group suffix is copied through unchanged.
func (a *Assembler) rewriteFrame(payload []byte, ext obu.Extension) ([]byte, error) {
	br := bits.NewReader(bytes.NewReader(payload))
	fh, err := a.ctx.HandleFrameHeader(br, ext)
	if err != nil {
		return nil, err
	}
	if fh == nil {
		return nil, errors.New("frame obu: frame_header_obu returned no header (seen_frame_header already set)")
	}

	tileInfo := fh.TileInfo
	br.AlignToByte()
	tileGroupStart := br.BitPos() / 8

	last, err := tilegroup.Handle(br, tileInfo)
	if err != nil {
		return nil, err
	}
	a.ctx.CompleteTileGroup(last)

	if fh.ShowExistingFrame {
		return payload, nil
	}

	newHeader, err := spliceGrain(payload[:tileGroupStart], fh, a.policy.Decide(fh))
	if err != nil {
		return nil, err
	}
	return append(newHeader, payload[tileGroupStart:]...), nil
}

// spliceGrain copies headerPayload verbatim up to fh.GrainBitStart, writes
// decision.Header in its place, and pads to a byte boundary with AV1's
// trailing_bits() convention (a single 1 bit followed by zero bits).
//
// When GrainBitStart equals GrainBitEnd, film_grain_params() read zero bits
// originally (film_grain_params_present was false, or neither show_frame
// nor showable_frame held for this frame) — a decoder parsing the rewritten
// stream will apply the same gate, so the payload is returned unchanged
// regardless of what the policy decided. Re-padding in this case would
// shift the trailing bits and break strip idempotence.
func spliceGrain(headerPayload []byte, fh *frame.FrameHeader, decision GrainDecision) ([]byte, error) {
	if fh.GrainBitStart == fh.GrainBitEnd {
		return headerPayload, nil
	}

	src := bits.NewReader(bytes.NewReader(headerPayload))
	dst := bits.NewWriter()

	if err := bits.CopyBits(dst, src, fh.GrainBitStart); err != nil {
		return nil, errors.Wrap(err, "copying frame header prefix")
	}

	rp := fh.GrainReadParams
	rp.FrameIsInter = decision.FrameIsInter
	grain.Write(dst, decision.Header, rp)

	if !dst.Aligned() {
		dst.WriteBool(true)
		for !dst.Aligned() {
			dst.WriteBool(false)
		}
	}

	return dst.Bytes(), nil
}
