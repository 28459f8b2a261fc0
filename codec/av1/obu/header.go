/*
DESCRIPTION
  header.go parses the AV1 OBU (Open Bitstream Unit) header: the 1- or
  2-byte framing envelope preceding every sequence header, frame header,
  tile group, frame, metadata, or padding payload.

AUTHORS
  av1grain contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package obu parses and dispatches AV1 Open Bitstream Units: the header,
// the optional LEB128 payload size, and extension-layer filtering, driving
// the sequence-header, frame-header, and tile-group parsers per OBU type.
package obu

import (
	"github.com/pkg/errors"

	"github.com/ausocean/av1grain/codec/av1/bits"
)

// Type is the 4-bit obu_type tag.
type Type uint8

const (
	Reserved0           Type = 0
	SequenceHeader      Type = 1
	TemporalDelimiter   Type = 2
	FrameHeaderType     Type = 3
	TileGroup           Type = 4
	Metadata            Type = 5
	Frame               Type = 6
	RedundantFrameHdr   Type = 7
	TileList            Type = 8
	Padding             Type = 15
)

func (t Type) String() string {
	switch t {
	case SequenceHeader:
		return "sequence_header"
	case TemporalDelimiter:
		return "temporal_delimiter"
	case FrameHeaderType:
		return "frame_header"
	case TileGroup:
		return "tile_group"
	case Metadata:
		return "metadata"
	case Frame:
		return "frame"
	case RedundantFrameHdr:
		return "redundant_frame_header"
	case TileList:
		return "tile_list"
	case Padding:
		return "padding"
	default:
		return "reserved"
	}
}

// Extension carries the spatial/temporal scalability layer tags present
// when obu_extension_flag is set.
type Extension struct {
	TemporalID uint8 // 0..7
	SpatialID  uint8 // 0..3
}

// Header is the parsed obu_header(), immutable once returned by ParseHeader.
type Header struct {
	Type            Type
	HasExtension    bool
	Extension       Extension
	HasSizeField    bool
	HeaderBytes     int // bytes consumed by header + optional extension byte
	PayloadSize     int // resolved payload size, from LEB128 or enclosing length
	SizeFieldOffset int // byte offset of the LEB128 size field within the packet, -1 if absent
	SizeFieldLen    int // byte length of the LEB128 size field, 0 if absent
}

// ParseHeader reads obu_header() and, if present, the LEB128 obu_size,
// resolving PayloadSize against enclosingRemaining when has_size_field is
// clear. offset is the byte position of the header within the enclosing
// packet; SizeFieldOffset is recorded relative to it.
func ParseHeader(br *bits.Reader, offset int, enclosingRemaining int) (Header, error) {
	var h Header

	forbidden, err := br.ReadBits(1)
	if err != nil {
		return h, errors.Wrap(err, "obu_forbidden_bit")
	}
	if forbidden != 0 {
		return h, errors.New("obu_forbidden_bit must be 0")
	}

	typ, err := br.ReadBits(4)
	if err != nil {
		return h, errors.Wrap(err, "obu_type")
	}
	h.Type = Type(typ)

	extFlag, err := br.ReadBits(1)
	if err != nil {
		return h, errors.Wrap(err, "obu_extension_flag")
	}
	h.HasExtension = extFlag != 0

	hasSize, err := br.ReadBits(1)
	if err != nil {
		return h, errors.Wrap(err, "obu_has_size_field")
	}
	h.HasSizeField = hasSize != 0

	if err := br.ReadZero(1); err != nil {
		return h, errors.Wrap(err, "obu_reserved_1bit")
	}

	h.HeaderBytes = 1

	if h.HasExtension {
		tid, err := br.ReadBits(3)
		if err != nil {
			return h, errors.Wrap(err, "temporal_id")
		}
		sid, err := br.ReadBits(2)
		if err != nil {
			return h, errors.Wrap(err, "spatial_id")
		}
		if err := br.ReadZero(3); err != nil {
			return h, errors.Wrap(err, "extension_header_reserved_3bits")
		}
		h.Extension = Extension{TemporalID: uint8(tid), SpatialID: uint8(sid)}
		h.HeaderBytes++
	}

	if h.HasSizeField {
		size, n, err := br.ReadLEB128()
		if err != nil {
			return h, errors.Wrap(err, "obu_size")
		}
		h.PayloadSize = int(size)
		h.SizeFieldOffset = offset + h.HeaderBytes
		h.SizeFieldLen = n
		h.HeaderBytes += n
	} else {
		h.PayloadSize = enclosingRemaining - h.HeaderBytes
		h.SizeFieldOffset = -1
	}

	return h, nil
}

// Filtered reports whether this OBU should be skipped by extension-layer
// filtering: types other than SequenceHeader and TemporalDelimiter,
// carrying an extension, are dropped when the currently selected operating
// point's idc excludes their temporal/spatial layer.
func Filtered(h Header, curOperatingPointIdc uint16) bool {
	if h.Type == SequenceHeader || h.Type == TemporalDelimiter {
		return false
	}
	if !h.HasExtension || curOperatingPointIdc == 0 {
		return false
	}
	inTemporal := (curOperatingPointIdc>>h.Extension.TemporalID)&1 != 0
	inSpatial := (curOperatingPointIdc>>(uint(h.Extension.SpatialID)+8))&1 != 0
	return !(inTemporal && inSpatial)
}
