/*
DESCRIPTION
  header_test.go provides testing for OBU header parsing and
  extension-layer filtering.

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
	"testing"

	"github.com/ausocean/av1grain/codec/av1/bits"
)

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name      string
		in        []byte
		enclosing int
		want      Header
		wantErr   bool
	}{
		{
			name:      "sequence header with one-byte size",
			in:        []byte{0x0A, 0x05},
			enclosing: 7,
			want: Header{
				Type:            SequenceHeader,
				HasSizeField:    true,
				HeaderBytes:     2,
				PayloadSize:     5,
				SizeFieldOffset: 1,
				SizeFieldLen:    1,
			},
		},
		{
			name:      "temporal delimiter, zero size",
			in:        []byte{0x12, 0x00},
			enclosing: 2,
			want: Header{
				Type:            TemporalDelimiter,
				HasSizeField:    true,
				HeaderBytes:     2,
				PayloadSize:     0,
				SizeFieldOffset: 1,
				SizeFieldLen:    1,
			},
		},
		{
			name:      "frame with extension",
			in:        []byte{0x36, 0x48, 0x02},
			enclosing: 5,
			want: Header{
				Type:            Frame,
				HasExtension:    true,
				Extension:       Extension{TemporalID: 2, SpatialID: 1},
				HasSizeField:    true,
				HeaderBytes:     3,
				PayloadSize:     2,
				SizeFieldOffset: 2,
				SizeFieldLen:    1,
			},
		},
		{
			name:      "no size field infers from enclosing",
			in:        []byte{0x30, 0xAA, 0xBB, 0xCC},
			enclosing: 4,
			want: Header{
				Type:            Frame,
				HasSizeField:    false,
				HeaderBytes:     1,
				PayloadSize:     3,
				SizeFieldOffset: -1,
			},
		},
		{
			name:      "two-byte leb128 size",
			in:        append([]byte{0x0A, 0x80, 0x01}, make([]byte, 128)...),
			enclosing: 131,
			want: Header{
				Type:            SequenceHeader,
				HasSizeField:    true,
				HeaderBytes:     3,
				PayloadSize:     128,
				SizeFieldOffset: 1,
				SizeFieldLen:    2,
			},
		},
		{
			name:      "forbidden bit set",
			in:        []byte{0x8A, 0x00},
			enclosing: 2,
			wantErr:   true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			br := bits.NewReader(bytes.NewReader(test.in))
			got, err := ParseHeader(br, 0, test.enclosing)
			if (err != nil) != test.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if test.wantErr {
				return
			}
			if got != test.want {
				t.Errorf("did not get expected header\nGot: %+v\nWant: %+v\n", got, test.want)
			}
		})
	}
}

func TestFiltered(t *testing.T) {
	tests := []struct {
		name string
		h    Header
		idc  uint16
		want bool
	}{
		{
			name: "sequence header never filtered",
			h:    Header{Type: SequenceHeader, HasExtension: true, Extension: Extension{TemporalID: 7, SpatialID: 3}},
			idc:  0x001,
			want: false,
		},
		{
			name: "no extension never filtered",
			h:    Header{Type: Frame},
			idc:  0x001,
			want: false,
		},
		{
			name: "idc zero disables filtering",
			h:    Header{Type: Frame, HasExtension: true, Extension: Extension{TemporalID: 5}},
			idc:  0,
			want: false,
		},
		{
			name: "in both layers",
			h:    Header{Type: Frame, HasExtension: true, Extension: Extension{TemporalID: 1, SpatialID: 0}},
			idc:  (1 << 1) | (1 << 8),
			want: false,
		},
		{
			name: "outside temporal layer",
			h:    Header{Type: Frame, HasExtension: true, Extension: Extension{TemporalID: 2, SpatialID: 0}},
			idc:  (1 << 1) | (1 << 8),
			want: true,
		},
		{
			name: "outside spatial layer",
			h:    Header{Type: TileGroup, HasExtension: true, Extension: Extension{TemporalID: 1, SpatialID: 1}},
			idc:  (1 << 1) | (1 << 8),
			want: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Filtered(test.h, test.idc); got != test.want {
				t.Errorf("did not get expected result\nGot: %v\nWant: %v\n", got, test.want)
			}
		})
	}
}

func TestTypeString(t *testing.T) {
	if got := SequenceHeader.String(); got != "sequence_header" {
		t.Errorf("unexpected String for SequenceHeader: %v", got)
	}
	if got := Type(12).String(); got != "reserved" {
		t.Errorf("unexpected String for reserved type: %v", got)
	}
}
