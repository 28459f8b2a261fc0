/*
DESCRIPTION
  bitreader_test.go provides testing for the Reader's fixed-width, signed,
  non-symmetric, variable-length, and LEB128 read primitives.

AUTHORS
  av1grain contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package bits

import (
	"bytes"
	"io"
	"testing"
)

func TestReadBits(t *testing.T) {
	tests := []struct {
		in    string
		reads []int
		want  []uint64
	}{
		{
			in:    "10010110",
			reads: []int{8},
			want:  []uint64{0x96},
		},
		{
			in:    "10010110",
			reads: []int{3, 5},
			want:  []uint64{4, 0x16},
		},
		{
			in:    "10010110 11010101",
			reads: []int{3, 10, 3},
			want:  []uint64{4, 0x2DA, 5},
		},
		{
			in:    "10010110 11010101 11110000",
			reads: []int{0, 24},
			want:  []uint64{0, 0x96D5F0},
		},
	}

	for i, test := range tests {
		b, err := binToSlice(test.in)
		if err != nil {
			t.Fatalf("unexpected binToSlice error: %v for test: %d", err, i)
		}
		br := NewReader(bytes.NewReader(b))

		for j, n := range test.reads {
			got, err := br.ReadBits(n)
			if err != nil {
				t.Fatalf("unexpected ReadBits error: %v for test: %d read: %d", err, i, j)
			}
			if got != test.want[j] {
				t.Errorf("did not get expected result for test %d read %d\nGot: %v\nWant: %v\n", i, j, got, test.want[j])
			}
		}
	}
}

func TestReadBitsUnderflow(t *testing.T) {
	br := NewReader(bytes.NewReader([]byte{0xFF}))
	if _, err := br.ReadBits(9); err != io.ErrUnexpectedEOF {
		t.Errorf("expected io.ErrUnexpectedEOF, got: %v", err)
	}
}

func TestReadZero(t *testing.T) {
	tests := []struct {
		in      string
		n       int
		wantErr bool
	}{
		{in: "00000000", n: 8, wantErr: false},
		{in: "00000001", n: 8, wantErr: true},
		{in: "00010000", n: 3, wantErr: false},
		{in: "00100000", n: 3, wantErr: true},
	}

	for i, test := range tests {
		b, err := binToSlice(test.in)
		if err != nil {
			t.Fatalf("unexpected binToSlice error: %v for test: %d", err, i)
		}
		gotErr := NewReader(bytes.NewReader(b)).ReadZero(test.n)
		if (gotErr != nil) != test.wantErr {
			t.Errorf("did not get expected result for test %d\nGot: %v\nWant error: %v\n", i, gotErr, test.wantErr)
		}
	}
}

func TestReadSU(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want int64
	}{
		{in: "0000", n: 4, want: 0},
		{in: "0111", n: 4, want: 7},
		{in: "1000", n: 4, want: -8},
		{in: "1111", n: 4, want: -1},
		{in: "01111111", n: 8, want: 127},
		{in: "10000000", n: 8, want: -128},
	}

	for i, test := range tests {
		b, err := binToSlice(test.in)
		if err != nil {
			t.Fatalf("unexpected binToSlice error: %v for test: %d", err, i)
		}
		got, err := NewReader(bytes.NewReader(b)).ReadSU(test.n)
		if err != nil {
			t.Fatalf("unexpected ReadSU error: %v for test: %d", err, i)
		}
		if got != test.want {
			t.Errorf("did not get expected result for test %d\nGot: %v\nWant: %v\n", i, got, test.want)
		}
	}
}

func TestReadNS(t *testing.T) {
	// For n = 5: w = 3, m = 3. Values 0..2 take two bits; 3 and 4 take
	// three.
	tests := []struct {
		in   string
		n    uint32
		want uint32
	}{
		{in: "00", n: 5, want: 0},
		{in: "01", n: 5, want: 1},
		{in: "10", n: 5, want: 2},
		{in: "110", n: 5, want: 3},
		{in: "111", n: 5, want: 4},
		{in: "", n: 1, want: 0},
		{in: "0", n: 2, want: 0},
		{in: "1", n: 2, want: 1},
	}

	for i, test := range tests {
		b, err := binToSlice(test.in)
		if err != nil {
			t.Fatalf("unexpected binToSlice error: %v for test: %d", err, i)
		}
		got, err := NewReader(bytes.NewReader(b)).ReadNS(test.n)
		if err != nil {
			t.Fatalf("unexpected ReadNS error: %v for test: %d", err, i)
		}
		if got != test.want {
			t.Errorf("did not get expected result for test %d\nGot: %v\nWant: %v\n", i, got, test.want)
		}
	}
}

func TestReadUVLC(t *testing.T) {
	tests := []struct {
		in   string
		want uint32
	}{
		{in: "1", want: 0},
		{in: "010", want: 1},
		{in: "011", want: 2},
		{in: "00100", want: 3},
		{in: "00111", want: 6},
		{in: "0001000", want: 7},
		{in: "00000000 00000000 00000000 00000000", want: 0xFFFFFFFF},
	}

	for i, test := range tests {
		b, err := binToSlice(test.in)
		if err != nil {
			t.Fatalf("unexpected binToSlice error: %v for test: %d", err, i)
		}
		got, err := NewReader(bytes.NewReader(b)).ReadUVLC()
		if err != nil {
			t.Fatalf("unexpected ReadUVLC error: %v for test: %d", err, i)
		}
		if got != test.want {
			t.Errorf("did not get expected result for test %d\nGot: %v\nWant: %v\n", i, got, test.want)
		}
	}
}

func TestReadLEB128(t *testing.T) {
	tests := []struct {
		in      []byte
		want    uint64
		wantLen int
		wantErr bool
	}{
		{in: []byte{0x00}, want: 0, wantLen: 1},
		{in: []byte{0x7F}, want: 127, wantLen: 1},
		{in: []byte{0x80, 0x01}, want: 128, wantLen: 2},
		{in: []byte{0xE5, 0x8E, 0x26}, want: 624485, wantLen: 3},
		{in: []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F}, want: 0xFFFFFFFF, wantLen: 5},
		{in: []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, wantErr: true},
	}

	for i, test := range tests {
		got, gotLen, err := NewReader(bytes.NewReader(test.in)).ReadLEB128()
		if (err != nil) != test.wantErr {
			t.Fatalf("unexpected ReadLEB128 error state: %v for test: %d", err, i)
		}
		if test.wantErr {
			continue
		}
		if got != test.want || gotLen != test.wantLen {
			t.Errorf("did not get expected result for test %d\nGot: (%v, %v)\nWant: (%v, %v)\n", i, got, gotLen, test.want, test.wantLen)
		}
	}
}

func TestBitPos(t *testing.T) {
	b, err := binToSlice("10010110 11010101")
	if err != nil {
		t.Fatalf("unexpected binToSlice error: %v", err)
	}
	br := NewReader(bytes.NewReader(b))

	if got := br.BitPos(); got != 0 {
		t.Errorf("expected BitPos 0, got: %v", got)
	}
	if _, err := br.ReadBits(3); err != nil {
		t.Fatalf("unexpected ReadBits error: %v", err)
	}
	if got := br.BitPos(); got != 3 {
		t.Errorf("expected BitPos 3, got: %v", got)
	}
	br.AlignToByte()
	if got := br.BitPos(); got != 8 {
		t.Errorf("expected BitPos 8 after AlignToByte, got: %v", got)
	}
	if got := br.BytesRead(); got != 1 {
		t.Errorf("expected BytesRead 1, got: %v", got)
	}
}
