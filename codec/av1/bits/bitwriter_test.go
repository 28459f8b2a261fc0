/*
DESCRIPTION
  bitwriter_test.go checks that every Writer primitive mirrors its Reader
  counterpart bit-for-bit by round-tripping values through write then read.

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
	"testing"
)

func TestWriteBitsRoundTrip(t *testing.T) {
	tests := []struct {
		v uint64
		n int
	}{
		{v: 0, n: 1},
		{v: 1, n: 1},
		{v: 0x96, n: 8},
		{v: 0x2DA, n: 10},
		{v: 0x96D5F0, n: 24},
		{v: 0xFFFFFFFFFFFFFFFF, n: 64},
	}

	for i, test := range tests {
		bw := NewWriter()
		bw.WriteBits(test.v, test.n)
		bw.WriteBits(0, 8) // guard bits so alignment padding cannot mask errors

		br := NewReader(bytes.NewReader(bw.Bytes()))
		got, err := br.ReadBits(test.n)
		if err != nil {
			t.Fatalf("unexpected ReadBits error: %v for test: %d", err, i)
		}
		if got != test.v {
			t.Errorf("did not get expected result for test %d\nGot: %v\nWant: %v\n", i, got, test.v)
		}
	}
}

func TestWriteSURoundTrip(t *testing.T) {
	tests := []struct {
		v int64
		n int
	}{
		{v: 0, n: 4},
		{v: 7, n: 4},
		{v: -8, n: 4},
		{v: -1, n: 4},
		{v: 127, n: 8},
		{v: -128, n: 8},
		{v: -63, n: 7},
	}

	for i, test := range tests {
		bw := NewWriter()
		bw.WriteSU(test.v, test.n)
		bw.WriteZero(8)

		got, err := NewReader(bytes.NewReader(bw.Bytes())).ReadSU(test.n)
		if err != nil {
			t.Fatalf("unexpected ReadSU error: %v for test: %d", err, i)
		}
		if got != test.v {
			t.Errorf("did not get expected result for test %d\nGot: %v\nWant: %v\n", i, got, test.v)
		}
	}
}

func TestWriteNSRoundTrip(t *testing.T) {
	for n := uint32(1); n <= 16; n++ {
		for v := uint32(0); v < n; v++ {
			bw := NewWriter()
			bw.WriteNS(v, n)
			bw.WriteZero(8)

			got, err := NewReader(bytes.NewReader(bw.Bytes())).ReadNS(n)
			if err != nil {
				t.Fatalf("unexpected ReadNS error: %v for n=%d v=%d", err, n, v)
			}
			if got != v {
				t.Errorf("did not get expected result for n=%d\nGot: %v\nWant: %v\n", n, got, v)
			}
		}
	}
}

func TestWriteUVLCRoundTrip(t *testing.T) {
	vals := []uint32{0, 1, 2, 3, 6, 7, 30, 31, 255, 1 << 16, 0xFFFFFFFE, 0xFFFFFFFF}
	for _, v := range vals {
		bw := NewWriter()
		bw.WriteUVLC(v)
		bw.WriteZero(8)

		got, err := NewReader(bytes.NewReader(bw.Bytes())).ReadUVLC()
		if err != nil {
			t.Fatalf("unexpected ReadUVLC error: %v for v=%d", err, v)
		}
		if got != v {
			t.Errorf("did not get expected result\nGot: %v\nWant: %v\n", got, v)
		}
	}
}

func TestWriteLEB128RoundTrip(t *testing.T) {
	tests := []struct {
		v       uint64
		wantLen int
	}{
		{v: 0, wantLen: 1},
		{v: 127, wantLen: 1},
		{v: 128, wantLen: 2},
		{v: 624485, wantLen: 3},
		{v: 1 << 21, wantLen: 4},
		{v: 0xFFFFFFFF, wantLen: 5},
	}

	for i, test := range tests {
		bw := NewWriter()
		wroteLen := bw.WriteLEB128(test.v)
		if wroteLen != test.wantLen {
			t.Errorf("unexpected encoded length for test %d\nGot: %v\nWant: %v\n", i, wroteLen, test.wantLen)
		}

		got, gotLen, err := NewReader(bytes.NewReader(bw.Bytes())).ReadLEB128()
		if err != nil {
			t.Fatalf("unexpected ReadLEB128 error: %v for test: %d", err, i)
		}
		if got != test.v || gotLen != wroteLen {
			t.Errorf("did not get expected result for test %d\nGot: (%v, %v)\nWant: (%v, %v)\n", i, got, gotLen, test.v, wroteLen)
		}
	}
}

func TestWriterAlignment(t *testing.T) {
	bw := NewWriter()
	if !bw.Aligned() {
		t.Error("fresh writer should be byte-aligned")
	}
	bw.WriteBits(1, 3)
	if bw.Aligned() {
		t.Error("writer should not be aligned after 3 bits")
	}
	if got := bw.BitLength(); got != 3 {
		t.Errorf("expected BitLength 3, got: %v", got)
	}
	bw.WriteBits(0, 5)
	if !bw.Aligned() {
		t.Error("writer should be aligned after 8 bits")
	}

	// The final partial byte is padded with low zero bits.
	bw = NewWriter()
	bw.WriteBits(0x7, 3)
	want := []byte{0xE0}
	if got := bw.Bytes(); !bytes.Equal(got, want) {
		t.Errorf("did not get expected padded bytes\nGot: %#v\nWant: %#v\n", got, want)
	}
}

func TestCopyBits(t *testing.T) {
	src, err := binToSlice("10010110 11010101 11110000 10101010")
	if err != nil {
		t.Fatalf("unexpected binToSlice error: %v", err)
	}

	for _, n := range []int{1, 7, 8, 13, 32} {
		br := NewReader(bytes.NewReader(src))
		bw := NewWriter()
		if err := CopyBits(bw, br, n); err != nil {
			t.Fatalf("unexpected CopyBits error: %v for n=%d", err, n)
		}
		if got := bw.BitLength(); got != n {
			t.Fatalf("expected %d bits copied, got: %v", n, got)
		}

		// Compare the copied prefix against a direct read of the source.
		want, err := NewReader(bytes.NewReader(src)).ReadBits(minInt(n, 56))
		if err != nil {
			t.Fatalf("unexpected ReadBits error: %v", err)
		}
		got, err := NewReader(bytes.NewReader(bw.Bytes())).ReadBits(minInt(n, 56))
		if err != nil {
			t.Fatalf("unexpected ReadBits error on copy: %v", err)
		}
		if got != want {
			t.Errorf("did not get expected copied bits for n=%d\nGot: %#x\nWant: %#x\n", n, got, want)
		}
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
