/*
DESCRIPTION
  bitreader.go provides a bit reader implementation that can read or peek
  from an io.Reader data source.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)
  av1grain contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package bits provides the bit-level reader and writer primitives the AV1
// OBU parser and rewriter are built on: fixed-width unsigned reads, signed
// two's-complement (su), the non-symmetric code (ns), the unsigned
// variable-length code (uvlc), and LEB128.
package bits

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

type bytePeeker interface {
	io.ByteReader
	Peek(int) ([]byte, error)
}

// Reader is a bit reader that provides methods for reading bits from an
// io.Reader source, plus the AV1-specific su/ns/uvlc/leb128 primitives
// layered on top of ReadBits.
type Reader struct {
	r     bytePeeker
	n     uint64
	bits  int
	nRead int
}

// NewReader returns a new Reader over r.
func NewReader(r io.Reader) *Reader {
	byter, ok := r.(bytePeeker)
	if !ok {
		byter = bufio.NewReader(r)
	}
	return &Reader{r: byter}
}

// ReadBits reads n bits (0 <= n <= 64) from the source and returns them in
// the least-significant part of a uint64, MSB first.
func (br *Reader) ReadBits(n int) (uint64, error) {
	if n > 56 {
		// Split wide reads so the buffered bits plus the bytes fetched for
		// them always fit the 64-bit accumulator.
		hi, err := br.ReadBits(n - 32)
		if err != nil {
			return 0, err
		}
		lo, err := br.ReadBits(32)
		if err != nil {
			return 0, err
		}
		return hi<<32 | lo, nil
	}
	for n > br.bits {
		b, err := br.r.ReadByte()
		if err == io.EOF {
			return 0, io.ErrUnexpectedEOF
		}
		if err != nil {
			return 0, err
		}
		br.nRead++
		br.n <<= 8
		br.n |= uint64(b)
		br.bits += 8
	}

	r := (br.n >> uint(br.bits-n)) & mask(n)
	br.bits -= n
	return r, nil
}

func mask(n int) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(n)) - 1
}

// PeekBits returns the next n bits without advancing through the source.
func (br *Reader) PeekBits(n int) (uint64, error) {
	byt, err := br.r.Peek(int((n-br.bits)+7) / 8)
	bits := br.bits
	if err != nil {
		if err == io.EOF {
			return 0, io.ErrUnexpectedEOF
		}
		return 0, err
	}
	v := br.n
	for i := 0; n > bits; i++ {
		b := byt[i]
		v <<= 8
		v |= uint64(b)
		bits += 8
	}

	r := (v >> uint(bits-n)) & mask(n)
	return r, nil
}

// ByteAligned returns true if the reader position is at the start of a byte.
func (br *Reader) ByteAligned() bool { return br.bits == 0 }

// AlignToByte discards any unread bits remaining in the current byte, per
// AV1's byte_alignment() syntax element.
func (br *Reader) AlignToByte() { br.bits = 0 }

// Off returns the current offset from the starting bit of the current byte.
func (br *Reader) Off() int { return br.bits }

// BytesRead returns the number of bytes consumed from the underlying source.
func (br *Reader) BytesRead() int { return br.nRead }

// BitPos returns the total number of bits consumed from the underlying
// source so far. Bits already fetched into the reader's buffer but not yet
// returned by ReadBits are excluded from the count.
func (br *Reader) BitPos() int { return br.nRead*8 - br.bits }

// ReadBool reads a single bit and reports whether it is set.
func (br *Reader) ReadBool() (bool, error) {
	b, err := br.ReadBits(1)
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

// ReadZero reads n bits and fails unless every bit is zero.
func (br *Reader) ReadZero(n int) error {
	v, err := br.ReadBits(n)
	if err != nil {
		return err
	}
	if v != 0 {
		return errors.Errorf("read_zero(%d): expected all-zero bits, got %#x", n, v)
	}
	return nil
}

// ReadSU reads an n-bit two's-complement signed value, MSB sign bit first.
// The value lies in -2^(n-1) .. 2^(n-1)-1.
func (br *Reader) ReadSU(n int) (int64, error) {
	v, err := br.ReadBits(n)
	if err != nil {
		return 0, err
	}
	signMask := uint64(1) << uint(n-1)
	if v&signMask != 0 {
		return int64(v) - int64(signMask<<1), nil
	}
	return int64(v), nil
}

// floorLog2 returns floor(log2(x)) for x >= 1.
func floorLog2(x uint32) int {
	s := 0
	for x != 0 {
		x >>= 1
		s++
	}
	return s - 1
}

// ReadNS reads AV1's non-symmetric code for a value in 0..n-1.
func (br *Reader) ReadNS(n uint32) (uint32, error) {
	if n <= 1 {
		return 0, nil
	}
	w := floorLog2(n) + 1
	m := (uint32(1) << uint(w)) - n
	v, err := br.ReadBits(w - 1)
	if err != nil {
		return 0, err
	}
	if uint32(v) < m {
		return uint32(v), nil
	}
	e, err := br.ReadBits(1)
	if err != nil {
		return 0, err
	}
	return uint32((v << 1)) - m + uint32(e), nil
}

// ReadUVLC reads AV1's unsigned variable-length code. 32 or more leading
// zero bits yields math.MaxUint32.
func (br *Reader) ReadUVLC() (uint32, error) {
	leadingZeros := 0
	for {
		b, err := br.ReadBits(1)
		if err != nil {
			return 0, err
		}
		if b != 0 {
			break
		}
		leadingZeros++
		if leadingZeros >= 32 {
			return 0xFFFFFFFF, nil
		}
	}
	if leadingZeros == 0 {
		return 0, nil
	}
	value, err := br.ReadBits(leadingZeros)
	if err != nil {
		return 0, err
	}
	return uint32(value) + (uint32(1) << uint(leadingZeros)) - 1, nil
}

// ReadLEB128 reads an unsigned LEB128 value of up to 8 bytes, returning the
// value and the number of bytes consumed.
func (br *Reader) ReadLEB128() (uint64, int, error) {
	var value uint64
	for i := 0; i < 8; i++ {
		b, err := br.ReadBits(8)
		if err != nil {
			return 0, 0, err
		}
		value |= (b & 0x7f) << uint(i*7)
		if b&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	return 0, 0, errors.New("leb128: no terminating byte within 8 bytes")
}
