/*
DESCRIPTION
  bitwriter.go provides the write-side mirror of Reader: every primitive in
  bitreader.go has a Writer counterpart that produces the identical bit
  sequence a Reader would consume.

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

// Writer accumulates bits into a byte buffer, MSB first, mirroring Reader.
type Writer struct {
	buf  []byte
	cur  byte
	bits int // number of bits already placed in cur, 0..7
}

// NewWriter returns a new, empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// WriteBits writes the low n bits of v, MSB first.
func (bw *Writer) WriteBits(v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		bit := byte((v >> uint(i)) & 1)
		bw.cur = bw.cur<<1 | bit
		bw.bits++
		if bw.bits == 8 {
			bw.buf = append(bw.buf, bw.cur)
			bw.cur = 0
			bw.bits = 0
		}
	}
}

// WriteBool writes a single bit: 1 if v, else 0.
func (bw *Writer) WriteBool(v bool) {
	if v {
		bw.WriteBits(1, 1)
	} else {
		bw.WriteBits(0, 1)
	}
}

// WriteZero writes n zero bits.
func (bw *Writer) WriteZero(n int) {
	bw.WriteBits(0, n)
}

// WriteSU writes v as an n-bit two's-complement value.
func (bw *Writer) WriteSU(v int64, n int) {
	bw.WriteBits(uint64(v)&mask(n), n)
}

// WriteNS writes v (0..n-1) using AV1's non-symmetric code.
func (bw *Writer) WriteNS(v, n uint32) {
	if n <= 1 {
		return
	}
	w := floorLog2(n) + 1
	m := (uint32(1) << uint(w)) - n
	if v < m {
		bw.WriteBits(uint64(v), w-1)
		return
	}
	x := v + m
	bw.WriteBits(uint64(x>>1), w-1)
	bw.WriteBits(uint64(x&1), 1)
}

// WriteUVLC writes v using AV1's unsigned variable-length code.
func (bw *Writer) WriteUVLC(v uint32) {
	if v == 0xFFFFFFFF {
		bw.WriteZero(32)
		return
	}
	// Find k such that v is representable as (1<<k - 1) + x for x in [0, 1<<k).
	k := 0
	for {
		if v+1 <= (uint32(1)<<uint(k+1))-1 {
			break
		}
		k++
	}
	bw.WriteZero(k)
	bw.WriteBits(1, 1)
	bw.WriteBits(uint64(v-(uint32(1)<<uint(k))+1), k)
}

// WriteLEB128 writes v as unsigned LEB128 and returns the number of bytes
// written (always matching ReadLEB128's byte_length for the resulting
// bytes).
func (bw *Writer) WriteLEB128(v uint64) int {
	n := 0
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		bw.WriteBits(uint64(b), 8)
		n++
		if v == 0 {
			break
		}
	}
	return n
}

// Bytes returns the accumulated bytes. If the writer is not byte-aligned,
// the final partial byte is padded with zero bits on the low end (mirroring
// the AV1 trailing-bits convention); callers that must remain byte-aligned
// should check Aligned first.
func (bw *Writer) Bytes() []byte {
	if bw.bits == 0 {
		return bw.buf
	}
	padded := bw.cur << uint(8-bw.bits)
	return append(append([]byte{}, bw.buf...), padded)
}

// Aligned reports whether the writer is currently at a byte boundary.
func (bw *Writer) Aligned() bool { return bw.bits == 0 }

// BitLength returns the total number of bits written so far.
func (bw *Writer) BitLength() int {
	return len(bw.buf)*8 + bw.bits
}

// CopyBits reads n bits from r and writes them to w unchanged, in chunks of
// up to 56 bits at a time. Used by the rewriter to pass through the prefix
// of a syntax structure bit-for-bit before diverging to write replacement
// data.
func CopyBits(w *Writer, r *Reader, n int) error {
	const chunk = 56
	for n > 0 {
		k := n
		if k > chunk {
			k = chunk
		}
		v, err := r.ReadBits(k)
		if err != nil {
			return err
		}
		w.WriteBits(v, k)
		n -= k
	}
	return nil
}
