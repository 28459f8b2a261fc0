/*
DESCRIPTION
  ivf.go hand-rolls an IVF demuxer and muxer using encoding/binary; the
  format is simple enough that no demux library is worth carrying.

AUTHORS
  av1grain contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// See https://wiki.multimedia.cx/index.php/IVF for the format this package
// implements.

// Package ivf provides an IVF container demuxer and muxer, the one
// concrete Demuxer/Muxer implementation av1grain ships; MP4 and MKV are
// represented only by the container.Demuxer/Muxer interfaces for now.
package ivf

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/ausocean/av1grain/av1err"
	"github.com/ausocean/av1grain/container"
)

const (
	signature      = "DKIF"
	headerSize     = 32
	frameHeaderLen = 12
)

// FourCC identifies the codec carried by an IVF file. AV01 is the only one
// av1grain's core handles; inspect and the rewriting commands reject any
// other FourCC with an UnsupportedFeature error.
const FourCC = "AV01"

// Header is the 32-byte IVF file header.
type Header struct {
	FourCC     [4]byte
	Width      uint16
	Height     uint16
	RateNum    uint32
	RateDen    uint32
	FrameCount uint32
}

// Demuxer reads packets from an IVF stream.
type Demuxer struct {
	r             io.Reader
	hdr           Header
	ticksToMillis func(uint64) int64
}

// NewDemuxer reads the IVF header from r and returns a ready Demuxer.
func NewDemuxer(r io.Reader) (*Demuxer, error) {
	var raw [headerSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return nil, av1err.New(av1err.ContainerIOError).WithField("ivf header").Wrap(err)
	}
	if string(raw[0:4]) != signature {
		return nil, av1err.New(av1err.ContainerIOError).WithField("ivf signature")
	}
	hdrLen := binary.LittleEndian.Uint16(raw[6:8])
	if hdrLen < headerSize {
		return nil, av1err.New(av1err.ContainerIOError).WithField("ivf header length")
	}

	var h Header
	copy(h.FourCC[:], raw[8:12])
	h.Width = binary.LittleEndian.Uint16(raw[12:14])
	h.Height = binary.LittleEndian.Uint16(raw[14:16])
	h.RateNum = binary.LittleEndian.Uint32(raw[16:20])
	h.RateDen = binary.LittleEndian.Uint32(raw[20:24])
	h.FrameCount = binary.LittleEndian.Uint32(raw[24:28])

	if extra := int(hdrLen) - headerSize; extra > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(extra)); err != nil {
			return nil, av1err.New(av1err.ContainerIOError).WithField("ivf header padding").Wrap(err)
		}
	}

	rateNum, rateDen := h.RateNum, h.RateDen
	if rateNum == 0 {
		rateNum = 1
	}
	if rateDen == 0 {
		rateDen = 1
	}
	toMillis := func(ticks uint64) int64 {
		return int64(ticks) * int64(rateDen) * 1000 / int64(rateNum)
	}

	return &Demuxer{r: r, hdr: h, ticksToMillis: toMillis}, nil
}

// Header returns the parsed IVF file header.
func (d *Demuxer) Header() Header { return d.hdr }

// VideoStreamIndex always returns 0: IVF carries exactly one stream.
func (d *Demuxer) VideoStreamIndex() int { return 0 }

// ReadPacket returns the next frame in the IVF stream, or io.EOF once
// exhausted.
func (d *Demuxer) ReadPacket() (container.Packet, error) {
	var fh [frameHeaderLen]byte
	_, err := io.ReadFull(d.r, fh[:])
	if err == io.EOF {
		return container.Packet{}, io.EOF
	}
	if err != nil {
		return container.Packet{}, av1err.New(av1err.ContainerIOError).WithField("ivf frame header").Wrap(err)
	}

	size := binary.LittleEndian.Uint32(fh[0:4])
	ts := binary.LittleEndian.Uint64(fh[4:12])

	data := make([]byte, size)
	if _, err := io.ReadFull(d.r, data); err != nil {
		return container.Packet{}, av1err.New(av1err.ContainerIOError).WithField("ivf frame payload").Wrap(err)
	}

	return container.Packet{
		StreamIndex: 0,
		Data:        data,
		PTSMillis:   d.ticksToMillis(ts),
	}, nil
}

// Muxer writes packets out as an IVF stream.
type Muxer struct {
	w             io.Writer
	hdr           Header
	millisToTicks func(int64) uint64
	written       bool
}

// NewMuxer returns a Muxer that will write hdr followed by packets passed
// to WritePacket. hdr.FrameCount is advisory only; IVF readers do not
// require it to be accurate, but NewMuxer writes it as given.
func NewMuxer(w io.Writer, hdr Header) *Muxer {
	rateNum, rateDen := hdr.RateNum, hdr.RateDen
	if rateNum == 0 {
		rateNum = 1
	}
	if rateDen == 0 {
		rateDen = 1
	}
	toTicks := func(millis int64) uint64 {
		return uint64(millis) * uint64(rateNum) / (uint64(rateDen) * 1000)
	}
	return &Muxer{w: w, hdr: hdr, millisToTicks: toTicks}
}

func (m *Muxer) writeHeader() error {
	var raw [headerSize]byte
	copy(raw[0:4], signature)
	binary.LittleEndian.PutUint16(raw[4:6], 0) // version
	binary.LittleEndian.PutUint16(raw[6:8], headerSize)
	copy(raw[8:12], m.hdr.FourCC[:])
	binary.LittleEndian.PutUint16(raw[12:14], m.hdr.Width)
	binary.LittleEndian.PutUint16(raw[14:16], m.hdr.Height)
	binary.LittleEndian.PutUint32(raw[16:20], m.hdr.RateNum)
	binary.LittleEndian.PutUint32(raw[20:24], m.hdr.RateDen)
	binary.LittleEndian.PutUint32(raw[24:28], m.hdr.FrameCount)
	_, err := m.w.Write(raw[:])
	return err
}

// WritePacket appends p as the next IVF frame.
func (m *Muxer) WritePacket(p container.Packet) error {
	if !m.written {
		if err := m.writeHeader(); err != nil {
			return av1err.New(av1err.ContainerIOError).WithField("ivf header").Wrap(err)
		}
		m.written = true
	}

	var fh [frameHeaderLen]byte
	binary.LittleEndian.PutUint32(fh[0:4], uint32(len(p.Data)))
	binary.LittleEndian.PutUint64(fh[4:12], m.millisToTicks(p.PTSMillis))
	if _, err := m.w.Write(fh[:]); err != nil {
		return av1err.New(av1err.ContainerIOError).WithField("ivf frame header").Wrap(err)
	}
	if _, err := m.w.Write(p.Data); err != nil {
		return av1err.New(av1err.ContainerIOError).WithField("ivf frame payload").Wrap(err)
	}
	return nil
}

// Close writes nothing: IVF has no trailer, and the header (FrameCount
// included) goes out before the first packet. It returns an error if no
// packet was written, in which case no header was written either.
func (m *Muxer) Close() error {
	if !m.written {
		return errors.New("ivf: Close called with no packets written")
	}
	return nil
}
