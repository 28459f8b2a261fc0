/*
DESCRIPTION
  container.go defines the demux/mux collaborator interfaces the av1grain
  core drives: a source of ordered (stream_index, packet_bytes, pts_ms)
  triples, and a sink accepting replacement packets in the same time base.

AUTHORS
  av1grain contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package container defines the Demuxer/Muxer interfaces av1grain's core
// depends on, decoupling OBU parsing and rewriting from any one container
// format. See package ivf for the one concrete implementation this repo
// ships.
package container

// TicksPerSecond is the resolution the core's timeline aggregator works in;
// container.Packet carries PTSMillis instead, converted at the boundary via
// ToTicks.
const TicksPerSecond = 10_000_000

// Packet is one demuxed access unit: the raw payload bytes for a single
// video stream packet, its presentation timestamp in milliseconds, and the
// demuxer-assigned stream index it belongs to.
type Packet struct {
	StreamIndex int
	Data        []byte
	PTSMillis   int64
}

// ToTicks converts a millisecond presentation timestamp to the core's
// 10,000,000-ticks-per-second unit.
func ToTicks(ptsMillis int64) uint64 {
	return uint64(ptsMillis) * (TicksPerSecond / 1000)
}

// Demuxer yields a container's packets in presentation order and identifies
// which stream carries the AV1 video being inspected or rewritten.
type Demuxer interface {
	// VideoStreamIndex returns the StreamIndex value Packets carrying AV1
	// OBU data will have.
	VideoStreamIndex() int
	// ReadPacket returns the next packet in the container, or io.EOF once
	// exhausted.
	ReadPacket() (Packet, error)
}

// Muxer accepts replacement packets in the same stream/time base a Demuxer
// produced them in, writing out a new container.
type Muxer interface {
	// WritePacket appends p to the output container.
	WritePacket(p Packet) error
	// Close flushes and finalizes the output container.
	Close() error
}
