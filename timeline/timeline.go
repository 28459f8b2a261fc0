/*
DESCRIPTION
  timeline.go aggregates a per-packet sequence of film-grain headers into a
  sorted, non-overlapping list of GrainSegments, coalescing adjacent packets
  that carry equivalent grain parameters.

AUTHORS
  av1grain contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package timeline aggregates per-packet film-grain headers into
// GrainSegments, the external grain-table representation.
package timeline

import "github.com/ausocean/av1grain/codec/av1/grain"

// TicksPerSecond is the resolution GrainSegment start/end times are
// expressed in.
const TicksPerSecond = 10_000_000

// clockResolution is the granularity interval boundaries are rounded up to:
// the cumulative clock runs in 10,000ths of a second and each boundary is
// the ceiling of that clock scaled back to ticks. 30 frames of 24000/1001
// video therefore end at 12,513,000 ticks, not 12,512,500.
const clockResolution = 10_000

// GrainSegment is a time-bounded run of constant film grain parameters.
type GrainSegment struct {
	StartTime uint64
	EndTime   uint64
	Params    grain.Params
}

// Aggregator assembles GrainSegments from a constant-frame-rate packet
// stream, advancing its internal clock by 1/frame_rate per call to Push.
type Aggregator struct {
	rateNum uint64 // frame rate numerator, e.g. 24000
	rateDen uint64 // frame rate denominator, e.g. 1001

	frameCount uint64
	curTick    uint64

	segments []GrainSegment
}

// NewAggregator returns an Aggregator ticking at rateNum/rateDen frames per
// second. rateDen of 0 is treated as 1 (an integer frame rate).
func NewAggregator(rateNum, rateDen uint64) *Aggregator {
	if rateDen == 0 {
		rateDen = 1
	}
	return &Aggregator{rateNum: rateNum, rateDen: rateDen}
}

// Push advances the clock by one packet's worth of time and folds h into
// the running segment list.
func (a *Aggregator) Push(h grain.Header) {
	start := a.curTick
	a.frameCount++
	end := ceilDiv(a.frameCount*a.rateDen*clockResolution, a.rateNum) * (TicksPerSecond / clockResolution)
	a.curTick = end

	prevHasGrain := len(a.segments) > 0 && a.segments[len(a.segments)-1].EndTime == start

	switch h.Variant {
	case grain.Disable:
		// No active segment is extended; a gap opens here.
	case grain.CopyRefFrame:
		if prevHasGrain {
			a.segments[len(a.segments)-1].EndTime = end
		}
	case grain.UpdateGrain:
		if prevHasGrain && a.segments[len(a.segments)-1].Params.EqualIgnoringSeed(h.Params) {
			a.segments[len(a.segments)-1].EndTime = end
		} else {
			a.segments = append(a.segments, GrainSegment{StartTime: start, EndTime: end, Params: h.Params})
		}
	}
}

// Segments returns the aggregated, time-ordered, non-overlapping segment
// list built so far.
func (a *Aggregator) Segments() []GrainSegment {
	return a.segments
}

// ceilDiv returns ceil(num/den) for non-negative integers, den > 0.
func ceilDiv(num, den uint64) uint64 {
	return (num + den - 1) / den
}
