/*
DESCRIPTION
  policy.go implements rewrite.Policy for each of the apply, remove, and
  generate subcommands: the decision of what grain header to splice into a
  given frame.

AUTHORS
  av1grain contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package cmd

import (
	"sort"

	"github.com/ausocean/av1grain/codec/av1/frame"
	"github.com/ausocean/av1grain/codec/av1/grain"
	"github.com/ausocean/av1grain/codec/av1/rewrite"
	"github.com/ausocean/av1grain/codec/av1/seq"
	"github.com/ausocean/av1grain/container"
	"github.com/ausocean/av1grain/timeline"
)

func frameIsInter(fh *frame.FrameHeader) bool { return !fh.FrameType.IsIntra() }

// removePolicy forces grain synthesis off everywhere: the sequence-level
// film_grain_params_present bit clears, and every frame's grain header
// becomes Disable.
type removePolicy struct{}

func (removePolicy) SequencePresent(*seq.SequenceHeader) bool { return false }

func (removePolicy) Decide(fh *frame.FrameHeader) rewrite.GrainDecision {
	return rewrite.GrainDecision{Header: grain.Header{Variant: grain.Disable}, FrameIsInter: frameIsInter(fh)}
}

// generatePolicy stamps the same synthesized Params onto every frame that
// carries a picture, turning the sequence-level bit on unconditionally.
type generatePolicy struct {
	params grain.Params
}

func (generatePolicy) SequencePresent(*seq.SequenceHeader) bool { return true }

func (p generatePolicy) Decide(fh *frame.FrameHeader) rewrite.GrainDecision {
	return rewrite.GrainDecision{
		Header:       grain.Header{Variant: grain.UpdateGrain, Params: p.params},
		FrameIsInter: frameIsInter(fh),
	}
}

// applyPolicy replays a grain table: segments must be sorted and
// non-overlapping, as grtable.ReadFile produces them. advance is called by
// the driver loop once per packet, before RewritePacket, with the packet's
// presentation time converted to the table's tick base; Decide then looks
// up the segment covering the most recently advanced time.
type applyPolicy struct {
	segments []timeline.GrainSegment
	curTick  uint64
}

func newApplyPolicy(segments []timeline.GrainSegment) *applyPolicy {
	sorted := append([]timeline.GrainSegment(nil), segments...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartTime < sorted[j].StartTime })
	return &applyPolicy{segments: sorted}
}

func (p *applyPolicy) advance(ptsMillis int64) {
	p.curTick = container.ToTicks(ptsMillis)
}

func (p *applyPolicy) SequencePresent(*seq.SequenceHeader) bool { return len(p.segments) > 0 }

func (p *applyPolicy) Decide(fh *frame.FrameHeader) rewrite.GrainDecision {
	inter := frameIsInter(fh)
	for _, seg := range p.segments {
		if p.curTick >= seg.StartTime && p.curTick < seg.EndTime {
			return rewrite.GrainDecision{
				Header:       grain.Header{Variant: grain.UpdateGrain, Params: seg.Params},
				FrameIsInter: inter,
			}
		}
	}
	return rewrite.GrainDecision{Header: grain.Header{Variant: grain.Disable}, FrameIsInter: inter}
}
