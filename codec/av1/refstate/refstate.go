/*
DESCRIPTION
  refstate.go defines ReferenceState, the reference-frame bookkeeping
  arrays the AV1 spec requires the frame-header parser to track across
  frames: per-slot saved validity and order hints, the current frame's
  selected reference indices, and per-ref-type saved order hints.

AUTHORS
  av1grain contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package refstate holds the reference-frame bookkeeping arrays shared
// across OBUs within one AV1 bitstream. It has no
// dependency on the sequence/frame header packages so that both can depend
// on it without an import cycle; the parsing Context that ties sequence
// header, previous frame header, and ReferenceState together lives in
// package obu, which already imports all three.
package refstate

const (
	// NumRefFrames is the number of reference-frame slots AV1 maintains.
	NumRefFrames = 8
	// RefsPerFrame is the number of references a single frame selects.
	RefsPerFrame = 7
	// PrimaryRefNone marks the absence of a primary reference frame.
	PrimaryRefNone = 7
)

// ReferenceState tracks the bookkeeping the AV1 decoding process carries
// between frames: saved validity/order-hint per reference slot, the
// frame's chosen reference indices, and per-ref-type saved order hints.
type ReferenceState struct {
	RefOrderHint      [NumRefFrames]uint32
	SavedRefOrderHint [NumRefFrames]uint32
	SavedRefValid     [NumRefFrames]bool
	RefFrameIdx       [RefsPerFrame]int
	SavedOrderHints   [1 + RefsPerFrame]uint32
}

// ResetOnKeyFrame clears all saved reference validity and order hints, as
// required on a shown key frame.
func (s *ReferenceState) ResetOnKeyFrame() {
	for i := range s.SavedRefValid {
		s.SavedRefValid[i] = false
		s.SavedRefOrderHint[i] = 0
	}
	for i := 0; i < RefsPerFrame; i++ {
		s.SavedOrderHints[1+i] = 0
	}
}

// UpdateRefreshed marks, for every bit set in refreshFrameFlags, the
// corresponding saved ref slot valid with the given order hint.
func (s *ReferenceState) UpdateRefreshed(refreshFrameFlags uint8, orderHint uint32) {
	for i := 0; i < NumRefFrames; i++ {
		if refreshFrameFlags&(1<<uint(i)) != 0 {
			s.SavedRefValid[i] = true
			s.SavedRefOrderHint[i] = orderHint
		}
	}
}
