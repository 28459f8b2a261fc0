/*
DESCRIPTION
  grain.go decodes and encodes the film_grain_params() syntax element
  nested inside an AV1 uncompressed frame header, per section 5.9.30 of
  the AV1 specification.

AUTHORS
  av1grain contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package grain implements the AV1 film_grain_params() reader and writer:
// the structured sub-bitstream inside a frame header that controls
// decoder-side grain synthesis.
package grain

import (
	"github.com/pkg/errors"

	"github.com/ausocean/av1grain/codec/av1/bits"
)

// Limits from the AV1 specification's film_grain_params() syntax table.
const (
	MaxYPoints  = 14
	MaxUVPoints = 10
	MaxYCoeffs  = 24
	MaxUVCoeffs = 25
)

// Point is a (value, scaling) pair in a scaling-function curve.
type Point struct {
	Value   uint8
	Scaling uint8
}

// Variant identifies which of the three FilmGrainHeader shapes is present.
type Variant int

const (
	// Disable means no grain synthesis applies to this frame.
	Disable Variant = iota
	// CopyRefFrame means this frame reuses the grain parameters last
	// associated with reference slot RefIdx.
	CopyRefFrame
	// UpdateGrain means this frame carries a fresh FilmGrainParams.
	UpdateGrain
)

// Header is the sum type read from film_grain_params(): Disable,
// CopyRefFrame(RefIdx), or UpdateGrain(Params).
type Header struct {
	Variant Variant
	RefIdx  uint8 // valid when Variant == CopyRefFrame
	Params  Params
}

// Params is the full set of film grain synthesis parameters carried by an
// UpdateGrain header.
type Params struct {
	GrainSeed uint16

	ScalingPointsY  []Point // len <= MaxYPoints
	ScalingPointsCb []Point // len <= MaxUVPoints
	ScalingPointsCr []Point // len <= MaxUVPoints

	ChromaScalingFromLuma bool

	ScalingShift uint8 // 8..=11
	ArCoeffLag   uint8 // 0..=3

	ArCoeffsY  []int8 // len <= MaxYCoeffs
	ArCoeffsCb []int8 // len <= MaxUVCoeffs
	ArCoeffsCr []int8 // len <= MaxUVCoeffs

	ArCoeffShift uint8 // 6..=9

	GrainScaleShift uint8 // 0..=3

	CbMult     uint8
	CbLumaMult uint8
	CbOffset   uint16 // 0..=511

	CrMult     uint8
	CrLumaMult uint8
	CrOffset   uint16 // 0..=511

	OverlapFlag           bool
	ClipToRestrictedRange bool
}

// EqualIgnoringSeed reports whether p and o would produce identical grain
// synthesis, ignoring GrainSeed. The timeline aggregator coalesces
// adjacent frames under this equality.
func (p Params) EqualIgnoringSeed(o Params) bool {
	q, r := p, o
	q.GrainSeed, r.GrainSeed = 0, 0
	return pointsEqual(q.ScalingPointsY, r.ScalingPointsY) &&
		pointsEqual(q.ScalingPointsCb, r.ScalingPointsCb) &&
		pointsEqual(q.ScalingPointsCr, r.ScalingPointsCr) &&
		int8sEqual(q.ArCoeffsY, r.ArCoeffsY) &&
		int8sEqual(q.ArCoeffsCb, r.ArCoeffsCb) &&
		int8sEqual(q.ArCoeffsCr, r.ArCoeffsCr) &&
		q.ChromaScalingFromLuma == r.ChromaScalingFromLuma &&
		q.ScalingShift == r.ScalingShift &&
		q.ArCoeffLag == r.ArCoeffLag &&
		q.ArCoeffShift == r.ArCoeffShift &&
		q.GrainScaleShift == r.GrainScaleShift &&
		q.CbMult == r.CbMult && q.CbLumaMult == r.CbLumaMult && q.CbOffset == r.CbOffset &&
		q.CrMult == r.CrMult && q.CrLumaMult == r.CrLumaMult && q.CrOffset == r.CrOffset &&
		q.OverlapFlag == r.OverlapFlag &&
		q.ClipToRestrictedRange == r.ClipToRestrictedRange
}

func pointsEqual(a, b []Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func int8sEqual(a, b []int8) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ReadParams is the subset of the sequence and frame header state
// film_grain_params() depends on: whether the sequence allows grain at all,
// whether this frame is visible, whether it is an inter frame (so grain can
// be copied from a reference instead of specified directly), and the color
// configuration that gates the chroma fields. The same values drive Write,
// which must mirror the reader's conditionals exactly.
type ReadParams struct {
	FilmGrainParamsPresent bool
	ShowFrame              bool
	ShowableFrame          bool
	FrameIsInter           bool

	// Monochrome suppresses chroma_scaling_from_luma and all chroma
	// fields; SubsamplingX/Y feed the 4:2:0 no-chroma-points degenerate
	// case.
	Monochrome   bool
	SubsamplingX uint8
	SubsamplingY uint8
}

// Read decodes film_grain_params() from br given the surrounding frame
// header context in p.
func Read(br *bits.Reader, p ReadParams) (Header, error) {
	if !p.FilmGrainParamsPresent || !(p.ShowFrame || p.ShowableFrame) {
		return Header{Variant: Disable}, nil
	}

	applyGrain, err := br.ReadBool()
	if err != nil {
		return Header{}, errors.Wrap(err, "apply_grain")
	}
	if !applyGrain {
		return Header{Variant: Disable}, nil
	}

	seed, err := br.ReadBits(16)
	if err != nil {
		return Header{}, errors.Wrap(err, "grain_seed")
	}

	if p.FrameIsInter {
		updateGrain, err := br.ReadBool()
		if err != nil {
			return Header{}, errors.Wrap(err, "update_grain")
		}
		if !updateGrain {
			refIdx, err := br.ReadBits(3)
			if err != nil {
				return Header{}, errors.Wrap(err, "film_grain_params_ref_idx")
			}
			// The seed is retained so a rewrite that replays this header
			// reproduces the original bits exactly.
			return Header{Variant: CopyRefFrame, RefIdx: uint8(refIdx), Params: Params{GrainSeed: uint16(seed)}}, nil
		}
	}

	var params Params
	params.GrainSeed = uint16(seed)

	numYPoints, err := br.ReadBits(4)
	if err != nil {
		return Header{}, errors.Wrap(err, "num_y_points")
	}
	params.ScalingPointsY = make([]Point, numYPoints)
	for i := range params.ScalingPointsY {
		v, err := br.ReadBits(8)
		if err != nil {
			return Header{}, errors.Wrap(err, "point_y_value")
		}
		s, err := br.ReadBits(8)
		if err != nil {
			return Header{}, errors.Wrap(err, "point_y_scaling")
		}
		params.ScalingPointsY[i] = Point{Value: uint8(v), Scaling: uint8(s)}
	}

	// chroma_scaling_from_luma is only present for non-monochrome streams.
	var chromaScalingFromLuma bool
	if !p.Monochrome {
		chromaScalingFromLuma, err = br.ReadBool()
		if err != nil {
			return Header{}, errors.Wrap(err, "chroma_scaling_from_luma")
		}
	}
	params.ChromaScalingFromLuma = chromaScalingFromLuma

	// Chroma points are point-coded unless the stream is monochrome, the
	// chroma scaling derives from luma, or the 4:2:0-with-zero-luma-points
	// degenerate case applies.
	var numCbPoints, numCrPoints uint64
	pointCoded := !(p.Monochrome || chromaScalingFromLuma ||
		(p.SubsamplingX == 1 && p.SubsamplingY == 1 && numYPoints == 0))
	if pointCoded {
		numCbPoints, err = br.ReadBits(4)
		if err != nil {
			return Header{}, errors.Wrap(err, "num_cb_points")
		}
		params.ScalingPointsCb = make([]Point, numCbPoints)
		for i := range params.ScalingPointsCb {
			v, err := br.ReadBits(8)
			if err != nil {
				return Header{}, errors.Wrap(err, "point_cb_value")
			}
			s, err := br.ReadBits(8)
			if err != nil {
				return Header{}, errors.Wrap(err, "point_cb_scaling")
			}
			params.ScalingPointsCb[i] = Point{Value: uint8(v), Scaling: uint8(s)}
		}

		numCrPoints, err = br.ReadBits(4)
		if err != nil {
			return Header{}, errors.Wrap(err, "num_cr_points")
		}
		params.ScalingPointsCr = make([]Point, numCrPoints)
		for i := range params.ScalingPointsCr {
			v, err := br.ReadBits(8)
			if err != nil {
				return Header{}, errors.Wrap(err, "point_cr_value")
			}
			s, err := br.ReadBits(8)
			if err != nil {
				return Header{}, errors.Wrap(err, "point_cr_scaling")
			}
			params.ScalingPointsCr[i] = Point{Value: uint8(v), Scaling: uint8(s)}
		}
	}

	grainScalingMinus8, err := br.ReadBits(2)
	if err != nil {
		return Header{}, errors.Wrap(err, "grain_scaling_minus_8")
	}
	params.ScalingShift = uint8(grainScalingMinus8) + 8

	arCoeffLag, err := br.ReadBits(2)
	if err != nil {
		return Header{}, errors.Wrap(err, "ar_coeff_lag")
	}
	params.ArCoeffLag = uint8(arCoeffLag)

	numPosLuma := 2 * arCoeffLag * (arCoeffLag + 1)
	var numPosChroma uint64
	if numYPoints > 0 {
		numPosChroma = numPosLuma + 1
	} else {
		numPosChroma = numPosLuma
	}

	if numYPoints > 0 {
		params.ArCoeffsY = make([]int8, numPosLuma)
		for i := range params.ArCoeffsY {
			c, err := br.ReadBits(8)
			if err != nil {
				return Header{}, errors.Wrap(err, "ar_coeffs_y")
			}
			params.ArCoeffsY[i] = int8(int(c) - 128)
		}
	}
	if chromaScalingFromLuma || numCbPoints > 0 {
		params.ArCoeffsCb = make([]int8, numPosChroma)
		for i := range params.ArCoeffsCb {
			c, err := br.ReadBits(8)
			if err != nil {
				return Header{}, errors.Wrap(err, "ar_coeffs_cb")
			}
			params.ArCoeffsCb[i] = int8(int(c) - 128)
		}
	}
	if chromaScalingFromLuma || numCrPoints > 0 {
		params.ArCoeffsCr = make([]int8, numPosChroma)
		for i := range params.ArCoeffsCr {
			c, err := br.ReadBits(8)
			if err != nil {
				return Header{}, errors.Wrap(err, "ar_coeffs_cr")
			}
			params.ArCoeffsCr[i] = int8(int(c) - 128)
		}
	}

	arCoeffShiftMinus6, err := br.ReadBits(2)
	if err != nil {
		return Header{}, errors.Wrap(err, "ar_coeff_shift_minus_6")
	}
	params.ArCoeffShift = uint8(arCoeffShiftMinus6) + 6

	grainScaleShift, err := br.ReadBits(2)
	if err != nil {
		return Header{}, errors.Wrap(err, "grain_scale_shift")
	}
	params.GrainScaleShift = uint8(grainScaleShift)

	if numCbPoints > 0 {
		cbMult, err := br.ReadBits(8)
		if err != nil {
			return Header{}, errors.Wrap(err, "cb_mult")
		}
		cbLumaMult, err := br.ReadBits(8)
		if err != nil {
			return Header{}, errors.Wrap(err, "cb_luma_mult")
		}
		cbOffset, err := br.ReadBits(9)
		if err != nil {
			return Header{}, errors.Wrap(err, "cb_offset")
		}
		params.CbMult = uint8(cbMult)
		params.CbLumaMult = uint8(cbLumaMult)
		params.CbOffset = uint16(cbOffset)
	}
	if numCrPoints > 0 {
		crMult, err := br.ReadBits(8)
		if err != nil {
			return Header{}, errors.Wrap(err, "cr_mult")
		}
		crLumaMult, err := br.ReadBits(8)
		if err != nil {
			return Header{}, errors.Wrap(err, "cr_luma_mult")
		}
		crOffset, err := br.ReadBits(9)
		if err != nil {
			return Header{}, errors.Wrap(err, "cr_offset")
		}
		params.CrMult = uint8(crMult)
		params.CrLumaMult = uint8(crLumaMult)
		params.CrOffset = uint16(crOffset)
	}

	overlapFlag, err := br.ReadBool()
	if err != nil {
		return Header{}, errors.Wrap(err, "overlap_flag")
	}
	params.OverlapFlag = overlapFlag

	clipToRestrictedRange, err := br.ReadBool()
	if err != nil {
		return Header{}, errors.Wrap(err, "clip_to_restricted_range")
	}
	params.ClipToRestrictedRange = clipToRestrictedRange

	return Header{Variant: UpdateGrain, Params: params}, nil
}

// Write encodes h as film_grain_params(), the inverse of Read, producing
// the identical bit sequence for any UpdateGrain header and the identical
// short form for Disable/CopyRefFrame. rp carries the same gating state the
// reader consumed: when its present/shown gate fails, nothing is written
// (the reader derived a Disable header without consuming any bits either),
// and its color configuration gates the chroma fields exactly as in Read.
func Write(bw *bits.Writer, h Header, rp ReadParams) {
	if !rp.FilmGrainParamsPresent || !(rp.ShowFrame || rp.ShowableFrame) {
		return
	}

	switch h.Variant {
	case Disable:
		bw.WriteBool(false) // apply_grain = 0
		return
	case CopyRefFrame:
		bw.WriteBool(true) // apply_grain = 1
		bw.WriteBits(uint64(h.Params.GrainSeed), 16)
		if rp.FrameIsInter {
			bw.WriteBool(false) // update_grain = 0
		}
		bw.WriteBits(uint64(h.RefIdx), 3)
		return
	}

	p := h.Params
	bw.WriteBool(true) // apply_grain = 1
	bw.WriteBits(uint64(p.GrainSeed), 16)
	if rp.FrameIsInter {
		bw.WriteBool(true) // update_grain = 1
	}

	bw.WriteBits(uint64(len(p.ScalingPointsY)), 4)
	for _, pt := range p.ScalingPointsY {
		bw.WriteBits(uint64(pt.Value), 8)
		bw.WriteBits(uint64(pt.Scaling), 8)
	}

	if !rp.Monochrome {
		bw.WriteBool(p.ChromaScalingFromLuma)
	}

	pointCoded := !(rp.Monochrome || p.ChromaScalingFromLuma ||
		(rp.SubsamplingX == 1 && rp.SubsamplingY == 1 && len(p.ScalingPointsY) == 0))
	if pointCoded {
		bw.WriteBits(uint64(len(p.ScalingPointsCb)), 4)
		for _, pt := range p.ScalingPointsCb {
			bw.WriteBits(uint64(pt.Value), 8)
			bw.WriteBits(uint64(pt.Scaling), 8)
		}
		bw.WriteBits(uint64(len(p.ScalingPointsCr)), 4)
		for _, pt := range p.ScalingPointsCr {
			bw.WriteBits(uint64(pt.Value), 8)
			bw.WriteBits(uint64(pt.Scaling), 8)
		}
	}

	bw.WriteBits(uint64(p.ScalingShift-8), 2)
	bw.WriteBits(uint64(p.ArCoeffLag), 2)

	for _, c := range p.ArCoeffsY {
		bw.WriteBits(uint64(int(c)+128), 8)
	}
	for _, c := range p.ArCoeffsCb {
		bw.WriteBits(uint64(int(c)+128), 8)
	}
	for _, c := range p.ArCoeffsCr {
		bw.WriteBits(uint64(int(c)+128), 8)
	}

	bw.WriteBits(uint64(p.ArCoeffShift-6), 2)
	bw.WriteBits(uint64(p.GrainScaleShift), 2)

	if len(p.ScalingPointsCb) > 0 {
		bw.WriteBits(uint64(p.CbMult), 8)
		bw.WriteBits(uint64(p.CbLumaMult), 8)
		bw.WriteBits(uint64(p.CbOffset), 9)
	}
	if len(p.ScalingPointsCr) > 0 {
		bw.WriteBits(uint64(p.CrMult), 8)
		bw.WriteBits(uint64(p.CrLumaMult), 8)
		bw.WriteBits(uint64(p.CrOffset), 9)
	}

	bw.WriteBool(p.OverlapFlag)
	bw.WriteBool(p.ClipToRestrictedRange)
}
