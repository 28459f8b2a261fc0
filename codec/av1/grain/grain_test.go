/*
DESCRIPTION
  grain_test.go provides testing for the film_grain_params() reader and
  writer: round trips for each header variant and the seed-ignoring
  equality used by the timeline aggregator.

AUTHORS
  av1grain contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package grain

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ausocean/av1grain/codec/av1/bits"
)

// fullParams returns an UpdateGrain parameter set exercising every field,
// with coefficient counts consistent with its lag and point counts.
func fullParams() Params {
	lag := uint8(2)
	numPos := 2 * int(lag) * (int(lag) + 1) // 12
	coeffs := func(n int, base int8) []int8 {
		out := make([]int8, n)
		for i := range out {
			out[i] = base + int8(i)
		}
		return out
	}
	return Params{
		GrainSeed: 0xBEEF,
		ScalingPointsY: []Point{
			{Value: 0, Scaling: 20}, {Value: 128, Scaling: 36}, {Value: 255, Scaling: 48},
		},
		ScalingPointsCb:       []Point{{Value: 0, Scaling: 10}, {Value: 255, Scaling: 14}},
		ScalingPointsCr:       []Point{{Value: 0, Scaling: 12}},
		ChromaScalingFromLuma: false,
		ScalingShift:          9,
		ArCoeffLag:            lag,
		ArCoeffsY:             coeffs(numPos, -6),
		ArCoeffsCb:            coeffs(numPos+1, -3),
		ArCoeffsCr:            coeffs(numPos+1, 2),
		ArCoeffShift:          7,
		GrainScaleShift:       1,
		CbMult:                128,
		CbLumaMult:            192,
		CbOffset:              256,
		CrMult:                130,
		CrLumaMult:            190,
		CrOffset:              300,
		OverlapFlag:           true,
		ClipToRestrictedRange: false,
	}
}

func roundTrip(t *testing.T, h Header, p ReadParams) Header {
	t.Helper()
	bw := bits.NewWriter()
	Write(bw, h, p)
	bw.WriteZero(8) // guard bits

	got, err := Read(bits.NewReader(bytes.NewReader(bw.Bytes())), p)
	if err != nil {
		t.Fatalf("unexpected Read error: %v", err)
	}
	return got
}

func TestRoundTripUpdateGrain(t *testing.T) {
	tests := []struct {
		name  string
		inter bool
		mod   func(*Params)
	}{
		{name: "intra full params", inter: false, mod: func(*Params) {}},
		{name: "inter full params", inter: true, mod: func(*Params) {}},
		{
			name: "chroma from luma",
			mod: func(p *Params) {
				p.ChromaScalingFromLuma = true
				p.ScalingPointsCb = nil
				p.ScalingPointsCr = nil
				p.CbMult, p.CbLumaMult, p.CbOffset = 0, 0, 0
				p.CrMult, p.CrLumaMult, p.CrOffset = 0, 0, 0
			},
		},
		{
			name: "luma only, lag zero",
			mod: func(p *Params) {
				p.ArCoeffLag = 0
				p.ArCoeffsY = nil
				p.ScalingPointsCb = nil
				p.ScalingPointsCr = nil
				p.ArCoeffsCb = nil
				p.ArCoeffsCr = nil
				p.CbMult, p.CbLumaMult, p.CbOffset = 0, 0, 0
				p.CrMult, p.CrLumaMult, p.CrOffset = 0, 0, 0
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			params := fullParams()
			test.mod(&params)
			h := Header{Variant: UpdateGrain, Params: params}

			got := roundTrip(t, h, ReadParams{
				FilmGrainParamsPresent: true,
				ShowFrame:              true,
				FrameIsInter:           test.inter,
				SubsamplingX:           1,
				SubsamplingY:           1,
			})

			if got.Variant != UpdateGrain {
				t.Fatalf("expected UpdateGrain, got variant %v", got.Variant)
			}
			if diff := cmp.Diff(params, got.Params, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("params mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRoundTripCopyRefFrame(t *testing.T) {
	h := Header{Variant: CopyRefFrame, RefIdx: 5, Params: Params{GrainSeed: 0x1234}}
	got := roundTrip(t, h, ReadParams{
		FilmGrainParamsPresent: true,
		ShowFrame:              true,
		FrameIsInter:           true,
		SubsamplingX:           1,
		SubsamplingY:           1,
	})
	if got.Variant != CopyRefFrame || got.RefIdx != 5 {
		t.Errorf("did not get expected header\nGot: %+v\nWant: %+v\n", got, h)
	}
	if got.Params.GrainSeed != 0x1234 {
		t.Errorf("grain seed not preserved across copy-ref round trip: %#x", got.Params.GrainSeed)
	}
}

func TestRoundTripDisable(t *testing.T) {
	got := roundTrip(t, Header{Variant: Disable}, ReadParams{
		FilmGrainParamsPresent: true,
		ShowFrame:              true,
	})
	if got.Variant != Disable {
		t.Errorf("expected Disable, got variant %v", got.Variant)
	}
}

func TestReadGateReturnsDisable(t *testing.T) {
	tests := []struct {
		name string
		p    ReadParams
	}{
		{name: "grain not present", p: ReadParams{ShowFrame: true}},
		{name: "frame not shown or showable", p: ReadParams{FilmGrainParamsPresent: true}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// No input bytes at all: the gate must not read any.
			got, err := Read(bits.NewReader(bytes.NewReader(nil)), test.p)
			if err != nil {
				t.Fatalf("unexpected Read error: %v", err)
			}
			if got.Variant != Disable {
				t.Errorf("expected Disable, got variant %v", got.Variant)
			}
		})
	}
}

func TestRoundTripMonochrome(t *testing.T) {
	// A monochrome stream carries no chroma_scaling_from_luma bit and no
	// chroma fields at all.
	lag := uint8(1)
	params := Params{
		GrainSeed:      0x0101,
		ScalingPointsY: []Point{{Value: 0, Scaling: 30}, {Value: 255, Scaling: 50}},
		ScalingShift:   8,
		ArCoeffLag:     lag,
		ArCoeffsY:      make([]int8, 2*int(lag)*(int(lag)+1)),
		ArCoeffShift:   6,
		OverlapFlag:    true,
	}
	h := Header{Variant: UpdateGrain, Params: params}
	p := ReadParams{
		FilmGrainParamsPresent: true,
		ShowFrame:              true,
		Monochrome:             true,
		SubsamplingX:           1,
		SubsamplingY:           1,
	}

	got := roundTrip(t, h, p)
	if got.Variant != UpdateGrain {
		t.Fatalf("expected UpdateGrain, got variant %v", got.Variant)
	}
	if diff := cmp.Diff(params, got.Params, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}

	// The monochrome form must be shorter than the identical
	// non-monochrome one by the chroma_scaling_from_luma bit plus the two
	// 4-bit zero chroma point counts.
	mono, color := bits.NewWriter(), bits.NewWriter()
	Write(mono, h, p)
	pc := p
	pc.Monochrome = false
	Write(color, h, pc)
	if mono.BitLength() != color.BitLength()-9 {
		t.Errorf("unexpected bit lengths: mono %d, color %d", mono.BitLength(), color.BitLength())
	}
}

func TestRoundTripZeroLumaPoints(t *testing.T) {
	// With no luma points and chroma point-coded, 4:2:0 subsampling is the
	// degenerate case that skips the chroma point lists entirely; any other
	// subsampling still codes them.
	lag := uint8(1)
	numPosChroma := 2 * int(lag) * (int(lag) + 1) // no +1: num_y_points == 0

	tests := []struct {
		name     string
		ssx, ssy uint8
		mod      func(*Params)
	}{
		{
			name: "4:2:2 codes chroma points",
			ssx:  1, ssy: 0,
			mod: func(p *Params) {
				p.ScalingPointsCb = []Point{{Value: 0, Scaling: 12}, {Value: 255, Scaling: 16}}
				p.ScalingPointsCr = []Point{{Value: 128, Scaling: 9}}
				p.ArCoeffsCb = make([]int8, numPosChroma)
				p.ArCoeffsCr = make([]int8, numPosChroma)
				p.CbMult, p.CbLumaMult, p.CbOffset = 128, 192, 256
				p.CrMult, p.CrLumaMult, p.CrOffset = 130, 190, 300
			},
		},
		{
			name: "4:2:0 degenerate case skips them",
			ssx:  1, ssy: 1,
			mod:  func(*Params) {},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			params := Params{
				GrainSeed:    0x2222,
				ScalingShift: 8,
				ArCoeffLag:   lag,
				ArCoeffShift: 6,
			}
			test.mod(&params)
			h := Header{Variant: UpdateGrain, Params: params}

			got := roundTrip(t, h, ReadParams{
				FilmGrainParamsPresent: true,
				ShowFrame:              true,
				SubsamplingX:           test.ssx,
				SubsamplingY:           test.ssy,
			})
			if got.Variant != UpdateGrain {
				t.Fatalf("expected UpdateGrain, got variant %v", got.Variant)
			}
			if diff := cmp.Diff(params, got.Params, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("params mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEqualIgnoringSeed(t *testing.T) {
	a := fullParams()

	b := fullParams()
	b.GrainSeed = 7
	if !a.EqualIgnoringSeed(b) {
		t.Error("params differing only by seed should compare equal")
	}

	c := fullParams()
	c.CbOffset++
	if a.EqualIgnoringSeed(c) {
		t.Error("params differing by CbOffset should not compare equal")
	}

	d := fullParams()
	d.ScalingPointsY = d.ScalingPointsY[:2]
	if a.EqualIgnoringSeed(d) {
		t.Error("params differing by scaling point count should not compare equal")
	}

	e := fullParams()
	e.ArCoeffsY[3]++
	if a.EqualIgnoringSeed(e) {
		t.Error("params differing by an AR coefficient should not compare equal")
	}
}
