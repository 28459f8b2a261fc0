/*
DESCRIPTION
  grtable_test.go provides testing for the filmgrn1 grain table reader and
  writer.

AUTHORS
  av1grain contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package grtable

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ausocean/av1grain/av1err"
	"github.com/ausocean/av1grain/codec/av1/grain"
	"github.com/ausocean/av1grain/timeline"
)

func testSegments() []timeline.GrainSegment {
	mkCoeffs := func(n int) []int8 {
		out := make([]int8, n)
		for i := range out {
			out[i] = int8(i - n/2)
		}
		return out
	}
	return []timeline.GrainSegment{
		{
			StartTime: 0,
			EndTime:   12_513_000,
			Params: grain.Params{
				GrainSeed:       42,
				ScalingPointsY:  []grain.Point{{Value: 0, Scaling: 20}, {Value: 128, Scaling: 36}, {Value: 255, Scaling: 48}},
				ScalingPointsCb: []grain.Point{{Value: 0, Scaling: 10}},
				ScalingPointsCr: []grain.Point{{Value: 0, Scaling: 12}},
				ScalingShift:    9,
				ArCoeffLag:      2,
				ArCoeffsY:       mkCoeffs(12),
				ArCoeffsCb:      mkCoeffs(13),
				ArCoeffsCr:      mkCoeffs(13),
				ArCoeffShift:    7,
				GrainScaleShift: 1,
				CbMult:          128, CbLumaMult: 192, CbOffset: 256,
				CrMult: 130, CrLumaMult: 190, CrOffset: 300,
				OverlapFlag: true,
			},
		},
		{
			StartTime: 20_000_000,
			EndTime:   30_000_000,
			Params: grain.Params{
				GrainSeed:             7,
				ScalingPointsY:        []grain.Point{{Value: 0, Scaling: 5}},
				ChromaScalingFromLuma: true,
				ScalingShift:          8,
				ArCoeffLag:            0,
				ArCoeffsCb:            []int8{3},
				ArCoeffsCr:            []int8{-2},
				ArCoeffShift:          6,
			},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	want := testSegments()

	var buf bytes.Buffer
	require.NoError(t, WriteFile(&buf, want))

	got, err := ReadFile(&buf)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteEmptyTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFile(&buf, nil))
	assert.Equal(t, Magic+"\n", buf.String())
}

func TestReadEmptyTable(t *testing.T) {
	got, err := ReadFile(strings.NewReader(Magic + "\n"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadBadMagic(t *testing.T) {
	_, err := ReadFile(strings.NewReader("notgrain\n"))
	requireKind(t, err, av1err.GrainTableSyntax)
}

func TestReadLineBeforeSegment(t *testing.T) {
	in := Magic + "\n\tp 0 6 0 8 1 1 0 0 0 0 0 0\n"
	_, err := ReadFile(strings.NewReader(in))
	requireKind(t, err, av1err.GrainTableSyntax)
}

func TestReadMalformedELine(t *testing.T) {
	in := Magic + "\nE 0 100\n"
	_, err := ReadFile(strings.NewReader(in))
	requireKind(t, err, av1err.GrainTableSyntax)
}

func TestReadMalformedScalingLine(t *testing.T) {
	in := Magic + "\nE 0 100 1 42 1\n\tsY 2 0 20\n"
	_, err := ReadFile(strings.NewReader(in))
	requireKind(t, err, av1err.GrainTableSyntax)
}

func TestCoefficientCountsFollowPoints(t *testing.T) {
	// A segment with chroma points absent and chroma_scaling_from_luma
	// clear carries no chroma coefficients, even though the cCb/cCr lines
	// always hold the full padded vector.
	in := Magic + "\n" +
		"E 0 100 1 42 1\n" +
		"\tp 0 6 0 8 0 1 0 0 0 0 0 0\n" +
		"\tsY 1 0 20\n" +
		"\tsCb 0\n" +
		"\tsCr 0\n" +
		"\tcY 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0\n" +
		"\tcCb 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0\n" +
		"\tcCr 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0\n"

	segs, err := ReadFile(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, segs, 1)

	p := segs[0].Params
	assert.Empty(t, p.ArCoeffsY)  // lag 0
	assert.Empty(t, p.ArCoeffsCb) // no points, not luma-derived
	assert.Empty(t, p.ArCoeffsCr)
}

func requireKind(t *testing.T, err error, kind av1err.Kind) {
	t.Helper()
	require.Error(t, err)
	var av1e *av1err.Error
	require.True(t, errors.As(err, &av1e), "expected an av1err.Error, got: %v", err)
	assert.Equal(t, kind, av1e.Kind)
}
