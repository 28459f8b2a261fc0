/*
DESCRIPTION
  photonnoise.go derives a FilmGrainParams curve from a sensor ISO value and
  a chroma-synthesis toggle, for the generate subcommand.

AUTHORS
  av1grain contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package photonnoise derives synthetic FilmGrainParams from an ISO value,
// modeling the read-noise-floor-plus-photon-shot-noise curve a real sensor
// exhibits. The curve is sampled directly from the model, not fitted; gonum
// supplies the curve's maximum and mean when choosing scaling_shift.
package photonnoise

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ausocean/av1grain/codec/av1/grain"
)

// baseISO is the reference sensitivity at which readNoiseFloor was measured;
// noise scales with sqrt(iso/baseISO) above it.
const baseISO = 100

// readNoiseFloor is the sensor's dark-signal noise in 8-bit code values at
// baseISO.
const readNoiseFloor = 1.2

// numLumaSamples is how many (value, scaling) points are fit across the
// 0..255 luma range.
const numLumaSamples = 10

// Options configures grain derivation.
type Options struct {
	// ISO is the simulated sensor sensitivity; higher values raise the
	// photon shot-noise contribution at every luma level.
	ISO int
	// Chroma enables independent Cb/Cr scaling curves instead of deriving
	// chroma grain from luma.
	Chroma bool
	// Seed is the grain_seed to stamp on the generated params.
	Seed uint16
}

// Generate derives a Params value from opts, producing scaling points,
// zeroed AR coefficients (no spatial correlation modeled), and
// moderate overlap/clipping defaults.
func Generate(opts Options) grain.Params {
	iso := opts.ISO
	if iso < 1 {
		iso = baseISO
	}

	lumaValues, lumaScaling, lumaRaw := noiseCurve(iso, 1.0)

	p := grain.Params{
		GrainSeed:             opts.Seed,
		ChromaScalingFromLuma: !opts.Chroma,
		ScalingShift:          scalingShiftFor(lumaRaw),
		ArCoeffLag:            0,
		ArCoeffShift:          6,
		GrainScaleShift:       0,
		OverlapFlag:           true,
		ClipToRestrictedRange: false,

		// With luma points present and lag 0, the grain sub-bitstream still
		// carries exactly one AR coefficient per chroma channel.
		ArCoeffsCb: []int8{0},
		ArCoeffsCr: []int8{0},
	}

	p.ScalingPointsY = toPoints(lumaValues, lumaScaling)

	if opts.Chroma {
		cbValues, cbScaling, _ := noiseCurve(iso, 0.85) // chroma channels are typically lower-bandwidth, less noisy
		crValues, crScaling, _ := noiseCurve(iso, 0.85)
		p.ScalingPointsCb = toPoints(cbValues, cbScaling)
		p.ScalingPointsCr = toPoints(crValues, crScaling)
		p.CbMult, p.CbLumaMult, p.CbOffset = 128, 192, 256
		p.CrMult, p.CrLumaMult, p.CrOffset = 128, 192, 256
	}

	return p
}

// sigmaToScaling converts a noise sigma in 8-bit code values to grain
// scaling-function units, chosen so the base ISO yields subtle grain and
// high ISOs saturate toward full-strength scaling.
const sigmaToScaling = 12.0

// noiseCurve samples read-noise-plus-shot-noise sigma at numLumaSamples
// luma levels across 0..255, scaled by channelGain, and maps each sigma
// into the 0..255 scaling range the AV1 grain table expects. raw returns
// the unmapped sigma values for scalingShiftFor.
func noiseCurve(iso int, channelGain float64) (values, scaling, raw []float64) {
	isoGain := math.Sqrt(float64(iso) / baseISO)

	values = make([]float64, numLumaSamples)
	raw = make([]float64, numLumaSamples)
	for i := range values {
		v := float64(i) * 255.0 / float64(numLumaSamples-1)
		values[i] = math.Round(v)

		shotNoise := math.Sqrt(v) * isoGain * channelGain
		sigma := math.Hypot(readNoiseFloor*isoGain, shotNoise)
		raw[i] = sigma
	}

	scaling = make([]float64, numLumaSamples)
	for i, s := range raw {
		scaling[i] = math.Round(math.Min(s*sigmaToScaling, 255))
	}
	return values, scaling, raw
}

// scalingShiftFor picks scaling_shift from the mean sampled sigma: a larger
// shift attenuates the synthesized grain more, so quiet curves (low ISO) get
// the strongest attenuation.
func scalingShiftFor(raw []float64) uint8 {
	if floats.Max(raw) == 0 {
		return 11
	}
	mean := stat.Mean(raw, nil)
	switch {
	case mean < 8:
		return 11
	case mean < 16:
		return 10
	case mean < 32:
		return 9
	default:
		return 8
	}
}

// toPoints zips parallel value/scaling slices into Points, clamping to
// uint8 range and deduplicating identical consecutive values (the AV1
// scaling function requires strictly increasing x coordinates).
func toPoints(values, scaling []float64) []grain.Point {
	pts := make([]grain.Point, 0, len(values))
	var lastValue int = -1
	for i := range values {
		v := clampU8(values[i])
		if int(v) == lastValue {
			continue
		}
		lastValue = int(v)
		pts = append(pts, grain.Point{Value: v, Scaling: clampU8(scaling[i])})
	}
	return pts
}

func clampU8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
