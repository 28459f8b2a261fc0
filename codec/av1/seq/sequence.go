/*
DESCRIPTION
  sequence.go decodes the AV1 sequence_header_obu() syntax element:
  profile, timing/decoder-model info, operating points, frame-id lengths,
  tool-enable flags, color config, and film_grain_params_present.

AUTHORS
  av1grain contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package seq decodes the AV1 sequence header OBU, the per-stream settings
// that every subsequent frame header is parsed against: profile, frame-size
// bit widths, reference-tool enable flags, color configuration, and the
// film_grain_params_present bit this tool ultimately rewrites.
package seq

import (
	"github.com/pkg/errors"

	"github.com/ausocean/av1grain/codec/av1/bits"
)

// SelectScreenContentTools is the AV1 constant signalling per-frame
// screen-content-tools selection rather than a sequence-wide fixed value.
const SelectScreenContentTools = 2

// SelectIntegerMv is the AV1 constant signalling per-frame integer-MV
// selection.
const SelectIntegerMv = 2

// ColorConfig holds the color_config() syntax element.
type ColorConfig struct {
	NumPlanes             int
	SubsamplingX          uint8
	SubsamplingY          uint8
	SeparateUVDeltaQ      bool
	ColorPrimaries        uint8
	TransferCharacteristics uint8
	MatrixCoefficients    uint8
	ColorRangeFull        bool
	BitDepth              int
}

// AV1 color_config enumerants relevant to the BT.709/sRGB/Identity full
// range special case.
const (
	ColorPrimariesBt709           = 1
	TransferCharacteristicsSrgb   = 13
	MatrixCoefficientsIdentity    = 0
)

// OperatingPoint is one entry of the operating_points_cnt_minus_1 + 1 array.
type OperatingPoint struct {
	Idc                        uint16
	SeqLevelIdx                uint8
	SeqTier                    bool
	DecoderModelPresent        bool
	InitialDisplayDelayPresent bool
	InitialDisplayDelayMinus1  uint8
}

// DecoderModelInfo holds the four fields of decoder_model_info(); later
// syntax elements depend on its buffer_delay_length.
type DecoderModelInfo struct {
	BufferDelayLengthMinus1        uint8
	NumUnitsInDecodingTick         uint32
	BufferRemovalTimeLengthMinus1  uint8
	FramePresentationTimeLengthMinus1 uint8
}

// TimingInfo holds timing_info(), of which only EqualPictureInterval
// matters to later syntax.
type TimingInfo struct {
	NumUnitsInDisplayTick  uint32
	TimeScale              uint32
	EqualPictureInterval   bool
	NumTicksPerPictureMinus1 uint32
}

// SequenceHeader is the parsed sequence_header_obu(), carrying every field
// the frame-header parser depends on.
type SequenceHeader struct {
	SeqProfile                  uint8
	StillPicture                bool
	ReducedStillPictureHeader   bool

	TimingInfoPresent   bool
	TimingInfo          TimingInfo
	DecoderModelInfoPresent bool
	DecoderModelInfo    DecoderModelInfo

	InitialDisplayDelayPresent bool
	OperatingPoints            []OperatingPoint
	CurOperatingPointIdc       uint16

	FrameWidthBits  int // frame_width_bits_minus_1 + 1
	FrameHeightBits int
	MaxFrameWidth   uint32 // max_frame_width_minus_1 + 1
	MaxFrameHeight  uint32

	FrameIDNumbersPresent      bool
	DeltaFrameIDLength         int // delta_frame_id_len_minus_2 + 2
	AdditionalFrameIDLength    int // additional_frame_id_len_minus_1 + 1

	Use128x128Superblock bool
	EnableFilterIntra    bool
	EnableIntraEdgeFilter bool

	EnableInterintraCompound bool
	EnableMaskedCompound     bool
	EnableWarpedMotion       bool
	EnableDualFilter         bool
	EnableOrderHint          bool
	EnableJntComp            bool
	EnableRefFrameMvs        bool
	ForceScreenContentTools  uint8 // SeqForceScreenContentTools
	ForceIntegerMv           uint8 // SeqForceIntegerMv
	OrderHintBits            int  // 0 if !EnableOrderHint

	EnableSuperres    bool
	EnableCdef        bool
	EnableRestoration bool

	ColorConfig ColorConfig

	FilmGrainParamsPresent bool

	// GrainPresentBitPos is the bit offset, from the start of this OBU's
	// payload, of the film_grain_params_present bit. The rewriter uses it to
	// flip that single bit in place, which never changes the OBU's length.
	GrainPresentBitPos int
}

// Parse decodes sequence_header_obu() from br, following section 5.5 of
// the AV1 specification.
func Parse(br *bits.Reader) (*SequenceHeader, error) {
	sh := &SequenceHeader{}

	profile, err := br.ReadBits(3)
	if err != nil {
		return nil, errors.Wrap(err, "seq_profile")
	}
	sh.SeqProfile = uint8(profile)

	stillPicture, err := br.ReadBool()
	if err != nil {
		return nil, errors.Wrap(err, "still_picture")
	}
	sh.StillPicture = stillPicture

	reduced, err := br.ReadBool()
	if err != nil {
		return nil, errors.Wrap(err, "reduced_still_picture_header")
	}
	sh.ReducedStillPictureHeader = reduced

	if reduced {
		if _, err := br.ReadBits(5); err != nil { // seq_level_idx[0]
			return nil, errors.Wrap(err, "seq_level_idx")
		}
		sh.OperatingPoints = []OperatingPoint{{}}
	} else {
		timingPresent, err := br.ReadBool()
		if err != nil {
			return nil, errors.Wrap(err, "timing_info_present_flag")
		}
		sh.TimingInfoPresent = timingPresent

		var bufferDelayLength int
		if timingPresent {
			ti, err := parseTimingInfo(br)
			if err != nil {
				return nil, err
			}
			sh.TimingInfo = ti

			decoderModelPresent, err := br.ReadBool()
			if err != nil {
				return nil, errors.Wrap(err, "decoder_model_info_present_flag")
			}
			sh.DecoderModelInfoPresent = decoderModelPresent
			if decoderModelPresent {
				dmi, err := parseDecoderModelInfo(br)
				if err != nil {
					return nil, err
				}
				sh.DecoderModelInfo = dmi
				bufferDelayLength = int(dmi.BufferDelayLengthMinus1) + 1
			}
		}

		initialDisplayDelayPresent, err := br.ReadBool()
		if err != nil {
			return nil, errors.Wrap(err, "initial_display_delay_present_flag")
		}
		sh.InitialDisplayDelayPresent = initialDisplayDelayPresent

		opCntMinus1, err := br.ReadBits(5)
		if err != nil {
			return nil, errors.Wrap(err, "operating_points_cnt_minus_1")
		}
		for i := uint64(0); i <= opCntMinus1; i++ {
			op, err := parseOperatingPoint(br, sh.DecoderModelInfoPresent, initialDisplayDelayPresent, bufferDelayLength)
			if err != nil {
				return nil, err
			}
			sh.OperatingPoints = append(sh.OperatingPoints, op)
		}
		sh.CurOperatingPointIdc = sh.OperatingPoints[0].Idc
	}

	fwBitsMinus1, err := br.ReadBits(4)
	if err != nil {
		return nil, errors.Wrap(err, "frame_width_bits_minus_1")
	}
	sh.FrameWidthBits = int(fwBitsMinus1) + 1

	fhBitsMinus1, err := br.ReadBits(4)
	if err != nil {
		return nil, errors.Wrap(err, "frame_height_bits_minus_1")
	}
	sh.FrameHeightBits = int(fhBitsMinus1) + 1

	maxW, err := br.ReadBits(sh.FrameWidthBits)
	if err != nil {
		return nil, errors.Wrap(err, "max_frame_width_minus_1")
	}
	sh.MaxFrameWidth = uint32(maxW) + 1

	maxH, err := br.ReadBits(sh.FrameHeightBits)
	if err != nil {
		return nil, errors.Wrap(err, "max_frame_height_minus_1")
	}
	sh.MaxFrameHeight = uint32(maxH) + 1

	if !reduced {
		frameIDPresent, err := br.ReadBool()
		if err != nil {
			return nil, errors.Wrap(err, "frame_id_numbers_present_flag")
		}
		sh.FrameIDNumbersPresent = frameIDPresent
	}
	if sh.FrameIDNumbersPresent {
		d, err := br.ReadBits(4)
		if err != nil {
			return nil, errors.Wrap(err, "delta_frame_id_length_minus_2")
		}
		sh.DeltaFrameIDLength = int(d) + 2
		a, err := br.ReadBits(3)
		if err != nil {
			return nil, errors.Wrap(err, "additional_frame_id_length_minus_1")
		}
		sh.AdditionalFrameIDLength = int(a) + 1
	}

	use128, err := br.ReadBool()
	if err != nil {
		return nil, errors.Wrap(err, "use_128x128_superblock")
	}
	sh.Use128x128Superblock = use128

	filterIntra, err := br.ReadBool()
	if err != nil {
		return nil, errors.Wrap(err, "enable_filter_intra")
	}
	sh.EnableFilterIntra = filterIntra

	intraEdge, err := br.ReadBool()
	if err != nil {
		return nil, errors.Wrap(err, "enable_intra_edge_filter")
	}
	sh.EnableIntraEdgeFilter = intraEdge

	if !reduced {
		if sh.EnableInterintraCompound, err = br.ReadBool(); err != nil {
			return nil, errors.Wrap(err, "enable_interintra_compound")
		}
		if sh.EnableMaskedCompound, err = br.ReadBool(); err != nil {
			return nil, errors.Wrap(err, "enable_masked_compound")
		}
		if sh.EnableWarpedMotion, err = br.ReadBool(); err != nil {
			return nil, errors.Wrap(err, "enable_warped_motion")
		}
		if sh.EnableDualFilter, err = br.ReadBool(); err != nil {
			return nil, errors.Wrap(err, "enable_dual_filter")
		}
		if sh.EnableOrderHint, err = br.ReadBool(); err != nil {
			return nil, errors.Wrap(err, "enable_order_hint")
		}
		if sh.EnableOrderHint {
			if sh.EnableJntComp, err = br.ReadBool(); err != nil {
				return nil, errors.Wrap(err, "enable_jnt_comp")
			}
			if sh.EnableRefFrameMvs, err = br.ReadBool(); err != nil {
				return nil, errors.Wrap(err, "enable_ref_frame_mvs")
			}
		}

		chooseScreenContentTools, err := br.ReadBool()
		if err != nil {
			return nil, errors.Wrap(err, "seq_choose_screen_content_tools")
		}
		if chooseScreenContentTools {
			sh.ForceScreenContentTools = SelectScreenContentTools
		} else {
			v, err := br.ReadBits(1)
			if err != nil {
				return nil, errors.Wrap(err, "seq_force_screen_content_tools")
			}
			sh.ForceScreenContentTools = uint8(v)
		}

		if sh.ForceScreenContentTools > 0 {
			chooseIntegerMv, err := br.ReadBool()
			if err != nil {
				return nil, errors.Wrap(err, "seq_choose_integer_mv")
			}
			if chooseIntegerMv {
				sh.ForceIntegerMv = SelectIntegerMv
			} else {
				v, err := br.ReadBits(1)
				if err != nil {
					return nil, errors.Wrap(err, "seq_force_integer_mv")
				}
				sh.ForceIntegerMv = uint8(v)
			}
		} else {
			sh.ForceIntegerMv = SelectIntegerMv
		}

		if sh.EnableOrderHint {
			bitsMinus1, err := br.ReadBits(3)
			if err != nil {
				return nil, errors.Wrap(err, "order_hint_bits_minus_1")
			}
			sh.OrderHintBits = int(bitsMinus1) + 1
		}
	} else {
		sh.ForceScreenContentTools = SelectScreenContentTools
		sh.ForceIntegerMv = SelectIntegerMv
	}

	if sh.EnableSuperres, err = br.ReadBool(); err != nil {
		return nil, errors.Wrap(err, "enable_superres")
	}
	if sh.EnableCdef, err = br.ReadBool(); err != nil {
		return nil, errors.Wrap(err, "enable_cdef")
	}
	if sh.EnableRestoration, err = br.ReadBool(); err != nil {
		return nil, errors.Wrap(err, "enable_restoration")
	}

	cc, err := parseColorConfig(br, sh.SeqProfile)
	if err != nil {
		return nil, err
	}
	sh.ColorConfig = cc

	sh.GrainPresentBitPos = br.BitPos()
	grainPresent, err := br.ReadBool()
	if err != nil {
		return nil, errors.Wrap(err, "film_grain_params_present")
	}
	sh.FilmGrainParamsPresent = grainPresent

	return sh, nil
}

func parseTimingInfo(br *bits.Reader) (TimingInfo, error) {
	var ti TimingInfo
	n, err := br.ReadBits(32)
	if err != nil {
		return ti, errors.Wrap(err, "num_units_in_display_tick")
	}
	ti.NumUnitsInDisplayTick = uint32(n)

	ts, err := br.ReadBits(32)
	if err != nil {
		return ti, errors.Wrap(err, "time_scale")
	}
	ti.TimeScale = uint32(ts)

	equal, err := br.ReadBool()
	if err != nil {
		return ti, errors.Wrap(err, "equal_picture_interval")
	}
	ti.EqualPictureInterval = equal

	if equal {
		v, err := br.ReadUVLC()
		if err != nil {
			return ti, errors.Wrap(err, "num_ticks_per_picture_minus_1")
		}
		ti.NumTicksPerPictureMinus1 = v
	}
	return ti, nil
}

func parseDecoderModelInfo(br *bits.Reader) (DecoderModelInfo, error) {
	var dmi DecoderModelInfo
	v, err := br.ReadBits(5)
	if err != nil {
		return dmi, errors.Wrap(err, "buffer_delay_length_minus_1")
	}
	dmi.BufferDelayLengthMinus1 = uint8(v)

	n, err := br.ReadBits(32)
	if err != nil {
		return dmi, errors.Wrap(err, "num_units_in_decoding_tick")
	}
	dmi.NumUnitsInDecodingTick = uint32(n)

	r, err := br.ReadBits(5)
	if err != nil {
		return dmi, errors.Wrap(err, "buffer_removal_time_length_minus_1")
	}
	dmi.BufferRemovalTimeLengthMinus1 = uint8(r)

	p, err := br.ReadBits(5)
	if err != nil {
		return dmi, errors.Wrap(err, "frame_presentation_time_length_minus_1")
	}
	dmi.FramePresentationTimeLengthMinus1 = uint8(p)
	return dmi, nil
}

func parseOperatingPoint(br *bits.Reader, decoderModelInfoPresent, initialDisplayDelayPresent bool, bufferDelayLength int) (OperatingPoint, error) {
	var op OperatingPoint

	idc, err := br.ReadBits(12)
	if err != nil {
		return op, errors.Wrap(err, "operating_point_idc")
	}
	op.Idc = uint16(idc)

	level, err := br.ReadBits(5)
	if err != nil {
		return op, errors.Wrap(err, "seq_level_idx")
	}
	op.SeqLevelIdx = uint8(level)

	if op.SeqLevelIdx > 7 {
		tier, err := br.ReadBool()
		if err != nil {
			return op, errors.Wrap(err, "seq_tier")
		}
		op.SeqTier = tier
	}

	if decoderModelInfoPresent {
		present, err := br.ReadBool()
		if err != nil {
			return op, errors.Wrap(err, "decoder_model_present_for_this_op")
		}
		op.DecoderModelPresent = present
		if present {
			if _, err := br.ReadBits(bufferDelayLength); err != nil { // decoder_buffer_delay
				return op, errors.Wrap(err, "decoder_buffer_delay")
			}
			if _, err := br.ReadBits(bufferDelayLength); err != nil { // encoder_buffer_delay
				return op, errors.Wrap(err, "encoder_buffer_delay")
			}
			if _, err := br.ReadBits(1); err != nil { // low_delay_mode_flag
				return op, errors.Wrap(err, "low_delay_mode_flag")
			}
		}
	}

	if initialDisplayDelayPresent {
		present, err := br.ReadBool()
		if err != nil {
			return op, errors.Wrap(err, "initial_display_delay_present_for_this_op")
		}
		op.InitialDisplayDelayPresent = present
		if present {
			d, err := br.ReadBits(4)
			if err != nil {
				return op, errors.Wrap(err, "initial_display_delay_minus_1")
			}
			op.InitialDisplayDelayMinus1 = uint8(d)
		}
	}

	return op, nil
}

func parseColorConfig(br *bits.Reader, seqProfile uint8) (ColorConfig, error) {
	var cc ColorConfig

	highBitdepth, err := br.ReadBool()
	if err != nil {
		return cc, errors.Wrap(err, "high_bitdepth")
	}

	var bitDepth int
	if seqProfile == 2 && highBitdepth {
		twelveBit, err := br.ReadBool()
		if err != nil {
			return cc, errors.Wrap(err, "twelve_bit")
		}
		if twelveBit {
			bitDepth = 12
		} else {
			bitDepth = 10
		}
	} else if highBitdepth {
		bitDepth = 10
	} else {
		bitDepth = 8
	}
	cc.BitDepth = bitDepth

	var monochrome bool
	if seqProfile == 1 {
		monochrome = false
	} else {
		monochrome, err = br.ReadBool()
		if err != nil {
			return cc, errors.Wrap(err, "mono_chrome")
		}
	}
	if monochrome {
		cc.NumPlanes = 1
	} else {
		cc.NumPlanes = 3
	}

	colorDescPresent, err := br.ReadBool()
	if err != nil {
		return cc, errors.Wrap(err, "color_description_present_flag")
	}
	if colorDescPresent {
		p, err := br.ReadBits(8)
		if err != nil {
			return cc, errors.Wrap(err, "color_primaries")
		}
		t, err := br.ReadBits(8)
		if err != nil {
			return cc, errors.Wrap(err, "transfer_characteristics")
		}
		m, err := br.ReadBits(8)
		if err != nil {
			return cc, errors.Wrap(err, "matrix_coefficients")
		}
		cc.ColorPrimaries = uint8(p)
		cc.TransferCharacteristics = uint8(t)
		cc.MatrixCoefficients = uint8(m)
	} else {
		cc.ColorPrimaries = 2 // Unspecified
		cc.TransferCharacteristics = 2
		cc.MatrixCoefficients = 2
	}

	if monochrome {
		v, err := br.ReadBits(1)
		if err != nil {
			return cc, errors.Wrap(err, "color_range")
		}
		cc.ColorRangeFull = v != 0
		cc.SubsamplingX, cc.SubsamplingY = 1, 1
		return cc, nil
	}

	if cc.ColorPrimaries == ColorPrimariesBt709 &&
		cc.TransferCharacteristics == TransferCharacteristicsSrgb &&
		cc.MatrixCoefficients == MatrixCoefficientsIdentity {
		cc.ColorRangeFull = true
		cc.SubsamplingX, cc.SubsamplingY = 0, 0
	} else {
		v, err := br.ReadBits(1)
		if err != nil {
			return cc, errors.Wrap(err, "color_range")
		}
		cc.ColorRangeFull = v != 0

		var ssx, ssy uint8
		switch {
		case seqProfile == 0:
			ssx, ssy = 1, 1
		case seqProfile == 1:
			ssx, ssy = 0, 0
		case bitDepth == 12:
			x, err := br.ReadBits(1)
			if err != nil {
				return cc, errors.Wrap(err, "subsampling_x")
			}
			ssx = uint8(x)
			if ssx != 0 {
				y, err := br.ReadBits(1)
				if err != nil {
					return cc, errors.Wrap(err, "subsampling_y")
				}
				ssy = uint8(y)
			}
		default:
			ssx, ssy = 1, 0
		}
		cc.SubsamplingX, cc.SubsamplingY = ssx, ssy

		if ssx != 0 && ssy != 0 {
			if _, err := br.ReadBits(2); err != nil { // chroma_sample_position
				return cc, errors.Wrap(err, "chroma_sample_position")
			}
		}
	}

	sep, err := br.ReadBool()
	if err != nil {
		return cc, errors.Wrap(err, "separate_uv_delta_q")
	}
	cc.SeparateUVDeltaQ = sep

	return cc, nil
}

