/*
DESCRIPTION
  frame.go decodes the AV1 uncompressed_header() syntax element: the
  densest part of the OBU parser, culminating in the film-grain
  parameters that are the last element of the header. Bit order follows
  section 5.9 of the AV1 specification throughout.

AUTHORS
  av1grain contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package frame decodes the AV1 frame header: reference-frame bookkeeping,
// frame/render size (including superres), tile layout, quantization,
// segmentation, loop filter, CDEF, loop restoration, tx mode, skip-mode
// derivation, global motion, and the trailing film-grain parameters.
package frame

import (
	"github.com/pkg/errors"

	"github.com/ausocean/av1grain/codec/av1/bits"
	"github.com/ausocean/av1grain/codec/av1/grain"
	"github.com/ausocean/av1grain/codec/av1/refstate"
	"github.com/ausocean/av1grain/codec/av1/seq"
)

// AV1 constants referenced by this package.
const (
	RefreshAllFrames = 0xFF

	SuperresDenomBits = 3
	SuperresDenomMin  = 9
	SuperresNum       = 8

	MaxTileWidth = 4096
	MaxTileCols  = 64
	MaxTileRows  = 64
	MaxTileArea  = 4096 * 2304

	MaxSegments  = 8
	SegLvlMax    = 8
	SegLvlAltQ   = 0
	MaxLoopFilter = 63

	InterpFilterSwitchable = 4
	RestoreNone            = 0
)

// segmentationFeatureBits, segmentationFeatureSigned, and
// segmentationFeatureMax are the Segmentation_Feature_Bits/Signed/Max
// tables from the AV1 specification.
var (
	segmentationFeatureBits   = [SegLvlMax]int{8, 6, 6, 6, 6, 3, 0, 0}
	segmentationFeatureSigned = [SegLvlMax]bool{true, true, true, true, true, false, false, false}
	segmentationFeatureMax    = [SegLvlMax]int16{255, MaxLoopFilter, MaxLoopFilter, MaxLoopFilter, MaxLoopFilter, 7, 0, 0}
)

// FrameType is the 2-bit frame_type field.
type FrameType uint8

const (
	KeyFrame FrameType = iota
	InterFrame
	IntraOnlyFrame
	SwitchFrame
)

// IsIntra reports whether t is an intra frame type.
func (t FrameType) IsIntra() bool { return t == KeyFrame || t == IntraOnlyFrame }

// Dimensions is a width/height pair in luma samples.
type Dimensions struct {
	Width, Height uint32
}

// TileInfo is the derived tile layout.
type TileInfo struct {
	TileCols      uint32
	TileRows      uint32
	TileColsLog2  uint32
	TileRowsLog2  uint32
}

// QuantizationParams holds the fields coded_lossless derivation needs.
type QuantizationParams struct {
	BaseQIdx                                         uint8
	DeltaQYDc, DeltaQUDc, DeltaQUAc, DeltaQVDc, DeltaQVAc int64
}

// SegmentationData is the per-segment, per-feature signed value table; a
// nil entry means the feature is inactive for that segment.
type SegmentationData [MaxSegments][SegLvlMax]*int16

// FrameHeader is the parser's output.
type FrameHeader struct {
	ShowFrame         bool
	ShowExistingFrame bool
	FilmGrain         grain.Header
	TileInfo          TileInfo

	// FrameType, OrderHint, and RefreshFrameFlags are retained so the
	// rewriter and tests can observe the state transitions that drove
	// ReferenceState updates.
	FrameType         FrameType
	OrderHint         uint32
	RefreshFrameFlags uint8

	// GrainBitStart and GrainBitEnd bound film_grain_params() within this
	// OBU's payload, letting the rewriter copy everything before it
	// verbatim and splice in a replacement of a different bit length. Both
	// are -1 for the show_existing_frame path, which carries no grain bits
	// of its own.
	GrainBitStart, GrainBitEnd int

	// GrainReadParams is the gating state film_grain_params() was parsed
	// under; the rewriter replays it so a replacement grain block is
	// written under the same monochrome/subsampling conditionals a decoder
	// will re-parse it with.
	GrainReadParams grain.ReadParams
}

// Extension carries the OBU extension-layer ids the decoder-model
// buffer-removal-time loop needs; zero values are used when no extension
// is present.
type Extension struct {
	TemporalID uint8
	SpatialID  uint8
}

// fieldReader wraps bits.Reader with a sticky error that is checked once at
// the end of a sequence of reads. The receiver must be a pointer so the
// error survives across separate statements.
type fieldReader struct {
	br *bits.Reader
	e  error
}

func newFieldReader(br *bits.Reader) *fieldReader { return &fieldReader{br: br} }

func (r *fieldReader) u(n int) uint64 {
	if r.e != nil || n == 0 {
		return 0
	}
	v, err := r.br.ReadBits(n)
	if err != nil {
		r.e = err
	}
	return v
}

func (r *fieldReader) bit() bool { return r.u(1) != 0 }

func (r *fieldReader) su(n int) int64 {
	if r.e != nil {
		return 0
	}
	v, err := r.br.ReadSU(n)
	if err != nil {
		r.e = err
	}
	return v
}

func (r *fieldReader) ns(n uint32) uint32 {
	if r.e != nil {
		return 0
	}
	v, err := r.br.ReadNS(n)
	if err != nil {
		r.e = err
	}
	return v
}

func (r *fieldReader) err() error { return r.e }

// Parse decodes uncompressed_header(). sh is the
// installed sequence header; rs is the mutable reference-state arrays;
// prevTileInfo is the previous frame's tile_info (used by
// show_existing_frame); ext carries the OBU extension ids.
func Parse(br *bits.Reader, sh *seq.SequenceHeader, rs *refstate.ReferenceState, prevTileInfo TileInfo, ext Extension) (*FrameHeader, error) {
	r := newFieldReader(br)

	var idLen int
	if sh.FrameIDNumbersPresent {
		idLen = sh.AdditionalFrameIDLength + sh.DeltaFrameIDLength
	}

	var frameType FrameType
	var showFrame, showableFrame, showExistingFrame, errorResilient bool

	if sh.ReducedStillPictureHeader {
		frameType = InterFrame
		showFrame = true
		showableFrame = true
	} else {
		showExistingFrame = r.bit()
		if showExistingFrame {
			_ = r.u(3) // frame_to_show_map_idx
			if idLen > 0 {
				_ = r.u(idLen) // display_frame_id
			}
			if err := r.err(); err != nil {
				return nil, errors.Wrap(err, "show_existing_frame path")
			}
			return &FrameHeader{
				ShowFrame:         true,
				ShowExistingFrame: true,
				FilmGrain:         grain.Header{Variant: grain.CopyRefFrame},
				TileInfo:          prevTileInfo,
				GrainBitStart:     -1,
				GrainBitEnd:       -1,
			}, nil
		}

		frameType = FrameType(r.u(2))
		showFrame = r.bit()
		if showFrame && sh.DecoderModelInfoPresent && !(sh.TimingInfoPresent && sh.TimingInfo.EqualPictureInterval) {
			_ = r.u(int(sh.DecoderModelInfo.FramePresentationTimeLengthMinus1) + 1) // frame_presentation_time
		}
		if showFrame {
			showableFrame = frameType != KeyFrame
		} else {
			showableFrame = r.bit()
		}
		if frameType == SwitchFrame || (frameType == KeyFrame && showFrame) {
			errorResilient = true
		} else {
			errorResilient = r.bit()
		}
	}

	if frameType == KeyFrame && showFrame {
		rs.ResetOnKeyFrame()
	}

	disableCdfUpdate := r.bit()

	var allowScreenContentTools bool
	if sh.ForceScreenContentTools == seq.SelectScreenContentTools {
		allowScreenContentTools = r.bit()
	} else {
		allowScreenContentTools = sh.ForceScreenContentTools == 1
	}

	if allowScreenContentTools && sh.ForceIntegerMv == seq.SelectIntegerMv {
		_ = r.bit() // force_integer_mv
	}

	if sh.FrameIDNumbersPresent {
		_ = r.u(idLen) // current_frame_id
	}

	var frameSizeOverride bool
	switch {
	case frameType == SwitchFrame:
		frameSizeOverride = true
	case sh.ReducedStillPictureHeader:
		frameSizeOverride = false
	default:
		frameSizeOverride = r.bit()
	}

	orderHint := uint32(r.u(sh.OrderHintBits))

	primaryRefFrame := uint8(refstate.PrimaryRefNone)
	if !(frameType.IsIntra() || errorResilient) {
		primaryRefFrame = uint8(r.u(3))
	}

	if sh.DecoderModelInfoPresent {
		bufferRemovalTimePresent := r.bit()
		if bufferRemovalTimePresent {
			for opNum := range sh.OperatingPoints {
				op := sh.OperatingPoints[opNum]
				if !op.DecoderModelPresent {
					continue
				}
				inTemporal := (op.Idc>>ext.TemporalID)&1 != 0
				inSpatial := (op.Idc>>(uint16(ext.SpatialID)+8))&1 != 0
				if op.Idc == 0 || (inTemporal && inSpatial) {
					n := int(sh.DecoderModelInfo.BufferRemovalTimeLengthMinus1) + 1
					_ = r.u(n) // buffer_removal_time
				}
			}
		}
	}

	var refreshFrameFlags uint8
	if frameType == SwitchFrame || (frameType == KeyFrame && showFrame) {
		refreshFrameFlags = RefreshAllFrames
	} else {
		refreshFrameFlags = uint8(r.u(8))
	}

	if (!frameType.IsIntra() || refreshFrameFlags != RefreshAllFrames) && errorResilient && sh.EnableOrderHint {
		for i := 0; i < refstate.NumRefFrames; i++ {
			curRefOrderHint := uint32(r.u(sh.OrderHintBits))
			prev := rs.RefOrderHint[i]
			rs.SavedRefOrderHint[i] = prev
			rs.RefOrderHint[i] = curRefOrderHint
			if curRefOrderHint != prev {
				rs.SavedRefValid[i] = false
			}
		}
	}

	maxFrameSize := Dimensions{Width: sh.MaxFrameWidth, Height: sh.MaxFrameHeight}

	var frameSize, upscaledSize Dimensions
	allowIntrabc := false
	var useRefFrameMvs bool

	if frameType.IsIntra() {
		frameSize, upscaledSize = readFrameSize(r, frameSizeOverride, sh.EnableSuperres, sh.FrameWidthBits, sh.FrameHeightBits, maxFrameSize)
		readRenderSize(r, frameSize, &upscaledSize)
		if allowScreenContentTools && upscaledSize.Width == frameSize.Width {
			allowIntrabc = r.bit()
		}
	} else {
		frameRefsShortSignaling := false
		if sh.EnableOrderHint {
			frameRefsShortSignaling = r.bit()
			if frameRefsShortSignaling {
				_ = r.u(3) // last_frame_idx
				_ = r.u(3) // gold_frame_idx
				// set_frame_refs(): no bits consumed, decoder-state only.
			}
		}
		for i := 0; i < refstate.RefsPerFrame; i++ {
			if frameRefsShortSignaling {
				rs.RefFrameIdx[i] = 0
			} else {
				rs.RefFrameIdx[i] = int(r.u(3))
				if sh.FrameIDNumbersPresent {
					_ = r.u(sh.DeltaFrameIDLength) // delta_frame_id_minus_1
				}
			}
		}

		if frameSizeOverride && !errorResilient {
			frameSize = maxFrameSize
			upscaledSize = maxFrameSize
			readFrameSizeWithRefs(r, sh.EnableSuperres, frameSizeOverride, sh.FrameWidthBits, sh.FrameHeightBits, maxFrameSize, &frameSize, &upscaledSize)
		} else {
			frameSize, upscaledSize = readFrameSize(r, frameSizeOverride, sh.EnableSuperres, sh.FrameWidthBits, sh.FrameHeightBits, maxFrameSize)
			readRenderSize(r, frameSize, &upscaledSize)
		}

		if sh.ForceIntegerMv != 1 {
			_ = r.bit() // allow_high_precision_mv
		}
		readInterpolationFilter(r)
		_ = r.bit() // is_motion_mode_switchable
		if errorResilient || !sh.EnableRefFrameMvs {
			useRefFrameMvs = false
		} else {
			useRefFrameMvs = r.bit()
		}
		for i := 0; i < refstate.RefsPerFrame; i++ {
			hint := rs.SavedRefOrderHint[rs.RefFrameIdx[i]]
			rs.SavedOrderHints[1+i] = hint
		}
	}
	_ = useRefFrameMvs

	miCols, miRows := computeImageSize(frameSize)

	if sh.ReducedStillPictureHeader || disableCdfUpdate {
		// disable_frame_end_update_cdf = true, no bit read.
	} else {
		_ = r.bit() // disable_frame_end_update_cdf
	}
	// init_non_coeff_cdfs / setup_past_independence / load_cdfs /
	// load_previous / motion_field_estimation are decoder-state-only: no
	// bits consumed, so nothing to do here regardless of primaryRefFrame
	// or useRefFrameMvs.

	tileInfo := readTileInfo(r, sh.Use128x128Superblock, miCols, miRows)

	qParams := readQuantizationParams(r, sh.ColorConfig.NumPlanes, sh.ColorConfig.SeparateUVDeltaQ)
	segData, segEnabled := readSegmentationParams(r, primaryRefFrame)
	deltaQPresent := readDeltaQParams(r, qParams.BaseQIdx)
	readDeltaLfParams(r, deltaQPresent, allowIntrabc)
	// init_coeff_cdfs / load_previous_segment_ids: decoder-state-only.

	codedLossless := true
	for segmentID := 0; segmentID < MaxSegments; segmentID++ {
		qindex := getQIndex(segmentID, qParams.BaseQIdx, segData, segEnabled)
		lossless := qindex == 0 &&
			qParams.DeltaQYDc == 0 && qParams.DeltaQUAc == 0 &&
			qParams.DeltaQUDc == 0 && qParams.DeltaQVAc == 0 && qParams.DeltaQVDc == 0
		if !lossless {
			codedLossless = false
			break
		}
	}
	allLossless := codedLossless && frameSize.Width == upscaledSize.Width

	readLoopFilterParams(r, codedLossless, allowIntrabc, sh.ColorConfig.NumPlanes)
	readCdefParams(r, codedLossless, allowIntrabc, sh.EnableCdef, sh.ColorConfig.NumPlanes)
	readLrParams(r, allLossless, allowIntrabc, sh.EnableRestoration, sh.Use128x128Superblock, sh.ColorConfig.NumPlanes, sh.ColorConfig.SubsamplingX, sh.ColorConfig.SubsamplingY)
	readTxMode(r, codedLossless)
	referenceSelect := readFrameReferenceMode(r, frameType.IsIntra())
	readSkipModeParams(r, frameType.IsIntra(), referenceSelect, sh.OrderHintBits, orderHint, rs)

	if frameType.IsIntra() || errorResilient || !sh.EnableWarpedMotion {
		// allow_warped_motion = false, no bit read.
	} else {
		_ = r.bit() // allow_warped_motion
	}
	_ = r.bit() // reduced_tx_set
	readGlobalMotionParams(r, frameType.IsIntra())

	if err := r.err(); err != nil {
		return nil, errors.Wrap(err, "uncompressed_header")
	}

	readP := grain.ReadParams{
		FilmGrainParamsPresent: sh.FilmGrainParamsPresent,
		ShowFrame:              showFrame,
		ShowableFrame:          showableFrame,
		FrameIsInter:           !frameType.IsIntra(),
		Monochrome:             sh.ColorConfig.NumPlanes == 1,
		SubsamplingX:           sh.ColorConfig.SubsamplingX,
		SubsamplingY:           sh.ColorConfig.SubsamplingY,
	}
	grainBitStart := br.BitPos()
	filmGrain, err := grain.Read(br, readP)
	if err != nil {
		return nil, errors.Wrap(err, "film_grain_params")
	}
	grainBitEnd := br.BitPos()

	rs.UpdateRefreshed(refreshFrameFlags, orderHint)

	return &FrameHeader{
		ShowFrame:         showFrame,
		ShowExistingFrame: showExistingFrame,
		FilmGrain:         filmGrain,
		TileInfo:          tileInfo,
		GrainBitStart:     grainBitStart,
		GrainBitEnd:       grainBitEnd,
		GrainReadParams:   readP,
		FrameType:         frameType,
		OrderHint:         orderHint,
		RefreshFrameFlags: refreshFrameFlags,
	}, nil
}

func readInterpolationFilter(r *fieldReader) {
	switchable := r.bit()
	if !switchable {
		_ = r.u(2)
	}
}

// readFrameSize returns (FrameSize, UpscaledSize): superres_params() narrows
// FrameSize.Width but leaves UpscaledSize.Width as the pre-superres value,
// which allow_intrabc and render_size both depend on.
func readFrameSize(r *fieldReader, override bool, enableSuperres bool, widthBits, heightBits int, maxSize Dimensions) (Dimensions, Dimensions) {
	var d Dimensions
	if override {
		d.Width = uint32(r.u(widthBits)) + 1
		d.Height = uint32(r.u(heightBits)) + 1
	} else {
		d = maxSize
	}
	upscaled := d
	readSuperresParams(r, enableSuperres, &d, &upscaled)
	return d, upscaled
}

func readRenderSize(r *fieldReader, frameSize Dimensions, upscaledSize *Dimensions) {
	different := r.bit()
	if different {
		_ = uint32(r.u(16)) + 1 // render_width_minus_1
		_ = uint32(r.u(16)) + 1 // render_height_minus_1
	}
	_ = upscaledSize // render size itself is not needed by this tool.
}

func readFrameSizeWithRefs(r *fieldReader, enableSuperres, override bool, widthBits, heightBits int, maxSize Dimensions, frameSize, upscaledSize *Dimensions) {
	foundRef := false
	for i := 0; i < refstate.RefsPerFrame; i++ {
		if r.bit() {
			foundRef = true
			break
		}
	}
	if foundRef {
		readSuperresParams(r, enableSuperres, frameSize, upscaledSize)
	} else {
		*frameSize, *upscaledSize = readFrameSize(r, override, enableSuperres, widthBits, heightBits, maxSize)
		readRenderSize(r, *frameSize, upscaledSize)
	}
}

func readSuperresParams(r *fieldReader, enableSuperres bool, frameSize, upscaledSize *Dimensions) {
	useSuperres := false
	if enableSuperres {
		useSuperres = r.bit()
	}
	superresDenom := uint32(SuperresNum)
	if useSuperres {
		codedDenom := uint32(r.u(SuperresDenomBits))
		superresDenom = codedDenom + SuperresDenomMin
	}
	upscaledSize.Width = frameSize.Width
	frameSize.Width = (upscaledSize.Width*SuperresNum + superresDenom/2) / superresDenom
}

func computeImageSize(frameSize Dimensions) (miCols, miRows uint32) {
	miCols = 2 * ((frameSize.Width + 7) >> 3)
	miRows = 2 * ((frameSize.Height + 7) >> 3)
	return
}

// tileLog2 returns the smallest k such that blkSize<<k >= target.
func tileLog2(blkSize, target uint32) uint32 {
	k := uint32(0)
	for (blkSize << k) < target {
		k++
	}
	return k
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

func readTileInfo(r *fieldReader, use128x128Superblock bool, miCols, miRows uint32) TileInfo {
	var sbCols, sbRows, sbShift uint32
	if use128x128Superblock {
		sbCols = (miCols + 31) >> 5
		sbRows = (miRows + 31) >> 5
		sbShift = 5
	} else {
		sbCols = (miCols + 15) >> 4
		sbRows = (miRows + 15) >> 4
		sbShift = 4
	}
	sbSize := sbShift + 2
	maxTileWidthSb := uint32(MaxTileWidth) >> sbSize
	maxTileAreaSb := uint32(MaxTileArea) >> (2 * sbSize)
	minLog2TileCols := tileLog2(maxTileWidthSb, sbCols)
	maxLog2TileCols := tileLog2(1, minU32(sbCols, MaxTileCols))
	maxLog2TileRows := tileLog2(1, minU32(sbRows, MaxTileRows))
	minLog2Tiles := maxU32(minLog2TileCols, tileLog2(maxTileAreaSb, sbRows*sbCols))

	var tileCols, tileRows, tileColsLog2, tileRowsLog2 uint32

	uniform := r.bit()
	if uniform {
		tileColsLog2 = minLog2TileCols
		for tileColsLog2 < maxLog2TileCols {
			if r.bit() {
				tileColsLog2++
			} else {
				break
			}
		}
		tileWidthSb := (sbCols + (1 << tileColsLog2) - 1) >> tileColsLog2
		for i := uint32(0); i < sbCols; i += tileWidthSb {
			tileCols = i + 1
		}

		var minLog2TileRows uint32
		if minLog2Tiles > tileColsLog2 {
			minLog2TileRows = minLog2Tiles - tileColsLog2
		}
		tileRowsLog2 = minLog2TileRows
		for tileRowsLog2 < maxLog2TileRows {
			if r.bit() {
				tileRowsLog2++
			} else {
				break
			}
		}
		tileHeightSb := (sbRows + (1 << tileRowsLog2) - 1) >> tileRowsLog2
		for i := uint32(0); i < sbRows; i += tileHeightSb {
			tileRows = i + 1
		}
	} else {
		widestTileSb := uint32(0)
		startSb := uint32(0)
		i := uint32(0)
		for startSb < sbCols {
			maxWidth := minU32(sbCols-startSb, maxTileWidthSb)
			widthInSbsMinus1 := r.ns(maxWidth)
			sizeSb := widthInSbsMinus1 + 1
			widestTileSb = maxU32(sizeSb, widestTileSb)
			startSb += sizeSb
			i++
		}
		tileCols = i

		startSb = 0
		i = 0
		maxTileHeightSb := maxU32(maxTileAreaSb/maxU32(widestTileSb, 1), 1)
		for startSb < sbRows {
			maxHeight := minU32(sbRows-startSb, maxTileHeightSb)
			heightInSbsMinus1 := r.ns(maxHeight)
			sizeSb := heightInSbsMinus1 + 1
			startSb += sizeSb
			i++
		}
		tileRows = i

		tileColsLog2 = tileLog2(1, tileCols)
		tileRowsLog2 = tileLog2(1, tileRows)
	}

	if tileColsLog2 > 0 || tileRowsLog2 > 0 {
		_ = r.u(int(tileRowsLog2 + tileColsLog2)) // context_update_tile_id
		_ = r.u(2)                                // tile_size_bytes_minus_1
	}

	return TileInfo{
		TileCols:     tileCols,
		TileRows:     tileRows,
		TileColsLog2: tileColsLog2,
		TileRowsLog2: tileRowsLog2,
	}
}

func readDeltaQ(r *fieldReader) int64 {
	coded := r.bit()
	if !coded {
		return 0
	}
	return r.su(1 + 6)
}

func readQuantizationParams(r *fieldReader, numPlanes int, separateUVDeltaQ bool) QuantizationParams {
	var q QuantizationParams
	q.BaseQIdx = uint8(r.u(8))
	q.DeltaQYDc = readDeltaQ(r)

	if numPlanes > 1 {
		diffUVDelta := false
		if separateUVDeltaQ {
			diffUVDelta = r.bit()
		}
		q.DeltaQUDc = readDeltaQ(r)
		q.DeltaQUAc = readDeltaQ(r)
		if diffUVDelta {
			q.DeltaQVDc = readDeltaQ(r)
			q.DeltaQVAc = readDeltaQ(r)
		} else {
			q.DeltaQVDc = q.DeltaQUDc
			q.DeltaQVAc = q.DeltaQUAc
		}
	}

	usingQMatrix := r.bit()
	if usingQMatrix {
		_ = r.u(4) // qm_y
		qmU := r.u(4)
		if separateUVDeltaQ {
			_ = r.u(4) // qm_v
		} else {
			_ = qmU
		}
	}
	return q
}

func readSegmentationParams(r *fieldReader, primaryRefFrame uint8) (SegmentationData, bool) {
	var data SegmentationData
	enabled := r.bit()
	if !enabled {
		return data, false
	}

	var updateData bool
	if primaryRefFrame == refstate.PrimaryRefNone {
		updateData = true
	} else {
		updateMap := r.bit()
		if updateMap {
			_ = r.bit() // segmentation_temporal_update
		}
		updateData = r.bit()
	}

	if updateData {
		for i := 0; i < MaxSegments; i++ {
			for j := 0; j < SegLvlMax; j++ {
				featureEnabled := r.bit()
				if !featureEnabled {
					continue
				}
				bitsToRead := segmentationFeatureBits[j]
				limit := segmentationFeatureMax[j]
				var value int16
				if segmentationFeatureSigned[j] {
					v := r.su(1 + bitsToRead)
					value = clampI16(int16(v), -limit, limit)
				} else {
					v := r.u(bitsToRead)
					value = clampI16(int16(v), 0, limit)
				}
				data[i][j] = &value
			}
		}
	}

	return data, enabled
}

func clampI16(v, lo, hi int16) int16 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func readDeltaQParams(r *fieldReader, baseQIdx uint8) bool {
	present := false
	if baseQIdx > 0 {
		present = r.bit()
	}
	if present {
		_ = r.u(2) // delta_q_res
	}
	return present
}

func readDeltaLfParams(r *fieldReader, deltaQPresent, allowIntrabc bool) {
	if !deltaQPresent {
		return
	}
	present := false
	if !allowIntrabc {
		present = r.bit()
	}
	if present {
		_ = r.u(2) // delta_lf_res
		_ = r.bit() // delta_lf_multi
	}
}

func getQIndex(segmentID int, baseQIdx uint8, data SegmentationData, segEnabled bool) uint8 {
	if segEnabled && data[segmentID][SegLvlAltQ] != nil {
		qindex := int16(baseQIdx) + *data[segmentID][SegLvlAltQ]
		return uint8(clampI16(qindex, 0, 255))
	}
	return baseQIdx
}

func readLoopFilterParams(r *fieldReader, codedLossless, allowIntrabc bool, numPlanes int) {
	if codedLossless || allowIntrabc {
		return
	}
	l0 := r.u(6)
	l1 := r.u(6)
	if numPlanes > 1 && (l0 > 0 || l1 > 0) {
		_ = r.u(6) // loop_filter_l2
		_ = r.u(6) // loop_filter_l3
	}
	_ = r.u(3) // loop_filter_sharpness
	deltaEnabled := r.bit()
	if deltaEnabled {
		deltaUpdate := r.bit()
		if deltaUpdate {
			const totalRefsPerFrame = 8
			for i := 0; i < totalRefsPerFrame; i++ {
				if r.bit() {
					_ = r.su(1 + 6) // loop_filter_ref_delta
				}
			}
			for i := 0; i < 2; i++ {
				if r.bit() {
					_ = r.su(1 + 6) // loop_filter_mode_delta
				}
			}
		}
	}
}

func readCdefParams(r *fieldReader, codedLossless, allowIntrabc, enableCdef bool, numPlanes int) {
	if codedLossless || allowIntrabc || !enableCdef {
		return
	}
	_ = r.u(2) // cdef_damping_minus_3
	cdefBits := r.u(2)
	for i := 0; i < (1 << cdefBits); i++ {
		_ = r.u(4) // cdef_y_pri_strength
		_ = r.u(2) // cdef_y_sec_strength
		if numPlanes > 1 {
			_ = r.u(4) // cdef_uv_pri_strength
			_ = r.u(2) // cdef_uv_sec_strength
		}
	}
}

func readLrParams(r *fieldReader, allLossless, allowIntrabc, enableRestoration, use128x128Superblock bool, numPlanes int, ssx, ssy uint8) {
	if allLossless || allowIntrabc || !enableRestoration {
		return
	}
	usesLr := false
	usesChromaLr := false
	for i := 0; i < numPlanes; i++ {
		lrType := r.u(2)
		if lrType != RestoreNone {
			usesLr = true
			if i > 0 {
				usesChromaLr = true
			}
		}
	}
	if usesLr {
		if use128x128Superblock {
			_ = r.bit() // lr_unit_shift
		} else {
			shift := r.bit()
			if shift {
				_ = r.bit() // lr_unit_extra_shift
			}
		}
		if ssx > 0 && ssy > 0 && usesChromaLr {
			_ = r.bit() // lr_uv_shift
		}
	}
}

func readTxMode(r *fieldReader, codedLossless bool) {
	if codedLossless {
		return
	}
	_ = r.bit() // tx_mode_select
}

func readFrameReferenceMode(r *fieldReader, frameIsIntra bool) bool {
	if frameIsIntra {
		return false
	}
	return r.bit()
}

// getRelativeDist implements the order-hint distance formula used by the
// skip-mode-allowed derivation.
func getRelativeDist(a, b int64, orderHintBits int) int64 {
	if orderHintBits == 0 {
		return 0
	}
	diff := a - b
	m := int64(1) << uint(orderHintBits-1)
	return (diff & (m - 1)) - (diff & m)
}

func readSkipModeParams(r *fieldReader, frameIsIntra, referenceSelect bool, orderHintBits int, orderHint uint32, rs *refstate.ReferenceState) {
	skipModeAllowed := false
	if !(frameIsIntra || !referenceSelect || orderHintBits == 0) {
		forwardIdx, backwardIdx := -1, -1
		var forwardHint, backwardHint int64 = -1, -1

		for i := 0; i < refstate.RefsPerFrame; i++ {
			refHint := int64(rs.SavedRefOrderHint[rs.RefFrameIdx[i]])
			if getRelativeDist(refHint, int64(orderHint), orderHintBits) < 0 {
				if forwardIdx < 0 || getRelativeDist(refHint, forwardHint, orderHintBits) > 0 {
					forwardIdx = i
					forwardHint = refHint
				}
			} else if getRelativeDist(refHint, int64(orderHint), orderHintBits) > 0 {
				if backwardIdx < 0 || getRelativeDist(refHint, backwardHint, orderHintBits) < 0 {
					backwardIdx = i
					backwardHint = refHint
				}
			}
		}

		switch {
		case forwardIdx < 0:
			skipModeAllowed = false
		case backwardIdx >= 0:
			skipModeAllowed = true
		default:
			secondForwardIdx := -1
			var secondForwardHint int64 = -1
			for i := 0; i < refstate.RefsPerFrame; i++ {
				refHint := int64(rs.SavedRefOrderHint[rs.RefFrameIdx[i]])
				if getRelativeDist(refHint, forwardHint, orderHintBits) < 0 {
					if secondForwardIdx < 0 || getRelativeDist(refHint, secondForwardHint, orderHintBits) > 0 {
						secondForwardIdx = i
						secondForwardHint = refHint
					}
				}
			}
			skipModeAllowed = secondForwardIdx >= 0
		}
	}

	if skipModeAllowed {
		_ = r.bit() // skip_mode_present
	}
}

func readGlobalMotionParams(r *fieldReader, frameIsIntra bool) {
	if frameIsIntra {
		return
	}
	// RefType Last(1) through Altref(7): 7 non-intra reference frames.
	for ref := 1; ref <= 7; ref++ {
		isGlobal := r.bit()
		if isGlobal {
			isRotZoom := r.bit()
			if !isRotZoom {
				_ = r.bit() // is_translation
			}
		}
	}
}
