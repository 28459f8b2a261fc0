/*
DESCRIPTION
  grtable.go reads and writes the line-oriented `filmgrn1` grain table text
  format: the external representation of a timeline.GrainSegment list used
  by the apply/generate/inspect subcommands.

AUTHORS
  av1grain contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package grtable reads and writes the `filmgrn1` grain table text format
// used by aomenc and SVT-AV1's film grain tooling.
package grtable

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ausocean/av1grain/av1err"
	"github.com/ausocean/av1grain/codec/av1/grain"
	"github.com/ausocean/av1grain/timeline"
)

// Magic is the required first line of a grain table file.
const Magic = "filmgrn1"

// The text format always carries the full coefficient vector, padded with
// trailing zeros beyond whatever ar_coeff_lag actually requires, mirroring
// the bitstream's maximum coefficient counts.
const (
	yCoeffSlots  = 24
	uvCoeffSlots = 25
)

// ReadFile parses a filmgrn1 grain table from r.
func ReadFile(r io.Reader) ([]timeline.GrainSegment, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	if !sc.Scan() {
		return nil, av1err.New(av1err.GrainTableSyntax).WithField("magic")
	}
	if strings.TrimSpace(sc.Text()) != Magic {
		return nil, av1err.New(av1err.GrainTableSyntax).WithField("magic")
	}

	var segments []timeline.GrainSegment
	var cur *timeline.GrainSegment
	var arCoeffLag uint8

	flush := func() {
		if cur != nil {
			segments = append(segments, *cur)
		}
		cur = nil
	}

	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if !strings.HasPrefix(line, "\t") && !strings.HasPrefix(line, " ") {
			flush()
			fields := strings.Fields(trimmed)
			if len(fields) != 6 || fields[0] != "E" {
				return nil, av1err.New(av1err.GrainTableSyntax).WithField("E line")
			}
			start, err := strconv.ParseUint(fields[1], 10, 64)
			if err != nil {
				return nil, av1err.New(av1err.GrainTableSyntax).WithField("start_ts").Wrap(err)
			}
			end, err := strconv.ParseUint(fields[2], 10, 64)
			if err != nil {
				return nil, av1err.New(av1err.GrainTableSyntax).WithField("end_ts").Wrap(err)
			}
			seed, err := strconv.ParseUint(fields[4], 10, 16)
			if err != nil {
				return nil, av1err.New(av1err.GrainTableSyntax).WithField("grain_seed").Wrap(err)
			}
			cur = &timeline.GrainSegment{StartTime: start, EndTime: end}
			cur.Params.GrainSeed = uint16(seed)
			continue
		}

		if cur == nil {
			return nil, av1err.New(av1err.GrainTableSyntax).WithField("line before E")
		}

		fields := strings.Fields(trimmed)
		if len(fields) == 0 {
			continue
		}

		// The sY/sCb/sCr lines precede cY/cCb/cCr within a segment, so the
		// point counts the coefficient counts depend on are already parsed
		// when a coefficient line arrives.
		var err error
		haveY := len(cur.Params.ScalingPointsY) > 0
		switch fields[0] {
		case "p":
			arCoeffLag, err = parsePLine(cur, fields)
		case "sY":
			err = parseScalingLine(&cur.Params.ScalingPointsY, fields)
		case "sCb":
			err = parseScalingLine(&cur.Params.ScalingPointsCb, fields)
		case "sCr":
			err = parseScalingLine(&cur.Params.ScalingPointsCr, fields)
		case "cY":
			err = parseCoeffLine(&cur.Params.ArCoeffsY, fields, numPosLuma(arCoeffLag, haveY))
		case "cCb":
			err = parseCoeffLine(&cur.Params.ArCoeffsCb, fields, numPosChroma(arCoeffLag, haveY, len(cur.Params.ScalingPointsCb) > 0, cur.Params.ChromaScalingFromLuma))
		case "cCr":
			err = parseCoeffLine(&cur.Params.ArCoeffsCr, fields, numPosChroma(arCoeffLag, haveY, len(cur.Params.ScalingPointsCr) > 0, cur.Params.ChromaScalingFromLuma))
		default:
			err = errors.Errorf("unknown line tag %q", fields[0])
		}
		if err != nil {
			return nil, av1err.New(av1err.GrainTableSyntax).WithField(fields[0]).Wrap(err)
		}
	}
	flush()

	if err := sc.Err(); err != nil {
		return nil, av1err.New(av1err.GrainTableSyntax).Wrap(err)
	}

	return segments, nil
}

func numPosLuma(arCoeffLag uint8, haveY bool) int {
	if !haveY {
		return 0
	}
	return 2 * int(arCoeffLag) * (int(arCoeffLag) + 1)
}

func numPosChroma(arCoeffLag uint8, haveY, haveChroma, chromaFromLuma bool) int {
	if !haveChroma && !chromaFromLuma {
		return 0
	}
	n := 2 * int(arCoeffLag) * (int(arCoeffLag) + 1)
	if haveY {
		n++
	}
	return n
}

func parsePLine(seg *timeline.GrainSegment, fields []string) (uint8, error) {
	if len(fields) != 13 {
		return 0, errors.Errorf("want 12 fields after 'p', got %d", len(fields)-1)
	}
	ints := make([]int64, 0, 12)
	for _, f := range fields[1:] {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return 0, err
		}
		ints = append(ints, v)
	}
	p := &seg.Params
	p.ArCoeffLag = uint8(ints[0])
	p.ArCoeffShift = uint8(ints[1])
	p.GrainScaleShift = uint8(ints[2])
	p.ScalingShift = uint8(ints[3])
	p.ChromaScalingFromLuma = ints[4] != 0
	p.OverlapFlag = ints[5] != 0
	p.CbMult = uint8(ints[6])
	p.CbLumaMult = uint8(ints[7])
	p.CbOffset = uint16(ints[8])
	p.CrMult = uint8(ints[9])
	p.CrLumaMult = uint8(ints[10])
	p.CrOffset = uint16(ints[11])
	return p.ArCoeffLag, nil
}

func parseScalingLine(points *[]grain.Point, fields []string) error {
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return err
	}
	if len(fields) != 2+2*n {
		return errors.Errorf("scaling line declares %d points but has %d value fields", n, len(fields)-2)
	}
	pts := make([]grain.Point, n)
	for i := 0; i < n; i++ {
		v, err := strconv.ParseUint(fields[2+2*i], 10, 8)
		if err != nil {
			return err
		}
		s, err := strconv.ParseUint(fields[3+2*i], 10, 8)
		if err != nil {
			return err
		}
		pts[i] = grain.Point{Value: uint8(v), Scaling: uint8(s)}
	}
	*points = pts
	return nil
}

func parseCoeffLine(coeffs *[]int8, fields []string, used int) error {
	vals := fields[1:]
	out := make([]int8, 0, used)
	for i, f := range vals {
		if i >= used {
			break
		}
		v, err := strconv.ParseInt(f, 10, 16)
		if err != nil {
			return err
		}
		out = append(out, int8(v))
	}
	*coeffs = out
	return nil
}

// WriteFile writes segments as a filmgrn1 grain table to w.
func WriteFile(w io.Writer, segments []timeline.GrainSegment) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, Magic); err != nil {
		return err
	}
	for _, seg := range segments {
		if err := writeSegment(bw, seg); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeSegment(w *bufio.Writer, seg timeline.GrainSegment) error {
	p := seg.Params
	if _, err := fmt.Fprintf(w, "E %d %d 1 %d 1\n", seg.StartTime, seg.EndTime, p.GrainSeed); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\tp %d %d %d %d %d %d %d %d %d %d %d %d\n",
		p.ArCoeffLag, p.ArCoeffShift, p.GrainScaleShift, p.ScalingShift,
		b2i(p.ChromaScalingFromLuma), b2i(p.OverlapFlag),
		p.CbMult, p.CbLumaMult, p.CbOffset, p.CrMult, p.CrLumaMult, p.CrOffset)
	if err != nil {
		return err
	}
	if err := writeScalingLine(w, "sY", p.ScalingPointsY); err != nil {
		return err
	}
	if err := writeScalingLine(w, "sCb", p.ScalingPointsCb); err != nil {
		return err
	}
	if err := writeScalingLine(w, "sCr", p.ScalingPointsCr); err != nil {
		return err
	}
	if err := writeCoeffLine(w, "cY", p.ArCoeffsY, yCoeffSlots); err != nil {
		return err
	}
	if err := writeCoeffLine(w, "cCb", p.ArCoeffsCb, uvCoeffSlots); err != nil {
		return err
	}
	return writeCoeffLine(w, "cCr", p.ArCoeffsCr, uvCoeffSlots)
}

func writeScalingLine(w *bufio.Writer, tag string, points []grain.Point) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\t%s %d", tag, len(points))
	for _, pt := range points {
		fmt.Fprintf(&sb, " %d %d", pt.Value, pt.Scaling)
	}
	_, err := fmt.Fprintln(w, sb.String())
	return err
}

func writeCoeffLine(w *bufio.Writer, tag string, coeffs []int8, slots int) error {
	var sb strings.Builder
	sb.WriteString("\t" + tag)
	for i := 0; i < slots; i++ {
		var v int8
		if i < len(coeffs) {
			v = coeffs[i]
		}
		fmt.Fprintf(&sb, " %d", v)
	}
	_, err := fmt.Fprintln(w, sb.String())
	return err
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
