/*
DESCRIPTION
  filterchain.go parses and applies the diff subcommand's `-f` filter chain:
  a semicolon-separated list of crop/resize operations applied to both the
  source and denoised frame before diff statistics are computed, so the two
  videos can be aligned first.

AUTHORS
  av1grain contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package filterchain parses and applies crop/resize filter chains to
// diffengine.Frame values, letting the diff subcommand align its two
// inputs before comparing them.
package filterchain

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ausocean/av1grain/diffengine"
)

// Algorithm names a resize interpolation kernel.
type Algorithm string

const (
	Nearest  Algorithm = "nearest"
	Bilinear Algorithm = "bilinear"
	Lanczos3 Algorithm = "lanczos3"
)

type cropFilter struct{ top, bottom, left, right int }

type resizeFilter struct {
	width, height int
	alg           Algorithm
}

// Chain is a parsed, ready-to-apply sequence of crop/resize filters.
type Chain struct {
	crops   []cropFilter
	resizes []resizeFilter
	order   []int // 0 = crop, 1 = resize, indexing into the slice it came from
}

// Parse parses a filter chain string such as
// "crop:top=4,bottom=4,left=0,right=0;resize:width=1280,height=720,alg=bilinear".
// An empty string returns an empty, no-op Chain.
func Parse(s string) (*Chain, error) {
	c := &Chain{}
	if s == "" {
		return c, nil
	}

	for _, part := range strings.Split(s, ";") {
		name, args, ok := strings.Cut(part, ":")
		if !ok {
			return nil, errors.Errorf("invalid filter syntax in %q", part)
		}
		switch name {
		case "crop":
			f, err := parseCrop(args)
			if err != nil {
				return nil, err
			}
			c.crops = append(c.crops, f)
			c.order = append(c.order, 0)
		case "resize":
			f, err := parseResize(args)
			if err != nil {
				return nil, err
			}
			c.resizes = append(c.resizes, f)
			c.order = append(c.order, 1)
		default:
			return nil, errors.Errorf("unrecognized filter %q", name)
		}
	}
	return c, nil
}

func parseCrop(args string) (cropFilter, error) {
	var f cropFilter
	for _, kv := range strings.Split(args, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return f, errors.Errorf("invalid filter syntax in %q", kv)
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, errors.Wrapf(err, "crop arg %q", k)
		}
		switch k {
		case "top":
			f.top = n
		case "bottom":
			f.bottom = n
		case "left":
			f.left = n
		case "right":
			f.right = n
		default:
			return f, errors.Errorf("unrecognized crop arg %q", k)
		}
	}
	return f, nil
}

func parseResize(args string) (resizeFilter, error) {
	f := resizeFilter{alg: Bilinear}
	for _, kv := range strings.Split(args, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return f, errors.Errorf("invalid filter syntax in %q", kv)
		}
		switch k {
		case "width":
			n, err := strconv.Atoi(v)
			if err != nil {
				return f, errors.Wrap(err, "resize width")
			}
			f.width = n
		case "height":
			n, err := strconv.Atoi(v)
			if err != nil {
				return f, errors.Wrap(err, "resize height")
			}
			f.height = n
		case "alg":
			switch Algorithm(v) {
			case Nearest, Bilinear, Lanczos3:
				f.alg = Algorithm(v)
			default:
				return f, errors.Errorf("unrecognized resize algorithm %q", v)
			}
		default:
			return f, errors.Errorf("unrecognized resize arg %q", k)
		}
	}
	if f.width == 0 || f.height == 0 {
		return f, errors.New("both width and height must be provided to resize filter")
	}
	return f, nil
}

// Apply runs every filter in the chain over frame in order and returns the
// result. frame is not mutated.
func (c *Chain) Apply(frame diffengine.Frame) diffengine.Frame {
	ci, ri := 0, 0
	for _, kind := range c.order {
		if kind == 0 {
			frame = applyCrop(frame, c.crops[ci])
			ci++
		} else {
			frame = applyResize(frame, c.resizes[ri])
			ri++
		}
	}
	return frame
}

func applyCrop(f diffengine.Frame, c cropFilter) diffengine.Frame {
	newW := f.Width - c.left - c.right
	newH := f.Height - c.top - c.bottom
	if newW <= 0 || newH <= 0 {
		return diffengine.Frame{Index: f.Index}
	}
	out := make([]float64, newW*newH)
	for y := 0; y < newH; y++ {
		srcRow := (y + c.top) * f.Width
		copy(out[y*newW:(y+1)*newW], f.Luma[srcRow+c.left:srcRow+c.left+newW])
	}
	return diffengine.Frame{Index: f.Index, Luma: out, Width: newW, Height: newH}
}

func applyResize(f diffengine.Frame, r resizeFilter) diffengine.Frame {
	out := make([]float64, r.width*r.height)
	xScale := float64(f.Width) / float64(r.width)
	yScale := float64(f.Height) / float64(r.height)

	for y := 0; y < r.height; y++ {
		for x := 0; x < r.width; x++ {
			var v float64
			switch r.alg {
			case Nearest:
				v = sampleNearest(f, x, y, xScale, yScale)
			case Lanczos3:
				v = sampleLanczos3(f, x, y, xScale, yScale)
			default:
				v = sampleBilinear(f, x, y, xScale, yScale)
			}
			out[y*r.width+x] = v
		}
	}
	return diffengine.Frame{Index: f.Index, Luma: out, Width: r.width, Height: r.height}
}

func sampleNearest(f diffengine.Frame, x, y int, xScale, yScale float64) float64 {
	sx := clampInt(int(float64(x)*xScale), 0, f.Width-1)
	sy := clampInt(int(float64(y)*yScale), 0, f.Height-1)
	return f.Luma[sy*f.Width+sx]
}

func sampleBilinear(f diffengine.Frame, x, y int, xScale, yScale float64) float64 {
	fx := float64(x) * xScale
	fy := float64(y) * yScale
	x0 := clampInt(int(fx), 0, f.Width-1)
	y0 := clampInt(int(fy), 0, f.Height-1)
	x1 := clampInt(x0+1, 0, f.Width-1)
	y1 := clampInt(y0+1, 0, f.Height-1)
	tx := fx - float64(x0)
	ty := fy - float64(y0)

	top := f.Luma[y0*f.Width+x0]*(1-tx) + f.Luma[y0*f.Width+x1]*tx
	bottom := f.Luma[y1*f.Width+x0]*(1-tx) + f.Luma[y1*f.Width+x1]*tx
	return top*(1-ty) + bottom*ty
}

// lanczos3Weight is the Lanczos windowed-sinc kernel with a = 3:
// sinc(x) * sinc(x/3) for |x| < 3, zero outside.
func lanczos3Weight(x float64) float64 {
	if x == 0 {
		return 1
	}
	if x <= -3 || x >= 3 {
		return 0
	}
	px := math.Pi * x
	return 3 * math.Sin(px) * math.Sin(px/3) / (px * px)
}

// sampleLanczos3 convolves the 6x6 neighborhood around the source position
// with the Lanczos-3 kernel, normalizing by the weight sum so edge-clamped
// taps do not darken the border.
func sampleLanczos3(f diffengine.Frame, x, y int, xScale, yScale float64) float64 {
	fx := float64(x) * xScale
	fy := float64(y) * yScale
	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))

	var sum, weightSum float64
	for j := y0 - 2; j <= y0+3; j++ {
		wy := lanczos3Weight(fy - float64(j))
		if wy == 0 {
			continue
		}
		sj := clampInt(j, 0, f.Height-1)
		for i := x0 - 2; i <= x0+3; i++ {
			wx := lanczos3Weight(fx - float64(i))
			if wx == 0 {
				continue
			}
			si := clampInt(i, 0, f.Width-1)
			w := wx * wy
			sum += w * f.Luma[sj*f.Width+si]
			weightSum += w
		}
	}
	if weightSum == 0 {
		return sampleBilinear(f, x, y, xScale, yScale)
	}
	return sum / weightSum
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
