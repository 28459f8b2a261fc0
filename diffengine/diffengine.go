/*
DESCRIPTION
  diffengine.go computes a per-frame mean-absolute-difference statistic
  between a source video and its denoised counterpart, the basis for the
  diff subcommand's report of which frames plausibly carry visible grain.

AUTHORS
  av1grain contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package diffengine computes per-frame mean-absolute-difference statistics
// between a source and a denoised luma plane stream, the only concurrent
// component in av1grain: one goroutine per frame source feeding a single
// aggregation goroutine over channels.
package diffengine

import (
	"context"

	"gonum.org/v1/gonum/floats"

	"github.com/ausocean/av1grain/av1err"
)

// Frame is one decoded luma plane, row-major, values in 0..255.
type Frame struct {
	Index  int
	Luma   []float64
	Width  int
	Height int
}

// Stat is the per-frame result of comparing a source frame against its
// denoised counterpart.
type Stat struct {
	Index       int
	MeanAbsDiff float64
	HasGrain    bool
}

// Engine computes Stats from paired source/denoised frame streams.
type Engine struct {
	// Threshold is the mean-abs-diff value at or above which a frame is
	// reported as carrying grain.
	Threshold float64
}

// defaultThreshold is tuned for 8-bit luma means: flat denoised frames
// land well under it, visible grain well over.
const defaultThreshold = 3.0

// NewEngine returns an Engine using threshold, or defaultThreshold if
// threshold <= 0.
func NewEngine(threshold float64) *Engine {
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	return &Engine{Threshold: threshold}
}

// Run pairs frames from source and denoised by arrival order and emits one
// Stat per pair on the returned channel, closing it once either input
// closes or ctx is canceled. source and denoised are each drained by their
// own goroutine so a slow source does not stall the other's I/O; a third
// goroutine aggregates the paired frames.
func (e *Engine) Run(ctx context.Context, source, denoised <-chan Frame) <-chan Stat {
	out := make(chan Stat)

	srcBuf := make(chan Frame, 1)
	denBuf := make(chan Frame, 1)
	go forward(ctx, source, srcBuf)
	go forward(ctx, denoised, denBuf)

	go func() {
		defer close(out)
		for {
			src, ok := recvOrDone(ctx, srcBuf)
			if !ok {
				return
			}
			den, ok := recvOrDone(ctx, denBuf)
			if !ok {
				return
			}

			stat := Stat{Index: src.Index}
			diff, err := meanAbsDiff(src, den)
			if err == nil {
				stat.MeanAbsDiff = diff
				stat.HasGrain = diff >= e.Threshold
			}

			select {
			case out <- stat:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func forward(ctx context.Context, in <-chan Frame, out chan<- Frame) {
	defer close(out)
	for {
		select {
		case f, ok := <-in:
			if !ok {
				return
			}
			select {
			case out <- f:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func recvOrDone(ctx context.Context, ch <-chan Frame) (Frame, bool) {
	select {
	case f, ok := <-ch:
		return f, ok
	case <-ctx.Done():
		return Frame{}, false
	}
}

// meanAbsDiff computes the mean absolute per-pixel luma difference between
// a and b.
func meanAbsDiff(a, b Frame) (float64, error) {
	if len(a.Luma) != len(b.Luma) {
		return 0, av1err.New(av1err.ContainerIOError).WithField("diff: frame size mismatch")
	}
	diffs := make([]float64, len(a.Luma))
	for i := range diffs {
		d := a.Luma[i] - b.Luma[i]
		if d < 0 {
			d = -d
		}
		diffs[i] = d
	}
	return floats.Sum(diffs) / float64(len(diffs)), nil
}
