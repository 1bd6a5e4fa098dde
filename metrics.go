package mvflow

import (
	"fmt"

	"github.com/deepteams/mvflow/internal/dsp"
)

// MetricFunc compares two blocks of a fixed size and bit depth. Blocks are
// given as raw sample bytes with byte pitches. The function does no
// validation; use it in search loops after checking the geometry once.
type MetricFunc = dsp.MetricFunc

func metricFunc(table map[dsp.BlockKey]MetricFunc, name string, w, h, bitDepth int) (MetricFunc, error) {
	if _, err := bytesPerSample(bitDepth); err != nil {
		return nil, err
	}
	fn, ok := table[dsp.BlockKey{W: w, H: h, BitDepth: bitDepth}]
	if !ok {
		return nil, fmt.Errorf("%w: %s %dx%d", ErrInvalidBlockSize, name, w, h)
	}
	return fn, nil
}

// SADFunc returns the sum of absolute differences kernel for a w x h block.
func SADFunc(w, h, bitDepth int) (MetricFunc, error) {
	return metricFunc(dsp.SADTable, "SAD", w, h, bitDepth)
}

// SATDFunc returns the Hadamard-transformed difference kernel for a w x h
// block.
func SATDFunc(w, h, bitDepth int) (MetricFunc, error) {
	return metricFunc(dsp.SATDTable, "SATD", w, h, bitDepth)
}

// checkBlock verifies that buf holds h rows of w samples at pitch bytes.
func checkBlock(buf []byte, pitch, w, h, bps int, what string) error {
	if pitch%bps != 0 || pitch < w*bps {
		return fmt.Errorf("%w: %s pitch %d for %d samples", ErrDimensionMismatch, what, pitch, w)
	}
	if need := (h-1)*pitch + w*bps; len(buf) < need {
		return fmt.Errorf("%w: %s buffer %d bytes, need %d", ErrDimensionMismatch, what, len(buf), need)
	}
	return nil
}

func metric(table map[dsp.BlockKey]MetricFunc, name string, w, h, bitDepth int,
	src []byte, srcPitch int, ref []byte, refPitch int) (uint32, error) {
	fn, err := metricFunc(table, name, w, h, bitDepth)
	if err != nil {
		return 0, err
	}
	bps := bitDepth / 8
	if err := checkBlock(src, srcPitch, w, h, bps, "source"); err != nil {
		return 0, err
	}
	if err := checkBlock(ref, refPitch, w, h, bps, "reference"); err != nil {
		return 0, err
	}
	return fn(src, srcPitch, ref, refPitch), nil
}

// SAD returns the sum of absolute sample differences between a w x h block
// of src and ref. Pitches are in bytes.
func SAD(w, h, bitDepth int, src []byte, srcPitch int, ref []byte, refPitch int) (uint32, error) {
	return metric(dsp.SADTable, "SAD", w, h, bitDepth, src, srcPitch, ref, refPitch)
}

// SATD returns the sum of absolute Hadamard-transformed differences between
// a w x h block of src and ref, halved. Supported sizes are 4x4, 8x4, 8x8,
// 16x16, 16x8 and 8x16.
func SATD(w, h, bitDepth int, src []byte, srcPitch int, ref []byte, refPitch int) (uint32, error) {
	return metric(dsp.SATDTable, "SATD", w, h, bitDepth, src, srcPitch, ref, refPitch)
}

// SADSizes lists the block sizes SAD supports, as {w, h} pairs.
func SADSizes() [][2]int { return dsp.SADSizes() }

// SATDSizes lists the block sizes SATD supports, as {w, h} pairs.
func SATDSizes() [][2]int { return dsp.SATDSizes() }
