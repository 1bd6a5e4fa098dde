// Package dsp provides the pixel kernels of the interpolation core: block
// distortion metrics, sub-pel plane assembly, padding, mask upsizing and the
// motion-compensated blending kernels.
//
// Kernels are generic over the sample type and do no validation beyond Go's
// own slice bounds checks. Callers (the mvflow package) validate once at the
// public boundary.
package dsp

// Sample is the set of supported pixel sample types.
type Sample interface {
	~uint8 | ~uint16
}

// MetricFunc compares two blocks given as raw sample bytes with byte pitches.
// 16-bit samples are read in host byte order.
type MetricFunc func(src []byte, srcPitch int, ref []byte, refPitch int) uint32

// BlockKey identifies one entry of a metric dispatch table.
type BlockKey struct {
	W, H     int
	BitDepth int
}

// Metric dispatch tables, keyed by block size and bit depth.
// Filled by Init with the pure-Go kernels.
var (
	SADTable  map[BlockKey]MetricFunc
	SATDTable map[BlockKey]MetricFunc
)

// sadSizes is the catalog of block sizes with a SAD kernel.
var sadSizes = [...][2]int{
	{2, 2}, {2, 4}, {4, 2}, {4, 4}, {4, 8},
	{8, 1}, {8, 2}, {8, 4}, {8, 8}, {8, 16},
	{16, 1}, {16, 2}, {16, 4}, {16, 8}, {16, 16}, {16, 32},
	{32, 8}, {32, 16}, {32, 32},
}

// satdSizes lists the SATD sizes: four direct kernels plus the two sizes
// composed from 8x4 tiles.
var satdSizes = [...][2]int{
	{4, 4}, {8, 4}, {8, 8}, {16, 16},
	{16, 8}, {8, 16},
}

// SADSizes returns a copy of the SAD block-size catalog.
func SADSizes() [][2]int {
	return append([][2]int(nil), sadSizes[:]...)
}

// SATDSizes returns a copy of the SATD block-size catalog.
func SATDSizes() [][2]int {
	return append([][2]int(nil), satdSizes[:]...)
}

func sadFunc8(w, h int) MetricFunc {
	if w == 4 && h == 4 {
		return func(src []byte, srcPitch int, ref []byte, refPitch int) uint32 {
			return sad4x4(src, srcPitch, ref, refPitch)
		}
	}
	return func(src []byte, srcPitch int, ref []byte, refPitch int) uint32 {
		return SAD(w, h, src, srcPitch, ref, refPitch)
	}
}

func sadFunc16(w, h int) MetricFunc {
	if w == 4 && h == 4 {
		return func(src []byte, srcPitch int, ref []byte, refPitch int) uint32 {
			return sad4x4(AsUint16(src), srcPitch/2, AsUint16(ref), refPitch/2)
		}
	}
	return func(src []byte, srcPitch int, ref []byte, refPitch int) uint32 {
		return SAD(w, h, AsUint16(src), srcPitch/2, AsUint16(ref), refPitch/2)
	}
}

func satdFunc8(w, h int) MetricFunc {
	return func(src []byte, srcPitch int, ref []byte, refPitch int) uint32 {
		return SATD(w, h, src, srcPitch, ref, refPitch)
	}
}

func satdFunc16(w, h int) MetricFunc {
	return func(src []byte, srcPitch int, ref []byte, refPitch int) uint32 {
		return SATD(w, h, AsUint16(src), srcPitch/2, AsUint16(ref), refPitch/2)
	}
}

// Init fills the dispatch tables with the pure-Go kernels.
// It runs at package initialisation; calling it again resets any override.
func Init() {
	SADTable = make(map[BlockKey]MetricFunc, 2*len(sadSizes))
	for _, s := range sadSizes {
		SADTable[BlockKey{s[0], s[1], 8}] = sadFunc8(s[0], s[1])
		SADTable[BlockKey{s[0], s[1], 16}] = sadFunc16(s[0], s[1])
	}

	SATDTable = make(map[BlockKey]MetricFunc, 2*len(satdSizes))
	for _, s := range satdSizes {
		SATDTable[BlockKey{s[0], s[1], 8}] = satdFunc8(s[0], s[1])
		SATDTable[BlockKey{s[0], s[1], 16}] = satdFunc16(s[0], s[1])
	}
}

func init() {
	Init()
}
