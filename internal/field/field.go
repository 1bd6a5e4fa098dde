// Package field derives byte masks from a block motion-vector field: the
// occlusion confidence mask built from vector discontinuities and the
// compact "small masks" holding one clamped vector component per block.
package field

import "math"

// Vector is the motion of one block in sub-pel units, with the match cost
// reported by the estimator (zero when unknown).
type Vector struct {
	X, Y int
	SAD  uint32
}

// Field is a read-only accessor over a row-major grid of block vectors.
type Field interface {
	Block(plane, index int) Vector
}

// Geometry describes the block grid of a field.
type Geometry struct {
	BlocksX, BlocksY int
	BlockW, BlockH   int
}

// Blocks returns the number of grid cells.
func (g Geometry) Blocks() int {
	return g.BlocksX * g.BlocksY
}

// occlusionScale converts a vector discontinuity into a mask byte.
type occlusionScale struct {
	norm  float64
	gamma float64
}

func (s occlusionScale) byteValue(occlusion int) uint8 {
	n := float64(occlusion) * s.norm
	var v float64
	if s.gamma == 1.0 {
		v = math.Round(255 * n)
	} else {
		v = math.Round(255 * math.Pow(n, s.gamma))
	}
	switch {
	case v >= 255:
		return 255
	case v <= 0 || math.IsNaN(v):
		return 0
	}
	return uint8(v)
}

// Occlusion fills mask (pitch bytes per row, BlocksY rows) with the
// occlusion confidence of each block at time fraction time (0..256).
//
// Only the right and bottom neighbours are examined: where the neighbour
// moves less than the current block the two converge, and the difference is
// spread over the blocks between the two displaced positions. Cells keep the
// maximum of all contributions, so traversal order does not matter.
func Occlusion(mask []byte, pitch int, f Field, g Geometry, normFactor, gamma float64, pel, time int) {
	for by := 0; by < g.BlocksY; by++ {
		row := mask[by*pitch : by*pitch+g.BlocksX]
		clear(row)
	}
	sc := occlusionScale{norm: 10 / normFactor / float64(pel), gamma: gamma}
	kx := time * 16 / g.BlockW
	ky := time * 16 / g.BlockH

	for by := 0; by < g.BlocksY; by++ {
		for bx := 0; bx < g.BlocksX; bx++ {
			i := bx + by*g.BlocksX
			v := f.Block(0, i)
			if bx < g.BlocksX-1 {
				vx1 := f.Block(0, i+1).X
				if vx1 < v.X {
					b := sc.byteValue(v.X - vx1)
					end := bx + v.X*kx/4096 + 1
					// The span stops at the first cell outside the grid.
					for bxi := bx + vx1*kx/4096; bxi <= end && bxi >= 0 && bxi < g.BlocksX; bxi++ {
						p := &mask[bxi+by*pitch]
						*p = max(*p, b)
					}
				}
			}
			if by < g.BlocksY-1 {
				vy1 := f.Block(0, i+g.BlocksX).Y
				if vy1 < v.Y {
					b := sc.byteValue(v.Y - vy1)
					end := by + v.Y*ky/4096 + 1
					for byi := by + vy1*ky/4096; byi <= end && byi >= 0 && byi < g.BlocksY; byi++ {
						p := &mask[bx+byi*pitch]
						*p = max(*p, b)
					}
				}
			}
		}
	}
}

// clampComponent saturates a vector component to a signed byte and offsets
// it so that 128 means no motion.
func clampComponent(v int) uint8 {
	return uint8(min(max(v, -127), 127) + 128)
}

// SmallMasks writes one byte per block for each vector component, after
// multiplying the component by scale (1 for the plain field).
func SmallMasks(vx []byte, vxPitch int, vy []byte, vyPitch int, f Field, g Geometry, scale int) {
	for by := 0; by < g.BlocksY; by++ {
		for bx := 0; bx < g.BlocksX; bx++ {
			v := f.Block(0, bx+by*g.BlocksX)
			vx[bx+by*vxPitch] = clampComponent(v.X * scale)
			vy[bx+by*vyPitch] = clampComponent(v.Y * scale)
		}
	}
}

// ToChroma converts a luma small mask for a chroma plane subsampled by ratio
// (1 or 2) along the component's axis.
func ToChroma(dst []byte, dstPitch int, src []byte, srcPitch, width, height, ratio int) {
	for y := 0; y < height; y++ {
		in := src[y*srcPitch : y*srcPitch+width]
		out := dst[y*dstPitch : y*dstPitch+width]
		if ratio != 2 {
			copy(out, in)
			continue
		}
		for x, v := range in {
			out[x] = uint8(((int(v) - 128) >> 1) + 128)
		}
	}
}

// SADToConfidence scales a block distortion into the mask domain:
// sadNorm1024*sad/1024, saturated at 255.
func SADToConfidence(sad, sadNorm1024 uint32) uint8 {
	l := uint64(sadNorm1024) * uint64(sad) / 1024
	if l > 255 {
		return 255
	}
	return uint8(l)
}
