package dsp

// Block-grid to plane upsizer. Expands one value per block to one value per
// pixel by bilinear interpolation between block centres, row by row, in
// fixed point.

// rescalerFix is the fixed-point precision of the interpolation weights.
const rescalerFix = 16

// rescalerOne is 1.0 in rescalerFix precision.
const rescalerOne = 1 << rescalerFix

// Upsizer holds the per-column and per-row sampling tables for one
// source/destination size pair. It is read-only after construction and may
// be shared between goroutines.
type Upsizer struct {
	SrcWidth, SrcHeight int // block grid dimensions
	DstWidth, DstHeight int // plane dimensions

	xIdx  []int // left source column per destination column
	xFrac []int // weight of the right source column
	yIdx  []int
	yFrac []int
}

// axisTables maps each destination index to its left/top source index and
// the fixed-point weight of the next source sample. Positions before the
// first or after the last block centre clamp to the edge block.
func axisTables(src, dst int) (idx, frac []int) {
	idx = make([]int, dst)
	frac = make([]int, dst)
	for d := 0; d < dst; d++ {
		// ((d + 0.5) * src / dst - 0.5) in rescalerFix precision.
		pos := ((2*d+1)*src - dst) * rescalerOne / (2 * dst)
		if pos < 0 {
			continue
		}
		i := pos >> rescalerFix
		if i >= src-1 {
			idx[d] = src - 1
			continue
		}
		idx[d] = i
		frac[d] = pos & (rescalerOne - 1)
	}
	return idx, frac
}

// NewUpsizer builds the sampling tables for a srcW x srcH grid expanded to
// dstW x dstH.
func NewUpsizer(srcW, srcH, dstW, dstH int) *Upsizer {
	u := &Upsizer{SrcWidth: srcW, SrcHeight: srcH, DstWidth: dstW, DstHeight: dstH}
	u.xIdx, u.xFrac = axisTables(srcW, dstW)
	u.yIdx, u.yFrac = axisTables(srcH, dstH)
	return u
}

// Resize writes destination rows [y0, y1) of the expanded grid.
func (u *Upsizer) Resize(dst []byte, dstStride int, src []byte, srcStride int, y0, y1 int) {
	for y := y0; y < y1; y++ {
		top := src[u.yIdx[y]*srcStride:]
		bot := top
		if u.yIdx[y] < u.SrcHeight-1 {
			bot = src[(u.yIdx[y]+1)*srcStride:]
		}
		fy := u.yFrac[y]
		out := dst[y*dstStride : y*dstStride+u.DstWidth]
		for x := range out {
			i, fx := u.xIdx[x], u.xFrac[x]
			j := min(i+1, u.SrcWidth-1)
			t := int(top[i])*(rescalerOne-fx) + int(top[j])*fx
			b := int(bot[i])*(rescalerOne-fx) + int(bot[j])*fx
			v := (t*(rescalerOne-fy) + b*fy + (1 << (2*rescalerFix - 1))) >> (2 * rescalerFix)
			out[x] = uint8(v)
		}
	}
}
