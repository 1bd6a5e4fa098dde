package dsp

// Blend writes the time-weighted average of src and ref into dst for rows
// [y0, y1). t is in 1/256 units: 0 returns src, 256 returns ref.
func Blend[T Sample](dst []T, dstStride int, src []T, srcStride int, ref []T, refStride int,
	width, y0, y1, t int) {
	ws := 256 - t
	for y := y0; y < y1; y++ {
		d := dst[y*dstStride : y*dstStride+width]
		s := src[y*srcStride : y*srcStride+width]
		r := ref[y*refStride : y*refStride+width]
		for x := range d {
			d[x] = T((int(s[x])*ws + int(r[x])*t + 128) >> 8)
		}
	}
}

// LUT maps an encoded vector component (offset 128) to a displacement scaled
// by the time fraction. F is used with forward fields, B with backward ones.
type LUT struct {
	B, F [256]int
	Time int
}

// NewLUT builds the displacement tables for time fraction t.
func NewLUT(t int) *LUT {
	l := &LUT{Time: t}
	for v := 0; v < 256; v++ {
		l.B[v] = ((v - 128) * (256 - t)) / 256
		l.F[v] = ((v - 128) * t) / 256
	}
	return l
}

// HalfStep decodes an encoded component at the frame midpoint with an
// arithmetic shift. It differs from NewLUT(128) for odd negative values.
var HalfStep = func() (h [256]int) {
	for v := range h {
		h[v] = (v - 128) >> 1
	}
	return h
}()
