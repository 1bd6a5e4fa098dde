package dsp

// Pad copies a width x height plane into dst with hpad columns and vpad rows
// of edge replication on every side. dst must hold
// (height+2*vpad) rows of at least width+2*hpad samples.
func Pad[T Sample](dst []T, dstStride int, src []T, srcStride, width, height, hpad, vpad int) {
	for y := 0; y < height; y++ {
		in := src[y*srcStride : y*srcStride+width]
		out := dst[(y+vpad)*dstStride : (y+vpad)*dstStride+width+2*hpad]
		left, right := in[0], in[width-1]
		for x := 0; x < hpad; x++ {
			out[x] = left
			out[hpad+width+x] = right
		}
		copy(out[hpad:], in)
	}
	rowLen := width + 2*hpad
	first := dst[vpad*dstStride : vpad*dstStride+rowLen]
	last := dst[(vpad+height-1)*dstStride : (vpad+height-1)*dstStride+rowLen]
	for y := 0; y < vpad; y++ {
		copy(dst[y*dstStride:y*dstStride+rowLen], first)
		copy(dst[(vpad+height+y)*dstStride:], last)
	}
}

// BilinearPhase fills dst with the sub-pel phase (fx, fy) of src, in units of
// 1/pel, by bilinear averaging with edge clamping. pel is 1, 2 or 4.
func BilinearPhase[T Sample](dst []T, dstStride int, src []T, srcStride, width, height, pel, fx, fy int) {
	shift := 0
	for p := pel; p > 1; p >>= 1 {
		shift += 2
	}
	round := (pel * pel) >> 1
	w00 := (pel - fx) * (pel - fy)
	w10 := fx * (pel - fy)
	w01 := (pel - fx) * fy
	w11 := fx * fy
	for y := 0; y < height; y++ {
		y1 := min(y+1, height-1)
		r0 := src[y*srcStride : y*srcStride+width]
		r1 := src[y1*srcStride : y1*srcStride+width]
		out := dst[y*dstStride : y*dstStride+width]
		for x := range out {
			x1 := min(x+1, width-1)
			v := int(r0[x])*w00 + int(r0[x1])*w10 + int(r1[x])*w01 + int(r1[x1])*w11
			out[x] = T((v + round) >> shift)
		}
	}
}
