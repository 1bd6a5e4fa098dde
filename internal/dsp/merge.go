package dsp

// Merge interleaves side*side sub-pel phase planes into one plane at side
// times the density. Phase p supplies sample (x, y) at assembled position
// (x*side + p%side, y*side + p/side). All phases share srcStride.
func Merge[T Sample](dst []T, dstStride int, phases [][]T, srcStride, width, height, side int) {
	for y := 0; y < height; y++ {
		for r := 0; r < side; r++ {
			out := dst[(y*side+r)*dstStride:]
			for c := 0; c < side; c++ {
				in := phases[r*side+c][y*srcStride : y*srcStride+width]
				for x, v := range in {
					out[x*side+c] = v
				}
			}
		}
	}
}

// ExtractPhase reads phase p back out of an assembled plane.
func ExtractPhase[T Sample](dst []T, dstStride int, src []T, srcStride, width, height, side, p int) {
	r, c := p/side, p%side
	for y := 0; y < height; y++ {
		in := src[(y*side+r)*srcStride:]
		out := dst[y*dstStride : y*dstStride+width]
		for x := range out {
			out[x] = in[x*side+c]
		}
	}
}
