package dsp

// SATD (sum of absolute transformed differences) over the Walsh-Hadamard
// butterfly network used by the block-matching search.
//
// Each row of the difference block is first split into two lanes: the sum
// and the difference of adjacent samples. The lanes are then combined at
// distance n/4 pairs, and each resulting column goes through a two-stage
// vertical butterfly (adjacent rows, then rows n/2 apart). The absolute
// values of all coefficients are summed and halved.
//
// For 4x4 this is the full 2-D Hadamard transform. For 8x8 and 16x16 it is
// the same reduced network as the reference kernels, so results match them
// bit for bit. 8x4 is two independent 4x4 transforms side by side.

// hadamardAbs applies the two-stage vertical butterfly to s and returns the
// sum of the absolute output coefficients. len(s) is 4, 8 or 16.
func hadamardAbs(s []int) int {
	n := len(s)
	var t [16]int
	for k := 0; k < n; k += 2 {
		t[k] = s[k] + s[k+1]
		t[k+1] = s[k] - s[k+1]
	}
	half := n / 2
	sum := 0
	for j := 0; j < half; j++ {
		sum += absInt(t[j]+t[j+half]) + absInt(t[j]-t[j+half])
	}
	return sum
}

// hadamardSum returns the unhalved coefficient magnitude sum of an n x n
// block, n in {4, 8, 16}.
func hadamardSum[T Sample](n int, src []T, srcStride int, ref []T, refStride int) int {
	var rows [16][2][8]int // [row][lane][column]
	q := n / 4
	for i := 0; i < n; i++ {
		s := src[i*srcStride : i*srcStride+n]
		r := ref[i*refStride : i*refStride+n]
		var lo, hi [8]int
		for k := 0; k < n/2; k++ {
			a0 := int(s[2*k]) - int(r[2*k])
			a1 := int(s[2*k+1]) - int(r[2*k+1])
			lo[k] = a0 + a1
			hi[k] = a0 - a1
		}
		for m := 0; m < q; m++ {
			rows[i][0][2*m] = lo[m] + lo[m+q]
			rows[i][0][2*m+1] = lo[m] - lo[m+q]
			rows[i][1][2*m] = hi[m] + hi[m+q]
			rows[i][1][2*m+1] = hi[m] - hi[m+q]
		}
	}

	var col [16]int
	sum := 0
	for lane := 0; lane < 2; lane++ {
		for j := 0; j < n/2; j++ {
			for i := 0; i < n; i++ {
				col[i] = rows[i][lane][j]
			}
			sum += hadamardAbs(col[:n])
		}
	}
	return sum
}

// satd8x4 transforms the left and right 4x4 halves independently.
func satd8x4[T Sample](src []T, srcStride int, ref []T, refStride int) uint32 {
	left := hadamardSum(4, src, srcStride, ref, refStride)
	right := hadamardSum(4, src[4:], srcStride, ref[4:], refStride)
	return uint32((left + right) >> 1)
}

// SATD returns the Hadamard-domain distortion of a w x h block. 4x4, 8x4,
// 8x8 and 16x16 have direct kernels; 16x8 and 8x16 are tiled from 8x4
// blocks. Other sizes must be rejected by the caller.
func SATD[T Sample](w, h int, src []T, srcStride int, ref []T, refStride int) uint32 {
	switch {
	case w == 4 && h == 4:
		return uint32(hadamardSum(4, src, srcStride, ref, refStride) >> 1)
	case w == 8 && h == 4:
		return satd8x4(src, srcStride, ref, refStride)
	case w == 8 && h == 8:
		return uint32(hadamardSum(8, src, srcStride, ref, refStride) >> 1)
	case w == 16 && h == 16:
		return uint32(hadamardSum(16, src, srcStride, ref, refStride) >> 1)
	}

	sum := satd8x4(src, srcStride, ref, refStride) +
		satd8x4(src[4*srcStride:], srcStride, ref[4*refStride:], refStride)
	if w == 16 {
		sum += satd8x4(src[8:], srcStride, ref[8:], refStride) +
			satd8x4(src[8+4*srcStride:], srcStride, ref[8+4*refStride:], refStride)
	}
	if h == 16 {
		sum += satd8x4(src[8*srcStride:], srcStride, ref[8*refStride:], refStride) +
			satd8x4(src[12*srcStride:], srcStride, ref[12*refStride:], refStride)
	}
	return sum
}
