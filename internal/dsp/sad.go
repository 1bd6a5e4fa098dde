package dsp

// SAD returns the sum of absolute differences over a w x h block.
// Strides are in samples. The sum fits in 32 bits for 16-bit samples up to
// 32x32 blocks (65535 * 1024 < 2^32).
func SAD[T Sample](w, h int, src []T, srcStride int, ref []T, refStride int) uint32 {
	var sum uint32
	for y := 0; y < h; y++ {
		s := src[y*srcStride : y*srcStride+w]
		r := ref[y*refStride : y*refStride+w]
		for x := range s {
			sum += uint32(absInt(int(s[x]) - int(r[x])))
		}
	}
	return sum
}

// sad4x4 is the unrolled 4x4 kernel used on the hot path of small searches.
func sad4x4[T Sample](src []T, srcStride int, ref []T, refStride int) uint32 {
	_ = src[3+3*srcStride]
	_ = ref[3+3*refStride]
	var sum int
	for y := 0; y < 4; y++ {
		s := src[y*srcStride:]
		r := ref[y*refStride:]
		sum += absInt(int(s[0])-int(r[0])) + absInt(int(s[1])-int(r[1])) +
			absInt(int(s[2])-int(r[2])) + absInt(int(s[3])-int(r[3]))
	}
	return uint32(sum)
}
