package dsp

import "math"

// Whole-plane quality measures used to score a synthesized frame against
// the frame it stands in for.

// ssimRadius is the half-size of the 7x7 SSIM window.
const ssimRadius = 3

// hatWeight is the separable window kernel; its coefficients sum to 16.
var hatWeight = [2*ssimRadius + 1]uint64{1, 2, 3, 4, 3, 2, 1}

// windowStats accumulates weighted first and second moments of a pair of
// sample windows.
type windowStats struct {
	w             uint64
	xm, ym        uint64
	xxm, xym, yym uint64
}

func (s *windowStats) add(x, y, w uint64) {
	s.w += w
	s.xm += w * x
	s.ym += w * y
	s.xxm += w * x * x
	s.xym += w * x * y
	s.yym += w * y * y
}

// ssim evaluates the similarity of the accumulated 8-bit window in fixed
// point. Windows where both means fall below the dark limit count as
// identical.
func (s *windowStats) ssim() float64 {
	n := s.w
	w2 := n * n
	c1 := 20 * w2
	c2 := 60 * w2
	dark := 8 * 8 * w2

	xmxm := s.xm * s.xm
	ymym := s.ym * s.ym
	if xmxm+ymym < dark {
		return 1
	}
	xmym := s.xm * s.ym
	sxy := int64(s.xym*n) - int64(xmym)
	sxx := s.xxm*n - xmxm
	syy := s.yym*n - ymym

	var sxyPos uint64
	if sxy > 0 {
		sxyPos = uint64(sxy)
	}
	num := (2*xmym + c1) * ((2*sxyPos + c2) >> 8)
	den := (xmxm + ymym + c1) * ((sxx + syy + c2) >> 8)
	if den == 0 {
		return 1
	}
	return float64(num) / float64(den)
}

// SSIM returns the mean structural similarity of two 8-bit planes over
// hat-weighted 7x7 windows centred on every sample. Windows are clipped at
// the plane borders.
func SSIM(a []byte, aStride int, b []byte, bStride int, width, height int) float64 {
	if width <= 0 || height <= 0 {
		return 1
	}
	var sum float64
	for yo := 0; yo < height; yo++ {
		y0, y1 := max(yo-ssimRadius, 0), min(yo+ssimRadius, height-1)
		for xo := 0; xo < width; xo++ {
			x0, x1 := max(xo-ssimRadius, 0), min(xo+ssimRadius, width-1)
			var s windowStats
			for y := y0; y <= y1; y++ {
				wy := hatWeight[ssimRadius+y-yo]
				ra, rb := a[y*aStride:], b[y*bStride:]
				for x := x0; x <= x1; x++ {
					s.add(uint64(ra[x]), uint64(rb[x]), wy*hatWeight[ssimRadius+x-xo])
				}
			}
			sum += s.ssim()
		}
	}
	return sum / float64(width*height)
}

// SSE returns the sum of squared sample differences of two planes.
func SSE[T Sample](a []T, aStride int, b []T, bStride int, width, height int) uint64 {
	var sse uint64
	for y := 0; y < height; y++ {
		ra := a[y*aStride : y*aStride+width]
		rb := b[y*bStride : y*bStride+width]
		for x := range ra {
			d := int64(ra[x]) - int64(rb[x])
			sse += uint64(d * d)
		}
	}
	return sse
}

// MaxPSNR is reported for identical planes.
const MaxPSNR = 99.0

// PSNR converts a sum of squared errors over count samples into decibels
// relative to peak.
func PSNR(sse uint64, count int, peak float64) float64 {
	if sse == 0 || count == 0 {
		return MaxPSNR
	}
	mse := float64(sse) / float64(count)
	return min(10*math.Log10(peak*peak/mse), MaxPSNR)
}
