package mvflow

import (
	"fmt"

	"github.com/deepteams/mvflow/internal/dsp"
)

// MaxPSNR is the PSNR reported for identical planes.
const MaxPSNR = dsp.MaxPSNR

// PSNR returns the peak signal-to-noise ratio of b against a, in decibels,
// capped at MaxPSNR. The peak is the full range of the bit depth.
func PSNR(a, b *Plane) (float64, error) {
	if err := checkSameGeometry(a, b); err != nil {
		return 0, err
	}
	var sse uint64
	peak := 255.0
	if a.BitDepth == 16 {
		sse = dsp.SSE(dsp.AsUint16(a.Pix), a.stride(), dsp.AsUint16(b.Pix), b.stride(), a.Width, a.Height)
		peak = 65535
	} else {
		sse = dsp.SSE(a.Pix, a.Pitch, b.Pix, b.Pitch, a.Width, a.Height)
	}
	return dsp.PSNR(sse, a.Width*a.Height, peak), nil
}

// SSIM returns the mean structural similarity of two 8-bit planes, 1 for
// identical content.
func SSIM(a, b *Plane) (float64, error) {
	if err := checkSameGeometry(a, b); err != nil {
		return 0, err
	}
	if a.BitDepth != 8 {
		return 0, fmt.Errorf("%w: SSIM needs 8-bit planes, got %d", ErrInvalidBitDepth, a.BitDepth)
	}
	return dsp.SSIM(a.Pix, a.Pitch, b.Pix, b.Pitch, a.Width, a.Height), nil
}
