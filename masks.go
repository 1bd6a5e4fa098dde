package mvflow

import (
	"fmt"

	"github.com/deepteams/mvflow/internal/field"
)

// Mask is an 8-bit map. Depending on its producer it holds one byte per
// block (occlusion and small masks) or per pixel (upsized fields). Vector
// component masks encode the component offset by 128.
type Mask struct {
	Pix    []byte
	Pitch  int
	Width  int
	Height int
}

// NewMask allocates a zeroed mask with a tight pitch.
func NewMask(width, height int) (*Mask, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: mask %dx%d", ErrDimensionMismatch, width, height)
	}
	return &Mask{Pix: make([]byte, width*height), Pitch: width, Width: width, Height: height}, nil
}

// At returns the byte at (x, y).
func (m *Mask) At(x, y int) uint8 {
	return m.Pix[y*m.Pitch+x]
}

func (m *Mask) validate(what string) error {
	if m == nil {
		return fmt.Errorf("%w: nil %s mask", ErrDimensionMismatch, what)
	}
	if m.Width <= 0 || m.Height <= 0 || m.Pitch < m.Width {
		return fmt.Errorf("%w: %s mask %dx%d pitch %d", ErrDimensionMismatch, what, m.Width, m.Height, m.Pitch)
	}
	if need := (m.Height-1)*m.Pitch + m.Width; len(m.Pix) < need {
		return fmt.Errorf("%w: %s mask buffer %d bytes, need %d", ErrDimensionMismatch, what, len(m.Pix), need)
	}
	return nil
}

// checkGridMask verifies that m covers the block grid.
func checkGridMask(m *Mask, g GridGeometry, what string) error {
	if err := m.validate(what); err != nil {
		return err
	}
	if m.Width < g.BlocksX || m.Height < g.BlocksY {
		return fmt.Errorf("%w: %s mask %dx%d smaller than grid %dx%d",
			ErrDimensionMismatch, what, m.Width, m.Height, g.BlocksX, g.BlocksY)
	}
	return nil
}

// Default occlusion mask parameters.
const (
	DefaultMaskNorm = 100.0
	DefaultGamma    = 1.0
)

// MakeOcclusionMask returns a BlocksX x BlocksY mask rating how strongly each
// block is occluded at time fraction time (0..256), judged from the
// convergence of neighbouring vectors. normFactor is the user mask scale
// (100 is neutral); gamma shapes the response.
func MakeOcclusionMask(f VectorField, g GridGeometry, normFactor, gamma float64, pel, time int) (*Mask, error) {
	if err := validGeometry(g); err != nil {
		return nil, err
	}
	m, err := NewMask(g.BlocksX, g.BlocksY)
	if err != nil {
		return nil, err
	}
	if err := MakeOcclusionMaskInto(m, f, g, normFactor, gamma, pel, time); err != nil {
		return nil, err
	}
	return m, nil
}

// MakeOcclusionMaskInto is MakeOcclusionMask writing into an existing mask.
// Cells outside the grid are left untouched.
func MakeOcclusionMaskInto(dst *Mask, f VectorField, g GridGeometry, normFactor, gamma float64, pel, time int) error {
	if err := checkField(f, g); err != nil {
		return err
	}
	if err := checkGridMask(dst, g, "occlusion"); err != nil {
		return err
	}
	if err := validPel(pel); err != nil {
		return err
	}
	if err := validTime(time); err != nil {
		return err
	}
	if normFactor <= 0 || gamma <= 0 {
		return fmt.Errorf("%w: mask norm %g gamma %g", ErrInvalidParameter, normFactor, gamma)
	}
	field.Occlusion(dst.Pix, dst.Pitch, f, g, normFactor, gamma, pel, time)
	return nil
}

// MakeSmallMasks writes each block's vector components, clamped to
// [-127, 127] and offset by 128, into vx and vy.
func MakeSmallMasks(f VectorField, g GridGeometry, vx, vy *Mask) error {
	return MakeSmallMasksScaled(f, g, vx, vy, 1)
}

// MakeSmallMasksScaled is MakeSmallMasks with every component multiplied by
// scale before clamping. Scale 2 yields the overshoot masks used by
// FlowInterExtra.
func MakeSmallMasksScaled(f VectorField, g GridGeometry, vx, vy *Mask, scale int) error {
	if err := checkField(f, g); err != nil {
		return err
	}
	if err := checkGridMask(vx, g, "vx"); err != nil {
		return err
	}
	if err := checkGridMask(vy, g, "vy"); err != nil {
		return err
	}
	field.SmallMasks(vx.Pix, vx.Pitch, vy.Pix, vy.Pitch, f, g, scale)
	return nil
}

// DownsampleToChroma converts a luma small mask for a chroma plane
// subsampled by ratio (1 or 2) along the component's axis: at ratio 2 the
// displacement is halved around 128, at ratio 1 it is copied.
func DownsampleToChroma(dst, src *Mask, ratio int) error {
	if ratio != 1 && ratio != 2 {
		return fmt.Errorf("%w: chroma ratio %d", ErrInvalidParameter, ratio)
	}
	if err := src.validate("luma"); err != nil {
		return err
	}
	if err := dst.validate("chroma"); err != nil {
		return err
	}
	if dst.Width < src.Width || dst.Height < src.Height {
		return fmt.Errorf("%w: chroma mask %dx%d smaller than %dx%d",
			ErrDimensionMismatch, dst.Width, dst.Height, src.Width, src.Height)
	}
	field.ToChroma(dst.Pix, dst.Pitch, src.Pix, src.Pitch, src.Width, src.Height, ratio)
	return nil
}

// SADToConfidence maps a block distortion to a mask byte:
// min(255, sadNorm1024*sad/1024).
func SADToConfidence(sad, sadNorm1024 uint32) uint8 {
	return field.SADToConfidence(sad, sadNorm1024)
}
