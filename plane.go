package mvflow

import (
	"fmt"

	"github.com/deepteams/mvflow/internal/dsp"
)

// Plane is one image plane. Pix holds Height rows of Pitch bytes; each row
// starts with Width samples of one byte (BitDepth 8) or two bytes in host
// byte order (BitDepth 16).
type Plane struct {
	Pix      []byte
	Pitch    int
	Width    int
	Height   int
	BitDepth int
}

// NewPlane allocates a zeroed plane with a tight pitch.
func NewPlane(width, height, bitDepth int) (*Plane, error) {
	bps, err := bytesPerSample(bitDepth)
	if err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: plane %dx%d", ErrDimensionMismatch, width, height)
	}
	return &Plane{
		Pix:      make([]byte, width*height*bps),
		Pitch:    width * bps,
		Width:    width,
		Height:   height,
		BitDepth: bitDepth,
	}, nil
}

func bytesPerSample(bitDepth int) (int, error) {
	switch bitDepth {
	case 8:
		return 1, nil
	case 16:
		return 2, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrInvalidBitDepth, bitDepth)
}

// stride returns the pitch in samples.
func (p *Plane) stride() int {
	if p.BitDepth == 16 {
		return p.Pitch / 2
	}
	return p.Pitch
}

// validate checks that the plane's buffer covers its geometry.
func (p *Plane) validate() error {
	bps, err := bytesPerSample(p.BitDepth)
	if err != nil {
		return err
	}
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: plane %dx%d", ErrDimensionMismatch, p.Width, p.Height)
	}
	if p.Pitch%bps != 0 || p.Pitch < p.Width*bps {
		return fmt.Errorf("%w: pitch %d for width %d at %d bits", ErrDimensionMismatch, p.Pitch, p.Width, p.BitDepth)
	}
	if need := (p.Height-1)*p.Pitch + p.Width*bps; len(p.Pix) < need {
		return fmt.Errorf("%w: plane buffer %d bytes, need %d", ErrDimensionMismatch, len(p.Pix), need)
	}
	return nil
}

// Sample returns the sample at (x, y). It is meant for tests and tools, not
// inner loops.
func (p *Plane) Sample(x, y int) int {
	if p.BitDepth == 16 {
		return int(dsp.AsUint16(p.Pix)[y*p.stride()+x])
	}
	return int(p.Pix[y*p.Pitch+x])
}

// SetSample stores v at (x, y).
func (p *Plane) SetSample(x, y, v int) {
	if p.BitDepth == 16 {
		dsp.AsUint16(p.Pix)[y*p.stride()+x] = uint16(v)
		return
	}
	p.Pix[y*p.Pitch+x] = uint8(v)
}

// RefPlane is a padded reference plane. (OriginX, OriginY) is the sample
// position of frame pixel (0, 0); Width and Height cover the whole padded
// buffer. When Pel > 1 the plane is assembled at Pel times the frame density
// in both directions.
type RefPlane struct {
	Plane
	OriginX, OriginY int
	Pel              int
}

// pel returns the assembly density, treating zero as 1.
func (r *RefPlane) pel() int {
	if r.Pel == 0 {
		return 1
	}
	return r.Pel
}

// base returns the sample index of frame pixel (0, 0).
func (r *RefPlane) base() int {
	return r.OriginY*r.stride() + r.OriginX
}

func validPel(pel int) error {
	switch pel {
	case 1, 2, 4:
		return nil
	}
	return fmt.Errorf("%w: %d", ErrInvalidPelFactor, pel)
}

// Pad returns a copy of src with hpad columns and vpad rows of edge
// replication on every side, as a pel 1 reference.
func Pad(src *Plane, hpad, vpad int) (*RefPlane, error) {
	if err := src.validate(); err != nil {
		return nil, err
	}
	if hpad < 0 || vpad < 0 {
		return nil, fmt.Errorf("%w: negative padding %d,%d", ErrDimensionMismatch, hpad, vpad)
	}
	dst, err := NewPlane(src.Width+2*hpad, src.Height+2*vpad, src.BitDepth)
	if err != nil {
		return nil, err
	}
	if src.BitDepth == 16 {
		dsp.Pad(dsp.AsUint16(dst.Pix), dst.stride(), dsp.AsUint16(src.Pix), src.stride(), src.Width, src.Height, hpad, vpad)
	} else {
		dsp.Pad(dst.Pix, dst.Pitch, src.Pix, src.Pitch, src.Width, src.Height, hpad, vpad)
	}
	return &RefPlane{Plane: *dst, OriginX: hpad, OriginY: vpad, Pel: 1}, nil
}

// BilinearPhases computes the pel*pel sub-pel phases of src by bilinear
// interpolation. Phase p is offset by (p%pel, p/pel) in units of 1/pel.
// Phase 0 is a copy of src.
func BilinearPhases(src *Plane, pel int) ([]*Plane, error) {
	if err := src.validate(); err != nil {
		return nil, err
	}
	if err := validPel(pel); err != nil {
		return nil, err
	}
	phases := make([]*Plane, pel*pel)
	for p := range phases {
		dst, err := NewPlane(src.Width, src.Height, src.BitDepth)
		if err != nil {
			return nil, err
		}
		fx, fy := p%pel, p/pel
		if src.BitDepth == 16 {
			dsp.BilinearPhase(dsp.AsUint16(dst.Pix), dst.stride(), dsp.AsUint16(src.Pix), src.stride(),
				src.Width, src.Height, pel, fx, fy)
		} else {
			dsp.BilinearPhase(dst.Pix, dst.Pitch, src.Pix, src.Pitch, src.Width, src.Height, pel, fx, fy)
		}
		phases[p] = dst
	}
	return phases, nil
}

// Merge interleaves pel*pel phase planes (pel = 1, 2 or 4) into one plane at
// pel times the density. Phase p supplies sample (x, y) at assembled
// position (x*pel + p%pel, y*pel + p/pel). All phases must share geometry.
func Merge(phases []*Plane) (*Plane, error) {
	side := 0
	switch len(phases) {
	case 1:
		side = 1
	case 4:
		side = 2
	case 16:
		side = 4
	default:
		return nil, fmt.Errorf("%w: %d phases", ErrInvalidPelFactor, len(phases))
	}
	first := phases[0]
	if first == nil {
		return nil, fmt.Errorf("%w: nil phase", ErrDimensionMismatch)
	}
	if err := first.validate(); err != nil {
		return nil, err
	}
	for i, ph := range phases[1:] {
		if ph == nil {
			return nil, fmt.Errorf("%w: nil phase %d", ErrDimensionMismatch, i+1)
		}
		if err := ph.validate(); err != nil {
			return nil, err
		}
		if ph.Width != first.Width || ph.Height != first.Height || ph.Pitch != first.Pitch || ph.BitDepth != first.BitDepth {
			return nil, fmt.Errorf("%w: phase %d geometry differs from phase 0", ErrDimensionMismatch, i+1)
		}
	}
	dst, err := NewPlane(first.Width*side, first.Height*side, first.BitDepth)
	if err != nil {
		return nil, err
	}
	if first.BitDepth == 16 {
		in := make([][]uint16, len(phases))
		for i, ph := range phases {
			in[i] = dsp.AsUint16(ph.Pix)
		}
		dsp.Merge(dsp.AsUint16(dst.Pix), dst.stride(), in, first.stride(), first.Width, first.Height, side)
	} else {
		in := make([][]byte, len(phases))
		for i, ph := range phases {
			in[i] = ph.Pix
		}
		dsp.Merge(dst.Pix, dst.Pitch, in, first.Pitch, first.Width, first.Height, side)
	}
	return dst, nil
}

// ExtractPhase reads phase p back out of a plane assembled at density pel.
func ExtractPhase(src *Plane, pel, p int) (*Plane, error) {
	if err := src.validate(); err != nil {
		return nil, err
	}
	if err := validPel(pel); err != nil {
		return nil, err
	}
	if p < 0 || p >= pel*pel {
		return nil, fmt.Errorf("%w: phase %d at pel %d", ErrInvalidPelFactor, p, pel)
	}
	if src.Width%pel != 0 || src.Height%pel != 0 {
		return nil, fmt.Errorf("%w: %dx%d is not a multiple of pel %d", ErrDimensionMismatch, src.Width, src.Height, pel)
	}
	w, h := src.Width/pel, src.Height/pel
	dst, err := NewPlane(w, h, src.BitDepth)
	if err != nil {
		return nil, err
	}
	if src.BitDepth == 16 {
		dsp.ExtractPhase(dsp.AsUint16(dst.Pix), dst.stride(), dsp.AsUint16(src.Pix), src.stride(), w, h, pel, p)
	} else {
		dsp.ExtractPhase(dst.Pix, dst.Pitch, src.Pix, src.Pitch, w, h, pel, p)
	}
	return dst, nil
}

// NewReference pads src and assembles it at density pel with bilinear
// sub-pel phases, ready to be used as an interpolation reference. hpad and
// vpad are in frame pixels.
func NewReference(src *Plane, pel, hpad, vpad int) (*RefPlane, error) {
	if err := validPel(pel); err != nil {
		return nil, err
	}
	padded, err := Pad(src, hpad, vpad)
	if err != nil {
		return nil, err
	}
	if pel == 1 {
		return padded, nil
	}
	phases, err := BilinearPhases(&padded.Plane, pel)
	if err != nil {
		return nil, err
	}
	merged, err := Merge(phases)
	if err != nil {
		return nil, err
	}
	return &RefPlane{Plane: *merged, OriginX: hpad * pel, OriginY: vpad * pel, Pel: pel}, nil
}

// Frame returns the integer-pel frame samples of r as a new plane of
// width x height.
func (r *RefPlane) Frame(width, height int) (*Plane, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	pel := r.pel()
	if r.OriginX%pel != 0 || r.OriginY%pel != 0 ||
		r.OriginX+width*pel > r.Width || r.OriginY+height*pel > r.Height {
		return nil, fmt.Errorf("%w: %dx%d frame does not fit reference", ErrDimensionMismatch, width, height)
	}
	dst, err := NewPlane(width, height, r.BitDepth)
	if err != nil {
		return nil, err
	}
	off := r.base()
	if r.BitDepth == 16 {
		dsp.ExtractPhase(dsp.AsUint16(dst.Pix), dst.stride(), dsp.AsUint16(r.Pix)[off:], r.stride(), width, height, pel, 0)
	} else {
		dsp.ExtractPhase(dst.Pix, dst.Pitch, r.Pix[off:], r.Pitch, width, height, pel, 0)
	}
	return dst, nil
}
