package mvflow

import (
	"fmt"

	"github.com/deepteams/mvflow/internal/dsp"
)

// LUT holds the displacement tables for one time fraction: F decodes forward
// vector components, B backward ones. Build it once per time fraction with
// NewLUT and share it between calls.
type LUT = dsp.LUT

func validTime(t int) error {
	if t < 0 || t > 256 {
		return fmt.Errorf("%w: %d", ErrInvalidTime, t)
	}
	return nil
}

// NewLUT builds the displacement tables for time fraction t (0..256):
// F[v] = (v-128)*t/256 and B[v] = (v-128)*(256-t)/256, truncated toward zero.
func NewLUT(t int) (*LUT, error) {
	if err := validTime(t); err != nil {
		return nil, err
	}
	return dsp.NewLUT(t), nil
}

// Blend writes round((src*(256-t) + ref*t) / 256) into dst. At t = 0 dst is
// a copy of src, at t = 256 a copy of ref. All planes must share bit depth
// and dimensions.
func Blend(dst, src, ref *Plane, t int) error {
	if err := validTime(t); err != nil {
		return err
	}
	if err := checkSameGeometry(dst, src, ref); err != nil {
		return err
	}
	if err := checkAliasing(dst.Pix, source{"source", src.Pix}, source{"reference", ref.Pix}); err != nil {
		return err
	}
	blendRows(dst, src, ref, t, 0, dst.Height)
	return nil
}

func checkSameGeometry(dst *Plane, others ...*Plane) error {
	if dst == nil {
		return fmt.Errorf("%w: nil destination", ErrDimensionMismatch)
	}
	if err := dst.validate(); err != nil {
		return err
	}
	for _, p := range others {
		if p == nil {
			return fmt.Errorf("%w: nil plane", ErrDimensionMismatch)
		}
		if err := p.validate(); err != nil {
			return err
		}
		if p.BitDepth != dst.BitDepth {
			return fmt.Errorf("%w: %d-bit plane with %d-bit destination", ErrInvalidBitDepth, p.BitDepth, dst.BitDepth)
		}
		if p.Width != dst.Width || p.Height != dst.Height {
			return fmt.Errorf("%w: %dx%d plane with %dx%d destination",
				ErrDimensionMismatch, p.Width, p.Height, dst.Width, dst.Height)
		}
	}
	return nil
}

// source names a buffer a kernel reads.
type source struct {
	name string
	pix  []byte
}

// checkAliasing rejects a destination that shares memory with any source.
func checkAliasing(dst []byte, srcs ...source) error {
	for _, s := range srcs {
		if dsp.Overlap(dst, s.pix) {
			return fmt.Errorf("%w: %s", ErrAliasedBuffer, s.name)
		}
	}
	return nil
}

func blendRows(dst, src, ref *Plane, t, y0, y1 int) {
	if dst.BitDepth == 16 {
		dsp.Blend(dsp.AsUint16(dst.Pix), dst.stride(), dsp.AsUint16(src.Pix), src.stride(),
			dsp.AsUint16(ref.Pix), ref.stride(), dst.Width, y0, y1, t)
		return
	}
	dsp.Blend(dst.Pix, dst.Pitch, src.Pix, src.Pitch, ref.Pix, ref.Pitch, dst.Width, y0, y1, t)
}

// FlowInput groups the arguments of the flow kernels.
//
// The per-pixel fields hold vector components encoded with offset 128
// (VX*, VY*) or occlusion weights (Mask*). They must all share one pitch and
// cover at least Dst.Width x Dst.Height. RefB and RefF must share geometry;
// their Pel sets the addressing density.
type FlowInput struct {
	Dst        *Plane
	RefB, RefF *RefPlane

	VXB, VYB, VXF, VYF *Mask
	MaskB, MaskF       *Mask
	// Overshoot fields at twice the displacement, FlowInterExtra only.
	VXBB, VYBB, VXFF, VYFF *Mask

	Time int
	LUT  *LUT // built from Time when nil
}

// FlowInter synthesizes the frame at in.Time from the motion-compensated
// references, falling back to the other direction and to the
// zero-displacement sample where the masks mark occlusion.
func FlowInter(in *FlowInput) error {
	return runFlowInput(in, ModeFlow)
}

// FlowInterExtra is FlowInter using the overshoot fields: in occluded areas
// the opposite sample is replaced by the median of the forward/backward pair
// and the sample fetched at twice the displacement.
func FlowInterExtra(in *FlowInput) error {
	return runFlowInput(in, ModeExtra)
}

// FlowInterSimple is the fast variant without zero-displacement fallback.
// At Time 128 and pel 1 two adjacent output pixels share the decoded
// displacement of the left one.
func FlowInterSimple(in *FlowInput) error {
	return runFlowInput(in, ModeSimple)
}

func runFlowInput(in *FlowInput, mode Mode) error {
	job, err := prepareFlow(in, mode)
	if err != nil {
		return err
	}
	job.rows(0, in.Dst.Height)
	return nil
}

// flowJob is a validated flow kernel call, runnable in row bands.
type flowJob struct {
	mode Mode
	f8   *dsp.Flow[uint8]
	f16  *dsp.Flow[uint16]
}

func (j *flowJob) rows(y0, y1 int) {
	if j.f16 != nil {
		runFlow(j.mode, j.f16, y0, y1)
		return
	}
	runFlow(j.mode, j.f8, y0, y1)
}

func runFlow[T dsp.Sample](mode Mode, f *dsp.Flow[T], y0, y1 int) {
	switch mode {
	case ModeExtra:
		dsp.FlowInterExtra(f, y0, y1)
	case ModeSimple:
		dsp.FlowInterSimple(f, y0, y1)
	default:
		dsp.FlowInter(f, y0, y1)
	}
}

func maskPix(m *Mask) []byte {
	if m == nil {
		return nil
	}
	return m.Pix
}

func newFlow[T dsp.Sample](in *FlowInput, lut *LUT, dst, refB, refF []T) *dsp.Flow[T] {
	return &dsp.Flow[T]{
		Dst:       dst,
		DstStride: in.Dst.stride(),
		RefB:      refB,
		RefF:      refF,
		RefStride: in.RefB.stride(),
		RefBase:   in.RefB.base(),
		VXB:       in.VXB.Pix,
		VYB:       in.VYB.Pix,
		VXF:       in.VXF.Pix,
		VYF:       in.VYF.Pix,
		MaskB:     in.MaskB.Pix,
		MaskF:     in.MaskF.Pix,
		VXBB:      maskPix(in.VXBB),
		VYBB:      maskPix(in.VYBB),
		VXFF:      maskPix(in.VXFF),
		VYFF:      maskPix(in.VYFF),
		VStride:   in.VXB.Pitch,
		Width:     in.Dst.Width,
		Height:    in.Dst.Height,
		Time:      in.Time,
		Pel:       in.RefB.pel(),
		LUT:       lut,
	}
}

// prepareFlow validates in for the given kernel and binds it to the typed
// kernel arguments. Every sample the kernel will read is checked to lie
// inside the reference planes.
func prepareFlow(in *FlowInput, mode Mode) (*flowJob, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: nil flow input", ErrDimensionMismatch)
	}
	if err := validTime(in.Time); err != nil {
		return nil, err
	}
	if in.RefB == nil || in.RefF == nil {
		return nil, fmt.Errorf("%w: nil reference", ErrDimensionMismatch)
	}
	if err := checkSameGeometry(in.Dst); err != nil {
		return nil, err
	}
	if err := checkRefs(in.Dst, in.RefB, in.RefF); err != nil {
		return nil, err
	}
	pel := in.RefB.pel()

	fields := []struct {
		m    *Mask
		name string
	}{
		{in.VXB, "VXB"}, {in.VYB, "VYB"}, {in.VXF, "VXF"}, {in.VYF, "VYF"},
		{in.MaskB, "MaskB"}, {in.MaskF, "MaskF"},
	}
	if mode == ModeExtra {
		fields = append(fields, []struct {
			m    *Mask
			name string
		}{{in.VXBB, "VXBB"}, {in.VYBB, "VYBB"}, {in.VXFF, "VXFF"}, {in.VYFF, "VYFF"}}...)
	}
	for _, fd := range fields {
		if err := fd.m.validate(fd.name); err != nil {
			return nil, err
		}
		if fd.m.Pitch != in.VXB.Pitch {
			return nil, fmt.Errorf("%w: %s pitch %d, VXB pitch %d", ErrDimensionMismatch, fd.name, fd.m.Pitch, in.VXB.Pitch)
		}
		if fd.m.Width < in.Dst.Width || fd.m.Height < in.Dst.Height {
			return nil, fmt.Errorf("%w: %s %dx%d smaller than destination %dx%d",
				ErrDimensionMismatch, fd.name, fd.m.Width, fd.m.Height, in.Dst.Width, in.Dst.Height)
		}
	}

	srcs := []source{{"RefB", in.RefB.Pix}, {"RefF", in.RefF.Pix}}
	for _, fd := range fields {
		srcs = append(srcs, source{fd.name, fd.m.Pix})
	}
	if err := checkAliasing(in.Dst.Pix, srcs...); err != nil {
		return nil, err
	}

	lut := in.LUT
	if lut == nil {
		lut = dsp.NewLUT(in.Time)
	} else if lut.Time != in.Time {
		return nil, fmt.Errorf("%w: LUT built for %d, input time %d", ErrInvalidTime, lut.Time, in.Time)
	}

	if err := checkReach(in, mode, lut, pel); err != nil {
		return nil, err
	}

	job := &flowJob{mode: mode}
	if in.Dst.BitDepth == 16 {
		job.f16 = newFlow(in, lut, dsp.AsUint16(in.Dst.Pix), dsp.AsUint16(in.RefB.Pix), dsp.AsUint16(in.RefF.Pix))
	} else {
		job.f8 = newFlow(in, lut, in.Dst.Pix, in.RefB.Pix, in.RefF.Pix)
	}
	return job, nil
}

// checkRefs verifies that both references match each other and the
// destination.
func checkRefs(dst *Plane, refB, refF *RefPlane) error {
	for _, r := range [...]*RefPlane{refB, refF} {
		if err := r.validate(); err != nil {
			return err
		}
		if r.BitDepth != dst.BitDepth {
			return fmt.Errorf("%w: %d-bit reference with %d-bit destination", ErrInvalidBitDepth, r.BitDepth, dst.BitDepth)
		}
		if err := validPel(r.pel()); err != nil {
			return err
		}
	}
	if refB.Pitch != refF.Pitch || refB.Width != refF.Width || refB.Height != refF.Height ||
		refB.OriginX != refF.OriginX || refB.OriginY != refF.OriginY || refB.pel() != refF.pel() {
		return fmt.Errorf("%w: backward and forward references differ", ErrDimensionMismatch)
	}
	return nil
}

// checkReach decodes every displacement the kernel will apply and rejects
// the call if any read falls outside the reference planes.
func checkReach(in *FlowInput, mode Mode, lut *LUT, pel int) error {
	w, h, vs := in.Dst.Width, in.Dst.Height, in.VXB.Pitch
	tabB, tabF := &lut.B, &lut.F
	pair := false
	if mode == ModeSimple && in.Time == 128 {
		tabB, tabF = &dsp.HalfStep, &dsp.HalfStep
		pair = pel == 1
	}
	e := dsp.Reach(in.VXB.Pix, in.VYB.Pix, vs, w, h, pel, tabB, pair).
		Union(dsp.Reach(in.VXF.Pix, in.VYF.Pix, vs, w, h, pel, tabF, pair))
	if mode == ModeExtra {
		e = e.Union(dsp.Reach(in.VXBB.Pix, in.VYBB.Pix, vs, w, h, pel, tabB, false)).
			Union(dsp.Reach(in.VXFF.Pix, in.VYFF.Pix, vs, w, h, pel, tabF, false))
	}
	r := in.RefB
	if r.OriginX+e.MinX < 0 || r.OriginX+e.MaxX >= r.Width ||
		r.OriginY+e.MinY < 0 || r.OriginY+e.MaxY >= r.Height {
		return fmt.Errorf("%w: reads span x [%d, %d] y [%d, %d] of a %dx%d reference",
			ErrOutOfBoundsDisplacement, r.OriginX+e.MinX, r.OriginX+e.MaxX,
			r.OriginY+e.MinY, r.OriginY+e.MaxY, r.Width, r.Height)
	}
	return nil
}
