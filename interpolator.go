package mvflow

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/deepteams/mvflow/internal/dsp"
	"github.com/deepteams/mvflow/internal/pool"
)

// Mode selects the interpolation kernel.
type Mode int

const (
	// ModeFlow runs FlowInter: compensated blend with zero-displacement
	// fallback in occluded areas.
	ModeFlow Mode = iota
	// ModeExtra runs FlowInterExtra, adding overshoot samples at twice the
	// displacement.
	ModeExtra
	// ModeSimple runs FlowInterSimple.
	ModeSimple
	// ModeBlend ignores motion and cross-fades the two references.
	ModeBlend
)

var modeNames = [...]string{
	ModeFlow:   "flow",
	ModeExtra:  "extra",
	ModeSimple: "simple",
	ModeBlend:  "blend",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode returns the Mode named s (case-insensitive).
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(m), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// DefaultBandRows is the default number of output rows per work unit.
const DefaultBandRows = 16

// Options configures an Interpolator. Zero values select defaults.
type Options struct {
	// Time is the position of the synthesized frame, 0..256.
	Time int
	Mode Mode
	// Pel is the sub-pel precision of the vectors and the assembly density
	// of the references: 1, 2 or 4. Default 1.
	Pel int
	// MaskNorm scales occlusion strength; 100 is neutral. Default 100.
	MaskNorm float64
	// Gamma shapes the occlusion response. Default 1.
	Gamma float64
	// Workers bounds the goroutines per plane. Default GOMAXPROCS.
	Workers int
	// BandRows is the number of rows a worker claims at a time.
	BandRows int
	// Logger receives debug traces. Default discards.
	Logger logrus.FieldLogger
}

func (o *Options) setDefaults() {
	if o.Pel == 0 {
		o.Pel = 1
	}
	if o.MaskNorm == 0 {
		o.MaskNorm = DefaultMaskNorm
	}
	if o.Gamma == 0 {
		o.Gamma = DefaultGamma
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.BandRows <= 0 {
		o.BandRows = DefaultBandRows
	}
	if o.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.Logger = l
	}
}

// Interpolator synthesizes intermediate frames for one block grid and time
// fraction. It holds no per-frame state and is safe for concurrent use.
type Interpolator struct {
	geom GridGeometry
	opts Options
	lut  *LUT
	log  logrus.FieldLogger
}

// New validates opts and returns an Interpolator for vector fields of grid
// geometry geom.
func New(geom GridGeometry, opts Options) (*Interpolator, error) {
	opts.setDefaults()
	if err := validGeometry(geom); err != nil {
		return nil, err
	}
	if err := validTime(opts.Time); err != nil {
		return nil, err
	}
	if err := validPel(opts.Pel); err != nil {
		return nil, err
	}
	if opts.Mode < ModeFlow || opts.Mode > ModeBlend {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, int(opts.Mode))
	}
	if opts.MaskNorm < 0 || opts.Gamma < 0 {
		return nil, fmt.Errorf("%w: mask norm %g gamma %g", ErrInvalidParameter, opts.MaskNorm, opts.Gamma)
	}
	return &Interpolator{
		geom: geom,
		opts: opts,
		lut:  dsp.NewLUT(opts.Time),
		log:  opts.Logger,
	}, nil
}

// Options returns the effective options, defaults applied.
func (ip *Interpolator) Options() Options { return ip.opts }

// LUT returns the displacement tables for the configured time.
func (ip *Interpolator) LUT() *LUT { return ip.lut }

// gridMasks holds the block-grid inputs shared by every plane.
type gridMasks struct {
	vxB, vyB, vxF, vyF     *Mask
	vxBB, vyBB, vxFF, vyFF *Mask
	occB, occF             *Mask
}

func (ip *Interpolator) newGridMask() *Mask {
	m, _ := NewMask(ip.geom.BlocksX, ip.geom.BlocksY)
	return m
}

func (ip *Interpolator) buildGridMasks(bwd, fwd VectorField) (*gridMasks, error) {
	g := ip.geom
	gm := &gridMasks{
		vxB: ip.newGridMask(), vyB: ip.newGridMask(),
		vxF: ip.newGridMask(), vyF: ip.newGridMask(),
		occB: ip.newGridMask(), occF: ip.newGridMask(),
	}
	if err := MakeSmallMasks(bwd, g, gm.vxB, gm.vyB); err != nil {
		return nil, err
	}
	if err := MakeSmallMasks(fwd, g, gm.vxF, gm.vyF); err != nil {
		return nil, err
	}
	if ip.opts.Mode == ModeExtra {
		gm.vxBB, gm.vyBB = ip.newGridMask(), ip.newGridMask()
		gm.vxFF, gm.vyFF = ip.newGridMask(), ip.newGridMask()
		if err := MakeSmallMasksScaled(bwd, g, gm.vxBB, gm.vyBB, 2); err != nil {
			return nil, err
		}
		if err := MakeSmallMasksScaled(fwd, g, gm.vxFF, gm.vyFF, 2); err != nil {
			return nil, err
		}
	}
	t, o := ip.opts.Time, ip.opts
	if err := MakeOcclusionMaskInto(gm.occB, bwd, g, o.MaskNorm, o.Gamma, o.Pel, t); err != nil {
		return nil, err
	}
	if err := MakeOcclusionMaskInto(gm.occF, fwd, g, o.MaskNorm, o.Gamma, o.Pel, 256-t); err != nil {
		return nil, err
	}
	return gm, nil
}

// chroma returns the vector masks converted for a plane subsampled by
// (rx, ry). The occlusion masks are shared unchanged.
func (ip *Interpolator) chroma(gm *gridMasks, rx, ry int) (*gridMasks, error) {
	if rx == 1 && ry == 1 {
		return gm, nil
	}
	c := *gm
	conv := func(src *Mask, ratio int) (*Mask, error) {
		if src == nil {
			return nil, nil
		}
		dst := ip.newGridMask()
		return dst, DownsampleToChroma(dst, src, ratio)
	}
	var err error
	for _, p := range []struct {
		dst   **Mask
		src   *Mask
		ratio int
	}{
		{&c.vxB, gm.vxB, rx}, {&c.vyB, gm.vyB, ry},
		{&c.vxF, gm.vxF, rx}, {&c.vyF, gm.vyF, ry},
		{&c.vxBB, gm.vxBB, rx}, {&c.vyBB, gm.vyBB, ry},
		{&c.vxFF, gm.vxFF, rx}, {&c.vyFF, gm.vyFF, ry},
	} {
		if *p.dst, err = conv(p.src, p.ratio); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

// subsampling returns the ratio of the luma size to n along one axis.
func subsampling(luma, n int) (int, bool) {
	switch n {
	case luma:
		return 1, true
	case (luma + 1) / 2:
		return 2, true
	}
	return 0, false
}

// Interpolate synthesizes dst from the backward and forward references and
// vector fields. dst[0] is the luma plane; further planes may be subsampled
// 2:1 on either axis, and their vectors are scaled accordingly. Plane i is
// produced from refB[i] and refF[i], which must be assembled at the
// configured pel. ModeBlend ignores the vector fields, which may be nil.
//
// Rows are processed in bands by up to Options.Workers goroutines. ctx is
// checked between bands; on cancellation the output is incomplete and
// ctx.Err() is returned.
func (ip *Interpolator) Interpolate(ctx context.Context, dst []*Plane, refB, refF []*RefPlane, bwd, fwd VectorField) error {
	if len(dst) == 0 || len(refB) != len(dst) || len(refF) != len(dst) {
		return fmt.Errorf("%w: %d planes, %d backward and %d forward references",
			ErrDimensionMismatch, len(dst), len(refB), len(refF))
	}
	for i := range dst {
		if err := checkSameGeometry(dst[i]); err != nil {
			return fmt.Errorf("plane %d: %w", i, err)
		}
		if refB[i] == nil || refF[i] == nil {
			return fmt.Errorf("plane %d: %w: nil reference", i, ErrDimensionMismatch)
		}
		if refB[i].pel() != ip.opts.Pel || refF[i].pel() != ip.opts.Pel {
			return fmt.Errorf("plane %d: %w: references at pel %d/%d, interpolator at %d",
				i, ErrInvalidPelFactor, refB[i].pel(), refF[i].pel(), ip.opts.Pel)
		}
	}

	log := ip.log.WithFields(logrus.Fields{
		"mode":    ip.opts.Mode.String(),
		"time":    ip.opts.Time,
		"pel":     ip.opts.Pel,
		"planes":  len(dst),
		"workers": ip.opts.Workers,
	})
	log.Debug("interpolating frame")

	if ip.opts.Mode == ModeBlend {
		for i := range dst {
			if err := ip.blendPlane(ctx, dst[i], refB[i], refF[i]); err != nil {
				return fmt.Errorf("plane %d: %w", i, err)
			}
		}
		return nil
	}

	if err := checkField(bwd, ip.geom); err != nil {
		return err
	}
	if err := checkField(fwd, ip.geom); err != nil {
		return err
	}
	gm, err := ip.buildGridMasks(bwd, fwd)
	if err != nil {
		return err
	}
	luma := dst[0]
	for i, p := range dst {
		rx, okx := subsampling(luma.Width, p.Width)
		ry, oky := subsampling(luma.Height, p.Height)
		if !okx || !oky {
			return fmt.Errorf("plane %d: %w: %dx%d is not a 1:1 or 2:1 subsampling of %dx%d",
				i, ErrDimensionMismatch, p.Width, p.Height, luma.Width, luma.Height)
		}
		pm, err := ip.chroma(gm, rx, ry)
		if err != nil {
			return fmt.Errorf("plane %d: %w", i, err)
		}
		log.WithFields(logrus.Fields{"plane": i, "width": p.Width, "height": p.Height}).Debug("flow plane")
		if err := ip.flowPlane(ctx, p, refB[i], refF[i], pm); err != nil {
			return fmt.Errorf("plane %d: %w", i, err)
		}
	}
	return nil
}

func (ip *Interpolator) blendPlane(ctx context.Context, dst *Plane, refB, refF *RefPlane) error {
	// Time 0 selects the forward reference, matching the flow kernels.
	src, err := refF.Frame(dst.Width, dst.Height)
	if err != nil {
		return err
	}
	ref, err := refB.Frame(dst.Width, dst.Height)
	if err != nil {
		return err
	}
	if err := checkSameGeometry(dst, src, ref); err != nil {
		return err
	}
	return ip.runBands(ctx, dst.Height, func(y0, y1 int) {
		blendRows(dst, src, ref, ip.opts.Time, y0, y1)
	})
}

// flowPlane upsizes the block-grid masks to the plane, validates the
// kernel input and runs the kernel.
func (ip *Interpolator) flowPlane(ctx context.Context, dst *Plane, refB, refF *RefPlane, gm *gridMasks) error {
	w, h := dst.Width, dst.Height
	srcs := []*Mask{gm.vxB, gm.vyB, gm.vxF, gm.vyF, gm.occB, gm.occF}
	if ip.opts.Mode == ModeExtra {
		srcs = append(srcs, gm.vxBB, gm.vyBB, gm.vxFF, gm.vyFF)
	}
	bufs := pool.GetFields(len(srcs), w*h)
	defer bufs.Release()

	full := make([]*Mask, len(srcs))
	for i := range full {
		full[i] = &Mask{Pix: bufs.At(i), Pitch: w, Width: w, Height: h}
	}
	up := dsp.NewUpsizer(ip.geom.BlocksX, ip.geom.BlocksY, w, h)
	err := ip.runBands(ctx, h, func(y0, y1 int) {
		for i, src := range srcs {
			up.Resize(full[i].Pix, w, src.Pix, src.Pitch, y0, y1)
		}
	})
	if err != nil {
		return err
	}

	in := &FlowInput{
		Dst:  dst,
		RefB: refB, RefF: refF,
		VXB: full[0], VYB: full[1], VXF: full[2], VYF: full[3],
		MaskB: full[4], MaskF: full[5],
		Time: ip.opts.Time,
		LUT:  ip.lut,
	}
	if ip.opts.Mode == ModeExtra {
		in.VXBB, in.VYBB, in.VXFF, in.VYFF = full[6], full[7], full[8], full[9]
	}
	job, err := prepareFlow(in, ip.opts.Mode)
	if err != nil {
		return err
	}
	return ip.runBands(ctx, h, job.rows)
}

// runBands splits [0, height) into bands of BandRows rows and hands them to
// workers that claim the next unprocessed band atomically.
func (ip *Interpolator) runBands(ctx context.Context, height int, fn func(y0, y1 int)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rows := ip.opts.BandRows
	bands := (height + rows - 1) / rows
	numWorkers := min(ip.opts.Workers, bands)

	if numWorkers <= 1 {
		for b := 0; b < bands; b++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(b*rows, min((b+1)*rows, height))
		}
		return nil
	}

	var next atomic.Int32
	var wg sync.WaitGroup
	for wi := 0; wi < numWorkers; wi++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				b := int(next.Add(1) - 1)
				if b >= bands {
					return
				}
				fn(b*rows, min((b+1)*rows, height))
			}
		}()
	}
	wg.Wait()
	return ctx.Err()
}
