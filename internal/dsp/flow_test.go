package dsp

import (
	"math/rand"
	"testing"
)

// flowFixture builds pel 1 kernel arguments over padded random references.
type flowFixture struct {
	w, h, pad int
	flow      *Flow[uint8]
}

func newFlowFixture(rng *rand.Rand, w, h, pad, maxV int, t int) *flowFixture {
	rs := w + 2*pad
	field := func(limit int) []byte {
		b := make([]byte, w*h)
		for i := range b {
			b[i] = byte(128 + rng.Intn(2*limit+1) - limit)
		}
		return b
	}
	mask := func() []byte { return makeRandBuf(rng, w*h) }
	f := &Flow[uint8]{
		Dst:       make([]byte, w*h),
		DstStride: w,
		RefB:      makeRandBuf(rng, rs*(h+2*pad)),
		RefF:      makeRandBuf(rng, rs*(h+2*pad)),
		RefStride: rs,
		RefBase:   pad*rs + pad,
		VXB:       field(maxV),
		VYB:       field(maxV),
		VXF:       field(maxV),
		VYF:       field(maxV),
		MaskB:     mask(),
		MaskF:     mask(),
		VXBB:      field(maxV),
		VYBB:      field(maxV),
		VXFF:      field(maxV),
		VYFF:      field(maxV),
		VStride:   w,
		Width:     w,
		Height:    h,
		Time:      t,
		Pel:       1,
		LUT:       NewLUT(t),
	}
	return &flowFixture{w: w, h: h, pad: pad, flow: f}
}

func TestFlowInterUniform(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	fx := newFlowFixture(rng, 16, 8, 8, 6, 128)
	f := fx.flow
	for i := range f.RefF {
		f.RefF[i] = 100
		f.RefB[i] = 200
	}
	clear(f.MaskB)
	clear(f.MaskF)
	FlowInter(f, 0, fx.h)
	for i, v := range f.Dst {
		if v != 150 {
			t.Fatalf("pixel %d = %d, want 150", i, v)
		}
	}
}

func TestFlowInterEndpoints(t *testing.T) {
	// With no occlusion, t = 0 reproduces the forward reference.
	rng := rand.New(rand.NewSource(11))
	fx := newFlowFixture(rng, 16, 8, 8, 6, 0)
	f := fx.flow
	clear(f.MaskB)
	clear(f.MaskF)
	FlowInter(f, 0, fx.h)
	for y := 0; y < fx.h; y++ {
		for x := 0; x < fx.w; x++ {
			i := y*fx.w + x
			addr := f.RefBase + y*f.RefStride + x + f.LUT.F[f.VYF[i]]*f.RefStride + f.LUT.F[f.VXF[i]]
			if got, want := f.Dst[i], f.RefF[addr]; got != want {
				t.Fatalf("(%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestFlowKernelsBandInvariance(t *testing.T) {
	kernels := map[string]func(*Flow[uint8], int, int){
		"inter":  FlowInter[uint8],
		"extra":  FlowInterExtra[uint8],
		"simple": FlowInterSimple[uint8],
	}
	for name, kernel := range kernels {
		for _, tm := range []int{0, 77, 128, 256} {
			rng := rand.New(rand.NewSource(int64(tm)))
			fx := newFlowFixture(rng, 21, 13, 10, 8, tm)
			kernel(fx.flow, 0, fx.h)
			whole := append([]byte(nil), fx.flow.Dst...)

			clear(fx.flow.Dst)
			for y := 0; y < fx.h; y += 4 {
				kernel(fx.flow, y, min(y+4, fx.h))
			}
			for i := range whole {
				if whole[i] != fx.flow.Dst[i] {
					t.Fatalf("%s t=%d: pixel %d whole=%d banded=%d", name, tm, i, whole[i], fx.flow.Dst[i])
				}
			}
		}
	}
}

func TestFlowInterSimpleHalfPairs(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	fx := newFlowFixture(rng, 15, 5, 8, 10, 128)
	f := fx.flow
	FlowInterSimple(f, 0, fx.h)
	for y := 0; y < fx.h; y++ {
		for x := 0; x < fx.w; x++ {
			// Pairs reuse the left pixel's displacement; the odd tail does not.
			d := x &^ 1
			if x == fx.w-1 && fx.w%2 == 1 {
				d = x
			}
			vi := y*fx.w + d
			row := f.RefBase + y*f.RefStride + x
			F := int(f.RefF[row+HalfStep[f.VYF[vi]]*f.RefStride+HalfStep[f.VXF[vi]]])
			B := int(f.RefB[row+HalfStep[f.VYB[vi]]*f.RefStride+HalfStep[f.VXB[vi]]])
			i := y*fx.w + x
			want := uint8((((F + B) << 8) + (B-F)*(int(f.MaskF[i])-int(f.MaskB[i]))) >> 9)
			if got := f.Dst[i]; got != want {
				t.Fatalf("(%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestFlowInterExtraNoOcclusion(t *testing.T) {
	// Zero masks drop the overshoot terms entirely.
	rng := rand.New(rand.NewSource(13))
	fx := newFlowFixture(rng, 12, 6, 12, 5, 100)
	f := fx.flow
	clear(f.MaskB)
	clear(f.MaskF)
	FlowInterExtra(f, 0, fx.h)
	extra := append([]byte(nil), f.Dst...)
	for i := range f.VXBB {
		f.VXBB[i], f.VYBB[i], f.VXFF[i], f.VYFF[i] = 128, 128, 128, 128
	}
	FlowInterExtra(f, 0, fx.h)
	for i := range extra {
		if extra[i] != f.Dst[i] {
			t.Fatalf("pixel %d depends on overshoot without occlusion: %d vs %d", i, extra[i], f.Dst[i])
		}
	}
}

// assemble2 builds a pel 2 plane whose four phases all equal src.
func assemble2(src []byte, stride, w, h int) []byte {
	dst := make([]byte, 4*w*h)
	Merge(dst, 2*w, [][]byte{src, src, src, src}, stride, w, h, 2)
	return dst
}

func TestFlowInterPelEquivalence(t *testing.T) {
	// Doubling the vectors on a plane with identical phases must not change
	// the result when the time fraction decodes displacements exactly.
	for _, tm := range []int{0, 256} {
		rng := rand.New(rand.NewSource(int64(20 + tm)))
		fx := newFlowFixture(rng, 10, 7, 8, 6, tm)
		f := fx.flow
		FlowInter(f, 0, fx.h)
		pel1 := append([]byte(nil), f.Dst...)

		pw, ph := fx.w+2*fx.pad, fx.h+2*fx.pad
		f2 := *f
		f2.Dst = make([]byte, len(f.Dst))
		f2.RefB = assemble2(f.RefB, f.RefStride, pw, ph)
		f2.RefF = assemble2(f.RefF, f.RefStride, pw, ph)
		f2.RefStride = 2 * pw
		f2.RefBase = 2*fx.pad*f2.RefStride + 2*fx.pad
		f2.Pel = 2
		double := func(b []byte) []byte {
			out := make([]byte, len(b))
			for i, v := range b {
				out[i] = byte(2*(int(v)-128) + 128)
			}
			return out
		}
		f2.VXB, f2.VYB, f2.VXF, f2.VYF = double(f.VXB), double(f.VYB), double(f.VXF), double(f.VYF)
		FlowInter(&f2, 0, fx.h)
		for i := range pel1 {
			if pel1[i] != f2.Dst[i] {
				t.Fatalf("t=%d pixel %d: pel1=%d pel2=%d", tm, i, pel1[i], f2.Dst[i])
			}
		}
	}
}

func TestReach(t *testing.T) {
	const w, h = 6, 4
	vx := make([]byte, w*h)
	vy := make([]byte, w*h)
	for i := range vx {
		vx[i], vy[i] = 128, 128
	}
	lut := NewLUT(256)
	e := Reach(vx, vy, w, w, h, 2, &lut.F, false)
	if want := (Extent{0, 10, 0, 6}); e != want {
		t.Fatalf("still field extent = %+v, want %+v", e, want)
	}

	vx[w-1] = 128 + 9     // right edge, +9
	vy[w*(h-1)] = 128 - 5 // bottom-left, -5
	e = Reach(vx, vy, w, w, h, 2, &lut.F, true)
	if want := (Extent{0, 10 + 9 + 1, 0, 6}); e != want {
		t.Fatalf("extent = %+v, want %+v", e, want)
	}
	vy[0] = 128 - 3
	e = Reach(vx, vy, w, w, h, 2, &lut.F, false)
	if e.MinY != -3 {
		t.Fatalf("MinY = %d, want -3", e.MinY)
	}
}

func TestBlendEndpoints(t *testing.T) {
	rng := rand.New(rand.NewSource(30))
	src := makeRandBuf(rng, 64)
	ref := makeRandBuf(rng, 64)
	dst := make([]byte, 64)
	Blend(dst, 8, src, 8, ref, 8, 8, 0, 8, 0)
	for i := range dst {
		if dst[i] != src[i] {
			t.Fatalf("t=0: pixel %d = %d, want %d", i, dst[i], src[i])
		}
	}
	Blend(dst, 8, src, 8, ref, 8, 8, 0, 8, 256)
	for i := range dst {
		if dst[i] != ref[i] {
			t.Fatalf("t=256: pixel %d = %d, want %d", i, dst[i], ref[i])
		}
	}

	s16 := makeRand16(rng, 64, 1<<16)
	r16 := makeRand16(rng, 64, 1<<16)
	d16 := make([]uint16, 64)
	Blend(d16, 8, s16, 8, r16, 8, 8, 0, 8, 256)
	for i := range d16 {
		if d16[i] != r16[i] {
			t.Fatalf("16-bit t=256: pixel %d = %d, want %d", i, d16[i], r16[i])
		}
	}
}

func TestBlendMidpoint(t *testing.T) {
	src := []byte{100, 100, 100, 100}
	ref := []byte{200, 200, 200, 200}
	dst := make([]byte, 4)
	Blend(dst, 2, src, 2, ref, 2, 2, 0, 2, 128)
	for i, v := range dst {
		if v != 150 {
			t.Errorf("pixel %d = %d, want 150", i, v)
		}
	}
}

func TestLUT(t *testing.T) {
	l := NewLUT(128)
	if l.F[138] != 5 || l.B[138] != 5 {
		t.Errorf("LUT(128)[138] = F %d B %d, want 5 5", l.F[138], l.B[138])
	}
	if l.F[128] != 0 || l.B[128] != 0 {
		t.Errorf("LUT(128)[128] = F %d B %d, want 0 0", l.F[128], l.B[128])
	}
	// Truncation toward zero differs from the half-step shift for odd
	// negative components.
	if l.F[127] != 0 || HalfStep[127] != -1 {
		t.Errorf("F[127] = %d HalfStep[127] = %d, want 0 -1", l.F[127], HalfStep[127])
	}
	l = NewLUT(256)
	for v := 0; v < 256; v++ {
		if l.F[v] != v-128 || l.B[v] != 0 {
			t.Fatalf("LUT(256)[%d] = F %d B %d", v, l.F[v], l.B[v])
		}
	}
}
