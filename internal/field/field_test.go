package field

import "testing"

// vectors is a row-major test field.
type vectors []Vector

func (v vectors) Block(plane, index int) Vector { return v[index] }

func xs(values ...int) vectors {
	v := make(vectors, len(values))
	for i, x := range values {
		v[i].X = x
	}
	return v
}

func ys(values ...int) vectors {
	v := make(vectors, len(values))
	for i, y := range values {
		v[i].Y = y
	}
	return v
}

func TestOcclusionConvergingPair(t *testing.T) {
	// Block width 8 at time 256 gives a spread factor of 512/4096: the
	// left block (vx 10) over its slower neighbour (vx 2) covers cells 0..2.
	g := Geometry{BlocksX: 4, BlocksY: 1, BlockW: 8, BlockH: 8}
	mask := make([]byte, 4)
	Occlusion(mask, 4, xs(10, 2, 2, 2), g, 10, 1.0, 1, 256)
	want := []byte{255, 255, 255, 0}
	for i := range want {
		if mask[i] != want[i] {
			t.Fatalf("mask = %v, want %v", mask, want)
		}
	}
}

func TestOcclusionOnlyRightAndBottom(t *testing.T) {
	g := Geometry{BlocksX: 3, BlocksY: 1, BlockW: 8, BlockH: 8}
	mask := make([]byte, 3)
	// Diverging neighbours leave no mark.
	Occlusion(mask, 3, xs(2, 10, 20), g, 10, 1.0, 1, 256)
	for i, v := range mask {
		if v != 0 {
			t.Fatalf("diverging field: mask[%d] = %d", i, v)
		}
	}

	g = Geometry{BlocksX: 1, BlocksY: 3, BlockW: 8, BlockH: 8}
	Occlusion(mask, 1, ys(0, 10, 2), g, 10, 1.0, 1, 256)
	want := []byte{0, 255, 255}
	for i := range want {
		if mask[i] != want[i] {
			t.Fatalf("vertical mask = %v, want %v", mask, want)
		}
	}
}

func TestOcclusionStopsAtGridEdge(t *testing.T) {
	// A span starting left of the grid is not clipped into it.
	g := Geometry{BlocksX: 3, BlocksY: 1, BlockW: 8, BlockH: 8}
	mask := make([]byte, 3)
	Occlusion(mask, 3, xs(0, -40, 0), g, 10, 1.0, 1, 256)
	if mask[0] != 0 || mask[1] != 0 || mask[2] != 0 {
		t.Fatalf("mask = %v, want all zero", mask)
	}
}

func TestOcclusionMonotonic(t *testing.T) {
	g := Geometry{BlocksX: 2, BlocksY: 1, BlockW: 16, BlockH: 16}
	for _, gamma := range []float64{0.5, 1.0, 2.0} {
		prev := -1
		for occ := 0; occ <= 120; occ++ {
			mask := []byte{0, 0}
			Occlusion(mask, 2, xs(occ, 0), g, 100, gamma, 2, 128)
			if int(mask[0]) < prev {
				t.Fatalf("gamma %g: occlusion %d gives %d after %d", gamma, occ, mask[0], prev)
			}
			prev = int(mask[0])
		}
		if prev != 255 {
			t.Errorf("gamma %g: largest occlusion gives %d, want 255", gamma, prev)
		}
	}
}

func TestOcclusionClearsMask(t *testing.T) {
	g := Geometry{BlocksX: 2, BlocksY: 2, BlockW: 8, BlockH: 8}
	const pitch = 5
	mask := []byte{
		9, 9, 7, 7, 7,
		9, 9, 7, 7, 7,
	}
	Occlusion(mask, pitch, make(vectors, 4), g, 100, 1.0, 1, 128)
	want := []byte{
		0, 0, 7, 7, 7,
		0, 0, 7, 7, 7,
	}
	for i := range want {
		if mask[i] != want[i] {
			t.Fatalf("mask = %v, want %v", mask, want)
		}
	}
}

func TestByteValue(t *testing.T) {
	tests := []struct {
		name string
		s    occlusionScale
		occ  int
		want uint8
	}{
		{"zero", occlusionScale{0.1, 1}, 0, 0},
		{"linear", occlusionScale{0.1, 1}, 2, 51},
		{"round half up", occlusionScale{0.1, 1}, 1, 26},
		{"saturate", occlusionScale{1, 1}, 8, 255},
		{"gamma", occlusionScale{0.25, 2}, 2, 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.byteValue(tt.occ); got != tt.want {
				t.Errorf("byteValue(%d) = %d, want %d", tt.occ, got, tt.want)
			}
		})
	}
}

func TestSmallMasksSaturation(t *testing.T) {
	g := Geometry{BlocksX: 4, BlocksY: 1, BlockW: 8, BlockH: 8}
	f := vectors{{X: 150, Y: -200}, {X: 127, Y: -127}, {X: 0, Y: 5}, {X: 70, Y: -70}}
	vx := make([]byte, 4)
	vy := make([]byte, 4)
	SmallMasks(vx, 4, vy, 4, f, g, 1)
	wantX := []byte{255, 255, 128, 198}
	wantY := []byte{1, 1, 133, 58}
	for i := range wantX {
		if vx[i] != wantX[i] || vy[i] != wantY[i] {
			t.Fatalf("block %d: (%d, %d), want (%d, %d)", i, vx[i], vy[i], wantX[i], wantY[i])
		}
	}

	SmallMasks(vx, 4, vy, 4, f, g, 2)
	if vx[3] != 255 || vy[3] != 1 || vy[2] != 138 {
		t.Fatalf("scaled masks: vx[3]=%d vy[3]=%d vy[2]=%d", vx[3], vy[3], vy[2])
	}
}

func TestToChroma(t *testing.T) {
	src := []byte{128, 138, 117, 255, 1, 129}
	dst := make([]byte, len(src))
	ToChroma(dst, 3, src, 3, 3, 2, 2)
	want := []byte{128, 133, 122, 191, 64, 128}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("ratio 2: dst = %v, want %v", dst, want)
		}
	}
	ToChroma(dst, 3, src, 3, 3, 2, 1)
	for i := range src {
		if dst[i] != src[i] {
			t.Fatalf("ratio 1: dst = %v, want %v", dst, src)
		}
	}
}

func TestSADToConfidence(t *testing.T) {
	tests := []struct {
		sad, norm uint32
		want      uint8
	}{
		{0, 1024, 0},
		{100, 1024, 100},
		{100, 512, 50},
		{1000, 1024, 255},
		{1 << 31, 1 << 20, 255},
	}
	for _, tt := range tests {
		if got := SADToConfidence(tt.sad, tt.norm); got != tt.want {
			t.Errorf("SADToConfidence(%d, %d) = %d, want %d", tt.sad, tt.norm, got, tt.want)
		}
	}
}
