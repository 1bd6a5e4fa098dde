package mvflow

import (
	"context"
	"errors"
	"math/rand"
	"testing"
)

// FuzzInterpolate drives the frame pipeline with arbitrary vectors, time and
// mode. Every call must either succeed or fail with a validation error;
// reads outside the references would panic.
func FuzzInterpolate(f *testing.F) {
	f.Add([]byte{0, 0, 0, 0, 0, 0, 0, 0}, uint16(128), uint8(0), uint8(1), uint8(4))
	f.Add([]byte{10, 246, 3, 0, 127, 129, 1, 255}, uint16(77), uint8(1), uint8(2), uint8(2))
	f.Add([]byte{200, 2, 100, 50}, uint16(256), uint8(2), uint8(4), uint8(0))
	f.Add([]byte{}, uint16(0), uint8(3), uint8(1), uint8(1))

	const w, h = 24, 16
	g := GridGeometry{BlocksX: 3, BlocksY: 2, BlockW: 8, BlockH: 8}
	rng := rand.New(rand.NewSource(99))
	a := yuvFrame(f, rng, w, h, 8)
	b := yuvFrame(f, rng, w, h, 8)

	f.Fuzz(func(t *testing.T, data []byte, tm uint16, mode, pel, pad uint8) {
		p := []int{1, 2, 4}[int(pel)%3]
		refF := references(t, a, p, int(pad%16))
		refB := references(t, b, p, int(pad%16))
		fields := [2]*Grid{}
		for k := range fields {
			grid, _ := NewGrid(g)
			for i := range grid.Vectors {
				j := 4*i + 2*k
				if j+1 < len(data) {
					grid.Vectors[i] = Vector{X: int(int8(data[j])), Y: int(int8(data[j+1]))}
				}
			}
			fields[k] = grid
		}

		ip, err := New(g, Options{Time: int(tm), Mode: Mode(mode % 5), Pel: p, Workers: 2})
		if err != nil {
			if !errors.Is(err, ErrInvalidTime) && !errors.Is(err, ErrInvalidMode) {
				t.Fatalf("New: unexpected error %v", err)
			}
			return
		}
		err = ip.Interpolate(context.Background(), blankLike(t, a), refB, refF, fields[0], fields[1])
		if err != nil && !errors.Is(err, ErrOutOfBoundsDisplacement) {
			t.Fatalf("Interpolate: unexpected error %v", err)
		}
	})
}
