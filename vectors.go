package mvflow

import (
	"fmt"

	"github.com/deepteams/mvflow/internal/field"
)

// Vector is the motion of one block in sub-pel units (1/pel pixel), with
// the match cost reported by the estimator.
type Vector = field.Vector

// VectorField gives read access to a row-major grid of block vectors.
// Only plane 0 (luma) is consulted; chroma vectors are derived from it.
type VectorField = field.Field

// GridGeometry describes the block grid of a vector field.
type GridGeometry = field.Geometry

// Grid is an in-memory VectorField.
type Grid struct {
	Geometry GridGeometry
	Vectors  []Vector // row-major, BlocksX*BlocksY entries
}

// NewGrid returns a zero-motion grid of the given geometry.
func NewGrid(g GridGeometry) (*Grid, error) {
	if err := validGeometry(g); err != nil {
		return nil, err
	}
	return &Grid{Geometry: g, Vectors: make([]Vector, g.Blocks())}, nil
}

// Block implements VectorField.
func (g *Grid) Block(plane, index int) Vector {
	return g.Vectors[index]
}

// Set stores the vector of block (bx, by).
func (g *Grid) Set(bx, by int, v Vector) {
	g.Vectors[bx+by*g.Geometry.BlocksX] = v
}

// At returns the vector of block (bx, by).
func (g *Grid) At(bx, by int) Vector {
	return g.Vectors[bx+by*g.Geometry.BlocksX]
}

// Dims reports the grid geometry, which lets callers check it against the
// geometry they were given.
func (g *Grid) Dims() GridGeometry {
	return g.Geometry
}

type dimsReporter interface {
	Dims() GridGeometry
}

func validGeometry(g GridGeometry) error {
	if g.BlocksX <= 0 || g.BlocksY <= 0 {
		return fmt.Errorf("%w: grid %dx%d", ErrDimensionMismatch, g.BlocksX, g.BlocksY)
	}
	if g.BlockW <= 0 || g.BlockH <= 0 {
		return fmt.Errorf("%w: block %dx%d", ErrInvalidBlockSize, g.BlockW, g.BlockH)
	}
	return nil
}

// checkField validates g and, when f reports its own geometry, that the two
// agree. Vector grids with a length mismatch are also rejected.
func checkField(f VectorField, g GridGeometry) error {
	if err := validGeometry(g); err != nil {
		return err
	}
	if f == nil {
		return fmt.Errorf("%w: nil vector field", ErrDimensionMismatch)
	}
	if d, ok := f.(dimsReporter); ok {
		if fg := d.Dims(); fg != g {
			return fmt.Errorf("%w: field grid %+v, expected %+v", ErrDimensionMismatch, fg, g)
		}
	}
	if gr, ok := f.(*Grid); ok && len(gr.Vectors) != g.Blocks() {
		return fmt.Errorf("%w: grid holds %d vectors, expected %d", ErrDimensionMismatch, len(gr.Vectors), g.Blocks())
	}
	return nil
}
