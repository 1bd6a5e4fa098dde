package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/deepteams/mvflow"
)

// vectorFile is the YAML layout of a pair of block vector fields:
//
//	blocksX: 40
//	blocksY: 30
//	blockW: 8
//	blockH: 8
//	backward: [{x: 4, y: 0}, ...]
//	forward: [{x: -4, y: 0, sad: 120}, ...]
type vectorFile struct {
	BlocksX  int          `yaml:"blocksX"`
	BlocksY  int          `yaml:"blocksY"`
	BlockW   int          `yaml:"blockW"`
	BlockH   int          `yaml:"blockH"`
	Backward []vectorYAML `yaml:"backward"`
	Forward  []vectorYAML `yaml:"forward"`
}

type vectorYAML struct {
	X   int    `yaml:"x"`
	Y   int    `yaml:"y"`
	SAD uint32 `yaml:"sad"`
}

func toGrid(g mvflow.GridGeometry, vs []vectorYAML, name string) (*mvflow.Grid, error) {
	grid, err := mvflow.NewGrid(g)
	if err != nil {
		return nil, err
	}
	switch len(vs) {
	case 0:
		// Missing field means no motion.
	case len(grid.Vectors):
		for i, v := range vs {
			grid.Vectors[i] = mvflow.Vector{X: v.X, Y: v.Y, SAD: v.SAD}
		}
	default:
		return nil, fmt.Errorf("%s field has %d vectors, grid has %d blocks", name, len(vs), len(grid.Vectors))
	}
	return grid, nil
}

// loadVectors reads a vector file.
func loadVectors(path string) (mvflow.GridGeometry, *mvflow.Grid, *mvflow.Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return mvflow.GridGeometry{}, nil, nil, err
	}
	var vf vectorFile
	if err := yaml.Unmarshal(data, &vf); err != nil {
		return mvflow.GridGeometry{}, nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	g := mvflow.GridGeometry{BlocksX: vf.BlocksX, BlocksY: vf.BlocksY, BlockW: vf.BlockW, BlockH: vf.BlockH}
	bwd, err := toGrid(g, vf.Backward, "backward")
	if err != nil {
		return g, nil, nil, err
	}
	fwd, err := toGrid(g, vf.Forward, "forward")
	if err != nil {
		return g, nil, nil, err
	}
	return g, bwd, fwd, nil
}

// zeroVectors returns still fields covering a width x height frame.
func zeroVectors(width, height, blockW, blockH int) (mvflow.GridGeometry, *mvflow.Grid, *mvflow.Grid, error) {
	g := mvflow.GridGeometry{
		BlocksX: (width + blockW - 1) / blockW,
		BlocksY: (height + blockH - 1) / blockH,
		BlockW:  blockW,
		BlockH:  blockH,
	}
	bwd, err := mvflow.NewGrid(g)
	if err != nil {
		return g, nil, nil, err
	}
	fwd, err := mvflow.NewGrid(g)
	if err != nil {
		return g, nil, nil, err
	}
	return g, bwd, fwd, nil
}

// maxDisplacement returns the largest vector component magnitude in pixels
// along each axis, rounded up.
func maxDisplacement(pel int, grids ...*mvflow.Grid) (int, int) {
	mx, my := 0, 0
	for _, g := range grids {
		for _, v := range g.Vectors {
			mx = max(mx, abs(v.X))
			my = max(my, abs(v.Y))
		}
	}
	return (mx + pel - 1) / pel, (my + pel - 1) / pel
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
