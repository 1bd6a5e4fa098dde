// Package mvflow is the numeric core of a motion-compensated frame
// interpolator.
//
// Given block motion vectors estimated between two frames, it builds
// occlusion masks from vector discontinuities and synthesizes an
// intermediate frame by blending samples fetched along the backward and
// forward displacement, with occluded areas falling back to the direction
// that still sees them. It also provides the SAD and SATD block metrics a
// motion estimator scores candidates with. Motion search itself is not
// part of this package.
//
// The package is pure Go and works on 8-bit and 16-bit planes:
//   - Block metrics: SAD (2x2 to 32x32) and Hadamard SATD (4x4 to 16x16)
//   - Vector field analysis: occlusion masks, small vector masks, chroma masks
//   - Sub-pel plane assembly for pel 1, 2 and 4
//   - Interpolation kernels: Blend, FlowInter, FlowInterExtra, FlowInterSimple
//   - Interpolator, a frame-level pipeline running the kernels in row bands
//
// Basic usage:
//
//	ip, err := mvflow.New(geom, mvflow.Options{Time: 128, Pel: 1})
//	err = ip.Interpolate(ctx, dst, refB, refF, bwd, fwd)
package mvflow
