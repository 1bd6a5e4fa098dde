package mvflow

import "errors"

// Errors returned at the public boundary. Kernels themselves never fail;
// every error is a caller contract violation detected before any pixel is
// written.
var (
	ErrInvalidBitDepth         = errors.New("mvflow: invalid bit depth")
	ErrInvalidPelFactor        = errors.New("mvflow: invalid pel factor")
	ErrInvalidBlockSize        = errors.New("mvflow: unsupported block size")
	ErrDimensionMismatch       = errors.New("mvflow: dimension mismatch")
	ErrOutOfBoundsDisplacement = errors.New("mvflow: displacement outside reference plane")
	ErrInvalidTime             = errors.New("mvflow: time fraction outside [0,256]")
	ErrInvalidMode             = errors.New("mvflow: unknown interpolation mode")
	ErrInvalidParameter        = errors.New("mvflow: invalid parameter")
	ErrAliasedBuffer           = errors.New("mvflow: destination overlaps a source buffer")
)
