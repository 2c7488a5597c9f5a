package gsplat

import "errors"

// Sentinel errors surfaced by the tiling and raster packages, per the
// error kinds enumerated in the rasterizer's error handling design:
// shape mismatches and misaligned images are rejected before dispatch,
// non-finite inputs are only checked when RasterConfig.Debug is set, and
// degenerate covariances are never checked (they yield implementation-
// defined but non-crashing results).
var (
	// ErrShapeMismatch indicates a caller-supplied array does not satisfy
	// its declared shape contract (e.g. points is not N*6 floats).
	ErrShapeMismatch = errors.New("gsplat: shape mismatch")

	// ErrMisalignedImage indicates the image width or height is not a
	// multiple of the configured tile size. Callers must pad the image
	// themselves; the rasterizer never pads on their behalf.
	ErrMisalignedImage = errors.New("gsplat: image dimensions are not a multiple of tile size")

	// ErrNonFinite indicates a debug-mode preflight scan found a NaN or
	// Inf value in Gaussians, features, or depths, or a negative depth.
	ErrNonFinite = errors.New("gsplat: non-finite value")

	// ErrFallbackToCPU indicates the GPU acceleration backend cannot
	// service this dispatch and the caller (or the package itself) should
	// transparently fall back to the CPU implementation.
	ErrFallbackToCPU = errors.New("gsplat: falling back to CPU rasterizer")

	// ErrNilAccelerator indicates RegisterAccelerator was called with a
	// nil GPUAccelerator.
	ErrNilAccelerator = errors.New("gsplat: accelerator must not be nil")
)
