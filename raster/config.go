// Copyright 2026 The taichi-splatting Authors
// SPDX-License-Identifier: MIT

// Package raster implements the tiled forward and backward rasterizer:
// given a sorted overlap list from package tiling, it alpha-composites
// each tile's Gaussians front-to-back into a feature image (Forward) and
// replays that compositing back-to-front to produce analytic gradients
// with respect to each Gaussian's position, conic, and alpha (Backward).
package raster

// RasterConfig holds the tunable thresholds and tiling parameters shared
// by Forward and Backward. The zero value is not usable; start from
// DefaultConfig.
type RasterConfig struct {
	// TileSize is the width and height, in pixels, of one raster tile.
	// Must match the tile_size MapToTiles was called with.
	TileSize int32

	// PixelStride is the number of pixels, in each axis, that a single
	// cooperative "lane" processes. On the CPU dispatcher this only
	// changes how pixels are grouped for the inner sequential walk, not
	// the result; it exists so the code mirrors the GPU kernel's
	// thread_pixels fan-out exactly. Both components must evenly divide
	// TileSize.
	PixelStride [2]int32

	// AlphaThreshold is the minimum raw point_alpha*conic_pdf a Gaussian
	// must reach to be considered a contributor at all; smaller values
	// are treated as zero.
	AlphaThreshold float32

	// ClampMaxAlpha is a hard, non-differentiable ceiling applied to
	// alpha after the threshold test.
	ClampMaxAlpha float32

	// SaturateThreshold controls early termination: once the running
	// transmittance T would drop to 1-SaturateThreshold or below, the
	// pixel stops accumulating further Gaussians.
	SaturateThreshold float32

	// Debug enables the O(N) non-finite-input preflight scan before
	// dispatch. Production callers should leave this false.
	Debug bool
}

// DefaultConfig returns the rasterizer's documented default parameters.
func DefaultConfig() RasterConfig {
	return RasterConfig{
		TileSize:          16,
		PixelStride:       [2]int32{1, 1},
		AlphaThreshold:    1.0 / 255.0,
		ClampMaxAlpha:     0.99,
		SaturateThreshold: 0.9999,
	}
}
