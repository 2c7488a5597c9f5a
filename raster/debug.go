// Copyright 2026 The taichi-splatting Authors
// SPDX-License-Identifier: MIT

package raster

import (
	"fmt"
	"math"

	gsplat "github.com/pooncs/taichi-splatting"
)

// DebugCheckFinite scans points and features for NaN or infinite values,
// returning an error naming the offending index and field on the first
// one found. It is an O(N) preflight gated by RasterConfig.Debug;
// production dispatch skips it.
func DebugCheckFinite(points []float32, features []float32) error {
	fieldNames := [gsplat.PointStride]string{"uv.x", "uv.y", "conic.a", "conic.b", "conic.c", "alpha"}
	n := len(points) / gsplat.PointStride
	for g := 0; g < n; g++ {
		for f := 0; f < gsplat.PointStride; f++ {
			v := points[g*gsplat.PointStride+f]
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				return fmt.Errorf("%w: point %d field %s = %v", gsplat.ErrNonFinite, g, fieldNames[f], v)
			}
		}
	}
	for i, v := range features {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("%w: feature element %d = %v", gsplat.ErrNonFinite, i, v)
		}
	}
	return nil
}

// MortonTileOrder returns the Morton (Z-order) index for a tile
// coordinate. Interleaving bits improves cache locality when many lanes
// touch the same small neighborhood, so it is a lane-ordering performance
// hint only, never required for correctness. Nothing in this module calls
// it: the CPU goroutine path in this package does not use it, and the GPU
// backward kernel's entry point has an empty body.
func MortonTileOrder(tx, ty uint32) uint32 {
	return spreadBits(tx) | (spreadBits(ty) << 1)
}

func spreadBits(v uint32) uint32 {
	v &= 0x0000ffff
	v = (v | (v << 8)) & 0x00ff00ff
	v = (v | (v << 4)) & 0x0f0f0f0f
	v = (v | (v << 2)) & 0x33333333
	v = (v | (v << 1)) & 0x55555555
	return v
}
