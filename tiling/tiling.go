// Copyright 2026 The taichi-splatting Authors
// SPDX-License-Identifier: MIT

// Package tiling assigns each Gaussian to the screen tiles its conic
// footprint overlaps and produces the sorted (tile, depth) overlap list
// the rasterizer walks one tile at a time.
//
// MapToTiles runs the three passes the rasterizer's tile mapper is
// specified in terms of: pass A bins each Gaussian into a tile bounding
// box and counts its overlaps, an inclusive prefix sum over those counts
// lays out a single flat overlap array, pass B fills that array with
// (tile, depth) sort keys and point indices, a single global sort orders
// it by ascending key, and pass C walks the sorted keys once to recover
// each tile's half-open range within it.
package tiling

import (
	"fmt"
	"math"

	gsplat "github.com/pooncs/taichi-splatting"
	"github.com/pooncs/taichi-splatting/conic"
	"github.com/pooncs/taichi-splatting/internal/sortutil"
)

// TileRange is a half-open [Start, End) span into the overlapToPoint /
// sort-key arrays naming the overlaps that belong to one tile.
type TileRange struct {
	Start int32
	End   int32
}

// PadToTile rounds w and h up to the next multiple of tileSize. Callers
// are responsible for padding the image (and feature buffers) to the
// returned dimensions before calling MapToTiles or raster.Forward.
func PadToTile(w, h, tileSize int) (int, int) {
	pad := func(n int) int {
		if r := n % tileSize; r != 0 {
			return n + (tileSize - r)
		}
		return n
	}
	return pad(w), pad(h)
}

// MapToTiles computes, for every tile in the image, the half-open range
// of sorted overlaps that belong to it.
//
// gaussians holds N packed Gaussian2D records (gsplat.PointStride floats
// each); depths holds N non-negative finite depth values, front-to-back
// order is ascending depth. imageW and imageH must already be multiples
// of tileSize (see PadToTile).
//
// It returns overlapToPoint, a slice of length total_overlap giving the
// Gaussian index for each (tile, Gaussian) overlap in ascending
// (tile_id, depth) order, and tileRanges, one entry per tile in
// row-major order. Tiles with no overlaps carry the zero range (0, 0).
//
// When total overlap is zero (including the empty scene, S1) it returns
// a nil overlapToPoint and all-zero tileRanges.
func MapToTiles(gaussians []float32, depths []float32, imageW, imageH, tileSize int) (overlapToPoint []int32, tileRanges []TileRange, err error) {
	if tileSize <= 0 {
		return nil, nil, fmt.Errorf("tiling: tile_size must be positive, got %d", tileSize)
	}
	if imageW%tileSize != 0 || imageH%tileSize != 0 {
		return nil, nil, fmt.Errorf("%w: image %dx%d is not a multiple of tile_size %d", gsplat.ErrMisalignedImage, imageW, imageH, tileSize)
	}
	if len(gaussians)%gsplat.PointStride != 0 {
		return nil, nil, fmt.Errorf("%w: gaussians length %d is not a multiple of %d", gsplat.ErrShapeMismatch, len(gaussians), gsplat.PointStride)
	}
	n := len(gaussians) / gsplat.PointStride
	if len(depths) != n {
		return nil, nil, fmt.Errorf("%w: %d depths for %d gaussians", gsplat.ErrShapeMismatch, len(depths), n)
	}

	tilesWide := imageW / tileSize
	tilesHigh := imageH / tileSize
	numTiles := tilesWide * tilesHigh

	if n == 0 {
		return nil, make([]TileRange, numTiles), nil
	}

	// Pass A: per-Gaussian tile bounding box (half-open) and overlap count.
	type bbox struct{ minTX, minTY, maxTX, maxTY int32 }
	boxes := make([]bbox, n)
	counts := make([]int32, n)

	for g := 0; g < n; g++ {
		gi := gsplat.UnpackGaussian2D(gaussians[g*gsplat.PointStride : (g+1)*gsplat.PointStride])
		r := conic.Radius(gi.Conic)
		ux, uy := gi.UV[0], gi.UV[1]

		rawMinX, rawMaxX := ux-r, ux+r
		rawMinY, rawMaxY := uy-r, uy+r

		offscreen := rawMaxX < 0 || rawMinX > float32(imageW) ||
			rawMaxY < 0 || rawMinY > float32(imageH)
		if offscreen {
			boxes[g] = bbox{}
			counts[g] = 0
			continue
		}

		minBoundX := float32(math.Max(0, float64(rawMinX)))
		minBoundY := float32(math.Max(0, float64(rawMinY)))

		minTX := int32(math.Floor(float64(minBoundX) / float64(tileSize)))
		minTY := int32(math.Floor(float64(minBoundY) / float64(tileSize)))
		minTX = minInt32(minTX, int32(tilesWide))
		minTY = minInt32(minTY, int32(tilesHigh))

		maxTX := int32(math.Floor(float64(rawMaxX)/float64(tileSize))) + 1
		maxTY := int32(math.Floor(float64(rawMaxY)/float64(tileSize))) + 1
		maxTX = minInt32(maxInt32(maxTX, minTX+1), int32(tilesWide))
		maxTY = minInt32(maxInt32(maxTY, minTY+1), int32(tilesHigh))

		boxes[g] = bbox{minTX, minTY, maxTX, maxTY}
		counts[g] = (maxTX - minTX) * (maxTY - minTY)
	}

	// Inclusive prefix sum: cum[g] is the starting offset of Gaussian g's
	// overlaps in the flat array; cum[n] is the total overlap count.
	cum := make([]int32, n+1)
	for g := 0; g < n; g++ {
		cum[g+1] = cum[g] + counts[g]
	}
	totalOverlap := cum[n]

	if totalOverlap == 0 {
		return nil, make([]TileRange, numTiles), nil
	}

	// Pass B: emit sort keys and point indices for every overlap.
	keys := make([]uint64, totalOverlap)
	overlapToPoint = make([]int32, totalOverlap)

	for g := 0; g < n; g++ {
		if counts[g] == 0 {
			continue
		}
		b := boxes[g]
		offset := cum[g]
		idx := int32(0)
		for ty := b.minTY; ty < b.maxTY; ty++ {
			for tx := b.minTX; tx < b.maxTX; tx++ {
				tileID := uint32(ty)*uint32(tilesWide) + uint32(tx)
				keys[offset+idx] = sortutil.EncodeKey(tileID, depths[g])
				overlapToPoint[offset+idx] = int32(g)
				idx++
			}
		}
	}

	sortutil.SortOverlaps(keys, overlapToPoint)

	// Pass C: a single scan of the sorted keys recovers each tile's range.
	tileRanges = make([]TileRange, numTiles)
	tileRanges[sortutil.TileIDOf(keys[0])].Start = 0
	for i := 0; i < len(keys)-1; i++ {
		tileA := sortutil.TileIDOf(keys[i])
		tileB := sortutil.TileIDOf(keys[i+1])
		if tileA != tileB {
			tileRanges[tileA].End = int32(i + 1)
			tileRanges[tileB].Start = int32(i + 1)
		}
	}
	tileRanges[sortutil.TileIDOf(keys[len(keys)-1])].End = int32(len(keys))

	return overlapToPoint, tileRanges, nil
}

// DebugCheckFinite scans gaussians and depths for NaN or infinite values,
// and depths for negative values, and, if found, returns an
// ErrNonFinite-wrapped error naming the offending index and field. It is
// an O(N) preflight that callers invoke directly: MapToTiles never runs
// it, and RasterConfig.Debug does not enable it.
func DebugCheckFinite(gaussians []float32, depths []float32) error {
	fieldNames := [gsplat.PointStride]string{"uv.x", "uv.y", "conic.a", "conic.b", "conic.c", "alpha"}
	n := len(gaussians) / gsplat.PointStride
	for g := 0; g < n; g++ {
		for f := 0; f < gsplat.PointStride; f++ {
			v := gaussians[g*gsplat.PointStride+f]
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				return fmt.Errorf("%w: gaussian %d field %s = %v", gsplat.ErrNonFinite, g, fieldNames[f], v)
			}
		}
	}
	for g, d := range depths {
		if math.IsNaN(float64(d)) || math.IsInf(float64(d), 0) {
			return fmt.Errorf("%w: depth %d = %v", gsplat.ErrNonFinite, g, d)
		}
		if d < 0 {
			return fmt.Errorf("%w: depth %d = %v is negative", gsplat.ErrNonFinite, g, d)
		}
	}
	return nil
}

func minInt32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func maxInt32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}
