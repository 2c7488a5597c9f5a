// Copyright 2026 The taichi-splatting Authors
// SPDX-License-Identifier: MIT

package raster

import (
	"fmt"

	gsplat "github.com/pooncs/taichi-splatting"
	"github.com/pooncs/taichi-splatting/conic"
	"github.com/pooncs/taichi-splatting/internal/parallel"
	"github.com/pooncs/taichi-splatting/tiling"
)

// Forward alpha-composites every Gaussian into its tiles front-to-back
// (ascending depth) and returns the resulting feature image, alpha
// channel, and per-pixel last-valid-overlap index.
//
// points holds N packed Gaussian2D records (gsplat.PointStride floats
// each); features holds N*featureDim floats, featureDim values per
// point. tileRanges and overlapToPoint come from tiling.MapToTiles and
// must describe the same points and the same imageW/imageH/tile_size.
//
// pool fans the per-tile work across goroutines; pass nil to run tiles
// sequentially on the calling goroutine.
//
// The returned imageFeature is imageW*imageH*featureDim floats in
// row-major (y, x, channel) order; imageAlpha and imageLastValid are
// imageW*imageH in row-major (y, x) order. imageLastValid holds, for
// each pixel, the exclusive upper bound (one past the last contributing
// overlap's position in overlapToPoint) — 0 if no Gaussian contributed.
func Forward(pool *parallel.WorkerPool, points []float32, features []float32, featureDim int, tileRanges []tiling.TileRange, overlapToPoint []int32, imageW, imageH int, cfg RasterConfig) (imageFeature []float32, imageAlpha []float32, imageLastValid []int32, err error) {
	if err := validateShapes(points, features, featureDim); err != nil {
		return nil, nil, nil, err
	}
	tileSize := int(cfg.TileSize)
	if tileSize <= 0 {
		return nil, nil, nil, fmt.Errorf("raster: TileSize must be positive, got %d", cfg.TileSize)
	}
	if imageW%tileSize != 0 || imageH%tileSize != 0 {
		return nil, nil, nil, fmt.Errorf("%w: image %dx%d is not a multiple of tile_size %d", gsplat.ErrMisalignedImage, imageW, imageH, tileSize)
	}
	strideX, strideY := int(cfg.PixelStride[0]), int(cfg.PixelStride[1])
	if strideX <= 0 || strideY <= 0 || tileSize%strideX != 0 || tileSize%strideY != 0 {
		return nil, nil, nil, fmt.Errorf("raster: PixelStride %v must evenly divide tile_size %d", cfg.PixelStride, tileSize)
	}
	if cfg.Debug {
		if err := DebugCheckFinite(points, features); err != nil {
			return nil, nil, nil, err
		}
	}

	tilesWide := imageW / tileSize
	tilesHigh := imageH / tileSize
	numTiles := tilesWide * tilesHigh

	imageFeature = make([]float32, imageW*imageH*featureDim)
	imageAlpha = make([]float32, imageW*imageH)
	imageLastValid = make([]int32, imageW*imageH)

	parallel.DispatchTiles(pool, numTiles, func(tileID int) {
		tx := tileID % tilesWide
		ty := tileID / tilesWide
		forwardTile(tx, ty, tileSize, strideX, strideY, points, features, featureDim,
			tileRanges[tileID], overlapToPoint, imageW, imageH, cfg,
			imageFeature, imageAlpha, imageLastValid)
	})

	return imageFeature, imageAlpha, imageLastValid, nil
}

func validateShapes(points []float32, features []float32, featureDim int) error {
	if featureDim <= 0 {
		return fmt.Errorf("raster: featureDim must be positive, got %d", featureDim)
	}
	if len(points)%gsplat.PointStride != 0 {
		return fmt.Errorf("%w: points length %d is not a multiple of %d", gsplat.ErrShapeMismatch, len(points), gsplat.PointStride)
	}
	n := len(points) / gsplat.PointStride
	if len(features) != n*featureDim {
		return fmt.Errorf("%w: features length %d, want %d (%d points * %d channels)", gsplat.ErrShapeMismatch, len(features), n*featureDim, n, featureDim)
	}
	return nil
}

// forwardTile runs the cooperative compositing loop for one tile,
// grouping the tile's sorted overlap range into block_area-sized chunks
// (the CPU stand-in for the GPU kernel's shared-memory scratch load) and
// walking each chunk once per pixel lane.
func forwardTile(tileX, tileY, tileSize, strideX, strideY int, points []float32, features []float32, featureDim int, tileRange tiling.TileRange, overlapToPoint []int32, imageW, imageH int, cfg RasterConfig, imageFeature, imageAlpha []float32, imageLastValid []int32) {
	start, end := int(tileRange.Start), int(tileRange.End)
	blockArea := tileSize * tileSize
	lanesX := tileSize / strideX
	lanesY := tileSize / strideY
	fanOut := strideX * strideY

	pixX := make([]int, fanOut)
	pixY := make([]int, fanOut)
	inBounds := make([]bool, fanOut)
	saturated := make([]bool, fanOut)
	transmit := make([]float32, fanOut)
	lastValid := make([]int32, fanOut)
	feat := make([]float32, fanOut*featureDim)

	for ly := 0; ly < lanesY; ly++ {
		for lx := 0; lx < lanesX; lx++ {
			baseX := tileX*tileSize + lx*strideX
			baseY := tileY*tileSize + ly*strideY

			anyLive := false
			for sy := 0; sy < strideY; sy++ {
				for sx := 0; sx < strideX; sx++ {
					s := sy*strideX + sx
					px, py := baseX+sx, baseY+sy
					pixX[s], pixY[s] = px, py
					inBounds[s] = px < imageW && py < imageH
					saturated[s] = !inBounds[s]
					transmit[s] = 1
					lastValid[s] = 0
					for c := 0; c < featureDim; c++ {
						feat[s*featureDim+c] = 0
					}
					if inBounds[s] {
						anyLive = true
					}
				}
			}
			if !anyLive {
				continue
			}

			for chunkStart := start; chunkStart < end; chunkStart += blockArea {
				chunkEnd := chunkStart + blockArea
				if chunkEnd > end {
					chunkEnd = end
				}

				allSaturated := true
				for s := 0; s < fanOut; s++ {
					if !saturated[s] {
						allSaturated = false
						break
					}
				}
				if allSaturated {
					break
				}

				for gi := chunkStart; gi < chunkEnd; gi++ {
					g := int(overlapToPoint[gi])
					gaussian := gsplat.UnpackGaussian2D(points[g*gsplat.PointStride : (g+1)*gsplat.PointStride])

					for s := 0; s < fanOut; s++ {
						if saturated[s] {
							continue
						}
						x := [2]float32{float32(pixX[s]) + 0.5, float32(pixY[s]) + 0.5}
						p := conic.PDF(x, gaussian.UV, gaussian.Conic)
						alpha := gaussian.Alpha * p
						if alpha < cfg.AlphaThreshold {
							continue
						}
						if alpha > cfg.ClampMaxAlpha {
							alpha = cfg.ClampMaxAlpha
						}

						tNext := transmit[s] * (1 - alpha)
						if tNext <= 1-cfg.SaturateThreshold {
							saturated[s] = true
							continue
						}

						for c := 0; c < featureDim; c++ {
							feat[s*featureDim+c] += features[g*featureDim+c] * alpha * transmit[s]
						}
						transmit[s] = tNext
						lastValid[s] = int32(gi + 1)
					}
				}
			}

			for sy := 0; sy < strideY; sy++ {
				for sx := 0; sx < strideX; sx++ {
					s := sy*strideX + sx
					if !inBounds[s] {
						continue
					}
					idx := pixY[s]*imageW + pixX[s]
					imageAlpha[idx] = 1 - transmit[s]
					imageLastValid[idx] = lastValid[s]
					for c := 0; c < featureDim; c++ {
						imageFeature[idx*featureDim+c] = feat[s*featureDim+c]
					}
				}
			}
		}
	}
}
