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

// Backward replays the forward compositing order back-to-front and
// returns the analytic gradient of the loss (expressed through
// gradImageFeature, dLoss/dImageFeature) with respect to points and
// features.
//
// The arguments other than gradImageFeature are exactly Forward's inputs
// and outputs for the same scene: points, features, tileRanges,
// overlapToPoint describe the scene, and imageAlpha/imageLastValid are
// the outputs Forward produced from it (imageFeature itself is not
// needed — the recurrence only needs the final transmittance and the
// last contributing index).
//
// grad_points uses the gsplat.PointStride packed layout. At a pixel where
// a Gaussian's raw alpha exceeds ClampMaxAlpha, that pixel adds nothing to
// any of the Gaussian's six grad_points slots (uv, conic and alpha), since
// the ceiling is treated as a non-differentiable clamp; its grad_features
// still accumulate there.
func Backward(pool *parallel.WorkerPool, points []float32, features []float32, featureDim int, tileRanges []tiling.TileRange, overlapToPoint []int32, imageAlpha []float32, imageLastValid []int32, gradImageFeature []float32, imageW, imageH int, cfg RasterConfig) (gradPoints []float32, gradFeatures []float32, err error) {
	if err := validateShapes(points, features, featureDim); err != nil {
		return nil, nil, err
	}
	tileSize := int(cfg.TileSize)
	if tileSize <= 0 {
		return nil, nil, fmt.Errorf("raster: TileSize must be positive, got %d", cfg.TileSize)
	}
	if imageW%tileSize != 0 || imageH%tileSize != 0 {
		return nil, nil, fmt.Errorf("%w: image %dx%d is not a multiple of tile_size %d", gsplat.ErrMisalignedImage, imageW, imageH, tileSize)
	}
	if len(imageAlpha) != imageW*imageH || len(imageLastValid) != imageW*imageH {
		return nil, nil, fmt.Errorf("%w: image_alpha/image_last_valid must be %d elements", gsplat.ErrShapeMismatch, imageW*imageH)
	}
	if len(gradImageFeature) != imageW*imageH*featureDim {
		return nil, nil, fmt.Errorf("%w: grad_image_feature length %d, want %d", gsplat.ErrShapeMismatch, len(gradImageFeature), imageW*imageH*featureDim)
	}
	if cfg.Debug {
		if err := DebugCheckFinite(points, features); err != nil {
			return nil, nil, err
		}
	}

	n := len(points) / gsplat.PointStride
	tilesWide := imageW / tileSize
	numTiles := tilesWide * (imageH / tileSize)

	accPoints := newAtomicFloat32Slice(n * gsplat.PointStride)
	accFeatures := newAtomicFloat32Slice(n * featureDim)

	parallel.DispatchTiles(pool, numTiles, func(tileID int) {
		tx := tileID % tilesWide
		ty := tileID / tilesWide
		backwardTile(tx, ty, tileSize, points, features, featureDim,
			tileRanges[tileID], overlapToPoint, imageAlpha, imageLastValid, gradImageFeature,
			imageW, imageH, cfg, accPoints, accFeatures)
	})

	gradPoints = make([]float32, n*gsplat.PointStride)
	gradFeatures = make([]float32, n*featureDim)
	accPoints.toFloat32(gradPoints)
	accFeatures.toFloat32(gradFeatures)

	return gradPoints, gradFeatures, nil
}

// backwardTile replays one tile's contributing overlaps in reverse
// (back-to-front), recovering the pre-point transmittance T and the
// running weighted-feature sum w the spec's recurrence is expressed in
// terms of, for every pixel in the tile independently.
func backwardTile(tileX, tileY, tileSize int, points []float32, features []float32, featureDim int, tileRange tiling.TileRange, overlapToPoint []int32, imageAlpha []float32, imageLastValid []int32, gradImageFeature []float32, imageW, imageH int, cfg RasterConfig, accPoints, accFeatures atomicFloat32Slice) {
	start := int(tileRange.Start)
	if tileRange.End <= tileRange.Start {
		return
	}

	w := make([]float32, featureDim)

	for py := tileY * tileSize; py < tileY*tileSize+tileSize && py < imageH; py++ {
		for px := tileX * tileSize; px < tileX*tileSize+tileSize && px < imageW; px++ {
			idx := py*imageW + px
			end := int(imageLastValid[idx])
			if end <= start {
				continue
			}

			for c := range w {
				w[c] = 0
			}
			transmit := 1 - imageAlpha[idx]
			x := [2]float32{float32(px) + 0.5, float32(py) + 0.5}
			gradPixel := gradImageFeature[idx*featureDim : idx*featureDim+featureDim]

			for gi := end - 1; gi >= start; gi-- {
				g := int(overlapToPoint[gi])
				gaussian := gsplat.UnpackGaussian2D(points[g*gsplat.PointStride : (g+1)*gsplat.PointStride])

				p, dMean, dConic := conic.PDFWithGrad(x, gaussian.UV, gaussian.Conic)
				alphaRaw := gaussian.Alpha * p
				if alphaRaw < cfg.AlphaThreshold {
					continue
				}
				clamped := alphaRaw > cfg.ClampMaxAlpha
				alpha := alphaRaw
				if clamped {
					alpha = cfg.ClampMaxAlpha
				}

				transmit = transmit / (1 - alpha)

				var dAlpha float32
				for c := 0; c < featureDim; c++ {
					pointFeature := features[g*featureDim+c]
					dAlpha += (pointFeature*transmit - w[c]/(1-alpha)) * gradPixel[c]
				}

				base := g * featureDim
				for c := 0; c < featureDim; c++ {
					accFeatures.add(base+c, alpha*transmit*gradPixel[c])
					w[c] += features[g*featureDim+c] * alpha * transmit
				}

				if !clamped {
					dPointAlpha := dAlpha * p
					dP := dAlpha * gaussian.Alpha

					pb := g * gsplat.PointStride
					accPoints.add(pb+0, dP*dMean[0])
					accPoints.add(pb+1, dP*dMean[1])
					accPoints.add(pb+2, dP*dConic[0])
					accPoints.add(pb+3, dP*dConic[1])
					accPoints.add(pb+4, dP*dConic[2])
					accPoints.add(pb+5, dPointAlpha)
				}
			}
		}
	}
}
