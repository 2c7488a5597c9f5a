// Copyright 2026 The taichi-splatting Authors
// SPDX-License-Identifier: MIT

// Package gsplat implements a tile-based differentiable 2D Gaussian
// splatting rasterizer.
//
// Given a batch of 2D Gaussians (center, inverse covariance, opacity)
// together with per-Gaussian feature vectors and depths, the pipeline
// produces a raster image of per-pixel features and the auxiliary state
// required to compute analytic gradients of an image-space loss back to
// Gaussian parameters and features.
//
// The pipeline has three stages, implemented in their own packages:
//
//   - [github.com/pooncs/taichi-splatting/tiling]: bins Gaussians into
//     screen tiles and produces a globally depth-sorted overlap list.
//   - [github.com/pooncs/taichi-splatting/raster]: the forward compositing
//     kernel and its analytic backward adjoint.
//   - [github.com/pooncs/taichi-splatting/conic]: the 2D Gaussian PDF and
//     its gradients, shared by the forward and backward kernels.
//
// Parameter parameterization (rotation/scale to conic), 3D projection,
// camera models, and adaptive density control are out of scope: this
// module starts from already-projected 2D Gaussians.
package gsplat
