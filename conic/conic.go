// Copyright 2026 The taichi-splatting Authors
// SPDX-License-Identifier: MIT

// Package conic evaluates the 2D Gaussian probability density function
// and its analytic gradients with respect to the mean and the inverse
// covariance (conic), and derives a conservative screen-space splat
// radius from the conic.
//
// This is the leaf component (C1) of the rasterizer: both the forward
// and backward tiled kernels in package raster call into it once per
// (pixel, Gaussian) pair.
package conic

import "math"

// Conic is the symmetric 2x2 inverse covariance matrix Sigma^-1 of a 2D
// Gaussian, stored as three scalars:
//
//	Sigma^-1 = [[A, B], [B, C]]
//
// The caller is responsible for the positive-definite invariant
// (A > 0, A*C - B*B > 0); this package does not enforce it. An
// ill-formed conic yields an implementation-defined, non-crashing
// result (see the rasterizer's error handling design).
type Conic struct {
	A, B, C float32
}

// RadiusCutoff is the number of standard deviations (in terms of the
// covariance's largest eigenvalue) used to derive a conservative
// splat radius in Radius.
const RadiusCutoff = 3.0

// MinRadius is the minimum screen-space radius returned by Radius, so a
// degenerate or extremely tight Gaussian still overlaps at least one
// tile.
const MinRadius = 1.0

// PDF evaluates the (unnormalized) 2D Gaussian density
//
//	exp(-1/2 (x-mu)^T Sigma^-1 (x-mu))
//
// at pixel-space point x, given mean mu and conic Sigma^-1. The
// normalization constant is intentionally omitted (per-Gaussian alpha
// already carries the peak opacity).
func PDF(x, mu [2]float32, c Conic) float32 {
	dx := x[0] - mu[0]
	dy := x[1] - mu[1]
	quad := c.A*dx*dx + 2*c.B*dx*dy + c.C*dy*dy
	return float32(math.Exp(-0.5 * float64(quad)))
}

// PDFWithGrad evaluates PDF and additionally returns its gradient with
// respect to the mean (dp/dmu) and with respect to the conic
// parameters, packed as (d/dA, d/dB * 2, d/dC) to match the symmetric
// storage of Conic (the off-diagonal term appears twice in the
// quadratic form, so its partial derivative is doubled before packing).
func PDFWithGrad(x, mu [2]float32, c Conic) (p float32, dMean [2]float32, dConic [3]float32) {
	dx := x[0] - mu[0]
	dy := x[1] - mu[1]
	quad := c.A*dx*dx + 2*c.B*dx*dy + c.C*dy*dy
	p = float32(math.Exp(-0.5 * float64(quad)))

	// dp/dmu = p * Sigma^-1 (x - mu)
	sx := c.A*dx + c.B*dy
	sy := c.B*dx + c.C*dy
	dMean = [2]float32{p * sx, p * sy}

	// dp/dSigma^-1 = -1/2 p * (x-mu)(x-mu)^T, packed (d_a, d_b*2, d_c).
	dConic = [3]float32{
		-0.5 * p * dx * dx,
		-0.5 * p * (2 * dx * dy),
		-0.5 * p * dy * dy,
	}
	return p, dMean, dConic
}

// Radius derives a conservative screen-space splat radius from the
// conic: RadiusCutoff standard deviations along the covariance's
// largest eigenvalue direction, clamped to at least MinRadius pixels.
//
// Sigma = (Sigma^-1)^-1 is inverted explicitly here (a 2x2 symmetric
// matrix inverse and its eigenvalues both have closed forms) rather
// than delegating to a shared helper, since the eigen-decomposition of
// Sigma^-1 itself does not directly give the eigenvalues of Sigma (they
// are reciprocals of each other, but sharing that code with the
// forward/backward PDF evaluation would only obscure this one-time
// setup computation).
func Radius(c Conic) float32 {
	det := float64(c.A)*float64(c.C) - float64(c.B)*float64(c.B)
	if det <= 0 {
		// Degenerate/non-positive-definite conic: implementation-defined,
		// but must not crash. Fall back to the minimum radius.
		return MinRadius
	}

	// Sigma = Sigma^-1 inverse, for a 2x2 symmetric matrix:
	//   Sigma = (1/det) * [[C, -B], [-B, A]]
	sA := float64(c.C) / det
	sB := float64(-c.B) / det
	sC := float64(c.A) / det

	// Largest eigenvalue of the symmetric 2x2 matrix Sigma.
	tr := sA + sC
	diff := sA - sC
	discriminant := diff*diff + 4*sB*sB
	if discriminant < 0 {
		discriminant = 0
	}
	lambdaMax := (tr + math.Sqrt(discriminant)) / 2
	if lambdaMax < 0 {
		lambdaMax = 0
	}

	r := float32(RadiusCutoff * math.Sqrt(lambdaMax))
	if r < MinRadius {
		return MinRadius
	}
	return r
}
