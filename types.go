package gsplat

import "github.com/pooncs/taichi-splatting/conic"

// Gaussian2D is the packed, on-device representation of a single 2D
// Gaussian: six floats in the fixed order (uv.x, uv.y, conic.a, conic.b,
// conic.c, alpha). This layout is a design contract shared between the
// forward and backward kernels — it is what [Gaussian2D.Pack] and
// [UnpackGaussian2D] convert
// to and from, and it is exactly the layout a `[N, 6] f32` points buffer
// uses on the wire.
//
// Invariant: conic.a > 0 and conic.a*conic.c - conic.b*conic.b > 0
// (Sigma^-1 positive-definite). The rasterizer does not enforce this;
// callers are responsible for only ever producing valid conics.
type Gaussian2D struct {
	UV    [2]float32
	Conic conic.Conic
	Alpha float32
}

// Pack writes g into dst as six floats in (uv.x, uv.y, a, b, c, alpha)
// order. dst must have length 6.
func (g Gaussian2D) Pack(dst []float32) {
	dst[0] = g.UV[0]
	dst[1] = g.UV[1]
	dst[2] = g.Conic.A
	dst[3] = g.Conic.B
	dst[4] = g.Conic.C
	dst[5] = g.Alpha
}

// UnpackGaussian2D reads a packed six-float Gaussian record from src.
// src must have length 6.
func UnpackGaussian2D(src []float32) Gaussian2D {
	return Gaussian2D{
		UV:    [2]float32{src[0], src[1]},
		Conic: conic.Conic{A: src[2], B: src[3], C: src[4]},
		Alpha: src[5],
	}
}

// PointStride is the number of floats per packed Gaussian record.
const PointStride = 6
