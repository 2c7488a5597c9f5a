package conic

import (
	"math"
	"testing"
)

func TestPDFAtCenter(t *testing.T) {
	mu := [2]float32{8, 8}
	c := Conic{A: 1, B: 0, C: 1}
	got := PDF(mu, mu, c)
	if math.Abs(float64(got-1.0)) > 1e-6 {
		t.Errorf("PDF at center = %v, want 1.0", got)
	}
}

func TestPDFDecaysWithDistance(t *testing.T) {
	mu := [2]float32{8, 8}
	c := Conic{A: 1, B: 0, C: 1}
	center := PDF(mu, mu, c)
	off := PDF([2]float32{9, 8}, mu, c)
	if !(off < center) {
		t.Errorf("PDF should decay moving away from center: center=%v off=%v", center, off)
	}
	want := float32(math.Exp(-0.5))
	if math.Abs(float64(off-want)) > 1e-5 {
		t.Errorf("PDF(1 pixel away) = %v, want %v", off, want)
	}
}

func TestPDFGradMatchesFiniteDifference(t *testing.T) {
	mu := [2]float32{3, 4}
	c := Conic{A: 1.2, B: 0.3, C: 0.9}
	x := [2]float32{3.7, 3.2}

	p, dMean, dConic := PDFWithGrad(x, mu, c)
	if p0 := PDF(x, mu, c); math.Abs(float64(p-p0)) > 1e-6 {
		t.Fatalf("PDFWithGrad value %v disagrees with PDF %v", p, p0)
	}

	const eps = 1e-3
	// d/dmu.x
	pPlus := PDF(x, [2]float32{mu[0] + eps, mu[1]}, c)
	pMinus := PDF(x, [2]float32{mu[0] - eps, mu[1]}, c)
	fd := (pPlus - pMinus) / (2 * eps)
	if math.Abs(float64(fd-dMean[0])) > 5e-3 {
		t.Errorf("dMean.x analytic=%v finite-diff=%v", dMean[0], fd)
	}

	// d/dA
	pPlus = PDF(x, mu, Conic{A: c.A + eps, B: c.B, C: c.C})
	pMinus = PDF(x, mu, Conic{A: c.A - eps, B: c.B, C: c.C})
	fd = (pPlus - pMinus) / (2 * eps)
	if math.Abs(float64(fd-dConic[0])) > 5e-3 {
		t.Errorf("dConic.a analytic=%v finite-diff=%v", dConic[0], fd)
	}

	// d/dC
	pPlus = PDF(x, mu, Conic{A: c.A, B: c.B, C: c.C + eps})
	pMinus = PDF(x, mu, Conic{A: c.A, B: c.B, C: c.C - eps})
	fd = (pPlus - pMinus) / (2 * eps)
	if math.Abs(float64(fd-dConic[2])) > 5e-3 {
		t.Errorf("dConic.c analytic=%v finite-diff=%v", dConic[2], fd)
	}
}

func TestRadiusClampedToMinimum(t *testing.T) {
	// Extremely tight Gaussian: huge inverse-covariance entries.
	r := Radius(Conic{A: 1e6, B: 0, C: 1e6})
	if r != MinRadius {
		t.Errorf("Radius for tight Gaussian = %v, want MinRadius (%v)", r, MinRadius)
	}
}

func TestRadiusIsotropic(t *testing.T) {
	// Sigma^-1 = diag(1,1) => Sigma = diag(1,1), lambda_max = 1.
	r := Radius(Conic{A: 1, B: 0, C: 1})
	want := float32(RadiusCutoff)
	if math.Abs(float64(r-want)) > 1e-4 {
		t.Errorf("Radius(diag(1,1)) = %v, want %v", r, want)
	}
}

func TestRadiusDegenerateConicDoesNotCrash(t *testing.T) {
	// Not positive-definite: det <= 0.
	r := Radius(Conic{A: 1, B: 2, C: 1})
	if r < MinRadius {
		t.Errorf("Radius for degenerate conic = %v, want >= MinRadius", r)
	}
}

func TestRadiusAnisotropic(t *testing.T) {
	// Sigma^-1 = diag(4, 1) => Sigma = diag(0.25, 1), lambda_max = 1.
	r := Radius(Conic{A: 4, B: 0, C: 1})
	want := float32(RadiusCutoff)
	if math.Abs(float64(r-want)) > 1e-4 {
		t.Errorf("Radius(diag(4,1)) = %v, want %v", r, want)
	}
}
