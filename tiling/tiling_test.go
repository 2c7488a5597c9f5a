package tiling

import (
	"errors"
	"testing"

	gsplat "github.com/pooncs/taichi-splatting"
	"github.com/pooncs/taichi-splatting/conic"
)

func packGaussian(uv [2]float32, c conic.Conic, alpha float32) []float32 {
	g := gsplat.Gaussian2D{UV: uv, Conic: c, Alpha: alpha}
	buf := make([]float32, gsplat.PointStride)
	g.Pack(buf)
	return buf
}

// S1: empty scene.
func TestMapToTilesEmptyScene(t *testing.T) {
	overlaps, ranges, err := MapToTiles(nil, nil, 32, 32, 16)
	if err != nil {
		t.Fatalf("MapToTiles returned error: %v", err)
	}
	if len(overlaps) != 0 {
		t.Errorf("overlapToPoint = %v, want empty", overlaps)
	}
	if len(ranges) != 4 {
		t.Fatalf("len(ranges) = %d, want 4", len(ranges))
	}
	for i, r := range ranges {
		if r != (TileRange{}) {
			t.Errorf("ranges[%d] = %+v, want zero", i, r)
		}
	}
}

func TestMapToTilesRejectsMisalignedImage(t *testing.T) {
	_, _, err := MapToTiles(nil, nil, 33, 32, 16)
	if !errors.Is(err, gsplat.ErrMisalignedImage) {
		t.Errorf("err = %v, want ErrMisalignedImage", err)
	}
}

func TestMapToTilesRejectsShapeMismatch(t *testing.T) {
	g := packGaussian([2]float32{8, 8}, conic.Conic{A: 1, B: 0, C: 1}, 1)
	_, _, err := MapToTiles(g, []float32{1, 2}, 32, 32, 16)
	if !errors.Is(err, gsplat.ErrShapeMismatch) {
		t.Errorf("err = %v, want ErrShapeMismatch", err)
	}
}

// S4: a Gaussian centered on a tile boundary overlaps every tile its
// radius reaches, and no others.
func TestMapToTilesTileBoundarySpanningGaussian(t *testing.T) {
	// image is 2x2 tiles of 16px; center the Gaussian exactly on the
	// intersection of all four tiles with a radius large enough to
	// reach into each one but not cross the image bounds.
	g := packGaussian([2]float32{16, 16}, conic.Conic{A: 1, B: 0, C: 1}, 1)
	depths := []float32{1.0}

	overlaps, ranges, err := MapToTiles(g, depths, 32, 32, 16)
	if err != nil {
		t.Fatalf("MapToTiles returned error: %v", err)
	}
	if len(ranges) != 4 {
		t.Fatalf("len(ranges) = %d, want 4", len(ranges))
	}
	for tile, r := range ranges {
		if r.End <= r.Start {
			t.Errorf("tile %d has empty range %+v, want an overlap (boundary gaussian)", tile, r)
		}
	}
	if len(overlaps) != 4 {
		t.Errorf("len(overlapToPoint) = %d, want 4 (one per tile)", len(overlaps))
	}
	for _, p := range overlaps {
		if p != 0 {
			t.Errorf("overlapToPoint entry = %d, want 0 (only gaussian)", p)
		}
	}
}

// Invariant: a Gaussian entirely off-screen must produce zero overlaps,
// even though the naive clamp-to-zero bounding box formula would collapse
// its minimum bound onto the image edge.
func TestMapToTilesOffscreenGaussianProducesNoOverlaps(t *testing.T) {
	g := packGaussian([2]float32{-1000, -1000}, conic.Conic{A: 1, B: 0, C: 1}, 1)
	depths := []float32{1.0}

	overlaps, ranges, err := MapToTiles(g, depths, 32, 32, 16)
	if err != nil {
		t.Fatalf("MapToTiles returned error: %v", err)
	}
	if len(overlaps) != 0 {
		t.Errorf("overlapToPoint = %v, want empty for off-screen gaussian", overlaps)
	}
	for i, r := range ranges {
		if r != (TileRange{}) {
			t.Errorf("ranges[%d] = %+v, want zero for off-screen gaussian", i, r)
		}
	}
}

// Invariant: overlaps within a tile are ordered by ascending depth.
func TestMapToTilesOrdersOverlapsByDepthWithinTile(t *testing.T) {
	near := packGaussian([2]float32{8, 8}, conic.Conic{A: 0.5, B: 0, C: 0.5}, 1)
	far := packGaussian([2]float32{8, 8}, conic.Conic{A: 0.5, B: 0, C: 0.5}, 1)
	gaussians := append(append([]float32{}, far...), near...)
	depths := []float32{5.0, 1.0} // gaussian 0 is farther, gaussian 1 nearer

	overlaps, ranges, err := MapToTiles(gaussians, depths, 16, 16, 16)
	if err != nil {
		t.Fatalf("MapToTiles returned error: %v", err)
	}
	r := ranges[0]
	if r.End-r.Start != 2 {
		t.Fatalf("tile 0 overlap count = %d, want 2", r.End-r.Start)
	}
	got := overlaps[r.Start:r.End]
	if got[0] != 1 || got[1] != 0 {
		t.Errorf("overlaps in tile 0 = %v, want [1 0] (nearer depth first)", got)
	}
}

func TestPadToTile(t *testing.T) {
	cases := []struct{ w, h, tileSize, wantW, wantH int }{
		{32, 32, 16, 32, 32},
		{33, 32, 16, 48, 32},
		{1, 1, 16, 16, 16},
		{0, 0, 16, 0, 0},
	}
	for _, c := range cases {
		gotW, gotH := PadToTile(c.w, c.h, c.tileSize)
		if gotW != c.wantW || gotH != c.wantH {
			t.Errorf("PadToTile(%d,%d,%d) = (%d,%d), want (%d,%d)", c.w, c.h, c.tileSize, gotW, gotH, c.wantW, c.wantH)
		}
	}
}

func TestDebugCheckFiniteCatchesNaNGaussianField(t *testing.T) {
	g := packGaussian([2]float32{float32(nan()), 8}, conic.Conic{A: 1, B: 0, C: 1}, 1)
	err := DebugCheckFinite(g, []float32{1.0})
	if !errors.Is(err, gsplat.ErrNonFinite) {
		t.Errorf("err = %v, want ErrNonFinite", err)
	}
}

func TestDebugCheckFiniteCatchesNegativeDepth(t *testing.T) {
	g := packGaussian([2]float32{8, 8}, conic.Conic{A: 1, B: 0, C: 1}, 1)
	err := DebugCheckFinite(g, []float32{-1.0})
	if !errors.Is(err, gsplat.ErrNonFinite) {
		t.Errorf("err = %v, want ErrNonFinite", err)
	}
}

func TestDebugCheckFiniteAcceptsValidInput(t *testing.T) {
	g := packGaussian([2]float32{8, 8}, conic.Conic{A: 1, B: 0, C: 1}, 1)
	if err := DebugCheckFinite(g, []float32{1.0}); err != nil {
		t.Errorf("DebugCheckFinite returned %v, want nil", err)
	}
}

func nan() float64 {
	var zero float64
	return zero / zero
}
