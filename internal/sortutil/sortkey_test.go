package sortutil

import "testing"

func TestEncodeKeyOrdersbyTileThenDepth(t *testing.T) {
	k1 := EncodeKey(1, 0.5)
	k2 := EncodeKey(1, 1.5)
	k3 := EncodeKey(2, 0.0)

	if !(k1 < k2) {
		t.Errorf("same tile, smaller depth should sort first: k1=%x k2=%x", k1, k2)
	}
	if !(k2 < k3) {
		t.Errorf("smaller tile_id should sort first regardless of depth: k2=%x k3=%x", k2, k3)
	}
}

func TestTileIDOfRoundTrips(t *testing.T) {
	for _, tile := range []uint32{0, 1, 42, 1 << 20} {
		k := EncodeKey(tile, 3.14)
		if got := TileIDOf(k); got != tile {
			t.Errorf("TileIDOf(EncodeKey(%d, _)) = %d", tile, got)
		}
	}
}

func TestSortOverlapsSortsParallelArrays(t *testing.T) {
	keys := []uint64{
		EncodeKey(2, 0.0),
		EncodeKey(0, 5.0),
		EncodeKey(1, 1.0),
		EncodeKey(0, 1.0),
	}
	points := []int32{30, 10, 20, 11}

	SortOverlaps(keys, points)

	for i := 1; i < len(keys); i++ {
		if keys[i-1] > keys[i] {
			t.Fatalf("keys not sorted at %d: %v", i, keys)
		}
	}

	// tile 0 entries (depth 1.0 then 5.0) must carry points 11 then 10.
	wantTile0 := []int32{11, 10}
	var gotTile0 []int32
	for i, k := range keys {
		if TileIDOf(k) == 0 {
			gotTile0 = append(gotTile0, points[i])
		}
	}
	if len(gotTile0) != 2 || gotTile0[0] != wantTile0[0] || gotTile0[1] != wantTile0[1] {
		t.Errorf("tile 0 points = %v, want %v", gotTile0, wantTile0)
	}
}
