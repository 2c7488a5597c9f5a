// Copyright 2026 The taichi-splatting Authors
// SPDX-License-Identifier: MIT

// Package sortutil packs (tile_id, depth) overlap sort keys into the
// rasterizer's normative 64-bit binary layout and sorts the resulting
// parallel key/index arrays in place — the single global sort step
// between tile-mapper passes B and C.
package sortutil

import (
	"math"
	"sort"
)

// EncodeKey packs a tile_id and a depth value into the rasterizer's
// normative 64-bit sort key: the high 32 bits hold tile_id, the low 32
// bits hold the bit pattern of depth. Integer comparison of the result
// orders keys first by tile_id, then by depth, provided depth is
// non-negative and finite (its IEEE-754 bit pattern then compares the
// same as its value).
func EncodeKey(tileID uint32, depth float32) uint64 {
	return uint64(tileID)<<32 | uint64(math.Float32bits(depth))
}

// TileIDOf extracts the tile_id (high 32 bits) from a packed sort key.
func TileIDOf(key uint64) uint32 {
	return uint32(key >> 32)
}

// SortOverlaps sorts the parallel (keys, overlapToPoint) arrays in place
// by ascending key. Ties — identical tile_id and depth bit pattern — may
// land in either relative order; the sort is not required to be stable.
func SortOverlaps(keys []uint64, overlapToPoint []int32) {
	sort.Sort(overlapPairs{keys: keys, points: overlapToPoint})
}

// overlapPairs adapts the parallel (keys, points) arrays to sort.Interface
// so a single sort.Sort call permutes both slices in lockstep.
type overlapPairs struct {
	keys   []uint64
	points []int32
}

func (p overlapPairs) Len() int           { return len(p.keys) }
func (p overlapPairs) Less(i, j int) bool { return p.keys[i] < p.keys[j] }
func (p overlapPairs) Swap(i, j int) {
	p.keys[i], p.keys[j] = p.keys[j], p.keys[i]
	p.points[i], p.points[j] = p.points[j], p.points[i]
}
