package parallel

import (
	"runtime"
	"sync/atomic"
	"testing"
)

func TestWorkerPoolCreate(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
}

func TestWorkerPoolZeroWorkersUsesGOMAXPROCS(t *testing.T) {
	pool := NewWorkerPool(0)
	defer pool.Close()

	want := runtime.GOMAXPROCS(0)
	if pool.Workers() != want {
		t.Errorf("Workers() = %d, want %d (GOMAXPROCS)", pool.Workers(), want)
	}
}

func TestWorkerPoolDispatchTilesRunsEveryTile(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	const numTiles = 200
	var counter atomic.Int64

	pool.DispatchTiles(numTiles, func(tileID int) {
		counter.Add(1)
	})

	if got := counter.Load(); got != numTiles {
		t.Errorf("counter = %d, want %d", got, numTiles)
	}
}

func TestWorkerPoolDispatchTilesClosedIsNoop(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()

	var counter atomic.Int64
	pool.DispatchTiles(10, func(tileID int) { counter.Add(1) })

	if got := counter.Load(); got != 0 {
		t.Errorf("counter = %d, want 0 (pool closed)", got)
	}
}

func TestWorkerPoolCloseIsIdempotent(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()
	pool.Close() // must not panic or block
}

func TestDispatchTilesSequentialFallback(t *testing.T) {
	var seen []int
	DispatchTiles(nil, 5, func(tileID int) {
		seen = append(seen, tileID)
	})
	if len(seen) != 5 {
		t.Fatalf("len(seen) = %d, want 5", len(seen))
	}
}

func TestDispatchTilesPooledCoversAllTiles(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	const numTiles = 37
	var hit [numTiles]atomic.Bool
	DispatchTiles(pool, numTiles, func(tileID int) {
		hit[tileID].Store(true)
	})

	for i := range hit {
		if !hit[i].Load() {
			t.Errorf("tile %d was never dispatched", i)
		}
	}
}

func TestDispatchTilesZeroIsNoop(t *testing.T) {
	DispatchTiles(nil, 0, func(int) {
		t.Fatal("fn should not be called for zero tiles")
	})
}
