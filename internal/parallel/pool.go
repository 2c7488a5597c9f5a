// Copyright 2026 The taichi-splatting Authors
// SPDX-License-Identifier: MIT

// Package parallel is the CPU stand-in for the rasterizer's cooperative
// GPU thread block: one goroutine task per screen tile, each running the
// full per-tile compositing loop (forward or backward) independently of
// every other tile, exactly as the concurrency model in the spec
// requires ("across tiles: independent; no cross-tile synchronization").
//
// WorkerPool is a fixed-size pool of goroutines with per-worker tile
// queues and work stealing, so that a batch of tile dispatches (one per
// raster tile) balances across cores even when some tiles carry far
// more Gaussians than others.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// tileJob is one scheduled tile dispatch: its ID, the per-tile function
// DispatchTiles was called with, and the WaitGroup a worker signals on
// completion. Queueing this directly — rather than an opaque closure
// with the WaitGroup captured ad hoc — keeps the pool's queues and
// steal path expressed in terms of the tile each entry belongs to.
type tileJob struct {
	tileID int
	fn     func(tileID int)
	done   *sync.WaitGroup
}

func (j tileJob) run() {
	defer j.done.Done()
	j.fn(j.tileID)
}

// WorkerPool distributes per-tile rasterizer dispatches across
// goroutines.
//
// Each worker primarily pulls from its own tile queue but steals from
// others when idle, which matters here because tile workloads are
// uneven: a tile with few overlapping Gaussians finishes almost
// immediately while a densely covered tile keeps compositing for many
// groups.
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers    int
	tileQueues []chan tileJob
	done       chan struct{}
	wg         sync.WaitGroup
	running    atomic.Bool
	queueSize  int
}

// NewWorkerPool creates a worker pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used. The pool starts
// immediately.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := workers * 4
	if queueSize < 8 {
		queueSize = 8
	}

	p := &WorkerPool{
		workers:    workers,
		tileQueues: make([]chan tileJob, workers),
		done:       make(chan struct{}),
		queueSize:  queueSize,
	}

	for i := range workers {
		p.tileQueues[i] = make(chan tileJob, queueSize)
	}

	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}

	return p
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	myQueue := p.tileQueues[id]

	for {
		select {
		case <-p.done:
			p.drainQueue(myQueue)
			return

		case job := <-myQueue:
			job.run()

		default:
			if job, ok := p.steal(id); ok {
				job.run()
			} else {
				select {
				case <-p.done:
					p.drainQueue(myQueue)
					return
				case job := <-myQueue:
					job.run()
				}
			}
		}
	}
}

func (p *WorkerPool) drainQueue(queue chan tileJob) {
	for {
		select {
		case job := <-queue:
			job.run()
		default:
			return
		}
	}
}

// steal attempts to take one queued tile job from another worker's
// queue, trying each other worker once. ok is false if none has work
// available right now.
func (p *WorkerPool) steal(myID int) (job tileJob, ok bool) {
	for i := range p.workers {
		if i == myID {
			continue
		}
		select {
		case job = <-p.tileQueues[i]:
			return job, true
		default:
		}
	}
	return tileJob{}, false
}

// DispatchTiles runs fn(tileID) once for every tile in [0, numTiles),
// distributing the calls round-robin across workers, and blocks until
// every one has run. This is the forward/backward rasterizer's entry
// point into the pool: each call is one cooperative thread block's
// worth of work in the GPU model the spec describes. If the pool is
// closed, this is a no-op.
func (p *WorkerPool) DispatchTiles(numTiles int, fn func(tileID int)) {
	if numTiles <= 0 || !p.running.Load() {
		return
	}

	var completion sync.WaitGroup
	completion.Add(numTiles)

	for t := 0; t < numTiles; t++ {
		workerID := t % p.workers
		job := tileJob{tileID: t, fn: fn, done: &completion}

		select {
		case p.tileQueues[workerID] <- job:
		case <-p.done:
			completion.Done()
		}
	}

	completion.Wait()
}

// Close gracefully shuts down the pool: stops accepting new work, waits
// for queued work to finish, then stops all workers. Safe to call
// multiple times.
func (p *WorkerPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}
