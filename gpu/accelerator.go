// Copyright 2026 The taichi-splatting Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	gsplat "github.com/pooncs/taichi-splatting"
)

//go:embed shaders/tiling.wgsl
var tilingShaderWGSL string

//go:embed shaders/forward.wgsl
var forwardShaderWGSL string

//go:embed shaders/backward.wgsl
var backwardShaderWGSL string

// Accelerator is a WebGPU compute backend implementing
// gsplat.GPUAccelerator. On Init it compiles the tiling, forward, and
// backward WGSL kernels, builds their bind group layouts (matching each
// kernel's @group/@binding declarations exactly, see the entry tables
// below), and links each one into a compute pipeline against a device.
// This validates the full binding contract against the supplied device,
// but CanAccelerate still reports none of them as dispatchable: encoding
// the bind groups themselves requires caller-supplied GPU buffers for
// points/features/overlaps/images that this package has no allocation
// strategy for yet, and the backward kernel additionally needs naga's
// SPIR-V backend to support storage-buffer atomics. See DESIGN.md for
// the tracking rationale. Every rasterizer call therefore still runs on
// the package raster / package tiling CPU path; registering this
// accelerator has no behavioral effect beyond validating the shaders and
// their pipelines build against the supplied device.
type Accelerator struct {
	mu sync.Mutex

	device hal.Device
	queue  hal.Queue
	owned  bool

	tiling   pipelineResources
	forward  pipelineResources
	backward pipelineResources

	initialized bool
}

// New creates an Accelerator. WithDevice/WithQueue must both be supplied
// since this module has no window-surface path of its own to create a
// device from (unlike the teacher's gg package, this library is
// compute-only and never owns a swapchain).
func New(opts ...Option) (*Accelerator, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.device == nil || o.queue == nil {
		return nil, fmt.Errorf("gpu: WithDevice and WithQueue are required")
	}
	return &Accelerator{device: o.device, queue: o.queue}, nil
}

// Name implements gsplat.GPUAccelerator.
func (a *Accelerator) Name() string { return "wgpu" }

// tilingBindGroups mirrors shaders/tiling.wgsl's @group/@binding layout:
// group 0 is the read-only scene (uniform Globals, points, depths),
// group 1 is the read_write per-Gaussian bounds/count scratch.
func tilingBindGroups() [][]gputypes.BindGroupLayoutEntry {
	return [][]gputypes.BindGroupLayoutEntry{
		{
			uniformEntry(0, 16), // Globals: tile_size, tiles_wide, tiles_high, point_count
			storageEntry(1, true),
			storageEntry(2, true),
		},
		{
			storageEntry(0, false),
			storageEntry(1, false),
		},
	}
}

// forwardBindGroups mirrors shaders/forward.wgsl: group 0 is the
// read-only scene (uniform RasterConfig, points, features), group 1 is
// the read-only sorted overlap structures plus the read_write image
// outputs.
func forwardBindGroups() [][]gputypes.BindGroupLayoutEntry {
	return [][]gputypes.BindGroupLayoutEntry{
		{
			uniformEntry(0, 16), // RasterConfig: tile_size, alpha_threshold, clamp_max_alpha, saturate_threshold
			storageEntry(1, true),
			storageEntry(2, true),
		},
		{
			storageEntry(0, true),
			storageEntry(1, true),
			storageEntry(2, false),
			storageEntry(3, false),
			storageEntry(4, false),
		},
	}
}

// backwardBindGroups mirrors shaders/backward.wgsl: group 0 and group 1
// are the same read-only scene/forward-output shape as forward (plus
// grad_image_feature), group 2 is the atomic read_write gradient
// accumulators.
func backwardBindGroups() [][]gputypes.BindGroupLayoutEntry {
	return [][]gputypes.BindGroupLayoutEntry{
		{
			uniformEntry(0, 16), // RasterConfig
			storageEntry(1, true),
			storageEntry(2, true),
		},
		{
			storageEntry(0, true),
			storageEntry(1, true),
			storageEntry(2, true),
			storageEntry(3, true),
			storageEntry(4, true),
		},
		{
			storageEntry(0, false),
			storageEntry(1, false),
		},
	}
}

// Init compiles, builds bind group layouts for, and links the three
// kernels into compute pipelines. Implements gsplat.GPUAccelerator.
func (a *Accelerator) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.initialized {
		return nil
	}

	builds := []struct {
		label      string
		source     string
		entryPoint string
		bindGroups [][]gputypes.BindGroupLayoutEntry
		target     *pipelineResources
	}{
		{"gsplat_tiling", tilingShaderWGSL, "cs_bounds", tilingBindGroups(), &a.tiling},
		{"gsplat_forward", forwardShaderWGSL, "cs_forward", forwardBindGroups(), &a.forward},
		{"gsplat_backward", backwardShaderWGSL, "cs_backward", backwardBindGroups(), &a.backward},
	}

	for _, b := range builds {
		spirv, err := compileShaderToSPIRV(b.source)
		if err != nil {
			a.destroyLocked()
			return fmt.Errorf("gpu: %s: %w", b.label, err)
		}
		module, err := createShaderModule(a.device, b.label, spirv)
		if err != nil {
			a.destroyLocked()
			return fmt.Errorf("gpu: %s: failed to create shader module: %w", b.label, err)
		}
		b.target.shaderModule = module

		bindLayouts, err := createBindGroupLayouts(a.device, b.label, b.bindGroups)
		if err != nil {
			a.destroyLocked()
			return err
		}
		b.target.bindLayouts = bindLayouts

		layout, pipeline, err := createComputePipeline(a.device, b.label, bindLayouts, module, b.entryPoint)
		if err != nil {
			a.destroyLocked()
			return err
		}
		b.target.layout = layout
		b.target.pipeline = pipeline
	}

	a.initialized = true
	return nil
}

// Close releases all GPU resources. Implements gsplat.GPUAccelerator.
func (a *Accelerator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.destroyLocked()
}

func (a *Accelerator) destroyLocked() {
	a.tiling.destroy(a.device)
	a.forward.destroy(a.device)
	a.backward.destroy(a.device)
	a.tiling = pipelineResources{}
	a.forward = pipelineResources{}
	a.backward = pipelineResources{}
	a.initialized = false
}

// CanAccelerate implements gsplat.GPUAccelerator. It always reports false
// today: see the Accelerator doc comment for why dispatch isn't wired.
func (a *Accelerator) CanAccelerate(op gsplat.AcceleratedOp) bool {
	return false
}
