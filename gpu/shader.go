// Copyright 2026 The taichi-splatting Authors
// SPDX-License-Identifier: MIT

// Package gpu is an optional WebGPU compute backend for the rasterizer.
// It compiles the tiling/forward/backward WGSL kernels and builds their
// bind group layouts and pipelines, so the binding contract is validated
// against a real device, but it does not yet wire Gaussian-splatting
// dispatch end to end (see Accelerator). Callers that never import this
// package never pull in its hal/naga/gputypes dependencies.
package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// compileShaderToSPIRV compiles WGSL source to a SPIR-V word stream.
// Adapted from the shader-compile helper shared by this module's
// teacher's GPU rasterizers: naga.Compile produces little-endian bytes,
// which SPIR-V consumes as 32-bit words.
func compileShaderToSPIRV(wgslSource string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("gpu: failed to compile shader: %w", err)
	}
	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return spirvCode, nil
}

// createShaderModule creates a HAL shader module from SPIR-V code.
func createShaderModule(device hal.Device, label string, spirvCode []uint32) (hal.ShaderModule, error) {
	return device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: label,
		Source: hal.ShaderSource{
			SPIRV: spirvCode,
		},
	})
}

// uniformEntry and storageEntry build the one repeated shape of bind
// group layout entry this module's kernels need: a single compute-stage
// buffer binding, either a read-only uniform config struct or a
// storage buffer (read-only or read_write per the WGSL source).
func uniformEntry(binding uint32, minSize uint64) gputypes.BindGroupLayoutEntry {
	return gputypes.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: gputypes.ShaderStageCompute,
		Buffer: &gputypes.BufferBindingLayout{
			Type:           gputypes.BufferBindingTypeUniform,
			MinBindingSize: minSize,
		},
	}
}

func storageEntry(binding uint32, readOnly bool) gputypes.BindGroupLayoutEntry {
	t := gputypes.BufferBindingTypeStorage
	if readOnly {
		t = gputypes.BufferBindingTypeReadOnlyStorage
	}
	return gputypes.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: gputypes.ShaderStageCompute,
		Buffer:     &gputypes.BufferBindingLayout{Type: t},
	}
}

// createBindGroupLayouts creates one hal.BindGroupLayout per entry group,
// in group order, destroying any already-created layouts if a later one
// fails so the caller never has to track partial success itself.
func createBindGroupLayouts(device hal.Device, label string, groups [][]gputypes.BindGroupLayoutEntry) ([]hal.BindGroupLayout, error) {
	layouts := make([]hal.BindGroupLayout, 0, len(groups))
	for i, entries := range groups {
		l, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s_group%d_layout", label, i),
			Entries: entries,
		})
		if err != nil {
			for _, created := range layouts {
				device.DestroyBindGroupLayout(created)
			}
			return nil, fmt.Errorf("gpu: %s: failed to create bind group layout %d: %w", label, i, err)
		}
		layouts = append(layouts, l)
	}
	return layouts, nil
}

// createComputePipeline links a compiled shader module, its bind group
// layouts, and an entry point into a dispatchable compute pipeline.
func createComputePipeline(device hal.Device, label string, bindLayouts []hal.BindGroupLayout, module hal.ShaderModule, entryPoint string) (hal.PipelineLayout, hal.ComputePipeline, error) {
	layout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_pipeline_layout",
		BindGroupLayouts: bindLayouts,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("gpu: %s: failed to create pipeline layout: %w", label, err)
	}

	pipeline, err := device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  label + "_pipeline",
		Layout: layout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: entryPoint,
		},
	})
	if err != nil {
		device.DestroyPipelineLayout(layout)
		return nil, nil, fmt.Errorf("gpu: %s: failed to create compute pipeline: %w", label, err)
	}

	return layout, pipeline, nil
}

// pipelineResources bundles the GPU objects one compiled kernel owns, so
// Close can release them in the right order regardless of which kernels
// were successfully built.
type pipelineResources struct {
	shaderModule hal.ShaderModule
	bindLayouts  []hal.BindGroupLayout
	layout       hal.PipelineLayout
	pipeline     hal.ComputePipeline
}

func (r *pipelineResources) destroy(device hal.Device) {
	if device == nil {
		return
	}
	if r.pipeline != nil {
		device.DestroyComputePipeline(r.pipeline)
	}
	if r.layout != nil {
		device.DestroyPipelineLayout(r.layout)
	}
	for _, l := range r.bindLayouts {
		if l != nil {
			device.DestroyBindGroupLayout(l)
		}
	}
	if r.shaderModule != nil {
		device.DestroyShaderModule(r.shaderModule)
	}
}
