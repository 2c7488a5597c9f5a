// Copyright 2026 The taichi-splatting Authors
// SPDX-License-Identifier: MIT

package gpu

import "github.com/gogpu/wgpu/hal"

// Option configures an Accelerator during construction.
type Option func(*accelOptions)

type accelOptions struct {
	device hal.Device
	queue  hal.Queue
}

func defaultOptions() accelOptions {
	return accelOptions{}
}

// WithDevice supplies the existing HAL device the accelerator builds its
// pipelines on. New requires it; the accelerator never creates a device
// of its own. The device may be shared with a window surface or another
// GPU consumer in the same process.
func WithDevice(device hal.Device) Option {
	return func(o *accelOptions) { o.device = device }
}

// WithQueue supplies the command queue associated with WithDevice's
// device. Required whenever WithDevice is used.
func WithQueue(queue hal.Queue) Option {
	return func(o *accelOptions) { o.queue = queue }
}
