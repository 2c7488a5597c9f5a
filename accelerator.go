package gsplat

import "sync"

// AcceleratedOp names a rasterizer stage a GPUAccelerator may offer to
// run on the GPU instead of the CPU goroutine path.
type AcceleratedOp uint32

const (
	// AccelTileMap covers tiling.MapToTiles.
	AccelTileMap AcceleratedOp = 1 << iota
	// AccelForward covers raster.Forward.
	AccelForward
	// AccelBackward covers raster.Backward.
	AccelBackward
)

// GPUAccelerator is an optional GPU compute backend for the rasterizer.
//
// The interface covers registration, resource lifetime and a capability
// query per op; it has no method that runs an op. Packages raster and
// tiling do not consult the registered accelerator and always run on the
// CPU.
//
// Implementations live in backend packages (e.g. this module's gpu/
// package) so the root module never imports a GPU API directly.
type GPUAccelerator interface {
	// Name identifies the backend, e.g. "wgpu".
	Name() string

	// Init acquires GPU resources (device, pipelines). Called once by
	// RegisterAccelerator.
	Init() error

	// Close releases GPU resources.
	Close()

	// CanAccelerate reports whether this backend currently supports op.
	CanAccelerate(op AcceleratedOp) bool
}

var (
	accelMu sync.RWMutex
	accel   GPUAccelerator
)

// RegisterAccelerator registers the GPU accelerator used by callers that
// opt into GPU dispatch. Only one accelerator may be registered at a
// time; a later call replaces and closes the previous one. If a.Init()
// fails, the accelerator is not registered and the error is returned.
func RegisterAccelerator(a GPUAccelerator) error {
	if a == nil {
		return ErrNilAccelerator
	}
	if err := a.Init(); err != nil {
		return err
	}
	accelMu.Lock()
	old := accel
	accel = a
	accelMu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

// Accelerator returns the currently registered GPU accelerator, or nil.
func Accelerator() GPUAccelerator {
	accelMu.RLock()
	defer accelMu.RUnlock()
	return accel
}

// CloseAccelerator releases the registered accelerator's GPU resources,
// if any, and clears the registration. Safe to call when none is
// registered.
func CloseAccelerator() {
	accelMu.Lock()
	a := accel
	accel = nil
	accelMu.Unlock()
	if a != nil {
		a.Close()
	}
}
