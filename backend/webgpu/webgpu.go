// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU compute device.
//
// Every catalog kernel is compiled to a WGSL compute pipeline when the device
// opens. The device is built on Windows; on other platforms Open reports
// ops.ErrUnavailable.
//
// Example:
//
//	import (
//	    "github.com/born-ml/nnue/backend/cpu"
//	    "github.com/born-ml/nnue/backend/webgpu"
//	    "github.com/born-ml/nnue/ops"
//	)
//
//	func main() {
//	    var dev ops.Device = cpu.New(cpu.Config{})
//	    if gpu, err := webgpu.Open(); err == nil {
//	        dev = gpu
//	    }
//	    h := ops.MustNew(dev, ops.Config{})
//	    defer h.Close()
//	}
package webgpu

import (
	internalwebgpu "github.com/born-ml/nnue/internal/backend/webgpu"
	"github.com/born-ml/nnue/ops"
)

// Open creates a new WebGPU device and compiles the kernel library.
//
// Call Release (or ops.Handle.Close) when done to free GPU resources.
// Returns an error if WebGPU initialization fails (e.g., no compatible GPU).
func Open() (ops.Device, error) {
	return internalwebgpu.Open()
}

// IsAvailable checks if WebGPU is available on the current system.
//
// This function attempts to initialize a WebGPU adapter to verify
// that a compatible GPU and drivers are present. It's useful for
// graceful fallback to the CPU device when GPU is not available.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
