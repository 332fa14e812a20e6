//go:build !windows

// Package webgpu implements a compute device on WebGPU. This platform has no
// WebGPU build; Open always fails.
package webgpu

import (
	"fmt"

	"github.com/born-ml/nnue/internal/device"
)

// Open reports that the WebGPU device is not built for this platform.
func Open() (device.Device, error) {
	return nil, fmt.Errorf("webgpu: not built for this platform: %w", device.ErrUnavailable)
}

// IsAvailable reports false on platforms without a WebGPU build.
func IsAvailable() bool {
	return false
}
