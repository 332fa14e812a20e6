// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/nnue/internal/backend/cpu"
	"github.com/born-ml/nnue/ops"
)

// Device represents the CPU compute device.
//
// The CPU device runs every catalog kernel as Go code, splitting each
// dispatch's invocation range across a pool of goroutines.
type Device = internalcpu.Device

// Config configures the CPU device.
type Config = internalcpu.Config

// Compile-time check that Device implements ops.Device.
var _ ops.Device = (*Device)(nil)

// New creates a new CPU device.
//
// Example:
//
//	import (
//	    "github.com/born-ml/nnue/backend/cpu"
//	    "github.com/born-ml/nnue/ops"
//	)
//
//	func main() {
//	    h := ops.MustNew(cpu.New(cpu.Config{}), ops.Config{})
//	    defer h.Close()
//	}
func New(cfg Config) *Device {
	return internalcpu.New(cfg)
}
