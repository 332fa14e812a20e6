// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ops

import (
	"github.com/born-ml/nnue/internal/device"
	"github.com/born-ml/nnue/internal/kernels"
	internalops "github.com/born-ml/nnue/internal/ops"
)

// Device is a compute device with a compiled kernel library.
type Device = device.Device

// Device errors.
var (
	// ErrReleased is returned when a released device or buffer is used.
	ErrReleased = device.ErrReleased

	// ErrUnavailable is returned when a backend cannot run on this system.
	ErrUnavailable = device.ErrUnavailable
)

// Handle owns a device and its resolved kernel catalog.
type Handle = internalops.Handle

// Config holds the numeric conventions of a Handle.
type Config = internalops.Config

// DecayOrder selects when weight decay is applied relative to the Adam step.
type DecayOrder = internalops.DecayOrder

// Decay orders.
const (
	DecayBeforeStep = internalops.DecayBeforeStep
	DecayAfterStep  = internalops.DecayAfterStep
)

// Default numeric conventions.
const (
	DefaultBeta1     = internalops.DefaultBeta1
	DefaultBeta2     = internalops.DefaultBeta2
	DefaultEpsilon   = internalops.DefaultEpsilon
	DefaultMaxWeight = internalops.DefaultMaxWeight
)

// AdamState is a parameter vector together with its optimizer moments.
type AdamState = internalops.AdamState

// ResolveError lists every kernel a device library failed to provide.
type ResolveError = kernels.ResolveError

// New opens a Handle on dev, resolving every kernel of the catalog.
//
// Example:
//
//	h, err := ops.New(cpu.New(cpu.Config{}), ops.Config{DecayOrder: ops.DecayAfterStep})
//	if err != nil {
//	    var rerr *ops.ResolveError
//	    if errors.As(err, &rerr) {
//	        log.Fatalf("missing kernels: %v", rerr.Missing)
//	    }
//	    log.Fatal(err)
//	}
//	defer h.Close()
func New(dev Device, cfg Config) (*Handle, error) {
	return internalops.New(dev, cfg)
}

// MustNew is like New but panics if the catalog cannot be resolved.
func MustNew(dev Device, cfg Config) *Handle {
	return internalops.MustNew(dev, cfg)
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	return internalops.LoadConfig(path)
}

// NewAdamState wraps network with zeroed moments.
func NewAdamState(network []float32) *AdamState {
	return internalops.NewAdamState(network)
}

// Loss sums per-element errors written by Handle.SigmoidMPE.
func Loss(errors []float32) float64 {
	return internalops.Loss(errors)
}

// Kernels returns the library name of every catalog kernel in index order.
func Kernels() []string {
	all := kernels.Ops()
	names := make([]string, len(all))
	for i, op := range all {
		names[i] = op.String()
	}
	return names
}
