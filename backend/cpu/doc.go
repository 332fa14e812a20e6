// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go compute device for the training kernels.
//
// # Overview
//
// This package implements a device with:
//   - Pure Go implementation (no CGO)
//   - gonum BLAS for the dense GEMV and outer-product kernels
//   - One goroutine per invocation chunk, no shared writes between chunks
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/nnue/backend/cpu"
//	    "github.com/born-ml/nnue/ops"
//	)
//
//	func main() {
//	    h, err := ops.New(cpu.New(cpu.Config{Workers: 8}), ops.Config{})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer h.Close()
//
//	    h.ActivateCReLU(n, accumulators, activations)
//	}
//
// # Thread Safety
//
// A Device may be shared, but a dispatch is only safe while no other
// dispatch touches the same buffers. ops.Handle serialises its dispatches.
package cpu
