// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package ops provides the kernel dispatch layer for training a sparse-input
// (NNUE) network.
//
// A Handle owns one compute device and the catalog of kernels resolved from
// its library. Every operation stages the caller's slices into fresh device
// buffers, dispatches one kernel, waits for it and copies the results back
// into the caller's slices. Nothing is retained between calls.
//
// # Operations
//
//   - Activations: ActivateReLU, ActivateCReLU, ActivateSCReLU and their
//     Backprop counterparts, plus AddTo
//   - Feature transformer: SparseAffineForward/Backward (two perspectives) and
//     SingleSparseAffineForward/Backward
//   - Dense layers: SplatMulMatrixVector, SplatMulMatrixTVector,
//     ReduceAddMulVectorVectorT, ReduceAdd, SplatAdd
//   - Output buckets: Select, SelectBackprop
//   - Loss and optimizer: SigmoidMPE, UpdateWeights, Step
//
// # Errors
//
// Opening a Handle returns an error when any kernel is missing. A device
// failure during an operation is fatal and panics. With Config.Debug every
// slice length is checked against the declared sizes.
//
// # Example
//
//	h, err := ops.New(cpu.New(cpu.Config{}), ops.Config{Debug: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Close()
//
//	h.SparseAffineForward(batch, maxActive, hidden, ftWeights, ftBiases, inputs, acc)
//	h.ActivateCReLU(len(acc), acc, act)
package ops
