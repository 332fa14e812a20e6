// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package loader provides the sparse input layout consumed by the feature
// transformer kernels.
//
// Example usage:
//
//	import "github.com/born-ml/nnue/loader"
//
//	batch := loader.NewBatch(batchSize, 32)
//	for i, pos := range positions {
//	    if err := batch.SetSample(i, pos.Features(), pos.Bucket()); err != nil {
//	        return err
//	    }
//	}
//	h.SparseAffineForward(batch.Size, batch.MaxActive, hidden, w, b, batch.Inputs, acc)
package loader

import (
	internalloader "github.com/born-ml/nnue/internal/loader"
)

// Sentinel terminates a sample's feature list.
const Sentinel = internalloader.Sentinel

// Feat is one active feature from both perspectives.
type Feat = internalloader.Feat

// Batch holds fixed-width, terminated feature lists and output buckets.
type Batch = internalloader.Batch

// End is the terminating Feat.
var End = internalloader.End

// NewBatch allocates a batch whose feature lists are all empty.
func NewBatch(size, maxActive int) *Batch {
	return internalloader.NewBatch(size, maxActive)
}
