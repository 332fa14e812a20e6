package ops

import (
	"fmt"

	"github.com/born-ml/nnue/internal/kernels"
)

// SplatMulMatrixVector computes y_b = A·x_b for every sample b. A is m×n
// row-major, x is batch×n and y is batch×m.
func (h *Handle) SplatMulMatrixVector(m, n int, a, x, y []float32, batchSize int) {
	op := kernels.SplatMulMatrixVector
	h.expect(op, "a", len(a), m*n)
	h.expect(op, "x", len(x), batchSize*n)
	h.expect(op, "y", len(y), batchSize*m)

	p := kernels.Params{M: uint32(m), N: uint32(n), BatchSize: uint32(batchSize)}
	h.run(op, p, input(a[:m*n]), input(x[:batchSize*n]), output(y[:batchSize*m]))
}

// SplatMulMatrixTVector computes x_b = Aᵀ·y_b for every sample b. A is m×n,
// y is batch×m and x is batch×n.
func (h *Handle) SplatMulMatrixTVector(m, n int, a, y, x []float32, batchSize int) {
	op := kernels.SplatMulMatrixTVector
	h.expect(op, "a", len(a), m*n)
	h.expect(op, "y", len(y), batchSize*m)
	h.expect(op, "x", len(x), batchSize*n)

	p := kernels.Params{M: uint32(m), N: uint32(n), BatchSize: uint32(batchSize)}
	h.run(op, p, input(a[:m*n]), input(y[:batchSize*m]), output(x[:batchSize*n]))
}

// ReduceAddMulVectorVectorT accumulates A += Σ_b y_b·x_bᵀ, the weight
// gradient of a dense layer. y is batch×m, x is batch×n and A is m×n.
func (h *Handle) ReduceAddMulVectorVectorT(m, n int, y, x, a []float32, batchSize int) {
	op := kernels.ReduceAddMulVectorVectorT
	h.expect(op, "y", len(y), batchSize*m)
	h.expect(op, "x", len(x), batchSize*n)
	h.expect(op, "a", len(a), m*n)

	p := kernels.Params{M: uint32(m), N: uint32(n), BatchSize: uint32(batchSize)}
	h.run(op, p, input(y[:batchSize*m]), input(x[:batchSize*n]), inout(a[:m*n]))
}

// ReduceAdd sums batchSize vectors of outSize elements into out. ones is the
// all-ones vector of a GEMV formulation; the kernel does not need it and it
// may be nil.
func (h *Handle) ReduceAdd(ones []float32, batchSize, outSize int, inp, out []float32) {
	op := kernels.ReduceAdd
	if ones != nil {
		h.expect(op, "ones", len(ones), batchSize)
	}
	h.expect(op, "inp", len(inp), batchSize*outSize)
	h.expect(op, "out", len(out), outSize)

	p := kernels.Params{BatchSize: uint32(batchSize), OutputSize: uint32(outSize)}
	h.run(op, p, input(inp[:batchSize*outSize]), output(out[:outSize]))
}

// SplatAdd adds inp (tensorSize elements) to each of the batchSize slots of out.
func (h *Handle) SplatAdd(batchSize, tensorSize int, inp, out []float32) {
	op := kernels.SplatAdd
	h.expect(op, "inp", len(inp), tensorSize)
	h.expect(op, "out", len(out), batchSize*tensorSize)

	p := kernels.Params{BatchSize: uint32(batchSize), Size: uint32(tensorSize)}
	h.run(op, p, input(inp[:tensorSize]), inout(out[:batchSize*tensorSize]))
}

// Select copies, for each sample, the outputSize-wide group chosen by its
// bucket out of the inputSize-wide row of inp.
func (h *Handle) Select(batchSize, inputSize, outputSize int, bucketIdx []uint8, inp, out []float32) {
	op := kernels.Select
	h.expectBuckets(op, batchSize, inputSize, outputSize, bucketIdx)
	h.expect(op, "inp", len(inp), batchSize*inputSize)
	h.expect(op, "out", len(out), batchSize*outputSize)

	p := kernels.Params{BatchSize: uint32(batchSize), InputSize: uint32(inputSize), OutputSize: uint32(outputSize)}
	h.run(op, p, buckets(bucketIdx[:batchSize]), input(inp[:batchSize*inputSize]), output(out[:batchSize*outputSize]))
}

// SelectBackprop scatters the outputSize-wide gradient of each sample in inp
// into its bucket's position of out and zeroes the rest of out.
func (h *Handle) SelectBackprop(batchSize, inputSize, outputSize int, bucketIdx []uint8, inp, out []float32) {
	op := kernels.SelectBackprop
	h.expectBuckets(op, batchSize, inputSize, outputSize, bucketIdx)
	h.expect(op, "inp", len(inp), batchSize*outputSize)
	h.expect(op, "out", len(out), batchSize*inputSize)

	p := kernels.Params{BatchSize: uint32(batchSize), InputSize: uint32(inputSize), OutputSize: uint32(outputSize)}
	h.run(op, p, buckets(bucketIdx[:batchSize]), input(inp[:batchSize*outputSize]), output(out[:batchSize*inputSize]))
}

func (h *Handle) expectBuckets(op kernels.Op, batchSize, inputSize, outputSize int, bucketIdx []uint8) {
	h.expect(op, "buckets", len(bucketIdx), batchSize)
	if !h.cfg.Debug {
		return
	}
	for b, bucket := range bucketIdx[:batchSize] {
		if end := (int(bucket) + 1) * outputSize; end > inputSize {
			panic(fmt.Sprintf("ops: %s: sample %d bucket %d ends at %d, past input size %d", op, b, bucket, end, inputSize))
		}
	}
}
