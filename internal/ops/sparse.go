package ops

import (
	"fmt"

	"github.com/born-ml/nnue/internal/kernels"
	"github.com/born-ml/nnue/internal/loader"
)

// SparseAffineForward computes both perspectives of the feature transformer:
// outputs[b] = [biases + Σ W[our], biases + Σ W[opp]] over the active features
// of sample b. weights is inputSize×outputSize, outputs batch×2·outputSize.
func (h *Handle) SparseAffineForward(batchSize, maxActive, outputSize int, weights, biases []float32, inputs []loader.Feat, outputs []float32) {
	h.sparseForward(kernels.SparseAffineForward, batchSize, maxActive, outputSize, weights, biases, inputs, outputs)
}

// SingleSparseAffineForward is SparseAffineForward for a single perspective:
// only Feat.Our is read and outputs is batch×outputSize.
func (h *Handle) SingleSparseAffineForward(batchSize, maxActive, outputSize int, weights, biases []float32, inputs []loader.Feat, outputs []float32) {
	h.sparseForward(kernels.SingleSparseAffineForward, batchSize, maxActive, outputSize, weights, biases, inputs, outputs)
}

// SparseAffineBackward accumulates the gradients of SparseAffineForward into
// weightsGrad and biasesGrad. The error of every output element is
// errors + ftReg·output, an L2 penalty on the accumulator activations.
func (h *Handle) SparseAffineBackward(batchSize, maxActive, inputSize, outputSize int, weightsGrad, biasesGrad []float32, inputs []loader.Feat, errors, output []float32, ftReg float32) {
	h.sparseBackward(kernels.SparseAffineBackward, batchSize, maxActive, inputSize, outputSize, weightsGrad, biasesGrad, inputs, errors, output, ftReg)
}

// SingleSparseAffineBackward is SparseAffineBackward for a single perspective.
func (h *Handle) SingleSparseAffineBackward(batchSize, maxActive, inputSize, outputSize int, weightsGrad, biasesGrad []float32, inputs []loader.Feat, errors, output []float32, ftReg float32) {
	h.sparseBackward(kernels.SingleSparseAffineBackward, batchSize, maxActive, inputSize, outputSize, weightsGrad, biasesGrad, inputs, errors, output, ftReg)
}

func (h *Handle) sparseForward(op kernels.Op, batchSize, maxActive, outputSize int, weights, biases []float32, inputs []loader.Feat, outputs []float32) {
	width := kernels.Perspectives(op) * outputSize
	if h.cfg.Debug && outputSize > 0 && len(weights)%outputSize != 0 {
		panic(fmt.Sprintf("ops: %s: weights length %d is not a multiple of output size %d", op, len(weights), outputSize))
	}
	h.expect(op, "biases", len(biases), outputSize)
	h.expect(op, "inputs", len(inputs), batchSize*maxActive)
	h.expect(op, "outputs", len(outputs), batchSize*width)
	h.checkFeatures(op, batchSize, maxActive, inputs, len(weights), outputSize)

	p := kernels.Params{
		BatchSize:  uint32(batchSize),
		MaxActive:  uint32(maxActive),
		OutputSize: uint32(outputSize),
	}
	h.run(op, p,
		input(weights),
		input(biases[:outputSize]),
		feats(inputs[:batchSize*maxActive]),
		output(outputs[:batchSize*width]),
	)
}

func (h *Handle) sparseBackward(op kernels.Op, batchSize, maxActive, inputSize, outputSize int, weightsGrad, biasesGrad []float32, inputs []loader.Feat, errors, output []float32, ftReg float32) {
	width := kernels.Perspectives(op) * outputSize
	h.expect(op, "weightsGrad", len(weightsGrad), inputSize*outputSize)
	h.expect(op, "biasesGrad", len(biasesGrad), outputSize)
	h.expect(op, "inputs", len(inputs), batchSize*maxActive)
	h.expect(op, "errors", len(errors), batchSize*width)
	h.expect(op, "output", len(output), batchSize*width)
	h.checkFeatures(op, batchSize, maxActive, inputs, inputSize*outputSize, outputSize)

	p := kernels.Params{
		BatchSize:  uint32(batchSize),
		MaxActive:  uint32(maxActive),
		InputSize:  uint32(inputSize),
		OutputSize: uint32(outputSize),
		FTReg:      ftReg,
	}
	h.run(op, p,
		inout(weightsGrad[:inputSize*outputSize]),
		inout(biasesGrad[:outputSize]),
		feats(inputs[:batchSize*maxActive]),
		input(errors[:batchSize*width]),
		input(output[:batchSize*width]),
	)
}

// checkFeatures panics in debug mode when an active feature indexes past the
// weight matrix. Entries after a sample's terminator are not inspected.
func (h *Handle) checkFeatures(op kernels.Op, batchSize, maxActive int, inputs []loader.Feat, weightLen, outputSize int) {
	if !h.cfg.Debug || outputSize == 0 {
		return
	}
	rows := weightLen / outputSize
	dual := kernels.Perspectives(op) == 2
	for b := 0; b < batchSize; b++ {
		for i, f := range inputs[b*maxActive : (b+1)*maxActive] {
			if f.IsEnd() {
				break
			}
			if int(f.Our) >= rows || (dual && int(f.Opp) >= rows) {
				panic(fmt.Sprintf("ops: %s: sample %d input %d (%d, %d) exceeds %d weight rows", op, b, i, f.Our, f.Opp, rows))
			}
		}
	}
}
