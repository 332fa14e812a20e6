package cpu

import (
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/born-ml/nnue/internal/kernels"
	"github.com/born-ml/nnue/internal/loader"
)

// sparseAffineForward returns the forward kernel for the given number of
// perspectives. Buffers: weights, biases, inputs, outputs. Invocation
// b*outputSize+j computes column j of every perspective of sample b.
func sparseAffineForward(perspectives int) kernelFunc {
	return func(p *kernels.Params, bufs []*buffer, lo, hi int) {
		weights, biases := bufs[0].f32(), bufs[1].f32()
		inputs, outputs := bufs[2].u32(), bufs[3].f32()
		outSize := int(p.OutputSize)
		maxActive := int(p.MaxActive)
		stride := perspectives * outSize

		forRows(lo, hi, outSize, func(sample, c0, c1 int) {
			n := c1 - c0
			feats := inputs[sample*maxActive : (sample+1)*maxActive]
			for side := 0; side < perspectives; side++ {
				acc := outputs[sample*stride+side*outSize+c0 : sample*stride+side*outSize+c1]
				copy(acc, biases[c0:c1])
				dst := blas32.Vector{N: n, Inc: 1, Data: acc}
				for _, w := range feats {
					f := loader.FeatFromWord(w)
					if f.IsEnd() {
						break
					}
					idx := int(f.Our)
					if side == 1 {
						idx = int(f.Opp)
					}
					row := weights[idx*outSize+c0 : idx*outSize+c1]
					blas32.Axpy(1, blas32.Vector{N: n, Inc: 1, Data: row}, dst)
				}
			}
		})
	}
}

// sparseAffineBackward returns the backward kernel for the given number of
// perspectives. Buffers: weightsGrad, biasesGrad, inputs, errors, outputs.
// Invocation j owns column j of both gradients and walks the whole batch, so
// concurrent invocations never write the same address.
func sparseAffineBackward(perspectives int) kernelFunc {
	return func(p *kernels.Params, bufs []*buffer, lo, hi int) {
		weightsGrad, biasesGrad := bufs[0].f32(), bufs[1].f32()
		inputs, errors, outputs := bufs[2].u32(), bufs[3].f32(), bufs[4].f32()
		outSize := int(p.OutputSize)
		maxActive := int(p.MaxActive)
		batch := int(p.BatchSize)
		ftReg := p.FTReg
		stride := perspectives * outSize
		n := hi - lo

		grad := make([]float32, n)
		src := blas32.Vector{N: n, Inc: 1, Data: grad}
		for sample := 0; sample < batch; sample++ {
			feats := inputs[sample*maxActive : (sample+1)*maxActive]
			for side := 0; side < perspectives; side++ {
				base := sample*stride + side*outSize
				for j := lo; j < hi; j++ {
					e := errors[base+j] + ftReg*outputs[base+j]
					grad[j-lo] = e
					biasesGrad[j] += e
				}
				for _, w := range feats {
					f := loader.FeatFromWord(w)
					if f.IsEnd() {
						break
					}
					idx := int(f.Our)
					if side == 1 {
						idx = int(f.Opp)
					}
					row := weightsGrad[idx*outSize+lo : idx*outSize+hi]
					blas32.Axpy(1, src, blas32.Vector{N: n, Inc: 1, Data: row})
				}
			}
		}
	}
}
