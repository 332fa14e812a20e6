package ops

import "github.com/born-ml/nnue/internal/kernels"

// twoBuffer is the elementwise protocol: stage size, inp[:size] and
// out[:size], run one invocation per element and overwrite out[:size].
func (h *Handle) twoBuffer(op kernels.Op, size int, inp, out []float32) {
	h.expect(op, "inp", len(inp), size)
	h.expect(op, "out", len(out), size)
	h.run(op, kernels.Params{Size: uint32(size)}, input(inp[:size]), inout(out[:size]))
}

// ActivateReLU writes max(x, 0) of inp into out.
func (h *Handle) ActivateReLU(size int, inp, out []float32) {
	h.twoBuffer(kernels.ActivateReLU, size, inp, out)
}

// ActivateCReLU writes clamp(x, 0, 1) of inp into out.
func (h *Handle) ActivateCReLU(size int, inp, out []float32) {
	h.twoBuffer(kernels.ActivateCReLU, size, inp, out)
}

// ActivateSCReLU writes clamp(x, 0, 1)² of inp into out.
func (h *Handle) ActivateSCReLU(size int, inp, out []float32) {
	h.twoBuffer(kernels.ActivateSCReLU, size, inp, out)
}

// BackpropReLU masks the gradient in out where the pre-activation inp is not
// positive.
func (h *Handle) BackpropReLU(size int, inp, out []float32) {
	h.twoBuffer(kernels.BackpropReLU, size, inp, out)
}

// BackpropCReLU masks the gradient in out outside the open interval (0, 1)
// of the pre-activation inp.
func (h *Handle) BackpropCReLU(size int, inp, out []float32) {
	h.twoBuffer(kernels.BackpropCReLU, size, inp, out)
}

// BackpropSCReLU scales the gradient in out by 2x inside (0, 1) of the
// pre-activation x and zeroes it elsewhere.
func (h *Handle) BackpropSCReLU(size int, inp, out []float32) {
	h.twoBuffer(kernels.BackpropSCReLU, size, inp, out)
}

// AddTo accumulates out[i] += inp[i].
func (h *Handle) AddTo(size int, inp, out []float32) {
	h.twoBuffer(kernels.AddTo, size, inp, out)
}
