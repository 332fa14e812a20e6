package cpu

import (
	"github.com/chewxy/math32"

	"github.com/born-ml/nnue/internal/kernels"
)

// Two-buffer kernels: bufs[0] is the input, bufs[1] the output. Backprop
// kernels read the pre-activation from the input and scale the incoming
// gradient held in the output in place.

func activateReLU(_ *kernels.Params, bufs []*buffer, lo, hi int) {
	inp, out := bufs[0].f32(), bufs[1].f32()
	for i := lo; i < hi; i++ {
		out[i] = math32.Max(inp[i], 0)
	}
}

func activateCReLU(_ *kernels.Params, bufs []*buffer, lo, hi int) {
	inp, out := bufs[0].f32(), bufs[1].f32()
	for i := lo; i < hi; i++ {
		out[i] = clamp01(inp[i])
	}
}

func activateSCReLU(_ *kernels.Params, bufs []*buffer, lo, hi int) {
	inp, out := bufs[0].f32(), bufs[1].f32()
	for i := lo; i < hi; i++ {
		c := clamp01(inp[i])
		out[i] = c * c
	}
}

func backpropReLU(_ *kernels.Params, bufs []*buffer, lo, hi int) {
	inp, out := bufs[0].f32(), bufs[1].f32()
	for i := lo; i < hi; i++ {
		if inp[i] <= 0 {
			out[i] = 0
		}
	}
}

func backpropCReLU(_ *kernels.Params, bufs []*buffer, lo, hi int) {
	inp, out := bufs[0].f32(), bufs[1].f32()
	for i := lo; i < hi; i++ {
		if x := inp[i]; x <= 0 || x >= 1 {
			out[i] = 0
		}
	}
}

func backpropSCReLU(_ *kernels.Params, bufs []*buffer, lo, hi int) {
	inp, out := bufs[0].f32(), bufs[1].f32()
	for i := lo; i < hi; i++ {
		x := inp[i]
		if x > 0 && x < 1 {
			out[i] *= 2 * x
		} else {
			out[i] = 0
		}
	}
}

func addTo(_ *kernels.Params, bufs []*buffer, lo, hi int) {
	inp, out := bufs[0].f32(), bufs[1].f32()
	for i := lo; i < hi; i++ {
		out[i] += inp[i]
	}
}

// sigmoidMPE overwrites the outputs with the loss gradient and writes the
// per-element loss |sigmoid(x) - result|^power to errors.
func sigmoidMPE(p *kernels.Params, bufs []*buffer, lo, hi int) {
	outputs, results, errors := bufs[0].f32(), bufs[1].f32(), bufs[2].f32()
	power := p.Power
	scale := float32(1)
	if p.Has(kernels.FlagScaleByPower) {
		scale = power
	}

	for i := lo; i < hi; i++ {
		sigmoid := 1 / (1 + math32.Exp(-outputs[i]))
		diff := sigmoid - results[i]
		absd := math32.Abs(diff)

		grad := scale * sigmoid * (1 - sigmoid) * math32.Pow(absd, power-1)
		if diff < 0 {
			grad = -grad
		} else if diff == 0 {
			grad = 0
		}
		outputs[i] = grad
		errors[i] = math32.Pow(absd, power)
	}
}

func clamp01(x float32) float32 {
	return math32.Min(math32.Max(x, 0), 1)
}
