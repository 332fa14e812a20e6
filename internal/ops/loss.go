package ops

import "github.com/born-ml/nnue/internal/kernels"

// SigmoidMPE applies a sigmoid to outputs and evaluates the mean power error
// against results. outputs is overwritten with the loss gradient
// sign(d)·|d|^(power-1)·σ(1-σ), where d = σ - result (scaled by power when
// Config.ScaleLossByPower is set), and errors receives |d|^power.
func (h *Handle) SigmoidMPE(size int, outputs, results, errors []float32, power float32) {
	op := kernels.SigmoidMPE
	h.expect(op, "outputs", len(outputs), size)
	h.expect(op, "results", len(results), size)
	h.expect(op, "errors", len(errors), size)

	p := kernels.Params{Size: uint32(size), Power: power}
	if h.cfg.ScaleLossByPower {
		p.Flags |= kernels.FlagScaleByPower
	}
	h.run(op, p, inout(outputs[:size]), input(results[:size]), output(errors[:size]))
}

// Loss sums per-element errors written by SigmoidMPE.
func Loss(errors []float32) float64 {
	var sum float64
	for _, e := range errors {
		sum += float64(e)
	}
	return sum
}
