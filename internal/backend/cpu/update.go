package cpu

import (
	"github.com/chewxy/math32"

	"github.com/born-ml/nnue/internal/kernels"
)

// updateWeights applies one Adam step with weight decay and optional
// clipping. Buffers: network, momentum, velocity, gradients.
func updateWeights(p *kernels.Params, bufs []*buffer, lo, hi int) {
	network, momentum, velocity := bufs[0].f32(), bufs[1].f32(), bufs[2].f32()
	gradients := bufs[3].f32()
	b1, b2, eps := p.Beta1, p.Beta2, p.Epsilon
	keep := 1 - p.Decay
	after := p.Has(kernels.FlagDecayAfterStep)

	for i := lo; i < hi; i++ {
		g := p.Adj * gradients[i]
		momentum[i] = b1*momentum[i] + (1-b1)*g
		velocity[i] = b2*velocity[i] + (1-b2)*g*g

		param := network[i]
		if !after {
			param *= keep
		}
		param -= p.Rate * momentum[i] / (math32.Sqrt(velocity[i]) + eps)
		if after {
			param *= keep
		}
		if p.MaxWeight > 0 {
			param = math32.Min(math32.Max(param, -p.MaxWeight), p.MaxWeight)
		}
		network[i] = param
	}
}
