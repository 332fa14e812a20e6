package ops

import (
	"fmt"

	"github.com/born-ml/nnue/internal/kernels"
)

// UpdateWeights applies one Adam step in place:
//
//	g = adj·gradient
//	m = β1·m + (1-β1)·g
//	v = β2·v + (1-β2)·g²
//	w = w·(1-decay) - rate·m/(√v+ε)
//
// With DecayAfterStep the decay factor is applied after the step. The result
// is clipped to ±Config.MaxWeight unless clipping is disabled.
func (h *Handle) UpdateWeights(networkSize int, decay, adj, rate float32, network, momentum, velocity, gradients []float32) {
	op := kernels.UpdateWeights
	h.expect(op, "network", len(network), networkSize)
	h.expect(op, "momentum", len(momentum), networkSize)
	h.expect(op, "velocity", len(velocity), networkSize)
	h.expect(op, "gradients", len(gradients), networkSize)

	p := kernels.Params{
		Size:    uint32(networkSize),
		Decay:   decay,
		Adj:     adj,
		Rate:    rate,
		Beta1:   h.cfg.Beta1,
		Beta2:   h.cfg.Beta2,
		Epsilon: h.cfg.Epsilon,
	}
	if h.cfg.MaxWeight > 0 {
		p.MaxWeight = h.cfg.MaxWeight
	}
	if h.cfg.DecayOrder == DecayAfterStep {
		p.Flags |= kernels.FlagDecayAfterStep
	}
	h.run(op, p,
		inout(network[:networkSize]),
		inout(momentum[:networkSize]),
		inout(velocity[:networkSize]),
		input(gradients[:networkSize]),
	)
}

// AdamState is the parameter vector together with its optimizer moments.
type AdamState struct {
	Network  []float32
	Momentum []float32
	Velocity []float32
}

// NewAdamState wraps network with zeroed moments.
func NewAdamState(network []float32) *AdamState {
	return &AdamState{
		Network:  network,
		Momentum: make([]float32, len(network)),
		Velocity: make([]float32, len(network)),
	}
}

// Step runs UpdateWeights over the whole state.
func (h *Handle) Step(s *AdamState, gradients []float32, decay, adj, rate float32) error {
	n := len(s.Network)
	if len(s.Momentum) != n || len(s.Velocity) != n || len(gradients) != n {
		return fmt.Errorf("ops: adam state lengths %d/%d/%d and %d gradients disagree",
			n, len(s.Momentum), len(s.Velocity), len(gradients))
	}
	h.UpdateWeights(n, decay, adj, rate, s.Network, s.Momentum, s.Velocity, gradients)
	return nil
}
