package ops

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/nnue/internal/backend/cpu"
)

func TestUpdateWeights_ZeroGradient(t *testing.T) {
	h := newTestHandle(t)

	t.Run("ZeroMoments", func(t *testing.T) {
		network := []float32{0.25, -0.5, 1.5}
		want := append([]float32(nil), network...)
		momentum := make([]float32, 3)
		velocity := make([]float32, 3)
		h.UpdateWeights(3, 0, 1, 0.01, network, momentum, velocity, make([]float32, 3))

		assert.Equal(t, want, network)
		assert.Equal(t, []float32{0, 0, 0}, momentum)
		assert.Equal(t, []float32{0, 0, 0}, velocity)
	})

	t.Run("MomentsDecay", func(t *testing.T) {
		network := []float32{0.25, -0.5, 1.5}
		want := append([]float32(nil), network...)
		momentum := []float32{1, -2, 0.5}
		velocity := []float32{4, 1, 2}
		h.UpdateWeights(3, 0, 1, 0, network, momentum, velocity, make([]float32, 3))

		assert.Equal(t, want, network)
		assert.InDeltaSlice(t, []float32{0.9, -1.8, 0.45}, momentum, 1e-6)
		assert.InDeltaSlice(t, []float32{3.996, 0.999, 1.998}, velocity, 1e-5)
	})
}

// adamReference is one float64 Adam step.
func adamReference(w, m, v, g, decay, adj, rate float64, after bool) (float64, float64, float64) {
	g *= adj
	m = 0.9*m + 0.1*g
	v = 0.999*v + 0.001*g*g
	if !after {
		w *= 1 - decay
	}
	w -= rate * m / (math.Sqrt(v) + 1e-8)
	if after {
		w *= 1 - decay
	}
	return w, m, v
}

func TestUpdateWeights_DecayOrder(t *testing.T) {
	for _, order := range []DecayOrder{DecayBeforeStep, DecayAfterStep} {
		t.Run(string(order), func(t *testing.T) {
			h, err := New(cpu.New(cpu.Config{}), Config{DecayOrder: order, MaxWeight: -1, Debug: true})
			require.NoError(t, err)
			defer h.Close()

			network := []float32{1, -1, 0.5}
			momentum := []float32{0.1, 0, -0.2}
			velocity := []float32{0.01, 0, 0.04}
			grads := []float32{0.5, -0.25, 1}
			const decay, adj, rate = 0.1, 2, 0.05

			orig := [3][3]float64{}
			for i := range network {
				orig[i] = [3]float64{float64(network[i]), float64(momentum[i]), float64(velocity[i])}
			}
			h.UpdateWeights(3, decay, adj, rate, network, momentum, velocity, grads)

			for i := range network {
				w, m, v := adamReference(orig[i][0], orig[i][1], orig[i][2], float64(grads[i]), decay, adj, rate, order == DecayAfterStep)
				assert.InDelta(t, w, float64(network[i]), 1e-5, "weight %d", i)
				assert.InDelta(t, m, float64(momentum[i]), 1e-6, "momentum %d", i)
				assert.InDelta(t, v, float64(velocity[i]), 1e-6, "velocity %d", i)
			}
		})
	}
}

func TestUpdateWeights_Clipping(t *testing.T) {
	grads := []float32{-1, 1}

	h := newTestHandle(t)
	network := []float32{1.975, -1.975}
	h.UpdateWeights(2, 0, 1, 0.1, network, make([]float32, 2), make([]float32, 2), grads)
	assert.Equal(t, []float32{DefaultMaxWeight, -DefaultMaxWeight}, network)

	unclipped, err := New(cpu.New(cpu.Config{}), Config{MaxWeight: -1})
	require.NoError(t, err)
	defer unclipped.Close()
	network = []float32{1.975, -1.975}
	unclipped.UpdateWeights(2, 0, 1, 0.1, network, make([]float32, 2), make([]float32, 2), grads)
	assert.Greater(t, network[0], float32(DefaultMaxWeight))
	assert.Less(t, network[1], float32(-DefaultMaxWeight))
}

func TestStep(t *testing.T) {
	h := newTestHandle(t)

	s := NewAdamState([]float32{0.5, 0.5})
	require.Len(t, s.Momentum, 2)
	require.NoError(t, h.Step(s, []float32{1, -1}, 0, 1, 0.01))
	assert.Less(t, s.Network[0], float32(0.5))
	assert.Greater(t, s.Network[1], float32(0.5))
	assert.InDeltaSlice(t, []float32{0.1, -0.1}, s.Momentum, 1e-6)

	assert.Error(t, h.Step(s, []float32{1}, 0, 1, 0.01))
}

// sigmoidMPEReference evaluates the loss and its gradient in float64.
func sigmoidMPEReference(x, r, p float64, scale bool) (grad, loss float64) {
	s := 1 / (1 + math.Exp(-x))
	d := s - r
	loss = math.Pow(math.Abs(d), p)
	if d == 0 {
		return 0, loss
	}
	grad = math.Copysign(math.Pow(math.Abs(d), p-1), d) * s * (1 - s)
	if scale {
		grad *= p
	}
	return grad, loss
}

func TestSigmoidMPE(t *testing.T) {
	outputs := []float32{-3, -0.5, 0, 0.5, 2, 4}
	results := []float32{0, 0.5, 0.5, 1, 0.2, 1}

	for _, power := range []float32{2, 2.5} {
		for _, scale := range []bool{false, true} {
			h, err := New(cpu.New(cpu.Config{}), Config{ScaleLossByPower: scale, Debug: true})
			require.NoError(t, err)

			out := append([]float32(nil), outputs...)
			errs := make([]float32, len(out))
			h.SigmoidMPE(len(out), out, results, errs, power)

			var total float64
			for i := range outputs {
				grad, loss := sigmoidMPEReference(float64(outputs[i]), float64(results[i]), float64(power), scale)
				assert.InDelta(t, grad, float64(out[i]), 1e-5, "gradient %d power %v", i, power)
				assert.InDelta(t, loss, float64(errs[i]), 1e-5, "loss %d power %v", i, power)
				total += loss
			}
			assert.InDelta(t, total, Loss(errs), 1e-4)
			h.Close()
		}
	}
}
