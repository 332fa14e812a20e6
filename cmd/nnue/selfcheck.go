package main

import (
	"fmt"

	"github.com/born-ml/nnue/loader"
	"github.com/born-ml/nnue/ops"
)

// selfcheck is one numeric property verified on the chosen device.
type selfcheck struct {
	name string
	fn   func(h *ops.Handle) error
}

// run reports a panicking operation as a failed check.
func (c selfcheck) run(h *ops.Handle) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return c.fn(h)
}

var selfchecks = []selfcheck{
	{"identity-gemv", checkIdentityGEMV},
	{"crelu-idempotent", checkCReLUIdempotent},
	{"relu-backprop", checkReLUBackprop},
	{"sparse-empty-sample", checkSparseEmptySample},
	{"sparse-unit-error", checkSparseUnitError},
	{"outer-product-zero", checkOuterProductZero},
	{"update-zero-gradient", checkUpdateZeroGradient},
	{"select-round-trip", checkSelectRoundTrip},
}

func equal(what string, got, want []float32) error {
	if len(got) != len(want) {
		return fmt.Errorf("%s: %d values, want %d", what, len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			return fmt.Errorf("%s[%d] = %v, want %v", what, i, got[i], want[i])
		}
	}
	return nil
}

func fill(n int, v float32) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = v
	}
	return s
}

// checkIdentityGEMV runs a 4-wide identity layer with zero biases over two
// samples.
func checkIdentityGEMV(h *ops.Handle) error {
	const dim, batch = 4, 2
	weights := make([]float32, dim*dim)
	for i := 0; i < dim; i++ {
		weights[i*dim+i] = 1
	}
	x := []float32{1, 2, 3, 4, 5, 6, 7, 8}
	y := make([]float32, batch*dim)
	h.SplatMulMatrixVector(dim, dim, weights, x, y, batch)
	h.SplatAdd(batch, dim, make([]float32, dim), y)
	return equal("y", y, x)
}

func checkCReLUIdempotent(h *ops.Handle) error {
	x := []float32{-2, -0.5, 0, 0.3, 0.5, 1, 1.7, 40}
	once := make([]float32, len(x))
	twice := make([]float32, len(x))
	h.ActivateCReLU(len(x), x, once)
	h.ActivateCReLU(len(x), once, twice)
	return equal("crelu(crelu(x))", twice, once)
}

func checkReLUBackprop(h *ops.Handle) error {
	x := []float32{-1, 0, 0.5, 3}
	grad := fill(len(x), 1)
	h.BackpropReLU(len(x), x, grad)
	return equal("grad", grad, []float32{0, 0, 1, 1})
}

func checkSparseEmptySample(h *ops.Handle) error {
	const inputs, hidden = 4, 3
	batch := loader.NewBatch(2, 2)
	if err := batch.SetSample(0, []loader.Feat{{Our: 1, Opp: 2}}, 0); err != nil {
		return err
	}
	weights := make([]float32, inputs*hidden)
	for i := range weights {
		weights[i] = float32(i + 1)
	}
	biases := []float32{0.5, -1, 2}
	out := make([]float32, batch.Size*2*hidden)
	h.SparseAffineForward(batch.Size, batch.MaxActive, hidden, weights, biases, batch.Inputs, out)

	empty := out[2*hidden:]
	if err := equal("our", empty[:hidden], biases); err != nil {
		return err
	}
	return equal("opp", empty[hidden:], biases)
}

func checkSparseUnitError(h *ops.Handle) error {
	const inputs, hidden = 3, 2
	batch := loader.NewBatch(3, 2)
	samples := [][]loader.Feat{
		{{Our: 0}, {Our: 2}},
		{{Our: 2}},
		nil,
	}
	for i, s := range samples {
		if err := batch.SetSample(i, s, 0); err != nil {
			return err
		}
	}
	out := make([]float32, batch.Size*hidden)
	wGrad := make([]float32, inputs*hidden)
	bGrad := make([]float32, hidden)
	h.SingleSparseAffineBackward(batch.Size, batch.MaxActive, inputs, hidden, wGrad, bGrad,
		batch.Inputs, fill(len(out), 1), out, 0)

	if err := equal("bias grad", bGrad, fill(hidden, float32(batch.Size))); err != nil {
		return err
	}
	return equal("weight grad", wGrad, []float32{1, 1, 0, 0, 2, 2})
}

func checkOuterProductZero(h *ops.Handle) error {
	const m, n, batch = 3, 2, 2
	a := []float32{1, -1, 2, -2, 3, -3}
	want := append([]float32(nil), a...)
	h.ReduceAddMulVectorVectorT(m, n, make([]float32, batch*m), fill(batch*n, 0.5), a, batch)
	return equal("a", a, want)
}

func checkUpdateZeroGradient(h *ops.Handle) error {
	network := []float32{0.25, -1, 1.5}
	want := append([]float32(nil), network...)
	momentum := make([]float32, len(network))
	velocity := make([]float32, len(network))
	h.UpdateWeights(len(network), 0, 1, 0.001, network, momentum, velocity, make([]float32, len(network)))
	return equal("network", network, want)
}

func checkSelectRoundTrip(h *ops.Handle) error {
	const batch, buckets, width = 2, 3, 2
	idx := []uint8{2, 1}
	grad := []float32{1, 2, 3, 4}
	scattered := make([]float32, batch*buckets*width)
	h.SelectBackprop(batch, buckets*width, width, idx, grad, scattered)

	back := make([]float32, batch*width)
	h.Select(batch, buckets*width, width, idx, scattered, back)
	return equal("selected", back, grad)
}
