package cpu

import "github.com/born-ml/nnue/internal/kernels"

// kernelFunc executes the invocations [lo, hi) of one dispatch.
type kernelFunc func(p *kernels.Params, bufs []*buffer, lo, hi int)

// kernel is a library function together with its buffer arity.
type kernel struct {
	name     string
	bindings int
	fn       kernelFunc
}

func (k *kernel) Name() string {
	return k.name
}

// newLibrary builds the compiled library: one entry per catalog op, keyed by
// its exported name.
func newLibrary() map[string]*kernel {
	table := map[kernels.Op]struct {
		bindings int
		fn       kernelFunc
	}{
		kernels.BackpropReLU:               {2, backpropReLU},
		kernels.BackpropCReLU:              {2, backpropCReLU},
		kernels.BackpropSCReLU:             {2, backpropSCReLU},
		kernels.ActivateReLU:               {2, activateReLU},
		kernels.ActivateCReLU:              {2, activateCReLU},
		kernels.ActivateSCReLU:             {2, activateSCReLU},
		kernels.AddTo:                      {2, addTo},
		kernels.SigmoidMPE:                 {3, sigmoidMPE},
		kernels.SparseAffineForward:        {4, sparseAffineForward(2)},
		kernels.SparseAffineBackward:       {5, sparseAffineBackward(2)},
		kernels.SingleSparseAffineForward:  {4, sparseAffineForward(1)},
		kernels.SingleSparseAffineBackward: {5, sparseAffineBackward(1)},
		kernels.SplatMulMatrixVector:       {3, splatMulMatrixVector},
		kernels.SplatMulMatrixTVector:      {3, splatMulMatrixTVector},
		kernels.ReduceAddMulVectorVectorT:  {3, reduceAddMulVectorVectorT},
		kernels.ReduceAdd:                  {2, reduceAdd},
		kernels.Select:                     {3, selectBucket},
		kernels.SelectBackprop:             {3, selectBackprop},
		kernels.SplatAdd:                   {2, splatAdd},
		kernels.UpdateWeights:              {4, updateWeights},
	}

	lib := make(map[string]*kernel, len(table))
	for op, entry := range table {
		lib[op.String()] = &kernel{name: op.String(), bindings: entry.bindings, fn: entry.fn}
	}
	return lib
}

// forRows splits the flattened invocation range [lo, hi) over rows of the
// given width and calls fn once per touched row with its column span.
func forRows(lo, hi, width int, fn func(row, c0, c1 int)) {
	if width <= 0 {
		return
	}
	for i := lo; i < hi; {
		row := i / width
		c0 := i - row*width
		c1 := min(width, c0+hi-i)
		fn(row, c0, c1)
		i += c1 - c0
	}
}
