package kernels

// Invocations returns how many kernel invocations op needs for p. Every
// device runs the same invocation space, so a kernel body only depends on its
// invocation index.
//
//   - elementwise, loss and update kernels: one per element (Size)
//   - sparse affine forward: one per (sample, output column)
//   - sparse affine backward: one per output column; it walks the whole batch
//     so no two invocations write the same gradient address
//   - splat GEMV: one per (sample, output row); transposed: per (sample, column)
//   - outer-product reduction: one per row of A
//   - reduce add: one per output element
//   - select: one per selected output; select backprop: one per input element
//   - splat add: one per (sample, element)
func Invocations(op Op, p *Params) int {
	batch := int(p.BatchSize)
	switch op {
	case BackpropReLU, BackpropCReLU, BackpropSCReLU,
		ActivateReLU, ActivateCReLU, ActivateSCReLU,
		AddTo, SigmoidMPE, UpdateWeights:
		return int(p.Size)
	case SparseAffineForward, SingleSparseAffineForward:
		return batch * int(p.OutputSize)
	case SparseAffineBackward, SingleSparseAffineBackward:
		return int(p.OutputSize)
	case SplatMulMatrixVector:
		return batch * int(p.M)
	case SplatMulMatrixTVector:
		return batch * int(p.N)
	case ReduceAddMulVectorVectorT:
		return int(p.M)
	case ReduceAdd:
		return int(p.OutputSize)
	case Select:
		return batch * int(p.OutputSize)
	case SelectBackprop:
		return batch * int(p.InputSize)
	case SplatAdd:
		return batch * int(p.Size)
	default:
		return 0
	}
}

// Perspectives returns how many accumulator halves a sparse affine op writes
// per sample.
func Perspectives(op Op) int {
	switch op {
	case SparseAffineForward, SparseAffineBackward:
		return 2
	default:
		return 1
	}
}
