// Package kernels enumerates the kernel catalog and the parameter block
// every kernel receives.
package kernels

import "fmt"

// Op identifies one kernel of the catalog.
type Op int

// Catalog operations. The order is the catalog index.
const (
	BackpropReLU Op = iota
	BackpropCReLU
	BackpropSCReLU
	ActivateReLU
	ActivateCReLU
	ActivateSCReLU
	AddTo
	SigmoidMPE
	SparseAffineForward
	SparseAffineBackward
	SingleSparseAffineForward
	SingleSparseAffineBackward
	SplatMulMatrixVector
	SplatMulMatrixTVector
	ReduceAddMulVectorVectorT
	ReduceAdd
	Select
	SelectBackprop
	SplatAdd
	UpdateWeights

	// NumOps is the number of catalog entries.
	NumOps
)

// names are the function names a device library must export.
var names = [NumOps]string{
	BackpropReLU:               "backpropReLU",
	BackpropCReLU:              "backpropCReLU",
	BackpropSCReLU:             "backpropSCReLU",
	ActivateReLU:               "activateReLU",
	ActivateCReLU:              "activateCReLU",
	ActivateSCReLU:             "activateSCReLU",
	AddTo:                      "addTo",
	SigmoidMPE:                 "sigmoidMPE",
	SparseAffineForward:        "sparseAffineForward",
	SparseAffineBackward:       "sparseAffineBackward",
	SingleSparseAffineForward:  "singleSparseAffineForward",
	SingleSparseAffineBackward: "singleSparseAffineBackward",
	SplatMulMatrixVector:       "splatMulMatrixVector",
	SplatMulMatrixTVector:      "splatMulMatrixTVector",
	ReduceAddMulVectorVectorT:  "reduceAddMulVectorVectorT",
	ReduceAdd:                  "reduceAdd",
	Select:                     "select",
	SelectBackprop:             "selectBackprop",
	SplatAdd:                   "splatAdd",
	UpdateWeights:              "updateWeights",
}

// String returns the library function name of op.
func (op Op) String() string {
	if op < 0 || op >= NumOps {
		return fmt.Sprintf("Op(%d)", int(op))
	}
	return names[op]
}

// Ops lists every catalog operation in index order.
func Ops() []Op {
	ops := make([]Op, NumOps)
	for i := range ops {
		ops[i] = Op(i)
	}
	return ops
}

// Lookup returns the Op exported under name.
func Lookup(name string) (Op, bool) {
	for i, n := range names {
		if n == name {
			return Op(i), true
		}
	}
	return 0, false
}
