package kernels

import (
	"fmt"
	"strings"

	"github.com/born-ml/nnue/internal/device"
)

// ResolveError lists every kernel a library failed to provide.
type ResolveError struct {
	Missing []string
	Errs    []error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("kernels: %d of %d kernels unresolved: %s", len(e.Missing), NumOps, strings.Join(e.Missing, ", "))
}

// Unwrap returns the per-kernel lookup errors.
func (e *ResolveError) Unwrap() []error {
	return e.Errs
}

// Catalog maps every Op to a resolved kernel. It is immutable after
// NewCatalog returns.
type Catalog struct {
	kernels [NumOps]device.Kernel
}

// NewCatalog resolves every Op from lib. Either all kernels resolve or no
// catalog is returned.
func NewCatalog(lib device.Library) (*Catalog, error) {
	c := &Catalog{}
	var rerr ResolveError

	for _, op := range Ops() {
		k, err := lib.Function(op.String())
		if err == nil && k == nil {
			err = fmt.Errorf("kernels: library returned no function for %q", op.String())
		}
		if err != nil {
			rerr.Missing = append(rerr.Missing, op.String())
			rerr.Errs = append(rerr.Errs, err)
			continue
		}
		c.kernels[op] = k
	}

	if len(rerr.Missing) > 0 {
		return nil, &rerr
	}
	return c, nil
}

// Kernel returns the kernel resolved for op.
func (c *Catalog) Kernel(op Op) device.Kernel {
	return c.kernels[op]
}
