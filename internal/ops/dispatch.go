package ops

import (
	"fmt"
	"time"

	"github.com/born-ml/nnue/internal/kernels"
)

// dispatch runs op with params p over the given bindings: stage every buffer,
// bind (params, bindings...) in order, run kernels.Invocations(op, p)
// invocations, wait, copy outputs back and release all device memory.
func (h *Handle) dispatch(op kernels.Op, p kernels.Params, bindings ...binding) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return fmt.Errorf("handle %s is closed", h.id)
	}

	start := time.Now()
	invocations := kernels.Invocations(op, &p)

	params, err := p.MarshalBinary()
	if err != nil {
		return err
	}

	bufs, staged, err := stage(h.dev, bindings)
	if err != nil {
		return fmt.Errorf("stage: %w", err)
	}
	defer release(bufs)

	if err := h.dev.Dispatch(h.catalog.Kernel(op), params, bufs, invocations); err != nil {
		return err
	}

	read, err := readBack(h.dev, bindings, bufs)
	if err != nil {
		return fmt.Errorf("read back: %w", err)
	}

	elapsed := time.Since(start)
	dispatchTotal.WithLabelValues(op.String()).Inc()
	dispatchDuration.WithLabelValues(op.String()).Observe(elapsed.Seconds())
	stagedBytes.WithLabelValues("to_device").Add(float64(staged))
	stagedBytes.WithLabelValues("to_host").Add(float64(read))
	h.log.Debug("dispatch",
		"op", op.String(),
		"invocations", invocations,
		"staged_bytes", staged,
		"read_bytes", read,
		"elapsed", elapsed,
	)
	return nil
}

// run dispatches op and treats any device error as fatal.
func (h *Handle) run(op kernels.Op, p kernels.Params, bindings ...binding) {
	if err := h.dispatch(op, p, bindings...); err != nil {
		dispatchFailures.WithLabelValues(op.String()).Inc()
		h.log.Error("dispatch failed", "op", op.String(), "err", err)
		panic(fmt.Sprintf("ops: %s: %v", op, err))
	}
}

// expect panics in debug mode when a slice is not exactly the declared length.
func (h *Handle) expect(op kernels.Op, name string, got, want int) {
	if h.cfg.Debug && got != want {
		panic(fmt.Sprintf("ops: %s: %s has length %d, want %d", op, name, got, want))
	}
}
