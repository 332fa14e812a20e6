// Package ops implements the kernel dispatch layer: a Handle owns one device
// and its resolved kernel catalog, and every operation stages its inputs,
// dispatches one kernel, waits for it and copies the results back.
package ops

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/born-ml/nnue/internal/device"
	"github.com/born-ml/nnue/internal/kernels"
)

// Handle owns a device and its kernel catalog for the duration of a training
// run. Dispatches through one Handle are serialised.
type Handle struct {
	id      string
	dev     device.Device
	catalog *kernels.Catalog
	cfg     Config
	log     *slog.Logger

	mu     sync.Mutex
	closed bool
}

// New resolves every catalog kernel from dev. A single missing kernel fails
// the whole handle; the error is a *kernels.ResolveError naming all of them.
func New(dev device.Device, cfg Config) (*Handle, error) {
	if dev == nil {
		return nil, errors.New("ops: nil device")
	}
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	catalog, err := kernels.NewCatalog(dev)
	if err != nil {
		handlesFailed.WithLabelValues(dev.Name()).Inc()
		cfg.Logger.Error("kernel catalog resolution failed", "device", dev.Name(), "err", err)
		return nil, fmt.Errorf("ops: open %s: %w", dev.Name(), err)
	}

	h := &Handle{
		id:      uuid.NewString(),
		dev:     dev,
		catalog: catalog,
		cfg:     cfg,
	}
	h.log = cfg.Logger.With("handle", h.id)
	handlesOpened.WithLabelValues(dev.Name()).Inc()
	h.log.Info("device handle opened", "device", dev.Name(), "kernels", int(kernels.NumOps))
	return h, nil
}

// MustNew is like New but panics if the catalog cannot be resolved.
func MustNew(dev device.Device, cfg Config) *Handle {
	h, err := New(dev, cfg)
	if err != nil {
		panic(err)
	}
	return h
}

// ID returns the handle's unique identifier.
func (h *Handle) ID() string {
	return h.id
}

// Device returns the underlying device.
func (h *Handle) Device() device.Device {
	return h.dev
}

// Config returns the effective configuration after defaults.
func (h *Handle) Config() Config {
	return h.cfg
}

// Close releases the device. Operations on a closed handle panic.
func (h *Handle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	h.dev.Release()
	h.log.Info("device handle closed")
}
