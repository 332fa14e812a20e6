// Package cpu implements a compute device that runs the kernel catalog on the
// host, splitting each dispatch's invocation range across goroutines.
package cpu

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/born-ml/nnue/internal/device"
	"github.com/born-ml/nnue/internal/kernels"
	"github.com/born-ml/nnue/internal/parallel"
)

// minChunk is the smallest invocation range handed to a worker.
const minChunk = 256

// Config configures the CPU device.
type Config struct {
	// Workers is the number of goroutines per dispatch (default: GOMAXPROCS).
	Workers int
}

// Device runs kernels on the CPU.
type Device struct {
	workers  int
	library  map[string]*kernel
	mu       sync.Mutex
	released bool
}

// Compile-time check that Device implements device.Device.
var _ device.Device = (*Device)(nil)

// New creates a CPU device with every catalog kernel in its library.
func New(cfg Config) *Device {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &Device{
		workers: cfg.Workers,
		library: newLibrary(),
	}
}

// Name returns the device name.
func (d *Device) Name() string {
	return fmt.Sprintf("CPU (%d workers)", d.workers)
}

// Workers returns the number of goroutines used per dispatch.
func (d *Device) Workers() int {
	return d.workers
}

// Function resolves a kernel by its library name.
func (d *Device) Function(name string) (device.Kernel, error) {
	k, ok := d.library[name]
	if !ok {
		return nil, fmt.Errorf("cpu: library has no function %q", name)
	}
	return k, nil
}

// NewBufferWithData stages a copy of data.
func (d *Device) NewBufferWithData(data []byte) (device.Buffer, error) {
	buf, err := d.NewBuffer(len(data))
	if err != nil {
		return nil, err
	}
	copy(buf.(*buffer).data, data)
	return buf, nil
}

// NewBuffer allocates a zeroed buffer. Storage is word aligned so kernels can
// view it as float32 or uint32.
func (d *Device) NewBuffer(size int) (device.Buffer, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, fmt.Errorf("cpu: negative buffer size %d", size)
	}
	if size == 0 {
		return &buffer{}, nil
	}
	words := make([]uint32, (size+3)/4)
	//nolint:gosec // unsafe.Slice for zero-copy byte view of word storage
	data := unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), size)
	return &buffer{data: data}, nil
}

// ReadBuffer copies the first len(dst) bytes of b into dst.
func (d *Device) ReadBuffer(b device.Buffer, dst []byte) error {
	buf, err := d.own(b)
	if err != nil {
		return err
	}
	if len(dst) > len(buf.data) {
		return fmt.Errorf("cpu: read of %d bytes from %d-byte buffer", len(dst), len(buf.data))
	}
	copy(dst, buf.data)
	return nil
}

// Dispatch runs k over [0, invocations) and waits for every worker.
func (d *Device) Dispatch(k device.Kernel, params []byte, buffers []device.Buffer, invocations int) error {
	if err := d.alive(); err != nil {
		return err
	}
	kern, ok := k.(*kernel)
	if !ok {
		return fmt.Errorf("cpu: kernel %q was not resolved by a CPU device", k.Name())
	}
	if len(buffers) != kern.bindings {
		return fmt.Errorf("cpu: %s expects %d buffers, got %d", kern.name, kern.bindings, len(buffers))
	}

	var p kernels.Params
	if err := p.UnmarshalBinary(params); err != nil {
		return fmt.Errorf("cpu: %s: %w", kern.name, err)
	}

	bufs := make([]*buffer, len(buffers))
	for i, b := range buffers {
		buf, err := d.own(b)
		if err != nil {
			return fmt.Errorf("cpu: %s binding %d: %w", kern.name, i+1, err)
		}
		bufs[i] = buf
	}

	if invocations <= 0 {
		return nil
	}
	return d.run(kern, &p, bufs, invocations)
}

// run splits the invocation space into contiguous chunks, one per worker.
func (d *Device) run(k *kernel, p *kernels.Params, bufs []*buffer, invocations int) error {
	cfg := parallel.Config{NumWorkers: d.workers, MinChunkSize: minChunk}
	err := parallel.Range(invocations, cfg, func(lo, hi int) {
		k.fn(p, bufs, lo, hi)
	})
	if err != nil {
		return fmt.Errorf("cpu: %s invocations %w", k.name, err)
	}
	return nil
}

// Release marks the device unusable.
func (d *Device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.released = true
}

func (d *Device) alive() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return device.ErrReleased
	}
	return nil
}

func (d *Device) own(b device.Buffer) (*buffer, error) {
	buf, ok := b.(*buffer)
	if !ok {
		return nil, fmt.Errorf("cpu: foreign buffer %T", b)
	}
	if buf.released {
		return nil, device.ErrReleased
	}
	return buf, nil
}

// buffer is host memory standing in for device memory.
type buffer struct {
	data     []byte
	released bool
}

func (b *buffer) Size() int {
	return len(b.data)
}

func (b *buffer) Release() {
	b.data = nil
	b.released = true
}

// f32 views the buffer as float32 values.
func (b *buffer) f32() []float32 {
	if len(b.data) < 4 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy view, storage is word aligned
	return unsafe.Slice((*float32)(unsafe.Pointer(&b.data[0])), len(b.data)/4)
}

// u32 views the buffer as uint32 values.
func (b *buffer) u32() []uint32 {
	if len(b.data) < 4 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy view, storage is word aligned
	return unsafe.Slice((*uint32)(unsafe.Pointer(&b.data[0])), len(b.data)/4)
}
