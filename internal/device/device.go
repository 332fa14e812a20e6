// Package device defines the boundary between the kernel dispatch layer and
// a compute device with a compiled kernel library.
package device

import "errors"

var (
	// ErrReleased is returned when a released device or buffer is used.
	ErrReleased = errors.New("device: use after release")

	// ErrUnavailable is returned when a backend cannot run on this system.
	ErrUnavailable = errors.New("device: backend not available")
)

// Kernel is a resolved, invocable compute function of a device library.
type Kernel interface {
	Name() string
}

// Buffer is device memory. Its contents are only reachable through
// Device.ReadBuffer.
type Buffer interface {
	// Size returns the buffer length in bytes.
	Size() int
	Release()
}

// Library resolves kernels by name.
type Library interface {
	Function(name string) (Kernel, error)
}

// Device executes kernels from its library.
//
// Dispatch is synchronous: it returns after every invocation has completed.
// params is bound first, followed by buffers in slice order. A Device does not
// have to support concurrent Dispatch calls.
type Device interface {
	Library

	Name() string

	// NewBufferWithData stages a copy of data into a fresh buffer.
	NewBufferWithData(data []byte) (Buffer, error)

	// NewBuffer allocates a zeroed buffer of size bytes.
	NewBuffer(size int) (Buffer, error)

	// Dispatch runs k once per invocation index in [0, invocations).
	Dispatch(k Kernel, params []byte, buffers []Buffer, invocations int) error

	// ReadBuffer copies len(dst) bytes from the start of b into dst.
	ReadBuffer(b Buffer, dst []byte) error

	Release()
}
