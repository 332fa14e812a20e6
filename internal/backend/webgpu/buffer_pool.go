//go:build windows

package webgpu

import (
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

const (
	// Size thresholds for pool categories.
	smallThreshold  = 4 * 1024    // 4KB
	mediumThreshold = 1024 * 1024 // 1MB
	maxPoolSize     = 16          // Max buffers per category
)

// pooledBuffer wraps a GPU buffer with metadata.
type pooledBuffer struct {
	buffer *wgpu.Buffer
	size   uint64
	usage  wgpu.BufferUsage
}

// BufferPool recycles readback staging buffers between dispatches. Staging
// buffers only ever receive a full copy of the region that is read, so reuse
// never exposes data from an earlier call. Kernel storage buffers are not
// pooled.
type BufferPool struct {
	device *wgpu.Device

	// Free buffers by size category.
	free [3][]*pooledBuffer

	mu sync.Mutex

	// Statistics
	allocated uint64
	hits      uint64
	misses    uint64
}

// NewBufferPool creates a new buffer pool for the given device.
func NewBufferPool(device *wgpu.Device) *BufferPool {
	return &BufferPool{device: device}
}

// Acquire gets a buffer of at least size bytes with the given usage, reusing
// a free one when possible.
func (p *BufferPool) Acquire(size uint64, usage wgpu.BufferUsage) *wgpu.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()

	c := category(size)
	for i, pb := range p.free[c] {
		if pb.size >= size && pb.usage == usage {
			p.free[c] = append(p.free[c][:i], p.free[c][i+1:]...)
			p.hits++
			return pb.buffer
		}
	}

	p.misses++
	p.allocated++
	return p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: usage,
		Size:  size,
	})
}

// Release returns a buffer to the pool, or frees it when its category is full.
func (p *BufferPool) Release(buffer *wgpu.Buffer, size uint64, usage wgpu.BufferUsage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c := category(size)
	if len(p.free[c]) >= maxPoolSize {
		buffer.Release()
		return
	}
	p.free[c] = append(p.free[c], &pooledBuffer{buffer: buffer, size: size, usage: usage})
}

// Clear releases all pooled buffers.
func (p *BufferPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for c := range p.free {
		for _, pb := range p.free[c] {
			pb.buffer.Release()
		}
		p.free[c] = nil
	}
}

// Stats returns allocation counters and the number of pooled buffers.
func (p *BufferPool) Stats() (allocated, hits, misses uint64, pooled int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for c := range p.free {
		pooled += len(p.free[c])
	}
	return p.allocated, p.hits, p.misses, pooled
}

func category(size uint64) int {
	switch {
	case size < smallThreshold:
		return 0
	case size < mediumThreshold:
		return 1
	default:
		return 2
	}
}
