//go:build windows

package webgpu

import (
	"fmt"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/born-ml/nnue/internal/device"
	"github.com/born-ml/nnue/internal/kernels"
)

const (
	// workgroupSize matches @workgroup_size in every shader.
	workgroupSize = 256
	// maxWorkgroupsPerDim is the WebGPU default limit per dispatch dimension.
	maxWorkgroupsPerDim = 65535
	// minBufferSize keeps zero-length bindings valid.
	minBufferSize = 4
)

const storageUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst

// buffer is a storage buffer on the GPU.
type buffer struct {
	buf      *wgpu.Buffer
	size     int
	released bool
}

func (b *buffer) Size() int {
	return b.size
}

func (b *buffer) Release() {
	if b.released {
		return
	}
	b.buf.Release()
	b.released = true
}

// NewBufferWithData uploads data through a buffer mapped at creation.
func (d *Device) NewBufferWithData(data []byte) (device.Buffer, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	size := alignedSize(len(data))
	buf := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            storageUsage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buf.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mapped := unsafe.Slice((*byte)(mappedPtr), size)
	n := copy(mapped, data)
	clear(mapped[n:])
	buf.Unmap()

	return &buffer{buf: buf, size: len(data)}, nil
}

// NewBuffer allocates a storage buffer. WebGPU zero-initialises new buffers.
func (d *Device) NewBuffer(size int) (device.Buffer, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, fmt.Errorf("webgpu: negative buffer size %d", size)
	}
	buf := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: storageUsage,
		Size:  alignedSize(size),
	})
	return &buffer{buf: buf, size: size}, nil
}

// ReadBuffer copies len(dst) bytes from b through a MapRead staging buffer.
func (d *Device) ReadBuffer(b device.Buffer, dst []byte) error {
	if err := d.alive(); err != nil {
		return err
	}
	src, err := own(b)
	if err != nil {
		return err
	}
	if len(dst) > src.size {
		return fmt.Errorf("webgpu: read of %d bytes from %d-byte buffer", len(dst), src.size)
	}
	if len(dst) == 0 {
		return nil
	}

	size := alignedSize(len(dst))
	usage := wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst
	staging := d.staging.Acquire(size, usage)
	defer d.staging.Release(staging, size, usage)

	encoder := d.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src.buf, 0, staging, 0, size)
	cmdBuffer := encoder.Finish(nil)
	d.queue.Submit(cmdBuffer)

	if err := staging.MapAsync(d.device, wgpu.MapModeRead, 0, size); err != nil {
		return fmt.Errorf("webgpu: failed to map staging buffer: %w", err)
	}
	mappedPtr := staging.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(dst, unsafe.Slice((*byte)(mappedPtr), len(dst)))
	staging.Unmap()
	return nil
}

// Dispatch binds params at binding 0 and buffers at 1..n and submits enough
// workgroups for invocations. Submissions execute in queue order and
// ReadBuffer blocks on mapping its staging copy, so a read issued after
// Dispatch observes the completed kernel.
func (d *Device) Dispatch(k device.Kernel, params []byte, buffers []device.Buffer, invocations int) (err error) {
	if err := d.alive(); err != nil {
		return err
	}
	kern, ok := k.(*kernel)
	if !ok {
		return fmt.Errorf("webgpu: kernel %q was not compiled by a WebGPU device", k.Name())
	}
	if len(buffers) != kern.bindings {
		return fmt.Errorf("webgpu: %s expects %d buffers, got %d", kern.name, kern.bindings, len(buffers))
	}
	if len(params) != kernels.ParamsSize {
		return fmt.Errorf("webgpu: %s: params block is %d bytes, want %d", kern.name, len(params), kernels.ParamsSize)
	}
	if invocations <= 0 {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("webgpu: %s: %v", kern.name, r)
		}
	}()

	bufferParams := d.createUniformBuffer(params)
	defer bufferParams.Release()

	entries := make([]wgpu.BindGroupEntry, 0, len(buffers)+1)
	entries = append(entries, wgpu.BufferBindingEntry(0, bufferParams, 0, uint64(len(params))))
	for i, b := range buffers {
		buf, err := own(b)
		if err != nil {
			return fmt.Errorf("webgpu: %s binding %d: %w", kern.name, i+1, err)
		}
		//nolint:gosec // G115: binding index is bounded by the kernel arity
		entries = append(entries, wgpu.BufferBindingEntry(uint32(i+1), buf.buf, 0, alignedSize(buf.size)))
	}

	bindGroupLayout := kern.pipeline.GetBindGroupLayout(0)
	bindGroup := d.device.CreateBindGroupSimple(bindGroupLayout, entries)
	defer bindGroup.Release()

	encoder := d.device.CreateCommandEncoder(nil)
	computePass := encoder.BeginComputePass(nil)
	computePass.SetPipeline(kern.pipeline)
	computePass.SetBindGroup(0, bindGroup, nil)
	x, y := workgroups(invocations)
	computePass.DispatchWorkgroups(x, y, 1)
	computePass.End()

	cmdBuffer := encoder.Finish(nil)
	d.queue.Submit(cmdBuffer)
	return nil
}

// createUniformBuffer uploads the params block. Its size is already a
// multiple of 16.
func (d *Device) createUniformBuffer(data []byte) *wgpu.Buffer {
	size := uint64(len(data))
	buf := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	mappedPtr := buf.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(unsafe.Slice((*byte)(mappedPtr), size), data)
	buf.Unmap()
	return buf
}

// workgroups splits the invocation count over x and y so neither exceeds the
// per-dimension limit. Shaders linearise with num_workgroups.x.
func workgroups(invocations int) (x, y uint32) {
	groups := (invocations + workgroupSize - 1) / workgroupSize
	if groups <= maxWorkgroupsPerDim {
		//nolint:gosec // G115: bounded by maxWorkgroupsPerDim
		return uint32(groups), 1
	}
	rows := (groups + maxWorkgroupsPerDim - 1) / maxWorkgroupsPerDim
	//nolint:gosec // G115: rows is bounded by invocations / 2^24
	return maxWorkgroupsPerDim, uint32(rows)
}

func alignedSize(n int) uint64 {
	if n < minBufferSize {
		n = minBufferSize
	}
	//nolint:gosec // G115: n is non-negative
	return uint64((n + 3) &^ 3)
}

func own(b device.Buffer) (*buffer, error) {
	buf, ok := b.(*buffer)
	if !ok {
		return nil, fmt.Errorf("webgpu: foreign buffer %T", b)
	}
	if buf.released {
		return nil, device.ErrReleased
	}
	return buf, nil
}
