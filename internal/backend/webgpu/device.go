//go:build windows

// Package webgpu implements a compute device on WebGPU.
// Uses go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO WebGPU bindings.
package webgpu

import (
	"fmt"
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/born-ml/nnue/internal/device"
)

// Device runs the kernel catalog as WGSL compute pipelines.
type Device struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	// Compiled library, built once in New.
	library map[string]*kernel
	// Compile failures by kernel name, reported by Function.
	compileErrs map[string]error

	// Readback staging buffers are reused; storage buffers never are.
	staging *BufferPool

	mu       sync.Mutex
	released bool
}

// Compile-time check that Device implements device.Device.
var _ device.Device = (*Device)(nil)

// New opens the default high performance adapter and compiles every kernel.
// Returns an error if WebGPU is not available or initialization fails; a
// kernel that fails to compile is reported when it is resolved.
func New() (d *Device, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			d = nil
			err = fmt.Errorf("webgpu: native library not available: %v: %w", r, device.ErrUnavailable)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		// Fall back to whatever adapter the platform offers.
		adapter, adapterErr = instance.RequestAdapter(nil)
	}
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request adapter: %w", adapterErr)
	}

	gpu, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request device: %w", deviceErr)
	}

	queue := gpu.GetQueue()
	if queue == nil {
		gpu.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to get queue")
	}

	d = &Device{
		instance:    instance,
		adapter:     adapter,
		device:      gpu,
		queue:       queue,
		library:     make(map[string]*kernel, len(shaderSources)),
		compileErrs: make(map[string]error),
		staging:     NewBufferPool(gpu),
	}
	d.compileLibrary()
	return d, nil
}

// Open is New returning the device.Device interface.
func Open() (device.Device, error) {
	d, err := New()
	if err != nil {
		return nil, err
	}
	return d, nil
}

// IsAvailable checks if WebGPU is available on this system.
func IsAvailable() (available bool) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()
	return true
}

// Name returns the device name.
func (d *Device) Name() string {
	return "WebGPU"
}

// Function resolves a compiled kernel by name.
func (d *Device) Function(name string) (device.Kernel, error) {
	if k, ok := d.library[name]; ok {
		return k, nil
	}
	if err, ok := d.compileErrs[name]; ok {
		return nil, fmt.Errorf("webgpu: %s failed to compile: %w", name, err)
	}
	return nil, fmt.Errorf("webgpu: library has no function %q", name)
}

// Release releases all WebGPU resources.
func (d *Device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return
	}
	d.released = true

	d.staging.Clear()
	for _, k := range d.library {
		k.pipeline.Release()
		k.shader.Release()
	}
	d.library = nil

	d.queue.Release()
	d.device.Release()
	d.adapter.Release()
	d.instance.Release()
}

func (d *Device) alive() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return device.ErrReleased
	}
	return nil
}

// kernel is a compiled compute pipeline.
type kernel struct {
	name     string
	bindings int
	shader   *wgpu.ShaderModule
	pipeline *wgpu.ComputePipeline
}

func (k *kernel) Name() string {
	return k.name
}

// compileLibrary compiles every shader into a pipeline with entry point main.
func (d *Device) compileLibrary() {
	for name, src := range shaderSources {
		k, err := d.compile(name, src)
		if err != nil {
			d.compileErrs[name] = err
			continue
		}
		d.library[name] = k
	}
}

func (d *Device) compile(name string, src shaderSource) (k *kernel, err error) {
	defer func() {
		if r := recover(); r != nil {
			k, err = nil, fmt.Errorf("%v", r)
		}
	}()

	shader := d.device.CreateShaderModuleWGSL(src.code())
	pipeline := d.device.CreateComputePipelineSimple(nil, shader, "main")
	return &kernel{name: name, bindings: src.bindings(), shader: shader, pipeline: pipeline}, nil
}
