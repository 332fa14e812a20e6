//go:build windows

package webgpu

import (
	"testing"

	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/nnue/internal/backend/cpu"
	"github.com/born-ml/nnue/internal/kernels"
	"github.com/born-ml/nnue/internal/loader"
	"github.com/born-ml/nnue/internal/ops"
)

func newTestDevice(t *testing.T) *Device {
	t.Helper()
	if !IsAvailable() {
		t.Skip("WebGPU not available")
	}
	d, err := New()
	if err != nil {
		t.Skipf("WebGPU not available: %v", err)
	}
	t.Cleanup(d.Release)
	return d
}

func TestShaderSources_CoverCatalog(t *testing.T) {
	for _, op := range kernels.Ops() {
		src, ok := shaderSources[op.String()]
		require.True(t, ok, "no shader for %s", op)
		assert.Contains(t, src.code(), "fn main(")
		assert.NotZero(t, src.bindings())
	}
	assert.Len(t, shaderSources, int(kernels.NumOps))
}

func TestWorkgroups(t *testing.T) {
	tests := []struct {
		n    int
		x, y uint32
	}{
		{1, 1, 1},
		{256, 1, 1},
		{257, 2, 1},
		{256 * 65535, 65535, 1},
		{256*65535 + 1, 65535, 2},
	}
	for _, tt := range tests {
		x, y := workgroups(tt.n)
		assert.Equal(t, tt.x, x, "n=%d", tt.n)
		assert.Equal(t, tt.y, y, "n=%d", tt.n)
	}
}

func TestAlignedSize(t *testing.T) {
	assert.Equal(t, uint64(4), alignedSize(0))
	assert.Equal(t, uint64(8), alignedSize(5))
	assert.Equal(t, uint64(80), alignedSize(80))
}

func TestDevice_CompilesCatalog(t *testing.T) {
	d := newTestDevice(t)
	_, err := kernels.NewCatalog(d)
	require.NoError(t, err)
}

func TestBufferPool_Reuse(t *testing.T) {
	d := newTestDevice(t)
	usage := wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst

	buf := d.staging.Acquire(1024, usage)
	d.staging.Release(buf, 1024, usage)
	again := d.staging.Acquire(512, usage)
	d.staging.Release(again, 1024, usage)

	allocated, hits, misses, pooled := d.staging.Stats()
	assert.Equal(t, uint64(1), allocated)
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
	assert.Equal(t, 1, pooled)
}

// TestDevice_MatchesCPU runs the same operations on both devices.
func TestDevice_MatchesCPU(t *testing.T) {
	gpu, err := ops.New(newTestDevice(t), ops.Config{Debug: true})
	require.NoError(t, err)
	ref, err := ops.New(cpu.New(cpu.Config{}), ops.Config{Debug: true})
	require.NoError(t, err)
	defer ref.Close()

	const batch, maxActive, inputs, hidden = 3, 4, 16, 300
	b := loader.NewBatch(batch, maxActive)
	require.NoError(t, b.SetSample(0, []loader.Feat{{Our: 1, Opp: 2}, {Our: 15, Opp: 0}}, 0))
	require.NoError(t, b.SetSample(2, []loader.Feat{{Our: 7, Opp: 8}}, 0))

	weights := make([]float32, inputs*hidden)
	for i := range weights {
		weights[i] = float32(i%11)*0.0625 - 0.25
	}
	biases := make([]float32, hidden)

	run := func(h *ops.Handle) ([]float32, []float32, []float32) {
		acc := make([]float32, batch*2*hidden)
		h.SparseAffineForward(batch, maxActive, hidden, weights, biases, b.Inputs, acc)
		act := make([]float32, len(acc))
		h.ActivateSCReLU(len(acc), acc, act)

		errs := append([]float32(nil), act...)
		wGrad := make([]float32, inputs*hidden)
		bGrad := make([]float32, hidden)
		h.SparseAffineBackward(batch, maxActive, inputs, hidden, wGrad, bGrad, b.Inputs, errs, acc, 0.01)
		return act, wGrad, bGrad
	}

	gAct, gW, gB := run(gpu)
	cAct, cW, cB := run(ref)
	assert.InDeltaSlice(t, cAct, gAct, 1e-5)
	assert.InDeltaSlice(t, cW, gW, 1e-4)
	assert.InDeltaSlice(t, cB, gB, 1e-4)
}
