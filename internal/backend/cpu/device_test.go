package cpu

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/nnue/internal/device"
	"github.com/born-ml/nnue/internal/kernels"
	"github.com/born-ml/nnue/internal/loader"
)

func f32Bytes(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*4)
}

func u32Bytes(v []uint32) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*4)
}

// dispatch runs op on d with the given buffer contents and returns every
// buffer read back as float32.
func dispatch(t *testing.T, d *Device, op kernels.Op, p kernels.Params, data ...[]byte) [][]float32 {
	t.Helper()

	k, err := d.Function(op.String())
	require.NoError(t, err)

	bufs := make([]device.Buffer, len(data))
	for i, b := range data {
		bufs[i], err = d.NewBufferWithData(b)
		require.NoError(t, err)
	}
	params, err := p.MarshalBinary()
	require.NoError(t, err)
	require.NoError(t, d.Dispatch(k, params, bufs, kernels.Invocations(op, &p)))

	out := make([][]float32, len(bufs))
	for i, b := range bufs {
		out[i] = make([]float32, b.Size()/4)
		require.NoError(t, d.ReadBuffer(b, f32Bytes(out[i])))
		b.Release()
	}
	return out
}

func TestDevice_LibraryCoversCatalog(t *testing.T) {
	d := New(Config{Workers: 2})
	defer d.Release()

	c, err := kernels.NewCatalog(d)
	require.NoError(t, err)
	for _, op := range kernels.Ops() {
		assert.Equal(t, op.String(), c.Kernel(op).Name())
	}
	assert.Equal(t, "CPU (2 workers)", d.Name())

	_, err = d.Function("softmax")
	assert.Error(t, err)
}

func TestDevice_DefaultWorkers(t *testing.T) {
	d := New(Config{})
	assert.Positive(t, d.Workers())
}

func TestDevice_Buffers(t *testing.T) {
	d := New(Config{})

	buf, err := d.NewBuffer(10)
	require.NoError(t, err)
	assert.Equal(t, 10, buf.Size())

	dst := make([]byte, 10)
	require.NoError(t, d.ReadBuffer(buf, dst))
	assert.Equal(t, make([]byte, 10), dst, "new buffers are zeroed")

	assert.Error(t, d.ReadBuffer(buf, make([]byte, 11)))

	_, err = d.NewBuffer(-1)
	assert.Error(t, err)

	buf.Release()
	assert.ErrorIs(t, d.ReadBuffer(buf, dst), device.ErrReleased)

	d.Release()
	_, err = d.NewBuffer(4)
	assert.ErrorIs(t, err, device.ErrReleased)
}

func TestDevice_DispatchErrors(t *testing.T) {
	d := New(Config{})
	k, err := d.Function(kernels.AddTo.String())
	require.NoError(t, err)

	p := kernels.Params{Size: 1}
	params, err := p.MarshalBinary()
	require.NoError(t, err)

	a, err := d.NewBuffer(4)
	require.NoError(t, err)

	// Wrong arity.
	assert.Error(t, d.Dispatch(k, params, []device.Buffer{a}, 1))
	// Short params block.
	assert.Error(t, d.Dispatch(k, params[:8], []device.Buffer{a, a}, 1))

	b, err := d.NewBuffer(4)
	require.NoError(t, err)
	b.Release()
	assert.ErrorIs(t, d.Dispatch(k, params, []device.Buffer{a, b}, 1), device.ErrReleased)
}

// TestDevice_KernelPanicBecomesError checks that an out-of-range access in a
// worker is reported instead of crashing the process.
func TestDevice_KernelPanicBecomesError(t *testing.T) {
	d := New(Config{})
	k, err := d.Function(kernels.AddTo.String())
	require.NoError(t, err)

	p := kernels.Params{Size: 8}
	params, err := p.MarshalBinary()
	require.NoError(t, err)

	a, err := d.NewBuffer(4)
	require.NoError(t, err)
	b, err := d.NewBuffer(4)
	require.NoError(t, err)

	err = d.Dispatch(k, params, []device.Buffer{a, b}, 8)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "addTo")
}

func TestDevice_Elementwise(t *testing.T) {
	d := New(Config{})
	inp := []float32{-1, 0, 0.25, 0.5, 1, 2}

	tests := []struct {
		op   kernels.Op
		out  []float32
		want []float32
	}{
		{kernels.ActivateReLU, make([]float32, 6), []float32{0, 0, 0.25, 0.5, 1, 2}},
		{kernels.ActivateCReLU, make([]float32, 6), []float32{0, 0, 0.25, 0.5, 1, 1}},
		{kernels.ActivateSCReLU, make([]float32, 6), []float32{0, 0, 0.0625, 0.25, 1, 1}},
		{kernels.BackpropReLU, []float32{1, 1, 1, 1, 1, 1}, []float32{0, 0, 1, 1, 1, 1}},
		{kernels.BackpropCReLU, []float32{1, 1, 1, 1, 1, 1}, []float32{0, 0, 1, 1, 0, 0}},
		{kernels.BackpropSCReLU, []float32{2, 2, 2, 2, 2, 2}, []float32{0, 0, 1, 2, 0, 0}},
		{kernels.AddTo, []float32{1, 1, 1, 1, 1, 1}, []float32{0, 1, 1.25, 1.5, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			p := kernels.Params{Size: uint32(len(inp))}
			got := dispatch(t, d, tt.op, p, f32Bytes(inp), f32Bytes(tt.out))
			assert.InDeltaSlice(t, tt.want, got[1], 1e-6)
			assert.Equal(t, inp, got[0], "input is not written")
		})
	}
}

func TestDevice_SparseForward(t *testing.T) {
	d := New(Config{})

	// 3 features × 2 outputs.
	weights := []float32{1, 2, 10, 20, 100, 200}
	biases := []float32{0.5, -0.5}
	inputs := []uint32{
		loader.Feat{Our: 0, Opp: 2}.Word(), loader.Feat{Our: 1, Opp: 1}.Word(),
		loader.End.Word(), loader.Feat{Our: 2, Opp: 0}.Word(),
	}
	p := kernels.Params{BatchSize: 2, MaxActive: 2, OutputSize: 2}

	got := dispatch(t, d, kernels.SparseAffineForward, p,
		f32Bytes(weights), f32Bytes(biases), u32Bytes(inputs), f32Bytes(make([]float32, 8)))
	assert.Equal(t, []float32{
		11.5, 21.5, 110.5, 219.5,
		0.5, -0.5, 0.5, -0.5,
	}, got[3])

	got = dispatch(t, d, kernels.SingleSparseAffineForward, p,
		f32Bytes(weights), f32Bytes(biases), u32Bytes(inputs), f32Bytes(make([]float32, 4)))
	assert.Equal(t, []float32{11.5, 21.5, 0.5, -0.5}, got[3])
}

func TestDevice_SparseBackward(t *testing.T) {
	d := New(Config{})

	inputs := []uint32{
		loader.Feat{Our: 0, Opp: 1}.Word(),
		loader.Feat{Our: 1, Opp: 0}.Word(),
	}
	errs := []float32{1, 2, 3, 4, 10, 20, 30, 40}
	acts := []float32{1, 1, 1, 1, 0, 0, 0, 0}
	p := kernels.Params{BatchSize: 2, MaxActive: 1, InputSize: 2, OutputSize: 2, FTReg: 0.5}

	got := dispatch(t, d, kernels.SparseAffineBackward, p,
		f32Bytes(make([]float32, 4)), f32Bytes([]float32{100, 100}),
		u32Bytes(inputs), f32Bytes(errs), f32Bytes(acts))

	// Sample 0 errors: our 1.5 2.5, opp 3.5 4.5. Sample 1: our 10 20, opp 30 40.
	assert.InDeltaSlice(t, []float32{1.5 + 30, 2.5 + 40, 3.5 + 10, 4.5 + 20}, got[0], 1e-5)
	assert.InDeltaSlice(t, []float32{100 + 1.5 + 3.5 + 10 + 30, 100 + 2.5 + 4.5 + 20 + 40}, got[1], 1e-5)
}

func TestDevice_Dense(t *testing.T) {
	d := New(Config{})

	// A is 2×3.
	a := []float32{1, 2, 3, 4, 5, 6}

	t.Run("MatrixVector", func(t *testing.T) {
		x := []float32{1, 0, 0, 1, 1, 1}
		p := kernels.Params{M: 2, N: 3, BatchSize: 2}
		got := dispatch(t, d, kernels.SplatMulMatrixVector, p, f32Bytes(a), f32Bytes(x), f32Bytes(make([]float32, 4)))
		assert.Equal(t, []float32{1, 4, 6, 15}, got[2])
	})

	t.Run("MatrixTVector", func(t *testing.T) {
		y := []float32{1, 0, 1, 1}
		p := kernels.Params{M: 2, N: 3, BatchSize: 2}
		got := dispatch(t, d, kernels.SplatMulMatrixTVector, p, f32Bytes(a), f32Bytes(y), f32Bytes(make([]float32, 6)))
		assert.Equal(t, []float32{1, 2, 3, 5, 7, 9}, got[2])
	})

	t.Run("OuterProduct", func(t *testing.T) {
		y := []float32{1, 2, 1, 0}
		x := []float32{1, 0, 1, 0, 1, 0}
		acc := []float32{1, 1, 1, 1, 1, 1}
		p := kernels.Params{M: 2, N: 3, BatchSize: 2}
		got := dispatch(t, d, kernels.ReduceAddMulVectorVectorT, p, f32Bytes(y), f32Bytes(x), f32Bytes(acc))
		// y0·x0ᵀ = [1 0 1; 2 0 2], y1·x1ᵀ = [0 1 0; 0 0 0].
		assert.Equal(t, []float32{2, 2, 2, 3, 1, 3}, got[2])
	})

	t.Run("ReduceAdd", func(t *testing.T) {
		inp := []float32{1, 2, 3, 10, 20, 30}
		p := kernels.Params{BatchSize: 2, OutputSize: 3}
		got := dispatch(t, d, kernels.ReduceAdd, p, f32Bytes(inp), f32Bytes([]float32{9, 9, 9}))
		assert.Equal(t, []float32{11, 22, 33}, got[1])
	})

	t.Run("SplatAdd", func(t *testing.T) {
		p := kernels.Params{BatchSize: 2, Size: 2}
		got := dispatch(t, d, kernels.SplatAdd, p, f32Bytes([]float32{1, 2}), f32Bytes([]float32{0, 0, 10, 10}))
		assert.Equal(t, []float32{1, 2, 11, 12}, got[1])
	})
}

func TestDevice_Select(t *testing.T) {
	d := New(Config{})

	buckets := []uint32{1, 0}
	inp := []float32{1, 2, 3, 4, 5, 6, 7, 8}
	p := kernels.Params{BatchSize: 2, InputSize: 4, OutputSize: 2}

	got := dispatch(t, d, kernels.Select, p, u32Bytes(buckets), f32Bytes(inp), f32Bytes(make([]float32, 4)))
	assert.Equal(t, []float32{3, 4, 5, 6}, got[2])

	grad := []float32{1, 2, 3, 4}
	stale := []float32{9, 9, 9, 9, 9, 9, 9, 9}
	got = dispatch(t, d, kernels.SelectBackprop, p, u32Bytes(buckets), f32Bytes(grad), f32Bytes(stale))
	assert.Equal(t, []float32{0, 0, 1, 2, 3, 4, 0, 0}, got[2])
}

func TestDevice_SigmoidMPE(t *testing.T) {
	d := New(Config{})

	outputs := []float32{0, 0}
	results := []float32{0.5, 0}
	p := kernels.Params{Size: 2, Power: 2}
	got := dispatch(t, d, kernels.SigmoidMPE, p, f32Bytes(outputs), f32Bytes(results), f32Bytes(make([]float32, 2)))

	// σ(0) = 0.5: d = 0 for the first element, 0.5 for the second.
	assert.InDeltaSlice(t, []float32{0, 0.5 * 0.25}, got[0], 1e-6)
	assert.InDeltaSlice(t, []float32{0, 0.25}, got[2], 1e-6)

	p.Flags = kernels.FlagScaleByPower
	got = dispatch(t, d, kernels.SigmoidMPE, p, f32Bytes(outputs), f32Bytes(results), f32Bytes(make([]float32, 2)))
	assert.InDeltaSlice(t, []float32{0, 2 * 0.5 * 0.25}, got[0], 1e-6)
}

func TestDevice_UpdateWeights(t *testing.T) {
	d := New(Config{})
	p := kernels.Params{Size: 3, Adj: 1, Rate: 0.1, Beta1: 0.9, Beta2: 0.999, Epsilon: 1e-8, MaxWeight: 1.98}

	network := []float32{0.5, 1.97, -1.97}
	grads := []float32{1, -1, 1}
	got := dispatch(t, d, kernels.UpdateWeights, p,
		f32Bytes(network), f32Bytes(make([]float32, 3)), f32Bytes(make([]float32, 3)), f32Bytes(grads))

	// First step: m = 0.1g, v = 0.001g², so the step is rate·sign(g)·0.1/√0.001.
	step := float32(0.1 * 0.1 / 0.0316227766)
	assert.InDelta(t, 0.5-step, got[0][0], 1e-4)
	assert.Equal(t, float32(1.98), got[0][1], "clipped to max weight")
	assert.Equal(t, float32(-1.98), got[0][2], "clipped to -max weight")
	assert.InDeltaSlice(t, []float32{0.1, -0.1, 0.1}, got[1], 1e-6)
	assert.InDeltaSlice(t, []float32{0.001, 0.001, 0.001}, got[2], 1e-7)
}

// TestDevice_WorkerIndependence runs the same dispatches with one and many
// workers; every kernel writes disjoint addresses, so results are identical.
func TestDevice_WorkerIndependence(t *testing.T) {
	const (
		batch     = 7
		maxActive = 5
		inputs    = 40
		outSize   = 300
	)
	weights := make([]float32, inputs*outSize)
	for i := range weights {
		weights[i] = float32(i%17) * 0.125
	}
	biases := make([]float32, outSize)
	for i := range biases {
		biases[i] = float32(i%5) - 2
	}
	feats := make([]uint32, batch*maxActive)
	for b := 0; b < batch; b++ {
		for k := 0; k < maxActive; k++ {
			f := loader.Feat{Our: uint16((b*7 + k*3) % inputs), Opp: uint16((b*11 + k) % inputs)}
			if k > b {
				f = loader.End
			}
			feats[b*maxActive+k] = f.Word()
		}
	}
	errs := make([]float32, batch*2*outSize)
	for i := range errs {
		errs[i] = float32(i%9) - 4
	}

	run := func(workers int) ([]float32, []float32, []float32) {
		d := New(Config{Workers: workers})
		fwd := dispatch(t, d, kernels.SparseAffineForward,
			kernels.Params{BatchSize: batch, MaxActive: maxActive, OutputSize: outSize},
			f32Bytes(weights), f32Bytes(biases), u32Bytes(feats), f32Bytes(make([]float32, batch*2*outSize)))
		bwd := dispatch(t, d, kernels.SparseAffineBackward,
			kernels.Params{BatchSize: batch, MaxActive: maxActive, InputSize: inputs, OutputSize: outSize, FTReg: 0.01},
			f32Bytes(make([]float32, inputs*outSize)), f32Bytes(make([]float32, outSize)),
			u32Bytes(feats), f32Bytes(errs), f32Bytes(fwd[3]))
		return fwd[3], bwd[0], bwd[1]
	}

	out1, wg1, bg1 := run(1)
	out8, wg8, bg8 := run(8)
	assert.Equal(t, out1, out8)
	assert.Equal(t, wg1, wg8)
	assert.Equal(t, bg1, bg8)
}

func TestForRows(t *testing.T) {
	type span struct{ row, c0, c1 int }
	var got []span
	forRows(3, 11, 4, func(row, c0, c1 int) {
		got = append(got, span{row, c0, c1})
	})
	assert.Equal(t, []span{{0, 3, 4}, {1, 0, 4}, {2, 0, 3}}, got)
}
