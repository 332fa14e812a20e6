package cpu

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/born-ml/nnue/internal/kernels"
)

// splatMulMatrixVector computes y_b = A·x_b. Buffers: a (m×n), x (batch×n),
// y (batch×m). Invocation b*m+r writes y[b][r].
func splatMulMatrixVector(p *kernels.Params, bufs []*buffer, lo, hi int) {
	a, x, y := bufs[0].f32(), bufs[1].f32(), bufs[2].f32()
	m, n := int(p.M), int(p.N)

	forRows(lo, hi, m, func(sample, r0, r1 int) {
		out := y[sample*m+r0 : sample*m+r1]
		if n == 0 {
			clear(out)
			return
		}
		blas32.Gemv(blas.NoTrans, 1,
			blas32.General{Rows: r1 - r0, Cols: n, Stride: n, Data: a[r0*n:]},
			blas32.Vector{N: n, Inc: 1, Data: x[sample*n : (sample+1)*n]},
			0,
			blas32.Vector{N: r1 - r0, Inc: 1, Data: out},
		)
	})
}

// splatMulMatrixTVector computes x_b = Aᵀ·y_b. Buffers: a (m×n), y (batch×m),
// x (batch×n). Invocation b*n+c writes x[b][c].
func splatMulMatrixTVector(p *kernels.Params, bufs []*buffer, lo, hi int) {
	a, y, x := bufs[0].f32(), bufs[1].f32(), bufs[2].f32()
	m, n := int(p.M), int(p.N)

	forRows(lo, hi, n, func(sample, c0, c1 int) {
		out := x[sample*n+c0 : sample*n+c1]
		if m == 0 {
			clear(out)
			return
		}
		blas32.Gemv(blas.Trans, 1,
			blas32.General{Rows: m, Cols: c1 - c0, Stride: n, Data: a[c0:]},
			blas32.Vector{N: m, Inc: 1, Data: y[sample*m : (sample+1)*m]},
			0,
			blas32.Vector{N: c1 - c0, Inc: 1, Data: out},
		)
	})
}

// reduceAddMulVectorVectorT accumulates A += Σ_b y_b·x_bᵀ. Buffers: y
// (batch×m), x (batch×n), a (m×n). Invocation r owns row r of A.
func reduceAddMulVectorVectorT(p *kernels.Params, bufs []*buffer, lo, hi int) {
	y, x, a := bufs[0].f32(), bufs[1].f32(), bufs[2].f32()
	m, n, batch := int(p.M), int(p.N), int(p.BatchSize)
	if batch == 0 || n == 0 {
		return
	}

	rows := hi - lo
	blas32.Gemm(blas.Trans, blas.NoTrans, 1,
		blas32.General{Rows: batch, Cols: rows, Stride: m, Data: y[lo:]},
		blas32.General{Rows: batch, Cols: n, Stride: n, Data: x},
		1,
		blas32.General{Rows: rows, Cols: n, Stride: n, Data: a[lo*n:]},
	)
}

// reduceAdd sums a batch of vectors: out[j] = Σ_b inp[b*size+j]. Buffers:
// inp, out. Invocation j writes out[j].
func reduceAdd(p *kernels.Params, bufs []*buffer, lo, hi int) {
	inp, out := bufs[0].f32(), bufs[1].f32()
	size, batch := int(p.OutputSize), int(p.BatchSize)

	acc := out[lo:hi]
	clear(acc)
	for b := 0; b < batch; b++ {
		blas32.Axpy(1,
			blas32.Vector{N: hi - lo, Inc: 1, Data: inp[b*size+lo : b*size+hi]},
			blas32.Vector{N: hi - lo, Inc: 1, Data: acc},
		)
	}
}

// splatAdd adds inp to every sample of out. Buffers: inp (size), out
// (batch×size). Invocation b*size+j writes out[b][j].
func splatAdd(p *kernels.Params, bufs []*buffer, lo, hi int) {
	inp, out := bufs[0].f32(), bufs[1].f32()
	size := int(p.Size)

	forRows(lo, hi, size, func(sample, c0, c1 int) {
		row := out[sample*size+c0 : sample*size+c1]
		for j := range row {
			row[j] += inp[c0+j]
		}
	})
}

// selectBucket copies each sample's bucket slice. Buffers: buckets (one word
// per sample), inp (batch×inputSize), out (batch×outputSize).
func selectBucket(p *kernels.Params, bufs []*buffer, lo, hi int) {
	buckets, inp, out := bufs[0].u32(), bufs[1].f32(), bufs[2].f32()
	inSize, outSize := int(p.InputSize), int(p.OutputSize)

	forRows(lo, hi, outSize, func(sample, c0, c1 int) {
		start := sample*inSize + int(buckets[sample])*outSize
		copy(out[sample*outSize+c0:sample*outSize+c1], inp[start+c0:start+c1])
	})
}

// selectBackprop scatters each sample's gradient into its bucket slice and
// zeroes the rest. Buffers: buckets, inp (batch×outputSize), out
// (batch×inputSize). Invocation b*inputSize+k writes out[b][k].
func selectBackprop(p *kernels.Params, bufs []*buffer, lo, hi int) {
	buckets, inp, out := bufs[0].u32(), bufs[1].f32(), bufs[2].f32()
	inSize, outSize := int(p.InputSize), int(p.OutputSize)

	forRows(lo, hi, inSize, func(sample, c0, c1 int) {
		start := int(buckets[sample]) * outSize
		for k := c0; k < c1; k++ {
			if k >= start && k < start+outSize {
				out[sample*inSize+k] = inp[sample*outSize+k-start]
			} else {
				out[sample*inSize+k] = 0
			}
		}
	})
}
