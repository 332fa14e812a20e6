package ops

import (
	"unsafe"

	"github.com/born-ml/nnue/internal/device"
	"github.com/born-ml/nnue/internal/loader"
)

// binding is one buffer slot of a dispatch. data is staged into a fresh device
// buffer (a zeroed buffer of size bytes when data is nil); when back is set the
// device buffer is copied into it after the kernel completes.
type binding struct {
	data []byte
	size int
	back []byte
}

// input stages a read-only float slice.
func input(v []float32) binding {
	b := floatBytes(v)
	return binding{data: b, size: len(b)}
}

// inout stages a float slice and copies the kernel's result back into it.
func inout(v []float32) binding {
	b := floatBytes(v)
	return binding{data: b, size: len(b), back: b}
}

// output allocates zeroed device memory for v and copies the result back.
func output(v []float32) binding {
	b := floatBytes(v)
	return binding{size: len(b), back: b}
}

// feats stages feature lists in their packed word layout.
func feats(v []loader.Feat) binding {
	b := loader.FeatBytes(v)
	return binding{data: b, size: len(b)}
}

// buckets widens one byte per sample to the word kernels index with.
func buckets(v []uint8) binding {
	words := make([]uint32, len(v))
	for i, bucket := range v {
		words[i] = uint32(bucket)
	}
	b := wordBytes(words)
	return binding{data: b, size: len(b)}
}

// stage allocates device buffers for bindings in order. On error every buffer
// staged so far is released.
func stage(dev device.Device, bindings []binding) ([]device.Buffer, int, error) {
	bufs := make([]device.Buffer, 0, len(bindings))
	staged := 0
	for _, b := range bindings {
		var (
			buf device.Buffer
			err error
		)
		if b.data != nil {
			buf, err = dev.NewBufferWithData(b.data)
			staged += len(b.data)
		} else {
			buf, err = dev.NewBuffer(b.size)
		}
		if err != nil {
			release(bufs)
			return nil, 0, err
		}
		bufs = append(bufs, buf)
	}
	return bufs, staged, nil
}

// readBack copies every output binding from its device buffer.
func readBack(dev device.Device, bindings []binding, bufs []device.Buffer) (int, error) {
	read := 0
	for i, b := range bindings {
		if b.back == nil {
			continue
		}
		if err := dev.ReadBuffer(bufs[i], b.back); err != nil {
			return read, err
		}
		read += len(b.back)
	}
	return read, nil
}

func release(bufs []device.Buffer) {
	for _, b := range bufs {
		b.Release()
	}
}

// floatBytes views v as bytes without copying.
func floatBytes(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy conversion, length derived from len(v)
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*4)
}

// wordBytes views v as bytes without copying.
func wordBytes(v []uint32) []byte {
	if len(v) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy conversion, length derived from len(v)
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*4)
}
