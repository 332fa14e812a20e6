package loader

import (
	"fmt"
	"unsafe"
)

// Sentinel marks the end of a sample's active features when the list is
// shorter than the batch's max active inputs.
const Sentinel uint16 = 0xFFFF

// Feat is one active sparse input of a sample, seen from the side to move
// (Our) and from the opponent (Opp). Its value is implicitly 1.
type Feat struct {
	Our uint16
	Opp uint16
}

// End is the terminating Feat.
var End = Feat{Our: Sentinel, Opp: Sentinel}

// IsEnd reports whether f terminates a feature list.
func (f Feat) IsEnd() bool {
	return f.Our == Sentinel
}

// Word packs f into the 32-bit layout kernels read: Our in the low half,
// Opp in the high half.
func (f Feat) Word() uint32 {
	return uint32(f.Our) | uint32(f.Opp)<<16
}

// FeatFromWord is the inverse of Feat.Word.
func FeatFromWord(w uint32) Feat {
	return Feat{Our: uint16(w), Opp: uint16(w >> 16)}
}

// FeatBytes views feats as raw bytes without copying. The layout equals a
// little-endian sequence of Feat.Word values.
func FeatBytes(feats []Feat) []byte {
	if len(feats) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy conversion, length derived from len(feats)
	return unsafe.Slice((*byte)(unsafe.Pointer(&feats[0])), len(feats)*int(unsafe.Sizeof(Feat{})))
}

// Batch is a fixed-width block of per-sample feature lists ready for the
// sparse affine kernels: sample i owns Inputs[i*MaxActive : (i+1)*MaxActive].
type Batch struct {
	Size      int
	MaxActive int
	Inputs    []Feat
	Buckets   []uint8
}

// NewBatch allocates a batch whose lists are all empty.
func NewBatch(size, maxActive int) *Batch {
	inputs := make([]Feat, size*maxActive)
	for i := range inputs {
		inputs[i] = End
	}
	return &Batch{
		Size:      size,
		MaxActive: maxActive,
		Inputs:    inputs,
		Buckets:   make([]uint8, size),
	}
}

// SetSample replaces the features of sample i. Unused slots are filled with
// End so kernels stop early.
func (b *Batch) SetSample(i int, feats []Feat, bucket uint8) error {
	if i < 0 || i >= b.Size {
		return fmt.Errorf("loader: sample %d out of range [0, %d)", i, b.Size)
	}
	if len(feats) > b.MaxActive {
		return fmt.Errorf("loader: sample %d has %d active features, max %d", i, len(feats), b.MaxActive)
	}
	for _, f := range feats {
		if f.IsEnd() {
			return fmt.Errorf("loader: sample %d uses reserved feature index %d", i, Sentinel)
		}
	}

	row := b.Sample(i)
	n := copy(row, feats)
	for j := n; j < len(row); j++ {
		row[j] = End
	}
	b.Buckets[i] = bucket
	return nil
}

// Sample returns the padded feature list of sample i.
func (b *Batch) Sample(i int) []Feat {
	return b.Inputs[i*b.MaxActive : (i+1)*b.MaxActive]
}

// Active returns the features of sample i up to the first End.
func (b *Batch) Active(i int) []Feat {
	row := b.Sample(i)
	for j, f := range row {
		if f.IsEnd() {
			return row[:j]
		}
	}
	return row
}
