package loader

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeat_Word(t *testing.T) {
	f := Feat{Our: 0x1234, Opp: 0xABCD}
	assert.Equal(t, uint32(0xABCD1234), f.Word())
	assert.Equal(t, f, FeatFromWord(f.Word()))

	assert.True(t, End.IsEnd())
	assert.True(t, Feat{Our: Sentinel, Opp: 3}.IsEnd(), "only Our terminates")
	assert.False(t, Feat{Our: 3, Opp: Sentinel}.IsEnd())
}

// TestFeatBytes_Layout checks that the zero-copy view matches the packed
// words the kernels decode.
func TestFeatBytes_Layout(t *testing.T) {
	feats := []Feat{{Our: 1, Opp: 2}, {Our: 700, Opp: 40000}, End}
	data := FeatBytes(feats)
	require.Len(t, data, 12)

	for i, f := range feats {
		assert.Equal(t, f.Word(), binary.LittleEndian.Uint32(data[i*4:]))
	}
	assert.Nil(t, FeatBytes(nil))
}

func TestBatch_SetSample(t *testing.T) {
	b := NewBatch(3, 4)
	require.Len(t, b.Inputs, 12)
	for i := 0; i < b.Size; i++ {
		assert.Empty(t, b.Active(i))
	}

	feats := []Feat{{Our: 5, Opp: 9}, {Our: 6, Opp: 10}}
	require.NoError(t, b.SetSample(1, feats, 7))
	assert.Equal(t, feats, b.Active(1))
	assert.Equal(t, []Feat{feats[0], feats[1], End, End}, b.Sample(1))
	assert.Equal(t, uint8(7), b.Buckets[1])

	// A shorter list clears the old tail.
	require.NoError(t, b.SetSample(1, feats[:1], 0))
	assert.Equal(t, feats[:1], b.Active(1))

	full := []Feat{{Our: 1}, {Our: 2}, {Our: 3}, {Our: 4}}
	require.NoError(t, b.SetSample(2, full, 0))
	assert.Equal(t, full, b.Active(2))
}

func TestBatch_SetSampleErrors(t *testing.T) {
	b := NewBatch(2, 2)

	assert.Error(t, b.SetSample(2, nil, 0))
	assert.Error(t, b.SetSample(-1, nil, 0))
	assert.Error(t, b.SetSample(0, []Feat{{Our: 1}, {Our: 2}, {Our: 3}}, 0))
	assert.Error(t, b.SetSample(0, []Feat{End}, 0))
}
