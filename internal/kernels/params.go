package kernels

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ParamsSize is the encoded size of Params in bytes. It is a multiple of 16
// so the block can be bound as a uniform buffer.
const ParamsSize = 80

// Flag bits of Params.Flags.
const (
	// FlagDecayAfterStep applies weight decay after the Adam step instead of before.
	FlagDecayAfterStep uint32 = 1 << iota
	// FlagScaleByPower multiplies the sigmoid MPE gradient by the power.
	FlagScaleByPower
)

// Params is the scalar block bound ahead of every kernel's buffers.
// Kernels read only the fields their operation defines.
//
// WGSL layout:
//
//	struct Params {
//	    size: u32, batch_size: u32, input_size: u32, output_size: u32,
//	    max_active: u32, m: u32, n: u32, flags: u32,
//	    power: f32, decay: f32, adj: f32, rate: f32,
//	    ft_reg: f32, beta1: f32, beta2: f32, epsilon: f32,
//	    max_weight: f32, _pad0: f32, _pad1: f32, _pad2: f32,
//	}
type Params struct {
	Size       uint32
	BatchSize  uint32
	InputSize  uint32
	OutputSize uint32
	MaxActive  uint32
	M          uint32
	N          uint32
	Flags      uint32

	Power     float32
	Decay     float32
	Adj       float32
	Rate      float32
	FTReg     float32
	Beta1     float32
	Beta2     float32
	Epsilon   float32
	MaxWeight float32
}

// Has reports whether flag is set.
func (p *Params) Has(flag uint32) bool {
	return p.Flags&flag != 0
}

// MarshalBinary encodes p little-endian in the uniform layout.
func (p *Params) MarshalBinary() ([]byte, error) {
	buf := make([]byte, ParamsSize)
	le := binary.LittleEndian

	for i, v := range [...]uint32{p.Size, p.BatchSize, p.InputSize, p.OutputSize, p.MaxActive, p.M, p.N, p.Flags} {
		le.PutUint32(buf[i*4:], v)
	}
	const floatBase = 32
	for i, v := range [...]float32{p.Power, p.Decay, p.Adj, p.Rate, p.FTReg, p.Beta1, p.Beta2, p.Epsilon, p.MaxWeight} {
		le.PutUint32(buf[floatBase+i*4:], math.Float32bits(v))
	}
	return buf, nil
}

// UnmarshalBinary decodes a block produced by MarshalBinary.
func (p *Params) UnmarshalBinary(data []byte) error {
	if len(data) < ParamsSize {
		return fmt.Errorf("kernels: params block is %d bytes, want %d", len(data), ParamsSize)
	}
	le := binary.LittleEndian
	u := func(i int) uint32 { return le.Uint32(data[i*4:]) }
	f := func(i int) float32 { return math.Float32frombits(le.Uint32(data[32+i*4:])) }

	*p = Params{
		Size:       u(0),
		BatchSize:  u(1),
		InputSize:  u(2),
		OutputSize: u(3),
		MaxActive:  u(4),
		M:          u(5),
		N:          u(6),
		Flags:      u(7),
		Power:      f(0),
		Decay:      f(1),
		Adj:        f(2),
		Rate:       f(3),
		FTReg:      f(4),
		Beta1:      f(5),
		Beta2:      f(6),
		Epsilon:    f(7),
		MaxWeight:  f(8),
	}
	return nil
}
