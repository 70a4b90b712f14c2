// Package rng provides the deterministic per-NPC random source.
//
// Every NPC owns a Xoroshiro32++ state seeded at spawn from the stage seed,
// its slot, its slot generation and the spawn tick. Given the same stage seed
// and the same call order, sequences are bit-identical across runs.
package rng

import "math/bits"

// Xoroshiro32 is a 32-bit state Xoroshiro32++ generator. It is a plain value:
// copying it copies the stream position.
type Xoroshiro32 struct {
	s0, s1 uint16
}

func New(seed uint32) Xoroshiro32 {
	x := Xoroshiro32{s0: uint16(seed), s1: uint16(seed >> 16)}
	if x.s0 == 0 && x.s1 == 0 {
		// all-zero state is a fixed point
		x.s0 = 0x9e37
	}
	return x
}

func (x *Xoroshiro32) NextU16() uint16 {
	s0, s1 := x.s0, x.s1
	result := bits.RotateLeft16(s0+s1, 9) + s0

	s1 ^= s0
	x.s0 = bits.RotateLeft16(s0, 13) ^ s1 ^ (s1 << 5)
	x.s1 = bits.RotateLeft16(s1, 10)
	return result
}

func (x *Xoroshiro32) Next() int32 {
	hi := uint32(x.NextU16())
	lo := uint32(x.NextU16())
	return int32(hi<<16 | lo)
}

// Range returns a value in [min, max] inclusive. Reversed bounds are swapped.
func (x *Xoroshiro32) Range(min, max int32) int32 {
	if min > max {
		min, max = max, min
	}
	span := int64(max) - int64(min) + 1
	v := int64(x.Next() & 0x7fffffff)
	return int32(int64(min) + v%span)
}

// SpawnSeed mixes the identity of a spawn into a generator seed.
func SpawnSeed(stageSeed uint64, slot, generation uint32, tick uint64) uint32 {
	z := stageSeed
	z = splitmix(z ^ uint64(slot))
	z = splitmix(z ^ uint64(generation)<<32)
	z = splitmix(z ^ tick)
	return uint32(z) ^ uint32(z>>32)
}

func splitmix(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
