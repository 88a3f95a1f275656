// Package rng implements the counter-free random number generator shared by
// the host and device propagation code. Each photon carries its own 32-bit
// seed which is advanced by a pure hash step on every draw, so runs are
// reproducible for a given set of host-assigned seeds.
package rng

import "math"

// Next applies one Wang hash step to seed.
func Next(seed uint32) uint32 {
	seed = (seed ^ 61) ^ (seed >> 16)
	seed *= 9
	seed = seed ^ (seed >> 4)
	seed *= 0x27d4eb2d
	seed = seed ^ (seed >> 15)
	return seed
}

// SeedFor derives the initial seed of a photon from the run seed and the
// photon's unique id.
func SeedFor(runSeed, photonID uint32) uint32 {
	return Next(runSeed ^ Next(photonID*0x9e3779b9+1))
}

// A Stream draws uniform values from a photon seed.
type Stream struct {
	Seed uint32
}

// Create a new stream.
func NewStream(seed uint32) *Stream {
	return &Stream{Seed: seed}
}

// Float32 returns a uniform value in (0, 1]. Zero results are redrawn.
func (s *Stream) Float32() float32 {
	var out float32
	for out == 0 {
		s.Seed = Next(s.Seed)
		out = float32(float64(s.Seed) / math.MaxUint32)
	}
	return out
}
