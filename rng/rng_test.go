package rng

import "testing"

func TestNextIsPure(t *testing.T) {
	if Next(42) != Next(42) {
		t.Fatal("expected Next to be deterministic")
	}

	// Reference values of the Wang hash.
	specs := map[uint32]uint32{
		0: wang(0),
		1: wang(1),
	}
	for in, exp := range specs {
		if got := Next(in); got != exp {
			t.Fatalf("expected Next(%d) to be %d; got %d", in, exp, got)
		}
	}
}

func TestStreamRange(t *testing.T) {
	s := NewStream(SeedFor(7, 0))
	var sum float64
	n := 100000
	for i := 0; i < n; i++ {
		v := s.Float32()
		if v <= 0 || v > 1 {
			t.Fatalf("expected value in (0, 1]; got %f", v)
		}
		sum += float64(v)
	}

	if mean := sum / float64(n); mean < 0.49 || mean > 0.51 {
		t.Fatalf("expected mean to be close to 0.5; got %f", mean)
	}
}

func TestStreamsAreReproducible(t *testing.T) {
	a := NewStream(SeedFor(1234, 99))
	b := NewStream(SeedFor(1234, 99))
	for i := 0; i < 32; i++ {
		if a.Float32() != b.Float32() {
			t.Fatalf("expected identical draw %d from identically seeded streams", i)
		}
	}

	if SeedFor(1234, 1) == SeedFor(1234, 2) {
		t.Fatal("expected different photons to get different seeds")
	}
}

func wang(seed uint32) uint32 {
	seed = (seed ^ 61) ^ (seed >> 16)
	seed = seed * 9
	seed ^= seed >> 4
	seed = seed * 668265261
	return seed ^ (seed >> 15)
}
