package material

import (
	"errors"
	"math"
	"testing"

	"github.com/achilleasa/turbid/rng"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	type spec struct {
		muS, muA, g, n float32
		param          string
	}

	specs := []spec{
		{-1, 1, 0, 1, "mu_s"},
		{1, -1, 0, 1, "mu_a"},
		{5, 0, 0, 1, "mu_a"},
		{1, 1, 1.5, 1, "g"},
		{1, 1, 0, 0, "n"},
	}

	for index, s := range specs {
		_, err := New(s.muS, s.muA, s.g, s.n)
		var cfgErr *ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("[spec %d] expected a ConfigurationError; got %v", index, err)
		}
		if cfgErr.Param != s.param {
			t.Fatalf("[spec %d] expected error for param %q; got %q", index, s.param, cfgErr.Param)
		}
	}

	// Absorption without scattering is valid.
	if _, err := New(0, 2, 0, 1.4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateKind(t *testing.T) {
	m, err := New(5, 2, 0.9, 1.4)
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	m.Kind = 7
	var cfgErr *ConfigurationError
	require.True(t, errors.As(m.Validate(), &cfgErr))
	assert.Equal(t, "kind", cfgErr.Param)

	// Hand-built materials get the same checks as New.
	v := Vacuum(0)
	require.Error(t, v.Validate())
}

func TestAlbedo(t *testing.T) {
	m, err := New(5, 2, 0.9, 1.4)
	require.NoError(t, err)

	assert.InDelta(t, 7, m.MuT, 1e-6)
	assert.InDelta(t, 2.0/7.0, m.GetAlbedo(), 1e-6)

	vacuum := Vacuum(1)
	if vacuum.GetAlbedo() != 0 {
		t.Fatalf("expected vacuum albedo to be 0; got %f", vacuum.GetAlbedo())
	}
}

func TestScatteringDistance(t *testing.T) {
	vacuum := Vacuum(1)
	d := vacuum.ScatteringDistance(rng.NewStream(1))
	if !math.IsInf(float64(d), 1) {
		t.Fatalf("expected vacuum scattering distance to be +Inf; got %f", d)
	}

	m, err := New(5, 2, 0.9, 1.4)
	require.NoError(t, err)

	rnd := rng.NewStream(rng.SeedFor(3, 3))
	n := 200000
	var sum float64
	for i := 0; i < n; i++ {
		d := m.ScatteringDistance(rnd)
		if d < 0 || math.IsInf(float64(d), 0) || math.IsNaN(float64(d)) {
			t.Fatalf("expected a finite positive distance; got %f", d)
		}
		sum += float64(d)
	}

	// Mean free path is 1/mu_t.
	assert.InDelta(t, 1.0/7.0, sum/float64(n), 2e-3)
}

func TestScatteringAngles(t *testing.T) {
	type spec struct {
		g      float32
		expCos float64
	}

	// The mean cosine of the Henyey-Greenstein distribution equals g.
	specs := []spec{
		{0, 0},
		{0.9, 0.9},
		{-0.5, -0.5},
		{0.3, 0.3},
	}

	for index, s := range specs {
		m, err := New(10, 1, s.g, 1.37)
		require.NoError(t, err)

		rnd := rng.NewStream(rng.SeedFor(11, uint32(index)))
		n := 200000
		var sumCos float64
		for i := 0; i < n; i++ {
			theta, phi := m.ScatteringAngles(rnd)
			if theta < 0 || theta > math.Pi {
				t.Fatalf("[spec %d] theta out of range: %f", index, theta)
			}
			if phi < 0 || phi > 2*math.Pi {
				t.Fatalf("[spec %d] phi out of range: %f", index, phi)
			}
			sumCos += math.Cos(float64(theta))
		}
		assert.InDelta(t, s.expCos, sumCos/float64(n), 0.01, "spec %d", index)
	}
}
