package host

import (
	"context"
	"errors"
	"testing"

	"github.com/achilleasa/turbid/material"
	"github.com/achilleasa/turbid/photon"
	"github.com/achilleasa/turbid/scene"
	"github.com/achilleasa/turbid/source"
	"github.com/achilleasa/turbid/tracer"
	"github.com/achilleasa/turbid/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A scattering slab with an embedded smooth sphere floating in vacuum.
func makeSlabScene(t *testing.T) *scene.Scene {
	tissue, err := material.New(5, 2, 0.9, 1.4)
	require.NoError(t, err)
	inclusion, err := material.New(20, 1, 0.5, 1.33)
	require.NoError(t, err)

	b := scene.NewBuilder(material.Vacuum(1))
	slab := b.AddSolid("slab", scene.Cuboid(types.XYZ(2, 2, 1), types.XYZ(0, 0, 0.5)), b.AddMaterial(tissue))
	b.AddSolid("sphere", scene.Icosphere(0.2, types.XYZ(0, 0, 0.5), 2), b.AddMaterial(inclusion), scene.Inside(slab), scene.Smooth())
	sc, err := b.Build()
	require.NoError(t, err)
	return sc
}

func makeSourcePhotons(t *testing.T, sc *scene.Scene, n int) []photon.Photon {
	src := &source.Pencil{Position: types.XYZ(0, 0, -0.5), Direction: types.XYZ(0, 0, 1)}
	photons, err := src.Photons(sc, n, 42)
	require.NoError(t, err)
	return photons
}

func TestBackendMatchesSequentialRun(t *testing.T) {
	sc := makeSlabScene(t)
	photons := makeSourcePhotons(t, sc, 500)

	cfg := tracer.DefaultConfig()
	cfg.WorkUnits = 16
	cfg.IPP = 5
	cfg.StepsPerLaunch = 8

	backend := New(4)
	defer backend.Close()
	res, err := tracer.NewScheduler(sc, backend, cfg).Run(context.Background(), photons)
	require.NoError(t, err)

	ref, err := tracer.RunSequential(sc, photons, cfg)
	require.NoError(t, err)

	// Photons carry their own random state so both paths replay the same
	// histories in a different order.
	assert.Equal(t, len(ref.Rows), len(res.Rows))
	assert.Equal(t, ref.Exited, res.Exited)
	assert.InDelta(t, ref.AbsorbedWeight(), res.AbsorbedWeight(), 1e-2)
	assert.InDelta(t, ref.ExitedWeight, res.ExitedWeight, 1e-2)
	for _, label := range []string{"slab", "sphere"} {
		id, _ := sc.Labels.SolidID(label)
		assert.InDelta(t, ref.NetCrossingWeight(id), res.NetCrossingWeight(id), 1e-2, label)
	}

	// All injected energy is either absorbed or leaves the scene.
	total := res.AbsorbedWeight() + res.ExitedWeight
	assert.InDelta(t, float64(len(photons)), total, 0.05*float64(len(photons)))

	if len(res.Batches) < 2 {
		t.Fatalf("expected the tight log to require several launches; got %d", len(res.Batches))
	}
}

func TestBackendOutOfMemory(t *testing.T) {
	sc := makeSlabScene(t)

	cfg := tracer.DefaultConfig()
	cfg.AvailableMemory = 1024

	backend := New(1)
	defer backend.Close()
	_, err := tracer.NewScheduler(sc, backend, cfg).Run(context.Background(), makeSourcePhotons(t, sc, 100))

	var oom *tracer.OutOfMemoryError
	if !errors.As(err, &oom) {
		t.Fatalf("expected an OutOfMemoryError; got %v", err)
	}
	if oom.Requested <= cfg.AvailableMemory {
		t.Fatalf("expected requested size to exceed %d bytes; got %d", cfg.AvailableMemory, oom.Requested)
	}
}

func TestUnsupportedMaterialIsRejected(t *testing.T) {
	sc := makeSlabScene(t)
	photons := makeSourcePhotons(t, sc, 10)
	sc.Materials[1].Kind = 7

	backend := New(1)
	defer backend.Close()
	_, err := tracer.NewScheduler(sc, backend, tracer.DefaultConfig()).Run(context.Background(), photons)
	if !errors.Is(err, scene.ErrBadMaterial) {
		t.Fatalf("expected ErrBadMaterial; got %v", err)
	}

	if _, err = tracer.RunSequential(sc, photons, tracer.DefaultConfig()); !errors.Is(err, scene.ErrBadMaterial) {
		t.Fatalf("expected ErrBadMaterial from the sequential run; got %v", err)
	}
}

func TestBackendRequiresSetup(t *testing.T) {
	backend := New(0)
	if _, err := backend.Propagate(1); !errors.Is(err, tracer.ErrBackendNotSetup) {
		t.Fatalf("expected ErrBackendNotSetup; got %v", err)
	}
}
