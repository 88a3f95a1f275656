package opencl

import (
	"context"
	"testing"
	"unsafe"

	"github.com/achilleasa/turbid/material"
	"github.com/achilleasa/turbid/photon"
	"github.com/achilleasa/turbid/scene"
	"github.com/achilleasa/turbid/source"
	"github.com/achilleasa/turbid/tracer"
	"github.com/achilleasa/turbid/tracer/opencl/device"
	"github.com/achilleasa/turbid/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructLayoutsMatchHost(t *testing.T) {
	backend := createTestBackend(t)
	defer backend.Close()

	sizes, err := backend.StructSizes()
	require.NoError(t, err)

	expSizes := []uint32{
		uint32(unsafe.Sizeof(scene.Solid{})),
		uint32(unsafe.Sizeof(scene.Surface{})),
		uint32(unsafe.Sizeof(scene.Triangle{})),
		uint32(unsafe.Sizeof(scene.Vertex{})),
		uint32(unsafe.Sizeof(material.Material{})),
		uint32(unsafe.Sizeof(photon.Photon{})),
		uint32(unsafe.Sizeof(photon.LogRow{})),
	}
	assert.Equal(t, expSizes, sizes)
}

func TestBackendMatchesSequentialRun(t *testing.T) {
	backend := createTestBackend(t)
	defer backend.Close()

	tissue, err := material.New(5, 2, 0.9, 1.4)
	require.NoError(t, err)
	b := scene.NewBuilder(material.Vacuum(1))
	slab := b.AddSolid("slab", scene.Cuboid(types.XYZ(2, 2, 1), types.XYZ(0, 0, 0.5)), b.AddMaterial(tissue))
	sc, err := b.Build()
	require.NoError(t, err)

	src := &source.Pencil{Position: types.XYZ(0, 0, -0.5), Direction: types.XYZ(0, 0, 1)}
	photons, err := src.Photons(sc, 2000, 7)
	require.NoError(t, err)

	cfg := tracer.DefaultConfig()
	cfg.WorkUnits = 64
	cfg.IPP = 10
	cfg.StepsPerLaunch = 16

	res, err := tracer.NewScheduler(sc, backend, cfg).Run(context.Background(), photons)
	require.NoError(t, err)
	ref, err := tracer.RunSequential(sc, photons, cfg)
	require.NoError(t, err)

	// Device math differs in the last bits so only aggregates are compared.
	n := float64(len(photons))
	assert.InDelta(t, ref.AbsorbedWeight()/n, res.AbsorbedWeight()/n, 0.03)
	assert.InDelta(t, ref.ExitedWeight/n, res.ExitedWeight/n, 0.03)
	assert.InDelta(t, ref.NetCrossingWeight(slab)/n, res.NetCrossingWeight(slab)/n, 0.03)
	assert.InDelta(t, 1, (res.AbsorbedWeight()+res.ExitedWeight)/n, 0.03)
}

func TestBackendVacuumPhotonExits(t *testing.T) {
	backend := createTestBackend(t)
	defer backend.Close()

	b := scene.NewBuilder(material.Vacuum(1))
	box := b.AddSolid("box", scene.Cuboid(types.XYZ(1, 1, 1), types.Vec3{}), b.AddMaterial(material.Vacuum(1)))
	sc, err := b.Build()
	require.NoError(t, err)

	photons := []photon.Photon{
		photon.New(0, types.Vec3{}, types.XYZ(0, 0, 1), box, sc.EnvironmentOf(box), 1),
	}
	res, err := tracer.NewScheduler(sc, backend, tracer.DefaultConfig()).Run(context.Background(), photons)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Exited)
	assert.Equal(t, 1.0, res.ExitedWeight)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, float32(-1), res.Rows[0].Weight)
	assert.Equal(t, box, res.Rows[0].SolidID)
}

func createTestBackend(t *testing.T) *Backend {
	devList, err := device.SelectDevices(device.CpuDevice, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(devList) == 0 {
		t.Skip("no opencl CPU device available")
	}

	backend := New(devList[0])
	if err = backend.init(); err != nil {
		t.Fatal(err)
	}
	return backend
}
