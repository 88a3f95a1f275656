package photon

import (
	"math"
	"testing"
	"unsafe"

	"github.com/achilleasa/turbid/material"
	"github.com/achilleasa/turbid/rng"
	"github.com/achilleasa/turbid/scene"
	"github.com/achilleasa/turbid/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutSizes(t *testing.T) {
	if got := unsafe.Sizeof(Photon{}); got != SizeofPhoton {
		t.Fatalf("expected sizeof(Photon) to be %d; got %d", SizeofPhoton, got)
	}
	if got := unsafe.Sizeof(LogRow{}); got != SizeofLogRow {
		t.Fatalf("expected sizeof(LogRow) to be %d; got %d", SizeofLogRow, got)
	}
}

func TestNewPhotonFrame(t *testing.T) {
	p := New(1, types.Vec3{}, types.XYZ(0, 3, 4), scene.NoSolidID, scene.WorldMaterialID, 9)
	dir, er := p.Direction.Vec3(), p.Er.Vec3()
	assert.InDelta(t, 1, dir.Len(), 1e-6)
	assert.InDelta(t, 1, er.Len(), 1e-6)
	assert.InDelta(t, 0, dir.Dot(er), 1e-6)
	if p.Weight != 1 || p.State != Propagating || p.Distance != NoDistance {
		t.Fatalf("unexpected initial photon state: %+v", p)
	}
}

func TestScatterKeepsFrameOrthonormal(t *testing.T) {
	p := New(1, types.Vec3{}, types.XYZ(0, 0, 1), scene.NoSolidID, scene.WorldMaterialID, 9)
	rnd := rng.NewStream(77)
	m, _ := material.New(5, 2, 0.9, 1.4)
	for i := 0; i < 1000; i++ {
		theta, phi := m.ScatteringAngles(rnd)
		scatter(&p, theta, phi)
	}

	dir, er := p.Direction.Vec3(), p.Er.Vec3()
	assert.InDelta(t, 1, dir.Len(), 1e-5)
	assert.InDelta(t, 1, er.Len(), 1e-5)
	assert.InDelta(t, 0, dir.Dot(er), 1e-4)
}

func TestScatterDeflectsByTheta(t *testing.T) {
	p := New(1, types.Vec3{}, types.XYZ(0, 0, 1), scene.NoSolidID, scene.WorldMaterialID, 9)
	before := p.Direction.Vec3()
	scatter(&p, 0.5, 1.2)
	assert.InDelta(t, math.Cos(0.5), before.Dot(p.Direction.Vec3()), 1e-6)
}

func TestRouletteIsUnbiased(t *testing.T) {
	rnd := rng.NewStream(rng.SeedFor(1, 1))
	w := float32(5e-5)

	n := 200000
	var sum float64
	for i := 0; i < n; i++ {
		out := Roulette(w, DefaultWeightThreshold, rnd)
		if out != 0 && out != w/SurvivalChance {
			t.Fatalf("expected roulette outcome to be 0 or %g; got %g", w/SurvivalChance, out)
		}
		sum += float64(out)
	}
	assert.InDelta(t, float64(w), sum/float64(n), 3e-6)

	// No-op cases.
	if got := Roulette(0.5, DefaultWeightThreshold, rnd); got != 0.5 {
		t.Fatalf("expected weights above threshold to be kept; got %f", got)
	}
	if got := Roulette(0, DefaultWeightThreshold, rnd); got != 0 {
		t.Fatalf("expected zero weight to be kept; got %f", got)
	}
}

func TestReflectMirrorsDirection(t *testing.T) {
	normal := types.XYZ(0, 0, 1)
	for _, dir := range []types.Vec3{
		types.XYZ(0, 0, -1),
		types.XYZ(1, 0, -1).Normalize(),
		types.XYZ(0.2, -0.4, 0.7).Normalize(),
	} {
		exp := dir.Sub(normal.Mul(2 * dir.Dot(normal)))
		got := Reflect(dir, normal)
		if !got.ApproxEqual(exp, 1e-5) {
			t.Fatalf("expected reflection of %v to be %v; got %v", dir, exp, got)
		}
	}
}

func TestRefractSnell(t *testing.T) {
	normal := types.XYZ(0, 0, 1)
	dir := types.XYZ(float32(math.Sin(0.5)), 0, float32(-math.Cos(0.5)))

	out, ok := Refract(dir, normal, 1.0, 1.5)
	require.True(t, ok)

	sinOut := math.Sqrt(float64(out[0]*out[0] + out[1]*out[1]))
	assert.InDelta(t, math.Sin(0.5)/1.5, sinOut, 1e-5)
	if out[2] >= 0 || out[0] <= 0 {
		t.Fatalf("expected refracted ray to keep travelling forward; got %v", out)
	}
}

func TestRefractReversibility(t *testing.T) {
	normal := types.XYZ(0, 0, 1)
	for _, dir := range []types.Vec3{
		types.XYZ(0.3, 0.1, -1).Normalize(),
		types.XYZ(-0.7, 0.2, -0.5).Normalize(),
		types.XYZ(0, 0, -1),
	} {
		in, ok := Refract(dir, normal, 1.0, 1.4)
		require.True(t, ok)

		// Reverse the ray and go back through the interface.
		back, ok := Refract(in.Mul(-1), normal, 1.4, 1.0)
		require.True(t, ok)
		if !back.Mul(-1).ApproxEqual(dir, 1e-5) {
			t.Fatalf("expected refracting back to restore %v; got %v", dir, back.Mul(-1))
		}
	}

	// Past the critical angle.
	if _, ok := Refract(types.XYZ(1, 0, 0.2).Normalize(), normal, 1.5, 1.0); ok {
		t.Fatal("expected total internal reflection")
	}
}

func TestVacuumPhotonExitsWithFullWeight(t *testing.T) {
	b := scene.NewBuilder(material.Vacuum(1))
	cube := b.AddSolid("cube", scene.Cuboid(types.XYZ(2, 2, 2), types.Vec3{}), b.AddMaterial(material.Vacuum(1)))
	sc, err := b.Build()
	require.NoError(t, err)

	s := NewStepper(sc, DefaultWeightThreshold)
	p := New(0, types.XYZ(0.1, 0.2, -5), types.XYZ(0, 0, 1), scene.NoSolidID, scene.WorldMaterialID, rng.SeedFor(1, 0))
	rows := s.Propagate(&p, nil)

	if !p.Exited() || p.Weight != 1 {
		t.Fatalf("expected photon to exit with weight 1; got state %s weight %f", p.State, p.Weight)
	}
	if !p.Direction.Vec3().ApproxEqual(types.XYZ(0, 0, 1), 1e-6) {
		t.Fatalf("expected direction to be unchanged; got %v", p.Direction)
	}

	// Enter and leave the cube.
	if len(rows) != 2 {
		t.Fatalf("expected 2 crossing rows; got %d", len(rows))
	}
	if rows[0].Weight != 1 || rows[0].SolidID != cube || rows[1].Weight != -1 || rows[1].SolidID != cube {
		t.Fatalf("unexpected crossing rows: %+v", rows)
	}
	if label, _ := sc.Labels.Surface(rows[1].SurfaceID); label != "top" {
		t.Fatalf("expected photon to leave through the top surface; got %q", label)
	}
}

func TestEnergyConservationInClosedScene(t *testing.T) {
	tissue, err := material.New(5, 2, 0.9, 1.4)
	require.NoError(t, err)

	b := scene.NewBuilder(material.Vacuum(1))
	cube := b.AddSolid("cube", scene.Cuboid(types.XYZ(2, 2, 2), types.Vec3{}), b.AddMaterial(tissue))
	sc, err := b.Build()
	require.NoError(t, err)

	// Without the roulette every photon conserves its energy exactly.
	exact := NewStepper(sc, 0)
	for id := uint32(0); id < 20; id++ {
		p := New(id, types.Vec3{}, types.XYZ(0, 0, 1), cube, sc.EnvironmentOf(cube), rng.SeedFor(42, id))
		rows := exact.Propagate(&p, nil)
		assert.InDelta(t, 1, depositedEnergy(rows), 1e-3, "photon %d", id)
	}

	// With the roulette energy is conserved on average.
	s := NewStepper(sc, DefaultWeightThreshold)
	n := 200
	var total float64
	for id := uint32(0); id < uint32(n); id++ {
		p := New(id, types.Vec3{}, types.XYZ(0, 0, 1), cube, sc.EnvironmentOf(cube), rng.SeedFor(7, id))
		total += depositedEnergy(s.Propagate(&p, nil))
	}
	assert.InDelta(t, 1, total/float64(n), 1e-3)
}

func TestInfiniteMediumAbsorbsEverything(t *testing.T) {
	tissue, err := material.New(5, 2, 0.9, 1.4)
	require.NoError(t, err)
	sc, err := scene.NewBuilder(tissue).Build()
	require.NoError(t, err)

	s := NewStepper(sc, DefaultWeightThreshold)
	n := 1000
	var absorbed float64
	var rows []LogRow
	for id := uint32(0); id < uint32(n); id++ {
		p := New(id, types.Vec3{}, types.XYZ(0, 0, 1), scene.NoSolidID, scene.WorldMaterialID, rng.SeedFor(3, id))
		rows = s.Propagate(&p, rows[:0])
		for _, row := range rows {
			if row.SurfaceID != scene.NoSurfaceID || row.SolidID != scene.NoSolidID {
				t.Fatalf("expected only world absorption rows; got %+v", row)
			}
			absorbed += float64(row.Weight)
		}
		if p.Exited() {
			t.Fatal("expected no photon to exit an infinite medium")
		}
	}
	assert.InDelta(t, float64(n), absorbed, 0.03*float64(n))
}

func TestNormalIncidenceReflectance(t *testing.T) {
	b := scene.NewBuilder(material.Vacuum(1))
	b.AddSolid("slab", scene.Cuboid(types.XYZ(10, 10, 1), types.Vec3{}), b.AddMaterial(material.Vacuum(1.5)))
	sc, err := b.Build()
	require.NoError(t, err)

	s := NewStepper(sc, DefaultWeightThreshold)
	n := 20000
	reflected := 0
	for id := uint32(0); id < uint32(n); id++ {
		p := New(id, types.XYZ(0.1, 0.1, -3), types.XYZ(0, 0, 1), scene.NoSolidID, scene.WorldMaterialID, rng.SeedFor(11, id))

		// Reach the surface, then resolve it.
		s.Step(&p, nil)
		require.Equal(t, AtInterface, p.State)
		s.Step(&p, nil)
		if p.Direction.Vec3()[2] < 0 {
			reflected++
		}
	}
	assert.InDelta(t, 0.04, float64(reflected)/float64(n), 0.005)
}

func TestPhotonNextToSurfaceStopsOnIt(t *testing.T) {
	tissue, err := material.New(5, 2, 0.9, 1.4)
	require.NoError(t, err)
	b := scene.NewBuilder(material.Vacuum(1))
	cube := b.AddSolid("cube", scene.Cuboid(types.XYZ(2, 2, 2), types.Vec3{}), b.AddMaterial(tissue))
	sc, err := b.Build()
	require.NoError(t, err)

	// Scattered to within SelfHitEpsilon of the right face with a free path
	// that would otherwise carry it outside.
	s := NewStepper(sc, DefaultWeightThreshold)
	p := New(0, types.XYZ(1-1e-6, 0.3, 0.2), types.XYZ(1, 0, 0), cube, sc.EnvironmentOf(cube), rng.SeedFor(5, 0))
	p.Distance = 0.5

	rows := s.Step(&p, nil)
	require.Empty(t, rows)
	require.Equal(t, AtInterface, p.State)
	if label, _ := sc.Labels.Surface(p.SurfaceID); label != "right" {
		t.Fatalf("expected photon to stop on the right surface; got %q", label)
	}
	assert.InDelta(t, 1, p.Position[0], 1e-5)
	assert.InDelta(t, 0.5, p.Distance, 1e-5)
}

func TestAbsorptionStaysInsideSolids(t *testing.T) {
	tissue, err := material.New(50, 1, 0.9, 1.4)
	require.NoError(t, err)
	inclusion, err := material.New(30, 3, 0.8, 1.33)
	require.NoError(t, err)

	b := scene.NewBuilder(material.Vacuum(1))
	slab := b.AddSolid("slab", scene.Cuboid(types.XYZ(4, 4, 2), types.Vec3{}), b.AddMaterial(tissue))
	ball := b.AddSolid("ball", scene.Icosphere(0.5, types.Vec3{}, 2), b.AddMaterial(inclusion), scene.Inside(slab), scene.Smooth())
	sc, err := b.Build()
	require.NoError(t, err)

	const tolerance = 1e-3
	s := NewStepper(sc, DefaultWeightThreshold)
	var rows []LogRow
	for id := uint32(0); id < 300; id++ {
		p := New(id, types.XYZ(0, 0, -1.5), types.XYZ(0, 0, 1), scene.NoSolidID, scene.WorldMaterialID, rng.SeedFor(13, id))
		rows = s.Propagate(&p, rows[:0])

		for _, row := range rows {
			if row.SurfaceID != scene.NoSurfaceID {
				continue
			}
			pos := types.XYZ(row.X, row.Y, row.Z)
			switch row.SolidID {
			case ball:
				if pos.Len() > 0.5+tolerance {
					t.Fatalf("[photon %d] absorption outside the ball at %v", id, pos)
				}
			case slab:
				if abs32(pos[0]) > 2+tolerance || abs32(pos[1]) > 2+tolerance || abs32(pos[2]) > 1+tolerance || pos.Len() < 0.4 {
					t.Fatalf("[photon %d] absorption outside the slab at %v", id, pos)
				}
			default:
				t.Fatalf("[photon %d] unexpected absorption in solid %d at %v", id, row.SolidID, pos)
			}
		}
	}
}

func TestTrappedPhotonIsTerminated(t *testing.T) {
	b := scene.NewBuilder(material.Vacuum(1))
	cube := b.AddSolid("glass", scene.Cuboid(types.XYZ(2, 2, 2), types.Vec3{}), b.AddMaterial(material.Vacuum(1.5)))
	sc, err := b.Build()
	require.NoError(t, err)

	// Every direction cosine is below the critical one so each face
	// reflects the photon back inside.
	s := NewStepper(sc, DefaultWeightThreshold)
	p := New(0, types.XYZ(0.1, -0.2, 0.05), types.XYZ(1, 0.9, 0.8), cube, sc.EnvironmentOf(cube), rng.SeedFor(17, 0))

	var rows []LogRow
	for steps := 0; !p.Done(); steps++ {
		if steps > 4*MaxInterfaceEvents {
			t.Fatal("expected the trapped photon to be terminated")
		}
		rows = s.Step(&p, rows)
	}

	assert.Empty(t, rows)
	assert.Equal(t, float32(1), p.Weight)
	assert.Equal(t, uint32(MaxInterfaceEvents+1), p.Bounces)
	pos := p.Position.Vec3()
	for axis := 0; axis < 3; axis++ {
		if abs32(pos[axis]) > 1+1e-4 {
			t.Fatalf("expected the photon to stay inside the cube; got %v", pos)
		}
	}
}

func TestUnderflowingWeightIsDepositedWhole(t *testing.T) {
	tissue, err := material.New(5, 2, 0.9, 1.4)
	require.NoError(t, err)
	sc, err := scene.NewBuilder(tissue).Build()
	require.NoError(t, err)

	s := NewStepper(sc, 0)
	p := New(0, types.Vec3{}, types.XYZ(0, 0, 1), scene.NoSolidID, scene.WorldMaterialID, rng.SeedFor(19, 0))
	p.Weight = math.SmallestNonzeroFloat32

	rows := s.Step(&p, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, float32(math.SmallestNonzeroFloat32), rows[0].Weight)
	assert.Equal(t, Terminated, p.State)
	assert.Equal(t, float32(0), p.Weight)

	// Without the roulette a photon still ends in an infinite medium.
	p = New(1, types.Vec3{}, types.XYZ(0, 0, 1), scene.NoSolidID, scene.WorldMaterialID, rng.SeedFor(19, 1))
	var absorbed float64
	for steps := 0; !p.Done(); steps++ {
		if steps > 10000 {
			t.Fatalf("expected the photon to be absorbed; weight is still %g", p.Weight)
		}
		rows = s.Step(&p, rows[:0])
		for _, row := range rows {
			absorbed += float64(row.Weight)
		}
	}
	assert.InDelta(t, 1, absorbed, 1e-5)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// Sum absorbed energy and the magnitude of the energy leaving solids.
func depositedEnergy(rows []LogRow) float64 {
	var total float64
	for _, row := range rows {
		switch {
		case row.SurfaceID == scene.NoSurfaceID:
			total += float64(row.Weight)
		case row.Weight < 0:
			total -= float64(row.Weight)
		}
	}
	return total
}
