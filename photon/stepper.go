package photon

import (
	"math"

	"github.com/achilleasa/turbid/intersection"
	"github.com/achilleasa/turbid/material"
	"github.com/achilleasa/turbid/rng"
	"github.com/achilleasa/turbid/scene"
	"github.com/achilleasa/turbid/types"
)

const (
	// Photons below this weight enter the roulette.
	DefaultWeightThreshold float32 = 1e-4

	// Probability that a photon survives the roulette.
	SurvivalChance float32 = 0.1

	// Distance a refracted photon is pushed past the surface it crossed.
	NudgeDistance float32 = 1e-4

	// Upper bound of log rows appended by a single step.
	MaxRowsPerStep = 2

	// Photons resolving more interfaces than this without scattering are
	// trapped (e.g. by total internal reflection inside a clear solid) and
	// are terminated with their weight intact.
	MaxInterfaceEvents = 1000
)

// Stepper advances photons through a scene. It only reads the scene and can
// be shared by concurrent workers as long as each photon is owned by a single
// worker.
type Stepper struct {
	sc        *scene.Scene
	finder    *intersection.Finder
	threshold float32
}

// Create a new stepper. A negative threshold selects DefaultWeightThreshold
// and a zero threshold disables the roulette.
func NewStepper(sc *scene.Scene, weightThreshold float32) *Stepper {
	if weightThreshold < 0 {
		weightThreshold = DefaultWeightThreshold
	}
	return &Stepper{
		sc:        sc,
		finder:    intersection.NewFinder(sc),
		threshold: weightThreshold,
	}
}

// Run a single transition of the photon state machine, followed by the
// roulette, and append any produced log rows to rows. Terminated photons are
// left untouched.
func (s *Stepper) Step(p *Photon, rows []LogRow) []LogRow {
	rnd := rng.Stream{Seed: p.Seed}

	switch p.State {
	case Propagating:
		rows = s.move(p, &rnd, rows)
	case AtInterface:
		rows = s.cross(p, &rnd, rows)
	default:
		return rows
	}

	if p.State != Terminated {
		p.Weight = Roulette(p.Weight, s.threshold, &rnd)
		if p.Weight == 0 {
			p.State = Terminated
		}
	}

	p.Seed = rnd.Seed
	return rows
}

// Step the photon until it is terminated.
func (s *Stepper) Propagate(p *Photon, rows []LogRow) []LogRow {
	for p.State != Terminated {
		rows = s.Step(p, rows)
	}
	return rows
}

// Move the photon along its free path. If a surface lies in the way the
// photon stops on it and waits for the interface to be resolved; otherwise
// it deposits energy and scatters at the end of the path.
func (s *Stepper) move(p *Photon, rnd *rng.Stream, rows []LogRow) []LogRow {
	mat := &s.sc.Materials[p.MaterialID]
	d := p.Distance
	if d < 0 {
		d = mat.ScatteringDistance(rnd)
	}

	pos, dir := p.Position.Vec3(), p.Direction.Vec3()
	if hit := s.finder.FindFrom(pos, dir, d, location(p)); hit.Exists {
		stopAt(p, hit)
		p.Distance = hit.Remaining
		return rows
	}

	p.Distance = NoDistance

	// Nothing left to hit on an unattenuated path.
	if math.IsInf(float64(d), 1) {
		p.State = Terminated
		return rows
	}

	pos = pos.Add(dir.Mul(d))
	p.Position = pos.Vec4(1)

	// Weights too small to lose a fraction of themselves are deposited whole.
	albedo := mat.GetAlbedo()
	delta := p.Weight * albedo
	if albedo > 0 && p.Weight-delta == p.Weight {
		delta = p.Weight
	}
	p.Weight -= delta
	rows = append(rows, LogRow{
		Weight:    delta,
		X:         pos[0],
		Y:         pos[1],
		Z:         pos[2],
		SolidID:   p.SolidID,
		SurfaceID: scene.NoSurfaceID,
	})

	theta, phi := mat.ScatteringAngles(rnd)
	scatter(p, theta, phi)
	p.PolygonID = scene.NoPolygonID
	p.Bounces = 0

	if p.Weight <= 0 {
		p.Weight = 0
		p.State = Terminated
	}
	return rows
}

// Resolve the interface the photon rests on by either reflecting it back
// into its current environment or refracting it into the opposite one.
func (s *Stepper) cross(p *Photon, rnd *rng.Stream, rows []LogRow) []LogRow {
	p.Bounces++
	if p.Bounces > MaxInterfaceEvents {
		p.State = Terminated
		return rows
	}

	surface := &s.sc.Surfaces[p.SurfaceID]
	dir := p.Direction.Vec3()

	iface, entering := material.NewInterface(dir, p.Normal.Vec3())
	nextMaterial, nextSolid := surface.OutsideMaterial, surface.OutsideSolid
	nIn, nOut := s.sc.Materials[surface.InsideMaterial].N, s.sc.Materials[surface.OutsideMaterial].N
	if entering {
		nextMaterial, nextSolid = surface.InsideMaterial, surface.InsideSolid
		nIn, nOut = nOut, nIn
	}

	theta := iface.ThetaIn
	if iface.NormalIncidence {
		theta = 0
	}

	p.State = Propagating
	if material.Reflectance(theta, nIn, nOut) > rnd.Float32() {
		rotateFrame(p, iface.IncidencePlane, material.ReflectionDeflection(theta))
		return rows
	}

	rotateFrame(p, iface.IncidencePlane, -material.RefractionDeflection(theta, nIn, nOut))
	rows = s.logCrossing(p, surface, entering, rows)

	p.MaterialID = nextMaterial
	p.SolidID = nextSolid
	p.Distance = NoDistance
	p.SurfaceID = scene.NoSurfaceID
	s.nudge(p)
	return rows
}

// Push a refracted photon NudgeDistance past the surface it crossed, stopping
// on any other surface in the way.
func (s *Stepper) nudge(p *Photon) {
	pos, dir := p.Position.Vec3(), p.Direction.Vec3()
	if hit := s.finder.FindFrom(pos, dir, NudgeDistance, location(p)); hit.Exists {
		stopAt(p, hit)
		return
	}
	p.Position = pos.Add(dir.Mul(NudgeDistance)).Vec4(1)
}

func location(p *Photon) intersection.Location {
	return intersection.Location{SolidID: p.SolidID, PolygonID: p.PolygonID}
}

// Move the photon onto a surface and wait for the interface to be resolved.
func stopAt(p *Photon, hit intersection.Intersection) {
	p.Position = hit.Position.Vec4(1)
	p.Normal = hit.Normal.Vec4(0)
	p.SurfaceID = hit.SurfaceID
	p.PolygonID = hit.PolygonID
	p.State = AtInterface
}

// Log the photon weight crossing a surface: positive when entering the
// inside solid and negative when leaving it. A solid on the outside side gets
// a row with the opposite sign.
func (s *Stepper) logCrossing(p *Photon, surface *scene.Surface, entering bool, rows []LogRow) []LogRow {
	w := p.Weight
	if !entering {
		w = -w
	}

	pos := p.Position.Vec3()
	rows = append(rows, LogRow{
		Weight:    w,
		X:         pos[0],
		Y:         pos[1],
		Z:         pos[2],
		SolidID:   surface.InsideSolid,
		SurfaceID: p.SurfaceID,
	})

	if surface.OutsideSolid != scene.NoSolidID {
		rows = append(rows, LogRow{
			Weight:    -w,
			X:         pos[0],
			Y:         pos[1],
			Z:         pos[2],
			SolidID:   surface.OutsideSolid,
			SurfaceID: p.SurfaceID,
		})
	}
	return rows
}

// Apply the roulette to a weight below threshold: the weight is either
// boosted by 1/SurvivalChance or zeroed so that its expected value is kept.
func Roulette(weight, threshold float32, rnd *rng.Stream) float32 {
	if weight >= threshold || weight == 0 {
		return weight
	}
	if rnd.Float32() < SurvivalChance {
		return weight / SurvivalChance
	}
	return 0
}

// Rotate er around the direction by phi, then the direction around er by
// theta.
func scatter(p *Photon, theta, phi float32) {
	er := p.Er.Vec3().RotateAround(p.Direction.Vec3(), phi)
	dir := p.Direction.Vec3().RotateAround(er, theta)
	p.Er = er.Normalize().Vec4(0)
	p.Direction = dir.Normalize().Vec4(0)
}

func rotateFrame(p *Photon, axis types.Vec3, angle float32) {
	p.Direction = p.Direction.Vec3().RotateAround(axis, angle).Normalize().Vec4(0)
	p.Er = p.Er.Vec3().RotateAround(axis, angle).Normalize().Vec4(0)
}

// Reflect dir about a surface with the given normal.
func Reflect(dir, normal types.Vec3) types.Vec3 {
	iface, _ := material.NewInterface(dir, normal)
	theta := iface.ThetaIn
	if iface.NormalIncidence {
		theta = 0
	}
	return dir.RotateAround(iface.IncidencePlane, material.ReflectionDeflection(theta))
}

// Refract dir through a surface with the given normal going from index nIn
// into index nOut. Returns false on total internal reflection.
func Refract(dir, normal types.Vec3, nIn, nOut float32) (types.Vec3, bool) {
	iface, _ := material.NewInterface(dir, normal)
	theta := iface.ThetaIn
	if iface.NormalIncidence {
		theta = 0
	}
	if material.Reflectance(theta, nIn, nOut) >= 1 {
		return dir, false
	}
	return dir.RotateAround(iface.IncidencePlane, -material.RefractionDeflection(theta, nIn, nOut)), true
}
