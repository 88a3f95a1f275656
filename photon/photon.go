package photon

import (
	"github.com/achilleasa/turbid/scene"
	"github.com/achilleasa/turbid/types"
)

// State of a photon.
type State uint32

// Photon states.
const (
	Propagating State = iota
	AtInterface
	Terminated
)

// Implements Stringer.
func (s State) String() string {
	switch s {
	case Propagating:
		return "propagating"
	case AtInterface:
		return "at-interface"
	case Terminated:
		return "terminated"
	}
	return "unknown"
}

// Marks a photon without a pending scattering distance.
const NoDistance float32 = -1

// Size of the fixed-layout structs in bytes.
const (
	SizeofPhoton = 112
	SizeofLogRow = 24
)

// Photon is the per-slot state advanced by the propagation step. The layout
// matches the Photon struct of the device kernels.
type Photon struct {
	Position  types.Vec4
	Direction types.Vec4

	// Unit vector perpendicular to Direction that tracks the orientation of
	// the scattering plane.
	Er types.Vec4

	// Normal of the surface the photon is resting on while AtInterface.
	Normal types.Vec4

	Weight     float32
	MaterialID int32
	SolidID    int32
	ID         uint32

	// Random generator state.
	Seed uint32

	State     State
	SurfaceID int32

	// Free path left before the next interaction, or NoDistance.
	Distance float32

	// Polygon the photon rests on or has just crossed; excluded from the
	// next intersection search. Reset to scene.NoPolygonID on scattering.
	PolygonID int32

	// Interface events since the last scattering event.
	Bounces uint32

	_ [2]uint32
}

// LogRow records an energy deposit (absorption) or a surface crossing.
type LogRow struct {
	Weight    float32
	X, Y, Z   float32
	SolidID   int32
	SurfaceID int32
}

// Create a photon with unit weight travelling along dir from pos inside the
// given solid and material.
func New(id uint32, pos, dir types.Vec3, solidID, materialID int32, seed uint32) Photon {
	dir = dir.Normalize()
	return Photon{
		Position:   pos.Vec4(1),
		Direction:  dir.Vec4(0),
		Er:         dir.AnyOrthogonal().Normalize().Vec4(0),
		Weight:     1,
		MaterialID: materialID,
		SolidID:    solidID,
		ID:         id,
		Seed:       seed,
		State:      Propagating,
		SurfaceID:  scene.NoSurfaceID,
		Distance:   NoDistance,
		PolygonID:  scene.NoPolygonID,
	}
}

// Check whether the photon has been terminated.
func (p *Photon) Done() bool {
	return p.State == Terminated
}

// Check whether the photon left the scene instead of being absorbed.
func (p *Photon) Exited() bool {
	return p.State == Terminated && p.Weight > 0
}
