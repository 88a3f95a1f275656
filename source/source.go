// Package source emits the initial photon population of a run.
package source

import (
	"errors"
	"fmt"
	"math"

	"github.com/achilleasa/turbid/photon"
	"github.com/achilleasa/turbid/rng"
	"github.com/achilleasa/turbid/scene"
	"github.com/achilleasa/turbid/types"
)

var ErrUnknownSolid = errors.New("source: unknown solid label")

// A Source creates photons with unit weight inside a labelled solid.
type Source interface {
	// Label of the solid that contains the source; "world" for none.
	SolidLabel() string

	// Create n photons. Photon seeds are derived from runSeed.
	Photons(sc *scene.Scene, n int, runSeed uint32) ([]photon.Photon, error)
}

// Pencil emits every photon from the same position along the same direction.
type Pencil struct {
	Position  types.Vec3
	Direction types.Vec3
	Solid     string
}

// Implements Source.
func (s *Pencil) SolidLabel() string {
	return labelOrWorld(s.Solid)
}

// Implements Source.
func (s *Pencil) Photons(sc *scene.Scene, n int, runSeed uint32) ([]photon.Photon, error) {
	solidID, materialID, err := environment(sc, s.SolidLabel())
	if err != nil {
		return nil, err
	}

	out := make([]photon.Photon, n)
	for i := range out {
		id := uint32(i)
		out[i] = photon.New(id, s.Position, s.Direction, solidID, materialID, rng.SeedFor(runSeed, id))
	}
	return out, nil
}

// IsotropicPoint emits photons from a point in uniformly distributed
// directions.
type IsotropicPoint struct {
	Position types.Vec3
	Solid    string
}

// Implements Source.
func (s *IsotropicPoint) SolidLabel() string {
	return labelOrWorld(s.Solid)
}

// Implements Source.
func (s *IsotropicPoint) Photons(sc *scene.Scene, n int, runSeed uint32) ([]photon.Photon, error) {
	solidID, materialID, err := environment(sc, s.SolidLabel())
	if err != nil {
		return nil, err
	}

	rnd := rng.NewStream(rng.Next(runSeed ^ 0x5bd1e995))
	out := make([]photon.Photon, n)
	for i := range out {
		cosTheta := 2*float64(rnd.Float32()) - 1
		phi := 2 * math.Pi * float64(rnd.Float32())
		sinTheta := math.Sqrt(1 - cosTheta*cosTheta)
		dir := types.XYZ(
			float32(sinTheta*math.Cos(phi)),
			float32(sinTheta*math.Sin(phi)),
			float32(cosTheta),
		)

		id := uint32(i)
		out[i] = photon.New(id, s.Position, dir, solidID, materialID, rng.SeedFor(runSeed, id))
	}
	return out, nil
}

func labelOrWorld(label string) string {
	if label == "" {
		return scene.WorldLabel
	}
	return label
}

func environment(sc *scene.Scene, label string) (solidID, materialID int32, err error) {
	solidID, ok := sc.Labels.SolidID(label)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownSolid, label)
	}
	return solidID, sc.EnvironmentOf(solidID), nil
}
