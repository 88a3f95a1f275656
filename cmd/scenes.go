package cmd

import (
	"fmt"

	"github.com/achilleasa/turbid/material"
	"github.com/achilleasa/turbid/scene"
	"github.com/achilleasa/turbid/types"
)

// Optical properties of the inclusion used by the cuboid and sphere scenes.
var inclusionProps = struct{ muS, muA, g, n float32 }{1, 1, 0.8, 1.33}

// A demo scene and the label of its innermost solid.
type demoScene struct {
	sc        *scene.Scene
	innermost string

	// Half thickness of the slab along z.
	halfDepth float32
}

// Build one of the demo scenes: a slab, a slab with a cuboid inclusion or a
// slab with a sphere inclusion. The slab is centered at the origin and its
// faces are normal to the z axis.
func buildDemoScene(name string, tissue material.Material, width, depth float32) (*demoScene, error) {
	b := scene.NewBuilder(material.Vacuum(1))
	tissueID := b.AddMaterial(tissue)
	slab := b.AddSolid("slab", scene.Cuboid(types.XYZ(width, width, depth), types.Vec3{}), tissueID)

	demo := &demoScene{innermost: "slab", halfDepth: depth / 2}

	if name != "slab" {
		inclusion, err := material.New(inclusionProps.muS, inclusionProps.muA, inclusionProps.g, inclusionProps.n)
		if err != nil {
			return nil, err
		}
		inclusionID := b.AddMaterial(inclusion)
		size := depth / 2

		switch name {
		case "cuboid":
			b.AddSolid("cuboid", scene.Cuboid(types.XYZ(size, size, size), types.Vec3{}), inclusionID, scene.Inside(slab))
		case "sphere":
			b.AddSolid("sphere", scene.Icosphere(size/2, types.Vec3{}, 3), inclusionID, scene.Inside(slab), scene.Smooth())
		default:
			return nil, fmt.Errorf("unknown demo scene %q", name)
		}
		demo.innermost = name
	}

	sc, err := b.Build()
	if err != nil {
		return nil, err
	}
	demo.sc = sc
	return demo, nil
}
