package scene

import (
	"errors"
	"fmt"

	"github.com/achilleasa/turbid/material"
)

var (
	ErrEmptyMesh       = errors.New("scene builder: mesh has no faces")
	ErrUnknownMaterial = errors.New("scene builder: unknown material id")
	ErrUnknownSolid    = errors.New("scene builder: unknown parent solid id")
	ErrDuplicateLabel  = errors.New("scene builder: duplicate solid label")
	ErrReservedLabel   = errors.New("scene builder: solid label is reserved")
)

// A SolidOption customizes how a solid is added to the scene.
type SolidOption func(*solidOpts)

type solidOpts struct {
	smooth bool
	parent int32
}

// Interpolate vertex normals at hit points. Requires a mesh with normals.
func Smooth() SolidOption {
	return func(o *solidOpts) { o.smooth = true }
}

// Place the solid inside another solid; its outside environment becomes the
// parent's medium instead of the world.
func Inside(parentID int32) SolidOption {
	return func(o *solidOpts) { o.parent = parentID }
}

// Builder assembles a flat scene from meshes.
type Builder struct {
	sc  *Scene
	err error
}

// Create a new builder. The world material fills all space outside solids.
func NewBuilder(world material.Material) *Builder {
	world.ID = WorldMaterialID
	return &Builder{
		sc: &Scene{
			Materials: []material.Material{world},
		},
	}
}

// Add a material and return its id.
func (b *Builder) AddMaterial(m material.Material) int32 {
	m.ID = int32(len(b.sc.Materials))
	b.sc.Materials = append(b.sc.Materials, m)
	return m.ID
}

// Add a solid filled with the given material and return its id. Errors are
// deferred until Build is called.
func (b *Builder) AddSolid(label string, mesh *Mesh, materialID int32, options ...SolidOption) int32 {
	if b.err != nil {
		return NoSolidID
	}

	opts := solidOpts{parent: NoSolidID}
	for _, opt := range options {
		opt(&opts)
	}

	switch {
	case label == WorldLabel:
		b.err = fmt.Errorf("%w: %q", ErrReservedLabel, label)
	case materialID < 0 || int(materialID) >= len(b.sc.Materials):
		b.err = fmt.Errorf("%w: %d", ErrUnknownMaterial, materialID)
	case opts.parent != NoSolidID && (opts.parent < FirstSolidID || int(opts.parent-FirstSolidID) >= len(b.sc.Solids)):
		b.err = fmt.Errorf("%w: %d", ErrUnknownSolid, opts.parent)
	}
	if _, exists := b.sc.Labels.SolidID(label); exists && b.err == nil {
		b.err = fmt.Errorf("%w: %q", ErrDuplicateLabel, label)
	}
	if b.err != nil {
		return NoSolidID
	}

	faceCount := 0
	for _, g := range mesh.Groups {
		faceCount += len(g.Faces)
	}
	if faceCount == 0 {
		b.err = fmt.Errorf("%w: %q", ErrEmptyMesh, label)
		return NoSolidID
	}

	solidID := int32(len(b.sc.Solids)) + FirstSolidID
	outsideMaterial := WorldMaterialID
	if opts.parent != NoSolidID {
		outsideMaterial = b.sc.EnvironmentOf(opts.parent)
	}

	// Vertices
	vertexOffset := int32(len(b.sc.Vertices))
	for i, v := range mesh.Vertices {
		vertex := Vertex{Position: v.Vec4(1)}
		if opts.smooth && i < len(mesh.Normals) {
			vertex.Normal = mesh.Normals[i].Normalize().Vec4(0)
		}
		b.sc.Vertices = append(b.sc.Vertices, vertex)
	}

	// Surfaces and triangles
	firstSurface := int32(len(b.sc.Surfaces))
	for _, g := range mesh.Groups {
		if len(g.Faces) == 0 {
			continue
		}

		surface := Surface{
			FirstPolygon:    int32(len(b.sc.Triangles)),
			InsideMaterial:  materialID,
			OutsideMaterial: outsideMaterial,
			InsideSolid:     solidID,
			OutsideSolid:    opts.parent,
		}
		if opts.smooth && len(mesh.Normals) == len(mesh.Vertices) {
			surface.Smooth = 1
		}

		for _, f := range g.Faces {
			v0, v1, v2 := mesh.Vertices[f[0]], mesh.Vertices[f[1]], mesh.Vertices[f[2]]
			normal := v1.Sub(v0).Cross(v2.Sub(v0)).Normalize()
			b.sc.Triangles = append(b.sc.Triangles, Triangle{
				Vertices: [3]int32{vertexOffset + int32(f[0]), vertexOffset + int32(f[1]), vertexOffset + int32(f[2])},
				Normal:   normal.Vec4(0),
			})
		}
		surface.LastPolygon = int32(len(b.sc.Triangles)) - 1

		b.sc.Surfaces = append(b.sc.Surfaces, surface)
		b.sc.Labels.surfaces = append(b.sc.Labels.surfaces, g.Label)
	}

	lo, hi := mesh.Bounds()
	b.sc.Solids = append(b.sc.Solids, Solid{
		BBoxMin:      lo.Vec4(1),
		BBoxMax:      hi.Vec4(1),
		FirstSurface: firstSurface,
		LastSurface:  int32(len(b.sc.Surfaces)) - 1,
	})
	b.sc.Labels.solids = append(b.sc.Labels.solids, label)

	return solidID
}

// Finalize the scene.
func (b *Builder) Build() (*Scene, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.sc.Validate(); err != nil {
		return nil, err
	}
	return b.sc, nil
}
