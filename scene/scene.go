package scene

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/achilleasa/turbid/material"
	"github.com/olekukonko/tablewriter"
)

var (
	ErrNoMaterials       = errors.New("scene: material table is empty")
	ErrBadMaterial       = errors.New("scene: material cannot be simulated")
	ErrInvalidSurfaceRef = errors.New("scene: solid references an invalid surface range")
	ErrInvalidPolygonRef = errors.New("scene: surface references an invalid polygon range")
	ErrInvalidVertexRef  = errors.New("scene: triangle references an unknown vertex")
	ErrInvalidMaterial   = errors.New("scene: surface references an unknown material")
	ErrInvalidSolidRef   = errors.New("scene: surface references an unknown solid")
)

// Scene is the flat, read-only description of the geometry and materials
// that photons are propagated through. All slices use the fixed layouts
// shared with the device kernels and can be uploaded as-is.
type Scene struct {
	Solids    []Solid
	Surfaces  []Surface
	Triangles []Triangle
	Vertices  []Vertex

	// Material 0 is the world material.
	Materials []material.Material

	Labels Labels
}

// Get a solid by id.
func (sc *Scene) Solid(solidID int32) *Solid {
	return &sc.Solids[solidID-FirstSolidID]
}

// Get the material id of the medium enclosed by a solid. The world solid
// maps to the world material.
func (sc *Scene) EnvironmentOf(solidID int32) int32 {
	if solidID < FirstSolidID || int(solidID-FirstSolidID) >= len(sc.Solids) {
		return WorldMaterialID
	}
	return sc.Surfaces[sc.Solid(solidID).FirstSurface].InsideMaterial
}

// Check that all ids and ranges reference existing entries.
func (sc *Scene) Validate() error {
	if len(sc.Materials) == 0 {
		return ErrNoMaterials
	}
	for index := range sc.Materials {
		if err := sc.Materials[index].Validate(); err != nil {
			return fmt.Errorf("%w (material %d): %w", ErrBadMaterial, index, err)
		}
	}

	for solidIndex, solid := range sc.Solids {
		if solid.FirstSurface < 0 || solid.LastSurface < solid.FirstSurface || int(solid.LastSurface) >= len(sc.Surfaces) {
			return fmt.Errorf("%w (solid %d)", ErrInvalidSurfaceRef, int32(solidIndex)+FirstSolidID)
		}
	}

	validSolid := func(id int32) bool {
		return id == NoSolidID || (id >= FirstSolidID && int(id-FirstSolidID) < len(sc.Solids))
	}

	for surfaceIndex, surface := range sc.Surfaces {
		if surface.FirstPolygon < 0 || surface.LastPolygon < surface.FirstPolygon || int(surface.LastPolygon) >= len(sc.Triangles) {
			return fmt.Errorf("%w (surface %d)", ErrInvalidPolygonRef, surfaceIndex)
		}
		if surface.InsideMaterial < 0 || int(surface.InsideMaterial) >= len(sc.Materials) ||
			surface.OutsideMaterial < 0 || int(surface.OutsideMaterial) >= len(sc.Materials) {
			return fmt.Errorf("%w (surface %d)", ErrInvalidMaterial, surfaceIndex)
		}
		if !validSolid(surface.InsideSolid) || !validSolid(surface.OutsideSolid) {
			return fmt.Errorf("%w (surface %d)", ErrInvalidSolidRef, surfaceIndex)
		}
	}

	for triIndex, tri := range sc.Triangles {
		for _, v := range tri.Vertices {
			if v < 0 || int(v) >= len(sc.Vertices) {
				return fmt.Errorf("%w (triangle %d)", ErrInvalidVertexRef, triIndex)
			}
		}
	}

	return nil
}

// Get the total size of the scene buffers in bytes.
func (sc *Scene) SizeInBytes() int {
	return sizeOf(sc.Solids, sc.Surfaces, sc.Triangles, sc.Vertices, sc.Materials)
}

// Generate a table with scene statistics.
func (sc *Scene) Stats() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Asset Type", "Count", "Size"})
	table.Append([]string{"Solids", fmt.Sprint(len(sc.Solids)), fmtSize(sc.Solids)})
	table.Append([]string{"Surfaces", fmt.Sprint(len(sc.Surfaces)), fmtSize(sc.Surfaces)})
	table.Append([]string{"Triangles", fmt.Sprint(len(sc.Triangles)), fmtSize(sc.Triangles)})
	table.Append([]string{"Vertices", fmt.Sprint(len(sc.Vertices)), fmtSize(sc.Vertices)})
	table.Append([]string{"Materials", fmt.Sprint(len(sc.Materials)), fmtSize(sc.Materials)})
	table.SetFooter([]string{"Total", " ", strings.TrimLeft(fmtSize(sc.Solids, sc.Surfaces, sc.Triangles, sc.Vertices, sc.Materials), " ")})

	table.Render()
	return buf.String()
}

func sizeOf(items ...interface{}) int {
	total := 0
	for _, item := range items {
		t := reflect.TypeOf(item)
		v := reflect.ValueOf(item)
		total += int(t.Elem().Size()) * v.Len()
	}
	return total
}

// Sum the total space used by a set of slices and return back a formatted
// value with the appropriate byte/kb/mb unit.
func fmtSize(items ...interface{}) string {
	totalBytes := float32(sizeOf(items...))

	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", int(totalBytes))
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", totalBytes/1e3)
	}
	return fmt.Sprintf("%5.1f mb", totalBytes/1e6)
}
