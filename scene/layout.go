package scene

import "github.com/achilleasa/turbid/types"

// Identifiers shared with the device kernels.
const (
	// Solids are numbered from 1; 0 marks log slots that were never written.
	FirstSolidID int32 = 1
	NoLogID      int32 = 0
	NoSolidID    int32 = -1
	NoSurfaceID  int32 = -1
	NoPolygonID  int32 = -1

	// Index of the world material in the material table.
	WorldMaterialID int32 = 0

	WorldLabel = "world"
)

// Size of the fixed-layout structs in bytes.
const (
	SizeofSolid    = 48
	SizeofSurface  = 32
	SizeofTriangle = 32
	SizeofVertex   = 32
)

// A solid is a closed group of surfaces with an axis-aligned bounding box
// used for broad-phase intersection tests.
type Solid struct {
	BBoxMin types.Vec4
	BBoxMax types.Vec4

	// Inclusive range of surface ids.
	FirstSurface int32
	LastSurface  int32

	_ [2]int32
}

// A surface is a group of polygons separating two environments.
type Surface struct {
	// Inclusive range of triangle ids.
	FirstPolygon int32
	LastPolygon  int32

	InsideMaterial  int32
	OutsideMaterial int32
	InsideSolid     int32
	OutsideSolid    int32

	// Set to 1 to interpolate vertex normals at hit points.
	Smooth uint32

	_ int32
}

// A triangle with an outward facing normal.
type Triangle struct {
	Vertices [3]int32
	_        int32
	Normal   types.Vec4
}

// A mesh vertex. A zero normal means that no vertex normal is available.
type Vertex struct {
	Position types.Vec4
	Normal   types.Vec4
}
