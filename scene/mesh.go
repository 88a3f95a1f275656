package scene

import (
	"math"

	"github.com/achilleasa/turbid/types"
)

// A group of faces that make up one labelled surface.
type FaceGroup struct {
	Label string
	Faces [][3]int
}

// Mesh is the input geometry of a solid. Faces must be wound counter-clockwise
// when viewed from outside the solid so their normals face outwards.
type Mesh struct {
	Vertices []types.Vec3

	// Optional per-vertex normals used for smoothing.
	Normals []types.Vec3

	Groups []FaceGroup
}

// Get the bounding box of the mesh vertices.
func (m *Mesh) Bounds() (lo, hi types.Vec3) {
	inf := float32(math.Inf(1))
	lo = types.XYZ(inf, inf, inf)
	hi = types.XYZ(-inf, -inf, -inf)
	for _, v := range m.Vertices {
		lo = types.MinVec3(lo, v)
		hi = types.MaxVec3(hi, v)
	}
	return lo, hi
}

// Create an axis-aligned box with the given dimensions. Each side is a
// separate surface labelled left, right, bottom, top, front or back.
func Cuboid(size, center types.Vec3) *Mesh {
	h := size.Mul(0.5)
	corner := func(sx, sy, sz float32) types.Vec3 {
		return center.Add(types.XYZ(sx*h[0], sy*h[1], sz*h[2]))
	}

	m := &Mesh{
		Vertices: []types.Vec3{
			corner(-1, -1, -1),
			corner(1, -1, -1),
			corner(1, 1, -1),
			corner(-1, 1, -1),
			corner(-1, -1, 1),
			corner(1, -1, 1),
			corner(1, 1, 1),
			corner(-1, 1, 1),
		},
	}

	quads := []struct {
		label string
		v     [4]int
	}{
		{"left", [4]int{0, 4, 7, 3}},
		{"right", [4]int{1, 2, 6, 5}},
		{"front", [4]int{0, 1, 5, 4}},
		{"back", [4]int{3, 7, 6, 2}},
		{"bottom", [4]int{0, 3, 2, 1}},
		{"top", [4]int{4, 5, 6, 7}},
	}
	for _, q := range quads {
		m.Groups = append(m.Groups, FaceGroup{
			Label: q.label,
			Faces: [][3]int{
				{q.v[0], q.v[1], q.v[2]},
				{q.v[0], q.v[2], q.v[3]},
			},
		})
	}
	return m
}

// Create a sphere by subdividing an icosahedron. The sphere is a single
// surface labelled "surface" and carries per-vertex normals.
func Icosphere(radius float32, center types.Vec3, subdivisions int) *Mesh {
	t := float32((1 + math.Sqrt(5)) / 2)
	verts := []types.Vec3{
		{-1, t, 0}, {1, t, 0}, {-1, -t, 0}, {1, -t, 0},
		{0, -1, t}, {0, 1, t}, {0, -1, -t}, {0, 1, -t},
		{t, 0, -1}, {t, 0, 1}, {-t, 0, -1}, {-t, 0, 1},
	}
	for i := range verts {
		verts[i] = verts[i].Normalize()
	}
	faces := [][3]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}

	for level := 0; level < subdivisions; level++ {
		midpoints := make(map[[2]int]int)
		midpoint := func(a, b int) int {
			key := [2]int{a, b}
			if b < a {
				key = [2]int{b, a}
			}
			if idx, ok := midpoints[key]; ok {
				return idx
			}
			verts = append(verts, verts[a].Add(verts[b]).Mul(0.5).Normalize())
			midpoints[key] = len(verts) - 1
			return len(verts) - 1
		}

		next := make([][3]int, 0, len(faces)*4)
		for _, f := range faces {
			ab, bc, ca := midpoint(f[0], f[1]), midpoint(f[1], f[2]), midpoint(f[2], f[0])
			next = append(next,
				[3]int{f[0], ab, ca},
				[3]int{f[1], bc, ab},
				[3]int{f[2], ca, bc},
				[3]int{ab, bc, ca},
			)
		}
		faces = next
	}

	// Enforce outward winding.
	for i, f := range faces {
		n := verts[f[1]].Sub(verts[f[0]]).Cross(verts[f[2]].Sub(verts[f[0]]))
		if n.Dot(verts[f[0]].Add(verts[f[1]]).Add(verts[f[2]])) < 0 {
			faces[i] = [3]int{f[0], f[2], f[1]}
		}
	}

	m := &Mesh{
		Vertices: make([]types.Vec3, len(verts)),
		Normals:  make([]types.Vec3, len(verts)),
		Groups:   []FaceGroup{{Label: "surface", Faces: faces}},
	}
	for i, v := range verts {
		m.Vertices[i] = center.Add(v.Mul(radius))
		m.Normals[i] = v
	}
	return m
}
