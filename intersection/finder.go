package intersection

import (
	"math"
	"sort"

	"github.com/achilleasa/turbid/scene"
	"github.com/achilleasa/turbid/types"
)

// Intersection is the result of a ray query against the scene.
type Intersection struct {
	Exists bool

	// Distance from the ray origin to the hit point.
	Distance float32
	Position types.Vec3

	// Surface normal at the hit point; interpolated on smoothed surfaces.
	Normal types.Vec3

	SurfaceID int32
	PolygonID int32

	// Ray length left after reaching the hit point. Never negative.
	Remaining float32
}

// A solid whose bounding box is crossed by a ray.
type Candidate struct {
	SolidID int32

	// Distance to the box entry point; 0 if the ray starts inside the box.
	Distance float32
}

// Finder answers ray queries against a read-only scene. It holds no mutable
// state and can be shared between goroutines.
type Finder struct {
	sc *scene.Scene

	// Triangle BVH per solid; nil for solids that are scanned linearly.
	bvhs []*solidBvh
}

// Create a new finder for the given scene.
func NewFinder(sc *scene.Scene) *Finder {
	f := &Finder{
		sc:   sc,
		bvhs: make([]*solidBvh, len(sc.Solids)),
	}
	for index := range sc.Solids {
		f.bvhs[index] = buildSolidBvh(sc, int32(index)+scene.FirstSolidID)
	}
	return f
}

// Find the solids whose bounding boxes are crossed by the ray within
// maxDistance, nearest first. Boxes are padded so that origins resting just
// outside a solid still see its surfaces.
func (f *Finder) CandidateSolids(origin, dir types.Vec3, maxDistance float32) []Candidate {
	var candidates []Candidate
	for index := range f.sc.Solids {
		solid := &f.sc.Solids[index]
		dist, hit := intersectBox(origin, dir, pad(solid.BBoxMin.Vec3(), -boxPadding), pad(solid.BBoxMax.Vec3(), boxPadding), maxDistance)
		if !hit {
			continue
		}
		candidates = append(candidates, Candidate{
			SolidID:  int32(index) + scene.FirstSolidID,
			Distance: dist,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})
	return candidates
}

// Location of a ray origin inside the scene.
type Location struct {
	// Solid containing the origin; scene.NoSolidID for the world.
	SolidID int32

	// Polygon the origin rests on. It is never reported.
	PolygonID int32
}

// Origin with unknown location. Hits closer than SelfHitEpsilon are skipped.
var Unlocated = Location{SolidID: unknownSolid, PolygonID: scene.NoPolygonID}

const unknownSolid int32 = math.MinInt32

// Find the closest triangle of a solid crossed by the ray within maxDistance.
// Ties are resolved in favour of the lowest polygon id.
func (f *Finder) NearestTriangleIntersection(origin, dir types.Vec3, maxDistance float32, solidID int32) Intersection {
	return f.nearestTriangle(origin, dir, maxDistance, solidID, Unlocated)
}

func (f *Finder) nearestTriangle(origin, dir types.Vec3, maxDistance float32, solidID int32, loc Location) Intersection {
	var best nearestHit
	if bvh := f.bvhs[solidID-scene.FirstSolidID]; bvh != nil {
		best = f.traverse(bvh, origin, dir, maxDistance, loc)
	} else {
		best = f.scan(origin, dir, maxDistance, solidID, loc)
	}

	if best.polygonID < 0 {
		return Intersection{}
	}
	return f.makeIntersection(origin, dir, maxDistance, best.hit, best.surfaceID, best.polygonID)
}

// The closest triangle hit found so far.
type nearestHit struct {
	hit       triangleHit
	polygonID int32
	surfaceID int32
}

func newNearestHit() nearestHit {
	return nearestHit{
		hit:       triangleHit{t: float32(math.Inf(1))},
		polygonID: scene.NoPolygonID,
		surfaceID: scene.NoSurfaceID,
	}
}

// Test a triangle and keep it if it is closer than the current best.
func (f *Finder) test(best *nearestHit, origin, dir types.Vec3, maxDistance float32, polyID, surfaceID int32, loc Location) {
	if polyID == loc.PolygonID {
		return
	}

	tri := &f.sc.Triangles[polyID]
	hit, ok := intersectTriangle(
		origin, dir,
		f.sc.Vertices[tri.Vertices[0]].Position.Vec3(),
		f.sc.Vertices[tri.Vertices[1]].Position.Vec3(),
		f.sc.Vertices[tri.Vertices[2]].Position.Vec3(),
		tri.Normal.Vec3(),
		maxDistance,
	)
	if !ok {
		return
	}
	if hit.t < SelfHitEpsilon && !f.leavesSide(loc, tri, surfaceID, dir) {
		return
	}
	if hit.t < best.hit.t || (hit.t == best.hit.t && polyID < best.polygonID) {
		*best = nearestHit{hit: hit, polygonID: polyID, surfaceID: surfaceID}
	}
}

// Check whether a ray starting next to a triangle crosses it away from the
// solid containing the origin. Crossings towards the origin's solid are the
// trace of a surface the ray has already passed.
func (f *Finder) leavesSide(loc Location, tri *scene.Triangle, surfaceID int32, dir types.Vec3) bool {
	if loc.SolidID == unknownSolid {
		return false
	}
	surface := &f.sc.Surfaces[surfaceID]
	if tri.Normal.Vec3().Dot(dir) > 0 {
		return surface.InsideSolid == loc.SolidID
	}
	return surface.OutsideSolid == loc.SolidID
}

// Test every triangle of a solid.
func (f *Finder) scan(origin, dir types.Vec3, maxDistance float32, solidID int32, loc Location) nearestHit {
	best := newNearestHit()
	solid := f.sc.Solid(solidID)
	for surfaceID := solid.FirstSurface; surfaceID <= solid.LastSurface; surfaceID++ {
		surface := &f.sc.Surfaces[surfaceID]
		for polyID := surface.FirstPolygon; polyID <= surface.LastPolygon; polyID++ {
			f.test(&best, origin, dir, maxDistance, polyID, surfaceID, loc)
		}
	}
	return best
}

// Walk a solid BVH skipping nodes whose boxes are entered beyond the
// closest hit found so far. Boxes are not limited by maxDistance since
// hits just past the end of the ray may still be reported.
func (f *Finder) traverse(bvh *solidBvh, origin, dir types.Vec3, maxDistance float32, loc Location) nearestHit {
	best := newNearestHit()

	stack := make([]int32, 1, 64)
	for len(stack) > 0 {
		node := &bvh.nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]
		if _, hit := intersectBox(origin, dir, node.min, node.max, best.hit.t); !hit {
			continue
		}

		if node.isLeaf() {
			for i := node.first; i < node.first+node.count; i++ {
				f.test(&best, origin, dir, maxDistance, bvh.polygons[i], bvh.surfaces[i], loc)
			}
			continue
		}

		stack = append(stack, node.right, node.left)
	}

	return best
}

// Find the closest surface crossed by the ray within maxDistance. Candidate
// solids are visited nearest first and the search stops once the next box
// entry lies beyond the closest hit found so far.
func (f *Finder) Find(origin, dir types.Vec3, maxDistance float32) Intersection {
	return f.FindFrom(origin, dir, maxDistance, Unlocated)
}

// Find the closest surface crossed by a ray whose origin lies at loc. Unlike
// Find, hits next to the origin are reported when the ray leaves the solid
// containing it, so photons resting within SelfHitEpsilon of a surface cannot
// slip through it.
func (f *Finder) FindFrom(origin, dir types.Vec3, maxDistance float32, loc Location) Intersection {
	var best Intersection
	for _, c := range f.CandidateSolids(origin, dir, maxDistance) {
		if best.Exists && c.Distance > best.Distance {
			break
		}
		hit := f.nearestTriangle(origin, dir, maxDistance, c.SolidID, loc)
		if hit.Exists && (!best.Exists || hit.Distance < best.Distance) {
			best = hit
		}
	}
	return best
}

func (f *Finder) makeIntersection(origin, dir types.Vec3, maxDistance float32, hit triangleHit, surfaceID, polyID int32) Intersection {
	tri := &f.sc.Triangles[polyID]
	normal := tri.Normal.Vec3()
	if f.sc.Surfaces[surfaceID].Smooth != 0 {
		normal = f.smoothNormal(tri, normal, dir, hit.u, hit.v)
	}

	// Hits caught behind the origin are reported at distance 0 but keep
	// their position on the plane.
	dist := hit.t
	if dist < 0 {
		dist = 0
	}
	remaining := maxDistance - dist
	if remaining < 0 {
		remaining = 0
	}

	return Intersection{
		Exists:    true,
		Distance:  dist,
		Position:  origin.Add(dir.Mul(hit.t)),
		Normal:    normal,
		SurfaceID: surfaceID,
		PolygonID: polyID,
		Remaining: remaining,
	}
}

// Interpolate the vertex normals at barycentric coordinates (u, v). The flat
// normal is kept when vertex normals are missing or when the interpolated
// normal would face the other way relative to the ray.
func (f *Finder) smoothNormal(tri *scene.Triangle, flat, dir types.Vec3, u, v float32) types.Vec3 {
	n0 := f.sc.Vertices[tri.Vertices[0]].Normal.Vec3()
	n1 := f.sc.Vertices[tri.Vertices[1]].Normal.Vec3()
	n2 := f.sc.Vertices[tri.Vertices[2]].Normal.Vec3()
	if n0.Len() == 0 || n1.Len() == 0 || n2.Len() == 0 {
		return flat
	}

	smooth := n0.Mul(1 - u - v).Add(n1.Mul(u)).Add(n2.Mul(v)).Normalize()
	if (smooth.Dot(dir) < 0) != (flat.Dot(dir) < 0) {
		return flat
	}
	return smooth
}

func pad(v types.Vec3, delta float32) types.Vec3 {
	return types.XYZ(v[0]+delta, v[1]+delta, v[2]+delta)
}
