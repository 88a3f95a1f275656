package intersection

import "github.com/achilleasa/turbid/types"

// Tolerances of the ray/triangle test.
const (
	// Rays with |det| below this value are parallel to the triangle plane.
	epsParallel = 1e-6

	// Barycentric tolerance that widens triangles so rays cannot slip
	// through the seam between two neighbours.
	epsSide = 3e-6

	// Hits beyond the end of the ray whose perpendicular gap to the plane is
	// below this value are still reported.
	epsCatch = 1e-7

	// Hits behind the ray origin closer than this are still reported; the
	// origin has drifted just past the plane.
	epsBackCatch = 2e-6

	// Hits closer than this may be the surface the ray starts on and are
	// only kept when the ray leaves the side its origin belongs to.
	SelfHitEpsilon = 1e-5
)

// Result of a ray/triangle test: distance along the ray and the barycentric
// coordinates of the hit.
type triangleHit struct {
	t, u, v float32
}

// Möller–Trumbore ray/triangle intersection limited to rays of length
// maxDistance. The returned distance is negative for hits caught behind the
// origin.
func intersectTriangle(origin, dir, v0, v1, v2, normal types.Vec3, maxDistance float32) (triangleHit, bool) {
	edgeA := v1.Sub(v0)
	edgeB := v2.Sub(v0)
	p := dir.Cross(edgeB)
	det := edgeA.Dot(p)
	if det > -epsParallel && det < epsParallel {
		return triangleHit{}, false
	}

	invDet := 1 / det
	tv := origin.Sub(v0)
	u := tv.Dot(p) * invDet
	if u < -epsSide || u > 1 {
		return triangleHit{}, false
	}

	q := tv.Cross(edgeA)
	v := dir.Dot(q) * invDet
	if v < -epsSide || u+v > 1+epsSide {
		return triangleHit{}, false
	}

	t := edgeB.Dot(q) * invDet
	if t < 0 {
		// Backward catch: the origin sits just past the plane.
		if t > -epsBackCatch || abs(normal.Dot(dir)*t) < epsCatch {
			return triangleHit{t, u, v}, true
		}
		return triangleHit{}, false
	}

	if t <= maxDistance {
		return triangleHit{t, u, v}, true
	}

	// Forward catch: the ray ends so close to the plane that the next search
	// would start inside the epsilon zone.
	if gap := abs(normal.Dot(dir) * (t - maxDistance)); gap < epsCatch {
		return triangleHit{t, u, v}, true
	}

	return triangleHit{}, false
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
