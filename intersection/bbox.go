package intersection

import "github.com/achilleasa/turbid/types"

const (
	quadrantLeft = iota
	quadrantRight
	quadrantMiddle
)

// Intersect a ray with an axis-aligned box (Graphics Gems, "Fast Ray-Box
// Intersection"). Returns the distance to the entry point or false if the box
// is missed or farther than maxDistance. Rays starting inside the box report
// a distance of 0; rays lying on a box plane count as hits.
func intersectBox(origin, dir, boxMin, boxMax types.Vec3, maxDistance float32) (float32, bool) {
	var (
		quadrant  [3]int
		candidate [3]float32
		maxT      [3]float32
		inside    = true
	)

	for i := 0; i < 3; i++ {
		switch {
		case origin[i] < boxMin[i]:
			quadrant[i] = quadrantLeft
			candidate[i] = boxMin[i]
			inside = false
		case origin[i] > boxMax[i]:
			quadrant[i] = quadrantRight
			candidate[i] = boxMax[i]
			inside = false
		default:
			quadrant[i] = quadrantMiddle
		}
	}

	if inside {
		return 0, true
	}

	// Distances to the candidate planes; the largest one is the entry plane.
	plane := 0
	for i := 0; i < 3; i++ {
		maxT[i] = -1
		if quadrant[i] != quadrantMiddle && dir[i] != 0 {
			maxT[i] = (candidate[i] - origin[i]) / dir[i]
		}
		if maxT[i] > maxT[plane] {
			plane = i
		}
	}

	if maxT[plane] < 0 || maxT[plane] > maxDistance {
		return 0, false
	}

	for i := 0; i < 3; i++ {
		if i == plane {
			continue
		}
		hit := origin[i] + maxT[plane]*dir[i]
		if hit < boxMin[i] || hit > boxMax[i] {
			return 0, false
		}
	}

	return maxT[plane], true
}
