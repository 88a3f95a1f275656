package intersection

import (
	"math"
	"time"

	"github.com/achilleasa/turbid/log"
	"github.com/achilleasa/turbid/scene"
	"github.com/achilleasa/turbid/types"
)

const (
	// Solids with fewer triangles than this are scanned linearly.
	minBvhTriangles = 16

	// The builder creates a leaf once a node holds this many triangles.
	minLeafTriangles = 4

	// Number of split candidates evaluated per axis.
	splitCandidates = 32

	// The builder does not split along an axis shorter than this.
	minSideLength float32 = 1e-3

	// Node boxes are padded so hits on the widened triangle edges and on
	// axis-aligned triangles are not culled.
	boxPadding float32 = 1e-4
)

// A node of a per-solid triangle BVH. Inner nodes have left/right >= 0;
// leaves reference the range [first, first+count) of the solid's triangle
// list.
type bvhNode struct {
	min, max types.Vec3

	left, right int32
	first       int32
	count       int32
}

func (n *bvhNode) isLeaf() bool {
	return n.left < 0
}

// A triangle reference used while partitioning.
type bvhItem struct {
	polygonID int32
	surfaceID int32

	min, max types.Vec3
	center   types.Vec3
}

// Triangle BVH of a single solid.
type solidBvh struct {
	nodes []bvhNode

	// Polygon and surface ids ordered by leaf.
	polygons []int32
	surfaces []int32
}

type splitScore struct {
	axis       int
	splitPoint float32

	leftCount, rightCount int
	score                 float32
}

type bvhBuilder struct {
	bvh *solidBvh

	// A channel for receiving score results.
	scoreChan chan splitScore

	maxDepth int
}

// Build a BVH over the triangles of a solid using the surface area
// heuristic. Returns nil for solids small enough to be scanned linearly.
func buildSolidBvh(sc *scene.Scene, solidID int32) *solidBvh {
	solid := sc.Solid(solidID)

	var items []bvhItem
	for surfaceID := solid.FirstSurface; surfaceID <= solid.LastSurface; surfaceID++ {
		surface := &sc.Surfaces[surfaceID]
		for polyID := surface.FirstPolygon; polyID <= surface.LastPolygon; polyID++ {
			tri := &sc.Triangles[polyID]
			item := bvhItem{
				polygonID: polyID,
				surfaceID: surfaceID,
				min:       types.XYZ(math.MaxFloat32, math.MaxFloat32, math.MaxFloat32),
				max:       types.XYZ(-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32),
			}
			for _, v := range tri.Vertices {
				pos := sc.Vertices[v].Position.Vec3()
				item.min = types.MinVec3(item.min, pos)
				item.max = types.MaxVec3(item.max, pos)
			}
			item.center = item.min.Add(item.max).Mul(0.5)
			items = append(items, item)
		}
	}

	if len(items) < minBvhTriangles {
		return nil
	}

	b := &bvhBuilder{
		bvh:       &solidBvh{},
		scoreChan: make(chan splitScore),
	}

	start := time.Now()
	b.partition(items, 0)
	log.New("bvh builder").Debugf(
		"solid %d: %d triangles, %d nodes, max depth %d, build time %s",
		solidID, len(items), len(b.bvh.nodes), b.maxDepth, time.Since(start),
	)
	return b.bvh
}

// Partition items and return the node index.
func (b *bvhBuilder) partition(items []bvhItem, depth int) int32 {
	if depth > b.maxDepth {
		b.maxDepth = depth
	}

	node := bvhNode{
		min:  types.XYZ(math.MaxFloat32, math.MaxFloat32, math.MaxFloat32),
		max:  types.XYZ(-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32),
		left: -1, right: -1,
	}
	for i := range items {
		node.min = types.MinVec3(node.min, items[i].min)
		node.max = types.MaxVec3(node.max, items[i].max)
	}
	node.min = pad(node.min, -boxPadding)
	node.max = pad(node.max, boxPadding)

	if len(items) <= minLeafTriangles {
		return b.createLeaf(node, items)
	}

	bestScore := scorePartition(items)
	var bestSplit *splitScore

	// Score the split candidates of each axis in parallel.
	pending := 0
	side := node.max.Sub(node.min)
	for axis := 0; axis < 3; axis++ {
		if side[axis] < minSideLength {
			continue
		}

		step := side[axis] / splitCandidates
		for i := 1; i < splitCandidates; i++ {
			pending++
			go func(axis int, splitPoint float32) {
				lCount, rCount, score := scoreSplit(items, axis, splitPoint)
				b.scoreChan <- splitScore{
					axis:       axis,
					splitPoint: splitPoint,
					leftCount:  lCount,
					rightCount: rCount,
					score:      score,
				}
			}(axis, node.min[axis]+float32(i)*step)
		}
	}

	for ; pending > 0; pending-- {
		candidate := <-b.scoreChan
		if candidate.score < bestScore || (bestSplit != nil && candidate.score == bestScore && lessSplit(candidate, *bestSplit)) {
			bestScore = candidate.score
			bestSplit = &candidate
		}
	}

	if bestSplit == nil {
		return b.createLeaf(node, items)
	}

	left := make([]bvhItem, 0, bestSplit.leftCount)
	right := make([]bvhItem, 0, bestSplit.rightCount)
	for _, item := range items {
		if item.center[bestSplit.axis] < bestSplit.splitPoint {
			left = append(left, item)
		} else {
			right = append(right, item)
		}
	}

	nodeIndex := int32(len(b.bvh.nodes))
	b.bvh.nodes = append(b.bvh.nodes, node)

	leftIndex := b.partition(left, depth+1)
	rightIndex := b.partition(right, depth+1)
	b.bvh.nodes[nodeIndex].left = leftIndex
	b.bvh.nodes[nodeIndex].right = rightIndex

	return nodeIndex
}

func (b *bvhBuilder) createLeaf(node bvhNode, items []bvhItem) int32 {
	node.first = int32(len(b.bvh.polygons))
	node.count = int32(len(items))
	for _, item := range items {
		b.bvh.polygons = append(b.bvh.polygons, item.polygonID)
		b.bvh.surfaces = append(b.bvh.surfaces, item.surfaceID)
	}

	nodeIndex := int32(len(b.bvh.nodes))
	b.bvh.nodes = append(b.bvh.nodes, node)
	return nodeIndex
}

// Break score ties so that the tree does not depend on the order in which
// the scoring goroutines finish.
func lessSplit(a, b splitScore) bool {
	if a.axis != b.axis {
		return a.axis < b.axis
	}
	return a.splitPoint < b.splitPoint
}

// Score a split with the surface area heuristic (lower is better):
//
// left count * left bbox area + right count * right bbox area.
//
// Splits that leave one side empty get the worst possible score.
func scoreSplit(items []bvhItem, axis int, splitPoint float32) (leftCount, rightCount int, score float32) {
	lmin := types.XYZ(math.MaxFloat32, math.MaxFloat32, math.MaxFloat32)
	rmin := lmin
	lmax := types.XYZ(-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32)
	rmax := lmax

	for i := range items {
		if items[i].center[axis] < splitPoint {
			leftCount++
			lmin = types.MinVec3(lmin, items[i].min)
			lmax = types.MaxVec3(lmax, items[i].max)
		} else {
			rightCount++
			rmin = types.MinVec3(rmin, items[i].min)
			rmax = types.MaxVec3(rmax, items[i].max)
		}
	}

	if leftCount == 0 || rightCount == 0 {
		return leftCount, rightCount, math.MaxFloat32
	}

	return leftCount, rightCount, float32(leftCount)*boxArea(lmin, lmax) + float32(rightCount)*boxArea(rmin, rmax)
}

// Score an unsplit node: count * bbox area.
func scorePartition(items []bvhItem) float32 {
	if len(items) == 0 {
		return math.MaxFloat32
	}

	min := types.XYZ(math.MaxFloat32, math.MaxFloat32, math.MaxFloat32)
	max := types.XYZ(-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32)
	for i := range items {
		min = types.MinVec3(min, items[i].min)
		max = types.MaxVec3(max, items[i].max)
	}
	return float32(len(items)) * boxArea(min, max)
}

func boxArea(min, max types.Vec3) float32 {
	side := max.Sub(min)
	return side[0]*side[1] + side[1]*side[2] + side[0]*side[2]
}
