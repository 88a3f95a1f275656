// Package keylog groups raw interaction log rows by the labels of the solid
// and surface they belong to.
package keylog

import (
	"sort"
	"sync"

	"github.com/achilleasa/turbid/photon"
	"github.com/achilleasa/turbid/scene"
)

// Rows per local sort batch.
const DefaultBatchSize = 50000

// Key identifies the solid and, for crossing rows, the surface of an
// interaction.
type Key struct {
	Solid string

	// Empty unless HasSurface is set.
	Surface    string
	HasSurface bool
}

func (k Key) String() string {
	if !k.HasSurface {
		return k.Solid
	}
	return k.Solid + "/" + k.Surface
}

// Point is the weight and position of a single interaction.
type Point struct {
	Weight  float32
	X, Y, Z float32
}

// Keep key ranges of a sorted batch in first-seen order.
type keyRange struct {
	solidID, surfaceID int32
	start, end         int
}

// Group rows by interaction key. Rows are processed in batches of batchSize:
// each batch is stable-sorted by (solid, surface) and split into per-key
// ranges; the ranges of all batches are then concatenated in batch order.
// Rows with a NoLogID solid are dropped. The input slice is not modified.
func Resolve(rows []photon.LogRow, labels *scene.Labels, batchSize int) map[Key][]Point {
	out := make(map[Key][]Point)
	if len(rows) == 0 {
		return out
	}
	if labels.SolidCount() == 0 {
		return resolveWorld(rows)
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	sorted := make([]photon.LogRow, len(rows))
	copy(sorted, rows)

	numBatches := (len(rows) + batchSize - 1) / batchSize
	ranges := make([][]keyRange, numBatches)

	var wg sync.WaitGroup
	for batch := 0; batch < numBatches; batch++ {
		wg.Add(1)
		go func(batch int) {
			defer wg.Done()
			start := batch * batchSize
			end := start + batchSize
			if end > len(sorted) {
				end = len(sorted)
			}
			ranges[batch] = sortBatch(sorted[start:end], start)
		}(batch)
	}
	wg.Wait()

	keys := make(map[[2]int32]Key)
	for _, batchRanges := range ranges {
		for _, r := range batchRanges {
			ids := [2]int32{r.solidID, r.surfaceID}
			key, ok := keys[ids]
			if !ok {
				key = keyFor(labels, r.solidID, r.surfaceID)
				keys[ids] = key
			}
			out[key] = appendPoints(out[key], sorted[r.start:r.end])
		}
	}

	return out
}

// Sort a batch in place and return its key ranges as absolute indices.
func sortBatch(batch []photon.LogRow, offset int) []keyRange {
	sort.SliceStable(batch, func(i, j int) bool {
		if batch[i].SolidID != batch[j].SolidID {
			return batch[i].SolidID < batch[j].SolidID
		}
		return batch[i].SurfaceID < batch[j].SurfaceID
	})

	var out []keyRange
	for start := 0; start < len(batch); {
		end := start + 1
		for end < len(batch) && batch[end].SolidID == batch[start].SolidID && batch[end].SurfaceID == batch[start].SurfaceID {
			end++
		}
		if batch[start].SolidID != scene.NoLogID {
			out = append(out, keyRange{
				solidID:   batch[start].SolidID,
				surfaceID: batch[start].SurfaceID,
				start:     offset + start,
				end:       offset + end,
			})
		}
		start = end
	}
	return out
}

// Without solids every interaction belongs to the world.
func resolveWorld(rows []photon.LogRow) map[Key][]Point {
	points := make([]Point, 0, len(rows))
	for _, row := range rows {
		if row.SolidID == scene.NoLogID {
			continue
		}
		points = append(points, Point{row.Weight, row.X, row.Y, row.Z})
	}

	out := make(map[Key][]Point)
	if len(points) != 0 {
		out[Key{Solid: scene.WorldLabel}] = points
	}
	return out
}

func keyFor(labels *scene.Labels, solidID, surfaceID int32) Key {
	key := Key{Solid: labels.Solid(solidID)}
	key.Surface, key.HasSurface = labels.Surface(surfaceID)
	return key
}

func appendPoints(dst []Point, rows []photon.LogRow) []Point {
	for _, row := range rows {
		dst = append(dst, Point{row.Weight, row.X, row.Y, row.Z})
	}
	return dst
}

// Get the keys of a resolved log in a stable order.
func SortedKeys(keyed map[Key][]Point) []Key {
	keys := make([]Key, 0, len(keyed))
	for key := range keyed {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return lessKey(keys[i], keys[j])
	})
	return keys
}

func lessKey(a, b Key) bool {
	if a.Solid != b.Solid {
		return a.Solid < b.Solid
	}
	if a.HasSurface != b.HasSurface {
		return !a.HasSurface
	}
	return a.Surface < b.Surface
}
