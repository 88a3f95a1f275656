package tracer

import (
	"time"

	"github.com/achilleasa/turbid/photon"
	"github.com/achilleasa/turbid/scene"
	"gonum.org/v1/gonum/floats"
)

// Result holds the merged output of a run.
type Result struct {
	PhotonCount int

	// Log rows in arrival order.
	Rows []photon.LogRow

	// Photons that left the scene and their total remaining weight.
	Exited       int
	ExitedWeight float64

	Params  Parameters
	Batches []BatchStats
	Elapsed time.Duration

	completed int
}

func (r *Result) collect(p *photon.Photon) {
	if p.Exited() {
		r.Exited++
		r.ExitedWeight += float64(p.Weight)
	}
}

// Measured mean number of log rows per photon.
func (r *Result) IPP() float64 {
	if r.PhotonCount == 0 {
		return 0
	}
	return float64(len(r.Rows)) / float64(r.PhotonCount)
}

// Total weight deposited by absorption rows.
func (r *Result) AbsorbedWeight() float64 {
	return floats.Sum(r.weights(func(row *photon.LogRow) bool {
		return row.SurfaceID == scene.NoSurfaceID
	}))
}

// Net weight logged by crossing rows of the given solid; positive values mean
// more weight entered the solid than left it.
func (r *Result) NetCrossingWeight(solidID int32) float64 {
	return floats.Sum(r.weights(func(row *photon.LogRow) bool {
		return row.SurfaceID != scene.NoSurfaceID && row.SolidID == solidID
	}))
}

func (r *Result) weights(match func(*photon.LogRow) bool) []float64 {
	out := make([]float64, 0, len(r.Rows))
	for i := range r.Rows {
		if match(&r.Rows[i]) {
			out = append(out, float64(r.Rows[i].Weight))
		}
	}
	return out
}
