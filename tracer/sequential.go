package tracer

import (
	"time"

	"github.com/achilleasa/turbid/photon"
	"github.com/achilleasa/turbid/scene"
)

// Propagate photons one at a time on the calling goroutine. The input slice
// is not modified. Rows are grouped per photon in photon order.
func RunSequential(sc *scene.Scene, photons []photon.Photon, cfg Config) (*Result, error) {
	if len(photons) == 0 {
		return nil, ErrNoPhotons
	}
	cfg.PhotonCount = len(photons)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	stepper := photon.NewStepper(sc, cfg.WeightThreshold)
	res := &Result{PhotonCount: len(photons)}
	for i := range photons {
		p := photons[i]
		res.Rows = stepper.Propagate(&p, res.Rows)
		res.collect(&p)
		res.completed++
	}
	res.Elapsed = time.Since(start)

	return res, nil
}
