package tracer

import (
	"context"
	"fmt"
	"time"

	"github.com/achilleasa/turbid/log"
	"github.com/achilleasa/turbid/photon"
	"github.com/achilleasa/turbid/scene"
)

// Scheduler drives a set of photons to termination through a backend while
// keeping the active slot array within the sized parameters.
type Scheduler struct {
	logger  log.Logger
	sc      *scene.Scene
	backend Backend
	cfg     Config

	// Optional callback invoked after every launch.
	OnBatch func(BatchStats)
}

// Create a new scheduler. The scheduler does not take ownership of the
// backend; callers should Close it once they are done.
func NewScheduler(sc *scene.Scene, backend Backend, cfg Config) *Scheduler {
	return &Scheduler{
		logger:  log.New(fmt.Sprintf("scheduler (%s)", backend.Name())),
		sc:      sc,
		backend: backend,
		cfg:     cfg,
	}
}

// Propagate photons until all of them have been terminated. The pending pool
// is consumed in order; terminated slots are refilled from the pool and
// compacted out once it runs dry. Log rows are returned in arrival order.
func (s *Scheduler) Run(ctx context.Context, photons []photon.Photon) (*Result, error) {
	if len(photons) == 0 {
		return nil, ErrNoPhotons
	}

	cfg := s.cfg
	cfg.PhotonCount = len(photons)
	params, err := ComputeParameters(cfg)
	if err != nil {
		return nil, err
	}

	s.logger.Infof(
		"%d photons; %d slots, %d work items, %d log rows per work item (%s photons + %s log)",
		params.PhotonCount, params.MaxPhotonsPerBatch, params.WorkItems,
		params.MaxLoggableInteractionsPerWorkItem, fmtBytes(params.PhotonBufferBytes), fmtBytes(params.LogBufferBytes),
	)
	if params.ExceedsAvailableMemory() {
		s.logger.Warningf(
			"estimated memory requirement %s exceeds %.0f%% of the available %s; consider a lower IPP estimate or a smaller batch load factor",
			fmtBytes(params.RequiredBytes), memoryWarningFraction*100, fmtBytes(params.AvailableMemory),
		)
	}

	if err = s.backend.Setup(s.sc, params); err != nil {
		return nil, err
	}

	res := &Result{
		PhotonCount: len(photons),
		Params:      params,
		Rows:        make([]photon.LogRow, 0, params.MaxLoggableInteractions),
	}

	start := time.Now()
	next := minInt(params.MaxPhotonsPerBatch, len(photons))
	active := make([]photon.Photon, next, params.MaxPhotonsPerBatch)
	copy(active, photons[:next])

	dirty := true
	for batch := 0; len(active) != 0; batch++ {
		if err = ctx.Err(); err != nil {
			return nil, err
		}

		bs := BatchStats{Index: batch, Active: len(active)}

		tick := time.Now()
		if dirty {
			if err = s.backend.WritePhotons(active); err != nil {
				return nil, err
			}
		}
		bs.TransferTime = time.Since(tick)

		if bs.LaunchTime, err = s.backend.Propagate(len(active)); err != nil {
			return nil, err
		}

		tick = time.Now()
		if err = s.backend.ReadPhotons(active); err != nil {
			return nil, err
		}
		rowCount := len(res.Rows)
		if res.Rows, err = s.backend.ReadLog(res.Rows); err != nil {
			return nil, err
		}
		bs.Rows = len(res.Rows) - rowCount
		bs.TransferTime += time.Since(tick)

		// Replace terminated slots from the pool or compact them out.
		tick = time.Now()
		dirty = false
		for i := 0; i < len(active); {
			if !active[i].Done() {
				i++
				continue
			}

			bs.Completed++
			res.collect(&active[i])
			dirty = true

			if next < len(photons) {
				active[i] = photons[next]
				next++
				i++
				continue
			}

			last := len(active) - 1
			active[i] = active[last]
			active = active[:last]
		}
		bs.ConversionTime = time.Since(tick)

		res.completed += bs.Completed
		bs.TotalCompleted = res.completed
		bs.Elapsed = time.Since(start)
		if bs.TotalCompleted > 0 {
			perPhoton := bs.Elapsed / time.Duration(bs.TotalCompleted)
			bs.ETA = perPhoton * time.Duration(len(photons)-bs.TotalCompleted)
		}
		res.Batches = append(res.Batches, bs)

		s.logger.Debugf(
			"launch %d: %d/%d photons done, %d rows (%.2f photons/ms, eta %s)",
			batch, bs.TotalCompleted, len(photons), bs.Rows, bs.Speed(), fmtDuration(bs.ETA),
		)
		if s.OnBatch != nil {
			s.OnBatch(bs)
		}
	}

	res.Elapsed = time.Since(start)
	s.logger.Infof("propagated %d photons in %s; %d log rows (%.2f per photon)", res.PhotonCount, fmtDuration(res.Elapsed), len(res.Rows), res.IPP())
	return res, nil
}

func fmtBytes(b int64) string {
	switch {
	case b < 1<<10:
		return fmt.Sprintf("%d bytes", b)
	case b < 1<<20:
		return fmt.Sprintf("%.1f kb", float64(b)/float64(1<<10))
	case b < 1<<30:
		return fmt.Sprintf("%.1f mb", float64(b)/float64(1<<20))
	}
	return fmt.Sprintf("%.1f gb", float64(b)/float64(1<<30))
}
