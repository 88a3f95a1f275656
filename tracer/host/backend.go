// Package host implements a tracer backend that keeps all buffers in host
// memory and runs each work item on its own goroutine.
package host

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/achilleasa/turbid/log"
	"github.com/achilleasa/turbid/photon"
	"github.com/achilleasa/turbid/scene"
	"github.com/achilleasa/turbid/tracer"
)

type Backend struct {
	logger log.Logger

	// Max number of work items running concurrently.
	parallelism int

	params  tracer.Parameters
	stepper *photon.Stepper

	slots []photon.Photon

	// Log regions; work item i owns rows[i*perItem:(i+1)*perItem].
	rows      []photon.LogRow
	rowCounts []int
}

// Create a host backend that runs up to parallelism work items at once. A
// value <= 0 selects the number of CPUs.
func New(parallelism int) *Backend {
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	return &Backend{
		logger:      log.New("host backend"),
		parallelism: parallelism,
	}
}

// Implements tracer.Backend.
func (b *Backend) Name() string {
	return "host"
}

// Implements tracer.Backend.
func (b *Backend) Setup(sc *scene.Scene, params tracer.Parameters) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	if params.AvailableMemory > 0 && params.BufferBytes() > params.AvailableMemory {
		return &tracer.OutOfMemoryError{Backend: b.Name(), Requested: params.BufferBytes()}
	}

	b.params = params
	b.stepper = photon.NewStepper(sc, params.WeightThreshold)
	b.slots = make([]photon.Photon, params.MaxPhotonsPerBatch)
	b.rows = make([]photon.LogRow, params.MaxLoggableInteractions)
	b.rowCounts = make([]int, params.WorkItems)

	b.logger.Debugf("allocated %d photon slots and %d log rows", len(b.slots), len(b.rows))
	return nil
}

// Implements tracer.Backend.
func (b *Backend) WritePhotons(photons []photon.Photon) error {
	if b.stepper == nil {
		return tracer.ErrBackendNotSetup
	}
	if len(photons) > len(b.slots) {
		return fmt.Errorf("host backend: cannot write %d photons into %d slots", len(photons), len(b.slots))
	}
	copy(b.slots, photons)
	return nil
}

// Implements tracer.Backend.
func (b *Backend) Propagate(active int) (time.Duration, error) {
	if b.stepper == nil {
		return 0, tracer.ErrBackendNotSetup
	}
	if active > len(b.slots) {
		return 0, fmt.Errorf("host backend: cannot propagate %d photons with %d slots", active, len(b.slots))
	}

	tick := time.Now()
	workItems := b.params.WorkItems
	if active < workItems {
		workItems = active
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, b.parallelism)
	for gid := 0; gid < workItems; gid++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(gid int) {
			defer func() {
				<-sem
				wg.Done()
			}()
			b.runWorkItem(gid, workItems, active)
		}(gid)
	}
	wg.Wait()

	return time.Since(tick), nil
}

// Advance the slots owned by a work item while its log region has room for
// another step.
func (b *Backend) runWorkItem(gid, workItems, active int) {
	perItem := b.params.MaxLoggableInteractionsPerWorkItem
	region := b.rows[gid*perItem : (gid+1)*perItem : (gid+1)*perItem]
	count := b.rowCounts[gid]

	for slot := gid; slot < active; slot += workItems {
		p := &b.slots[slot]
		for step := 0; step < b.params.StepsPerLaunch && !p.Done(); step++ {
			if perItem-count < photon.MaxRowsPerStep {
				b.rowCounts[gid] = count
				return
			}
			count += len(b.stepper.Step(p, region[count:count]))
		}
	}
	b.rowCounts[gid] = count
}

// Implements tracer.Backend.
func (b *Backend) ReadPhotons(photons []photon.Photon) error {
	if b.stepper == nil {
		return tracer.ErrBackendNotSetup
	}
	copy(photons, b.slots)
	return nil
}

// Implements tracer.Backend.
func (b *Backend) ReadLog(dst []photon.LogRow) ([]photon.LogRow, error) {
	if b.stepper == nil {
		return dst, tracer.ErrBackendNotSetup
	}

	perItem := b.params.MaxLoggableInteractionsPerWorkItem
	for gid, count := range b.rowCounts {
		dst = append(dst, b.rows[gid*perItem:gid*perItem+count]...)
		b.rowCounts[gid] = 0
	}
	return dst, nil
}

// Implements tracer.Backend.
func (b *Backend) Close() {
	b.stepper = nil
	b.slots = nil
	b.rows = nil
	b.rowCounts = nil
}
