package tracer

import (
	"time"

	"github.com/achilleasa/turbid/photon"
	"github.com/achilleasa/turbid/scene"
)

// Backend advances photon slots in lockstep. Implementations differ in where
// the photon, log and scene buffers live (host memory or device memory).
//
// Slot i of a launch with W work items is owned by work item i mod W. Each
// work item appends the rows of its slots to a private log region of
// Parameters.MaxLoggableInteractionsPerWorkItem rows and stops stepping once
// fewer than photon.MaxRowsPerStep rows are free.
type Backend interface {
	// Get backend name.
	Name() string

	// Allocate buffers for the given parameters and upload the read-only
	// scene data. Allocation failures are reported as *OutOfMemoryError.
	Setup(sc *scene.Scene, params Parameters) error

	// Overwrite the first len(photons) slots.
	WritePhotons(photons []photon.Photon) error

	// Advance the first active slots by up to Parameters.StepsPerLaunch
	// steps and block until all work items are done.
	Propagate(active int) (time.Duration, error)

	// Read back the first len(photons) slots.
	ReadPhotons(photons []photon.Photon) error

	// Append the rows logged since the previous call to dst and clear the
	// log regions of all work items.
	ReadLog(dst []photon.LogRow) ([]photon.LogRow, error)

	// Release all allocated resources.
	Close()
}
