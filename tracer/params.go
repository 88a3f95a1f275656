package tracer

import (
	"math"

	"github.com/achilleasa/turbid/photon"
)

const (
	// Fraction of the available memory above which a run gets flagged.
	memoryWarningFraction = 0.8

	// Overheads applied to the log size when estimating the host memory
	// needed for merging and key resolution.
	mergeOverhead   = 1.15
	resolveOverhead = 1.4
)

// Parameters describes the buffer layout of a run.
type Parameters struct {
	PhotonCount int

	// Number of parallel work items per launch.
	WorkItems int

	// Size of the active slot array.
	MaxPhotonsPerBatch int

	// Log capacity in rows; split evenly between work items.
	MaxLoggableInteractions            int
	MaxLoggableInteractionsPerWorkItem int

	PhotonBufferBytes int64
	LogBufferBytes    int64

	// Estimated peak memory for the whole run in bytes.
	RequiredBytes   int64
	AvailableMemory int64

	StepsPerLaunch  int
	WeightThreshold float32
}

// Size the photon and log buffers for cfg so that they fit the memory budget.
// At least photon.MaxRowsPerStep log rows are reserved for each work item.
func ComputeParameters(cfg Config) (Parameters, error) {
	if err := cfg.Validate(); err != nil {
		return Parameters{}, err
	}

	n := cfg.PhotonCount
	nBatch := int(math.Round(1 / cfg.BatchLoadFactor))
	if nBatch < 1 {
		nBatch = 1
	}
	avgPhotonsPerBatch := int(math.Ceil(float64(n) / float64(minInt(nBatch, cfg.WorkUnits))))

	// Shrink the slot array until the photons and the minimum log fit.
	maxPhotons := minInt(2*avgPhotonsPerBatch, n)
	var workItems int
	var photonBytes int64
	for {
		workItems = minInt(cfg.WorkUnits, maxPhotons)
		photonBytes = int64(maxPhotons) * photon.SizeofPhoton
		minLogBytes := int64(photon.MaxRowsPerStep*workItems) * photon.SizeofLogRow
		if photonBytes+minLogBytes <= cfg.MemoryBudget {
			break
		}
		if maxPhotons == 1 {
			return Parameters{}, ErrBudgetTooSmall
		}
		maxPhotons /= 2
	}

	wantRows := math.Max(float64(avgPhotonsPerBatch)*cfg.IPP, float64(photon.MaxRowsPerStep*workItems))
	logBytes := int64(math.Min(wantRows*photon.SizeofLogRow, float64(cfg.MemoryBudget-photonBytes)))

	perItem := int(logBytes/photon.SizeofLogRow) / workItems
	if perItem < photon.MaxRowsPerStep {
		perItem = photon.MaxRowsPerStep
	}
	maxRows := perItem * workItems
	logBytes = int64(maxRows) * photon.SizeofLogRow

	return Parameters{
		PhotonCount:                        n,
		WorkItems:                          workItems,
		MaxPhotonsPerBatch:                 maxPhotons,
		MaxLoggableInteractions:            maxRows,
		MaxLoggableInteractionsPerWorkItem: perItem,
		PhotonBufferBytes:                  photonBytes,
		LogBufferBytes:                     logBytes,
		RequiredBytes:                      int64(mergeOverhead * resolveOverhead * float64(nBatch) * float64(logBytes)),
		AvailableMemory:                    cfg.AvailableMemory,
		StepsPerLaunch:                     cfg.StepsPerLaunch,
		WeightThreshold:                    cfg.WeightThreshold,
	}, nil
}

// Check whether the estimated memory requirement gets close to the available
// memory. Always false when the available memory is unknown.
func (p Parameters) ExceedsAvailableMemory() bool {
	return p.AvailableMemory > 0 && float64(p.RequiredBytes) > memoryWarningFraction*float64(p.AvailableMemory)
}

// Total bytes allocated by a backend for the photon and log buffers.
func (p Parameters) BufferBytes() int64 {
	return p.PhotonBufferBytes + p.LogBufferBytes
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
