package tracer

import (
	"fmt"

	"github.com/achilleasa/turbid/photon"
)

// Config controls the sizing and execution of a simulation run.
type Config struct {
	// Number of photons to propagate.
	PhotonCount int

	// Estimated mean number of log rows per photon; used for sizing
	// the interaction log.
	IPP float64

	// Target number of parallel work items.
	WorkUnits int

	// Upper bound for the photon and log buffers in bytes.
	MemoryBudget int64

	// Fraction of the photons that a single batch of slots should hold.
	BatchLoadFactor float64

	// Photons below this weight enter the roulette.
	WeightThreshold float32

	// Number of steps each slot advances per kernel launch.
	StepsPerLaunch int

	// Run seed; photon seeds are derived from it.
	Seed uint32

	// Memory available to the backend in bytes; 0 if unknown.
	AvailableMemory int64
}

// Get a config populated with sane defaults.
func DefaultConfig() Config {
	return Config{
		PhotonCount:     10000,
		IPP:             100,
		WorkUnits:       1024,
		MemoryBudget:    256 << 20,
		BatchLoadFactor: 0.2,
		WeightThreshold: photon.DefaultWeightThreshold,
		StepsPerLaunch:  64,
		Seed:            1,
	}
}

// Validate config values.
func (c Config) Validate() error {
	switch {
	case c.PhotonCount <= 0:
		return fmt.Errorf("%w: photon count must be positive; got %d", ErrInvalidConfig, c.PhotonCount)
	case c.IPP <= 0:
		return fmt.Errorf("%w: interactions per photon estimate must be positive; got %g", ErrInvalidConfig, c.IPP)
	case c.WorkUnits <= 0:
		return fmt.Errorf("%w: work units must be positive; got %d", ErrInvalidConfig, c.WorkUnits)
	case c.MemoryBudget <= 0:
		return fmt.Errorf("%w: memory budget must be positive; got %d", ErrInvalidConfig, c.MemoryBudget)
	case c.BatchLoadFactor <= 0 || c.BatchLoadFactor > 1:
		return fmt.Errorf("%w: batch load factor must be in (0, 1]; got %g", ErrInvalidConfig, c.BatchLoadFactor)
	case c.WeightThreshold <= 0 || c.WeightThreshold >= 1:
		return fmt.Errorf("%w: weight threshold must be in (0, 1); got %g", ErrInvalidConfig, c.WeightThreshold)
	case c.StepsPerLaunch <= 0:
		return fmt.Errorf("%w: steps per launch must be positive; got %d", ErrInvalidConfig, c.StepsPerLaunch)
	case c.AvailableMemory < 0:
		return fmt.Errorf("%w: available memory cannot be negative; got %d", ErrInvalidConfig, c.AvailableMemory)
	}
	return nil
}
