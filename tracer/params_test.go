package tracer

import (
	"errors"
	"testing"

	"github.com/achilleasa/turbid/photon"
)

func TestConfigValidation(t *testing.T) {
	type spec struct {
		mutate func(*Config)
		valid  bool
	}
	specs := []spec{
		{func(c *Config) {}, true},
		{func(c *Config) { c.PhotonCount = 0 }, false},
		{func(c *Config) { c.IPP = 0 }, false},
		{func(c *Config) { c.WorkUnits = -1 }, false},
		{func(c *Config) { c.MemoryBudget = 0 }, false},
		{func(c *Config) { c.BatchLoadFactor = 0 }, false},
		{func(c *Config) { c.BatchLoadFactor = 1.5 }, false},
		{func(c *Config) { c.WeightThreshold = 1 }, false},
		{func(c *Config) { c.WeightThreshold = 0 }, false},
		{func(c *Config) { c.WeightThreshold = 1e-6 }, true},
		{func(c *Config) { c.StepsPerLaunch = 0 }, false},
		{func(c *Config) { c.AvailableMemory = -1 }, false},
	}

	for index, s := range specs {
		cfg := DefaultConfig()
		s.mutate(&cfg)
		err := cfg.Validate()
		if s.valid && err != nil {
			t.Fatalf("[spec %d] expected config to be valid; got %v", index, err)
		}
		if !s.valid && !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("[spec %d] expected ErrInvalidConfig; got %v", index, err)
		}
	}
}

func TestComputeParameters(t *testing.T) {
	type spec struct {
		photons   int
		ipp       float64
		workUnits int
		budget    int64

		expSlots     int
		expWorkItems int
		expPerItem   int
	}
	specs := []spec{
		// 5 batches of 200 photons; slots hold 2 batches; log fits 200*10 rows
		{1000, 10, 64, 1 << 20, 400, 64, 31},
		// fewer photons than work units
		{10, 10, 64, 1 << 20, 4, 4, 5},
		// log is capped by the budget left after the photon buffer
		{1000, 1000, 100, 400*photon.SizeofPhoton + 100*10*photon.SizeofLogRow, 400, 100, 10},
		// photon buffer must shrink to leave room for two rows per work item
		{1000, 10, 100, 400*photon.SizeofPhoton + 100, 200, 100, 9},
	}

	for index, s := range specs {
		cfg := DefaultConfig()
		cfg.PhotonCount = s.photons
		cfg.IPP = s.ipp
		cfg.WorkUnits = s.workUnits
		cfg.MemoryBudget = s.budget

		params, err := ComputeParameters(cfg)
		if err != nil {
			t.Fatalf("[spec %d] %v", index, err)
		}

		if params.MaxPhotonsPerBatch != s.expSlots {
			t.Fatalf("[spec %d] expected %d slots; got %d", index, s.expSlots, params.MaxPhotonsPerBatch)
		}
		if params.WorkItems != s.expWorkItems {
			t.Fatalf("[spec %d] expected %d work items; got %d", index, s.expWorkItems, params.WorkItems)
		}
		if params.MaxLoggableInteractionsPerWorkItem != s.expPerItem {
			t.Fatalf("[spec %d] expected %d rows per work item; got %d", index, s.expPerItem, params.MaxLoggableInteractionsPerWorkItem)
		}
		if params.MaxLoggableInteractions != s.expPerItem*s.expWorkItems {
			t.Fatalf("[spec %d] expected log capacity to be split evenly; got %d rows", index, params.MaxLoggableInteractions)
		}
		if params.BufferBytes() > s.budget {
			t.Fatalf("[spec %d] expected buffers (%d bytes) to fit budget %d", index, params.BufferBytes(), s.budget)
		}
	}
}

func TestComputeParametersBudgetTooSmall(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MemoryBudget = photon.SizeofPhoton

	if _, err := ComputeParameters(cfg); !errors.Is(err, ErrBudgetTooSmall) {
		t.Fatalf("expected ErrBudgetTooSmall; got %v", err)
	}
}

func TestMemoryWarningThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PhotonCount = 1000
	cfg.IPP = 10
	cfg.WorkUnits = 64

	params, err := ComputeParameters(cfg)
	if err != nil {
		t.Fatal(err)
	}

	nBatch := 5
	expRequired := int64(mergeOverhead * resolveOverhead * float64(nBatch) * float64(params.LogBufferBytes))
	if params.RequiredBytes != expRequired {
		t.Fatalf("expected required bytes to be %d; got %d", expRequired, params.RequiredBytes)
	}

	if params.ExceedsAvailableMemory() {
		t.Fatal("expected no warning when the available memory is unknown")
	}

	params.AvailableMemory = params.RequiredBytes
	if !params.ExceedsAvailableMemory() {
		t.Fatal("expected a warning when the requirement exceeds 80% of the available memory")
	}

	params.AvailableMemory = 2 * params.RequiredBytes
	if params.ExceedsAvailableMemory() {
		t.Fatal("expected no warning when the requirement is below 80% of the available memory")
	}
}
