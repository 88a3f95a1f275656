package tracer

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig     = errors.New("tracer: invalid configuration")
	ErrBudgetTooSmall    = errors.New("tracer: memory budget cannot fit a single photon and its log")
	ErrNoPhotons         = errors.New("tracer: no photons to propagate")
	ErrBackendNotSetup   = errors.New("tracer: backend has not been set up")
	ErrUnknownExperiment = errors.New("tracer: unknown experiment")
)

// OutOfMemoryError is returned when a backend fails to allocate its buffers.
// Requested holds the number of bytes that could not be satisfied.
type OutOfMemoryError struct {
	Backend   string
	Requested int64
	Err       error
}

func (e *OutOfMemoryError) Error() string {
	msg := fmt.Sprintf("tracer: %s backend could not allocate %d bytes; lower the photons per batch or the IPP estimate", e.Backend, e.Requested)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OutOfMemoryError) Unwrap() error {
	return e.Err
}
