package opencl

import "errors"

var (
	ErrInvalidDevice  = errors.New("opencl backend: invalid device handle")
	ErrNoSceneData    = errors.New("opencl backend: no scene data uploaded")
	ErrTooManyPhotons = errors.New("opencl backend: photon count exceeds the allocated slots")
)
