package opencl

import "fmt"

type kernelType uint8

// The list of kernels that implement the backend.
const (
	propagate kernelType = iota
	clearCounters
	// Layout checks
	structSizes
	//
	numKernels
)

// Implements Stringer; map kernel type to the kernel name as defined in the CL source files.
func (kt kernelType) String() string {
	switch kt {
	case propagate:
		return "propagate"
	case clearCounters:
		return "clearCounters"
	case structSizes:
		return "structSizes"
	default:
		panic(fmt.Sprintf("Unsupported kernel type: %d", kt))
	}
}
