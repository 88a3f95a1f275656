package opencl

import (
	"fmt"
	"time"

	"github.com/achilleasa/gopencl/v1.2/cl"
	"github.com/achilleasa/turbid/tracer"
	"github.com/achilleasa/turbid/tracer/opencl/device"
)

const (
	relativePathToMainKernel = "CL/main.cl"
)

// A container that stores handles to open CL kernels and any allocated device buffers.
type deviceResources struct {
	// The allocated device buffers.
	buffers *bufferSet

	// The set of kernels.
	kernels []*device.Kernel
}

// Using the supplied device as a target, load all defined kernels.
func newDeviceResources(dev *device.Device) (*deviceResources, error) {
	var err error

	if dev == nil {
		return nil, ErrInvalidDevice
	}

	dr := &deviceResources{
		buffers: newBufferSet(dev),
		kernels: make([]*device.Kernel, numKernels),
	}

	var kType kernelType
	for kType = 0; kType < numKernels; kType++ {
		dr.kernels[kType], err = dev.Kernel(kType.String())
		if err != nil {
			dr.Close()
			return nil, err
		}
	}

	return dr, nil
}

// Release all allocated resources.
func (dr *deviceResources) Close() {
	if dr.buffers != nil {
		dr.buffers.Release()
		dr.buffers = nil
	}

	if dr.kernels != nil {
		for _, kernel := range dr.kernels {
			if kernel != nil {
				kernel.Release()
			}
		}
		dr.kernels = nil
	}
}

// Advance the first active photon slots using up to workItems work items.
func (dr *deviceResources) Propagate(params *tracer.Parameters, active, workItems, numSolids uint32) (time.Duration, error) {
	kernel := dr.kernels[propagate]

	err := kernel.SetArgs(
		dr.buffers.Photons,
		active,
		workItems,
		dr.buffers.Solids,
		numSolids,
		dr.buffers.Surfaces,
		dr.buffers.Triangles,
		dr.buffers.Vertices,
		dr.buffers.Materials,
		dr.buffers.Log,
		dr.buffers.LogCounts,
		uint32(params.MaxLoggableInteractionsPerWorkItem),
		uint32(params.StepsPerLaunch),
		params.WeightThreshold,
	)
	if err != nil {
		return 0, err
	}

	return kernel.Exec1D(0, int(workItems), 0)
}

// Reset the log row counters of all work items.
func (dr *deviceResources) ClearCounters(workItems uint32) (time.Duration, error) {
	kernel := dr.kernels[clearCounters]

	err := kernel.SetArgs(
		dr.buffers.LogCounts,
		workItems,
	)
	if err != nil {
		return 0, err
	}

	return kernel.Exec1D(0, int(workItems), 0)
}

// Query the struct sizes seen by the device compiler in the order: solid,
// surface, triangle, vertex, material, photon, log row.
func (dr *deviceResources) StructSizes() ([]uint32, error) {
	kernel := dr.kernels[structSizes]
	sizes := make([]uint32, 7)

	err := dr.buffers.StructSizes.AllocateToFitData(sizes, cl.MEM_READ_WRITE)
	if err != nil {
		return nil, err
	}

	if err = kernel.SetArgs(dr.buffers.StructSizes); err != nil {
		return nil, err
	}
	if _, err = kernel.Exec1D(0, 1, 0); err != nil {
		return nil, err
	}
	if err = dr.buffers.StructSizes.ReadData(0, 0, 0, sizes); err != nil {
		return nil, fmt.Errorf("opencl backend: could not read struct sizes: %w", err)
	}

	return sizes, nil
}
