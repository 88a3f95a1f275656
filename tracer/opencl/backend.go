// Package opencl implements a tracer backend that runs the propagation step
// as an OpenCL kernel.
package opencl

import (
	"errors"
	"fmt"
	"path"
	"runtime"
	"time"

	"github.com/achilleasa/turbid/log"
	"github.com/achilleasa/turbid/photon"
	"github.com/achilleasa/turbid/scene"
	"github.com/achilleasa/turbid/tracer"
	"github.com/achilleasa/turbid/tracer/opencl/device"
)

type Backend struct {
	logger log.Logger

	// The device associated with this backend.
	device *device.Device

	// The allocated device resources.
	resources *deviceResources

	params    tracer.Parameters
	numSolids uint32

	// Host staging areas for reading back the log.
	counts  []uint32
	staging []photon.LogRow
}

// Create a new opencl backend for the given device. The device is
// initialized lazily by Setup.
func New(dev *device.Device) *Backend {
	return &Backend{
		logger: log.New(fmt.Sprintf("opencl backend (%s)", dev.Name)),
		device: dev,
	}
}

// Implements tracer.Backend.
func (b *Backend) Name() string {
	return fmt.Sprintf("opencl (%s)", b.device.Name)
}

// Compile the kernels and load them. Calling init on an initialized backend
// is a no-op.
func (b *Backend) init() error {
	if b.resources != nil {
		return nil
	}

	_, thisFile, _, _ := runtime.Caller(0)
	pathToMainKernel := path.Join(path.Dir(thisFile), relativePathToMainKernel)
	err := b.device.Init(pathToMainKernel)
	if err != nil {
		return err
	}

	b.resources, err = newDeviceResources(b.device)
	if err != nil {
		b.device.Close()
		return err
	}

	return nil
}

// Implements tracer.Backend.
func (b *Backend) Setup(sc *scene.Scene, params tracer.Parameters) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	if err := b.init(); err != nil {
		return err
	}

	// Check the device limits before touching the driver.
	requested := params.BufferBytes() + int64(sc.SizeInBytes())
	if b.device.MaxAllocSize > 0 && uint64(params.LogBufferBytes) > b.device.MaxAllocSize {
		return &tracer.OutOfMemoryError{Backend: b.Name(), Requested: params.LogBufferBytes}
	}
	if b.device.GlobalMemSize > 0 && uint64(requested) > b.device.GlobalMemSize {
		return &tracer.OutOfMemoryError{Backend: b.Name(), Requested: requested}
	}

	err := b.resources.buffers.UploadSceneData(sc)
	if err == nil {
		err = b.resources.buffers.Allocate(params)
	}
	if err != nil {
		return b.wrapAllocError(err, requested)
	}

	b.params = params
	b.numSolids = uint32(len(sc.Solids))
	b.counts = make([]uint32, params.WorkItems)
	b.staging = make([]photon.LogRow, params.MaxLoggableInteractions)

	b.logger.Debugf("uploaded %d bytes of scene data; allocated %d photon slots and %d log rows", sc.SizeInBytes(), params.MaxPhotonsPerBatch, params.MaxLoggableInteractions)
	return nil
}

// Implements tracer.Backend.
func (b *Backend) WritePhotons(photons []photon.Photon) error {
	if b.counts == nil {
		return tracer.ErrBackendNotSetup
	}
	if len(photons) > b.params.MaxPhotonsPerBatch {
		return fmt.Errorf("%w: %d > %d", ErrTooManyPhotons, len(photons), b.params.MaxPhotonsPerBatch)
	}
	if len(photons) == 0 {
		return nil
	}
	return b.resources.buffers.Photons.WriteData(photons, 0)
}

// Implements tracer.Backend.
func (b *Backend) Propagate(active int) (time.Duration, error) {
	if b.counts == nil {
		return 0, tracer.ErrBackendNotSetup
	}
	if active > b.params.MaxPhotonsPerBatch {
		return 0, fmt.Errorf("%w: %d > %d", ErrTooManyPhotons, active, b.params.MaxPhotonsPerBatch)
	}
	if active == 0 {
		return 0, nil
	}

	workItems := b.params.WorkItems
	if active < workItems {
		workItems = active
	}

	elapsed, err := b.resources.Propagate(&b.params, uint32(active), uint32(workItems), b.numSolids)
	if err != nil {
		return 0, b.wrapAllocError(err, b.params.BufferBytes())
	}
	return elapsed, nil
}

// Implements tracer.Backend.
func (b *Backend) ReadPhotons(photons []photon.Photon) error {
	if b.counts == nil {
		return tracer.ErrBackendNotSetup
	}
	if len(photons) == 0 {
		return nil
	}
	return b.resources.buffers.Photons.ReadData(0, 0, len(photons)*photon.SizeofPhoton, photons)
}

// Implements tracer.Backend.
func (b *Backend) ReadLog(dst []photon.LogRow) ([]photon.LogRow, error) {
	if b.counts == nil {
		return dst, tracer.ErrBackendNotSetup
	}

	err := b.resources.buffers.LogCounts.ReadData(0, 0, 0, b.counts)
	if err != nil {
		return dst, err
	}

	var total uint32
	for _, count := range b.counts {
		total += count
	}
	if total == 0 {
		return dst, nil
	}

	err = b.resources.buffers.Log.ReadData(0, 0, 0, b.staging)
	if err != nil {
		return dst, err
	}

	perItem := b.params.MaxLoggableInteractionsPerWorkItem
	for gid, count := range b.counts {
		dst = append(dst, b.staging[gid*perItem:gid*perItem+int(count)]...)
	}

	if _, err = b.resources.ClearCounters(uint32(len(b.counts))); err != nil {
		return dst, err
	}
	return dst, nil
}

// Query the struct sizes seen by the device compiler.
func (b *Backend) StructSizes() ([]uint32, error) {
	if err := b.init(); err != nil {
		return nil, err
	}
	return b.resources.StructSizes()
}

// Implements tracer.Backend.
func (b *Backend) Close() {
	if b.resources != nil {
		b.resources.Close()
		b.resources = nil
	}
	if b.device != nil {
		b.device.Close()
	}
	b.counts = nil
	b.staging = nil
}

func (b *Backend) wrapAllocError(err error, requested int64) error {
	if errors.Is(err, device.ErrAllocationFailed) {
		return &tracer.OutOfMemoryError{Backend: b.Name(), Requested: requested, Err: err}
	}
	return err
}
