package opencl

import (
	"reflect"

	"github.com/achilleasa/gopencl/v1.2/cl"
	"github.com/achilleasa/turbid/photon"
	"github.com/achilleasa/turbid/scene"
	"github.com/achilleasa/turbid/tracer"
	"github.com/achilleasa/turbid/tracer/opencl/device"
)

// Size of buffer elements in bytes.
const (
	sizeofLogCounter = 4 // uint32
)

type bufferSet struct {
	// Scene geometry
	Solids    *device.Buffer
	Surfaces  *device.Buffer
	Triangles *device.Buffer
	Vertices  *device.Buffer

	// Material table
	Materials *device.Buffer

	// Photon slots
	Photons *device.Buffer

	// Per work item log regions and row counters
	Log       *device.Buffer
	LogCounts *device.Buffer

	// Output of the layout check kernel
	StructSizes *device.Buffer
}

// Create a new buffer set.
func newBufferSet(dev *device.Device) *bufferSet {
	return &bufferSet{
		Solids:      dev.Buffer("solids"),
		Surfaces:    dev.Buffer("surfaces"),
		Triangles:   dev.Buffer("triangles"),
		Vertices:    dev.Buffer("vertices"),
		Materials:   dev.Buffer("materials"),
		Photons:     dev.Buffer("photons"),
		Log:         dev.Buffer("log"),
		LogCounts:   dev.Buffer("logCounts"),
		StructSizes: dev.Buffer("structSizes"),
	}
}

// Release all buffers.
func (bs *bufferSet) Release() {
	reflVal := reflect.ValueOf(*bs)
	for fieldIndex := 0; fieldIndex < reflVal.NumField(); fieldIndex++ {
		if buf, ok := reflVal.Field(fieldIndex).Interface().(*device.Buffer); ok {
			buf.Release()
		}
	}
}

// Size the photon and log buffers for the given parameters.
func (bs *bufferSet) Allocate(params tracer.Parameters) error {
	var err error

	err = bs.Photons.Allocate(params.MaxPhotonsPerBatch*photon.SizeofPhoton, cl.MEM_READ_WRITE)
	if err != nil {
		return err
	}
	err = bs.Log.Allocate(params.MaxLoggableInteractions*photon.SizeofLogRow, cl.MEM_READ_WRITE)
	if err != nil {
		return err
	}

	// Counters start at zero
	return bs.LogCounts.AllocateAndWriteData(make([]uint32, params.WorkItems), cl.MEM_READ_WRITE)
}

// Upload scene data to the device buffers. Empty tables get a single zeroed
// entry as opencl does not support zero-sized buffers.
func (bs *bufferSet) UploadSceneData(sc *scene.Scene) error {
	var err error

	targets := map[*device.Buffer]interface{}{
		bs.Solids:    orPlaceholder(sc.Solids),
		bs.Surfaces:  orPlaceholder(sc.Surfaces),
		bs.Triangles: orPlaceholder(sc.Triangles),
		bs.Vertices:  orPlaceholder(sc.Vertices),
		bs.Materials: sc.Materials,
	}

	for buf, data := range targets {
		err = buf.AllocateAndWriteData(data, cl.MEM_READ_ONLY)
		if err != nil {
			return err
		}
	}

	return nil
}

func orPlaceholder[T any](data []T) []T {
	if len(data) == 0 {
		return make([]T, 1)
	}
	return data
}
