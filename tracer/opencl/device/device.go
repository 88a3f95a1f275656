package device

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unsafe"

	"github.com/achilleasa/gopencl/v1.2/cl"
)

// Bit mask of opencl device classes.
type DeviceType uint8

// Supported device types.
const (
	CpuDevice DeviceType = 1 << iota
	GpuDevice
	OtherDevice

	AllDevices DeviceType = 0xFF
)

// Implements Stringer.
func (dt DeviceType) String() string {
	switch dt {
	case CpuDevice:
		return "CPU"
	case GpuDevice:
		return "GPU"
	case OtherDevice:
		return "Other"
	}
	return fmt.Sprintf("DeviceType(%#x)", uint8(dt))
}

// Device wraps an opencl device together with the context, queue and program
// that photon kernels run on.
type Device struct {
	Name string
	Id   cl.DeviceId
	Type DeviceType

	compUnits  uint32
	clockSpeed uint32

	// Speed estimate in GFlops; used to rank devices.
	Speed uint32

	// Memory limits in bytes. Buffers larger than MaxAllocSize cannot be
	// allocated even when GlobalMemSize has room for them.
	GlobalMemSize uint64
	MaxAllocSize  uint64

	// Allocated by Init and released by Close.
	ctx      *cl.Context
	cmdQueue cl.CommandQueue
	program  cl.Program
}

// Implements Stringer.
func (d Device) String() string {
	return fmt.Sprintf(
		"Name: %s\nType: %s\nSpecs: %d computation units, %d Mhz clock, %d GFlops approximate speed\nMemory: %d MiB global, %d MiB max allocation",
		d.Name,
		d.Type,
		d.compUnits,
		d.clockSpeed,
		d.Speed,
		d.GlobalMemSize>>20,
		d.MaxAllocSize>>20,
	)
}

// Number of parallel compute units.
func (d *Device) ComputeUnits() uint32 {
	return d.compUnits
}

// Clock speed in MHz.
func (d *Device) ClockSpeed() uint32 {
	return d.clockSpeed
}

// Create the context and command queue and build the program stored at
// programFile. Files included by the program are resolved relative to its
// directory. Calling Init on an initialized device is a no-op.
func (d *Device) Init(programFile string) (err error) {
	if d.ctx != nil {
		return nil
	}
	defer func() {
		if err != nil {
			d.Close()
		}
	}()

	var errCode cl.ErrorCode
	d.ctx = cl.CreateContext(nil, 1, &d.Id, nil, nil, (*int32)(&errCode))
	if errCode != cl.SUCCESS {
		return &Error{Device: d.Name, Op: "create context", Code: errCode}
	}

	d.cmdQueue = cl.CreateCommandQueue(*d.ctx, d.Id, 0, (*int32)(&errCode))
	if errCode != cl.SUCCESS {
		return &Error{Device: d.Name, Op: "create command queue", Code: errCode}
	}

	return d.buildProgram(programFile)
}

func (d *Device) buildProgram(programFile string) error {
	path, err := filepath.Abs(programFile)
	if err != nil {
		return err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("opencl device (%s): %w", d.Name, err)
	}

	var errCode cl.ErrorCode
	progSrc := cl.Str(string(src) + "\x00")
	d.program = cl.CreateProgramWithSource(*d.ctx, 1, &progSrc, nil, (*int32)(&errCode))
	if errCode != cl.SUCCESS {
		return &Error{Device: d.Name, Op: "create program " + filepath.Base(path), Code: errCode}
	}

	opts := cl.Str(fmt.Sprintf("-I %s\x00", filepath.Dir(path)))
	if errCode = cl.BuildProgram(d.program, 1, &d.Id, opts, nil, nil); errCode != cl.SUCCESS {
		return &Error{Device: d.Name, Op: "build program " + filepath.Base(path), Code: errCode, BuildLog: d.buildLog()}
	}
	return nil
}

// Fetch the compiler output for the device program.
func (d *Device) buildLog() string {
	var size uint64
	cl.GetProgramBuildInfo(d.program, d.Id, cl.PROGRAM_BUILD_LOG, 0, nil, &size)
	if size <= 1 {
		return ""
	}

	buf := make([]byte, size)
	cl.GetProgramBuildInfo(d.program, d.Id, cl.PROGRAM_BUILD_LOG, size, unsafe.Pointer(&buf[0]), nil)
	return strings.TrimRight(string(buf), "\x00\n")
}

// Shut down the device.
func (d *Device) Close() {
	if d.program != nil {
		cl.ReleaseProgram(d.program)
		d.program = nil
	}

	if d.cmdQueue != nil {
		cl.ReleaseCommandQueue(d.cmdQueue)
		d.cmdQueue = nil
	}

	if d.ctx != nil {
		cl.ReleaseContext(d.ctx)
		d.ctx = nil
	}
}

// Load kernel by name.
func (d *Device) Kernel(name string) (*Kernel, error) {
	var errCode cl.ErrorCode
	handle := cl.CreateKernel(d.program, cl.Str(name+"\x00"), (*int32)(&errCode))
	if errCode != cl.SUCCESS {
		return nil, &Error{Device: d.Name, Op: "load kernel " + name, Code: errCode}
	}

	return &Kernel{
		device:       d,
		kernelHandle: handle,
		name:         name,
	}, nil
}

// Create an empty buffer.
func (d *Device) Buffer(name string) *Buffer {
	return &Buffer{
		device: d,
		name:   name,
	}
}

// Query compute and memory limits. Speed is the theoretical throughput of
// two operations per cycle on every compute unit.
func (d *Device) queryLimits() error {
	for _, q := range []struct {
		param string
		code  cl.ErrorCode
	}{
		{"MAX_COMPUTE_UNITS", cl.GetDeviceInfo(d.Id, cl.DEVICE_MAX_COMPUTE_UNITS, 4, unsafe.Pointer(&d.compUnits), nil)},
		{"MAX_CLOCK_FREQUENCY", cl.GetDeviceInfo(d.Id, cl.DEVICE_MAX_CLOCK_FREQUENCY, 4, unsafe.Pointer(&d.clockSpeed), nil)},
		{"GLOBAL_MEM_SIZE", cl.GetDeviceInfo(d.Id, cl.DEVICE_GLOBAL_MEM_SIZE, 8, unsafe.Pointer(&d.GlobalMemSize), nil)},
		{"MAX_MEM_ALLOC_SIZE", cl.GetDeviceInfo(d.Id, cl.DEVICE_MAX_MEM_ALLOC_SIZE, 8, unsafe.Pointer(&d.MaxAllocSize), nil)},
	} {
		if q.code != cl.SUCCESS {
			return &Error{Device: d.Name, Op: "query " + q.param, Code: q.code}
		}
	}

	d.Speed = 2 * d.compUnits * d.clockSpeed / 1000
	return nil
}
