package device

import (
	"fmt"
	"reflect"
	"time"
	"unsafe"

	"github.com/achilleasa/gopencl/v1.2/cl"
	"github.com/achilleasa/turbid/types"
)

// A wrapper around opencl kernel handles.
type Kernel struct {
	device       *Device
	kernelHandle cl.Kernel
	name         string

	offset         uint64
	globalWorkSize uint64
	localWorkSize  uint64
}

// Free any allocated resources used by this kernel.
func (k *Kernel) Release() {
	if k.kernelHandle != nil {
		cl.ReleaseKernel(k.kernelHandle)
		k.kernelHandle = nil
	}
}

// Bind arguments to the kernel. Supported argument types are buffers,
// 32-bit scalars and float3/float4 vectors.
func (k *Kernel) SetArgs(args ...interface{}) error {
	var errCode cl.ErrorCode
	for argIndex, arg := range args {
		switch v := arg.(type) {
		case *Buffer:
			bufHandle := v.Handle()
			errCode = cl.SetKernelArg(k.kernelHandle, uint32(argIndex), 8, unsafe.Pointer(&bufHandle))
		case int32:
			errCode = cl.SetKernelArg(k.kernelHandle, uint32(argIndex), 4, unsafe.Pointer(&v))
		case uint32:
			errCode = cl.SetKernelArg(k.kernelHandle, uint32(argIndex), 4, unsafe.Pointer(&v))
		case float32:
			errCode = cl.SetKernelArg(k.kernelHandle, uint32(argIndex), 4, unsafe.Pointer(&v))
		case types.Vec3:
			// float3 occupies the same space as float4
			v4 := v.Vec4(0)
			errCode = cl.SetKernelArg(k.kernelHandle, uint32(argIndex), 16, unsafe.Pointer(&v4[0]))
		case types.Vec4:
			errCode = cl.SetKernelArg(k.kernelHandle, uint32(argIndex), 16, unsafe.Pointer(&v[0]))
		default:
			return fmt.Errorf(
				"opencl device (%s): could not set arg %d for kernel %s; unsupported arg type: %s",
				k.device.Name,
				argIndex,
				k.name,
				reflect.TypeOf(arg).String(),
			)
		}

		if errCode != cl.SUCCESS {
			return &Error{Device: k.device.Name, Op: fmt.Sprintf("set arg %d for kernel %s", argIndex, k.name), Code: errCode}
		}
	}

	return nil
}

// Execute 1D kernel and block until it completes. If localWorkSize is equal to
// 0 then the opencl implementation will pick the optimal work size split for
// the underlying hardware.
func (k *Kernel) Exec1D(offset, globalWorkSize, localWorkSize int) (time.Duration, error) {
	var errCode cl.ErrorCode
	var offsetPtr *uint64
	var localSizePtr *uint64

	if offset > 0 {
		k.offset = uint64(offset)
		offsetPtr = &k.offset
	}
	k.globalWorkSize = uint64(globalWorkSize)
	if localWorkSize != 0 {
		k.localWorkSize = uint64(localWorkSize)
		localSizePtr = &k.localWorkSize
	}

	tick := time.Now()
	errCode = cl.EnqueueNDRangeKernel(
		k.device.cmdQueue,
		k.kernelHandle,
		1,
		offsetPtr,
		&k.globalWorkSize,
		localSizePtr,
		0,
		nil,
		nil,
	)
	if errCode != cl.SUCCESS {
		return 0, k.execError("unable to execute kernel", errCode)
	}

	// Wait for the kernel to complete
	errCode = cl.Finish(k.device.cmdQueue)
	if errCode != cl.SUCCESS {
		return 0, k.execError("kernel did not complete successfully", errCode)
	}

	return time.Since(tick), nil
}

func (k *Kernel) execError(msg string, errCode cl.ErrorCode) error {
	return &Error{Device: k.device.Name, Op: msg + " " + k.name, Code: errCode}
}
