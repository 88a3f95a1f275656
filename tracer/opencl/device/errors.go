package device

import (
	"errors"
	"fmt"

	"github.com/achilleasa/gopencl/v1.2/cl"
)

// Matched (via errors.Is) by errors raised when the device cannot back a
// buffer or a kernel launch with memory.
var ErrAllocationFailed = errors.New("opencl device: allocation failed")

// Error reports a failed opencl call.
type Error struct {
	Device string
	Op     string
	Code   cl.ErrorCode

	// Compiler output of a failed program build.
	BuildLog string

	// Set for failures while creating a buffer.
	alloc bool
}

// Implements error.
func (e *Error) Error() string {
	msg := fmt.Sprintf("opencl device (%s): %s (error: %s; code %d)", e.Device, e.Op, ErrorName(e.Code), e.Code)
	if e.BuildLog != "" {
		msg += ":\n" + e.BuildLog
	}
	return msg
}

// Is reports allocation failures as ErrAllocationFailed.
func (e *Error) Is(target error) bool {
	return target == ErrAllocationFailed && (e.alloc || isAllocationFailure(e.Code))
}

// Implementations defer buffer allocation until first use so memory
// exhaustion may only surface when a kernel is enqueued.
func isAllocationFailure(errCode cl.ErrorCode) bool {
	switch errCode {
	case -4, -5, -6:
		return true
	}
	return false
}

// Names of the error codes returned by the calls this package makes. Image,
// sampler and GL interop codes are never produced.
var errorNames = map[cl.ErrorCode]string{
	0:   "SUCCESS",
	-1:  "DEVICE_NOT_FOUND",
	-2:  "DEVICE_NOT_AVAILABLE",
	-3:  "COMPILER_NOT_AVAILABLE",
	-4:  "MEM_OBJECT_ALLOCATION_FAILURE",
	-5:  "OUT_OF_RESOURCES",
	-6:  "OUT_OF_HOST_MEMORY",
	-11: "BUILD_PROGRAM_FAILURE",
	-30: "INVALID_VALUE",
	-33: "INVALID_DEVICE",
	-34: "INVALID_CONTEXT",
	-35: "INVALID_QUEUE_PROPERTIES",
	-36: "INVALID_COMMAND_QUEUE",
	-37: "INVALID_HOST_PTR",
	-38: "INVALID_MEM_OBJECT",
	-43: "INVALID_BUILD_OPTIONS",
	-44: "INVALID_PROGRAM",
	-45: "INVALID_PROGRAM_EXECUTABLE",
	-46: "INVALID_KERNEL_NAME",
	-47: "INVALID_KERNEL_DEFINITION",
	-48: "INVALID_KERNEL",
	-49: "INVALID_ARG_INDEX",
	-50: "INVALID_ARG_VALUE",
	-51: "INVALID_ARG_SIZE",
	-52: "INVALID_KERNEL_ARGS",
	-53: "INVALID_WORK_DIMENSION",
	-54: "INVALID_WORK_GROUP_SIZE",
	-55: "INVALID_WORK_ITEM_SIZE",
	-56: "INVALID_GLOBAL_OFFSET",
	-59: "INVALID_OPERATION",
	-61: "INVALID_BUFFER_SIZE",
	-63: "INVALID_GLOBAL_WORK_SIZE",
}

// Get the symbolic name of an opencl error code.
func ErrorName(errCode cl.ErrorCode) string {
	if name, ok := errorNames[errCode]; ok {
		return name
	}
	return fmt.Sprintf("unknown error code %d", errCode)
}
