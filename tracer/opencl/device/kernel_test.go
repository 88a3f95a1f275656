package device

import (
	"testing"

	"github.com/achilleasa/gopencl/v1.2/cl"
	"github.com/achilleasa/turbid/types"
)

func TestKernelExec1D(t *testing.T) {
	dev := createCpuTestDevice(t)
	defer dev.Close()

	kernel, err := dev.Kernel("square")
	if err != nil {
		t.Fatal(err)
	}
	defer kernel.Release()

	dataSize := 32
	dataIn := make([]int32, dataSize)
	dataOut := make([]int32, dataSize)
	for i := 0; i < dataSize; i++ {
		dataIn[i] = int32(i)
	}

	bufIn := dev.Buffer("in")
	defer bufIn.Release()
	err = bufIn.AllocateAndWriteData(dataIn, cl.MEM_READ_ONLY)
	if err != nil {
		t.Fatal(err)
	}

	bufOut := dev.Buffer("out")
	defer bufOut.Release()
	err = bufOut.AllocateToFitData(dataOut, cl.MEM_READ_WRITE)
	if err != nil {
		t.Fatal(err)
	}

	for _, localSize := range []int{0, 8} {
		err = kernel.SetArgs(bufIn, bufOut, uint32(dataSize))
		if err != nil {
			t.Fatal(err)
		}

		_, err = kernel.Exec1D(0, dataSize, localSize)
		if err != nil {
			t.Fatal(err)
		}

		err = bufOut.ReadData(0, 0, 0, dataOut)
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < dataSize; i++ {
			if dataOut[i] != int32(i*i) {
				t.Fatalf("[local size %d] expected out[%d] to be %d; got %d", localSize, i, i*i, dataOut[i])
			}
		}
	}
}

func TestKernelVectorArgs(t *testing.T) {
	dev := createCpuTestDevice(t)
	defer dev.Close()

	kernel, err := dev.Kernel("translate")
	if err != nil {
		t.Fatal(err)
	}
	defer kernel.Release()

	points := make([]types.Vec4, 16)
	buf := dev.Buffer("points")
	defer buf.Release()
	err = buf.AllocateAndWriteData(points, cl.MEM_READ_WRITE)
	if err != nil {
		t.Fatal(err)
	}

	// Vec3 args are padded to float4
	err = kernel.SetArgs(buf, types.XYZ(1, 2, 3), uint32(len(points)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err = kernel.Exec1D(0, len(points), 0); err != nil {
		t.Fatal(err)
	}

	err = kernel.SetArgs(buf, types.XYZW(1, 0, 0, 0), uint32(len(points)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err = kernel.Exec1D(0, len(points), 0); err != nil {
		t.Fatal(err)
	}

	if err = buf.ReadData(0, 0, 0, points); err != nil {
		t.Fatal(err)
	}
	exp := types.XYZW(2, 2, 3, 0)
	for i, p := range points {
		if p != exp {
			t.Fatalf("expected point %d to be %v; got %v", i, exp, p)
		}
	}
}

func TestKernelUnsupportedArg(t *testing.T) {
	dev := createCpuTestDevice(t)
	defer dev.Close()

	kernel, err := dev.Kernel("square")
	if err != nil {
		t.Fatal(err)
	}
	defer kernel.Release()

	if err = kernel.SetArgs("foo"); err == nil {
		t.Fatal("expected an error for an unsupported argument type")
	}
}
