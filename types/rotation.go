package types

import "github.com/go-gl/mathgl/mgl32"

// Rotate v around the given axis by angle radians (right-hand rule). The axis
// is normalized before use; a zero axis leaves v untouched.
func (v Vec3) RotateAround(axis Vec3, angle float32) Vec3 {
	axis = axis.Normalize()
	if axis.Len() < floatCmpEpsilon {
		return v
	}
	q := mgl32.QuatRotate(angle, mgl32.Vec3(axis))
	return Vec3(q.Rotate(mgl32.Vec3(v)))
}
