package material

import (
	"math"

	"github.com/achilleasa/turbid/types"
)

// Incidence planes shorter than this are treated as normal incidence.
const degeneratePlaneEpsilon = 1e-7

// Interface describes how a photon meets a surface. Normal is oriented along
// the direction of travel and IncidencePlane is the normalized dir x Normal
// axis; rotating the direction around it by a positive angle turns it
// towards Normal.
type Interface struct {
	Normal          types.Vec3
	IncidencePlane  types.Vec3
	ThetaIn         float32
	NormalIncidence bool
}

// Orient the surface normal along dir and compute the plane and angle of
// incidence. The returned flag reports whether the photon travels against the
// original normal, i.e. whether it is entering the solid.
func NewInterface(dir, normal types.Vec3) (Interface, bool) {
	entering := dir.Dot(normal) < 0
	if entering {
		normal = normal.Mul(-1)
	}

	plane := dir.Cross(normal)
	degenerate := plane.Len() < degeneratePlaneEpsilon
	if degenerate {
		plane = dir.AnyOrthogonal()
	}

	return Interface{
		Normal:          normal,
		IncidencePlane:  plane.Normalize(),
		ThetaIn:         float32(math.Acos(clamp(float64(normal.Dot(dir)), -1, 1))),
		NormalIncidence: degenerate,
	}, entering
}

// Compute the unpolarized Fresnel reflectance for a photon travelling along
// dir that meets a surface with the given normal, going from a medium with
// index nIn into a medium with index nOut.
func FresnelReflectance(dir, normal types.Vec3, nIn, nOut float32) float32 {
	iface, _ := NewInterface(dir, normal)
	if iface.NormalIncidence {
		return Reflectance(0, nIn, nOut)
	}
	return Reflectance(iface.ThetaIn, nIn, nOut)
}

// Compute the unpolarized Fresnel reflectance for the incidence angle thetaIn.
// Angles past the critical angle yield 1.
func Reflectance(thetaIn, n1, n2 float32) float32 {
	if n1 == n2 {
		return 0
	}
	if thetaIn == 0 {
		r := float64(n2-n1) / float64(n2+n1)
		return float32(r * r)
	}

	sa1 := math.Sin(float64(thetaIn))
	sa2 := sa1 * float64(n1) / float64(n2)
	if sa2 >= 1 {
		return 1
	}

	ca1 := math.Sqrt(1 - sa1*sa1)
	ca2 := math.Sqrt(1 - sa2*sa2)
	cap := ca1*ca2 - sa1*sa2
	cam := ca1*ca2 + sa1*sa2
	sap := sa1*ca2 + ca1*sa2
	sam := sa1*ca2 - ca1*sa2

	r := 0.5 * sam * sam * (cap*cap + cam*cam) / (sap * sap * cam * cam)
	return float32(clamp(r, 0, 1))
}

// Get the angle by which a refracted photon deviates from its incidence
// direction: theta_out - theta_in. Matching indices yield 0. Callers must
// check for total internal reflection first.
func RefractionDeflection(thetaIn, nIn, nOut float32) float32 {
	if nIn == nOut {
		return 0
	}
	sinOut := clamp(float64(nIn)/float64(nOut)*math.Sin(float64(thetaIn)), -1, 1)
	return float32(math.Asin(sinOut)) - thetaIn
}

// Get the rotation around the incidence plane that mirrors the direction of a
// photon about the surface: 2*theta_in - pi.
func ReflectionDeflection(thetaIn float32) float32 {
	return 2*thetaIn - math.Pi
}
