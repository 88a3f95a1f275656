package material

import (
	"math"

	"github.com/achilleasa/turbid/rng"
)

// Kind selects the sampling model of a material.
type Kind uint32

// Supported material kinds.
const (
	ScatteringKind Kind = iota
)

// Implements Stringer.
func (k Kind) String() string {
	switch k {
	case ScatteringKind:
		return "scattering"
	}
	return "unknown"
}

// Material holds the optical properties of a medium. The field layout matches
// the Material struct of the device kernels and must not be reordered.
type Material struct {
	MuS    float32
	MuA    float32
	MuT    float32
	G      float32
	N      float32
	Albedo float32

	// Index in the scene material table; assigned by the scene builder.
	ID int32

	Kind Kind
}

// Create a scattering material with the given scattering and absorption
// coefficients, anisotropy factor and refractive index.
func New(muS, muA, g, n float32) (Material, error) {
	switch {
	case muS < 0:
		return Material{}, &ConfigurationError{Param: "mu_s", Value: muS, Reason: "must not be negative"}
	case muA < 0:
		return Material{}, &ConfigurationError{Param: "mu_a", Value: muA, Reason: "must not be negative"}
	case muS > 0 && muA == 0:
		return Material{}, &ConfigurationError{Param: "mu_a", Value: muA, Reason: "scattering requires a non-zero absorption channel"}
	case g < -1 || g > 1:
		return Material{}, &ConfigurationError{Param: "g", Value: g, Reason: "must be in [-1, 1]"}
	case !(n > 0):
		return Material{}, &ConfigurationError{Param: "n", Value: n, Reason: "must be positive"}
	}

	m := Material{
		MuS:  muS,
		MuA:  muA,
		MuT:  muS + muA,
		G:    g,
		N:    n,
		Kind: ScatteringKind,
	}
	if m.MuT > 0 {
		m.Albedo = muA / m.MuT
	}
	return m, nil
}

// Check that the material has a supported kind and valid optical
// properties. Materials that pass can be sampled without panicking.
func (m *Material) Validate() error {
	if m.Kind != ScatteringKind {
		return &ConfigurationError{Param: "kind", Value: float32(m.Kind), Reason: "unsupported material kind"}
	}
	_, err := New(m.MuS, m.MuA, m.G, m.N)
	return err
}

// Create a non-attenuating material with refractive index n.
func Vacuum(n float32) Material {
	return Material{N: n, Kind: ScatteringKind}
}

// Check whether photons travel through this material unattenuated.
func (m *Material) IsVacuum() bool {
	return m.MuT == 0
}

// Get the fraction of the photon weight deposited at each interaction.
func (m *Material) GetAlbedo() float32 {
	if m.MuT == 0 {
		return 0
	}
	return m.Albedo
}

// Sample the free path length until the next interaction. Vacuum materials
// return +Inf.
func (m *Material) ScatteringDistance(rnd *rng.Stream) float32 {
	switch m.Kind {
	case ScatteringKind:
		if m.MuT == 0 {
			return float32(math.Inf(1))
		}
		return float32(-math.Log(float64(rnd.Float32())) / float64(m.MuT))
	}
	panic("material: unsupported kind " + m.Kind.String())
}

// Sample the polar (theta) and azimuthal (phi) scattering angles.
func (m *Material) ScatteringAngles(rnd *rng.Stream) (theta, phi float32) {
	switch m.Kind {
	case ScatteringKind:
		phi = 2 * math.Pi * rnd.Float32()
		theta = henyeyGreenstein(m.G, rnd.Float32())
		return theta, phi
	}
	panic("material: unsupported kind " + m.Kind.String())
}

// Invert the Henyey-Greenstein CDF for the uniform sample u.
func henyeyGreenstein(g, u float32) float32 {
	if g == 0 {
		return float32(math.Acos(clamp(2*float64(u)-1, -1, 1)))
	}

	g64 := float64(g)
	t := (1 - g64*g64) / (1 - g64 + 2*g64*float64(u))
	cosTheta := (1 + g64*g64 - t*t) / (2 * g64)
	return float32(math.Acos(clamp(cosTheta, -1, 1)))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
