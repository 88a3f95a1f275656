package material

import "fmt"

// ConfigurationError is returned when a material is constructed with invalid
// optical properties. It is fatal: no photon may be simulated with such a
// material.
type ConfigurationError struct {
	Param  string
	Value  float32
	Reason string
}

// Implements error.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("material: invalid %s (%g): %s", e.Param, e.Value, e.Reason)
}
