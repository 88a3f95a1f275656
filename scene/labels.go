package scene

// Labels translate solid and surface ids into names.
type Labels struct {
	solids   []string
	surfaces []string
}

// Get the label of a solid. The world and unknown ids map to "world".
func (l *Labels) Solid(solidID int32) string {
	idx := int(solidID - FirstSolidID)
	if solidID < FirstSolidID || idx >= len(l.solids) {
		return WorldLabel
	}
	return l.solids[idx]
}

// Get the label of a surface. The second return value is false for
// NoSurfaceID and unknown ids.
func (l *Labels) Surface(surfaceID int32) (string, bool) {
	if surfaceID < 0 || int(surfaceID) >= len(l.surfaces) {
		return "", false
	}
	return l.surfaces[surfaceID], true
}

// Find a solid id by label.
func (l *Labels) SolidID(label string) (int32, bool) {
	if label == WorldLabel {
		return NoSolidID, true
	}
	for idx, name := range l.solids {
		if name == label {
			return int32(idx) + FirstSolidID, true
		}
	}
	return NoSolidID, false
}

// Get the number of labelled solids.
func (l *Labels) SolidCount() int {
	return len(l.solids)
}
