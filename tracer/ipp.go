package tracer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"time"

	"github.com/achilleasa/turbid/scene"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Namespace for experiment hashes.
var experimentNamespace = uuid.MustParse("6f1c8b52-7a0e-4d4b-9a53-5b4f1d0e3c21")

// Derive a stable identifier for an experiment from its scene and the label of
// the solid containing the source.
func ExperimentHash(sc *scene.Scene, sourceLabel string) string {
	var buf bytes.Buffer
	for _, data := range []interface{}{sc.Solids, sc.Surfaces, sc.Triangles, sc.Vertices, sc.Materials} {
		// Fixed-size structs never fail to encode
		_ = binary.Write(&buf, binary.LittleEndian, data)
	}
	for i := 0; i < sc.Labels.SolidCount(); i++ {
		buf.WriteString(sc.Labels.Solid(scene.FirstSolidID + int32(i)))
		buf.WriteByte(0)
	}
	buf.WriteString(sourceLabel)

	return uuid.NewSHA1(experimentNamespace, buf.Bytes()).String()
}

// IPPEntry tracks the measured interactions per photon of an experiment.
type IPPEntry struct {
	IPP     float64   `yaml:"ipp"`
	Photons int64     `yaml:"photons"`
	Updated time.Time `yaml:"updated"`
}

// IPPTable persists IPP measurements between runs so the log buffers of the
// next run of the same experiment can be sized from real data.
type IPPTable struct {
	path    string
	Entries map[string]IPPEntry `yaml:"experiments"`
}

// Load a table from a YAML file. A missing file yields an empty table.
func LoadIPPTable(path string) (*IPPTable, error) {
	t := &IPPTable{path: path, Entries: make(map[string]IPPEntry)}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return t, nil
	} else if err != nil {
		return nil, fmt.Errorf("tracer: could not read IPP table: %w", err)
	}

	if err = yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("tracer: could not parse IPP table %s: %w", path, err)
	}
	if t.Entries == nil {
		t.Entries = make(map[string]IPPEntry)
	}
	return t, nil
}

// Get the IPP estimate for an experiment.
func (t *IPPTable) Estimate(hash string) (float64, error) {
	entry, ok := t.Entries[hash]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownExperiment, hash)
	}
	return entry.IPP, nil
}

// Fold a measurement into the running average of an experiment, weighted by
// the photon counts of each run.
func (t *IPPTable) Update(hash string, ipp float64, photons int) {
	if photons <= 0 {
		return
	}

	entry := t.Entries[hash]
	total := entry.Photons + int64(photons)
	entry.IPP = (entry.IPP*float64(entry.Photons) + ipp*float64(photons)) / float64(total)
	entry.Photons = total
	entry.Updated = time.Now().UTC()
	t.Entries[hash] = entry
}

// Known experiment hashes in sorted order.
func (t *IPPTable) Experiments() []string {
	out := make([]string, 0, len(t.Entries))
	for hash := range t.Entries {
		out = append(out, hash)
	}
	sort.Strings(out)
	return out
}

// Write the table back to the file it was loaded from.
func (t *IPPTable) Save() error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return err
	}
	if err = os.WriteFile(t.path, data, 0o644); err != nil {
		return fmt.Errorf("tracer: could not write IPP table: %w", err)
	}
	return nil
}
