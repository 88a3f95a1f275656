package keylog

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/achilleasa/turbid/photon"
	"github.com/achilleasa/turbid/scene"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"gonum.org/v1/gonum/floats"
)

// RunInfo describes the run that produced a set of interactions.
type RunInfo struct {
	ID               uuid.UUID
	PhotonCount      int
	SourceSolidLabel string
}

// Create run info with a fresh id.
func NewRunInfo(photonCount int, sourceSolidLabel string) RunInfo {
	return RunInfo{
		ID:               uuid.New(),
		PhotonCount:      photonCount,
		SourceSolidLabel: sourceSolidLabel,
	}
}

// Logger consumes resolved interactions.
type Logger interface {
	// Record a new run. Called before the points of that run are logged.
	LogRun(info RunInfo)

	// Append points to the given key.
	LogPoints(key Key, points []Point)
}

// Resolve rows and hand them to a logger in a stable key order.
func Deliver(logger Logger, rows []photon.LogRow, labels *scene.Labels, info RunInfo) {
	keyed := Resolve(rows, labels, DefaultBatchSize)
	logger.LogRun(info)
	for _, key := range SortedKeys(keyed) {
		logger.LogPoints(key, keyed[key])
	}
}

// Summary aggregates the weights logged for a key.
type Summary struct {
	Count int

	// Net weight; for surfaces the sum of entering and leaving weights.
	Energy float64

	// Positive and negative weight totals of surface crossings.
	Entering float64
	Leaving  float64
}

// MemoryLogger keeps all points in memory. It is safe for concurrent use.
type MemoryLogger struct {
	mu     sync.Mutex
	runs   []RunInfo
	points map[Key][]Point
}

// Create a new in-memory logger.
func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{points: make(map[Key][]Point)}
}

// Implements Logger.
func (l *MemoryLogger) LogRun(info RunInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs = append(l.runs, info)
}

// Implements Logger.
func (l *MemoryLogger) LogPoints(key Key, points []Point) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.points[key] = append(l.points[key], points...)
}

// Get the logged runs.
func (l *MemoryLogger) Runs() []RunInfo {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]RunInfo(nil), l.runs...)
}

// Get the total photon count over all runs.
func (l *MemoryLogger) PhotonCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total int
	for _, run := range l.runs {
		total += run.PhotonCount
	}
	return total
}

// Get the logged keys in a stable order.
func (l *MemoryLogger) Keys() []Key {
	l.mu.Lock()
	defer l.mu.Unlock()
	return SortedKeys(l.points)
}

// Get a copy of the points logged for a key.
func (l *MemoryLogger) Points(key Key) []Point {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Point(nil), l.points[key]...)
}

// Aggregate the weights logged for a key.
func (l *MemoryLogger) Summary(key Key) Summary {
	l.mu.Lock()
	points := l.points[key]
	weights := make([]float64, len(points))
	var entering, leaving []float64
	for i, p := range points {
		weights[i] = float64(p.Weight)
		if p.Weight > 0 {
			entering = append(entering, weights[i])
		} else {
			leaving = append(leaving, weights[i])
		}
	}
	l.mu.Unlock()

	s := Summary{Count: len(points), Energy: floats.Sum(weights)}
	if key.HasSurface {
		s.Entering = floats.Sum(entering)
		s.Leaving = floats.Sum(leaving)
	}
	return s
}

// Render per-key summaries as a table. Energies are normalized by the
// total photon count.
func (l *MemoryLogger) SummaryTable() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Solid", "Surface", "Rows", "Absorbed", "Entering", "Leaving"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	photons := float64(l.PhotonCount())
	if photons == 0 {
		photons = 1
	}

	for _, key := range l.Keys() {
		s := l.Summary(key)
		row := []string{key.Solid, "-", fmt.Sprint(s.Count), "-", "-", "-"}
		if key.HasSurface {
			row[1] = key.Surface
			row[4] = fmt.Sprintf("%.4f", s.Entering/photons)
			row[5] = fmt.Sprintf("%.4f", -s.Leaving/photons)
		} else {
			row[3] = fmt.Sprintf("%.4f", s.Energy/photons)
		}
		table.Append(row)
	}
	table.Render()

	return buf.String()
}
