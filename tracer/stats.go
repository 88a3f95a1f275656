package tracer

import (
	"bytes"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
)

// BatchStats collects timing information for a single kernel launch.
type BatchStats struct {
	Index int

	// Slots advanced by this launch.
	Active int

	// Photons terminated during this launch and in total.
	Completed      int
	TotalCompleted int

	// Log rows collected by this launch.
	Rows int

	LaunchTime     time.Duration
	TransferTime   time.Duration
	ConversionTime time.Duration

	// Time since the run started and estimated time to completion.
	Elapsed time.Duration
	ETA     time.Duration
}

// Completed photons per millisecond of wall time.
func (bs BatchStats) Speed() float64 {
	ms := float64(bs.Elapsed) / float64(time.Millisecond)
	if ms <= 0 {
		return 0
	}
	return float64(bs.TotalCompleted) / ms
}

// Render batch stats as a table.
func StatsTable(stats []BatchStats) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Batch", "Active", "Completed", "Rows", "Launch", "Transfer", "Conversion", "Photons/ms", "Elapsed", "ETA"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	var launch, transfer, conversion time.Duration
	var rows int
	for _, bs := range stats {
		launch += bs.LaunchTime
		transfer += bs.TransferTime
		conversion += bs.ConversionTime
		rows += bs.Rows
		table.Append([]string{
			fmt.Sprint(bs.Index),
			fmt.Sprint(bs.Active),
			fmt.Sprintf("%d (%d)", bs.Completed, bs.TotalCompleted),
			fmt.Sprint(bs.Rows),
			fmtDuration(bs.LaunchTime),
			fmtDuration(bs.TransferTime),
			fmtDuration(bs.ConversionTime),
			fmt.Sprintf("%.2f", bs.Speed()),
			fmtDuration(bs.Elapsed),
			fmtDuration(bs.ETA),
		})
	}

	if len(stats) != 0 {
		last := stats[len(stats)-1]
		table.SetFooter([]string{
			"", "", fmt.Sprint(last.TotalCompleted), fmt.Sprint(rows),
			fmtDuration(launch), fmtDuration(transfer), fmtDuration(conversion),
			fmt.Sprintf("%.2f", last.Speed()), fmtDuration(last.Elapsed), "",
		})
	}
	table.Render()

	return buf.String()
}

func fmtDuration(d time.Duration) string {
	return d.Round(time.Microsecond).String()
}
