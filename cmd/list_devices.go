package cmd

import (
	"bytes"
	"fmt"

	"github.com/achilleasa/turbid/tracer/opencl/device"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// List available opencl devices.
func ListDevices(ctx *cli.Context) error {
	setupLogging(ctx)

	platforms, err := device.GetPlatformInfo()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Platform", "Device", "Type", "Compute units", "Clock", "GFlops", "Memory", "Max alloc"})
	for pIdx, platform := range platforms {
		for _, d := range platform.Devices {
			table.Append([]string{
				fmt.Sprintf("%02d %s", pIdx, platform.Name),
				d.Name,
				d.Type.String(),
				fmt.Sprintf("%d", d.ComputeUnits()),
				fmt.Sprintf("%d Mhz", d.ClockSpeed()),
				fmt.Sprintf("%d", d.Speed),
				fmt.Sprintf("%d MiB", d.GlobalMemSize>>20),
				fmt.Sprintf("%d MiB", d.MaxAllocSize>>20),
			})
		}
	}
	table.Render()

	logger.Noticef("system provides %d opencl platform(s)\n%s", len(platforms), buf.String())
	return nil
}
