package main

import (
	"os"

	"github.com/achilleasa/turbid/cmd"
	"github.com/achilleasa/turbid/tracer"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	defaults := tracer.DefaultConfig()

	app := cli.NewApp()
	app.Name = "turbid"
	app.Usage = "simulate photon transport in turbid media"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "list-devices",
			Usage:  "list available opencl devices",
			Action: cmd.ListDevices,
		},
		{
			Name:  "simulate",
			Usage: "propagate photons through a demo scene",
			Description: `
Build a slab of tissue (optionally with a cuboid or sphere inclusion), emit
photons from the selected source and propagate them until they are absorbed or
leave the scene. The interaction log is grouped by solid and surface and a
summary of the deposited and crossing energy is printed.`,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "scene",
					Value: "slab",
					Usage: "demo scene: slab, cuboid or sphere",
				},
				cli.StringFlag{
					Name:  "source",
					Value: "pencil",
					Usage: "photon source: pencil or isotropic",
				},
				cli.StringFlag{
					Name:  "backend, b",
					Value: "host",
					Usage: "propagation backend: host, opencl or sequential",
				},
				cli.IntFlag{
					Name:  "photons, p",
					Value: defaults.PhotonCount,
					Usage: "number of photons",
				},
				cli.Float64Flag{
					Name:  "mu-s",
					Value: 30,
					Usage: "tissue scattering coefficient",
				},
				cli.Float64Flag{
					Name:  "mu-a",
					Value: 0.1,
					Usage: "tissue absorption coefficient",
				},
				cli.Float64Flag{
					Name:  "g",
					Value: 0.9,
					Usage: "tissue anisotropy factor",
				},
				cli.Float64Flag{
					Name:  "n",
					Value: 1.4,
					Usage: "tissue refractive index",
				},
				cli.Float64Flag{
					Name:  "width",
					Value: 10,
					Usage: "slab width",
				},
				cli.Float64Flag{
					Name:  "depth",
					Value: 2,
					Usage: "slab depth",
				},
				cli.Float64Flag{
					Name:  "ipp",
					Value: defaults.IPP,
					Usage: "estimated interactions per photon; overrides the IPP table",
				},
				cli.StringFlag{
					Name:  "ipp-table",
					Usage: "yaml file with measured IPP values per experiment",
				},
				cli.IntFlag{
					Name:  "work-units",
					Value: defaults.WorkUnits,
					Usage: "number of parallel work items",
				},
				cli.IntFlag{
					Name:  "memory-budget",
					Value: int(defaults.MemoryBudget >> 20),
					Usage: "photon and log buffer budget in MiB",
				},
				cli.IntFlag{
					Name:  "available-memory",
					Usage: "memory available to the host backend in MiB (0 = unlimited)",
				},
				cli.Float64Flag{
					Name:  "batch-load-factor",
					Value: defaults.BatchLoadFactor,
					Usage: "fraction of the photons held by the active slots",
				},
				cli.IntFlag{
					Name:  "steps",
					Value: defaults.StepsPerLaunch,
					Usage: "propagation steps per launch",
				},
				cli.UintFlag{
					Name:  "seed",
					Value: uint(defaults.Seed),
					Usage: "run seed",
				},
				cli.IntFlag{
					Name:  "parallelism",
					Usage: "concurrent work items for the host backend (0 = number of CPUs)",
				},
				cli.StringFlag{
					Name:  "device-type",
					Value: "all",
					Usage: "opencl device type: cpu, gpu or all",
				},
				cli.StringFlag{
					Name:  "device",
					Usage: "only use opencl devices whose names contain this value",
				},
				cli.BoolFlag{
					Name:  "timings",
					Usage: "print per-launch timing statistics",
				},
			},
			Action: cmd.Simulate,
		},
	}

	if err := app.Run(os.Args); err != nil {
		os.Stderr.WriteString("error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
