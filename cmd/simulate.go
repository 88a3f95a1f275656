package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/achilleasa/turbid/keylog"
	"github.com/achilleasa/turbid/material"
	"github.com/achilleasa/turbid/photon"
	"github.com/achilleasa/turbid/scene"
	"github.com/achilleasa/turbid/source"
	"github.com/achilleasa/turbid/tracer"
	"github.com/achilleasa/turbid/tracer/host"
	"github.com/achilleasa/turbid/tracer/opencl"
	"github.com/achilleasa/turbid/tracer/opencl/device"
	"github.com/achilleasa/turbid/types"
	"github.com/urfave/cli"
)

// Run a simulation on one of the demo scenes.
func Simulate(ctx *cli.Context) error {
	setupLogging(ctx)

	tissue, err := material.New(
		float32(ctx.Float64("mu-s")),
		float32(ctx.Float64("mu-a")),
		float32(ctx.Float64("g")),
		float32(ctx.Float64("n")),
	)
	if err != nil {
		return err
	}

	demo, err := buildDemoScene(ctx.String("scene"), tissue, float32(ctx.Float64("width")), float32(ctx.Float64("depth")))
	if err != nil {
		return err
	}
	logger.Infof("scene statistics\n%s", demo.sc.Stats())

	src, err := makeSource(ctx.String("source"), demo)
	if err != nil {
		return err
	}

	cfg := tracer.DefaultConfig()
	cfg.PhotonCount = ctx.Int("photons")
	cfg.WorkUnits = ctx.Int("work-units")
	cfg.MemoryBudget = int64(ctx.Int("memory-budget")) << 20
	cfg.BatchLoadFactor = ctx.Float64("batch-load-factor")
	cfg.StepsPerLaunch = ctx.Int("steps")
	cfg.Seed = uint32(ctx.Uint("seed"))
	if ctx.IsSet("ipp") {
		cfg.IPP = ctx.Float64("ipp")
	}

	// Seed the IPP estimate from earlier runs of the same experiment.
	var (
		table *tracer.IPPTable
		hash  = tracer.ExperimentHash(demo.sc, src.SolidLabel())
	)
	if tablePath := ctx.String("ipp-table"); tablePath != "" {
		if table, err = tracer.LoadIPPTable(tablePath); err != nil {
			return err
		}
		ipp, err := table.Estimate(hash)
		switch {
		case err == nil && !ctx.IsSet("ipp"):
			logger.Infof("using IPP estimate %.2f for experiment %s", ipp, hash)
			cfg.IPP = ipp
		case errors.Is(err, tracer.ErrUnknownExperiment):
			logger.Infof("no IPP estimate for experiment %s; using %.2f", hash, cfg.IPP)
		}
	}

	if err = cfg.Validate(); err != nil {
		return err
	}

	photons, err := src.Photons(demo.sc, cfg.PhotonCount, cfg.Seed)
	if err != nil {
		return err
	}

	runCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	res, err := runBackend(runCtx, ctx, demo.sc, photons, cfg)
	if err != nil {
		return err
	}

	if table != nil {
		table.Update(hash, res.IPP(), res.PhotonCount)
		if err = table.Save(); err != nil {
			return err
		}
	}

	if ctx.Bool("timings") && len(res.Batches) != 0 {
		logger.Noticef("batch statistics\n%s", tracer.StatsTable(res.Batches))
	}

	keys := keylog.NewMemoryLogger()
	keylog.Deliver(keys, res.Rows, &demo.sc.Labels, keylog.NewRunInfo(res.PhotonCount, src.SolidLabel()))

	logger.Noticef(
		"propagated %d photons in %s: %d rows (%.2f per photon), %.4f absorbed, %.4f escaped\n%s",
		res.PhotonCount, res.Elapsed, len(res.Rows), res.IPP(),
		res.AbsorbedWeight()/float64(res.PhotonCount), res.ExitedWeight/float64(res.PhotonCount),
		keys.SummaryTable(),
	)

	return nil
}

func makeSource(kind string, demo *demoScene) (source.Source, error) {
	switch kind {
	case "pencil":
		// Enter the slab through its bottom face.
		return &source.Pencil{
			Position:  types.XYZ(0, 0, -demo.halfDepth-1),
			Direction: types.XYZ(0, 0, 1),
		}, nil
	case "isotropic":
		return &source.IsotropicPoint{Solid: demo.innermost}, nil
	}
	return nil, fmt.Errorf("unknown source type %q", kind)
}

func runBackend(runCtx context.Context, ctx *cli.Context, sc *scene.Scene, photons []photon.Photon, cfg tracer.Config) (*tracer.Result, error) {
	var backend tracer.Backend

	switch ctx.String("backend") {
	case "sequential":
		return tracer.RunSequential(sc, photons, cfg)
	case "host":
		cfg.AvailableMemory = int64(ctx.Int("available-memory")) << 20
		backend = host.New(ctx.Int("parallelism"))
	case "opencl":
		dev, err := selectDevice(ctx.String("device-type"), ctx.String("device"))
		if err != nil {
			return nil, err
		}
		cfg.AvailableMemory = int64(dev.GlobalMemSize)
		backend = opencl.New(dev)
	default:
		return nil, fmt.Errorf("unknown backend %q", ctx.String("backend"))
	}
	defer backend.Close()

	sch := tracer.NewScheduler(sc, backend, cfg)
	res, err := sch.Run(runCtx, photons)

	var oom *tracer.OutOfMemoryError
	if errors.As(err, &oom) {
		logger.Errorf("%s; lower --memory-budget or --batch-load-factor and try again", oom.Error())
	}
	return res, err
}

// Pick the fastest opencl device matching the type and name filters.
func selectDevice(typeName, matchName string) (*device.Device, error) {
	var typeMask device.DeviceType
	switch strings.ToLower(typeName) {
	case "cpu":
		typeMask = device.CpuDevice
	case "gpu":
		typeMask = device.GpuDevice
	case "all", "":
		typeMask = device.AllDevices
	default:
		return nil, fmt.Errorf("unknown device type %q", typeName)
	}

	devices, err := device.SelectDevices(typeMask, matchName)
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, errors.New("no matching opencl devices")
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].Speed > devices[j].Speed })
	logger.Infof("selected opencl device %q (%d GFlops)", devices[0].Name, devices[0].Speed)
	return devices[0], nil
}
