package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/banshee-data/lasersim/internal/config"
	"github.com/banshee-data/lasersim/internal/lasersim/scan"
	"github.com/banshee-data/lasersim/internal/lasersim/simulator"
	"github.com/banshee-data/lasersim/internal/mapio"
	"github.com/banshee-data/lasersim/internal/monitoring"
	"github.com/banshee-data/lasersim/internal/scanplot"
	"github.com/banshee-data/lasersim/internal/scanstore"
)

type runOptions struct {
	ConfigPath string
	MapPath    string
	DBPath     string
	PlotDir    string
	X, Y       float64
	Theta      float64
	Cycles     int
}

func loadConfig(path string) (*config.LaserConfig, error) {
	if path == "" {
		return config.DefaultLaserConfig(), nil
	}
	return config.LoadLaserConfig(path)
}

// firstNonEmpty returns the flag value when set, otherwise the config value.
func firstNonEmpty(flagValue, cfgValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return cfgValue
}

// lastScan keeps the most recent scan delivered by the simulator.
type lastScan struct {
	res *scan.Result
}

func (l *lastScan) Consume(_ context.Context, res *scan.Result) error {
	l.res = res
	return nil
}

func run(ctx context.Context, opts runOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	sensor, err := cfg.SensorConfig()
	if err != nil {
		return err
	}

	mapFile := firstNonEmpty(opts.MapPath, cfg.GetMapPath())
	if mapFile == "" {
		return errors.New("no map given: pass -map or set map_path")
	}

	store, err := scanstore.Open(firstNonEmpty(opts.DBPath, cfg.GetDBPath()))
	if err != nil {
		return err
	}
	defer store.Close()

	last := &lastScan{}
	pose := scan.Pose{X: opts.X, Y: opts.Y, Theta: opts.Theta}
	maps := mapio.NewFileProvider(mapFile)
	sim, err := simulator.New(sensor, simulator.Options{
		Maps:        maps,
		Poses:       simulator.StaticPose(pose),
		Consumer:    simulator.Fanout{store, last},
		PoseTimeout: cfg.GetPoseTimeout(),
	})
	if err != nil {
		return err
	}
	if err := sim.RefreshMap(ctx); err != nil {
		return err
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	reloadCtx, cancelReload := context.WithCancel(ctx)
	defer cancelReload()
	go reloadOnSignal(reloadCtx, hup, maps, sim)

	monitoring.Opsf("simulating %s at (%.3f, %.3f, %.3f), %d cycles", sensor.FrameID, pose.X, pose.Y, pose.Theta, opts.Cycles)
	runErr := sim.Run(ctx, opts.Cycles)
	stats := sim.Stats()
	monitoring.Opsf("finished: %d scans completed, %d failed", stats.Completed, stats.Failed)

	if dir := firstNonEmpty(opts.PlotDir, cfg.GetPlotDir()); dir != "" && last.res != nil {
		if err := render(dir, last.res, pose); err != nil {
			return err
		}
	}
	return runErr
}

// reloadOnSignal re-reads the map file each time sig fires until ctx ends.
// A map that fails to load leaves the previous grid in place.
func reloadOnSignal(ctx context.Context, sig <-chan os.Signal, maps *mapio.FileProvider, sim *simulator.Simulator) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			maps.Reload()
			if err := sim.RefreshMap(ctx); err != nil {
				monitoring.Opsf("map reload failed, keeping previous map: %v", err)
				continue
			}
			monitoring.Opsf("reloaded map from %s", maps.Path)
		}
	}
}

func render(dir string, res *scan.Result, pose scan.Pose) error {
	sum := scanplot.Summarize(res)
	monitoring.Opsf("last scan: %d/%d hits, nearest %.3fm, farthest %.3fm", sum.Hits, sum.Beams, sum.Nearest, sum.Farthest)

	pngPath := filepath.Join(dir, "scan.png")
	if err := scanplot.SavePNG(res, pose, pngPath); err != nil {
		return err
	}

	htmlPath := filepath.Join(dir, "scan.html")
	f, err := os.Create(htmlPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", htmlPath, err)
	}
	if err := scanplot.RenderHTML(f, res, pose); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	monitoring.Opsf("rendered last scan to %s and %s", pngPath, htmlPath)
	return nil
}
