// Command laser-sim runs a simulated 2D laser rangefinder against an
// occupancy map, stores every scan in SQLite and renders the last one.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/lasersim/internal/monitoring"
	"github.com/banshee-data/lasersim/internal/version"
)

var (
	configPath   = flag.String("config", "", "Path to a JSON laser config (defaults are built in)")
	mapPath      = flag.String("map", "", "Map YAML file (overrides map_path)")
	dbPath       = flag.String("db", "", "SQLite scan database (overrides db_path)")
	poseX        = flag.Float64("x", 0, "Sensor x position in the map frame (m)")
	poseY        = flag.Float64("y", 0, "Sensor y position in the map frame (m)")
	poseTheta    = flag.Float64("theta", 0, "Sensor heading in the map frame (rad)")
	cycles       = flag.Int("cycles", 0, "Number of scans to produce, 0 runs until interrupted")
	plotDir      = flag.String("plot-dir", "", "Directory for PNG/HTML renderings of the last scan (overrides plot_dir)")
	diag         = flag.Bool("diag", false, "Enable per-cycle diagnostic logging")
	trace        = flag.Bool("trace", false, "Enable per-beam trace logging")
	writeDemoMap = flag.String("write-demo-map", "", "Write a demo room map to this YAML path and exit")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	writers := monitoring.LogWriters{Ops: os.Stderr}
	if *diag {
		writers.Diag = os.Stderr
	}
	if *trace {
		writers.Trace = os.Stderr
	}
	monitoring.SetLogWriters(writers)

	if *writeDemoMap != "" {
		if err := saveDemoMap(*writeDemoMap); err != nil {
			log.Fatalf("failed to write demo map: %v", err)
		}
		log.Printf("wrote demo map to %s", *writeDemoMap)
		return
	}

	monitoring.Opsf("starting %s", version.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := runOptions{
		ConfigPath: *configPath,
		MapPath:    *mapPath,
		DBPath:     *dbPath,
		PlotDir:    *plotDir,
		X:          *poseX,
		Y:          *poseY,
		Theta:      *poseTheta,
		Cycles:     *cycles,
	}
	if err := run(ctx, opts); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("laser-sim: %v", err)
	}
}
