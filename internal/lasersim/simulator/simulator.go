// Package simulator runs scan cycles for one simulated laser: it fetches
// the map, looks up the sensor pose, synthesizes the scan and hands it to a
// consumer.
//
// The current grid and sensor configuration are held as whole snapshots
// behind atomic pointers. Replacing either never affects a cycle that has
// already loaded the previous snapshot.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/banshee-data/lasersim/internal/lasersim/grid"
	"github.com/banshee-data/lasersim/internal/lasersim/raycast"
	"github.com/banshee-data/lasersim/internal/lasersim/scan"
	"github.com/banshee-data/lasersim/internal/monitoring"
	"github.com/banshee-data/lasersim/internal/timeutil"
)

// DefaultPoseTimeout bounds each pose lookup when Options.PoseTimeout is
// zero.
const DefaultPoseTimeout = 500 * time.Millisecond

var (
	// ErrNoMap means no occupancy grid is available for the cycle.
	ErrNoMap = errors.New("simulator: no occupancy grid available")
	// ErrPoseUnavailable means the pose lookup for the cycle failed.
	ErrPoseUnavailable = errors.New("simulator: sensor pose unavailable")
	// ErrDelivery means the consumer rejected a synthesized scan.
	ErrDelivery = errors.New("simulator: scan delivery failed")
)

// Options wires a Simulator to its collaborators.
type Options struct {
	Maps        MapProvider  // optional when SetMap is used
	Poses       PoseProvider // required
	Consumer    Consumer     // nil discards scans
	Clock       timeutil.Clock
	PoseTimeout time.Duration
}

// Stats counts finished cycles.
type Stats struct {
	Completed uint64
	Failed    uint64
}

// Simulator owns the state of one simulated laser.
type Simulator struct {
	maps        MapProvider
	poses       PoseProvider
	consumer    Consumer
	clock       timeutil.Clock
	poseTimeout time.Duration

	grid  atomic.Pointer[grid.OccupancyGrid]
	synth atomic.Pointer[scan.Synthesizer]

	completed atomic.Uint64
	failed    atomic.Uint64
}

// New validates cfg and returns a Simulator with no map loaded.
func New(cfg scan.Config, opts Options) (*Simulator, error) {
	if opts.Poses == nil {
		return nil, errors.New("simulator: a pose provider is required")
	}
	s := &Simulator{
		maps:        opts.Maps,
		poses:       opts.Poses,
		consumer:    opts.Consumer,
		clock:       opts.Clock,
		poseTimeout: opts.PoseTimeout,
	}
	if s.consumer == nil {
		s.consumer = Discard
	}
	if s.clock == nil {
		s.clock = timeutil.RealClock{}
	}
	if s.poseTimeout <= 0 {
		s.poseTimeout = DefaultPoseTimeout
	}
	if err := s.SetConfig(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// SetConfig replaces the sensor configuration as a whole. An invalid
// configuration is rejected and the previous one stays in effect.
func (s *Simulator) SetConfig(cfg scan.Config) error {
	synth, err := scan.NewSynthesizer(cfg, s.clock)
	if err != nil {
		return err
	}
	s.synth.Store(synth)
	monitoring.Opsf("updated parameters of simulated laser: frame=%s fov=%.3f beams=%d range=[%.3f, %.3f] rate=%.1fHz",
		cfg.FrameID, cfg.FOV, cfg.BeamCount, cfg.MinRange, cfg.MaxRange, cfg.UpdateFrequency)
	return nil
}

// Config returns the configuration in effect.
func (s *Simulator) Config() scan.Config {
	return s.synth.Load().Config()
}

// SetMap installs g as the current grid.
func (s *Simulator) SetMap(g *grid.OccupancyGrid) error {
	if g == nil {
		return ErrNoMap
	}
	s.grid.Store(g)
	free, occupied, unknown := g.Counts(raycast.OccupiedThreshold)
	monitoring.Opsf("got a %dx%d map with resolution %.3f (free=%d occupied=%d unknown=%d)",
		g.Width, g.Height, g.Resolution, free, occupied, unknown)
	return nil
}

// Map returns the current grid, nil if none has been loaded.
func (s *Simulator) Map() *grid.OccupancyGrid {
	return s.grid.Load()
}

// RefreshMap asks the map provider for a new grid. On failure the previous
// grid, if any, is kept.
func (s *Simulator) RefreshMap(ctx context.Context) error {
	if s.maps == nil {
		return fmt.Errorf("%w: no map provider configured", ErrNoMap)
	}
	g, err := s.maps.Map(ctx)
	if err == nil && g == nil {
		err = errors.New("provider returned no grid")
	}
	if err != nil {
		monitoring.Opsf("no map received: %v", err)
		return fmt.Errorf("%w: %w", ErrNoMap, err)
	}
	return s.SetMap(g)
}

// Cycle runs one scan cycle. No scan is returned when the map or the pose
// is unavailable. When the consumer fails the scan is returned together
// with an ErrDelivery error.
func (s *Simulator) Cycle(ctx context.Context) (*scan.Result, error) {
	res, err := s.cycle(ctx)
	if err != nil {
		s.failed.Add(1)
		return res, err
	}
	s.completed.Add(1)
	return res, nil
}

func (s *Simulator) cycle(ctx context.Context) (*scan.Result, error) {
	synth := s.synth.Load()
	cfg := synth.Config()

	g := s.grid.Load()
	if g == nil {
		if err := s.RefreshMap(ctx); err != nil {
			return nil, err
		}
		g = s.grid.Load()
	}

	poseCtx, cancel := context.WithTimeout(ctx, s.poseTimeout)
	pr := s.poses.Pose(poseCtx, cfg.FrameID, s.clock.Now())
	cancel()
	if !pr.OK() {
		return nil, fmt.Errorf("%w: frame %s: %w", ErrPoseUnavailable, cfg.FrameID, pr.Err)
	}

	res := synth.Scan(pr.Pose, g)
	monitoring.Diagf("scan frame=%s pose=(%.3f, %.3f, %.3f) beams=%d",
		res.FrameID, pr.Pose.X, pr.Pose.Y, pr.Pose.Theta, len(res.Ranges))
	if monitoring.TraceEnabled() {
		for i, r := range res.Ranges {
			monitoring.Tracef("beam %d angle=%.4f range=%.3f", i, res.BeamAngle(pr.Pose.Theta, i), r)
		}
	}

	if err := s.consumer.Consume(ctx, res); err != nil {
		return res, fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	return res, nil
}

// Run executes a cycle immediately and then one per configured period until
// ctx ends or, when cycles > 0, that many cycles have run. Failed cycles are
// logged and do not stop the loop. A configuration change takes effect on
// the next tick, including its new rate.
func (s *Simulator) Run(ctx context.Context, cycles int) error {
	period := s.Config().Period()
	ticker := s.clock.NewTicker(period)
	defer ticker.Stop()

	for n := 0; ; {
		if _, err := s.Cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			monitoring.Opsf("scan cycle failed: %v", err)
		}
		n++
		if cycles > 0 && n >= cycles {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
		}

		if p := s.Config().Period(); p != period {
			period = p
			ticker.Reset(period)
		}
	}
}

// Stats returns the number of completed and failed cycles so far.
func (s *Simulator) Stats() Stats {
	return Stats{Completed: s.completed.Load(), Failed: s.failed.Load()}
}
