package scan

import (
	"time"

	"github.com/banshee-data/lasersim/internal/lasersim/grid"
	"github.com/banshee-data/lasersim/internal/lasersim/raycast"
	"github.com/banshee-data/lasersim/internal/timeutil"
)

// Synthesize casts BeamCount+1 beams from pose against g and returns the
// scan stamped with now. cfg must have passed Validate.
func Synthesize(pose Pose, cfg Config, g *grid.OccupancyGrid, now time.Time) *Result {
	res := &Result{
		FrameID:        cfg.FrameID,
		Timestamp:      now,
		AngleMin:       -cfg.FOV / 2,
		AngleMax:       cfg.FOV / 2,
		AngleIncrement: cfg.FOV / float64(cfg.BeamCount),
		RangeMin:       cfg.MinRange,
		RangeMax:       cfg.MaxRange + RangeMaxEpsilon,
	}

	caster := raycast.New(g, cfg.MinRange, cfg.MaxRange)
	res.Ranges = make([]float64, 0, cfg.BeamCount+1)
	for i := 0; i <= cfg.BeamCount; i++ {
		theta := res.BeamAngle(pose.Theta, i)
		res.Ranges = append(res.Ranges, caster.Cast(pose.X, pose.Y, theta))
	}

	res.ScanTime = 1.0 / cfg.UpdateFrequency
	res.TimeIncrement = res.ScanTime / float64(cfg.BeamCount)
	return res
}

// Synthesizer produces scans for one sensor configuration, stamping each
// with its clock.
type Synthesizer struct {
	cfg   Config
	clock timeutil.Clock
}

// NewSynthesizer validates cfg. A nil clock uses the wall clock.
func NewSynthesizer(cfg Config, clock timeutil.Clock) (*Synthesizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Synthesizer{cfg: cfg, clock: clock}, nil
}

// Config returns the sensor configuration.
func (s *Synthesizer) Config() Config {
	return s.cfg
}

// Scan synthesizes one scan from pose against g.
func (s *Synthesizer) Scan(pose Pose, g *grid.OccupancyGrid) *Result {
	return Synthesize(pose, s.cfg, g, s.clock.Now())
}
