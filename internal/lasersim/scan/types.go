// Package scan sweeps beams across a sensor's field of view and assembles
// the ranges into one laser scan.
package scan

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// RangeMaxEpsilon pads Result.RangeMax so that beams reporting exactly
// MaxRange survive downstream range_min/range_max filtering.
const RangeMaxEpsilon = 0.001

// ErrInvalidConfig is wrapped by every Config validation failure.
var ErrInvalidConfig = errors.New("scan: invalid sensor config")

// Config describes the simulated sensor. It is replaced as a whole, never
// patched field by field.
type Config struct {
	FrameID string `json:"frame_id"`

	// Total angular span in radians.
	FOV       float64 `json:"fov"`
	BeamCount int     `json:"beam_count"`

	// Range limits in meters.
	MaxRange float64 `json:"max_range"`
	MinRange float64 `json:"min_range"`

	// Scans per second.
	UpdateFrequency float64 `json:"update_frequency"`
}

// Validate rejects configurations the synthesizer cannot honour.
// Nothing is clamped.
func (c Config) Validate() error {
	if c.BeamCount <= 0 {
		return fmt.Errorf("%w: beam_count must be positive, got %d", ErrInvalidConfig, c.BeamCount)
	}
	if !(c.FOV > 0) || math.IsInf(c.FOV, 0) {
		return fmt.Errorf("%w: fov must be positive and finite, got %v", ErrInvalidConfig, c.FOV)
	}
	if !(c.MinRange > 0) {
		return fmt.Errorf("%w: min_range must be positive, got %v", ErrInvalidConfig, c.MinRange)
	}
	if !(c.MaxRange > c.MinRange) || math.IsInf(c.MaxRange, 0) {
		return fmt.Errorf("%w: max_range (%v) must be finite and greater than min_range (%v)", ErrInvalidConfig, c.MaxRange, c.MinRange)
	}
	if !(c.UpdateFrequency > 0) || math.IsInf(c.UpdateFrequency, 0) {
		return fmt.Errorf("%w: update_frequency must be positive and finite, got %v", ErrInvalidConfig, c.UpdateFrequency)
	}
	return nil
}

// Period is the time between scans at UpdateFrequency.
func (c Config) Period() time.Duration {
	return time.Duration(float64(time.Second) / c.UpdateFrequency)
}

// Pose is the sensor position in the map frame. Theta is the heading in
// radians.
type Pose struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Theta float64 `json:"theta"`
}

// Result is one simulated laser scan, shaped like a planar LaserScan
// message. TimeIncrement and ScanTime are in seconds.
type Result struct {
	FrameID   string    `json:"frame_id"`
	Timestamp time.Time `json:"timestamp"`

	AngleMin       float64 `json:"angle_min"`
	AngleMax       float64 `json:"angle_max"`
	AngleIncrement float64 `json:"angle_increment"`
	TimeIncrement  float64 `json:"time_increment"`
	ScanTime       float64 `json:"scan_time"`
	RangeMin       float64 `json:"range_min"`
	RangeMax       float64 `json:"range_max"`

	// Ranges holds one value per beam in beam order. A sensor configured
	// with BeamCount beams emits BeamCount+1 ranges: both ends of the field
	// of view are sampled.
	Ranges []float64 `json:"ranges"`
}

// BeamAngle returns the heading used to cast beam i for a sensor at
// heading theta.
func (r *Result) BeamAngle(theta float64, i int) float64 {
	return theta - r.AngleMin + float64(i)*r.AngleIncrement
}
