package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/lasersim/internal/lasersim/scan"
)

// DefaultConfigPath is the path to the canonical simulated laser defaults.
const DefaultConfigPath = "config/laser.defaults.json"

// LaserConfig is the on-disk configuration of one simulated laser.
// Omitted fields fall back to the defaults returned by the Get* methods,
// so partial files are safe.
type LaserConfig struct {
	// Sensor params
	FrameID         *string  `json:"frame_id,omitempty"`
	FOV             *float64 `json:"fov,omitempty"` // radians
	BeamCount       *int     `json:"beam_count,omitempty"`
	MaxRange        *float64 `json:"max_range,omitempty"`
	MinRange        *float64 `json:"min_range,omitempty"`
	UpdateFrequency *float64 `json:"update_frequency,omitempty"`

	// Cycle params
	PoseTimeout *string `json:"pose_timeout,omitempty"` // duration string like "500ms"

	// Collaborators
	MapPath *string `json:"map_path,omitempty"` // map_server style YAML
	DBPath  *string `json:"db_path,omitempty"`
	PlotDir *string `json:"plot_dir,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyLaserConfig returns a LaserConfig with every field unset.
func EmptyLaserConfig() *LaserConfig {
	return &LaserConfig{}
}

// DefaultLaserConfig returns a LaserConfig with every sensor field set to
// its default.
func DefaultLaserConfig() *LaserConfig {
	c := EmptyLaserConfig()
	return &LaserConfig{
		FrameID:         ptrString(c.GetFrameID()),
		FOV:             ptrFloat64(c.GetFOV()),
		BeamCount:       ptrInt(c.GetBeamCount()),
		MaxRange:        ptrFloat64(c.GetMaxRange()),
		MinRange:        ptrFloat64(c.GetMinRange()),
		UpdateFrequency: ptrFloat64(c.GetUpdateFrequency()),
		PoseTimeout:     ptrString(c.GetPoseTimeout().String()),
	}
}

// LoadLaserConfig loads a LaserConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadLaserConfig(path string) (*LaserConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyLaserConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *LaserConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/lasersim/simulator/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadLaserConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the fields that are set. Cross-field rules (max_range
// above min_range) are applied to the effective values.
func (c *LaserConfig) Validate() error {
	if c.BeamCount != nil && *c.BeamCount <= 0 {
		return fmt.Errorf("beam_count must be positive, got %d", *c.BeamCount)
	}
	if c.FOV != nil && !(*c.FOV > 0) {
		return fmt.Errorf("fov must be positive, got %f", *c.FOV)
	}
	if c.MinRange != nil && !(*c.MinRange > 0) {
		return fmt.Errorf("min_range must be positive, got %f", *c.MinRange)
	}
	if c.UpdateFrequency != nil && (!(*c.UpdateFrequency > 0) || math.IsInf(*c.UpdateFrequency, 0)) {
		return fmt.Errorf("update_frequency must be positive, got %f", *c.UpdateFrequency)
	}
	if c.GetMaxRange() <= c.GetMinRange() {
		return fmt.Errorf("max_range (%f) must be greater than min_range (%f)", c.GetMaxRange(), c.GetMinRange())
	}
	if c.PoseTimeout != nil && *c.PoseTimeout != "" {
		d, err := time.ParseDuration(*c.PoseTimeout)
		if err != nil {
			return fmt.Errorf("invalid pose_timeout '%s': %w", *c.PoseTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("pose_timeout must be positive, got %s", d)
		}
	}
	return nil
}

// SensorConfig returns the effective scan.Config, validated.
func (c *LaserConfig) SensorConfig() (scan.Config, error) {
	sc := scan.Config{
		FrameID:         c.GetFrameID(),
		FOV:             c.GetFOV(),
		BeamCount:       c.GetBeamCount(),
		MaxRange:        c.GetMaxRange(),
		MinRange:        c.GetMinRange(),
		UpdateFrequency: c.GetUpdateFrequency(),
	}
	if err := sc.Validate(); err != nil {
		return scan.Config{}, err
	}
	return sc, nil
}

// GetFrameID returns the frame_id value or the default.
func (c *LaserConfig) GetFrameID() string {
	if c.FrameID == nil || *c.FrameID == "" {
		return "base_laser"
	}
	return *c.FrameID
}

// GetFOV returns the fov value or the default (270 degrees).
func (c *LaserConfig) GetFOV() float64 {
	if c.FOV == nil {
		return 1.5 * math.Pi
	}
	return *c.FOV
}

// GetBeamCount returns the beam_count value or the default.
func (c *LaserConfig) GetBeamCount() int {
	if c.BeamCount == nil {
		return 1080
	}
	return *c.BeamCount
}

// GetMaxRange returns the max_range value or the default.
func (c *LaserConfig) GetMaxRange() float64 {
	if c.MaxRange == nil {
		return 30.0
	}
	return *c.MaxRange
}

// GetMinRange returns the min_range value or the default.
func (c *LaserConfig) GetMinRange() float64 {
	if c.MinRange == nil {
		return 0.05
	}
	return *c.MinRange
}

// GetUpdateFrequency returns the update_frequency value or the default.
func (c *LaserConfig) GetUpdateFrequency() float64 {
	if c.UpdateFrequency == nil {
		return 10.0
	}
	return *c.UpdateFrequency
}

// GetPoseTimeout parses and returns PoseTimeout as a time.Duration.
func (c *LaserConfig) GetPoseTimeout() time.Duration {
	if c.PoseTimeout == nil || *c.PoseTimeout == "" {
		return 500 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.PoseTimeout)
	if err != nil {
		return 500 * time.Millisecond // default on parse error
	}
	return d
}

// GetMapPath returns the map_path value, empty if unset.
func (c *LaserConfig) GetMapPath() string {
	if c.MapPath == nil {
		return ""
	}
	return *c.MapPath
}

// GetDBPath returns the db_path value or the default.
func (c *LaserConfig) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return "lasersim.db"
	}
	return *c.DBPath
}

// GetPlotDir returns the plot_dir value, empty (plotting disabled) if unset.
func (c *LaserConfig) GetPlotDir() string {
	if c.PlotDir == nil {
		return ""
	}
	return *c.PlotDir
}
