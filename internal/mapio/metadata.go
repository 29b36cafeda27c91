package mapio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default thresholds applied when the YAML omits them.
const (
	DefaultOccupiedThresh = 0.65
	DefaultFreeThresh     = 0.196
)

// ErrInvalidMetadata is wrapped by every metadata validation failure.
var ErrInvalidMetadata = errors.New("mapio: invalid map metadata")

// Metadata is the content of a map YAML file.
type Metadata struct {
	Image          string    `yaml:"image"`
	Resolution     float64   `yaml:"resolution"`
	Origin         []float64 `yaml:"origin"` // x, y, yaw
	Negate         int       `yaml:"negate"`
	OccupiedThresh *float64  `yaml:"occupied_thresh,omitempty"`
	FreeThresh     *float64  `yaml:"free_thresh,omitempty"`
	Mode           string    `yaml:"mode,omitempty"`
}

// ReadMetadata parses and validates the YAML file at path.
func ReadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read map metadata: %w", err)
	}

	var md Metadata
	if err := yaml.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("failed to parse map metadata %s: %w", path, err)
	}
	if err := md.Validate(); err != nil {
		return nil, err
	}
	return &md, nil
}

// Validate checks the fields a loader depends on.
func (m *Metadata) Validate() error {
	if m.Image == "" {
		return fmt.Errorf("%w: image is required", ErrInvalidMetadata)
	}
	if !(m.Resolution > 0) {
		return fmt.Errorf("%w: resolution must be positive, got %v", ErrInvalidMetadata, m.Resolution)
	}
	if len(m.Origin) != 3 {
		return fmt.Errorf("%w: origin must be [x, y, yaw], got %v", ErrInvalidMetadata, m.Origin)
	}
	if m.Origin[2] != 0 {
		return fmt.Errorf("%w: rotated maps are not supported (yaw %v)", ErrInvalidMetadata, m.Origin[2])
	}
	if m.Negate != 0 && m.Negate != 1 {
		return fmt.Errorf("%w: negate must be 0 or 1, got %d", ErrInvalidMetadata, m.Negate)
	}
	if m.Mode != "" && m.Mode != "trinary" {
		return fmt.Errorf("%w: only trinary mode is supported, got %q", ErrInvalidMetadata, m.Mode)
	}
	occ, free := m.Thresholds()
	if free < 0 || occ > 1 || free >= occ {
		return fmt.Errorf("%w: need 0 <= free_thresh (%v) < occupied_thresh (%v) <= 1", ErrInvalidMetadata, free, occ)
	}
	return nil
}

// Thresholds returns the effective occupied and free thresholds.
func (m *Metadata) Thresholds() (occupied, free float64) {
	occupied, free = DefaultOccupiedThresh, DefaultFreeThresh
	if m.OccupiedThresh != nil {
		occupied = *m.OccupiedThresh
	}
	if m.FreeThresh != nil {
		free = *m.FreeThresh
	}
	return occupied, free
}

// ImagePath resolves Image relative to the directory of the YAML file.
func (m *Metadata) ImagePath(yamlPath string) string {
	if filepath.IsAbs(m.Image) {
		return m.Image
	}
	return filepath.Join(filepath.Dir(yamlPath), m.Image)
}
