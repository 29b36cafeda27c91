package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/lasersim/internal/lasersim/scan"
)

func TestDefaultLaserConfig(t *testing.T) {
	cfg := DefaultLaserConfig()

	if cfg.FrameID == nil || *cfg.FrameID != "base_laser" {
		t.Errorf("Expected FrameID base_laser, got %v", cfg.FrameID)
	}
	if cfg.BeamCount == nil || *cfg.BeamCount != 1080 {
		t.Errorf("Expected BeamCount 1080, got %v", cfg.BeamCount)
	}
	if cfg.PoseTimeout == nil || *cfg.PoseTimeout != "500ms" {
		t.Errorf("Expected PoseTimeout '500ms', got %v", cfg.PoseTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()

	sc, err := cfg.SensorConfig()
	if err != nil {
		t.Fatalf("SensorConfig() error = %v", err)
	}
	if math.Abs(sc.FOV-1.5*math.Pi) > 1e-9 {
		t.Errorf("FOV = %v, want 270 degrees", sc.FOV)
	}
	if sc.UpdateFrequency != 10 {
		t.Errorf("UpdateFrequency = %v, want 10", sc.UpdateFrequency)
	}
}

func TestLoadLaserConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "laser.json")

	testJSON := `{
  "frame_id": "front_laser",
  "beam_count": 360,
  "max_range": 12.5,
  "pose_timeout": "250ms",
  "map_path": "maps/office.yaml"
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadLaserConfig(configPath)
	if err != nil {
		t.Fatalf("LoadLaserConfig() error = %v", err)
	}

	if got := cfg.GetFrameID(); got != "front_laser" {
		t.Errorf("GetFrameID() = %q", got)
	}
	if got := cfg.GetBeamCount(); got != 360 {
		t.Errorf("GetBeamCount() = %d", got)
	}
	if got := cfg.GetPoseTimeout(); got != 250*time.Millisecond {
		t.Errorf("GetPoseTimeout() = %v", got)
	}
	if got := cfg.GetMapPath(); got != "maps/office.yaml" {
		t.Errorf("GetMapPath() = %q", got)
	}
	// Omitted fields keep their defaults.
	if got := cfg.GetMinRange(); got != 0.05 {
		t.Errorf("GetMinRange() = %v, want default 0.05", got)
	}
	if got := cfg.GetDBPath(); got != "lasersim.db" {
		t.Errorf("GetDBPath() = %q, want default", got)
	}
	if got := cfg.GetPlotDir(); got != "" {
		t.Errorf("GetPlotDir() = %q, want empty", got)
	}
}

func TestLoadLaserConfigErrors(t *testing.T) {
	tmpDir := t.TempDir()

	write := func(name, body string) string {
		p := filepath.Join(tmpDir, name)
		if err := os.WriteFile(p, []byte(body), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
		return p
	}

	tests := []struct {
		name    string
		path    string
		wantMsg string
	}{
		{"wrong extension", write("laser.yaml", "{}"), ".json extension"},
		{"missing file", filepath.Join(tmpDir, "missing.json"), "failed to stat"},
		{"bad json", write("bad.json", `{"beam_count": "many"`), "failed to parse"},
		{"invalid values", write("invalid.json", `{"max_range": 0.01}`), "invalid configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadLaserConfig(tt.path)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *LaserConfig
		wantErr bool
	}{
		{"empty config is valid", &LaserConfig{}, false},
		{"defaults", DefaultLaserConfig(), false},
		{"zero beams", &LaserConfig{BeamCount: ptrInt(0)}, true},
		{"zero fov", &LaserConfig{FOV: ptrFloat64(0)}, true},
		{"negative min range", &LaserConfig{MinRange: ptrFloat64(-1)}, true},
		{"max below default min", &LaserConfig{MaxRange: ptrFloat64(0.01)}, true},
		{"max equals min", &LaserConfig{MaxRange: ptrFloat64(2), MinRange: ptrFloat64(2)}, true},
		{"zero frequency", &LaserConfig{UpdateFrequency: ptrFloat64(0)}, true},
		{"bad pose timeout", &LaserConfig{PoseTimeout: ptrString("soon")}, true},
		{"negative pose timeout", &LaserConfig{PoseTimeout: ptrString("-1s")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSensorConfig(t *testing.T) {
	cfg := &LaserConfig{
		FrameID:         ptrString("laser"),
		FOV:             ptrFloat64(math.Pi),
		BeamCount:       ptrInt(180),
		MaxRange:        ptrFloat64(8),
		MinRange:        ptrFloat64(0.1),
		UpdateFrequency: ptrFloat64(15),
	}

	sc, err := cfg.SensorConfig()
	if err != nil {
		t.Fatalf("SensorConfig() error = %v", err)
	}
	want := scan.Config{FrameID: "laser", FOV: math.Pi, BeamCount: 180, MaxRange: 8, MinRange: 0.1, UpdateFrequency: 15}
	if sc != want {
		t.Errorf("SensorConfig() = %+v, want %+v", sc, want)
	}

	// Validate is bypassed when fields are set directly; SensorConfig still
	// refuses to build an unusable sensor.
	cfg.BeamCount = ptrInt(-1)
	if _, err := cfg.SensorConfig(); !errors.Is(err, scan.ErrInvalidConfig) {
		t.Errorf("SensorConfig() error = %v, want ErrInvalidConfig", err)
	}
}

func TestGetPoseTimeoutFallback(t *testing.T) {
	cfg := &LaserConfig{PoseTimeout: ptrString("garbage")}
	if got := cfg.GetPoseTimeout(); got != 500*time.Millisecond {
		t.Errorf("GetPoseTimeout() = %v, want default on parse error", got)
	}
}
