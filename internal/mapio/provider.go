package mapio

import (
	"context"
	"sync"

	"github.com/banshee-data/lasersim/internal/lasersim/grid"
	"github.com/banshee-data/lasersim/internal/monitoring"
)

// FileProvider serves the map stored at Path. The file is read on the first
// call and again after Reload.
type FileProvider struct {
	Path string

	mu     sync.Mutex
	cached *grid.OccupancyGrid
}

// NewFileProvider returns a provider for the map YAML at path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{Path: path}
}

// Map returns the cached grid or loads it from disk.
func (p *FileProvider) Map(ctx context.Context) (*grid.OccupancyGrid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached != nil {
		return p.cached, nil
	}
	g, err := Load(p.Path)
	if err != nil {
		return nil, err
	}
	monitoring.Diagf("loaded map %s: %dx%d at %.3f m/cell", p.Path, g.Width, g.Height, g.Resolution)
	p.cached = g
	return g, nil
}

// Reload drops the cached grid so the next Map call reads the file again.
func (p *FileProvider) Reload() {
	p.mu.Lock()
	p.cached = nil
	p.mu.Unlock()
}
