package grid

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// ErrInvalidGrid is wrapped by every construction failure.
var ErrInvalidGrid = errors.New("grid: invalid occupancy grid")

// Occupancy value bounds as carried by map_server style grids.
const (
	Unknown     = -1
	Free        = 0
	MaxOccupied = 100
)

// OccupancyGrid is a read-only snapshot of a 2D occupancy map.
// Cells are stored row-major by y then x; cell (0,0) has its lower-left
// corner at Origin.
type OccupancyGrid struct {
	Width      int
	Height     int
	Resolution float64 // meters per cell
	Origin     r2.Vec  // world position of cell (0,0)'s lower-left corner

	cells []int8
}

// New validates the dimensions and copies cells into a new grid.
func New(width, height int, resolution float64, origin r2.Vec, cells []int8) (*OccupancyGrid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive, got %dx%d", ErrInvalidGrid, width, height)
	}
	if !(resolution > 0) || math.IsInf(resolution, 0) {
		return nil, fmt.Errorf("%w: resolution must be positive, got %v", ErrInvalidGrid, resolution)
	}
	if math.IsNaN(origin.X) || math.IsNaN(origin.Y) || math.IsInf(origin.X, 0) || math.IsInf(origin.Y, 0) {
		return nil, fmt.Errorf("%w: origin must be finite, got (%v, %v)", ErrInvalidGrid, origin.X, origin.Y)
	}
	if len(cells) != width*height {
		return nil, fmt.Errorf("%w: expected %d cells for %dx%d, got %d", ErrInvalidGrid, width*height, width, height, len(cells))
	}
	for i, v := range cells {
		if v < Unknown || v > MaxOccupied {
			return nil, fmt.Errorf("%w: cell %d has occupancy %d outside [-1, 100]", ErrInvalidGrid, i, v)
		}
	}

	owned := make([]int8, len(cells))
	copy(owned, cells)
	return &OccupancyGrid{
		Width:      width,
		Height:     height,
		Resolution: resolution,
		Origin:     origin,
		cells:      owned,
	}, nil
}

// NewFilled returns a width x height grid with every cell set to value.
func NewFilled(width, height int, resolution float64, origin r2.Vec, value int8) (*OccupancyGrid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive, got %dx%d", ErrInvalidGrid, width, height)
	}
	cells := make([]int8, width*height)
	for i := range cells {
		cells[i] = value
	}
	return New(width, height, resolution, origin, cells)
}

// Contains reports whether (cx, cy) indexes a cell of the grid.
func (g *OccupancyGrid) Contains(cx, cy int) bool {
	return cx >= 0 && cy >= 0 && cx < g.Width && cy < g.Height
}

// OccupancyAt returns the occupancy of cell (cx, cy).
// The cell must be inside the grid; check with Contains first.
func (g *OccupancyGrid) OccupancyAt(cx, cy int) int {
	return int(g.cells[cy*g.Width+cx])
}

// Cells returns a copy of the row-major cell values.
func (g *OccupancyGrid) Cells() []int8 {
	out := make([]int8, len(g.cells))
	copy(out, g.cells)
	return out
}

// With returns a copy of g with cell (cx, cy) set to value. g is unchanged.
func (g *OccupancyGrid) With(cx, cy int, value int8) (*OccupancyGrid, error) {
	if !g.Contains(cx, cy) {
		return nil, fmt.Errorf("%w: cell (%d, %d) outside %dx%d", ErrInvalidGrid, cx, cy, g.Width, g.Height)
	}
	cells := g.Cells()
	cells[cy*g.Width+cx] = value
	return New(g.Width, g.Height, g.Resolution, g.Origin, cells)
}

// Extent returns the world-space size of the grid in meters.
func (g *OccupancyGrid) Extent() r2.Vec {
	return r2.Vec{
		X: float64(g.Width) * g.Resolution,
		Y: float64(g.Height) * g.Resolution,
	}
}

// Counts tallies free, occupied (>= threshold) and unknown cells.
func (g *OccupancyGrid) Counts(threshold int) (free, occupied, unknown int) {
	for _, v := range g.cells {
		switch {
		case v < 0:
			unknown++
		case int(v) >= threshold:
			occupied++
		default:
			free++
		}
	}
	return free, occupied, unknown
}
