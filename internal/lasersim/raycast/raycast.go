// Package raycast walks a single beam through an occupancy grid and reports
// the range at which it meets an obstacle.
//
// The traversal is the incremental voxel walk of Amanatides & Woo ("A Fast
// Voxel Traversal Algorithm for Ray Tracing", 1987) specialised to 2D. Two
// quirks of the simulated sensor are kept on purpose and covered by tests:
//
//   - the per-axis step is the negation of the direction sign, so the walk
//     runs opposite to the heading;
//   - ranges are measured in cell-index space (distance between the start
//     cell and the current cell times the resolution), not along the ray.
package raycast

import (
	"math"

	"github.com/banshee-data/lasersim/internal/lasersim/grid"
	"gonum.org/v1/gonum/spatial/r2"
)

// OccupiedThreshold is the lowest occupancy value treated as an obstacle.
const OccupiedThreshold = 60

// Caster casts beams against one grid snapshot with fixed range limits.
// A Caster holds no mutable state and may be shared between goroutines.
type Caster struct {
	Grid     *grid.OccupancyGrid
	MinRange float64
	MaxRange float64
}

// New returns a Caster for g.
func New(g *grid.OccupancyGrid, minRange, maxRange float64) *Caster {
	return &Caster{Grid: g, MinRange: minRange, MaxRange: maxRange}
}

// Cast returns the simulated range for a beam leaving (x, y) with heading
// theta in radians. MaxRange is the "nothing detected" outcome: the walk
// left the grid, exceeded MaxRange, or could not start.
func (c *Caster) Cast(x, y, theta float64) float64 {
	g := c.Grid
	if g == nil || !finite(x) || !finite(y) || !finite(theta) {
		return c.MaxRange
	}

	origin := r2.Vec{X: x, Y: y}
	dir := r2.Vec{X: math.Cos(theta), Y: math.Sin(theta)}

	startX, startY := startCell(g, origin, dir)

	o := [2]float64{origin.X, origin.Y}
	d := [2]float64{dir.X, dir.Y}
	start := [2]int{startX, startY}
	current := start

	var step [2]int
	var tMax, tDelta [2]float64

	var border [2]float64
	border[0], border[1] = g.CellToWorld(current[0], current[1])
	border[0] -= 0.5 * g.Resolution
	border[1] -= 0.5 * g.Resolution

	for i := 0; i < 2; i++ {
		switch {
		case d[i] > 0:
			step[i] = -1
		case d[i] < 0:
			step[i] = 1
		}

		if step[i] == 0 {
			tMax[i] = math.MaxFloat64
			tDelta[i] = math.MaxFloat64
			continue
		}
		if step[i] == 1 {
			border[i] += g.Resolution
		}
		tMax[i] = (border[i] - o[i]) / d[i]
		tDelta[i] = g.Resolution / math.Abs(d[i])
	}

	for {
		axis := 1
		if tMax[0] < tMax[1] {
			axis = 0
		}
		current[axis] += step[axis]
		tMax[axis] += tDelta[axis]

		if !g.Contains(current[0], current[1]) {
			return c.MaxRange
		}

		r := indexDistance(current, start) * g.Resolution
		if r > c.MaxRange {
			return c.MaxRange
		}
		if g.OccupancyAt(current[0], current[1]) >= OccupiedThreshold {
			if r < c.MinRange {
				continue
			}
			return r
		}
	}
}

// startCell returns the cell the walk starts from. When origin lies outside
// the grid, the origin is pushed along dir by its per-axis distance to the
// grid origin and the cell is taken from that point. This is an estimate,
// not a ray/box intersection, and may itself lie outside the grid.
func startCell(g *grid.OccupancyGrid, origin, dir r2.Vec) (cx, cy int) {
	cx, cy = g.WorldToCell(origin.X, origin.Y)
	if g.Contains(cx, cy) {
		return cx, cy
	}
	offset := r2.Vec{
		X: dir.X * math.Abs(g.Origin.X-origin.X),
		Y: dir.Y * math.Abs(g.Origin.Y-origin.Y),
	}
	entry := r2.Add(origin, offset)
	return g.WorldToCell(entry.X, entry.Y)
}

// Cast is a convenience for one-off beams against g.
func Cast(g *grid.OccupancyGrid, x, y, theta, minRange, maxRange float64) float64 {
	return New(g, minRange, maxRange).Cast(x, y, theta)
}

func indexDistance(a, b [2]int) float64 {
	return math.Hypot(float64(a[0]-b[0]), float64(a[1]-b[1]))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
