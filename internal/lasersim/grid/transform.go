package grid

import "math"

// WorldToCell maps a world position to the index of the cell containing it.
// The result may lie outside the grid.
func (g *OccupancyGrid) WorldToCell(wx, wy float64) (cx, cy int) {
	cx = int(math.Floor((wx - g.Origin.X) / g.Resolution))
	cy = int(math.Floor((wy - g.Origin.Y) / g.Resolution))
	return cx, cy
}

// CellToWorld returns the world position of the lower-left corner of cell
// (cx, cy), not its center.
func (g *OccupancyGrid) CellToWorld(cx, cy int) (wx, wy float64) {
	wx = float64(cx)*g.Resolution + g.Origin.X
	wy = float64(cy)*g.Resolution + g.Origin.Y
	return wx, wy
}

// CellCenter returns the world position of the center of cell (cx, cy).
func (g *OccupancyGrid) CellCenter(cx, cy int) (wx, wy float64) {
	wx, wy = g.CellToWorld(cx, cy)
	return wx + 0.5*g.Resolution, wy + 0.5*g.Resolution
}
