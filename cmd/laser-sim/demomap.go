package main

import (
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/lasersim/internal/lasersim/grid"
	"github.com/banshee-data/lasersim/internal/mapio"
)

// demoRoom is an 8m x 6m room at 0.1m per cell with walls on every side,
// a square pillar and an unexplored corner. The origin puts the room
// center at (0, 0).
func demoRoom() (*grid.OccupancyGrid, error) {
	const w, h = 80, 60
	cells := make([]int8, w*h)
	for cy := 0; cy < h; cy++ {
		for cx := 0; cx < w; cx++ {
			v := int8(grid.Free)
			switch {
			case cx == 0 || cy == 0 || cx == w-1 || cy == h-1:
				v = grid.MaxOccupied
			case cx >= 55 && cx < 60 && cy >= 25 && cy < 30:
				v = grid.MaxOccupied
			case cx >= 65 && cy >= 45:
				v = grid.Unknown
			}
			cells[cy*w+cx] = v
		}
	}
	return grid.New(w, h, 0.1, r2.Vec{X: -4, Y: -3}, cells)
}

func saveDemoMap(yamlPath string) error {
	g, err := demoRoom()
	if err != nil {
		return err
	}
	image := strings.TrimSuffix(filepath.Base(yamlPath), filepath.Ext(yamlPath)) + ".pgm"
	return mapio.Save(yamlPath, image, g)
}
