// Package grid holds immutable 2D occupancy grid snapshots and the mapping
// between world coordinates and cell indices.
//
// A grid is built once with New and never mutated afterwards. Callers that
// receive a new map replace the whole *OccupancyGrid rather than editing
// cells of one that may be in use.
package grid
