// Package lasersim is the root of the simulated 2D laser rangefinder.
//
// Layering, leaves first:
//
//	grid      occupancy grid snapshot and world/cell transforms
//	raycast   single-beam grid traversal producing one range
//	scan      beam sweep across the field of view into one Result
//	simulator scan cycles: map and pose collaborators, result delivery
//
// Dependency rule: a layer may import the layers above it in this list,
// never below. grid, raycast and scan hold no mutable state and do not log.
package lasersim
