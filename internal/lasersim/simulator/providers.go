package simulator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/lasersim/internal/lasersim/grid"
	"github.com/banshee-data/lasersim/internal/lasersim/scan"
)

// MapProvider supplies occupancy grid snapshots.
type MapProvider interface {
	Map(ctx context.Context) (*grid.OccupancyGrid, error)
}

// PoseProvider looks up the pose of frameID in the map frame at time at.
type PoseProvider interface {
	Pose(ctx context.Context, frameID string, at time.Time) PoseResult
}

// Consumer receives every successfully synthesized scan.
type Consumer interface {
	Consume(ctx context.Context, res *scan.Result) error
}

// PoseResult is the outcome of one pose lookup: a pose when Err is nil,
// otherwise the reason the lookup failed.
type PoseResult struct {
	Pose scan.Pose
	Err  error
}

// OK reports whether the lookup succeeded.
func (r PoseResult) OK() bool { return r.Err == nil }

// PoseOK wraps a successful lookup.
func PoseOK(p scan.Pose) PoseResult { return PoseResult{Pose: p} }

// PoseFailed wraps a failed lookup.
func PoseFailed(err error) PoseResult {
	if err == nil {
		err = errors.New("pose lookup failed")
	}
	return PoseResult{Err: err}
}

// StaticPose always reports the same pose.
type StaticPose scan.Pose

// Pose implements PoseProvider.
func (p StaticPose) Pose(context.Context, string, time.Time) PoseResult {
	return PoseOK(scan.Pose(p))
}

// PoseFunc adapts a function to PoseProvider.
type PoseFunc func(ctx context.Context, frameID string, at time.Time) PoseResult

// Pose implements PoseProvider.
func (f PoseFunc) Pose(ctx context.Context, frameID string, at time.Time) PoseResult {
	return f(ctx, frameID, at)
}

// StaticMap always returns the same grid.
type StaticMap struct {
	Grid *grid.OccupancyGrid
}

// Map implements MapProvider.
func (m StaticMap) Map(context.Context) (*grid.OccupancyGrid, error) {
	if m.Grid == nil {
		return nil, fmt.Errorf("static map: %w", ErrNoMap)
	}
	return m.Grid, nil
}

// MapFunc adapts a function to MapProvider.
type MapFunc func(ctx context.Context) (*grid.OccupancyGrid, error)

// Map implements MapProvider.
func (f MapFunc) Map(ctx context.Context) (*grid.OccupancyGrid, error) {
	return f(ctx)
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc func(ctx context.Context, res *scan.Result) error

// Consume implements Consumer.
func (f ConsumerFunc) Consume(ctx context.Context, res *scan.Result) error {
	return f(ctx, res)
}

// Discard drops every scan.
var Discard Consumer = ConsumerFunc(func(context.Context, *scan.Result) error { return nil })

// Fanout delivers each scan to every consumer in order, stopping at the
// first error.
type Fanout []Consumer

// Consume implements Consumer.
func (f Fanout) Consume(ctx context.Context, res *scan.Result) error {
	for _, c := range f {
		if err := c.Consume(ctx, res); err != nil {
			return err
		}
	}
	return nil
}
