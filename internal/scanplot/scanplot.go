// Package scanplot renders synthesized scans for offline inspection: a PNG
// through gonum/plot and an interactive HTML scatter through go-echarts.
package scanplot

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot/plotter"

	"github.com/banshee-data/lasersim/internal/lasersim/scan"
)

// Summary describes the returns of one scan.
type Summary struct {
	Beams    int
	Hits     int
	Misses   int
	Nearest  float64 // 0 when there are no hits
	Farthest float64
	MeanHit  float64
}

// missTolerance absorbs rounding in RangeMax - RangeMaxEpsilon.
const missTolerance = 1e-9

// isMiss reports whether r is the max-range value reported for a beam that
// hit nothing.
func isMiss(res *scan.Result, r float64) bool {
	return r >= res.RangeMax-scan.RangeMaxEpsilon-missTolerance
}

// Summarize counts hits and misses and measures the hit ranges.
func Summarize(res *scan.Result) Summary {
	s := Summary{Beams: len(res.Ranges)}
	hits := make([]float64, 0, len(res.Ranges))
	for _, r := range res.Ranges {
		if isMiss(res, r) {
			s.Misses++
			continue
		}
		hits = append(hits, r)
	}
	s.Hits = len(hits)
	if s.Hits > 0 {
		s.Nearest = floats.Min(hits)
		s.Farthest = floats.Max(hits)
		s.MeanHit = floats.Sum(hits) / float64(s.Hits)
	}
	return s
}

// Endpoints returns the world position of every beam end, split into hits
// and max-range misses.
func Endpoints(res *scan.Result, pose scan.Pose) (hits, misses plotter.XYs) {
	for i, r := range res.Ranges {
		a := res.BeamAngle(pose.Theta, i)
		pt := plotter.XY{X: pose.X + r*math.Cos(a), Y: pose.Y + r*math.Sin(a)}
		if isMiss(res, r) {
			misses = append(misses, pt)
		} else {
			hits = append(hits, pt)
		}
	}
	return hits, misses
}
