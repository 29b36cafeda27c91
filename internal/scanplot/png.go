package scanplot

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/lasersim/internal/lasersim/scan"
)

var (
	hitColor    = color.RGBA{R: 220, G: 40, B: 40, A: 255}
	missColor   = color.RGBA{R: 160, G: 160, B: 160, A: 255}
	sensorColor = color.RGBA{R: 30, G: 90, B: 200, A: 255}
)

// SavePNG writes a top-down plot of res taken from pose to path.
func SavePNG(res *scan.Result, pose scan.Pose, path string) error {
	sum := Summarize(res)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s @ %s - %d hits / %d beams",
		res.FrameID, res.Timestamp.Format("15:04:05.000"), sum.Hits, sum.Beams)
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"
	p.Add(plotter.NewGrid())

	hits, misses := Endpoints(res, pose)
	if len(misses) > 0 {
		s, err := plotter.NewScatter(misses)
		if err != nil {
			return err
		}
		s.GlyphStyle.Color = missColor
		s.GlyphStyle.Radius = vg.Points(1)
		p.Add(s)
		p.Legend.Add("max range", s)
	}
	if len(hits) > 0 {
		s, err := plotter.NewScatter(hits)
		if err != nil {
			return err
		}
		s.GlyphStyle.Color = hitColor
		s.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(s)
		p.Legend.Add("hit", s)
	}

	sensor, err := plotter.NewScatter(plotter.XYs{{X: pose.X, Y: pose.Y}})
	if err != nil {
		return err
	}
	sensor.GlyphStyle.Color = sensorColor
	sensor.GlyphStyle.Radius = vg.Points(4)
	sensor.GlyphStyle.Shape = draw.TriangleGlyph{}
	p.Add(sensor)
	p.Legend.Add("sensor", sensor)

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	// Equal axis spans keep the room geometry undistorted.
	span := math.Max(p.X.Max-p.X.Min, p.Y.Max-p.Y.Min) / 2
	cx, cy := (p.X.Max+p.X.Min)/2, (p.Y.Max+p.Y.Min)/2
	p.X.Min, p.X.Max = cx-span, cx+span
	p.Y.Min, p.Y.Max = cy-span, cy+span

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create plot dir: %w", err)
		}
	}
	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("save scan plot: %w", err)
	}
	return nil
}
