package scanplot

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot/plotter"

	"github.com/banshee-data/lasersim/internal/lasersim/scan"
)

func scatterData(pts plotter.XYs) []opts.ScatterData {
	data := make([]opts.ScatterData, 0, len(pts))
	for _, pt := range pts {
		data = append(data, opts.ScatterData{Value: []interface{}{pt.X, pt.Y}})
	}
	return data
}

// RenderHTML writes an interactive scatter of res taken from pose to w.
func RenderHTML(w io.Writer, res *scan.Result, pose scan.Pose) error {
	sum := Summarize(res)
	hits, misses := Endpoints(res, pose)

	pad := res.RangeMax
	if math.IsInf(pad, 0) || math.IsNaN(pad) || pad <= 0 {
		pad = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Simulated Laser Scan", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Scan %s", res.FrameID),
			Subtitle: fmt.Sprintf("beams=%d hits=%d nearest=%.3fm farthest=%.3fm", sum.Beams, sum.Hits, sum.Nearest, sum.Farthest),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: pose.X - pad, Max: pose.X + pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: pose.Y - pad, Max: pose.Y + pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("hit", scatterData(hits), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	scatter.AddSeries("max range", scatterData(misses), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 2}))
	scatter.AddSeries("sensor", scatterData(plotter.XYs{{X: pose.X, Y: pose.Y}}), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("render scan chart: %w", err)
	}
	return nil
}
