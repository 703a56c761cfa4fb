package monitor

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"strconv"

	"github.com/fogleman/gg"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// renderScalarsHTML renders one line chart per scalar tag to a single
// HTML page
func renderScalarsHTML(path string, tags []string,
	scalars map[string][]Point) error {
	page := components.NewPage()
	page.PageTitle = "matchradius"

	for _, tag := range tags {
		points := scalars[tag]

		steps := make([]string, len(points))
		items := make([]opts.LineData, len(points))
		for i, p := range points {
			steps[i] = strconv.Itoa(p.Step)

			// NaN and Inf are not valid JSON numbers
			if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
				items[i] = opts.LineData{Value: "-"}
			} else {
				items[i] = opts.LineData{Value: p.Value}
			}
		}

		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{Title: tag}),
			charts.WithInitializationOpts(opts.Initialization{
				Theme: "shine",
			}),
			charts.WithXAxisOpts(opts.XAxis{Name: "step"}),
		)
		line.SetXAxis(steps).AddSeries(tag, items)
		page.AddCharts(line)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("renderScalarsHTML: %w", err)
	}
	if err := page.Render(f); err != nil {
		f.Close()
		return fmt.Errorf("renderScalarsHTML: %w", err)
	}
	return f.Close()
}

// plotScalar saves a line plot of a scalar against the update step
func plotScalar(path, tag string, points []Point) error {
	p := plot.New()
	p.Title.Text = tag
	p.X.Label.Text = "Step"
	p.Y.Label.Text = tag

	pts := make(plotter.XYs, 0, len(points))
	for _, point := range points {
		if math.IsNaN(point.Value) || math.IsInf(point.Value, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(point.Step), Y: point.Value})
	}
	if len(pts) == 0 {
		return nil
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("plotScalar: could not create line plotter: %w",
			err)
	}
	p.Add(line)

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("plotScalar: could not save plot: %w", err)
	}
	return nil
}

// Size in pixels of one cell of a policy map
const policyCellSize = 12

// RenderPolicy saves a heatmap of a matching radius policy as a PNG.
// radii[t][g] is the radius chosen at time slice t in grid cell g;
// time slices are drawn as rows. Smaller radii are drawn in blue and
// larger radii in red.
func RenderPolicy(path string, radii [][]float64) error {
	if len(radii) == 0 || len(radii[0]) == 0 {
		return fmt.Errorf("renderPolicy: empty policy")
	}
	rows, cols := len(radii), len(radii[0])

	min, max := math.Inf(1), math.Inf(-1)
	for _, row := range radii {
		if len(row) != cols {
			return fmt.Errorf("renderPolicy: ragged policy\n\twant(%v)"+
				"\n\thave(%v)", cols, len(row))
		}
		for _, r := range row {
			min = math.Min(min, r)
			max = math.Max(max, r)
		}
	}

	dc := gg.NewContext(cols*policyCellSize, rows*policyCellSize)
	dc.SetColor(color.White)
	dc.Clear()

	for t, row := range radii {
		for g, r := range row {
			frac := 0.5
			if max > min {
				frac = (r - min) / (max - min)
			}
			dc.SetRGB(frac, 0.2, 1-frac)
			dc.DrawRectangle(float64(g*policyCellSize),
				float64(t*policyCellSize), policyCellSize, policyCellSize)
			dc.Fill()
		}
	}

	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("renderPolicy: %w", err)
	}
	return nil
}
