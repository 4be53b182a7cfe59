package report

import (
	"fmt"
	"image/color"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/lapdelta/internal/delta"
	"github.com/banshee-data/lapdelta/internal/telemetry"
)

// ChartData is what the chart renderers draw.
type ChartData struct {
	Reference string
	Target    string
	Points    []telemetry.GridPoint
}

// ChartFromResult extracts chart input from a computation.
func ChartFromResult(res *delta.Result) ChartData {
	return ChartData{Reference: res.Reference.Label, Target: res.Target.Label, Points: res.Summary}
}

func (c ChartData) title() string {
	return fmt.Sprintf("%s vs %s", c.Reference, c.Target)
}

// RenderHTML writes an interactive go-echarts page with the delta on the
// left axis and both lap speeds on the right axis.
func RenderHTML(w io.Writer, c ChartData) error {
	if len(c.Points) == 0 {
		return fmt.Errorf("no points to chart")
	}

	xs := make([]string, len(c.Points))
	deltas := make([]opts.LineData, len(c.Points))
	refSpeed := make([]opts.LineData, len(c.Points))
	tgtSpeed := make([]opts.LineData, len(c.Points))
	final := c.Points[len(c.Points)-1].Delta
	for i, p := range c.Points {
		xs[i] = fmt.Sprintf("%.0f", p.Distance)
		deltas[i] = opts.LineData{Value: p.Delta}
		refSpeed[i] = opts.LineData{Value: p.ReferenceSpeed}
		tgtSpeed[i] = opts.LineData{Value: p.TargetSpeed}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Lap Delta", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: c.title(), Subtitle: fmt.Sprintf("points=%d final delta=%+.3fs", len(c.Points), final)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Distance (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Delta (s)"}),
	)
	line.ExtendYAxis(opts.YAxis{Name: "Speed (m/s)", Position: "right"})

	line.SetXAxis(xs).
		AddSeries("delta", deltas).
		AddSeries(c.Reference+" speed", refSpeed, charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1})).
		AddSeries(c.Target+" speed", tgtSpeed, charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1}))

	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// RenderPNG writes a static delta plot with a zero reference line.
func RenderPNG(w io.Writer, c ChartData, width, height vg.Length) error {
	if len(c.Points) == 0 {
		return fmt.Errorf("no points to chart")
	}

	p := plot.New()
	p.Title.Text = c.title()
	p.X.Label.Text = "Distance (m)"
	p.Y.Label.Text = "Delta (s)"

	pts := make(plotter.XYs, len(c.Points))
	for i, gp := range c.Points {
		pts[i] = plotter.XY{X: gp.Distance, Y: gp.Delta}
	}
	deltaLine, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	deltaLine.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	deltaLine.Width = vg.Points(1.5)

	zero, err := plotter.NewLine(plotter.XYs{
		{X: c.Points[0].Distance, Y: 0},
		{X: c.Points[len(c.Points)-1].Distance, Y: 0},
	})
	if err != nil {
		return err
	}
	zero.Color = color.Gray{Y: 128}
	zero.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}

	p.Add(plotter.NewGrid(), zero, deltaLine)
	p.Legend.Add("delta", deltaLine)
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("failed to create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write png: %w", err)
	}
	return nil
}
