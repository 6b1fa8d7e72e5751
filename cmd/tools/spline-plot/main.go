// Command spline-plot renders the RF compensation splines (§4.4) that
// translate a DW1000 RX power reading into a clock/distance compensation
// term, swept across a dBm range. It draws the splines only; it reads no
// database and plots no session timeline.
// Output is an HTML chart via go-echarts (the teacher's
// internal/lidar/monitor/echarts_handlers.go pattern) with a static PNG
// fallback via gonum/plot (the teacher's gridplotter.go pattern), for
// environments without a browser handy.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/rtls/internal/rfmodel"
)

var (
	channel = flag.Int("channel", 5, "DW1000 RF channel")
	prf     = flag.Int("prf", 64, "pulse repetition frequency (16 or 64)")
	dbmMin  = flag.Float64("dbm-min", -100, "sweep start, dBm")
	dbmMax  = flag.Float64("dbm-max", -60, "sweep end, dBm")
	steps   = flag.Int("steps", 200, "number of sweep samples")
	out     = flag.String("out", "spline.html", "output path; .html renders an ECharts page, .png a static plot")
)

type sample struct {
	dbm       float64
	timeComp  float64
	distComp  float64
}

func sweep() []sample {
	out := make([]sample, 0, *steps)
	step := (*dbmMax - *dbmMin) / float64(*steps-1)
	for i := 0; i < *steps; i++ {
		dbm := *dbmMin + float64(i)*step
		tc, err := rfmodel.TimeCompClocks(dbm, *channel, *prf)
		if err != nil {
			continue
		}
		dc, err := rfmodel.DistCompMetres(dbm, *channel, *prf)
		if err != nil {
			continue
		}
		out = append(out, sample{dbm: dbm, timeComp: tc, distComp: dc})
	}
	return out
}

func main() {
	flag.Parse()

	samples := sweep()
	if len(samples) == 0 {
		log.Fatalf("spline-plot: no spline coverage for channel=%d prf=%d in [%.1f,%.1f] dBm", *channel, *prf, *dbmMin, *dbmMax)
	}

	var err error
	if hasSuffix(*out, ".png") {
		err = renderPNG(samples, *out)
	} else {
		err = renderHTML(samples, *out)
	}
	if err != nil {
		log.Fatalf("spline-plot: %v", err)
	}
	fmt.Printf("wrote %s (%d samples)\n", *out, len(samples))
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

func renderHTML(samples []sample, path string) error {
	timeSeries := make([]opts.LineData, 0, len(samples))
	distSeries := make([]opts.LineData, 0, len(samples))
	xAxis := make([]string, 0, len(samples))
	for _, s := range samples {
		xAxis = append(xAxis, fmt.Sprintf("%.1f", s.dbm))
		timeSeries = append(timeSeries, opts.LineData{Value: s.timeComp})
		distSeries = append(distSeries, opts.LineData{Value: s.distComp})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "RF Compensation Splines", Theme: "dark"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "RF Compensation Splines",
			Subtitle: fmt.Sprintf("channel=%d prf=%d", *channel, *prf),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "RX level (dBm)"}),
	)
	line.SetXAxis(xAxis).
		AddSeries("time comp (clocks)", timeSeries).
		AddSeries("dist comp (m)", distSeries).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func renderPNG(samples []sample, path string) error {
	timePts := make(plotter.XYs, len(samples))
	distPts := make(plotter.XYs, len(samples))
	for i, s := range samples {
		timePts[i] = plotter.XY{X: s.dbm, Y: s.timeComp}
		distPts[i] = plotter.XY{X: s.dbm, Y: s.distComp}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("RF Compensation Splines (channel=%d prf=%d)", *channel, *prf)
	p.X.Label.Text = "RX level (dBm)"
	p.Y.Label.Text = "compensation"

	timeLine, err := plotter.NewLine(timePts)
	if err != nil {
		return fmt.Errorf("time comp line: %w", err)
	}
	timeLine.Color = color.RGBA{R: 220, G: 80, B: 40, A: 255}
	timeLine.Width = vg.Points(1.5)
	p.Add(timeLine)
	p.Legend.Add("time comp (clocks)", timeLine)

	distLine, err := plotter.NewLine(distPts)
	if err != nil {
		return fmt.Errorf("dist comp line: %w", err)
	}
	distLine.Color = color.RGBA{R: 40, G: 120, B: 220, A: 255}
	distLine.Width = vg.Points(1.5)
	p.Add(distLine)
	p.Legend.Add("dist comp (m)", distLine)

	p.Legend.Top = true

	if err := p.Save(12*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}
