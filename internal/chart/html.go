package chart

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/accel.report/internal/accel"
)

type bound int

const (
	boundMin bound = iota
	boundMax
)

func lineChart(ps *accel.ProfileSet, vMax float64, b bound) (*charts.Line, error) {
	title, yName := "Maximum acceleration", "max (m/s²)"
	if b == boundMin {
		title, yName = "Minimum acceleration", "min (m/s²)"
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Acceleration profiles", Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("0 to %g m/s", vMax)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "speed (m/s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName, NameLocation: "middle", NameGap: 40}),
	)

	var xAxis []string
	for i, pers := range Profiled {
		pts, err := SampleCurves(ps, pers, vMax, DefaultStep)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			xAxis = make([]string, len(pts))
			for j, pt := range pts {
				xAxis[j] = fmt.Sprintf("%.2f", pt.Speed)
			}
			line.SetXAxis(xAxis)
		}
		data := make([]opts.LineData, len(pts))
		for j, pt := range pts {
			v := pt.Max
			if b == boundMin {
				v = pt.Min
			}
			data[j] = opts.LineData{Value: v}
		}
		line.AddSeries(pers.String(), data,
			charts.WithLineStyleOpts(opts.LineStyle{Color: hexColor(lineColors[pers]), Width: 2}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: hexColor(lineColors[pers])}),
		)
	}
	return line, nil
}

// RenderHTML writes an interactive page with one chart for the minimum
// curves and one for the maximum curves.
func RenderHTML(w io.Writer, ps *accel.ProfileSet, vMax float64) error {
	maxChart, err := lineChart(ps, vMax, boundMax)
	if err != nil {
		return err
	}
	minChart, err := lineChart(ps, vMax, boundMin)
	if err != nil {
		return err
	}

	page := components.NewPage()
	page.PageTitle = "Acceleration profiles"
	page.AddCharts(maxChart, minChart)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render profile page: %w", err)
	}
	return nil
}
