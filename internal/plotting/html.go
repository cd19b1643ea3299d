package plotting

import (
	"fmt"
	"io"
	"math"

	"github.com/banshee-data/selective.report/internal/selective"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// WriteHTML renders a standalone page with two charts over the requested
// coverage levels: selective error and achieved coverage, one series per
// score source. Every report must list the same targets in the same order.
func WriteHTML(w io.Writer, title string, reports map[string]selective.CoverageReport) error {
	sources := sortedKeys(reports)
	if len(sources) == 0 {
		return ErrNoData
	}

	targets := reports[sources[0]].Targets()
	xLabels := make([]string, len(targets))
	for i, t := range targets {
		xLabels[i] = fmt.Sprintf("%.0f", t)
	}

	errChart := charts.NewLine()
	errChart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Selective error", Subtitle: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Target coverage (%)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Error (%)", NameLocation: "middle", NameGap: 40}),
	)
	errChart.SetXAxis(xLabels)

	covChart := charts.NewBar()
	covChart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Achieved coverage"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Target coverage (%)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Coverage (%)", NameLocation: "middle", NameGap: 40}),
	)
	covChart.SetXAxis(xLabels)

	for _, source := range sources {
		rep := reports[source]
		if len(rep) != len(targets) {
			return fmt.Errorf("%s report has %d points, want %d: %w",
				source, len(rep), len(targets), selective.ErrInvalidState)
		}
		errData := make([]opts.LineData, len(rep))
		covData := make([]opts.BarData, len(rep))
		for i, p := range rep {
			errData[i] = opts.LineData{Value: round3(p.ErrorPercent())}
			covData[i] = opts.BarData{Value: round3(p.Coverage * 100)}
		}
		errChart.AddSeries(source, errData)
		covChart.AddSeries(source, covData)
	}

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(errChart, covChart)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render charts: %w", err)
	}
	return nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
