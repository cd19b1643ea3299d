// Package plotting renders coverage reports and pass histories as PNG
// plots and standalone HTML charts.
package plotting

import (
	"errors"
	"fmt"
	"sort"

	"github.com/banshee-data/selective.report/internal/db"
	"github.com/banshee-data/selective.report/internal/selective"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no data to plot")

// RiskCoveragePlot saves a risk-coverage curve per score source: achieved
// coverage (%) against selective error (%). The image format follows the
// extension of path.
func RiskCoveragePlot(reports map[string]selective.CoverageReport, path string) error {
	if len(reports) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = "Risk-Coverage"
	p.X.Label.Text = "Coverage (%)"
	p.Y.Label.Text = "Selective error (%)"
	p.X.Min, p.X.Max = 0, 100
	p.Add(plotter.NewGrid())

	for i, source := range sortedKeys(reports) {
		rep := reports[source]
		if len(rep) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(rep))
		for j, pt := range rep {
			pts[j] = plotter.XY{X: pt.Coverage * 100, Y: pt.ErrorPercent()}
		}
		sort.Slice(pts, func(a, b int) bool { return pts[a].X < pts[b].X })

		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return fmt.Errorf("%s: %w", source, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)
		p.Add(line, points)
		p.Legend.Add(source, line, points)
	}
	configureLegend(p)

	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save risk-coverage plot: %w", err)
	}
	return nil
}

// PassHistoryPlot saves the coverage metric and top-1 accuracy of every
// phase against epoch.
func PassHistoryPlot(passes []*db.PassRecord, path string) error {
	if len(passes) == 0 {
		return ErrNoData
	}

	byPhase := make(map[string][]*db.PassRecord)
	for _, ps := range passes {
		byPhase[ps.Phase] = append(byPhase[ps.Phase], ps)
	}

	p := plot.New()
	p.Title.Text = "Pass History"
	p.X.Label.Text = "Epoch"
	p.Y.Label.Text = "Fraction"
	p.Y.Min, p.Y.Max = 0, 1
	p.Add(plotter.NewGrid())

	for i, phase := range sortedKeys(byPhase) {
		rows := byPhase[phase]
		sort.Slice(rows, func(a, b int) bool { return rows[a].Epoch < rows[b].Epoch })

		sacPts := make(plotter.XYs, len(rows))
		topPts := make(plotter.XYs, len(rows))
		for j, r := range rows {
			sacPts[j] = plotter.XY{X: float64(r.Epoch), Y: r.SAC}
			topPts[j] = plotter.XY{X: float64(r.Epoch), Y: r.Top1}
		}

		sacLine, err := plotter.NewLine(sacPts)
		if err != nil {
			return fmt.Errorf("%s sac: %w", phase, err)
		}
		sacLine.Color = plotutil.Color(i)
		sacLine.Width = vg.Points(1.5)

		topLine, err := plotter.NewLine(topPts)
		if err != nil {
			return fmt.Errorf("%s top1: %w", phase, err)
		}
		topLine.Color = plotutil.Color(i)
		topLine.Width = vg.Points(1)
		topLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

		p.Add(sacLine, topLine)
		p.Legend.Add(phase+" coverage", sacLine)
		p.Legend.Add(phase+" top-1", topLine)
	}
	configureLegend(p)

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save pass history plot: %w", err)
	}
	return nil
}

func configureLegend(p *plot.Plot) {
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
