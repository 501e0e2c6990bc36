package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"dischargestats/discharge"
)

// Facilities drawn in the yearly discharges chart. The view itself keeps
// every facility; the chart only needs the biggest ones to stay legible.
const chartFacilities = 8

const (
	yearlyChartFile   = "yearly_discharges.png"
	gapChartFile      = "charge_gap_top.png"
	trendChartFile    = "facility_trend.png"
	severityChartFile = "severity_averages.png"
)

// writeCharts renders one PNG per view into dir and returns the paths
// written.
func writeCharts(dir string, v *discharge.Views) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create charts dir: %w", err)
	}

	charts := []struct {
		file   string
		width  vg.Length
		height vg.Length
		build  func(*discharge.Views) (*plot.Plot, error)
	}{
		{yearlyChartFile, 14 * vg.Inch, 8 * vg.Inch, yearlyChart},
		{gapChartFile, 12 * vg.Inch, 8 * vg.Inch, gapChart},
		{trendChartFile, 12 * vg.Inch, 6 * vg.Inch, trendChart},
		{severityChartFile, 10 * vg.Inch, 6 * vg.Inch, severityChart},
	}

	paths := make([]string, 0, len(charts))
	for _, c := range charts {
		p, err := c.build(v)
		if err != nil {
			return paths, fmt.Errorf("%s: %w", c.file, err)
		}
		path := filepath.Join(dir, c.file)
		if err := p.Save(c.width, c.height, path); err != nil {
			return paths, fmt.Errorf("save %s: %w", c.file, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	return p
}

// emptyPlot is drawn in place of a chart whose view has no rows.
func emptyPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title + " (no data)"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.HideAxes()
	return p
}

func yearlyChart(v *discharge.Views) (*plot.Plot, error) {
	const title = "Discharges per Year by Facility"
	if len(v.YearlyTotals) == 0 {
		return emptyPlot(title), nil
	}

	volume := make(map[string]float64)
	yearSet := make(map[int]bool)
	var order []string
	for _, yt := range v.YearlyTotals {
		if _, ok := volume[yt.Facility]; !ok {
			order = append(order, yt.Facility)
		}
		volume[yt.Facility] += yt.Discharges
		yearSet[yt.Year] = true
	}
	sort.SliceStable(order, func(i, j int) bool { return volume[order[i]] > volume[order[j]] })
	if len(order) > chartFacilities {
		order = order[:chartFacilities]
	}

	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Ints(years)
	yearPos := make(map[int]int, len(years))
	labels := make([]string, len(years))
	for i, y := range years {
		yearPos[y] = i
		labels[i] = strconv.Itoa(y)
	}

	series := make(map[string]plotter.Values, len(order))
	for _, f := range order {
		series[f] = make(plotter.Values, len(years))
	}
	for _, yt := range v.YearlyTotals {
		if vals, ok := series[yt.Facility]; ok {
			vals[yearPos[yt.Year]] = yt.Discharges
		}
	}

	p := newPlot(title, "Year", "Discharges")
	width := vg.Points(60 / float64(len(order)))
	if width < vg.Points(4) {
		width = vg.Points(4)
	}
	for i, f := range order {
		bars, err := plotter.NewBarChart(series[f], width)
		if err != nil {
			return nil, err
		}
		bars.Color = plotutil.Color(i)
		bars.LineStyle.Width = vg.Length(0)
		bars.Offset = vg.Length(float64(i)-float64(len(order)-1)/2) * width
		p.Add(bars)
		p.Legend.Add(shortName(f), bars)
	}
	p.Legend.Top = true
	p.NominalX(labels...)
	return p, nil
}

func gapChart(v *discharge.Views) (*plot.Plot, error) {
	title := fmt.Sprintf("Top %d Facilities by Total Charge-Cost Gap", len(v.ChargeGaps))
	if len(v.ChargeGaps) == 0 {
		return emptyPlot("Charge-Cost Gap Ranking"), nil
	}

	// Rank 1 at the top: NominalY puts index 0 at the bottom.
	n := len(v.ChargeGaps)
	values := make(plotter.Values, n)
	labels := make([]string, n)
	for i, g := range v.ChargeGaps {
		values[n-1-i] = g.TotalGap
		labels[n-1-i] = shortName(g.Facility)
	}

	p := newPlot(title, "Total gap (charge - cost)", "")
	bars, err := plotter.NewBarChart(values, vg.Points(14))
	if err != nil {
		return nil, err
	}
	bars.Horizontal = true
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars, plotter.NewGrid())
	p.NominalY(labels...)
	return p, nil
}

func trendChart(v *discharge.Views) (*plot.Plot, error) {
	title := "Mean Charge and Discharges: " + shortName(v.Facility)
	points := discharge.AverageByYear(v.TimeSeries)
	if len(points) == 0 {
		return emptyPlot(title), nil
	}

	charge, maxCharge := normalizedSeries(points, func(tp discharge.TimePoint) float64 { return tp.MeanCharge })
	volume, maxVolume := normalizedSeries(points, func(tp discharge.TimePoint) float64 { return tp.Discharges })

	p := newPlot(title, "Year", "Share of series maximum")
	chargeLine, chargePts, err := plotter.NewLinePoints(charge)
	if err != nil {
		return nil, err
	}
	chargeLine.Color = plotutil.Color(0)
	chargeLine.Width = vg.Points(2)
	chargePts.GlyphStyle.Color = plotutil.Color(0)

	volumeLine, volumePts, err := plotter.NewLinePoints(volume)
	if err != nil {
		return nil, err
	}
	volumeLine.Color = plotutil.Color(1)
	volumeLine.Width = vg.Points(2)
	volumeLine.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
	volumePts.GlyphStyle.Color = plotutil.Color(1)
	volumePts.GlyphStyle.Shape = draw.SquareGlyph{}

	p.Add(plotter.NewGrid(), chargeLine, chargePts, volumeLine, volumePts)
	p.Legend.Add(fmt.Sprintf("mean charge (max %.0f)", maxCharge), chargeLine, chargePts)
	p.Legend.Add(fmt.Sprintf("discharges (max %.0f)", maxVolume), volumeLine, volumePts)
	p.Legend.Top = true
	p.Legend.Left = true

	p.Y.Min = 0
	p.Y.Max = 1.1
	if len(points) == 1 {
		p.X.Min = charge[0].X - 1
		p.X.Max = charge[0].X + 1
	}
	p.X.Tick.Marker = yearTicks{}
	return p, nil
}

func severityChart(v *discharge.Views) (*plot.Plot, error) {
	const title = "Average Cost and Charge by Severity of Illness"
	if len(v.Severity) == 0 {
		return emptyPlot(title), nil
	}

	costs := make(plotter.Values, len(v.Severity))
	charges := make(plotter.Values, len(v.Severity))
	labels := make([]string, len(v.Severity))
	for i, s := range v.Severity {
		costs[i] = s.MeanCost
		charges[i] = s.MeanCharge
		labels[i] = s.Severity
	}

	p := newPlot(title, "Severity", "Average amount")
	width := vg.Points(24)
	costBars, err := plotter.NewBarChart(costs, width)
	if err != nil {
		return nil, err
	}
	costBars.Color = plotutil.Color(0)
	costBars.LineStyle.Width = vg.Length(0)
	costBars.Offset = -width / 2

	chargeBars, err := plotter.NewBarChart(charges, width)
	if err != nil {
		return nil, err
	}
	chargeBars.Color = plotutil.Color(1)
	chargeBars.LineStyle.Width = vg.Length(0)
	chargeBars.Offset = width / 2

	p.Add(costBars, chargeBars)
	p.Legend.Add("mean cost", costBars)
	p.Legend.Add("mean charge", chargeBars)
	p.Legend.Top = true
	p.NominalX(labels...)
	return p, nil
}

// normalizedSeries scales each point's value by the series maximum so two
// series of very different magnitude share one axis. The maximum is
// returned for labelling.
func normalizedSeries(points []discharge.TimePoint, value func(discharge.TimePoint) float64) (plotter.XYs, float64) {
	var peak float64
	for _, tp := range points {
		peak = math.Max(peak, math.Abs(value(tp)))
	}
	xys := make(plotter.XYs, len(points))
	for i, tp := range points {
		xys[i].X = float64(tp.Year)
		if peak > 0 {
			xys[i].Y = value(tp) / peak
		}
	}
	return xys, peak
}

// yearTicks labels whole years only.
type yearTicks struct{}

func (yearTicks) Ticks(lo, hi float64) []plot.Tick {
	var ticks []plot.Tick
	for y := math.Ceil(lo); y <= hi; y++ {
		ticks = append(ticks, plot.Tick{Value: y, Label: strconv.Itoa(int(y))})
	}
	return ticks
}

// shortName trims long facility names for axis and legend labels.
func shortName(name string) string {
	const maxRunes = 32
	r := []rune(name)
	if len(r) <= maxRunes {
		return name
	}
	return string(r[:maxRunes-1]) + "…"
}
