package main

import (
	"fmt"
	"io"

	"github.com/guptarohit/asciigraph"

	"dischargestats/discharge"
)

const (
	previewHeight = 12
	previewWidth  = 60
)

// writePreview draws the facility trend in the terminal: mean charge (red)
// and discharges (blue), each as a percentage of its own maximum.
func writePreview(w io.Writer, v *discharge.Views) error {
	points := discharge.AverageByYear(v.TimeSeries)
	if len(points) == 0 {
		_, err := fmt.Fprintf(w, "No trend data for %q\n", v.Facility)
		return err
	}

	charge, maxCharge := normalizedSeries(points, func(tp discharge.TimePoint) float64 { return tp.MeanCharge })
	volume, maxVolume := normalizedSeries(points, func(tp discharge.TimePoint) float64 { return tp.Discharges })

	chargePct := make([]float64, len(charge))
	volumePct := make([]float64, len(volume))
	for i := range charge {
		chargePct[i] = charge[i].Y * 100
		volumePct[i] = volume[i].Y * 100
	}
	// A single year still needs two samples to draw a line.
	if len(points) == 1 {
		chargePct = append(chargePct, chargePct[0])
		volumePct = append(volumePct, volumePct[0])
	}

	caption := fmt.Sprintf("%s %d-%d: mean charge (max %.0f) vs discharges (max %.0f), %% of max",
		shortName(v.Facility), points[0].Year, points[len(points)-1].Year, maxCharge, maxVolume)
	graph := asciigraph.PlotMany([][]float64{chargePct, volumePct},
		asciigraph.Height(previewHeight),
		asciigraph.Width(previewWidth),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(
			asciigraph.Red,
			asciigraph.Blue,
		),
	)
	_, err := fmt.Fprintln(w, graph)
	return err
}
