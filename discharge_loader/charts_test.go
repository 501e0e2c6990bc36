package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"dischargestats/discharge"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func checkPNGs(t *testing.T, paths []string) {
	t.Helper()
	if len(paths) != 4 {
		t.Fatalf("paths = %v, want 4 charts", paths)
	}
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		if !bytes.HasPrefix(data, pngMagic) {
			t.Errorf("%s is not a PNG", filepath.Base(p))
		}
	}
}

func TestWriteCharts(t *testing.T) {
	_, _, views := loadTestData(t)
	dir := filepath.Join(t.TempDir(), "charts")

	paths, err := writeCharts(dir, views)
	if err != nil {
		t.Fatalf("writeCharts: %v", err)
	}
	checkPNGs(t, paths)

	for _, name := range []string{yearlyChartFile, gapChartFile, trendChartFile, severityChartFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestWriteChartsEmptyViews(t *testing.T) {
	paths, err := writeCharts(t.TempDir(), &discharge.Views{})
	if err != nil {
		t.Fatalf("writeCharts: %v", err)
	}
	checkPNGs(t, paths)
}

func TestWriteChartsSingleYear(t *testing.T) {
	views := &discharge.Views{
		Facility: "Solo",
		TimeSeries: []discharge.TimePoint{
			{Year: 2012, MeanCharge: 100, Discharges: 4},
		},
	}
	paths, err := writeCharts(t.TempDir(), views)
	if err != nil {
		t.Fatalf("writeCharts: %v", err)
	}
	checkPNGs(t, paths)
}

func TestNormalizedSeries(t *testing.T) {
	points := []discharge.TimePoint{
		{Year: 2010, MeanCharge: 50, Discharges: 0},
		{Year: 2011, MeanCharge: 200, Discharges: 0},
	}
	xys, peak := normalizedSeries(points, func(tp discharge.TimePoint) float64 { return tp.MeanCharge })
	if peak != 200 || xys[0].Y != 0.25 || xys[1].Y != 1 || xys[1].X != 2011 {
		t.Errorf("charge series = %v (peak %v)", xys, peak)
	}
	xys, peak = normalizedSeries(points, func(tp discharge.TimePoint) float64 { return tp.Discharges })
	if peak != 0 || xys[0].Y != 0 || xys[1].Y != 0 {
		t.Errorf("all-zero series = %v (peak %v)", xys, peak)
	}
}

func TestShortName(t *testing.T) {
	if got := shortName("Albany Med"); got != "Albany Med" {
		t.Errorf("short name changed: %q", got)
	}
	long := "New York-Presbyterian Hospital - Columbia Presbyterian Center"
	got := []rune(shortName(long))
	if len(got) != 32 || got[31] != '…' {
		t.Errorf("shortName(long) = %q", string(got))
	}
}
