package main

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"dischargestats/discharge"
)

// testCSV has 7 data rows: 5 complete, one with an unparseable mean
// cost and one with a missing county.
const testCSV = `Hospital County,Facility Name,Year,APR Severity Of Illness Description,Discharges,Mean Charge,Mean Cost
Albany,Albany Medical Center Hospital,2009,Minor,"1,200",$5000.50,3000.25
Albany,Albany Medical Center Hospital,2010,Major,800,12000,7000
Albany,Albany Medical Center Hospital,2010,Minor,300,4000,2500
Bronx,Montefiore Medical Center,2009,Extreme,150,60000,30000
Bronx,Montefiore Medical Center,2010,Moderate,400,9000,bad
,Montefiore Medical Center,2011,Moderate,10,9000,5000
Kings,Kings County Hospital Center,2010,Moderate,90,8000,6000
`

// writeTestCSV writes content to a temp file and returns its path.
func writeTestCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "discharges.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

// loadTestData loads testCSV and builds its views.
func loadTestData(t *testing.T) (*discharge.Table, discharge.LoadStats, *discharge.Views) {
	t.Helper()
	table, stats, err := discharge.Load(writeTestCSV(t, testCSV), discharge.Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	views, err := discharge.BuildViews(context.Background(), table, "", discharge.DefaultTopN)
	if err != nil {
		t.Fatalf("BuildViews: %v", err)
	}
	return table, stats, views
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.005
}
