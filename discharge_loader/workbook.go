package main

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"dischargestats/discharge"
)

const (
	sheetYearly   = "Yearly Totals"
	sheetTrend    = "Facility Trend"
	sheetSeverity = "Severity Averages"
	sheetSummary  = "Load Summary"
)

// gapSheetName titles the ranking sheet with the number of facilities it
// actually holds.
func gapSheetName(n int) string {
	if n == 0 {
		return "Charge Gap Ranking"
	}
	return fmt.Sprintf("Charge Gap Top %d", n)
}

// Built-in excelize number format 4 is "#,##0.00".
const amountFormat = 4

// writeWorkbook saves the four views and the load statistics to an .xlsx
// file, one sheet each.
func writeWorkbook(path, sourceFile string, stats discharge.LoadStats, v *discharge.Views) error {
	sheetGaps := gapSheetName(len(v.ChargeGaps))

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetYearly); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{sheetGaps, sheetTrend, sheetSeverity, sheetSummary} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %q: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: amountFormat})
	if err != nil {
		return fmt.Errorf("amount style: %w", err)
	}

	w := &sheetWriter{f: f, header: header, amount: amount}

	w.table(sheetYearly, []string{"Facility", "Year", "Discharges"}, len(v.YearlyTotals), func(i int) []interface{} {
		yt := v.YearlyTotals[i]
		return []interface{}{yt.Facility, yt.Year, yt.Discharges}
	}, "C")

	w.table(sheetGaps, []string{"Rank", "Facility", "Total Gap"}, len(v.ChargeGaps), func(i int) []interface{} {
		g := v.ChargeGaps[i]
		return []interface{}{i + 1, g.Facility, g.TotalGap}
	}, "C")

	w.table(sheetTrend, []string{"Facility", "Year", "Mean Charge", "Discharges"}, len(v.TimeSeries), func(i int) []interface{} {
		p := v.TimeSeries[i]
		return []interface{}{v.Facility, p.Year, p.MeanCharge, p.Discharges}
	}, "C")

	w.table(sheetSeverity, []string{"Severity", "Mean Cost", "Mean Charge", "Records"}, len(v.Severity), func(i int) []interface{} {
		s := v.Severity[i]
		return []interface{}{s.Severity, s.MeanCost, s.MeanCharge, s.Records}
	}, "B", "C")

	summary := [][]interface{}{
		{"Source file", sourceFile},
		{"Rows read", stats.RowsRead},
		{"Rows kept", stats.RowsKept},
		{"Rows dropped", stats.RowsDropped},
		{"Parse errors", stats.ParseErrors},
		{"Trend facility", v.Facility},
	}
	w.table(sheetSummary, []string{"Metric", "Value"}, len(summary), func(i int) []interface{} {
		return summary[i]
	})

	if w.err != nil {
		return w.err
	}
	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// sheetWriter fills sheets and remembers the first error.
type sheetWriter struct {
	f      *excelize.File
	header int
	amount int
	err    error
}

// table writes a bold header row and n data rows to sheet, freezes the
// header, and applies the amount format to amountCols.
func (w *sheetWriter) table(sheet string, cols []string, n int, row func(int) []interface{}, amountCols ...string) {
	if w.err != nil {
		return
	}
	hdr := make([]interface{}, len(cols))
	for i, c := range cols {
		hdr[i] = c
	}
	if err := w.f.SetSheetRow(sheet, "A1", &hdr); err != nil {
		w.err = fmt.Errorf("%s header: %w", sheet, err)
		return
	}
	last, _ := excelize.CoordinatesToCellName(len(cols), 1)
	if err := w.f.SetCellStyle(sheet, "A1", last, w.header); err != nil {
		w.err = fmt.Errorf("%s header style: %w", sheet, err)
		return
	}

	for i := 0; i < n; i++ {
		values := row(i)
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
			w.err = fmt.Errorf("%s row %d: %w", sheet, i+1, err)
			return
		}
	}
	if n > 0 {
		for _, col := range amountCols {
			if err := w.f.SetCellStyle(sheet, fmt.Sprintf("%s2", col), fmt.Sprintf("%s%d", col, n+1), w.amount); err != nil {
				w.err = fmt.Errorf("%s amount style: %w", sheet, err)
				return
			}
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(cols))
	if err := w.f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		w.err = fmt.Errorf("%s widths: %w", sheet, err)
		return
	}
	if err := w.f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		w.err = fmt.Errorf("%s panes: %w", sheet, err)
	}
}
