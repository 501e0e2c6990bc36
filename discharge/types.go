// Package discharge loads a hospital discharge CSV into an immutable,
// fully populated in-memory table and derives the aggregate views drawn
// by the report: yearly discharge totals, the charge-gap ranking, a
// single facility's trend and per-severity averages.
package discharge

import (
	"fmt"
	"math"
	"strconv"
)

// Columns names the canonical (normalized) columns that carry the typed
// fields of a Record. Defaults match the SPARCS cost transparency export.
type Columns struct {
	Facility   string
	Year       string
	Discharges string
	MeanCharge string
	MeanCost   string
	Severity   string
}

// DefaultColumns returns the column mapping for the SPARCS layout.
func DefaultColumns() Columns {
	return Columns{
		Facility:   "facility_name",
		Year:       "year",
		Discharges: "discharges",
		MeanCharge: "mean_charge",
		MeanCost:   "mean_cost",
		Severity:   "apr_severity_of_illness_description",
	}
}

func (c Columns) list() []string {
	return []string{c.Facility, c.Year, c.Discharges, c.MeanCharge, c.MeanCost, c.Severity}
}

// normalized returns c with every name passed through NormalizeName, so
// callers may configure columns by their source spelling.
func (c Columns) normalized() Columns {
	return Columns{
		Facility:   NormalizeName(c.Facility),
		Year:       NormalizeName(c.Year),
		Discharges: NormalizeName(c.Discharges),
		MeanCharge: NormalizeName(c.MeanCharge),
		MeanCost:   NormalizeName(c.MeanCost),
		Severity:   NormalizeName(c.Severity),
	}
}

// Record is one cleaned discharge row. Fields holds every canonical
// column's value, aligned with Table.Columns(); the typed fields repeat
// the parsed values of the mapped columns.
type Record struct {
	Facility   string
	Year       int
	Discharges float64
	MeanCharge float64
	MeanCost   float64
	Severity   string

	Fields []string
}

// Gap returns mean charge minus mean cost.
func (r Record) Gap() float64 {
	return r.MeanCharge - r.MeanCost
}

func (r Record) complete() bool {
	if r.Facility == "" || r.Severity == "" {
		return false
	}
	if r.Year < math.MinInt32 || r.Year > math.MaxInt32 {
		return false
	}
	for _, f := range []float64{r.Discharges, r.MeanCharge, r.MeanCost} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Table is the cleaned dataset. It is built once by Load or NewTable and
// never mutated afterwards; accessors hand out copies.
type Table struct {
	columns []string
	records []Record
}

// NewTable builds a table from records that are already clean. When
// columns is nil the table uses the default key columns and every
// record's Fields are synthesized from its typed values; otherwise each
// record must carry Fields aligned with columns. A record with a missing
// typed value is rejected.
func NewTable(columns []string, records []Record) (*Table, error) {
	synth := columns == nil
	if synth {
		columns = DefaultColumns().list()
	}
	cols := make([]string, len(columns))
	copy(cols, columns)

	recs := make([]Record, len(records))
	for i, r := range records {
		if !r.complete() {
			return nil, fmt.Errorf("record %d: missing value", i)
		}
		if synth {
			r.Fields = synthesizeFields(r)
		}
		if len(r.Fields) != len(cols) {
			return nil, fmt.Errorf("record %d: %d fields for %d columns", i, len(r.Fields), len(cols))
		}
		r.Fields = append([]string(nil), r.Fields...)
		recs[i] = r
	}
	return &Table{columns: cols, records: recs}, nil
}

// synthesizeFields renders the typed values in DefaultColumns order.
func synthesizeFields(r Record) []string {
	return []string{
		r.Facility,
		strconv.Itoa(r.Year),
		strconv.FormatFloat(r.Discharges, 'f', -1, 64),
		strconv.FormatFloat(r.MeanCharge, 'f', -1, 64),
		strconv.FormatFloat(r.MeanCost, 'f', -1, 64),
		r.Severity,
	}
}

// Columns returns the canonical column names.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// Record returns a copy of record i.
func (t *Table) Record(i int) Record {
	r := t.records[i]
	r.Fields = append([]string(nil), r.Fields...)
	return r
}

// Records returns a copy of all records.
func (t *Table) Records() []Record {
	out := make([]Record, len(t.records))
	for i := range t.records {
		out[i] = t.Record(i)
	}
	return out
}

// each visits records in order without copying; views use it and must
// not retain or modify the records they are handed.
func (t *Table) each(fn func(r *Record)) {
	if t == nil {
		return
	}
	for i := range t.records {
		fn(&t.records[i])
	}
}
