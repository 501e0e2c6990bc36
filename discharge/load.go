package discharge

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DropScope selects which columns the completeness filter inspects.
type DropScope int

const (
	// DropAnyColumn drops a record when any column is missing.
	DropAnyColumn DropScope = iota
	// DropKeyColumns drops a record only when one of the typed columns
	// (facility, year, discharges, mean charge, mean cost, severity) is
	// missing. Other columns keep whatever they held, nulls included.
	DropKeyColumns
)

func (s DropScope) String() string {
	if s == DropKeyColumns {
		return "key"
	}
	return "any"
}

// ParseDropScope accepts "any" or "key".
func ParseDropScope(s string) (DropScope, error) {
	switch s {
	case "", "any", "all":
		return DropAnyColumn, nil
	case "key", "keys":
		return DropKeyColumns, nil
	}
	return DropAnyColumn, fmt.Errorf("unknown drop scope %q (want any|key)", s)
}

// Options configures Load. The zero value loads a comma-separated UTF-8
// SPARCS export and drops any record with a missing value.
type Options struct {
	Columns    Columns  // zero value → DefaultColumns()
	Comma      rune     // zero → ','
	Encoding   string   // "", utf-8, windows-1252, iso-8859-1
	NullTokens []string // nil → DefaultNullTokens()
	DropScope  DropScope
	Logger     *zap.Logger
}

// columns fills every unset field of o.Columns from DefaultColumns.
func (o Options) columns() Columns {
	c, def := o.Columns, DefaultColumns()
	fields := []struct {
		dst *string
		def string
	}{
		{&c.Facility, def.Facility},
		{&c.Year, def.Year},
		{&c.Discharges, def.Discharges},
		{&c.MeanCharge, def.MeanCharge},
		{&c.MeanCost, def.MeanCost},
		{&c.Severity, def.Severity},
	}
	for _, f := range fields {
		if strings.TrimSpace(*f.dst) == "" {
			*f.dst = f.def
		}
	}
	return c.normalized()
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// LoadStats summarizes one Load.
type LoadStats struct {
	RowsRead    int64
	RowsKept    int64
	RowsDropped int64
	ParseErrors int64
	// NullsByColumn counts null cells per canonical column across all
	// rows read, coerced-to-null cells included.
	NullsByColumn map[string]int64
	Elapsed       time.Duration
}

// keyIndex holds column positions of the typed fields.
type keyIndex struct {
	facility, year, discharges, meanCharge, meanCost, severity int
}

// likelyDelimiters are checked when the header parses as one column.
var likelyDelimiters = []rune{';', '\t', '|', ','}

func resolveKeys(r *CSVReader, cols Columns) (keyIndex, error) {
	var k keyIndex
	if src := r.SourceHeaders(); len(src) == 1 {
		for _, d := range likelyDelimiters {
			if d != r.csv.Comma && strings.ContainsRune(src[0], d) {
				return k, &LoadError{
					Path: r.path,
					Row:  1,
					Err:  fmt.Errorf("header parsed as a single column containing %q: wrong delimiter?", d),
				}
			}
		}
	}
	targets := []struct {
		name string
		dst  *int
	}{
		{cols.Facility, &k.facility},
		{cols.Year, &k.year},
		{cols.Discharges, &k.discharges},
		{cols.MeanCharge, &k.meanCharge},
		{cols.MeanCost, &k.meanCost},
		{cols.Severity, &k.severity},
	}
	for _, t := range targets {
		idx := r.Index(t.name)
		if idx < 0 {
			return k, &SchemaError{Canonical: t.name, Reason: "required column not found in header"}
		}
		*t.dst = idx
	}
	return k, nil
}

// checkYear rejects years that are fractional or do not fit the int32
// columns they are stored in.
func checkYear(y float64) error {
	if y != math.Trunc(y) {
		return errors.New("fractional year")
	}
	if y < math.MinInt32 || y > math.MaxInt32 {
		return errors.New("year out of range")
	}
	return nil
}

// Load reads path, coerces numeric columns, normalizes column names and
// drops incomplete records. Either the whole table is produced or an
// error is returned; recoverable cell-level parse failures only show up
// in the returned stats.
func Load(path string, opts Options) (*Table, LoadStats, error) {
	start := time.Now()
	log := opts.logger().With(zap.String("file", path))
	stats := LoadStats{NullsByColumn: make(map[string]int64)}

	reader, err := NewCSVReader(path, opts)
	if err != nil {
		return nil, stats, err
	}
	defer reader.Close()

	cols := opts.columns()
	keys, err := resolveKeys(reader, cols)
	if err != nil {
		return nil, stats, err
	}
	nulls := newNullSet(opts.NullTokens)
	headers := reader.Headers()

	isKey := make([]bool, len(headers))
	for _, i := range []int{keys.facility, keys.year, keys.discharges, keys.meanCharge, keys.meanCost, keys.severity} {
		isKey[i] = true
	}

	var records []Record
	for {
		row, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, err
		}
		stats.RowsRead++
		rowNum := reader.RowNum()

		null := make([]bool, len(row))
		for i, v := range row {
			null[i] = nulls.isNull(v)
		}

		coerce := func(idx int) float64 {
			if null[idx] {
				return math.NaN()
			}
			f, err := CoerceNumber(row[idx])
			if err != nil {
				var pe *ParseError
				if errors.As(err, &pe) {
					pe.Row = rowNum
					pe.Column = headers[idx]
				}
				stats.ParseErrors++
				log.Debug("coerced unparseable value to null", zap.Error(err))
				null[idx] = true
				return math.NaN()
			}
			return f
		}

		rec := Record{
			Facility:   row[keys.facility],
			Severity:   row[keys.severity],
			Discharges: coerce(keys.discharges),
			MeanCharge: coerce(keys.meanCharge),
			MeanCost:   coerce(keys.meanCost),
		}
		if y := coerce(keys.year); !math.IsNaN(y) {
			if err := checkYear(y); err != nil {
				stats.ParseErrors++
				log.Debug("coerced invalid year to null", zap.Error(&ParseError{
					Row: rowNum, Column: headers[keys.year], Value: row[keys.year], Err: err,
				}))
				null[keys.year] = true
			} else {
				rec.Year = int(y)
			}
		}

		drop := false
		for i, isNull := range null {
			if !isNull {
				continue
			}
			stats.NullsByColumn[headers[i]]++
			if opts.DropScope == DropAnyColumn || isKey[i] {
				drop = true
			}
		}
		if drop {
			stats.RowsDropped++
			log.Debug("dropped incomplete record", zap.Int64("row", rowNum))
			continue
		}

		// Keep typed columns in their canonical numeric spelling.
		row[keys.discharges] = strconv.FormatFloat(rec.Discharges, 'f', -1, 64)
		row[keys.year] = strconv.Itoa(rec.Year)
		row[keys.meanCharge] = strconv.FormatFloat(rec.MeanCharge, 'f', -1, 64)
		row[keys.meanCost] = strconv.FormatFloat(rec.MeanCost, 'f', -1, 64)
		rec.Fields = row
		records = append(records, rec)
	}

	stats.RowsKept = int64(len(records))
	stats.Elapsed = time.Since(start)
	log.Info("loaded discharge table",
		zap.Int64("rows_read", stats.RowsRead),
		zap.Int64("rows_kept", stats.RowsKept),
		zap.Int64("rows_dropped", stats.RowsDropped),
		zap.Int64("parse_errors", stats.ParseErrors),
		zap.Duration("elapsed", stats.Elapsed))

	return &Table{columns: headers, records: records}, stats, nil
}
