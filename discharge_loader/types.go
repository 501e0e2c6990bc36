package main

import (
	"encoding/json"
	"fmt"

	"dischargestats/discharge"
)

// DischargeRow is the Parquet row for one cleaned discharge record.
//
// The typed columns come first so engines filtering on facility/year
// read the fewest column chunks. Facility and severity repeat heavily
// and dictionary-encode to near-zero. Fields carries every canonical
// column's value as a JSON array, aligned with the column list stored in
// the file's key/value metadata under columnsMetaKey, so a re-load
// reproduces the full cleaned table.
type DischargeRow struct {
	Facility   string  `parquet:"facility"`
	Year       int32   `parquet:"year"`
	Severity   string  `parquet:"severity"`
	Discharges float64 `parquet:"discharges"`
	MeanCharge float64 `parquet:"mean_charge"`
	MeanCost   float64 `parquet:"mean_cost"`

	Fields string `parquet:"fields"`
}

const columnsMetaKey = "discharge.columns"

func toRow(r discharge.Record) (DischargeRow, error) {
	fields, err := json.Marshal(r.Fields)
	if err != nil {
		return DischargeRow{}, fmt.Errorf("encode fields: %w", err)
	}
	return DischargeRow{
		Facility:   r.Facility,
		Year:       int32(r.Year),
		Severity:   r.Severity,
		Discharges: r.Discharges,
		MeanCharge: r.MeanCharge,
		MeanCost:   r.MeanCost,
		Fields:     string(fields),
	}, nil
}

func fromRow(row DischargeRow) (discharge.Record, error) {
	r := discharge.Record{
		Facility:   row.Facility,
		Year:       int(row.Year),
		Severity:   row.Severity,
		Discharges: row.Discharges,
		MeanCharge: row.MeanCharge,
		MeanCost:   row.MeanCost,
	}
	if row.Fields != "" {
		if err := json.Unmarshal([]byte(row.Fields), &r.Fields); err != nil {
			return r, fmt.Errorf("decode fields: %w", err)
		}
	}
	return r, nil
}
