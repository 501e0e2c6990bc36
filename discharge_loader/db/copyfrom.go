package db

import (
	"context"
)

// iteratorForInsertDischargeRecords implements pgx.CopyFromSource.
type iteratorForInsertDischargeRecords struct {
	rows                 []InsertDischargeRecordsParams
	skippedFirstNextCall bool
}

func (r *iteratorForInsertDischargeRecords) Next() bool {
	if len(r.rows) == 0 {
		return false
	}
	if !r.skippedFirstNextCall {
		r.skippedFirstNextCall = true
		return true
	}
	r.rows = r.rows[1:]
	return len(r.rows) > 0
}

func (r iteratorForInsertDischargeRecords) Values() ([]interface{}, error) {
	return []interface{}{
		r.rows[0].RunID,
		r.rows[0].RowNum,
		r.rows[0].Facility,
		r.rows[0].Year,
		r.rows[0].Discharges,
		r.rows[0].MeanCharge,
		r.rows[0].MeanCost,
		r.rows[0].Severity,
		r.rows[0].Fields,
	}, nil
}

func (r iteratorForInsertDischargeRecords) Err() error {
	return nil
}

// InsertDischargeRecords bulk-loads cleaned records with COPY.
func (q *Queries) InsertDischargeRecords(ctx context.Context, arg []InsertDischargeRecordsParams) (int64, error) {
	return q.db.CopyFrom(ctx, []string{"discharge_records"},
		[]string{"run_id", "row_num", "facility", "year", "discharges", "mean_charge", "mean_cost", "severity", "fields"},
		&iteratorForInsertDischargeRecords{rows: arg})
}

// iteratorForInsertYearlyTotals implements pgx.CopyFromSource.
type iteratorForInsertYearlyTotals struct {
	rows                 []InsertYearlyTotalsParams
	skippedFirstNextCall bool
}

func (r *iteratorForInsertYearlyTotals) Next() bool {
	if len(r.rows) == 0 {
		return false
	}
	if !r.skippedFirstNextCall {
		r.skippedFirstNextCall = true
		return true
	}
	r.rows = r.rows[1:]
	return len(r.rows) > 0
}

func (r iteratorForInsertYearlyTotals) Values() ([]interface{}, error) {
	return []interface{}{
		r.rows[0].RunID,
		r.rows[0].Facility,
		r.rows[0].Year,
		r.rows[0].Discharges,
	}, nil
}

func (r iteratorForInsertYearlyTotals) Err() error {
	return nil
}

// InsertYearlyTotals bulk-loads the yearly totals view with COPY.
func (q *Queries) InsertYearlyTotals(ctx context.Context, arg []InsertYearlyTotalsParams) (int64, error) {
	return q.db.CopyFrom(ctx, []string{"yearly_totals"},
		[]string{"run_id", "facility", "year", "discharges"},
		&iteratorForInsertYearlyTotals{rows: arg})
}
