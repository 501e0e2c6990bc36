package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertLoadRun = `
INSERT INTO load_runs (id, source_file, facility, columns, rows_read, rows_kept, rows_dropped, parse_errors)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

type InsertLoadRunParams struct {
	ID          pgtype.UUID
	SourceFile  string
	Facility    string
	Columns     []string
	RowsRead    int64
	RowsKept    int64
	RowsDropped int64
	ParseErrors int64
}

func (q *Queries) InsertLoadRun(ctx context.Context, arg InsertLoadRunParams) error {
	_, err := q.db.Exec(ctx, insertLoadRun,
		arg.ID,
		arg.SourceFile,
		arg.Facility,
		arg.Columns,
		arg.RowsRead,
		arg.RowsKept,
		arg.RowsDropped,
		arg.ParseErrors,
	)
	return err
}

const getLoadRun = `
SELECT id, source_file, facility, columns, rows_read, rows_kept, rows_dropped, parse_errors, loaded_at
FROM load_runs
WHERE id = $1
`

func (q *Queries) GetLoadRun(ctx context.Context, id pgtype.UUID) (LoadRun, error) {
	row := q.db.QueryRow(ctx, getLoadRun, id)
	var i LoadRun
	err := row.Scan(
		&i.ID,
		&i.SourceFile,
		&i.Facility,
		&i.Columns,
		&i.RowsRead,
		&i.RowsKept,
		&i.RowsDropped,
		&i.ParseErrors,
		&i.LoadedAt,
	)
	return i, err
}

type InsertDischargeRecordsParams struct {
	RunID      pgtype.UUID
	RowNum     int32
	Facility   string
	Year       int32
	Discharges pgtype.Numeric
	MeanCharge pgtype.Numeric
	MeanCost   pgtype.Numeric
	Severity   string
	Fields     []string
}

type InsertYearlyTotalsParams struct {
	RunID      pgtype.UUID
	Facility   string
	Year       int32
	Discharges pgtype.Numeric
}

const deleteLoadRun = `
DELETE FROM load_runs
WHERE id = $1
`

// DeleteLoadRun removes a run; its records and views cascade.
func (q *Queries) DeleteLoadRun(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, deleteLoadRun, id)
	return err
}

const countDischargeRecords = `
SELECT count(*) FROM discharge_records WHERE run_id = $1
`

func (q *Queries) CountDischargeRecords(ctx context.Context, runID pgtype.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countDischargeRecords, runID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const insertChargeGap = `
INSERT INTO charge_gaps (run_id, rank, facility, total_gap)
VALUES ($1, $2, $3, $4)
`

type InsertChargeGapParams struct {
	RunID    pgtype.UUID
	Rank     int32
	Facility string
	TotalGap pgtype.Numeric
}

func (q *Queries) InsertChargeGap(ctx context.Context, arg InsertChargeGapParams) error {
	_, err := q.db.Exec(ctx, insertChargeGap,
		arg.RunID,
		arg.Rank,
		arg.Facility,
		arg.TotalGap,
	)
	return err
}

const insertFacilityTrendPoint = `
INSERT INTO facility_trend (run_id, seq, facility, year, mean_charge, discharges)
VALUES ($1, $2, $3, $4, $5, $6)
`

type InsertFacilityTrendPointParams struct {
	RunID      pgtype.UUID
	Seq        int32
	Facility   string
	Year       int32
	MeanCharge pgtype.Numeric
	Discharges pgtype.Numeric
}

func (q *Queries) InsertFacilityTrendPoint(ctx context.Context, arg InsertFacilityTrendPointParams) error {
	_, err := q.db.Exec(ctx, insertFacilityTrendPoint,
		arg.RunID,
		arg.Seq,
		arg.Facility,
		arg.Year,
		arg.MeanCharge,
		arg.Discharges,
	)
	return err
}

const insertSeverityAverage = `
INSERT INTO severity_averages (run_id, severity, mean_cost, mean_charge, records)
VALUES ($1, $2, $3, $4, $5)
`

type InsertSeverityAverageParams struct {
	RunID      pgtype.UUID
	Severity   string
	MeanCost   pgtype.Numeric
	MeanCharge pgtype.Numeric
	Records    int32
}

func (q *Queries) InsertSeverityAverage(ctx context.Context, arg InsertSeverityAverageParams) error {
	_, err := q.db.Exec(ctx, insertSeverityAverage,
		arg.RunID,
		arg.Severity,
		arg.MeanCost,
		arg.MeanCharge,
		arg.Records,
	)
	return err
}

const listYearlyTotals = `
SELECT facility, year, discharges
FROM yearly_totals
WHERE run_id = $1
ORDER BY facility, year
`

func (q *Queries) ListYearlyTotals(ctx context.Context, runID pgtype.UUID) ([]YearlyTotal, error) {
	rows, err := q.db.Query(ctx, listYearlyTotals, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []YearlyTotal
	for rows.Next() {
		var i YearlyTotal
		if err := rows.Scan(&i.Facility, &i.Year, &i.Discharges); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listChargeGaps = `
SELECT rank, facility, total_gap
FROM charge_gaps
WHERE run_id = $1
ORDER BY rank
`

func (q *Queries) ListChargeGaps(ctx context.Context, runID pgtype.UUID) ([]ChargeGap, error) {
	rows, err := q.db.Query(ctx, listChargeGaps, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ChargeGap
	for rows.Next() {
		var i ChargeGap
		if err := rows.Scan(&i.Rank, &i.Facility, &i.TotalGap); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listFacilityTrend = `
SELECT seq, facility, year, mean_charge, discharges
FROM facility_trend
WHERE run_id = $1
ORDER BY seq
`

func (q *Queries) ListFacilityTrend(ctx context.Context, runID pgtype.UUID) ([]FacilityTrendPoint, error) {
	rows, err := q.db.Query(ctx, listFacilityTrend, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FacilityTrendPoint
	for rows.Next() {
		var i FacilityTrendPoint
		if err := rows.Scan(&i.Seq, &i.Facility, &i.Year, &i.MeanCharge, &i.Discharges); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listSeverityAverages = `
SELECT severity, mean_cost, mean_charge, records
FROM severity_averages
WHERE run_id = $1
ORDER BY severity
`

func (q *Queries) ListSeverityAverages(ctx context.Context, runID pgtype.UUID) ([]SeverityAverage, error) {
	rows, err := q.db.Query(ctx, listSeverityAverages, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SeverityAverage
	for rows.Next() {
		var i SeverityAverage
		if err := rows.Scan(&i.Severity, &i.MeanCost, &i.MeanCharge, &i.Records); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
