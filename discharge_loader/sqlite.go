package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	// sqlite driver
	_ "modernc.org/sqlite"

	"dischargestats/discharge"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS load_runs (
    id            TEXT PRIMARY KEY,
    source_file   TEXT    NOT NULL,
    facility      TEXT    NOT NULL,
    columns       TEXT    NOT NULL,
    rows_read     INTEGER NOT NULL,
    rows_kept     INTEGER NOT NULL,
    rows_dropped  INTEGER NOT NULL,
    parse_errors  INTEGER NOT NULL,
    loaded_at     TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);

CREATE TABLE IF NOT EXISTS discharge_records (
    run_id       TEXT    NOT NULL REFERENCES load_runs(id) ON DELETE CASCADE,
    row_num      INTEGER NOT NULL,
    facility     TEXT    NOT NULL,
    year         INTEGER NOT NULL,
    discharges   REAL    NOT NULL,
    mean_charge  REAL    NOT NULL,
    mean_cost    REAL    NOT NULL,
    severity     TEXT    NOT NULL,
    fields       TEXT    NOT NULL,
    PRIMARY KEY (run_id, row_num)
);

CREATE TABLE IF NOT EXISTS yearly_totals (
    run_id      TEXT    NOT NULL REFERENCES load_runs(id) ON DELETE CASCADE,
    facility    TEXT    NOT NULL,
    year        INTEGER NOT NULL,
    discharges  REAL    NOT NULL,
    PRIMARY KEY (run_id, facility, year)
);

CREATE TABLE IF NOT EXISTS charge_gaps (
    run_id     TEXT    NOT NULL REFERENCES load_runs(id) ON DELETE CASCADE,
    rank       INTEGER NOT NULL,
    facility   TEXT    NOT NULL,
    total_gap  REAL    NOT NULL,
    PRIMARY KEY (run_id, rank)
);

CREATE TABLE IF NOT EXISTS facility_trend (
    run_id       TEXT    NOT NULL REFERENCES load_runs(id) ON DELETE CASCADE,
    seq          INTEGER NOT NULL,
    facility     TEXT    NOT NULL,
    year         INTEGER NOT NULL,
    mean_charge  REAL    NOT NULL,
    discharges   REAL    NOT NULL,
    PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS severity_averages (
    run_id       TEXT    NOT NULL REFERENCES load_runs(id) ON DELETE CASCADE,
    severity     TEXT    NOT NULL,
    mean_cost    REAL    NOT NULL,
    mean_charge  REAL    NOT NULL,
    records      INTEGER NOT NULL,
    PRIMARY KEY (run_id, severity)
);
`

type sqliteRun struct {
	ID          string `db:"id"`
	SourceFile  string `db:"source_file"`
	Facility    string `db:"facility"`
	Columns     string `db:"columns"`
	RowsRead    int64  `db:"rows_read"`
	RowsKept    int64  `db:"rows_kept"`
	RowsDropped int64  `db:"rows_dropped"`
	ParseErrors int64  `db:"parse_errors"`
}

type sqliteRecord struct {
	RunID      string  `db:"run_id"`
	RowNum     int     `db:"row_num"`
	Facility   string  `db:"facility"`
	Year       int     `db:"year"`
	Discharges float64 `db:"discharges"`
	MeanCharge float64 `db:"mean_charge"`
	MeanCost   float64 `db:"mean_cost"`
	Severity   string  `db:"severity"`
	Fields     string  `db:"fields"`
}

type sqliteYearlyTotal struct {
	RunID      string  `db:"run_id"`
	Facility   string  `db:"facility"`
	Year       int     `db:"year"`
	Discharges float64 `db:"discharges"`
}

type sqliteChargeGap struct {
	RunID    string  `db:"run_id"`
	Rank     int     `db:"rank"`
	Facility string  `db:"facility"`
	TotalGap float64 `db:"total_gap"`
}

type sqliteTrendPoint struct {
	RunID      string  `db:"run_id"`
	Seq        int     `db:"seq"`
	Facility   string  `db:"facility"`
	Year       int     `db:"year"`
	MeanCharge float64 `db:"mean_charge"`
	Discharges float64 `db:"discharges"`
}

type sqliteSeverity struct {
	RunID      string  `db:"run_id"`
	Severity   string  `db:"severity"`
	MeanCost   float64 `db:"mean_cost"`
	MeanCharge float64 `db:"mean_charge"`
	Records    int     `db:"records"`
}

// openSQLite opens (creating if needed) the SQLite file at path and
// applies the schema.
func openSQLite(ctx context.Context, path string) (*sqlx.DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	sdb, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer; modernc serializes anyway.
	sdb.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := sdb.ExecContext(ctx, pragma); err != nil {
			sdb.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := sdb.ExecContext(ctx, sqliteSchema); err != nil {
		sdb.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return sdb, nil
}

// loadToSQLite mirrors loadToPg into a local SQLite file, in a single
// transaction.
func loadToSQLite(ctx context.Context, path string, load pgLoad, log *zap.Logger) error {
	sdb, err := openSQLite(ctx, path)
	if err != nil {
		return err
	}
	defer sdb.Close()

	tx, err := sdb.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := writeSQLite(ctx, tx, load); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	log.Info("loaded into SQLite",
		zap.String("path", path),
		zap.String("run_id", load.RunID.String()),
		zap.Int("records", load.Table.Len()))
	return nil
}

func writeSQLite(ctx context.Context, tx *sqlx.Tx, load pgLoad) error {
	runID := load.RunID.String()

	cols, err := json.Marshal(load.Table.Columns())
	if err != nil {
		return fmt.Errorf("encode columns: %w", err)
	}
	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO load_runs (id, source_file, facility, columns, rows_read, rows_kept, rows_dropped, parse_errors)
		VALUES (:id, :source_file, :facility, :columns, :rows_read, :rows_kept, :rows_dropped, :parse_errors)`,
		sqliteRun{
			ID:          runID,
			SourceFile:  load.SourceFile,
			Facility:    load.Views.Facility,
			Columns:     string(cols),
			RowsRead:    load.Stats.RowsRead,
			RowsKept:    load.Stats.RowsKept,
			RowsDropped: load.Stats.RowsDropped,
			ParseErrors: load.Stats.ParseErrors,
		}); err != nil {
		return fmt.Errorf("insert load run: %w", err)
	}

	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO discharge_records (run_id, row_num, facility, year, discharges, mean_charge, mean_cost, severity, fields)
		VALUES (:run_id, :row_num, :facility, :year, :discharges, :mean_charge, :mean_cost, :severity, :fields)`)
	if err != nil {
		return fmt.Errorf("prepare discharge_records: %w", err)
	}
	defer stmt.Close()
	for i, r := range load.Table.Records() {
		fields, err := json.Marshal(r.Fields)
		if err != nil {
			return fmt.Errorf("encode fields: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, sqliteRecord{
			RunID:      runID,
			RowNum:     i + 1,
			Facility:   r.Facility,
			Year:       r.Year,
			Discharges: r.Discharges,
			MeanCharge: r.MeanCharge,
			MeanCost:   r.MeanCost,
			Severity:   r.Severity,
			Fields:     string(fields),
		}); err != nil {
			return fmt.Errorf("insert record %d: %w", i+1, err)
		}
	}

	return writeSQLiteViews(ctx, tx, runID, load.Views)
}

func writeSQLiteViews(ctx context.Context, tx *sqlx.Tx, runID string, v *discharge.Views) error {
	for _, yt := range v.YearlyTotals {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO yearly_totals (run_id, facility, year, discharges)
			VALUES (:run_id, :facility, :year, :discharges)`,
			sqliteYearlyTotal{runID, yt.Facility, yt.Year, yt.Discharges}); err != nil {
			return fmt.Errorf("insert yearly total %s/%d: %w", yt.Facility, yt.Year, err)
		}
	}
	for i, g := range v.ChargeGaps {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO charge_gaps (run_id, rank, facility, total_gap)
			VALUES (:run_id, :rank, :facility, :total_gap)`,
			sqliteChargeGap{runID, i + 1, g.Facility, g.TotalGap}); err != nil {
			return fmt.Errorf("insert charge gap %q: %w", g.Facility, err)
		}
	}
	for i, p := range v.TimeSeries {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO facility_trend (run_id, seq, facility, year, mean_charge, discharges)
			VALUES (:run_id, :seq, :facility, :year, :mean_charge, :discharges)`,
			sqliteTrendPoint{runID, i + 1, v.Facility, p.Year, p.MeanCharge, p.Discharges}); err != nil {
			return fmt.Errorf("insert trend point %d: %w", p.Year, err)
		}
	}
	for _, s := range v.Severity {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO severity_averages (run_id, severity, mean_cost, mean_charge, records)
			VALUES (:run_id, :severity, :mean_cost, :mean_charge, :records)`,
			sqliteSeverity{runID, s.Severity, s.MeanCost, s.MeanCharge, s.Records}); err != nil {
			return fmt.Errorf("insert severity %q: %w", s.Severity, err)
		}
	}
	return nil
}
