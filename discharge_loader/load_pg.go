package main

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"dischargestats/discharge"
	"dischargestats/discharge_loader/db"
)

// pgLoad describes one load of a cleaned table and its views.
type pgLoad struct {
	RunID      uuid.UUID
	SourceFile string
	Table      *discharge.Table
	Stats      discharge.LoadStats
	Views      *discharge.Views
	BatchSize  int
}

// loadToPg writes the cleaned records (COPY, batchSize rows per
// transaction) and then the four views in one final transaction.
func loadToPg(ctx context.Context, connStr string, load pgLoad, log *zap.Logger) error {
	start := time.Now()

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return fmt.Errorf("parse connection: %w", err)
	}
	poolConfig.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	log.Info("connected to PostgreSQL")

	if err := db.InitSchema(ctx, pool); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	return writeLoad(ctx, pool, load, log.With(zap.String("run_id", load.RunID.String())), start)
}

// writeLoad commits records batch by batch. If it fails after the first
// commit, the run is deleted so no partial run is left behind.
func writeLoad(ctx context.Context, pool *pgxpool.Pool, load pgLoad, log *zap.Logger, start time.Time) (err error) {
	runID := pgtype.UUID{Bytes: load.RunID, Valid: true}
	committed := false
	defer func() {
		if err == nil || !committed {
			return
		}
		if derr := db.New(pool).DeleteLoadRun(context.WithoutCancel(ctx), runID); derr != nil {
			log.Error("remove partial load run", zap.Error(derr))
			return
		}
		log.Warn("removed partial load run", zap.Error(err))
	}()
	batchSize := load.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}

	var (
		tx pgx.Tx
		q  *db.Queries
	)

	// beginTx starts a new transaction and creates a Queries wrapper.
	beginTx := func() error {
		t, err := pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		tx, q = t, db.New(t)
		return nil
	}

	if err := beginTx(); err != nil {
		return err
	}

	if err := q.InsertLoadRun(ctx, db.InsertLoadRunParams{
		ID:          runID,
		SourceFile:  sanitizeUTF8(load.SourceFile),
		Facility:    sanitizeUTF8(load.Views.Facility),
		Columns:     load.Table.Columns(),
		RowsRead:    load.Stats.RowsRead,
		RowsKept:    load.Stats.RowsKept,
		RowsDropped: load.Stats.RowsDropped,
		ParseErrors: load.Stats.ParseErrors,
	}); err != nil {
		tx.Rollback(ctx)
		return fmt.Errorf("insert load run: %w", err)
	}

	records := load.Table.Records()
	pending := make([]db.InsertDischargeRecordsParams, 0, batchSize)
	var copied int64
	lastLog := time.Now()

	// flush bulk-inserts the pending records via COPY and commits.
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		n, err := q.InsertDischargeRecords(ctx, pending)
		if err != nil {
			return fmt.Errorf("copy discharge_records: %w", err)
		}
		copied += n
		pending = pending[:0]
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		committed = true
		return beginTx()
	}

	for i, r := range records {
		fields := make([]string, len(r.Fields))
		for j, f := range r.Fields {
			fields[j] = sanitizeUTF8(f)
		}
		pending = append(pending, db.InsertDischargeRecordsParams{
			RunID:      runID,
			RowNum:     int32(i + 1),
			Facility:   sanitizeUTF8(r.Facility),
			Year:       int32(r.Year),
			Discharges: floatToNumeric(r.Discharges),
			MeanCharge: floatToNumeric(r.MeanCharge),
			MeanCost:   floatToNumeric(r.MeanCost),
			Severity:   sanitizeUTF8(r.Severity),
			Fields:     fields,
		})
		if len(pending) >= batchSize {
			if err := flush(); err != nil {
				tx.Rollback(ctx)
				return err
			}
		}

		if time.Since(lastLog) >= 5*time.Second {
			elapsed := time.Since(start).Seconds()
			fmt.Printf("  progress: %d/%d records (%.0f rows/s)\n",
				copied, len(records), float64(copied)/elapsed)
			lastLog = time.Now()
		}
	}
	if len(pending) > 0 {
		n, err := q.InsertDischargeRecords(ctx, pending)
		if err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("copy discharge_records: %w", err)
		}
		copied += n
	}

	if err := insertViews(ctx, q, runID, load.Views); err != nil {
		tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("final commit: %w", err)
	}

	log.Info("loaded into PostgreSQL",
		zap.Int64("records", copied),
		zap.Int("yearly_totals", len(load.Views.YearlyTotals)),
		zap.Int("charge_gaps", len(load.Views.ChargeGaps)),
		zap.Int("trend_points", len(load.Views.TimeSeries)),
		zap.Int("severity_rows", len(load.Views.Severity)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func insertViews(ctx context.Context, q *db.Queries, runID pgtype.UUID, v *discharge.Views) error {
	totals := make([]db.InsertYearlyTotalsParams, len(v.YearlyTotals))
	for i, yt := range v.YearlyTotals {
		totals[i] = db.InsertYearlyTotalsParams{
			RunID:      runID,
			Facility:   sanitizeUTF8(yt.Facility),
			Year:       int32(yt.Year),
			Discharges: floatToNumeric(yt.Discharges),
		}
	}
	if _, err := q.InsertYearlyTotals(ctx, totals); err != nil {
		return fmt.Errorf("copy yearly_totals: %w", err)
	}

	for i, g := range v.ChargeGaps {
		if err := q.InsertChargeGap(ctx, db.InsertChargeGapParams{
			RunID:    runID,
			Rank:     int32(i + 1),
			Facility: sanitizeUTF8(g.Facility),
			TotalGap: floatToNumeric(g.TotalGap),
		}); err != nil {
			return fmt.Errorf("insert charge gap %q: %w", g.Facility, err)
		}
	}

	for i, p := range v.TimeSeries {
		if err := q.InsertFacilityTrendPoint(ctx, db.InsertFacilityTrendPointParams{
			RunID:      runID,
			Seq:        int32(i + 1),
			Facility:   sanitizeUTF8(v.Facility),
			Year:       int32(p.Year),
			MeanCharge: floatToNumeric(p.MeanCharge),
			Discharges: floatToNumeric(p.Discharges),
		}); err != nil {
			return fmt.Errorf("insert trend point %d: %w", p.Year, err)
		}
	}

	for _, s := range v.Severity {
		if err := q.InsertSeverityAverage(ctx, db.InsertSeverityAverageParams{
			RunID:      runID,
			Severity:   sanitizeUTF8(s.Severity),
			MeanCost:   floatToNumeric(s.MeanCost),
			MeanCharge: floatToNumeric(s.MeanCharge),
			Records:    int32(s.Records),
		}); err != nil {
			return fmt.Errorf("insert severity %q: %w", s.Severity, err)
		}
	}
	return nil
}

// sanitizeUTF8 replaces invalid UTF-8 bytes with spaces.
func sanitizeUTF8(s string) string {
	return strings.ToValidUTF8(s, " ")
}

// pgtype helpers

func floatToNumeric(f float64) pgtype.Numeric {
	bf := big.NewFloat(f)
	text := bf.Text('f', -1)
	var num pgtype.Numeric
	num.Scan(text)
	return num
}
