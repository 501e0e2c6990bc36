package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"dischargestats/discharge"
)

func main() {
	cfg, err := loadConfig(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, logger, os.Stdout); err != nil {
		logger.Fatal("discharge_loader failed", zap.Error(err))
	}
}

// newLogger builds a JSON production logger or a console development
// logger at the given level.
func newLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewDevelopmentConfig()
	if format == "json" {
		zc = zap.NewProductionConfig()
	}
	zc.Level = lvl
	return zc.Build()
}

// run loads the input, derives the views and writes every requested
// output.
func run(ctx context.Context, cfg *Config, log *zap.Logger, stdout io.Writer) error {
	start := time.Now()

	isParquet := strings.EqualFold(filepath.Ext(cfg.File), ".parquet")
	format := "CSV"
	if isParquet {
		format = "Parquet"
	}

	fmt.Fprintf(stdout, "Input:   %s\n", cfg.File)
	fmt.Fprintf(stdout, "Format:  %s\n", format)
	fi, _ := os.Stat(cfg.File)
	if fi != nil && fi.Size() > 0 {
		fmt.Fprintf(stdout, "Size:    %.1f MB\n", float64(fi.Size())/1024/1024)
	}
	fmt.Fprintln(stdout)

	table, stats, err := loadInput(cfg, isParquet, log)
	if err != nil {
		return err
	}

	views, err := discharge.BuildViews(ctx, table, cfg.Facility, cfg.TopN)
	if err != nil {
		return fmt.Errorf("build views: %w", err)
	}
	if cfg.Facility != "" && len(views.TimeSeries) == 0 {
		log.Warn("facility has no records", zap.String("facility", cfg.Facility))
	}

	var outputs []string

	if !isParquet && cfg.Out != "-" {
		out := cfg.Out
		if out == "" {
			base := strings.TrimSuffix(filepath.Base(cfg.File), filepath.Ext(cfg.File))
			out = base + ".parquet"
		}
		batch := cfg.Batch
		if batch == 0 {
			batch = 10000
		}
		n, err := writeParquet(out, table, batch)
		if err != nil {
			return fmt.Errorf("write Parquet: %w", err)
		}
		outputs = append(outputs, fmt.Sprintf("Parquet:  %s (%d rows)", out, n))
	}

	load := pgLoad{
		RunID:      uuid.New(),
		SourceFile: cfg.File,
		Table:      table,
		Stats:      stats,
		Views:      views,
		BatchSize:  cfg.Batch,
	}
	if cfg.PG != "" {
		if err := loadToPg(ctx, cfg.PG, load, log); err != nil {
			return fmt.Errorf("load PostgreSQL: %w", err)
		}
		outputs = append(outputs, fmt.Sprintf("Postgres: run %s", load.RunID))
	}
	if cfg.SQLite != "" {
		if err := loadToSQLite(ctx, cfg.SQLite, load, log); err != nil {
			return fmt.Errorf("load SQLite: %w", err)
		}
		outputs = append(outputs, fmt.Sprintf("SQLite:   %s (run %s)", cfg.SQLite, load.RunID))
	}
	if cfg.ChartsDir != "" {
		paths, err := writeCharts(cfg.ChartsDir, views)
		if err != nil {
			return fmt.Errorf("write charts: %w", err)
		}
		outputs = append(outputs, fmt.Sprintf("Charts:   %d in %s", len(paths), cfg.ChartsDir))
	}
	if cfg.XLSX != "" {
		if err := writeWorkbook(cfg.XLSX, cfg.File, stats, views); err != nil {
			return fmt.Errorf("write workbook: %w", err)
		}
		outputs = append(outputs, fmt.Sprintf("Workbook: %s", cfg.XLSX))
	}
	if cfg.Preview {
		if err := writePreview(stdout, views); err != nil {
			return fmt.Errorf("preview: %w", err)
		}
		fmt.Fprintln(stdout)
	}

	printSummary(stdout, time.Since(start), stats, views, outputs)
	return nil
}

// loadInput reads a CSV export, or a Parquet file written by a previous
// run. Parquet input is already clean, so every row counts as kept.
func loadInput(cfg *Config, isParquet bool, log *zap.Logger) (*discharge.Table, discharge.LoadStats, error) {
	if isParquet {
		start := time.Now()
		table, err := readParquetTable(cfg.File)
		if err != nil {
			return nil, discharge.LoadStats{}, fmt.Errorf("read Parquet: %w", err)
		}
		n := int64(table.Len())
		return table, discharge.LoadStats{RowsRead: n, RowsKept: n, Elapsed: time.Since(start)}, nil
	}

	opts, err := cfg.options()
	if err != nil {
		return nil, discharge.LoadStats{}, err
	}
	opts.Logger = log
	table, stats, err := discharge.Load(cfg.File, opts)
	if err != nil {
		return nil, stats, fmt.Errorf("load CSV: %w", err)
	}
	return table, stats, nil
}

func printSummary(w io.Writer, elapsed time.Duration, stats discharge.LoadStats, v *discharge.Views, outputs []string) {
	fmt.Fprintf(w, "Done in %s\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "  Rows read:      %d\n", stats.RowsRead)
	fmt.Fprintf(w, "  Rows kept:      %d\n", stats.RowsKept)
	fmt.Fprintf(w, "  Rows dropped:   %d\n", stats.RowsDropped)
	fmt.Fprintf(w, "  Parse errors:   %d\n", stats.ParseErrors)

	if len(stats.NullsByColumn) > 0 {
		cols := lo.Keys(stats.NullsByColumn)
		sort.Strings(cols)
		fmt.Fprintf(w, "  Nulls by column:\n")
		for _, c := range cols {
			fmt.Fprintf(w, "    %-36s %d\n", c, stats.NullsByColumn[c])
		}
	}

	fmt.Fprintf(w, "  Yearly totals:  %d\n", len(v.YearlyTotals))
	fmt.Fprintf(w, "  Charge gaps:    %d\n", len(v.ChargeGaps))
	fmt.Fprintf(w, "  Trend points:   %d (%s)\n", len(v.TimeSeries), v.Facility)
	fmt.Fprintf(w, "  Severity rows:  %d\n", len(v.Severity))

	for _, o := range outputs {
		fmt.Fprintf(w, "  %s\n", o)
	}
}
