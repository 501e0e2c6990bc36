package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"dischargestats/discharge"
)

// RecordWriter writes cleaned discharge records to a Parquet file.
//
// Zstd at default speed keeps files small with cheap decode. Cleaned
// tables are small enough that a single row group is the norm; the 8KB
// page size still gives engines page-level min/max skip on year.
type RecordWriter struct {
	file   *os.File
	writer *parquet.GenericWriter[DischargeRow]
	count  int
}

// NewRecordWriter creates filename and records columns in the file
// metadata so the table can be rebuilt by readParquetTable.
func NewRecordWriter(filename string, columns []string) (*RecordWriter, error) {
	cols, err := json.Marshal(columns)
	if err != nil {
		return nil, fmt.Errorf("encode columns: %w", err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create parquet file: %w", err)
	}

	writer := parquet.NewGenericWriter[DischargeRow](file,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedDefault}),
		parquet.PageBufferSize(8*1024),
		parquet.DataPageStatistics(true),
		parquet.KeyValueMetadata(columnsMetaKey, string(cols)),
		parquet.CreatedBy("discharge_loader", "1.0", ""),
	)

	return &RecordWriter{
		file:   file,
		writer: writer,
	}, nil
}

// Write converts and writes a batch of records.
func (w *RecordWriter) Write(records []discharge.Record) (int, error) {
	rows := make([]DischargeRow, len(records))
	for i, r := range records {
		row, err := toRow(r)
		if err != nil {
			return 0, err
		}
		rows[i] = row
	}
	n, err := w.writer.Write(rows)
	w.count += n
	if err != nil {
		return n, fmt.Errorf("write parquet rows: %w", err)
	}
	return n, nil
}

// Close flushes the final row group and closes the file.
func (w *RecordWriter) Close() error {
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return w.file.Close()
}

// Count returns the total number of rows written.
func (w *RecordWriter) Count() int {
	return w.count
}

// writeParquet writes the whole table in batches of batchSize.
func writeParquet(path string, table *discharge.Table, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 10000
	}
	w, err := NewRecordWriter(path, table.Columns())
	if err != nil {
		return 0, err
	}
	records := table.Records()
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		if _, err := w.Write(records[start:end]); err != nil {
			w.Close()
			return w.Count(), err
		}
	}
	if err := w.Close(); err != nil {
		return w.Count(), err
	}
	return w.Count(), nil
}

// readParquetTable rebuilds a cleaned table from a file written by
// RecordWriter. Files without column metadata load with the default key
// columns only.
func readParquetTable(path string) (*discharge.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat parquet: %w", err)
	}

	pf, err := parquet.OpenFile(f, fi.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}
	var columns []string
	if meta, ok := pf.Lookup(columnsMetaKey); ok {
		if err := json.Unmarshal([]byte(meta), &columns); err != nil {
			return nil, fmt.Errorf("decode %s metadata: %w", columnsMetaKey, err)
		}
	}

	reader := parquet.NewGenericReader[DischargeRow](f)
	defer reader.Close()

	const readBatch = 8192
	buf := make([]DischargeRow, readBatch)
	records := make([]discharge.Record, 0, reader.NumRows())
	for {
		n, readErr := reader.Read(buf)
		for i := 0; i < n; i++ {
			r, err := fromRow(buf[i])
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", len(records)+1, err)
			}
			if columns == nil {
				r.Fields = nil
			}
			records = append(records, r)
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return nil, fmt.Errorf("read parquet: %w", readErr)
		}
	}

	table, err := discharge.NewTable(columns, records)
	if err != nil {
		return nil, fmt.Errorf("rebuild table: %w", err)
	}
	return table, nil
}
