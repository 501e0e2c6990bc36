package main

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"dischargestats/discharge"
)

func TestParquetRoundTrip(t *testing.T) {
	table, _, _ := loadTestData(t)
	if table.Len() != 5 {
		t.Fatalf("table.Len() = %d, want 5", table.Len())
	}

	path := filepath.Join(t.TempDir(), "cleaned.parquet")
	// Batch of 2 forces several Write calls.
	n, err := writeParquet(path, table, 2)
	if err != nil {
		t.Fatalf("writeParquet: %v", err)
	}
	if n != table.Len() {
		t.Errorf("wrote %d rows, want %d", n, table.Len())
	}

	got, err := readParquetTable(path)
	if err != nil {
		t.Fatalf("readParquetTable: %v", err)
	}
	if !reflect.DeepEqual(got.Columns(), table.Columns()) {
		t.Errorf("columns = %v, want %v", got.Columns(), table.Columns())
	}
	if got.Len() != table.Len() {
		t.Fatalf("rows = %d, want %d", got.Len(), table.Len())
	}
	for i := 0; i < table.Len(); i++ {
		if !reflect.DeepEqual(got.Record(i), table.Record(i)) {
			t.Errorf("record %d = %+v, want %+v", i, got.Record(i), table.Record(i))
		}
	}
}

func TestParquetViewsMatchCSV(t *testing.T) {
	table, _, _ := loadTestData(t)
	path := filepath.Join(t.TempDir(), "cleaned.parquet")
	if _, err := writeParquet(path, table, 1000); err != nil {
		t.Fatalf("writeParquet: %v", err)
	}
	reloaded, err := readParquetTable(path)
	if err != nil {
		t.Fatalf("readParquetTable: %v", err)
	}

	want := discharge.ChargeGapRanking(table, discharge.DefaultTopN)
	got := discharge.ChargeGapRanking(reloaded, discharge.DefaultTopN)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ranking after reload = %+v, want %+v", got, want)
	}
	if !reflect.DeepEqual(discharge.YearlyTotals(reloaded), discharge.YearlyTotals(table)) {
		t.Error("yearly totals differ after reload")
	}
}

func TestParquetEmptyTable(t *testing.T) {
	table, err := discharge.NewTable(nil, nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	path := filepath.Join(t.TempDir(), "empty.parquet")
	if _, err := writeParquet(path, table, 10); err != nil {
		t.Fatalf("writeParquet: %v", err)
	}
	got, err := readParquetTable(path)
	if err != nil {
		t.Fatalf("readParquetTable: %v", err)
	}
	if got.Len() != 0 {
		t.Errorf("Len() = %d, want 0", got.Len())
	}
	if !reflect.DeepEqual(got.Columns(), table.Columns()) {
		t.Errorf("columns = %v, want %v", got.Columns(), table.Columns())
	}
}

func TestReadParquetMissingFile(t *testing.T) {
	_, err := readParquetTable(filepath.Join(t.TempDir(), "nope.parquet"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want os.ErrNotExist", err)
	}
}
