package db

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type LoadRun struct {
	ID          pgtype.UUID
	SourceFile  string
	Facility    string
	Columns     []string
	RowsRead    int64
	RowsKept    int64
	RowsDropped int64
	ParseErrors int64
	LoadedAt    pgtype.Timestamptz
}

type YearlyTotal struct {
	Facility   string
	Year       int32
	Discharges pgtype.Numeric
}

type ChargeGap struct {
	Rank     int32
	Facility string
	TotalGap pgtype.Numeric
}

type FacilityTrendPoint struct {
	Seq        int32
	Facility   string
	Year       int32
	MeanCharge pgtype.Numeric
	Discharges pgtype.Numeric
}

type SeverityAverage struct {
	Severity   string
	MeanCost   pgtype.Numeric
	MeanCharge pgtype.Numeric
	Records    int32
}
