package discharge

import (
	"errors"
	"testing"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Facility Name", "facility_name"},
		{"APR Severity of Illness Description", "apr_severity_of_illness_description"},
		{"  Mean Charge ($) ", "mean_charge"},
		{"Year", "year"},
		{"__already_canonical__", "already_canonical"},
		{"CCS--Diagnosis   Code", "ccs_diagnosis_code"},
		{"\ufeffFacility Id", "facility_id"},
		{"discharges", "discharges"},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeNameIdempotent(t *testing.T) {
	inputs := []string{
		"Facility Name", "Mean Charge ($)", "a__b", "_x_", "Ünïcode Column",
		"APR DRG Code", "123 Numbers 456", "tab\tseparated", "", "---",
	}
	for _, in := range inputs {
		once := NormalizeName(in)
		twice := NormalizeName(once)
		if once != twice {
			t.Errorf("NormalizeName not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestNormalizeNamesCollision(t *testing.T) {
	_, err := NormalizeNames([]string{"Mean Charge", "mean_charge", "Year"})
	if err == nil {
		t.Fatal("expected collision error")
	}
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SchemaError, got %T: %v", err, err)
	}
	if se.Canonical != "mean_charge" {
		t.Errorf("Canonical = %q, want mean_charge", se.Canonical)
	}
	if len(se.Sources) != 2 || se.Sources[0] != "Mean Charge" || se.Sources[1] != "mean_charge" {
		t.Errorf("Sources = %v", se.Sources)
	}
}

func TestNormalizeNamesEmpty(t *testing.T) {
	_, err := NormalizeNames([]string{"Year", "???"})
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SchemaError, got %v", err)
	}
}

func TestNormalizeNamesDistinct(t *testing.T) {
	got, err := NormalizeNames([]string{"Facility Name", "Year", "Discharges"})
	if err != nil {
		t.Fatalf("NormalizeNames: %v", err)
	}
	want := []string{"facility_name", "year", "discharges"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("col %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCoerceNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1,234", 1234},
		{"1,234,567", 1234567},
		{" 42 ", 42},
		{"$12,345.67", 12345.67},
		{"0", 0},
		{"-3.5", -3.5},
	}
	for _, tt := range tests {
		got, err := CoerceNumber(tt.in)
		if err != nil {
			t.Errorf("CoerceNumber(%q): %v", tt.in, err)
			continue
		}
		if !approxEqual(got, tt.want) {
			t.Errorf("CoerceNumber(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCoerceNumberInvalid(t *testing.T) {
	for _, in := range []string{"abc", "", "12abc", "NaN", "Inf", "1.2.3"} {
		_, err := CoerceNumber(in)
		if err == nil {
			t.Errorf("CoerceNumber(%q): expected error", in)
			continue
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("CoerceNumber(%q): expected *ParseError, got %T", in, err)
		}
	}
}

func TestNullSet(t *testing.T) {
	s := newNullSet(nil)
	for _, v := range []string{"", "  ", "NA", "N/A", "NaN", "null", "NULL", "None", "<NA>"} {
		if !s.isNull(v) {
			t.Errorf("isNull(%q) = false, want true", v)
		}
	}
	for _, v := range []string{"0", "Minor", "1,234", "na"} {
		if s.isNull(v) {
			t.Errorf("isNull(%q) = true, want false", v)
		}
	}

	custom := newNullSet([]string{"-"})
	if !custom.isNull("-") || !custom.isNull("") {
		t.Error("custom null set should match '-' and empty")
	}
	if custom.isNull("NA") {
		t.Error("custom null set should not match NA")
	}
}
