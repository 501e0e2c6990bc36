package main

import (
	"errors"
	"io"
	"strings"
	"testing"

	"dischargestats/discharge"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig([]string{"-file", "in.csv"}, io.Discard)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.File != "in.csv" || cfg.TopN != discharge.DefaultTopN || cfg.Delim != "," ||
		cfg.Encoding != "utf-8" || cfg.Drop != "any" || cfg.LogLevel != "info" || cfg.LogFormat != "console" {
		t.Errorf("defaults = %+v", cfg)
	}
	opts, err := cfg.options()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Comma != ',' || opts.DropScope != discharge.DropAnyColumn {
		t.Errorf("options = %+v", opts)
	}
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("DISCHARGE_FILE", "env.csv")
	t.Setenv("DISCHARGE_TOP_N", "5")
	t.Setenv("DISCHARGE_DROP_SCOPE", "KEY")
	t.Setenv("DISCHARGE_DELIM", "tab")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := loadConfig(nil, io.Discard)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.File != "env.csv" || cfg.TopN != 5 || cfg.Delim != "\t" || cfg.LogFormat != "json" {
		t.Errorf("cfg = %+v", cfg)
	}
	opts, err := cfg.options()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Comma != '\t' || opts.DropScope != discharge.DropKeyColumns {
		t.Errorf("options = %+v", opts)
	}

	// Flags win over the environment.
	cfg, err = loadConfig([]string{"-top", "3", "-file", "flag.csv"}, io.Discard)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.File != "flag.csv" || cfg.TopN != 3 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
		want string
	}{
		{"zero top", []string{"-file", "a.csv", "-top", "0"}, nil, "TopN"},
		{"bad encoding", []string{"-file", "a.csv", "-encoding", "ebcdic"}, nil, "Encoding"},
		{"long delimiter", []string{"-file", "a.csv", "-delim", ";;"}, nil, "Delim"},
		{"bad drop scope", []string{"-file", "a.csv", "-drop", "some"}, nil, "Drop"},
		{"bad workbook name", []string{"-file", "a.csv", "-xlsx", "out.csv"}, nil, "XLSX"},
		{"bad log level", []string{"-file", "a.csv", "-log-level", "loud"}, nil, "LogLevel"},
		{"bad env int", []string{"-file", "a.csv"}, map[string]string{"DISCHARGE_BATCH": "many"}, "DISCHARGE_BATCH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := loadConfig(tt.args, io.Discard)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestLoadConfigNoFile(t *testing.T) {
	t.Setenv("DISCHARGE_FILE", "")
	var usage strings.Builder
	_, err := loadConfig(nil, &usage)
	if !errors.Is(err, errUsage) {
		t.Fatalf("err = %v, want errUsage", err)
	}
	if !strings.Contains(usage.String(), "Usage:") {
		t.Errorf("usage not printed: %q", usage.String())
	}
}
