package discharge

import (
	"fmt"
	"strings"
)

// LoadError reports an input file that could not be opened, decoded or
// parsed as delimited text. It is fatal for the run.
type LoadError struct {
	Path string
	Row  int64 // 0 when the failure is not tied to a row
	Err  error
}

func (e *LoadError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("load %s: row %d: %v", e.Path, e.Row, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ParseError reports a cell that could not be coerced to a number.
// Load recovers from it by nulling the cell.
type ParseError struct {
	Row    int64
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: column %s: parse %q: %v", e.Row, e.Column, e.Value, e.Err)
	}
	return fmt.Sprintf("parse %q: %v", e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError reports a header that cannot be mapped onto canonical
// column names: a normalization collision, a name that normalizes to
// nothing, or a required column that is absent.
type SchemaError struct {
	Canonical string
	Sources   []string
	Reason    string
}

func (e *SchemaError) Error() string {
	if len(e.Sources) > 0 {
		return fmt.Sprintf("schema: column %q: %s (source columns: %s)",
			e.Canonical, e.Reason, strings.Join(e.Sources, ", "))
	}
	return fmt.Sprintf("schema: column %q: %s", e.Canonical, e.Reason)
}
