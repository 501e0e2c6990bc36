package discharge

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// CSVReader streams a delimited discharge file one row at a time. The
// header row is read and normalized on open; data rows come back padded
// to the header width.
type CSVReader struct {
	path    string
	file    *os.File
	csv     *csv.Reader
	rowNum  int64
	source  []string       // header as found in the file
	headers []string       // canonical names
	colIdx  map[string]int // canonical name → column index
}

// NewCSVReader opens path and reads its header row. Only Comma and
// Encoding are taken from opts.
func NewCSVReader(path string, opts Options) (*CSVReader, error) {
	dec, err := lookupEncoding(opts.Encoding)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	var src io.Reader = file
	if dec != nil {
		src = transform.NewReader(file, dec.NewDecoder())
	}
	bufReader := bufio.NewReaderSize(src, 256*1024)

	// Skip UTF-8 BOM if present
	bom, err := bufReader.Peek(3)
	if err == nil && len(bom) >= 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		bufReader.Discard(3)
	}

	reader := csv.NewReader(bufReader)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}

	r := &CSVReader{
		path: path,
		file: file,
		csv:  reader,
	}

	if err := r.readHeader(); err != nil {
		file.Close()
		return nil, err
	}
	return r, nil
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return nil, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1, nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", name)
}

func (r *CSVReader) readHeader() error {
	row, err := r.csv.Read()
	if err == io.EOF {
		return &LoadError{Path: r.path, Err: errors.New("empty file: no header row")}
	}
	if err != nil {
		return &LoadError{Path: r.path, Row: 1, Err: fmt.Errorf("read header: %w", err)}
	}
	r.rowNum++
	if len(row) > 0 {
		row[0] = strings.TrimPrefix(row[0], "\ufeff")
	}

	r.source = make([]string, len(row))
	for i, h := range row {
		if !utf8.ValidString(h) {
			return &LoadError{Path: r.path, Row: 1, Err: fmt.Errorf("header column %d: invalid UTF-8 (wrong input encoding?)", i+1)}
		}
		r.source[i] = strings.TrimSpace(h)
	}

	r.headers, err = NormalizeNames(r.source)
	if err != nil {
		return err
	}
	r.colIdx = make(map[string]int, len(r.headers))
	for i, h := range r.headers {
		r.colIdx[h] = i
	}
	return nil
}

// Next returns the next non-empty data row, padded with empty cells to
// the header width. A row wider than the header means the delimiter or
// quoting is off, and is reported as a *LoadError, as is a cell that is
// not valid UTF-8 after decoding.
// Returns nil, io.EOF when done.
func (r *CSVReader) Next() ([]string, error) {
	for {
		row, err := r.csv.Read()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, &LoadError{Path: r.path, Row: r.rowNum + 1, Err: err}
		}
		r.rowNum++

		// Skip empty rows
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		if len(row) > len(r.headers) {
			return nil, &LoadError{
				Path: r.path,
				Row:  r.rowNum,
				Err:  fmt.Errorf("expected %d fields, saw %d", len(r.headers), len(row)),
			}
		}

		out := make([]string, len(r.headers))
		for i, v := range row {
			if !utf8.ValidString(v) {
				return nil, &LoadError{
					Path: r.path,
					Row:  r.rowNum,
					Err:  fmt.Errorf("column %s: invalid UTF-8 (wrong input encoding?)", r.headers[i]),
				}
			}
			out[i] = strings.TrimSpace(v)
		}
		return out, nil
	}
}

// Headers returns the canonical column names.
func (r *CSVReader) Headers() []string {
	out := make([]string, len(r.headers))
	copy(out, r.headers)
	return out
}

// SourceHeaders returns the header row as it appears in the file.
func (r *CSVReader) SourceHeaders() []string {
	out := make([]string, len(r.source))
	copy(out, r.source)
	return out
}

// Index returns the position of a canonical column, or -1.
func (r *CSVReader) Index(column string) int {
	if i, ok := r.colIdx[column]; ok {
		return i
	}
	return -1
}

// RowNum returns the current row number (1-based, header included).
func (r *CSVReader) RowNum() int64 {
	return r.rowNum
}

func (r *CSVReader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}
