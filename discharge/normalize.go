package discharge

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeName maps a source column name to its canonical form:
// lowercase, every run of non-alphanumeric characters collapsed to a
// single underscore, no leading or trailing underscore.
//
//	"APR Severity of Illness Description" → "apr_severity_of_illness_description"
//	"  Mean Charge ($) "                  → "mean_charge"
func NormalizeName(name string) string {
	s := strings.ToLower(strings.TrimPrefix(name, "\ufeff"))
	s = nonAlnumRe.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// NormalizeNames normalizes a header row. Two distinct source columns
// that land on the same canonical name would be silently merged by every
// later lookup, so that is reported as a *SchemaError instead.
func NormalizeNames(columns []string) ([]string, error) {
	out := make([]string, len(columns))
	seen := make(map[string]int, len(columns))
	for i, col := range columns {
		c := NormalizeName(col)
		if c == "" {
			return nil, &SchemaError{
				Canonical: c,
				Sources:   []string{col},
				Reason:    "normalizes to an empty name",
			}
		}
		if j, ok := seen[c]; ok {
			return nil, &SchemaError{
				Canonical: c,
				Sources:   []string{columns[j], col},
				Reason:    "collision after normalization",
			}
		}
		seen[c] = i
		out[i] = c
	}
	return out, nil
}

var numberReplacer = strings.NewReplacer(",", "", "$", "", " ", "", "\u00a0", "")

// CoerceNumber strips thousands separators and currency symbols from s
// and parses what remains. "1,234" → 1234.
func CoerceNumber(s string) (float64, error) {
	cleaned := numberReplacer.Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return 0, &ParseError{Value: s, Err: errors.New("empty value")}
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, &ParseError{Value: s, Err: err}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &ParseError{Value: s, Err: errors.New("not a finite number")}
	}
	return f, nil
}

// defaultNullTokens mirrors the NA markers recognised by common dataframe
// CSV readers, so files exported from spreadsheets clean the same way.
var defaultNullTokens = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

// DefaultNullTokens returns a copy of the tokens treated as missing values.
func DefaultNullTokens() []string {
	out := make([]string, len(defaultNullTokens))
	copy(out, defaultNullTokens)
	return out
}

type nullSet map[string]struct{}

func newNullSet(tokens []string) nullSet {
	if tokens == nil {
		tokens = defaultNullTokens
	}
	set := make(nullSet, len(tokens)+1)
	set[""] = struct{}{}
	for _, t := range tokens {
		set[strings.TrimSpace(t)] = struct{}{}
	}
	return set
}

func (s nullSet) isNull(v string) bool {
	_, ok := s[strings.TrimSpace(v)]
	return ok
}
