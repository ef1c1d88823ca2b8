// Package validation checks request inputs and reports quality problems in loaded tables.
package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shiro46mt/jp-medicine-master/catalog"
	"github.com/shiro46mt/jp-medicine-master/errs"
	"github.com/shiro46mt/jp-medicine-master/logging"
	"github.com/shiro46mt/jp-medicine-master/table"
)

// sampleSize bounds the row numbers kept per problem in a report.
const sampleSize = 10

// Format is a table output format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// QualityReport summarizes one loaded table.
type QualityReport struct {
	Kind      catalog.Kind `json:"kind"`
	Source    string       `json:"source"`
	Rows      int          `json:"rows"`
	KeyColumn string       `json:"key_column"`

	// KeyColumnMissing is set when the file does not carry the key column at all.
	KeyColumnMissing bool `json:"key_column_missing"`

	DuplicateKeys   []string `json:"duplicate_keys"`
	MissingKeys     int      `json:"missing_keys"`
	MissingKeyRows  []int    `json:"missing_key_rows"` // first rows only, 1-based
	EmptyColumns    []string `json:"empty_columns"`
	NullNumberCells int      `json:"null_number_cells"`
}

// OK reports whether no problem was found.
func (r *QualityReport) OK() bool {
	return !r.KeyColumnMissing && len(r.DuplicateKeys) == 0 && r.MissingKeys == 0 && len(r.EmptyColumns) == 0
}

// DataValidator validates inputs and tables. It holds no state.
type DataValidator struct{}

func NewDataValidator() *DataValidator {
	return &DataValidator{}
}

// ValidateKind checks a dataset name before it reaches the catalog.
func (v *DataValidator) ValidateKind(input string) (catalog.Kind, error) {
	if len(input) > 32 {
		return "", fmt.Errorf("%w: dataset name too long", errs.ErrUnknownDatasetKind)
	}
	for _, r := range input {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return "", fmt.Errorf("%w: %q contains invalid characters", errs.ErrUnknownDatasetKind, input)
		}
	}
	return catalog.ParseKind(input)
}

// ValidateYear parses a 4-digit year given as a path segment or argument.
func (v *DataValidator) ValidateYear(input string) (int, error) {
	trimmed := strings.TrimSpace(input)
	if len(trimmed) != 4 || len(input) != len(trimmed) {
		return 0, fmt.Errorf("%w: year must have 4 digits, got %q", errs.ErrInvalidSelector, input)
	}
	y, err := strconv.Atoi(trimmed)
	if err != nil || y < 1900 {
		return 0, fmt.Errorf("%w: year must have 4 digits, got %q", errs.ErrInvalidSelector, input)
	}
	return y, nil
}

// ValidateFormat accepts json or csv; empty means json.
func (v *DataValidator) ValidateFormat(input string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(input))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: format must be json or csv, got %q", errs.ErrInvalidSelector, input)
}

// ValidateFlag parses a boolean query flag ("1", "true", ...); empty means false.
func (v *DataValidator) ValidateFlag(name, input string) (bool, error) {
	if input == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(input)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean, got %q", errs.ErrInvalidSelector, name, input)
	}
	return b, nil
}

// ReportTableQuality inspects t for duplicated or missing keys and columns that are empty
// in every row.
func (v *DataValidator) ReportTableQuality(t *table.Table) *QualityReport {
	spec, _ := catalog.Spec(t.Kind)

	report := &QualityReport{
		Kind:           t.Kind,
		Source:         t.Source,
		Rows:           t.Len(),
		KeyColumn:      spec.KeyColumn,
		DuplicateKeys:  []string{},
		MissingKeyRows: []int{},
		EmptyColumns:   []string{},
	}

	if spec.KeyColumn == "" || !t.HasColumn(spec.KeyColumn) {
		report.KeyColumnMissing = true
	} else {
		seen := make(map[string]int, t.Len())
		for i, r := range t.Rows {
			key := r.Get(spec.KeyColumn)
			if key.IsNull() {
				report.MissingKeys++
				if len(report.MissingKeyRows) < sampleSize {
					report.MissingKeyRows = append(report.MissingKeyRows, i+1)
				}
				continue
			}
			seen[key.String()]++
			if seen[key.String()] == 2 {
				report.DuplicateKeys = append(report.DuplicateKeys, key.String())
			}
		}
	}

	numeric := make(map[string]bool)
	for _, n := range spec.Numeric {
		numeric[n.Name] = true
	}
	for _, col := range t.Columns {
		empty := true
		for _, r := range t.Rows {
			if r.Get(col).IsNull() {
				if numeric[col] {
					report.NullNumberCells++
				}
				continue
			}
			empty = false
		}
		if empty && t.Len() > 0 {
			report.EmptyColumns = append(report.EmptyColumns, col)
		}
	}

	return report
}

// LogReport writes the problems of report at warn level.
func LogReport(report *QualityReport) {
	if report.KeyColumnMissing {
		logging.Warn("Key column missing", "kind", report.Kind, "source", report.Source, "column", report.KeyColumn)
	}
	if len(report.DuplicateKeys) > 0 {
		logging.Warn("Duplicate keys detected",
			"kind", report.Kind,
			"source", report.Source,
			"total", len(report.DuplicateKeys),
			"keys", report.DuplicateKeys,
		)
	}
	if report.MissingKeys > 0 {
		logging.Warn("Rows without a key",
			"kind", report.Kind,
			"source", report.Source,
			"count", report.MissingKeys,
			"rows", report.MissingKeyRows,
		)
	}
	if len(report.EmptyColumns) > 0 {
		logging.Warn("Columns empty in every row", "kind", report.Kind, "source", report.Source, "columns", report.EmptyColumns)
	}
}
