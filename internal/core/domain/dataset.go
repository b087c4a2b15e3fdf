// Package domain holds the tabular data model shared by all pipeline stages:
// nullable cell values, the in-memory dataset and the canonical output schema
// of a normalized school immunization record.
package domain

import (
	"fmt"
	"strings"
)

// Canonical column names of a fully normalized record, in output order.
const (
	ColumnYear         = "year"
	ColumnZone         = "zone"
	ColumnVaccine      = "vaccine"
	ColumnNoEligible   = "no_eligible"
	ColumnNoImmunized  = "no_immunized"
	ColumnPctCoverage  = "pct_coverage"
	ColumnLowerCI      = "lower_95_pct_ci"
	ColumnUpperCI      = "upper_95_pct_ci"
	ColumnVaccineGroup = "vaccine_group"

	// ColumnCI is the textual interval column consumed by the range splitter.
	ColumnCI = "95_pct_ci"
)

// CanonicalColumns lists the post-pipeline schema in order.
var CanonicalColumns = []string{
	ColumnYear,
	ColumnZone,
	ColumnVaccine,
	ColumnNoEligible,
	ColumnNoImmunized,
	ColumnPctCoverage,
	ColumnLowerCI,
	ColumnUpperCI,
	ColumnVaccineGroup,
}

// CanonicalKinds gives the cell kind of each canonical column, index-aligned
// with CanonicalColumns.
var CanonicalKinds = []Kind{
	KindInt,
	KindString,
	KindString,
	KindInt,
	KindInt,
	KindDecimal,
	KindDecimal,
	KindDecimal,
	KindString,
}

// Dataset is an ordered set of named columns with heterogeneously typed rows.
// Stages never mutate a dataset in place; each stage builds a fresh one from
// its input.
type Dataset struct {
	columns []string
	rows    [][]Value
}

// New creates an empty dataset with the given column names.
func New(columns []string) Dataset {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return Dataset{columns: cols}
}

// Columns returns a copy of the column names in order.
func (d Dataset) Columns() []string {
	cols := make([]string, len(d.columns))
	copy(cols, d.columns)
	return cols
}

// NumColumns returns the number of columns.
func (d Dataset) NumColumns() int {
	return len(d.columns)
}

// NumRows returns the number of rows.
func (d Dataset) NumRows() int {
	return len(d.rows)
}

// ColumnIndex returns the position of the named column.
func (d Dataset) ColumnIndex(name string) (int, bool) {
	for i, c := range d.columns {
		if c == name {
			return i, true
		}
	}
	return 0, false
}

// Row returns a copy of row i.
func (d Dataset) Row(i int) []Value {
	row := make([]Value, len(d.rows[i]))
	copy(row, d.rows[i])
	return row
}

// Cell returns the value at row i in the named column.
func (d Dataset) Cell(i int, column string) (Value, bool) {
	idx, ok := d.ColumnIndex(column)
	if !ok {
		return Null(), false
	}
	return d.rows[i][idx], true
}

// AppendRow adds a row to the dataset. The cell count must match the schema.
func (d *Dataset) AppendRow(cells []Value) error {
	if len(cells) != len(d.columns) {
		return fmt.Errorf("row has %d cells, schema has %d columns", len(cells), len(d.columns))
	}
	row := make([]Value, len(cells))
	copy(row, cells)
	d.rows = append(d.rows, row)
	return nil
}

// RenameColumns returns a dataset with the same rows and new column names.
// The name count must match the existing schema.
func (d Dataset) RenameColumns(names []string) (Dataset, error) {
	if len(names) != len(d.columns) {
		return Dataset{}, fmt.Errorf("got %d names for %d columns", len(names), len(d.columns))
	}
	cols := make([]string, len(names))
	copy(cols, names)
	return Dataset{columns: cols, rows: d.rows}, nil
}

// Schema renders the column names and inferred kinds, one line per column.
// The kind is taken from the first non-null cell in each column.
func (d Dataset) Schema() string {
	var sb strings.Builder
	for i, c := range d.columns {
		kind := KindNull
		for _, row := range d.rows {
			if !row[i].IsNull() {
				kind = row[i].Kind()
				break
			}
		}
		fmt.Fprintf(&sb, " |-- %s: %s\n", c, kind)
	}
	return sb.String()
}

// ColumnKind reports the kind of the first non-null cell in the named column.
func (d Dataset) ColumnKind(column string) (Kind, bool) {
	idx, ok := d.ColumnIndex(column)
	if !ok {
		return KindNull, false
	}
	for _, row := range d.rows {
		if !row[idx].IsNull() {
			return row[idx].Kind(), true
		}
	}
	return KindNull, true
}

// SchemaError reports a column the pipeline expects but the input lacks.
// This is the only fatal error class a stage produces; malformed cell values
// degrade to null instead.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("column %q not present in dataset schema", e.Column)
}
