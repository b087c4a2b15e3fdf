// Package stage provides the generic building blocks the concrete pipeline
// stages are assembled from: whole-dataset rename, per-column map and
// column-derivation stages built around pure value functions.
package stage

import (
	"context"

	"github.com/hohomsf/immunization-etl/internal/core/domain"
	"github.com/hohomsf/immunization-etl/internal/ports"
)

// MapFunc transforms a single cell. Implementations must be total: a value
// that cannot be transformed comes back as domain.Null(), never as an error.
type MapFunc func(domain.Value) domain.Value

// DeriveFunc derives new cells from a single source cell. It returns one
// value per derived column and must be total in the same sense as MapFunc.
type DeriveFunc func(domain.Value) []domain.Value

// Rename returns a stage that rewrites every column name through fn,
// preserving count and order. Rows are untouched.
func Rename(name string, fn func(string) string) ports.Stage {
	return renameStage{name: name, fn: fn}
}

type renameStage struct {
	name string
	fn   func(string) string
}

func (s renameStage) Name() string { return s.name }

func (s renameStage) Apply(_ context.Context, ds domain.Dataset) (domain.Dataset, error) {
	cols := ds.Columns()
	for i, c := range cols {
		cols[i] = s.fn(c)
	}
	return ds.RenameColumns(cols)
}

// Map returns a stage that applies fn to every cell of the named columns.
// Unlisted columns pass through unchanged. A named column missing from the
// schema is a *domain.SchemaError.
func Map(name string, columns []string, fn MapFunc) ports.Stage {
	return mapStage{name: name, columns: columns, fn: fn}
}

type mapStage struct {
	name    string
	columns []string
	fn      MapFunc
}

func (s mapStage) Name() string { return s.name }

func (s mapStage) Apply(_ context.Context, ds domain.Dataset) (domain.Dataset, error) {
	targets := make([]int, len(s.columns))
	for i, c := range s.columns {
		idx, ok := ds.ColumnIndex(c)
		if !ok {
			return domain.Dataset{}, &domain.SchemaError{Column: c}
		}
		targets[i] = idx
	}

	out := domain.New(ds.Columns())
	for i := 0; i < ds.NumRows(); i++ {
		row := ds.Row(i)
		for _, idx := range targets {
			row[idx] = s.fn(row[idx])
		}
		if err := out.AppendRow(row); err != nil {
			return domain.Dataset{}, err
		}
	}
	return out, nil
}

// Derive returns a stage that computes the derived columns from the source
// column, appending them after the existing schema. When dropSource is true
// the source column is removed after both derivations, which only happens
// once every derived cell of the row has been produced from the original
// value. A missing source column is a *domain.SchemaError.
func Derive(name, source string, derived []string, fn DeriveFunc, dropSource bool) ports.Stage {
	return deriveStage{name: name, source: source, derived: derived, fn: fn, dropSource: dropSource}
}

type deriveStage struct {
	name       string
	source     string
	derived    []string
	fn         DeriveFunc
	dropSource bool
}

func (s deriveStage) Name() string { return s.name }

func (s deriveStage) Apply(_ context.Context, ds domain.Dataset) (domain.Dataset, error) {
	srcIdx, ok := ds.ColumnIndex(s.source)
	if !ok {
		return domain.Dataset{}, &domain.SchemaError{Column: s.source}
	}

	cols := make([]string, 0, ds.NumColumns()+len(s.derived))
	for i, c := range ds.Columns() {
		if s.dropSource && i == srcIdx {
			continue
		}
		cols = append(cols, c)
	}
	cols = append(cols, s.derived...)

	out := domain.New(cols)
	for i := 0; i < ds.NumRows(); i++ {
		in := ds.Row(i)
		derived := s.fn(in[srcIdx])

		row := make([]domain.Value, 0, len(cols))
		for j, v := range in {
			if s.dropSource && j == srcIdx {
				continue
			}
			row = append(row, v)
		}
		row = append(row, derived...)
		if err := out.AppendRow(row); err != nil {
			return domain.Dataset{}, err
		}
	}
	return out, nil
}
