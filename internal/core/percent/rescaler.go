// Package percent rescales the fractional coverage column from a 0-1 scale
// onto the 0-100 scale used by the confidence interval bounds, with one
// fixed decimal digit of precision.
package percent

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hohomsf/immunization-etl/internal/core/domain"
	"github.com/hohomsf/immunization-etl/internal/core/stage"
	"github.com/hohomsf/immunization-etl/internal/ports"
)

var hundred = decimal.NewFromInt(100)

// Rescale multiplies a fractional value by 100 and rounds to one decimal
// digit. Null stays null. Values above 1 are rescaled like any other; this
// stage performs no validation.
func Rescale(v domain.Value) domain.Value {
	switch v.Kind() {
	case domain.KindDecimal:
		return domain.NewDecimal(v.Decimal().Mul(hundred).Round(1))
	case domain.KindInt:
		return domain.NewDecimal(decimal.NewFromInt(v.Int()).Mul(hundred).Round(1))
	case domain.KindString:
		d, err := decimal.NewFromString(strings.TrimSpace(v.Str()))
		if err != nil {
			return domain.Null()
		}
		return domain.NewDecimal(d.Mul(hundred).Round(1))
	default:
		return domain.Null()
	}
}

// NewStage returns the pipeline stage rescaling the named coverage column.
// An empty name selects the canonical pct_coverage column.
func NewStage(column string) ports.Stage {
	if column == "" {
		column = domain.ColumnPctCoverage
	}
	return stage.Map("rescale_coverage", []string{column}, Rescale)
}
