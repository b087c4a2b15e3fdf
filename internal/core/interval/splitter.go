// Package interval splits the textual confidence interval column, formatted
// as "<lower>-<upper>", into two fixed-point bound columns and drops the
// original column.
package interval

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hohomsf/immunization-etl/internal/core/domain"
	"github.com/hohomsf/immunization-etl/internal/core/stage"
	"github.com/hohomsf/immunization-etl/internal/ports"
)

// Split separates an interval cell into its lower and upper bounds, each a
// decimal rounded to one fractional digit. A string lacking the "-"
// separator yields a null upper bound; a segment that fails to parse yields
// a null for that bound.
//
// The split is on the first "-", which is ambiguous when a bound is itself
// negative: "-5.0-10.0" splits into "" and "5.0-10.0" and both bounds come
// back null. Interval bounds in this dataset are coverage percentages and
// never negative, so the first-separator policy is kept and pinned by test.
func Split(v domain.Value) (lower, upper domain.Value) {
	switch v.Kind() {
	case domain.KindString:
		parts := strings.SplitN(v.Str(), "-", 2)
		lower = parseBound(parts[0])
		if len(parts) == 2 {
			upper = parseBound(parts[1])
		} else {
			upper = domain.Null()
		}
		return lower, upper
	case domain.KindDecimal:
		// Loaders infer a separator-less interval such as "80.0" as a
		// plain decimal; treat it as a lower bound with no upper bound.
		return domain.NewDecimal(v.Decimal().Round(1)), domain.Null()
	case domain.KindInt:
		return domain.NewDecimal(decimal.NewFromInt(v.Int()).Round(1)), domain.Null()
	default:
		return domain.Null(), domain.Null()
	}
}

func parseBound(s string) domain.Value {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return domain.Null()
	}
	return domain.NewDecimal(d.Round(1))
}

// NewStage returns the pipeline stage deriving lower_95_pct_ci and
// upper_95_pct_ci from the named interval column, both from the original
// string, then dropping it. An empty name selects the canonical 95_pct_ci
// column.
func NewStage(source string) ports.Stage {
	if source == "" {
		source = domain.ColumnCI
	}
	derived := []string{domain.ColumnLowerCI, domain.ColumnUpperCI}
	return stage.Derive("split_confidence_interval", source, derived,
		func(v domain.Value) []domain.Value {
			lower, upper := Split(v)
			return []domain.Value{lower, upper}
		}, true)
}
