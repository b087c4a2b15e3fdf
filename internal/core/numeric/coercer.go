// Package numeric coerces count columns to integers, stripping the ","
// digit-group separators found in the raw data ("1,234" -> 1234).
package numeric

import (
	"strconv"
	"strings"

	"github.com/hohomsf/immunization-etl/internal/core/domain"
	"github.com/hohomsf/immunization-etl/internal/core/stage"
	"github.com/hohomsf/immunization-etl/internal/ports"
)

// DefaultColumns are the count columns coerced by the canonical pipeline.
var DefaultColumns = []string{domain.ColumnNoImmunized, domain.ColumnNoEligible}

// Coerce converts a cell to an integer value. A value that does not parse as
// an integer after separator removal becomes null, never an error.
func Coerce(v domain.Value) domain.Value {
	switch v.Kind() {
	case domain.KindInt:
		return v
	case domain.KindDecimal:
		return domain.NewInt(v.Decimal().IntPart())
	case domain.KindString:
		s := strings.ReplaceAll(strings.TrimSpace(v.Str()), ",", "")
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return domain.Null()
		}
		return domain.NewInt(n)
	default:
		return domain.Null()
	}
}

// NewStage returns the pipeline stage coercing the given count columns.
// With no columns it coerces DefaultColumns.
func NewStage(columns ...string) ports.Stage {
	if len(columns) == 0 {
		columns = DefaultColumns
	}
	return stage.Map("coerce_counts", columns, Coerce)
}
