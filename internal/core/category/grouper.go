// Package category derives the coarse vaccine_group label from the
// fine-grained vaccine name. Vaccine names mostly follow the pattern
// "<group> - <variant>", but a few groups use "-" inside the group token
// itself and need an explicit override so they keep a single label.
package category

import (
	"strings"

	"github.com/hohomsf/immunization-etl/internal/core/domain"
	"github.com/hohomsf/immunization-etl/internal/core/stage"
	"github.com/hohomsf/immunization-etl/internal/ports"
)

// separator delimits the group from the variant in a vaccine name.
const separator = " - "

// Override forces every derived group label starting with Prefix to the
// exact Label. Overrides are applied after the generic split and are
// order-insensitive as long as prefixes are disjoint.
type Override struct {
	Prefix string
	Label  string
}

// DefaultOverrides returns the canonical override list. MEN-C vaccines carry
// "-" inside the group token, so the generic split would leave variants such
// as "MEN-C-ACYW135" as distinct groups.
func DefaultOverrides() []Override {
	return []Override{
		{Prefix: "MEN-C", Label: "MEN-C"},
	}
}

// Group derives the group label for one vaccine name: the segment before the
// first " - " separator, or the whole name when no separator is present,
// then any matching override. It never fails.
func Group(name string, overrides []Override) string {
	group := name
	if i := strings.Index(name, separator); i >= 0 {
		group = name[:i]
	}
	for _, o := range overrides {
		if strings.HasPrefix(group, o.Prefix) {
			return o.Label
		}
	}
	return group
}

// NewStage returns the pipeline stage deriving vaccine_group from the named
// vaccine column, which is kept. An empty name selects the canonical vaccine
// column; nil overrides select DefaultOverrides.
func NewStage(source string, overrides []Override) ports.Stage {
	if source == "" {
		source = domain.ColumnVaccine
	}
	if overrides == nil {
		overrides = DefaultOverrides()
	}
	return stage.Derive("derive_vaccine_group", source, []string{domain.ColumnVaccineGroup},
		func(v domain.Value) []domain.Value {
			if v.Kind() != domain.KindString {
				return []domain.Value{domain.Null()}
			}
			return []domain.Value{domain.NewString(Group(v.Str(), overrides))}
		}, false)
}
