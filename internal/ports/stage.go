package ports

import (
	"context"

	"github.com/hohomsf/immunization-etl/internal/core/domain"
)

// Stage is one step of the normalization pipeline. Apply consumes the
// previous stage's dataset and produces a new one; it must not mutate its
// input. Per-cell failures degrade to null values, so the only error a stage
// returns is a structural one such as *domain.SchemaError.
type Stage interface {
	// Name identifies the stage in logs and reports.
	Name() string
	// Apply runs the stage over the whole dataset.
	Apply(ctx context.Context, ds domain.Dataset) (domain.Dataset, error)
}
