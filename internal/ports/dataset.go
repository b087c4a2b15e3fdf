package ports

import (
	"context"

	"github.com/hohomsf/immunization-etl/internal/core/domain"
)

// Source loads a tabular dataset from an external representation, such as a
// delimited text file with a header row.
type Source interface {
	Load(ctx context.Context) (domain.Dataset, error)
}

// Sink persists a dataset under a table name with overwrite semantics: saving
// to an existing table replaces its contents entirely.
type Sink interface {
	Save(ctx context.Context, table string, ds domain.Dataset) error
}
