// Package csvsource loads a delimited text file into an in-memory dataset
// with schema-on-read semantics: the first record is the header row and each
// cell's kind is inferred per value (int, then decimal, then string).
package csvsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/hohomsf/immunization-etl/internal/core/domain"
	"github.com/hohomsf/immunization-etl/internal/ports"
)

// Source reads a dataset from delimited text.
type Source struct {
	reader    io.Reader
	logger    ports.Logger
	delimiter rune
}

// Option configures a Source.
type Option func(*Source)

// WithDelimiter sets the field delimiter. The default is a comma.
func WithDelimiter(r rune) Option {
	return func(s *Source) {
		s.delimiter = r
	}
}

// WithLogger sets the logger used for load traces.
func WithLogger(l ports.Logger) Option {
	return func(s *Source) {
		s.logger = l
	}
}

// New creates a CSV source reading from r.
func New(r io.Reader, opts ...Option) *Source {
	s := &Source{reader: r, delimiter: ','}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the header row and every record into a dataset. Header names
// are NFKC-normalized with a leading BOM stripped; values keep their raw
// shape for the pipeline to canonicalize.
func (s *Source) Load(ctx context.Context) (domain.Dataset, error) {
	r := csv.NewReader(s.reader)
	r.Comma = s.delimiter
	r.TrimLeadingSpace = true

	head, err := r.Read()
	if err == io.EOF {
		return domain.Dataset{}, errors.New("input has no header row")
	}
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("read header: %w", err)
	}
	for i, h := range head {
		head[i] = CleanHeader(h)
	}

	ds := domain.New(head)
	row := make([]domain.Value, len(head))
	for line := 1; ; line++ {
		if line%1024 == 0 {
			select {
			case <-ctx.Done():
				return domain.Dataset{}, ctx.Err()
			default:
			}
		}

		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.Dataset{}, fmt.Errorf("read record %d: %w", line, err)
		}
		for i, field := range record {
			row[i] = Infer(field)
		}
		if err := ds.AppendRow(row); err != nil {
			return domain.Dataset{}, fmt.Errorf("record %d: %w", line, err)
		}
	}

	if s.logger != nil {
		s.logger.Debug("Loaded dataset",
			"columns", ds.NumColumns(),
			"rows", ds.NumRows(),
		)
	}
	return ds, nil
}

// CleanHeader prepares one raw header label: strips a UTF-8 BOM, applies
// NFKC normalization and trims surrounding whitespace.
func CleanHeader(h string) string {
	h = strings.TrimPrefix(h, "\uFEFF")
	h = norm.NFKC.String(h)
	return strings.TrimSpace(h)
}

// Infer reads one field with schema-on-read typing: empty becomes null, then
// int, then decimal, falling back to the raw string. Values with digit-group
// separators such as "1,200" stay strings for the coercion stage.
func Infer(field string) domain.Value {
	trimmed := strings.TrimSpace(field)
	if trimmed == "" {
		return domain.Null()
	}
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return domain.NewInt(n)
	}
	if d, err := decimal.NewFromString(trimmed); err == nil {
		return domain.NewDecimal(d)
	}
	return domain.NewString(field)
}
