// Package normalizer is the public entry point for normalizing school
// immunization coverage datasets. It wires the five-stage pipeline together
// with the CSV source and exposes configuration through functional options.
package normalizer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/baditaflorin/l"
	"github.com/shopspring/decimal"

	"github.com/hohomsf/immunization-etl/internal/adapters/csvsource"
	"github.com/hohomsf/immunization-etl/internal/adapters/logger"
	"github.com/hohomsf/immunization-etl/internal/core/category"
	"github.com/hohomsf/immunization-etl/internal/core/domain"
	"github.com/hohomsf/immunization-etl/internal/core/header"
	"github.com/hohomsf/immunization-etl/internal/core/interval"
	"github.com/hohomsf/immunization-etl/internal/core/numeric"
	"github.com/hohomsf/immunization-etl/internal/core/percent"
	"github.com/hohomsf/immunization-etl/internal/core/pipeline"
	"github.com/hohomsf/immunization-etl/internal/ports"
	"github.com/hohomsf/immunization-etl/internal/warmup"
)

// Dataset is the tabular value consumed and produced by the normalizer.
type Dataset = domain.Dataset

// Value is a single dataset cell.
type Value = domain.Value

// Report describes one normalization run.
type Report = pipeline.Report

// Override forces group labels with a given prefix to a fixed label.
type Override = category.Override

// Normalizer runs the canonical normalization pipeline.
type Normalizer struct {
	pipeline *pipeline.Pipeline
	logger   ports.Logger
}

type config struct {
	Logger         ports.Logger
	Overrides      []Override
	CountColumns   []string
	CoverageColumn string
	IntervalColumn string
	VaccineColumn  string
	WarmUp         bool
	WarmUpConfig   warmup.Config
}

// Option configures a Normalizer.
type Option func(*config)

// WithLogger sets a custom logger.
func WithLogger(lg l.Logger) Option {
	return func(cfg *config) {
		cfg.Logger = logger.FromExisting(lg)
	}
}

func withPortsLogger(lg ports.Logger) Option {
	return func(cfg *config) {
		cfg.Logger = lg
	}
}

// newWithPortsLogger builds a Normalizer over an already adapted logger.
// Used by tests and internal callers that hold a ports.Logger.
func newWithPortsLogger(lg ports.Logger, opts ...Option) (*Normalizer, error) {
	return New(append(opts, withPortsLogger(lg))...)
}

// WithOverride appends a vaccine group override rule applied after the
// generic " - " split.
func WithOverride(prefix, label string) Option {
	return func(cfg *config) {
		cfg.Overrides = append(cfg.Overrides, Override{Prefix: prefix, Label: label})
	}
}

// WithCountColumns sets the canonical count columns to coerce to integers.
func WithCountColumns(columns ...string) Option {
	return func(cfg *config) {
		cfg.CountColumns = columns
	}
}

// WithCoverageColumn sets the canonical name of the fractional coverage
// column to rescale.
func WithCoverageColumn(name string) Option {
	return func(cfg *config) {
		cfg.CoverageColumn = name
	}
}

// WithIntervalColumn sets the canonical name of the interval column to split.
func WithIntervalColumn(name string) Option {
	return func(cfg *config) {
		cfg.IntervalColumn = name
	}
}

// WithVaccineColumn sets the canonical name of the vaccine column the group
// label derives from.
func WithVaccineColumn(name string) Option {
	return func(cfg *config) {
		cfg.VaccineColumn = name
	}
}

// WithWarmUp enables a warmup pass on construction.
func WithWarmUp(enable bool) Option {
	return func(cfg *config) {
		cfg.WarmUp = enable
	}
}

// WithWarmUpConfig sets a custom warmup configuration and enables warmup.
func WithWarmUpConfig(c warmup.Config) Option {
	return func(cfg *config) {
		cfg.WarmUpConfig = c
		cfg.WarmUp = true
	}
}

// New creates a Normalizer. Override prefixes must be pairwise disjoint:
// overrides are applied order-insensitively, which only holds when no prefix
// is a prefix of another.
func New(opts ...Option) (*Normalizer, error) {
	cfg := &config{
		Overrides:      category.DefaultOverrides(),
		CountColumns:   numeric.DefaultColumns,
		CoverageColumn: domain.ColumnPctCoverage,
		IntervalColumn: domain.ColumnCI,
		VaccineColumn:  domain.ColumnVaccine,
		WarmUpConfig:   warmup.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if err := validateOverrides(cfg.Overrides); err != nil {
		return nil, err
	}

	if cfg.Logger == nil {
		lg, err := logger.NewStdLogger()
		if err != nil {
			return nil, err
		}
		cfg.Logger = lg
	}

	stages := []ports.Stage{
		header.NewStage(),
		numeric.NewStage(cfg.CountColumns...),
		percent.NewStage(cfg.CoverageColumn),
		interval.NewStage(cfg.IntervalColumn),
		category.NewStage(cfg.VaccineColumn, cfg.Overrides),
	}
	p, err := pipeline.New(cfg.Logger, stages...)
	if err != nil {
		return nil, err
	}

	if cfg.WarmUp {
		manager := warmup.NewManager(cfg.Logger, cfg.WarmUpConfig)
		for _, st := range stages {
			manager.Register(st)
		}
		manager.WarmUp(context.Background())
	}

	return &Normalizer{pipeline: p, logger: cfg.Logger}, nil
}

// Normalize runs the pipeline over an in-memory dataset.
func (n *Normalizer) Normalize(ctx context.Context, ds Dataset) (Dataset, *Report, error) {
	return n.pipeline.Run(ctx, ds)
}

// NormalizeCSV loads a CSV stream with a header row and runs the pipeline
// over it.
func (n *Normalizer) NormalizeCSV(ctx context.Context, r io.Reader) (Dataset, *Report, error) {
	src := csvsource.New(r, csvsource.WithLogger(n.logger))
	ds, err := src.Load(ctx)
	if err != nil {
		return Dataset{}, nil, err
	}
	return n.pipeline.Run(ctx, ds)
}

func validateOverrides(overrides []Override) error {
	for i, a := range overrides {
		if a.Prefix == "" {
			return fmt.Errorf("override %d has an empty prefix", i)
		}
		for _, b := range overrides[i+1:] {
			if strings.HasPrefix(a.Prefix, b.Prefix) || strings.HasPrefix(b.Prefix, a.Prefix) {
				return fmt.Errorf("override prefixes %q and %q are not disjoint", a.Prefix, b.Prefix)
			}
		}
	}
	return nil
}

// NewDataset creates an empty dataset with the given column names.
func NewDataset(columns []string) Dataset {
	return domain.New(columns)
}

// FromRows builds a dataset from decoded JSON rows: nil becomes null,
// numbers become decimals (or integers when whole), strings stay strings.
func FromRows(columns []string, rows [][]interface{}) (Dataset, error) {
	ds := domain.New(columns)
	for i, row := range rows {
		cells := make([]Value, len(row))
		for j, raw := range row {
			v, err := fromJSONValue(raw)
			if err != nil {
				return Dataset{}, fmt.Errorf("row %d column %d: %w", i, j, err)
			}
			cells[j] = v
		}
		if err := ds.AppendRow(cells); err != nil {
			return Dataset{}, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return ds, nil
}

// FromRecords builds a dataset from string records using the same
// schema-on-read inference as the CSV source.
func FromRecords(columns []string, records [][]string) (Dataset, error) {
	ds := domain.New(columns)
	for i, record := range records {
		cells := make([]Value, len(record))
		for j, field := range record {
			cells[j] = csvsource.Infer(field)
		}
		if err := ds.AppendRow(cells); err != nil {
			return Dataset{}, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return ds, nil
}

func fromJSONValue(raw interface{}) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return domain.Null(), nil
	case string:
		return domain.NewString(t), nil
	case float64:
		d := decimal.NewFromFloat(t)
		if d.IsInteger() {
			return domain.NewInt(d.IntPart()), nil
		}
		return domain.NewDecimal(d), nil
	case int:
		return domain.NewInt(int64(t)), nil
	case int64:
		return domain.NewInt(t), nil
	default:
		return domain.Null(), fmt.Errorf("unsupported value type %T", raw)
	}
}
