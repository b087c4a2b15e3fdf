// Package pipeline runs an ordered chain of normalization stages over a
// dataset. Stage order is strict: each stage observes the fully materialized
// output of the previous one, since later stages assume column names and
// types only guaranteed after renaming and coercion.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hohomsf/immunization-etl/internal/core/category"
	"github.com/hohomsf/immunization-etl/internal/core/domain"
	"github.com/hohomsf/immunization-etl/internal/core/header"
	"github.com/hohomsf/immunization-etl/internal/core/interval"
	"github.com/hohomsf/immunization-etl/internal/core/numeric"
	"github.com/hohomsf/immunization-etl/internal/core/percent"
	"github.com/hohomsf/immunization-etl/internal/ports"
)

// StageTiming records one stage execution inside a run report.
type StageTiming struct {
	Stage    string
	Duration time.Duration
	Rows     int
}

// Report describes a single pipeline run. The pipeline itself holds no state
// across runs; everything observable about a run lives here.
type Report struct {
	RunID     uuid.UUID
	StartedAt time.Time
	Duration  time.Duration
	Rows      int
	Stages    []StageTiming
}

// Pipeline is the ordered stage chain.
type Pipeline struct {
	stages []ports.Stage
	logger ports.Logger
}

// New creates a pipeline from the given stages, run in argument order.
func New(logger ports.Logger, stages ...ports.Stage) (*Pipeline, error) {
	if logger == nil {
		return nil, errors.New("logger must not be nil")
	}
	if len(stages) == 0 {
		return nil, errors.New("pipeline needs at least one stage")
	}
	return &Pipeline{stages: stages, logger: logger}, nil
}

// DefaultStages returns the five canonical stages in dependency order:
// header canonicalization, count coercion, coverage rescaling, interval
// splitting and vaccine grouping. The grouping stage depends on nothing the
// middle stages produce but is ordered last by convention.
func DefaultStages(overrides []category.Override) []ports.Stage {
	return []ports.Stage{
		header.NewStage(),
		numeric.NewStage(),
		percent.NewStage(""),
		interval.NewStage(""),
		category.NewStage("", overrides),
	}
}

// Default creates the canonical five-stage pipeline.
func Default(logger ports.Logger) (*Pipeline, error) {
	return New(logger, DefaultStages(nil)...)
}

// Run applies every stage in order and returns the normalized dataset with a
// run report. A stage error aborts the run; per-cell failures never surface
// here, they degrade to null inside the stages.
func (p *Pipeline) Run(ctx context.Context, ds domain.Dataset) (domain.Dataset, *Report, error) {
	report := &Report{
		RunID:     uuid.New(),
		StartedAt: time.Now().UTC(),
		Stages:    make([]StageTiming, 0, len(p.stages)),
	}

	p.logger.Info("Starting normalization run",
		"run_id", report.RunID.String(),
		"rows", ds.NumRows(),
		"stages", len(p.stages),
	)

	for _, st := range p.stages {
		select {
		case <-ctx.Done():
			p.logger.Error("Run cancelled", "run_id", report.RunID.String(), "error", ctx.Err())
			return domain.Dataset{}, nil, ctx.Err()
		default:
		}

		stageStart := time.Now()
		out, err := st.Apply(ctx, ds)
		if err != nil {
			p.logger.Error("Stage failed",
				"run_id", report.RunID.String(),
				"stage", st.Name(),
				"error", err,
			)
			return domain.Dataset{}, nil, fmt.Errorf("stage %s: %w", st.Name(), err)
		}

		timing := StageTiming{Stage: st.Name(), Duration: time.Since(stageStart), Rows: out.NumRows()}
		report.Stages = append(report.Stages, timing)
		p.logger.Debug("Stage completed",
			"run_id", report.RunID.String(),
			"stage", st.Name(),
			"rows", timing.Rows,
			"duration", timing.Duration,
		)
		ds = out
	}

	report.Rows = ds.NumRows()
	report.Duration = time.Since(report.StartedAt)
	p.logger.Info("Normalization run completed",
		"run_id", report.RunID.String(),
		"rows", report.Rows,
		"duration", report.Duration,
	)
	return ds, report, nil
}
