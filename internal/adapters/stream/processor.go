// Package stream normalizes CSV input row by row, without materializing the
// whole dataset. The five pipeline stages are all row-local once the header
// has been canonicalized, so a single pass can apply them per record and
// hand canonical rows to a callback. Rows within a batch are independent,
// which also permits the parallel variant.
package stream

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/hohomsf/immunization-etl/internal/adapters/csvsource"
	"github.com/hohomsf/immunization-etl/internal/core/category"
	"github.com/hohomsf/immunization-etl/internal/core/domain"
	"github.com/hohomsf/immunization-etl/internal/core/header"
	"github.com/hohomsf/immunization-etl/internal/core/interval"
	"github.com/hohomsf/immunization-etl/internal/core/numeric"
	"github.com/hohomsf/immunization-etl/internal/core/percent"
	"github.com/hohomsf/immunization-etl/internal/pool"
	"github.com/hohomsf/immunization-etl/internal/ports"
)

// DefaultBatchSize is the number of records processed per batch.
const DefaultBatchSize = 512

// EmitFunc receives one canonical row. The columns slice is shared across
// calls and must not be retained or modified.
type EmitFunc func(columns []string, row []domain.Value) error

// Processor streams CSV records through the row-local normalization steps.
type Processor struct {
	logger    ports.Logger
	overrides []category.Override

	countColumns   []string
	coverageColumn string
	intervalColumn string
	vaccineColumn  string

	batchSize int
	workers   int
	batchPool *pool.RecordBatchPool
}

// Option configures a Processor.
type Option func(*Processor)

// WithBatchSize sets the records-per-batch count.
func WithBatchSize(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithWorkers enables parallel batch processing with n workers. Values
// below 2 keep the sequential path.
func WithWorkers(n int) Option {
	return func(p *Processor) {
		p.workers = n
	}
}

// WithOverrides sets the vaccine group override rules.
func WithOverrides(overrides []category.Override) Option {
	return func(p *Processor) {
		p.overrides = overrides
	}
}

// NewProcessor creates a streaming processor.
func NewProcessor(logger ports.Logger, opts ...Option) *Processor {
	p := &Processor{
		logger:         logger,
		overrides:      category.DefaultOverrides(),
		countColumns:   numeric.DefaultColumns,
		coverageColumn: domain.ColumnPctCoverage,
		intervalColumn: domain.ColumnCI,
		vaccineColumn:  domain.ColumnVaccine,
		batchSize:      DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.batchPool = pool.NewRecordBatchPool(p.batchSize)
	return p
}

// Process reads CSV from r and emits every canonical row. It returns the
// number of rows emitted. Structural problems (no header, an expected column
// missing, malformed CSV) abort with an error; malformed cell values degrade
// to nulls exactly like the in-memory pipeline.
func (p *Processor) Process(ctx context.Context, r io.Reader, emit EmitFunc) (int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if err == io.EOF {
		return 0, fmt.Errorf("input has no header row")
	}
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}

	prog, err := compile(head, p)
	if err != nil {
		return 0, err
	}
	p.logger.Debug("Compiled streaming row program",
		"columns", len(prog.outColumns),
		"batch_size", p.batchSize,
		"workers", p.workers,
	)

	if p.workers > 1 {
		return p.processParallel(ctx, cr, prog, emit)
	}
	return p.processSequential(ctx, cr, prog, emit)
}

func (p *Processor) processSequential(ctx context.Context, cr *csv.Reader, prog *rowProgram, emit EmitFunc) (int, error) {
	emitted := 0
	batch := p.batchPool.Get()
	defer p.batchPool.Put(batch)

	for {
		n, err := readBatch(cr, batch, p.batchSize)
		if n == 0 && err == io.EOF {
			break
		}
		if err != nil && err != io.EOF {
			return emitted, err
		}

		select {
		case <-ctx.Done():
			return emitted, ctx.Err()
		default:
		}

		for _, record := range *batch {
			row := prog.transform(record)
			if emitErr := emit(prog.outColumns, row); emitErr != nil {
				return emitted, emitErr
			}
			emitted++
		}
		*batch = (*batch)[:0]

		if err == io.EOF {
			break
		}
	}
	return emitted, nil
}

// readBatch fills batch with up to limit records, reusing its backing
// storage. Returns the number read and io.EOF when the input is exhausted.
func readBatch(cr *csv.Reader, batch *[][]string, limit int) (int, error) {
	for len(*batch) < limit {
		record, err := cr.Read()
		if err == io.EOF {
			return len(*batch), io.EOF
		}
		if err != nil {
			return len(*batch), fmt.Errorf("read record: %w", err)
		}
		*batch = append(*batch, record)
	}
	return len(*batch), nil
}

// rowProgram holds the column positions resolved once per stream, so the
// per-record transform is a straight array walk.
type rowProgram struct {
	outColumns []string
	countIdx   []int
	coverIdx   int
	ciIdx      int
	vaccineIdx int
	overrides  []category.Override
}

func compile(rawHeader []string, p *Processor) (*rowProgram, error) {
	canonical := make([]string, len(rawHeader))
	for i, h := range rawHeader {
		canonical[i] = header.Canonicalize(csvsource.CleanHeader(h))
	}

	prog := &rowProgram{overrides: p.overrides}

	index := func(name string) (int, error) {
		for i, c := range canonical {
			if c == name {
				return i, nil
			}
		}
		return 0, &domain.SchemaError{Column: name}
	}

	var err error
	for _, c := range p.countColumns {
		idx, err := index(c)
		if err != nil {
			return nil, err
		}
		prog.countIdx = append(prog.countIdx, idx)
	}
	if prog.coverIdx, err = index(p.coverageColumn); err != nil {
		return nil, err
	}
	if prog.ciIdx, err = index(p.intervalColumn); err != nil {
		return nil, err
	}
	if prog.vaccineIdx, err = index(p.vaccineColumn); err != nil {
		return nil, err
	}

	for i, c := range canonical {
		if i == prog.ciIdx {
			continue
		}
		prog.outColumns = append(prog.outColumns, c)
	}
	prog.outColumns = append(prog.outColumns,
		domain.ColumnLowerCI, domain.ColumnUpperCI, domain.ColumnVaccineGroup)
	return prog, nil
}

// transform applies the row-local stages to one raw record in canonical
// stage order: coercion, rescaling, interval split, grouping.
func (prog *rowProgram) transform(record []string) []domain.Value {
	cells := make([]domain.Value, len(record))
	for i, field := range record {
		cells[i] = csvsource.Infer(field)
	}

	for _, idx := range prog.countIdx {
		cells[idx] = numeric.Coerce(cells[idx])
	}
	cells[prog.coverIdx] = percent.Rescale(cells[prog.coverIdx])
	lower, upper := interval.Split(cells[prog.ciIdx])

	group := domain.Null()
	if v := cells[prog.vaccineIdx]; v.Kind() == domain.KindString {
		group = domain.NewString(category.Group(v.Str(), prog.overrides))
	}

	out := make([]domain.Value, 0, len(prog.outColumns))
	for i, v := range cells {
		if i == prog.ciIdx {
			continue
		}
		out = append(out, v)
	}
	return append(out, lower, upper, group)
}
