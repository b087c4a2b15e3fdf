package stream

import (
	"context"
	"encoding/csv"
	"io"
	"sync"

	"github.com/hohomsf/immunization-etl/internal/core/domain"
)

type batchJob struct {
	seq     int
	records [][]string
}

type batchResult struct {
	seq  int
	rows [][]domain.Value
}

// processParallel fans record batches out to workers and re-emits the
// transformed rows in input order. Row transforms are independent of one
// another, so only the emit side needs sequencing.
func (p *Processor) processParallel(ctx context.Context, cr *csv.Reader, prog *rowProgram, emit EmitFunc) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan batchJob, p.workers)
	results := make(chan batchResult, p.workers)

	var readErr error
	go func() {
		defer close(jobs)
		for seq := 0; ; seq++ {
			records := make([][]string, 0, p.batchSize)
			for len(records) < p.batchSize {
				record, err := cr.Read()
				if err == io.EOF {
					break
				}
				if err != nil {
					readErr = err
					break
				}
				records = append(records, record)
			}
			if len(records) == 0 {
				return
			}
			select {
			case jobs <- batchJob{seq: seq, records: records}:
			case <-ctx.Done():
				return
			}
			if readErr != nil || len(records) < p.batchSize {
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				rows := make([][]domain.Value, len(job.records))
				for i, record := range job.records {
					rows[i] = prog.transform(record)
				}
				select {
				case results <- batchResult{seq: job.seq, rows: rows}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	// Reassemble batches in sequence order before emitting.
	emitted := 0
	next := 0
	pending := make(map[int][][]domain.Value)
	for res := range results {
		pending[res.seq] = res.rows
		for rows, ok := pending[next]; ok; rows, ok = pending[next] {
			delete(pending, next)
			for _, row := range rows {
				if err := emit(prog.outColumns, row); err != nil {
					return emitted, err
				}
				emitted++
			}
			next++
		}
	}

	if readErr != nil {
		return emitted, readErr
	}
	return emitted, ctx.Err()
}
