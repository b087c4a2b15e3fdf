// Command etl normalizes a school immunization coverage CSV and persists the
// canonical table to a SQLite database, replacing any previous contents of
// the table. The -stream flag normalizes row by row instead of materializing
// the dataset, which keeps memory flat for large inputs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/baditaflorin/l"

	"github.com/hohomsf/immunization-etl/internal/adapters/logger"
	"github.com/hohomsf/immunization-etl/internal/adapters/sqlitesink"
	"github.com/hohomsf/immunization-etl/internal/adapters/stream"
	"github.com/hohomsf/immunization-etl/internal/core/domain"
	"github.com/hohomsf/immunization-etl/pkg/normalizer"
)

func main() {
	input := flag.String("input", "", "Input CSV file (required)")
	dbPath := flag.String("db", "immunization.db", "SQLite database path")
	table := flag.String("table", sqlitesink.DefaultTable, "Destination table name")
	streaming := flag.Bool("stream", false, "Normalize row by row instead of in memory")
	workers := flag.Int("workers", 1, "Streaming worker count (with -stream)")
	verbose := flag.Bool("verbose", false, "Print the canonical schema and row count")
	flag.Parse()

	if *input == "" {
		flag.Usage()
		os.Exit(2)
	}

	lg, err := l.NewStandardFactory().CreateLogger(l.Config{
		Output:      os.Stderr,
		JsonFormat:  false,
		AsyncWrite:  false,
		BufferSize:  64 * 1024,
		MaxFileSize: 10 * 1024 * 1024,
		MaxBackups:  5,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Close()

	if err := run(context.Background(), lg, *input, *dbPath, *table, *streaming, *workers, *verbose); err != nil {
		lg.Error("ETL failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, lg l.Logger, input, dbPath, table string, streaming bool, workers int, verbose bool) error {
	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	sink, err := sqlitesink.Open(dbPath, sqlitesink.WithLogger(logger.FromExisting(lg)))
	if err != nil {
		return err
	}
	defer sink.Close()

	if streaming {
		return runStreaming(ctx, lg, f, sink, table, workers)
	}

	n, err := normalizer.New(normalizer.WithLogger(lg))
	if err != nil {
		return err
	}
	ds, report, err := n.NormalizeCSV(ctx, f)
	if err != nil {
		return err
	}
	if verbose {
		fmt.Printf("run %s: %d rows in %s\n", report.RunID, report.Rows, report.Duration)
		fmt.Print(ds.Schema())
	}
	return sink.Save(ctx, table, ds)
}

func runStreaming(ctx context.Context, lg l.Logger, f *os.File, sink *sqlitesink.Sink, table string, workers int) error {
	proc := stream.NewProcessor(logger.FromExisting(lg), stream.WithWorkers(workers))

	var writer *sqlitesink.TableWriter
	rows, err := proc.Process(ctx, f, func(columns []string, row []domain.Value) error {
		if writer == nil {
			kinds := canonicalKinds(columns)
			w, err := sink.BeginTable(ctx, table, columns, kinds)
			if err != nil {
				return err
			}
			writer = w
		}
		return writer.WriteRow(ctx, row)
	})
	if writer != nil {
		defer writer.Close()
	}
	if err != nil {
		return err
	}
	if writer == nil {
		return fmt.Errorf("input %s produced no rows", f.Name())
	}
	if err := writer.Commit(); err != nil {
		return err
	}
	lg.Info("Streaming ETL completed", "rows", rows, "table", table)
	return nil
}

// canonicalKinds maps output column names to cell kinds, falling back to
// text for columns outside the canonical schema.
func canonicalKinds(columns []string) []domain.Kind {
	known := make(map[string]domain.Kind, len(domain.CanonicalColumns))
	for i, c := range domain.CanonicalColumns {
		known[c] = domain.CanonicalKinds[i]
	}
	kinds := make([]domain.Kind, len(columns))
	for i, c := range columns {
		if k, ok := known[c]; ok {
			kinds[i] = k
		} else {
			kinds[i] = domain.KindString
		}
	}
	return kinds
}
