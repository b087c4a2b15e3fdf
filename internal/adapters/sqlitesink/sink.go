// Package sqlitesink persists datasets to SQLite tables with overwrite
// semantics: saving drops and recreates the table, so a rerun replaces the
// previous contents entirely.
package sqlitesink

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/hohomsf/immunization-etl/internal/core/domain"
	"github.com/hohomsf/immunization-etl/internal/ports"
)

// DefaultTable is the table name the canonical dataset is persisted under.
const DefaultTable = "ns_school_immunization"

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Sink writes datasets to a SQLite database.
type Sink struct {
	db     *sql.DB
	logger ports.Logger
}

// Option configures a Sink.
type Option func(*Sink)

// WithLogger sets the logger used for save traces.
func WithLogger(l ports.Logger) Option {
	return func(s *Sink) {
		s.logger = l
	}
}

// Open creates a sink backed by the SQLite database at path. Use ":memory:"
// for an in-memory database.
func Open(path string, opts ...Option) (*Sink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	return New(db, opts...), nil
}

// New creates a sink over an existing database handle. The caller keeps
// ownership of the handle unless Close is used.
func New(db *sql.DB, opts ...Option) *Sink {
	s := &Sink{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the underlying database.
func (s *Sink) Close() error {
	return s.db.Close()
}

// Save persists the whole dataset under the given table name, replacing any
// existing table of that name.
func (s *Sink) Save(ctx context.Context, table string, ds domain.Dataset) error {
	cols := ds.Columns()
	kinds := make([]domain.Kind, len(cols))
	for i, c := range cols {
		kind, _ := ds.ColumnKind(c)
		kinds[i] = kind
	}

	w, err := s.BeginTable(ctx, table, cols, kinds)
	if err != nil {
		return err
	}
	defer w.Close()

	for i := 0; i < ds.NumRows(); i++ {
		if err := w.WriteRow(ctx, ds.Row(i)); err != nil {
			return err
		}
	}
	if err := w.Commit(); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("Saved dataset",
			"table", table,
			"rows", ds.NumRows(),
			"columns", len(cols),
		)
	}
	return nil
}

// BeginTable drops and recreates the table for the given schema and returns
// a writer for streaming rows into it. The writer must be committed for the
// rows to become visible.
func (s *Sink) BeginTable(ctx context.Context, table string, columns []string, kinds []domain.Kind) (*TableWriter, error) {
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	for _, c := range columns {
		if !identPattern.MatchString(c) {
			return nil, fmt.Errorf("invalid column name %q", c)
		}
	}
	if len(kinds) != len(columns) {
		return nil, fmt.Errorf("got %d kinds for %d columns", len(kinds), len(columns))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %q", table)); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("drop table %s: %w", table, err)
	}

	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = fmt.Sprintf("%q %s", c, sqlType(kinds[i]))
	}
	create := fmt.Sprintf("CREATE TABLE %q (%s)", table, strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("create table %s: %w", table, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	insert := fmt.Sprintf("INSERT INTO %q VALUES (%s)", table, placeholders)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("prepare insert: %w", err)
	}

	return &TableWriter{tx: tx, stmt: stmt, columns: len(columns)}, nil
}

// TableWriter streams rows into a freshly created table inside a single
// transaction.
type TableWriter struct {
	tx      *sql.Tx
	stmt    *sql.Stmt
	columns int
	done    bool
}

// WriteRow inserts one row.
func (w *TableWriter) WriteRow(ctx context.Context, cells []domain.Value) error {
	if len(cells) != w.columns {
		return fmt.Errorf("row has %d cells, table has %d columns", len(cells), w.columns)
	}
	args := make([]interface{}, len(cells))
	for i, v := range cells {
		args[i] = bindValue(v)
	}
	_, err := w.stmt.ExecContext(ctx, args...)
	return err
}

// Commit makes the written rows visible.
func (w *TableWriter) Commit() error {
	w.done = true
	w.stmt.Close()
	return w.tx.Commit()
}

// Close rolls back when the writer was not committed.
func (w *TableWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	w.stmt.Close()
	return w.tx.Rollback()
}

func sqlType(k domain.Kind) string {
	switch k {
	case domain.KindInt:
		return "INTEGER"
	case domain.KindDecimal:
		return "REAL"
	default:
		return "TEXT"
	}
}

func bindValue(v domain.Value) interface{} {
	switch v.Kind() {
	case domain.KindInt:
		return v.Int()
	case domain.KindDecimal:
		f, _ := v.Decimal().Float64()
		return f
	case domain.KindString:
		return v.Str()
	default:
		return nil
	}
}
