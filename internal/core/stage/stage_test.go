package stage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hohomsf/immunization-etl/internal/core/domain"
)

func sampleDataset(t *testing.T) domain.Dataset {
	t.Helper()
	ds := domain.New([]string{"a", "b"})
	if err := ds.AppendRow([]domain.Value{domain.NewString("x"), domain.NewInt(1)}); err != nil {
		t.Fatal(err)
	}
	if err := ds.AppendRow([]domain.Value{domain.NewString("y"), domain.NewInt(2)}); err != nil {
		t.Fatal(err)
	}
	return ds
}

func TestRenameStage(t *testing.T) {
	ds := sampleDataset(t)
	st := Rename("upper", strings.ToUpper)

	out, err := st.Apply(context.Background(), ds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := out.Columns()
	if got[0] != "A" || got[1] != "B" {
		t.Errorf("columns = %v, want [A B]", got)
	}
	// Input schema is untouched.
	if ds.Columns()[0] != "a" {
		t.Errorf("input dataset mutated: %v", ds.Columns())
	}
}

func TestMapStage(t *testing.T) {
	ds := sampleDataset(t)
	st := Map("double", []string{"b"}, func(v domain.Value) domain.Value {
		return domain.NewInt(v.Int() * 2)
	})

	out, err := st.Apply(context.Background(), ds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := out.Cell(1, "b"); v.Int() != 4 {
		t.Errorf("cell = %v, want 4", v)
	}
	// Unlisted column passes through.
	if v, _ := out.Cell(0, "a"); v.Str() != "x" {
		t.Errorf("cell = %v, want x", v)
	}
	// Input rows are untouched.
	if v, _ := ds.Cell(1, "b"); v.Int() != 2 {
		t.Errorf("input dataset mutated: %v", v)
	}
}

func TestMapStageMissingColumn(t *testing.T) {
	ds := sampleDataset(t)
	st := Map("noop", []string{"missing"}, func(v domain.Value) domain.Value { return v })

	_, err := st.Apply(context.Background(), ds)
	var schemaErr *domain.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if schemaErr.Column != "missing" {
		t.Errorf("SchemaError.Column = %q, want missing", schemaErr.Column)
	}
}

func TestDeriveStageDropsSource(t *testing.T) {
	ds := sampleDataset(t)
	st := Derive("split", "a", []string{"a1", "a2"}, func(v domain.Value) []domain.Value {
		return []domain.Value{v, v}
	}, true)

	out, err := st.Apply(context.Background(), ds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"b", "a1", "a2"}
	got := out.Columns()
	if len(got) != len(want) {
		t.Fatalf("columns = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("columns = %v, want %v", got, want)
			break
		}
	}
	if v, _ := out.Cell(0, "a1"); v.Str() != "x" {
		t.Errorf("derived cell = %v, want x", v)
	}
}

func TestDeriveStageKeepsSource(t *testing.T) {
	ds := sampleDataset(t)
	st := Derive("tag", "a", []string{"a_copy"}, func(v domain.Value) []domain.Value {
		return []domain.Value{v}
	}, false)

	out, err := st.Apply(context.Background(), ds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.NumColumns() != 3 {
		t.Fatalf("columns = %v", out.Columns())
	}
	if _, ok := out.ColumnIndex("a"); !ok {
		t.Error("source column dropped, want kept")
	}
}

func TestDeriveStageMissingSource(t *testing.T) {
	ds := sampleDataset(t)
	st := Derive("split", "missing", []string{"x"}, func(v domain.Value) []domain.Value {
		return []domain.Value{v}
	}, true)

	_, err := st.Apply(context.Background(), ds)
	var schemaErr *domain.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}
