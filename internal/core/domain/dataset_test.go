package domain

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDatasetBasics(t *testing.T) {
	ds := New([]string{"year", "zone"})
	if err := ds.AppendRow([]Value{NewInt(2018), NewString("Central")}); err != nil {
		t.Fatal(err)
	}
	if err := ds.AppendRow([]Value{NewInt(2019), Null()}); err != nil {
		t.Fatal(err)
	}

	if ds.NumRows() != 2 || ds.NumColumns() != 2 {
		t.Fatalf("got %dx%d, want 2x2", ds.NumRows(), ds.NumColumns())
	}
	if v, ok := ds.Cell(0, "zone"); !ok || v.Str() != "Central" {
		t.Errorf("Cell(0, zone) = %v, %v", v, ok)
	}
	if _, ok := ds.Cell(0, "vaccine"); ok {
		t.Error("Cell on missing column reported ok")
	}
	if err := ds.AppendRow([]Value{NewInt(2020)}); err == nil {
		t.Error("short row accepted, want error")
	}
}

func TestDatasetRenameColumns(t *testing.T) {
	ds := New([]string{"Year", "Zone"})
	_ = ds.AppendRow([]Value{NewInt(2018), NewString("Central")})

	renamed, err := ds.RenameColumns([]string{"year", "zone"})
	if err != nil {
		t.Fatal(err)
	}
	if renamed.Columns()[0] != "year" {
		t.Errorf("columns = %v", renamed.Columns())
	}
	if ds.Columns()[0] != "Year" {
		t.Errorf("original schema mutated: %v", ds.Columns())
	}
	if _, err := ds.RenameColumns([]string{"only_one"}); err == nil {
		t.Error("mismatched name count accepted, want error")
	}
}

func TestDatasetSchema(t *testing.T) {
	ds := New([]string{"year", "pct", "note"})
	_ = ds.AppendRow([]Value{NewInt(2018), Null(), Null()})
	_ = ds.AppendRow([]Value{NewInt(2019), NewDecimal(decimal.RequireFromString("87.5")), Null()})

	schema := ds.Schema()
	for _, want := range []string{"year: int", "pct: decimal", "note: null"} {
		if !strings.Contains(schema, want) {
			t.Errorf("schema missing %q:\n%s", want, schema)
		}
	}
}

func TestValueEqual(t *testing.T) {
	a := NewDecimal(decimal.RequireFromString("87.5"))
	b := NewDecimal(decimal.RequireFromString("87.50"))
	if !a.Equal(b) {
		t.Error("87.5 != 87.50, want numeric equality")
	}
	if NewInt(1).Equal(NewString("1")) {
		t.Error("kinds differ but values compare equal")
	}
	if !Null().Equal(Null()) {
		t.Error("null != null")
	}
}

func TestRowIsCopy(t *testing.T) {
	ds := New([]string{"a"})
	_ = ds.AppendRow([]Value{NewInt(1)})

	row := ds.Row(0)
	row[0] = NewInt(99)
	if v, _ := ds.Cell(0, "a"); v.Int() != 1 {
		t.Error("mutating a returned row changed the dataset")
	}
}
