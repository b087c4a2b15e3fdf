package normalizer

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hohomsf/immunization-etl/internal/adapters/logger"
	"github.com/hohomsf/immunization-etl/internal/core/domain"
)

// quiet builds a normalizer that does not log, for tests.
func quiet(t *testing.T, opts ...Option) *Normalizer {
	t.Helper()
	n, err := newWithPortsLogger(logger.NewNopLogger(), opts...)
	require.NoError(t, err)
	return n
}

func TestNormalizeCSVEndToEnd(t *testing.T) {
	const sample = `Year,Zone,Vaccine,# Eligible,# Immunized,% Coverage,95% CI
2018,Central,HBV - Dose 1,"1,200","1,050",0.875,82.0-92.0
`
	n := quiet(t)
	ds, report, err := n.NormalizeCSV(context.Background(), strings.NewReader(sample))
	require.NoError(t, err)
	require.Equal(t, 1, report.Rows)

	assert.Equal(t, domain.CanonicalColumns, ds.Columns())

	group, _ := ds.Cell(0, domain.ColumnVaccineGroup)
	assert.Equal(t, "HBV", group.Str())
	coverage, _ := ds.Cell(0, domain.ColumnPctCoverage)
	assert.True(t, coverage.Equal(domain.NewDecimal(decimal.RequireFromString("87.5"))))
}

func TestFromRows(t *testing.T) {
	ds, err := FromRows(
		[]string{"Year", "Zone", "% Coverage"},
		[][]interface{}{
			{float64(2018), "Central", 0.875},
			{nil, "Eastern", nil},
		},
	)
	require.NoError(t, err)

	year, _ := ds.Cell(0, "Year")
	assert.Equal(t, domain.KindInt, year.Kind(), "whole JSON numbers become integers")
	coverage, _ := ds.Cell(0, "% Coverage")
	assert.Equal(t, domain.KindDecimal, coverage.Kind())
	missing, _ := ds.Cell(1, "Year")
	assert.True(t, missing.IsNull())

	_, err = FromRows([]string{"a"}, [][]interface{}{{struct{}{}}})
	assert.Error(t, err, "unsupported value type should be rejected")
}

func TestFromRecords(t *testing.T) {
	ds, err := FromRecords(
		[]string{"Year", "# Eligible"},
		[][]string{{"2018", "1,200"}},
	)
	require.NoError(t, err)
	eligible, _ := ds.Cell(0, "# Eligible")
	assert.Equal(t, domain.KindString, eligible.Kind())
}

func TestOverrideValidation(t *testing.T) {
	_, err := New(WithOverride("MEN", "MEN"))
	assert.Error(t, err, "MEN is a prefix of the default MEN-C rule")

	_, err = New(WithOverride("", "X"))
	assert.Error(t, err, "empty prefix should be rejected")

	n := quiet(t, WithOverride("Hib-MenCY", "Hib-MenCY"))
	require.NotNil(t, n)
}

func TestCustomOverrideApplied(t *testing.T) {
	const sample = `Year,Zone,Vaccine,# Eligible,# Immunized,% Coverage,95% CI
2019,Northern,Hib-MenCY-TT - Booster,480,401,0.835,79.9-87.1
`
	n := quiet(t, WithOverride("Hib-MenCY", "Hib-MenCY"))
	ds, _, err := n.NormalizeCSV(context.Background(), strings.NewReader(sample))
	require.NoError(t, err)

	group, _ := ds.Cell(0, domain.ColumnVaccineGroup)
	assert.Equal(t, "Hib-MenCY", group.Str())
}

func TestMissingColumnSurfacesSchemaError(t *testing.T) {
	n := quiet(t)
	_, _, err := n.NormalizeCSV(context.Background(),
		strings.NewReader("Year,Zone\n2018,Central\n"))
	assert.ErrorContains(t, err, "not present in dataset schema")
}
