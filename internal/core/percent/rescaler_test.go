package percent

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/hohomsf/immunization-etl/internal/core/domain"
)

func dec(s string) domain.Value {
	return domain.NewDecimal(decimal.RequireFromString(s))
}

func TestRescale(t *testing.T) {
	tests := []struct {
		name string
		in   domain.Value
		want domain.Value
	}{
		{
			name: "fraction to percentage",
			in:   dec("0.873"),
			want: dec("87.3"),
		},
		{
			name: "rounds to one decimal digit",
			in:   dec("0.8755"),
			want: dec("87.6"),
		},
		{
			name: "exact fraction",
			in:   dec("0.875"),
			want: dec("87.5"),
		},
		{
			name: "null stays null",
			in:   domain.Null(),
			want: domain.Null(),
		},
		{
			name: "value above one rescaled without validation",
			in:   dec("1.2"),
			want: dec("120.0"),
		},
		{
			name: "integer one becomes one hundred",
			in:   domain.NewInt(1),
			want: dec("100.0"),
		},
		{
			name: "numeric string parsed and rescaled",
			in:   domain.NewString("0.5"),
			want: dec("50.0"),
		},
		{
			name: "non-numeric string degrades to null",
			in:   domain.NewString("n/a"),
			want: domain.Null(),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Rescale(tc.in)
			if !got.Equal(tc.want) {
				t.Errorf("Rescale(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
