package interval

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/hohomsf/immunization-etl/internal/core/domain"
)

func dec(s string) domain.Value {
	return domain.NewDecimal(decimal.RequireFromString(s))
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name      string
		in        domain.Value
		wantLower domain.Value
		wantUpper domain.Value
	}{
		{
			name:      "two-sided interval",
			in:        domain.NewString("80.0-95.5"),
			wantLower: dec("80.0"),
			wantUpper: dec("95.5"),
		},
		{
			name:      "missing upper bound",
			in:        domain.NewString("80.0"),
			wantLower: dec("80.0"),
			wantUpper: domain.Null(),
		},
		{
			name:      "whitespace around bounds",
			in:        domain.NewString(" 82.0 - 92.0 "),
			wantLower: dec("82.0"),
			wantUpper: dec("92.0"),
		},
		{
			name:      "malformed lower bound",
			in:        domain.NewString("n/a-92.0"),
			wantLower: domain.Null(),
			wantUpper: dec("92.0"),
		},
		{
			name:      "empty string",
			in:        domain.NewString(""),
			wantLower: domain.Null(),
			wantUpper: domain.Null(),
		},
		{
			name:      "null input",
			in:        domain.Null(),
			wantLower: domain.Null(),
			wantUpper: domain.Null(),
		},
		{
			name:      "separator-less value inferred as decimal",
			in:        dec("80.0"),
			wantLower: dec("80.0"),
			wantUpper: domain.Null(),
		},
		{
			// Pins the first-separator policy for the ambiguous negative
			// lower bound: "" and "5.0-10.0" both fail to parse.
			name:      "negative lower bound ambiguity",
			in:        domain.NewString("-5.0-10.0"),
			wantLower: domain.Null(),
			wantUpper: domain.Null(),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lower, upper := Split(tc.in)
			if !lower.Equal(tc.wantLower) {
				t.Errorf("Split(%v) lower = %v, want %v", tc.in, lower, tc.wantLower)
			}
			if !upper.Equal(tc.wantUpper) {
				t.Errorf("Split(%v) upper = %v, want %v", tc.in, upper, tc.wantUpper)
			}
		})
	}
}
