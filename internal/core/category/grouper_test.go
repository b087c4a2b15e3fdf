package category

import (
	"testing"
)

func TestGroup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "variant split on separator",
			in:   "HBV - Dose 1",
			want: "HBV",
		},
		{
			name: "no separator keeps whole name",
			in:   "HBV",
			want: "HBV",
		},
		{
			name: "MEN-C with inline hyphen variant",
			in:   "MEN-C-ACYW135",
			want: "MEN-C",
		},
		{
			name: "MEN-C with separated variant",
			in:   "MEN-C - Dose 2",
			want: "MEN-C",
		},
		{
			name: "plain hyphen is not a separator",
			in:   "Tdap-IPV",
			want: "Tdap-IPV",
		},
		{
			name: "only first separator counts",
			in:   "HPV - Dose 2 - Catch Up",
			want: "HPV",
		},
		{
			name: "empty string",
			in:   "",
			want: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Group(tc.in, DefaultOverrides())
			if got != tc.want {
				t.Errorf("Group(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestGroupCustomOverrides(t *testing.T) {
	overrides := append(DefaultOverrides(), Override{Prefix: "Hib-MenCY", Label: "Hib-MenCY"})

	if got := Group("Hib-MenCY-TT", overrides); got != "Hib-MenCY" {
		t.Errorf("Group(Hib-MenCY-TT) = %q, want Hib-MenCY", got)
	}
	if got := Group("MEN-C-ACYW135", overrides); got != "MEN-C" {
		t.Errorf("Group(MEN-C-ACYW135) = %q, want MEN-C", got)
	}
	// Overrides with disjoint prefixes are order-insensitive.
	reversed := []Override{overrides[1], overrides[0]}
	if got := Group("Hib-MenCY-TT", reversed); got != "Hib-MenCY" {
		t.Errorf("Group(Hib-MenCY-TT) reversed overrides = %q, want Hib-MenCY", got)
	}
}
