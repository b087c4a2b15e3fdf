// Package header canonicalizes raw column names into snake_case identifiers.
// The raw CSV labels arrive with arbitrary capitalization, embedded spaces
// and the symbols "#" and "%", which map to the tokens "no" and "pct".
package header

import (
	"regexp"
	"strings"

	"github.com/hohomsf/immunization-etl/internal/core/stage"
	"github.com/hohomsf/immunization-etl/internal/ports"
)

// collision matches a word character directly followed by "#" or "%", as in
// "95% CI", where the symbol needs a separating space before substitution.
var collision = regexp.MustCompile(`(\w)([#%])`)

// Canonicalize rewrites one raw column name. It is total over any string and
// idempotent: names already canonical come back unchanged.
func Canonicalize(name string) string {
	name = collision.ReplaceAllString(name, "$1 $2")

	// Substitutions are emitted into a fresh builder in one left-to-right
	// pass, so an inserted token is never re-scanned as input.
	var sb strings.Builder
	sb.Grow(len(name) + 8)
	for _, r := range name {
		switch r {
		case '#':
			sb.WriteString("no")
		case '%':
			sb.WriteString("pct")
		case ' ':
			sb.WriteRune('_')
		default:
			sb.WriteRune(r)
		}
	}
	return strings.ToLower(sb.String())
}

// NewStage returns the pipeline stage that canonicalizes every column name.
func NewStage() ports.Stage {
	return stage.Rename("canonicalize_headers", Canonicalize)
}
