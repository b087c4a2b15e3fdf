package domain

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Kind identifies the type a cell value carries.
type Kind int

const (
	// KindNull marks a missing or unparseable value.
	KindNull Kind = iota
	// KindInt marks an integer count value.
	KindInt
	// KindDecimal marks a fixed-point decimal value.
	KindDecimal
	// KindString marks a textual value.
	KindString
)

// String returns a human readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindDecimal:
		return "decimal"
	case KindString:
		return "string"
	default:
		return "null"
	}
}

// Value is a single dataset cell. It is a tagged union over the kinds a
// normalized immunization record can hold. The zero value is null, which is
// also what every transformation degrades to on a parse failure.
type Value struct {
	kind Kind
	i    int64
	d    decimal.Decimal
	s    string
}

// Null returns the null cell value.
func Null() Value {
	return Value{}
}

// NewInt returns an integer cell value.
func NewInt(i int64) Value {
	return Value{kind: KindInt, i: i}
}

// NewDecimal returns a decimal cell value.
func NewDecimal(d decimal.Decimal) Value {
	return Value{kind: KindDecimal, d: d}
}

// NewString returns a string cell value.
func NewString(s string) Value {
	return Value{kind: KindString, s: s}
}

// Kind reports the kind of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the value is null.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Int returns the integer payload. Only meaningful when Kind is KindInt.
func (v Value) Int() int64 {
	return v.i
}

// Decimal returns the decimal payload. Only meaningful when Kind is KindDecimal.
func (v Value) Decimal() decimal.Decimal {
	return v.d
}

// Str returns the string payload. Only meaningful when Kind is KindString.
func (v Value) Str() string {
	return v.s
}

// Interface returns the value as a plain Go value: nil, int64,
// decimal.Decimal or string. Used by sinks and serializers.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindInt:
		return v.i
	case KindDecimal:
		return v.d
	case KindString:
		return v.s
	default:
		return nil
	}
}

// Equal reports whether two values have the same kind and payload.
// Decimal comparison is numeric, so 87.5 equals 87.50.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == other.i
	case KindDecimal:
		return v.d.Equal(other.d)
	case KindString:
		return v.s == other.s
	default:
		return true
	}
}

// String renders the value for display and schema dumps.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindDecimal:
		return v.d.String()
	case KindString:
		return v.s
	default:
		return "null"
	}
}
