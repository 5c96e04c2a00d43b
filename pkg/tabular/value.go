package tabular

import (
	"fmt"
	"strconv"
)

// ValueKind identifies the type of a field value
type ValueKind int

const (
	// KindNumeric is a float64-valued field
	KindNumeric ValueKind = iota
	// KindCategorical is a string-valued field
	KindCategorical
	// KindInterval is a half-open numeric interval produced by generalization
	KindInterval
)

// String returns the kind name
func (k ValueKind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindCategorical:
		return "categorical"
	case KindInterval:
		return "interval"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Value is a single typed field value. Values are immutable; operations that
// transform them return new values.
type Value struct {
	Kind ValueKind
	Num  float64 // set for KindNumeric
	Str  string  // set for KindCategorical
	Lo   float64 // set for KindInterval
	Hi   float64 // set for KindInterval
}

// NumericValue creates a numeric value
func NumericValue(v float64) Value {
	return Value{Kind: KindNumeric, Num: v}
}

// CategoricalValue creates a categorical value
func CategoricalValue(s string) Value {
	return Value{Kind: KindCategorical, Str: s}
}

// IntervalValue creates a half-open interval value [lo, hi)
func IntervalValue(lo, hi float64) Value {
	return Value{Kind: KindInterval, Lo: lo, Hi: hi}
}

// String renders the value as its projection key component. Two values
// project identically exactly when their rendered forms are equal.
func (v Value) String() string {
	switch v.Kind {
	case KindNumeric:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindCategorical:
		return v.Str
	case KindInterval:
		return fmt.Sprintf("[%s,%s)",
			strconv.FormatFloat(v.Lo, 'g', -1, 64),
			strconv.FormatFloat(v.Hi, 'g', -1, 64))
	default:
		return ""
	}
}

// Equal reports whether two values have the same kind and content
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNumeric:
		return v.Num == other.Num
	case KindCategorical:
		return v.Str == other.Str
	case KindInterval:
		return v.Lo == other.Lo && v.Hi == other.Hi
	default:
		return false
	}
}
