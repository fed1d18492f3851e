// Package tabular implements the formula engine of the sheet editor: a
// lexer, parser and tree-walking evaluator for the small expression language
// entered into cells behind a leading "=" marker.
package tabular

import (
	"math"
	"strconv"
	"strings"
)

// ValueKind discriminates the five result forms a formula step can produce.
type ValueKind int

const (
	KindInteger ValueKind = iota
	KindFloat
	KindText
	KindBoolean
	KindError
)

var valueKindNames = map[ValueKind]string{
	KindInteger: "integer",
	KindFloat:   "float",
	KindText:    "text",
	KindBoolean: "boolean",
	KindError:   "error",
}

func (k ValueKind) String() string {
	if name, ok := valueKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Value is the tagged result type of every evaluation step. A Value is
// always exactly one of the five kinds; empty cells are represented as
// Text("") and coerce to zero in numeric positions.
type Value struct {
	kind  ValueKind
	ival  int64
	fval  float64
	text  string
	ekind ErrKind
}

// Integer returns a whole-number Value.
func Integer(i int64) Value {
	return Value{kind: KindInteger, ival: i}
}

// Float returns a 64-bit floating point Value.
func Float(f float64) Value {
	return Value{kind: KindFloat, fval: f}
}

// Text returns a string Value.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Boolean returns a 0/1-backed truth Value.
func Boolean(b bool) Value {
	v := Value{kind: KindBoolean}
	if b {
		v.ival = 1
	}
	return v
}

// Errorv returns an error Value of the given kind.
func Errorv(kind ErrKind) Value {
	return Value{kind: KindError, ekind: kind}
}

// Number returns Integer when f is a whole number inside the int64 range,
// Float otherwise. Coercion helpers use it so "1,234" comes back as an
// exact integer while "1,234.56" stays floating point.
func Number(f float64) Value {
	if f == math.Trunc(f) && !math.IsInf(f, 0) &&
		f >= math.MinInt64 && f <= math.MaxInt64 {
		return Integer(int64(f))
	}
	return Float(f)
}

// Kind reports which of the five forms the Value holds.
func (v Value) Kind() ValueKind { return v.kind }

// IsError reports whether the Value is an error of any kind.
func (v Value) IsError() bool { return v.kind == KindError }

// ErrorKind returns the error classification; KindError values only.
func (v Value) ErrorKind() ErrKind { return v.ekind }

// IsNumeric reports whether the Value participates in arithmetic without
// text coercion (Integer, Float and Boolean do; Text and Error do not).
func (v Value) IsNumeric() bool {
	switch v.kind {
	case KindInteger, KindFloat, KindBoolean:
		return true
	}
	return false
}

// Int returns the integer payload. Valid for Integer and Boolean values.
func (v Value) Int() int64 { return v.ival }

// Num returns the numeric view of the Value: Integer and Boolean widen to
// float64, Float returns its payload, Error returns NaN. Text returns NaN;
// callers that accept loosely formatted text use AsNumber instead.
func (v Value) Num() float64 {
	switch v.kind {
	case KindInteger, KindBoolean:
		return float64(v.ival)
	case KindFloat:
		return v.fval
	}
	return math.NaN()
}

// Str returns the text payload; empty for non-text values.
func (v Value) Str() string {
	if v.kind == KindText {
		return v.text
	}
	return ""
}

// IsEmptyText reports whether the Value is text that is empty after
// trimming, which is how unset cells arrive from the resolver. Aggregates
// skip such values instead of counting them as zero.
func (v Value) IsEmptyText() bool {
	return v.kind == KindText && strings.TrimSpace(v.text) == ""
}

// AsNumber coerces the Value to float64. Text goes through the same loose
// numeric parsing the reference resolver applies to raw cells (currency,
// thousands separators, percent, booleans); empty text coerces to zero.
// The second result is false when no numeric reading exists.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindInteger, KindBoolean:
		return float64(v.ival), true
	case KindFloat:
		return v.fval, true
	case KindText:
		if strings.TrimSpace(v.text) == "" {
			return 0, true
		}
		if n, ok := parseLooseNumber(v.text); ok {
			return n, true
		}
		return 0, false
	}
	return math.NaN(), false
}

// AsText renders the Value for use in text positions (CONCAT and friends).
// Identical to Render except that errors keep their NaN rendering.
func (v Value) AsText() string { return v.Render() }

// Truthy reports the logical reading of the Value: non-zero numbers are
// true. Text is coerced numerically first; text with no numeric reading
// has no truth value and the second result is false.
func (v Value) Truthy() (bool, bool) {
	n, ok := v.AsNumber()
	if !ok {
		return false, false
	}
	return n != 0, true
}

// Render produces the literal cell text for the Value after a calculate
// pass: integers in plain decimal, floats trimmed to at most ten fractional
// digits, booleans as 1/0, errors as NaN, non-finite floats as NaN, Inf or
// -Inf.
func (v Value) Render() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.ival, 10)
	case KindFloat:
		return renderFloat(v.fval)
	case KindText:
		return v.text
	case KindBoolean:
		if v.ival != 0 {
			return "1"
		}
		return "0"
	case KindError:
		return "NaN"
	}
	return ""
}

// renderFloat formats a float the way results are written back into cells:
// whole values without a decimal point, otherwise fixed ten fractional
// digits with trailing zeros removed.
func renderFloat(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Inf"
	}
	if math.IsInf(f, -1) {
		return "-Inf"
	}
	if f == math.Trunc(f) {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	s := strconv.FormatFloat(f, 'f', 10, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	return s
}
