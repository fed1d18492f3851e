package tabular

import (
	"math"
)

// Argument coercion shared by the builtin implementations. The rules
// differ by position: scalar arguments must have a numeric reading when
// one is required, while range elements are forgiving and simply drop
// out of aggregates when they are empty or non-numeric text. Error
// values propagate from every position; only IFERROR and the IS family
// look at them instead.

// scalarNum coerces a scalar argument to float64.
func scalarNum(a Arg) (float64, error) {
	if a.IsRange() {
		return 0, NewCalcError(ErrTypeCoercion, "range used as a scalar argument")
	}
	if a.Val.IsError() {
		return 0, propagate(a.Val)
	}
	n, ok := a.Val.AsNumber()
	if !ok {
		return 0, NewCalcError(ErrTypeCoercion, "cannot read %q as a number", a.Val.Render())
	}
	return n, nil
}

// scalarInt coerces a scalar argument to an integer, truncating any
// fraction.
func scalarInt(a Arg) (int64, error) {
	n, err := scalarNum(a)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, NewCalcError(ErrDomain, "argument must be finite")
	}
	if n < math.MinInt64 || n >= 1<<63 {
		return 0, NewCalcError(ErrDomain, "argument out of integer range")
	}
	return int64(n), nil
}

// scalarText renders a scalar argument for text positions.
func scalarText(a Arg) (string, error) {
	if a.IsRange() {
		return "", NewCalcError(ErrTypeCoercion, "range used as a scalar argument")
	}
	if a.Val.IsError() {
		return "", propagate(a.Val)
	}
	return a.Val.AsText(), nil
}

// scalarVal unwraps a scalar argument without touching error values, for
// implementations that classify their argument rather than compute with
// it.
func scalarVal(a Arg) (Value, error) {
	if a.IsRange() {
		return Value{}, NewCalcError(ErrTypeCoercion, "range used as a scalar argument")
	}
	return a.Val, nil
}

// numbers gathers the numeric view of aggregate arguments: scalars must
// coerce, range elements are skipped when empty or when their text has no
// numeric reading.
func numbers(args []Arg) ([]float64, error) {
	nums := make([]float64, 0, len(args))
	for _, a := range args {
		if !a.IsRange() {
			n, err := scalarNum(a)
			if err != nil {
				return nil, err
			}
			nums = append(nums, n)
			continue
		}
		for _, v := range a.Seq {
			if v.IsError() {
				return nil, propagate(v)
			}
			if v.Kind() == KindText {
				if v.IsEmptyText() {
					continue
				}
				if n, ok := v.AsNumber(); ok {
					nums = append(nums, n)
				}
				continue
			}
			nums = append(nums, v.Num())
		}
	}
	return nums, nil
}

// rangeNumbers applies the range leniency of numbers to one argument
// whether it was written as a range or a scalar, for functions like
// PERCENTILE whose data argument is conventionally a range.
func rangeNumbers(a Arg) ([]float64, error) {
	if a.IsRange() {
		return numbers([]Arg{a})
	}
	return numbers([]Arg{{Seq: []Value{a.Val}}})
}

// texts renders arguments for text concatenation, flattening ranges.
func texts(args []Arg) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, v := range Flatten(args) {
		if v.IsError() {
			return nil, propagate(v)
		}
		out = append(out, v.AsText())
	}
	return out, nil
}

// truths coerces flattened arguments to booleans for the eager logic
// functions.
func truths(args []Arg) ([]bool, error) {
	out := make([]bool, 0, len(args))
	for _, v := range Flatten(args) {
		if v.IsError() {
			return nil, propagate(v)
		}
		b, ok := v.Truthy()
		if !ok {
			return nil, NewCalcError(ErrTypeCoercion, "cannot read %q as a condition", v.Render())
		}
		out = append(out, b)
	}
	return out, nil
}

// errorLike reports whether a value behaves as a failure for IFERROR and
// ISERROR: error values plus the non-finite floats that div-by-zero and
// empty aggregates produce.
func errorLike(v Value) bool {
	if v.IsError() {
		return true
	}
	if v.Kind() == KindFloat {
		return math.IsNaN(v.Num()) || math.IsInf(v.Num(), 0)
	}
	return false
}
