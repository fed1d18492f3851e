package tabular

import (
	"errors"
	"fmt"
)

// Error definitions for callers that need programmatic checks outside of a
// calculate pass (inside a pass every failure becomes a per-cell Value).
var (
	ErrInvalidAddress  = errors.New("invalid cell address")
	ErrInvalidColumn   = errors.New("invalid column letters")
	ErrInvalidRange    = errors.New("invalid range")
	ErrUnknownFunction = errors.New("unknown function")
)

// ErrKind classifies a per-cell evaluation failure. Every kind renders as
// NaN in the written-back cell; the kind is preserved in the pass report so
// the editor can surface what went wrong.
type ErrKind int

const (
	ErrNone ErrKind = iota
	// ErrLex marks an unrecognized character in the formula source.
	ErrLex
	// ErrParse marks malformed structure: unbalanced parentheses, a
	// missing operand, an unknown token in primary position.
	ErrParse
	// ErrArity marks a wrong argument count or shape, including
	// mismatched sizes on two-range functions.
	ErrArity
	// ErrTypeCoercion marks an operand with no numeric reading in a
	// position that requires one.
	ErrTypeCoercion
	// ErrDomain marks an argument outside a function's mathematical
	// domain: sqrt of a negative, ln of a non-positive, sample variance
	// over fewer than two values.
	ErrDomain
	// ErrCycle marks a formula that participates in a circular
	// reference.
	ErrCycle
	// ErrPlugin marks a registered function that panicked or returned
	// something outside the value model.
	ErrPlugin
)

var errKindNames = map[ErrKind]string{
	ErrNone:         "NONE",
	ErrLex:          "LEX ERROR",
	ErrParse:        "PARSE ERROR",
	ErrArity:        "ARITY ERROR",
	ErrTypeCoercion: "TYPE ERROR",
	ErrDomain:       "DOMAIN ERROR",
	ErrCycle:        "CYCLE ERROR",
	ErrPlugin:       "PLUGIN ERROR",
}

func (k ErrKind) String() string {
	if name, ok := errKindNames[k]; ok {
		return name
	}
	return "UNKNOWN ERROR"
}

// CalcError is the structured error every engine stage raises internally.
// The calculate driver converts it into an Error value for the owning cell;
// it never crosses the package boundary as a pass failure. Err optionally
// wraps one of the sentinel errors above for errors.Is checks.
type CalcError struct {
	Kind   ErrKind
	Detail string
	Err    error
}

func (ce *CalcError) Error() string {
	if ce.Detail == "" {
		return ce.Kind.String()
	}
	return ce.Kind.String() + ": " + ce.Detail
}

func (ce *CalcError) Unwrap() error { return ce.Err }

// NewCalcError builds a CalcError with a formatted detail message.
func NewCalcError(kind ErrKind, format string, args ...interface{}) *CalcError {
	return &CalcError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// errValue converts any error into the Error value written into a cell.
// CalcErrors keep their classification; anything else counts as a plugin
// failure since engine code only raises CalcErrors.
func errValue(err error) Value {
	var ce *CalcError
	if errors.As(err, &ce) {
		return Errorv(ce.Kind)
	}
	return Errorv(ErrPlugin)
}

// kindOf extracts the classification from an engine error, ErrPlugin for
// foreign errors.
func kindOf(err error) ErrKind {
	var ce *CalcError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ErrPlugin
}

// propagate lifts an Error value back into the error channel so function
// implementations can pass it through unchanged.
func propagate(v Value) error {
	return &CalcError{Kind: v.ErrorKind(), Detail: "propagated"}
}
