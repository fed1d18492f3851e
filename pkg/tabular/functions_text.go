package tabular

import (
	"strings"
	"unicode/utf8"
)

// maxReptLen caps the byte size REPT may produce in one call.
const maxReptLen = 1 << 20

func registerTextFunctions(r *Registry) {
	r.register("CONCAT", 1, -1, fnConcat)
	r.alias("CONCAT", "CONCATENATE")
	r.register("LEN", 1, 1, fnLen)
	r.register("UPPER", 1, 1, textUnary(strings.ToUpper))
	r.register("LOWER", 1, 1, textUnary(strings.ToLower))
	r.register("TRIM", 1, 1, textUnary(strings.TrimSpace))
	r.register("LEFT", 1, 2, fnLeft)
	r.register("RIGHT", 1, 2, fnRight)
	r.register("MID", 3, 3, fnMid)
	r.register("REPT", 2, 2, fnRept)
}

func textUnary(f func(string) string) Impl {
	return func(_ *Env, args []Arg) (Value, error) {
		s, err := scalarText(args[0])
		if err != nil {
			return Value{}, err
		}
		return Text(f(s)), nil
	}
}

func fnConcat(_ *Env, args []Arg) (Value, error) {
	parts, err := texts(args)
	if err != nil {
		return Value{}, err
	}
	return Text(strings.Join(parts, "")), nil
}

// fnLen counts characters, not bytes.
func fnLen(_ *Env, args []Arg) (Value, error) {
	s, err := scalarText(args[0])
	if err != nil {
		return Value{}, err
	}
	return Integer(int64(utf8.RuneCountInString(s))), nil
}

func fnLeft(_ *Env, args []Arg) (Value, error) {
	s, err := scalarText(args[0])
	if err != nil {
		return Value{}, err
	}
	n := int64(1)
	if len(args) == 2 {
		if n, err = scalarInt(args[1]); err != nil {
			return Value{}, err
		}
	}
	if n < 0 {
		return Value{}, NewCalcError(ErrDomain, "LEFT count must not be negative")
	}
	runes := []rune(s)
	if n > int64(len(runes)) {
		n = int64(len(runes))
	}
	return Text(string(runes[:n])), nil
}

func fnRight(_ *Env, args []Arg) (Value, error) {
	s, err := scalarText(args[0])
	if err != nil {
		return Value{}, err
	}
	n := int64(1)
	if len(args) == 2 {
		if n, err = scalarInt(args[1]); err != nil {
			return Value{}, err
		}
	}
	if n < 0 {
		return Value{}, NewCalcError(ErrDomain, "RIGHT count must not be negative")
	}
	runes := []rune(s)
	if n > int64(len(runes)) {
		n = int64(len(runes))
	}
	return Text(string(runes[int64(len(runes))-n:])), nil
}

// fnMid extracts count characters starting at a 1-based position,
// clamping at the end of the text.
func fnMid(_ *Env, args []Arg) (Value, error) {
	s, err := scalarText(args[0])
	if err != nil {
		return Value{}, err
	}
	start, err := scalarInt(args[1])
	if err != nil {
		return Value{}, err
	}
	count, err := scalarInt(args[2])
	if err != nil {
		return Value{}, err
	}
	if start < 1 {
		return Value{}, NewCalcError(ErrDomain, "MID start position is 1-based")
	}
	if count < 0 {
		return Value{}, NewCalcError(ErrDomain, "MID count must not be negative")
	}

	runes := []rune(s)
	from := start - 1
	if from > int64(len(runes)) {
		from = int64(len(runes))
	}
	to := from + count
	if to > int64(len(runes)) {
		to = int64(len(runes))
	}
	return Text(string(runes[from:to])), nil
}

func fnRept(_ *Env, args []Arg) (Value, error) {
	s, err := scalarText(args[0])
	if err != nil {
		return Value{}, err
	}
	n, err := scalarInt(args[1])
	if err != nil {
		return Value{}, err
	}
	if n < 0 {
		return Value{}, NewCalcError(ErrDomain, "REPT count must not be negative")
	}
	if int64(len(s))*n > maxReptLen {
		return Value{}, NewCalcError(ErrDomain, "REPT result too large")
	}
	return Text(strings.Repeat(s, int(n))), nil
}
