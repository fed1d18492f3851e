package tabular

func registerLogicFunctions(r *Registry) {
	r.register("IF", 3, 3, fnIf)
	r.register("IFERROR", 2, 2, fnIfError)
	r.register("AND", 1, -1, fnAnd)
	r.register("OR", 1, -1, fnOr)
	r.register("XOR", 1, -1, fnXor)
	r.register("NOT", 1, 1, fnNot)
	r.register("TRUE", 0, 0, constant(Boolean(true)))
	r.register("FALSE", 0, 0, constant(Boolean(false)))
	r.register("ISNUMBER", 1, 1, fnIsNumber)
	r.register("ISTEXT", 1, 1, fnIsText)
	r.register("ISBLANK", 1, 1, fnIsBlank)
	r.register("ISERROR", 1, 1, fnIsError)
}

// fnIf picks its second or third argument by the truth of the first. All
// three arguments are already evaluated by the time this runs; only the
// infix AND/OR operators short-circuit.
func fnIf(_ *Env, args []Arg) (Value, error) {
	if args[0].IsRange() {
		return Value{}, NewCalcError(ErrTypeCoercion, "range used as a condition")
	}
	cond := args[0].Val
	if cond.IsError() {
		return Value{}, propagate(cond)
	}
	b, ok := cond.Truthy()
	if !ok {
		return Value{}, NewCalcError(ErrTypeCoercion, "cannot read %q as a condition", cond.Render())
	}
	if b {
		return scalarVal(args[1])
	}
	return scalarVal(args[2])
}

// fnIfError substitutes the fallback when the first argument failed:
// error values, but also the NaN and Inf results that division by zero
// and empty aggregates produce.
func fnIfError(_ *Env, args []Arg) (Value, error) {
	v, err := scalarVal(args[0])
	if err != nil {
		return Value{}, err
	}
	if errorLike(v) {
		return scalarVal(args[1])
	}
	return v, nil
}

func fnAnd(_ *Env, args []Arg) (Value, error) {
	bs, err := truths(args)
	if err != nil {
		return Value{}, err
	}
	for _, b := range bs {
		if !b {
			return Boolean(false), nil
		}
	}
	return Boolean(true), nil
}

func fnOr(_ *Env, args []Arg) (Value, error) {
	bs, err := truths(args)
	if err != nil {
		return Value{}, err
	}
	for _, b := range bs {
		if b {
			return Boolean(true), nil
		}
	}
	return Boolean(false), nil
}

// fnXor is true when an odd number of arguments are true.
func fnXor(_ *Env, args []Arg) (Value, error) {
	bs, err := truths(args)
	if err != nil {
		return Value{}, err
	}
	odd := false
	for _, b := range bs {
		if b {
			odd = !odd
		}
	}
	return Boolean(odd), nil
}

func fnNot(_ *Env, args []Arg) (Value, error) {
	if args[0].IsRange() {
		return Value{}, NewCalcError(ErrTypeCoercion, "range used as a condition")
	}
	v := args[0].Val
	if v.IsError() {
		return Value{}, propagate(v)
	}
	b, ok := v.Truthy()
	if !ok {
		return Value{}, NewCalcError(ErrTypeCoercion, "cannot read %q as a condition", v.Render())
	}
	return Boolean(!b), nil
}

// The IS family classifies its argument instead of computing with it, so
// error values are inspected rather than propagated.

func fnIsNumber(_ *Env, args []Arg) (Value, error) {
	v, err := scalarVal(args[0])
	if err != nil {
		return Value{}, err
	}
	return Boolean(v.IsNumeric()), nil
}

// fnIsText is true for non-empty text only; blank cells resolve to empty
// text and belong to ISBLANK.
func fnIsText(_ *Env, args []Arg) (Value, error) {
	v, err := scalarVal(args[0])
	if err != nil {
		return Value{}, err
	}
	return Boolean(v.Kind() == KindText && !v.IsEmptyText()), nil
}

func fnIsBlank(_ *Env, args []Arg) (Value, error) {
	v, err := scalarVal(args[0])
	if err != nil {
		return Value{}, err
	}
	return Boolean(v.IsEmptyText()), nil
}

func fnIsError(_ *Env, args []Arg) (Value, error) {
	v, err := scalarVal(args[0])
	if err != nil {
		return Value{}, err
	}
	return Boolean(errorLike(v)), nil
}
