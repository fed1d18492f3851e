package tabular

import (
	"math"
)

// unary builds an implementation around a one-argument float function.
// Domain misses surface as NaN results, matching the IEEE behavior of
// the wrapped function.
func unary(f func(float64) float64) Impl {
	return func(_ *Env, args []Arg) (Value, error) {
		n, err := scalarNum(args[0])
		if err != nil {
			return Value{}, err
		}
		return Float(f(n)), nil
	}
}

// unaryNumber is unary but collapses whole results back to integers.
func unaryNumber(f func(float64) float64) Impl {
	return func(_ *Env, args []Arg) (Value, error) {
		n, err := scalarNum(args[0])
		if err != nil {
			return Value{}, err
		}
		return Number(f(n)), nil
	}
}

// binary builds an implementation around a two-argument float function.
func binary(f func(a, b float64) float64) Impl {
	return func(_ *Env, args []Arg) (Value, error) {
		a, err := scalarNum(args[0])
		if err != nil {
			return Value{}, err
		}
		b, err := scalarNum(args[1])
		if err != nil {
			return Value{}, err
		}
		return Float(f(a, b)), nil
	}
}

func constant(v Value) Impl {
	return func(*Env, []Arg) (Value, error) { return v, nil }
}

func registerMathFunctions(r *Registry) {
	r.register("ABS", 1, 1, unaryNumber(math.Abs))
	r.register("SQRT", 1, 1, unary(math.Sqrt))
	r.register("POW", 2, 2, binary(math.Pow))
	r.alias("POW", "POWER")
	r.register("EXP", 1, 1, unary(math.Exp))
	r.register("LN", 1, 1, unary(math.Log))
	r.register("LOG", 1, 1, unary(math.Log10))
	r.alias("LOG", "LOG10")
	r.register("LOG2", 1, 1, unary(math.Log2))
	r.register("FLOOR", 1, 1, unaryNumber(math.Floor))
	r.register("CEIL", 1, 1, unaryNumber(math.Ceil))
	r.alias("CEIL", "CEILING")
	r.register("ROUND", 1, 2, fnRound)
	r.register("TRUNC", 1, 1, unaryNumber(math.Trunc))
	r.register("INT", 1, 1, unaryNumber(math.Floor))
	r.register("SIGN", 1, 1, fnSign)
	r.register("MOD", 2, 2, binary(math.Mod))
	r.register("GCD", 2, -1, fnGCD)
	r.register("LCM", 2, -1, fnLCM)
	r.register("FACT", 1, 1, fnFact)
	r.register("COMBIN", 2, 2, fnCombin)
	r.register("PERMUT", 2, 2, fnPermut)
	r.register("SIN", 1, 1, unary(math.Sin))
	r.register("COS", 1, 1, unary(math.Cos))
	r.register("TAN", 1, 1, unary(math.Tan))
	r.register("ASIN", 1, 1, unary(math.Asin))
	r.register("ACOS", 1, 1, unary(math.Acos))
	r.register("ATAN", 1, 1, unary(math.Atan))
	r.register("ATAN2", 2, 2, binary(math.Atan2))
	r.register("SINH", 1, 1, unary(math.Sinh))
	r.register("COSH", 1, 1, unary(math.Cosh))
	r.register("TANH", 1, 1, unary(math.Tanh))
	r.register("DEGREES", 1, 1, unary(func(x float64) float64 { return x * 180 / math.Pi }))
	r.register("RADIANS", 1, 1, unary(func(x float64) float64 { return x * math.Pi / 180 }))
	r.register("PI", 0, 0, constant(Float(math.Pi)))
	r.register("E", 0, 0, constant(Float(math.E)))
	r.register("RAND", 0, 0, fnRand)
}

func fnRand(env *Env, _ []Arg) (Value, error) {
	return Float(env.Rand()), nil
}

// fnRound rounds half away from zero, optionally at a digit position:
// ROUND(2.5) is 3, ROUND(1.237, 2) is 1.24, ROUND(1234, -2) is 1200.
func fnRound(_ *Env, args []Arg) (Value, error) {
	n, err := scalarNum(args[0])
	if err != nil {
		return Value{}, err
	}
	if len(args) == 1 {
		return Number(math.Round(n)), nil
	}
	digits, err := scalarInt(args[1])
	if err != nil {
		return Value{}, err
	}
	scale := math.Pow(10, float64(digits))
	return Number(math.Round(n*scale) / scale), nil
}

func fnSign(_ *Env, args []Arg) (Value, error) {
	n, err := scalarNum(args[0])
	if err != nil {
		return Value{}, err
	}
	switch {
	case math.IsNaN(n):
		return Float(math.NaN()), nil
	case n > 0:
		return Integer(1), nil
	case n < 0:
		return Integer(-1), nil
	}
	return Integer(0), nil
}

func fnGCD(_ *Env, args []Arg) (Value, error) {
	g := int64(0)
	for _, a := range args {
		n, err := scalarInt(a)
		if err != nil {
			return Value{}, err
		}
		if n < 0 {
			return Value{}, NewCalcError(ErrDomain, "GCD arguments must be non-negative")
		}
		g = gcd(g, n)
	}
	return Integer(g), nil
}

func fnLCM(_ *Env, args []Arg) (Value, error) {
	l := int64(1)
	for _, a := range args {
		n, err := scalarInt(a)
		if err != nil {
			return Value{}, err
		}
		if n < 0 {
			return Value{}, NewCalcError(ErrDomain, "LCM arguments must be non-negative")
		}
		if n == 0 {
			return Integer(0), nil
		}
		quot := l / gcd(l, n)
		if quot > math.MaxInt64/n {
			return Value{}, NewCalcError(ErrDomain, "LCM result overflows")
		}
		l = quot * n
	}
	return Integer(l), nil
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// fnFact computes n! in floating point so large arguments overflow to
// Inf instead of wrapping; small results collapse back to integers.
func fnFact(_ *Env, args []Arg) (Value, error) {
	n, err := scalarInt(args[0])
	if err != nil {
		return Value{}, err
	}
	if n < 0 {
		return Value{}, NewCalcError(ErrDomain, "FACT of a negative number")
	}
	prod := 1.0
	for i := int64(2); i <= n; i++ {
		prod *= float64(i)
		if math.IsInf(prod, 0) {
			break
		}
	}
	return Number(prod), nil
}

// fnCombin uses the multiplicative formula, which stays exact enough to
// round back to the true integer for any count that fits a float64.
func fnCombin(_ *Env, args []Arg) (Value, error) {
	n, err := scalarInt(args[0])
	if err != nil {
		return Value{}, err
	}
	k, err := scalarInt(args[1])
	if err != nil {
		return Value{}, err
	}
	if n < 0 || k < 0 || k > n {
		return Value{}, NewCalcError(ErrDomain, "COMBIN needs 0 <= k <= n")
	}
	if k > n-k {
		k = n - k
	}
	c := 1.0
	for i := int64(1); i <= k; i++ {
		c = c * float64(n-k+i) / float64(i)
	}
	return Number(math.Round(c)), nil
}

func fnPermut(_ *Env, args []Arg) (Value, error) {
	n, err := scalarInt(args[0])
	if err != nil {
		return Value{}, err
	}
	k, err := scalarInt(args[1])
	if err != nil {
		return Value{}, err
	}
	if n < 0 || k < 0 || k > n {
		return Value{}, NewCalcError(ErrDomain, "PERMUT needs 0 <= k <= n")
	}
	p := 1.0
	for i := n - k + 1; i <= n; i++ {
		p *= float64(i)
		if math.IsInf(p, 0) {
			break
		}
	}
	return Number(p), nil
}
