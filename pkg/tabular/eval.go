package tabular

import (
	"math"
	"strings"
)

// floatEpsilon is the absolute tolerance for numeric equality in
// comparisons, one ulp at 1.0.
const floatEpsilon = 2.220446049250313e-16

// Evaluator walks expression trees against a resolver and a function
// registry. Failures never escape as Go errors; they come back as Error
// values so one bad formula cannot abort a whole pass.
type Evaluator struct {
	Registry *Registry
	Resolver Resolver
}

// NewEvaluator pairs a function registry with a reference resolver.
func NewEvaluator(reg *Registry, res Resolver) *Evaluator {
	return &Evaluator{Registry: reg, Resolver: res}
}

// EvalFormula parses and evaluates one formula body in a single step,
// with parse failures confined to the returned value the same way a
// calculate pass confines them to cells.
func EvalFormula(body string, reg *Registry, res Resolver) Value {
	expr, err := Parse(body)
	if err != nil {
		return errValue(err)
	}
	return NewEvaluator(reg, res).Eval(expr)
}

// Eval produces the Value of an expression.
func (e *Evaluator) Eval(x Expr) Value {
	switch n := x.(type) {
	case *IntegerLit:
		return Integer(n.Value)
	case *FloatLit:
		return Float(n.Value)
	case *StringLit:
		return Text(n.Value)
	case *BoolLit:
		return Boolean(n.Value)
	case *CellRef:
		return e.Resolver.Cell(n.Addr)
	case *RangeRef:
		// Ranges only make sense as function arguments
		return Errorv(ErrTypeCoercion)
	case *Unary:
		return e.evalUnary(n)
	case *Binary:
		return e.evalBinary(n)
	case *Call:
		return e.evalCall(n)
	}
	return Errorv(ErrParse)
}

func (e *Evaluator) evalUnary(n *Unary) Value {
	v := e.Eval(n.X)
	if v.IsError() {
		return v
	}

	switch n.Op {
	case TOKEN_MINUS:
		if i, ok := intOperand(v); ok && i != math.MinInt64 {
			return Integer(-i)
		}
		a, ok := v.AsNumber()
		if !ok {
			return Errorv(ErrTypeCoercion)
		}
		return Float(-a)
	case TOKEN_NOT:
		b, ok := v.Truthy()
		if !ok {
			return Errorv(ErrTypeCoercion)
		}
		return Boolean(!b)
	}
	return Errorv(ErrParse)
}

func (e *Evaluator) evalBinary(n *Binary) Value {
	switch n.Op {
	case TOKEN_AND, TOKEN_OR:
		return e.evalLogic(n)
	case TOKEN_EQ, TOKEN_NE, TOKEN_LT, TOKEN_LE, TOKEN_GT, TOKEN_GE:
		return evalCompare(n.Op, e.Eval(n.Left), e.Eval(n.Right))
	default:
		return evalArith(n.Op, e.Eval(n.Left), e.Eval(n.Right))
	}
}

// evalLogic implements the short-circuiting infix AND/OR: the right side
// is not evaluated when the left side already decides. The eager and()
// and or() functions always evaluate everything.
func (e *Evaluator) evalLogic(n *Binary) Value {
	left := e.Eval(n.Left)
	if left.IsError() {
		return left
	}
	lb, ok := left.Truthy()
	if !ok {
		return Errorv(ErrTypeCoercion)
	}

	if n.Op == TOKEN_AND && !lb {
		return Boolean(false)
	}
	if n.Op == TOKEN_OR && lb {
		return Boolean(true)
	}

	right := e.Eval(n.Right)
	if right.IsError() {
		return right
	}
	rb, ok := right.Truthy()
	if !ok {
		return Errorv(ErrTypeCoercion)
	}
	return Boolean(rb)
}

func (e *Evaluator) evalCall(c *Call) Value {
	args := make([]Arg, 0, len(c.Args))
	for _, ax := range c.Args {
		if rr, ok := ax.(*RangeRef); ok {
			args = append(args, Arg{Seq: e.rangeValues(rr.R)})
			continue
		}
		args = append(args, Arg{Val: e.Eval(ax)})
	}

	v, err := e.Registry.Call(c.Name, args)
	if err != nil {
		return errValue(err)
	}
	return v
}

// rangeValues resolves a range against the current grid extent into its
// element values in row-major order. The slice is non-nil even when the
// range is empty so it stays recognizable as a range argument.
func (e *Evaluator) rangeValues(r Range) []Value {
	rows, cols := e.Resolver.Extent()
	r1, c1, r2, c2, ok := r.Resolve(rows, cols)
	if !ok {
		return []Value{}
	}
	vals := make([]Value, 0, (r2-r1+1)*(c2-c1+1))
	for row := r1; row <= r2; row++ {
		for col := c1; col <= c2; col++ {
			vals = append(vals, e.Resolver.Cell(Address{Row: row, Col: col}))
		}
	}
	return vals
}

// evalCompare handles the six comparison operators. Two text operands
// compare lexicographically; everything else is compared numerically
// with equality tolerant to floatEpsilon, and ordering kept consistent
// with it.
func evalCompare(op TokenType, l, r Value) Value {
	if l.IsError() {
		return l
	}
	if r.IsError() {
		return r
	}

	if l.Kind() == KindText && r.Kind() == KindText {
		cmp := strings.Compare(l.Str(), r.Str())
		switch op {
		case TOKEN_EQ:
			return Boolean(cmp == 0)
		case TOKEN_NE:
			return Boolean(cmp != 0)
		case TOKEN_LT:
			return Boolean(cmp < 0)
		case TOKEN_LE:
			return Boolean(cmp <= 0)
		case TOKEN_GT:
			return Boolean(cmp > 0)
		case TOKEN_GE:
			return Boolean(cmp >= 0)
		}
		return Errorv(ErrParse)
	}

	a, aok := l.AsNumber()
	b, bok := r.AsNumber()
	if !aok || !bok {
		return Errorv(ErrTypeCoercion)
	}
	eq := math.Abs(a-b) <= floatEpsilon
	switch op {
	case TOKEN_EQ:
		return Boolean(eq)
	case TOKEN_NE:
		return Boolean(!eq)
	case TOKEN_LT:
		return Boolean(a < b && !eq)
	case TOKEN_LE:
		return Boolean(a < b || eq)
	case TOKEN_GT:
		return Boolean(a > b && !eq)
	case TOKEN_GE:
		return Boolean(a > b || eq)
	}
	return Errorv(ErrParse)
}

// evalArith handles + - * / % ^. Two integer operands stay in integer
// arithmetic for + - * and %, promoting to float on overflow; division
// and power always work in float, so dividing by zero yields a signed
// infinity rather than an error.
func evalArith(op TokenType, l, r Value) Value {
	if l.IsError() {
		return l
	}
	if r.IsError() {
		return r
	}

	if ai, aok := intOperand(l); aok {
		if bi, bok := intOperand(r); bok {
			switch op {
			case TOKEN_PLUS:
				if res, ok := addInt(ai, bi); ok {
					return Integer(res)
				}
			case TOKEN_MINUS:
				if res, ok := subInt(ai, bi); ok {
					return Integer(res)
				}
			case TOKEN_MULTIPLY:
				if res, ok := mulInt(ai, bi); ok {
					return Integer(res)
				}
			case TOKEN_PERCENT:
				if bi != 0 {
					return Integer(ai % bi)
				}
			}
		}
	}

	a, aok := l.AsNumber()
	b, bok := r.AsNumber()
	if !aok || !bok {
		return Errorv(ErrTypeCoercion)
	}
	switch op {
	case TOKEN_PLUS:
		return Float(a + b)
	case TOKEN_MINUS:
		return Float(a - b)
	case TOKEN_MULTIPLY:
		return Float(a * b)
	case TOKEN_DIVIDE:
		return Float(a / b)
	case TOKEN_PERCENT:
		return Float(math.Mod(a, b))
	case TOKEN_POWER:
		return Float(math.Pow(a, b))
	}
	return Errorv(ErrParse)
}

// intOperand reports the exact integer reading of a value: Integer and
// Boolean directly, text only when it coerces to a whole number.
func intOperand(v Value) (int64, bool) {
	switch v.Kind() {
	case KindInteger, KindBoolean:
		return v.Int(), true
	case KindText:
		n, ok := v.AsNumber()
		if ok && n == math.Trunc(n) && n >= math.MinInt64 && n <= math.MaxInt64 {
			return int64(n), true
		}
	}
	return 0, false
}

func addInt(a, b int64) (int64, bool) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}

func subInt(a, b int64) (int64, bool) {
	if (b < 0 && a > math.MaxInt64+b) || (b > 0 && a < math.MinInt64+b) {
		return 0, false
	}
	return a - b, true
}

func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	res := a * b
	if res/a != b {
		return 0, false
	}
	return res, true
}
