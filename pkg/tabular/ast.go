package tabular

// Expr is a parsed formula expression. The concrete node types below are
// what the evaluator walks; they carry no source positions because errors
// during evaluation name cells, not offsets.
type Expr interface {
	exprNode()
}

// IntegerLit is an integer literal such as 42.
type IntegerLit struct {
	Value int64
}

// FloatLit is a decimal literal such as 3.14.
type FloatLit struct {
	Value float64
}

// StringLit is a double-quoted string literal, already unescaped.
type StringLit struct {
	Value string
}

// BoolLit is a TRUE or FALSE literal.
type BoolLit struct {
	Value bool
}

// CellRef references a single cell, e.g. B12.
type CellRef struct {
	Addr Address
}

// RangeRef references a rectangular block, e.g. A1:B3, A:C or 2:5.
type RangeRef struct {
	R Range
}

// Unary is a prefix operation: negation or NOT.
type Unary struct {
	Op TokenType
	X  Expr
}

// Binary is an infix operation. Op is the operator token type.
type Binary struct {
	Op    TokenType
	Left  Expr
	Right Expr
}

// Call is a function invocation. Name keeps the case the user wrote;
// lookup is case-insensitive.
type Call struct {
	Name string
	Args []Expr
}

func (*IntegerLit) exprNode() {}
func (*FloatLit) exprNode()   {}
func (*StringLit) exprNode()  {}
func (*BoolLit) exprNode()    {}
func (*CellRef) exprNode()    {}
func (*RangeRef) exprNode()   {}
func (*Unary) exprNode()      {}
func (*Binary) exprNode()     {}
func (*Call) exprNode()       {}
