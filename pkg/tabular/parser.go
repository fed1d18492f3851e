package tabular

import (
	"strconv"
	"strings"
)

// parser builds an Expr tree from the token stream using one recursive
// descent function per precedence level. Each parse function consumes its
// whole expression and leaves current at the first unconsumed token.
type parser struct {
	lexer   *Lexer
	current Token
	peek    Token
}

// Parse parses a formula body (without the leading '=' marker) into an
// expression tree. Lexing problems come back as LEX ERROR values, grammar
// problems as PARSE ERROR values, both via *CalcError.
func Parse(formula string) (Expr, error) {
	if strings.TrimSpace(formula) == "" {
		return nil, NewCalcError(ErrParse, "empty formula")
	}

	p := &parser{lexer: NewLexer(formula)}
	// Read two tokens to initialize current and peek
	p.nextToken()
	p.nextToken()

	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if !p.currentTokenIs(TOKEN_EOF) {
		return nil, parseErr(p.current)
	}
	return expr, nil
}

// nextToken advances to the next token
func (p *parser) nextToken() {
	p.current = p.peek
	p.peek = p.lexer.NextToken()
}

// currentTokenIs checks if current token is of given type
func (p *parser) currentTokenIs(t TokenType) bool {
	return p.current.Type == t
}

// peekTokenIs checks if peek token is of given type
func (p *parser) peekTokenIs(t TokenType) bool {
	return p.peek.Type == t
}

// parseErr turns an unexpected token into the right error category.
func parseErr(tok Token) error {
	if tok.Type == TOKEN_ILLEGAL {
		return NewCalcError(ErrLex, "%s", tok.Literal)
	}
	return NewCalcError(ErrParse, "unexpected %s at offset %d", tok.Type, tok.Pos)
}

// parseExpression parses at the lowest precedence level
func (p *parser) parseExpression() (Expr, error) {
	return p.parseOrExpression()
}

// parseOrExpression handles OR (lowest precedence)
func (p *parser) parseOrExpression() (Expr, error) {
	left, err := p.parseAndExpression()
	if err != nil {
		return nil, err
	}

	for p.currentTokenIs(TOKEN_OR) {
		p.nextToken()
		right, err := p.parseAndExpression()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: TOKEN_OR, Left: left, Right: right}
	}

	return left, nil
}

// parseAndExpression handles AND
func (p *parser) parseAndExpression() (Expr, error) {
	left, err := p.parseComparisonExpression()
	if err != nil {
		return nil, err
	}

	for p.currentTokenIs(TOKEN_AND) {
		p.nextToken()
		right, err := p.parseComparisonExpression()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: TOKEN_AND, Left: left, Right: right}
	}

	return left, nil
}

// parseComparisonExpression handles =, <>, <, <=, > and >= at a single
// precedence level
func (p *parser) parseComparisonExpression() (Expr, error) {
	left, err := p.parseAdditiveExpression()
	if err != nil {
		return nil, err
	}

	for {
		switch p.current.Type {
		case TOKEN_EQ, TOKEN_NE, TOKEN_LT, TOKEN_LE, TOKEN_GT, TOKEN_GE:
			op := p.current.Type
			p.nextToken()
			right, err := p.parseAdditiveExpression()
			if err != nil {
				return nil, err
			}
			left = &Binary{Op: op, Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

// parseAdditiveExpression handles + and -
func (p *parser) parseAdditiveExpression() (Expr, error) {
	left, err := p.parseMultiplicativeExpression()
	if err != nil {
		return nil, err
	}

	for {
		switch p.current.Type {
		case TOKEN_PLUS, TOKEN_MINUS:
			op := p.current.Type
			p.nextToken()
			right, err := p.parseMultiplicativeExpression()
			if err != nil {
				return nil, err
			}
			left = &Binary{Op: op, Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

// parseMultiplicativeExpression handles *, / and %
func (p *parser) parseMultiplicativeExpression() (Expr, error) {
	left, err := p.parsePowerExpression()
	if err != nil {
		return nil, err
	}

	for {
		switch p.current.Type {
		case TOKEN_MULTIPLY, TOKEN_DIVIDE, TOKEN_PERCENT:
			op := p.current.Type
			p.nextToken()
			right, err := p.parsePowerExpression()
			if err != nil {
				return nil, err
			}
			left = &Binary{Op: op, Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

// parsePowerExpression handles ^ (right-associative)
func (p *parser) parsePowerExpression() (Expr, error) {
	left, err := p.parseUnaryExpression()
	if err != nil {
		return nil, err
	}

	if p.currentTokenIs(TOKEN_POWER) {
		p.nextToken()
		right, err := p.parsePowerExpression()
		if err != nil {
			return nil, err
		}
		return &Binary{Op: TOKEN_POWER, Left: left, Right: right}, nil
	}

	return left, nil
}

// parseUnaryExpression handles unary -, + and NOT
func (p *parser) parseUnaryExpression() (Expr, error) {
	switch p.current.Type {
	case TOKEN_MINUS:
		p.nextToken()
		x, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: TOKEN_MINUS, X: x}, nil
	case TOKEN_PLUS:
		p.nextToken()
		return p.parseUnaryExpression()
	case TOKEN_NOT:
		p.nextToken()
		x, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: TOKEN_NOT, X: x}, nil
	default:
		return p.parsePrimaryExpression()
	}
}

// parsePrimaryExpression handles literals, references, ranges, function
// calls and parentheses
func (p *parser) parsePrimaryExpression() (Expr, error) {
	switch p.current.Type {
	case TOKEN_NUMBER:
		if p.peekTokenIs(TOKEN_COLON) {
			return p.parseRowRange()
		}
		return p.parseNumber()

	case TOKEN_STRING:
		lit := &StringLit{Value: p.current.Literal}
		p.nextToken()
		return lit, nil

	case TOKEN_TRUE:
		p.nextToken()
		return &BoolLit{Value: true}, nil

	case TOKEN_FALSE:
		p.nextToken()
		return &BoolLit{Value: false}, nil

	case TOKEN_CELL:
		if p.peekTokenIs(TOKEN_COLON) {
			return p.parseCellRange()
		}
		addr, err := ParseAddress(p.current.Literal)
		if err != nil {
			return nil, NewCalcError(ErrParse, "invalid cell reference %q", p.current.Literal)
		}
		p.nextToken()
		return &CellRef{Addr: addr}, nil

	case TOKEN_IDENTIFIER:
		if p.peekTokenIs(TOKEN_LPAREN) {
			return p.parseCall()
		}
		if p.peekTokenIs(TOKEN_COLON) && isLetters(p.current.Literal) {
			return p.parseColumnRange()
		}
		return nil, NewCalcError(ErrParse, "unexpected identifier %q at offset %d", p.current.Literal, p.current.Pos)

	case TOKEN_LPAREN:
		p.nextToken() // Skip (
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if !p.currentTokenIs(TOKEN_RPAREN) {
			return nil, parseErr(p.current)
		}
		p.nextToken() // Skip )
		return inner, nil

	default:
		return nil, parseErr(p.current)
	}
}

// parseNumber parses an integer or float literal. Integer literals beyond
// the int64 range fall back to floats.
func (p *parser) parseNumber() (Expr, error) {
	lit := p.current.Literal
	p.nextToken()

	if !strings.Contains(lit, ".") {
		if n, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return &IntegerLit{Value: n}, nil
		}
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return nil, NewCalcError(ErrParse, "bad number literal %q", lit)
	}
	return &FloatLit{Value: f}, nil
}

// parseCellRange parses A1:B3 with the first cell as the current token.
func (p *parser) parseCellRange() (Expr, error) {
	a, err := ParseAddress(p.current.Literal)
	if err != nil {
		return nil, NewCalcError(ErrParse, "invalid cell reference %q", p.current.Literal)
	}
	p.nextToken() // Skip first cell
	p.nextToken() // Skip colon
	if !p.currentTokenIs(TOKEN_CELL) {
		return nil, parseErr(p.current)
	}
	b, err := ParseAddress(p.current.Literal)
	if err != nil {
		return nil, NewCalcError(ErrParse, "invalid cell reference %q", p.current.Literal)
	}
	p.nextToken()
	return &RangeRef{R: CellRange(a, b)}, nil
}

// parseColumnRange parses A:C with the first column word as the current
// token.
func (p *parser) parseColumnRange() (Expr, error) {
	c1, err := ParseColumn(p.current.Literal)
	if err != nil {
		return nil, NewCalcError(ErrParse, "invalid column %q", p.current.Literal)
	}
	p.nextToken() // Skip first column
	p.nextToken() // Skip colon
	if !p.currentTokenIs(TOKEN_IDENTIFIER) || !isLetters(p.current.Literal) {
		return nil, parseErr(p.current)
	}
	c2, err := ParseColumn(p.current.Literal)
	if err != nil {
		return nil, NewCalcError(ErrParse, "invalid column %q", p.current.Literal)
	}
	p.nextToken()
	return &RangeRef{R: ColRange(c1, c2)}, nil
}

// parseRowRange parses 2:5 with the first row number as the current token.
func (p *parser) parseRowRange() (Expr, error) {
	r1, err := strconv.Atoi(p.current.Literal)
	if err != nil || r1 < 1 {
		return nil, NewCalcError(ErrParse, "invalid row %q in range", p.current.Literal)
	}
	p.nextToken() // Skip first row
	p.nextToken() // Skip colon
	if !p.currentTokenIs(TOKEN_NUMBER) {
		return nil, parseErr(p.current)
	}
	r2, err := strconv.Atoi(p.current.Literal)
	if err != nil || r2 < 1 {
		return nil, NewCalcError(ErrParse, "invalid row %q in range", p.current.Literal)
	}
	p.nextToken()
	return &RangeRef{R: RowRange(r1, r2)}, nil
}

// parseCall parses a function invocation with the name as the current
// token and '(' as peek.
func (p *parser) parseCall() (Expr, error) {
	name := p.current.Literal
	p.nextToken() // Skip function name
	p.nextToken() // Skip (

	var args []Expr
	if !p.currentTokenIs(TOKEN_RPAREN) {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.currentTokenIs(TOKEN_COMMA) {
				break
			}
			p.nextToken() // Skip comma
		}
	}

	if !p.currentTokenIs(TOKEN_RPAREN) {
		return nil, parseErr(p.current)
	}
	p.nextToken() // Skip )
	return &Call{Name: name, Args: args}, nil
}
