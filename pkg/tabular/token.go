package tabular

// Token types for formula lexing
type TokenType int

const (
	TOKEN_EOF TokenType = iota
	TOKEN_ILLEGAL
	TOKEN_NUMBER
	TOKEN_STRING
	TOKEN_IDENTIFIER
	TOKEN_CELL
	TOKEN_TRUE
	TOKEN_FALSE
	TOKEN_PLUS
	TOKEN_MINUS
	TOKEN_MULTIPLY
	TOKEN_DIVIDE
	TOKEN_PERCENT
	TOKEN_POWER
	TOKEN_LPAREN
	TOKEN_RPAREN
	TOKEN_COMMA
	TOKEN_COLON
	TOKEN_EQ
	TOKEN_NE
	TOKEN_LT
	TOKEN_LE
	TOKEN_GT
	TOKEN_GE
	TOKEN_AND
	TOKEN_OR
	TOKEN_NOT
)

var tokenNames = map[TokenType]string{
	TOKEN_EOF:        "end of formula",
	TOKEN_ILLEGAL:    "illegal token",
	TOKEN_NUMBER:     "number",
	TOKEN_STRING:     "string",
	TOKEN_IDENTIFIER: "identifier",
	TOKEN_CELL:       "cell reference",
	TOKEN_TRUE:       "TRUE",
	TOKEN_FALSE:      "FALSE",
	TOKEN_PLUS:       "'+'",
	TOKEN_MINUS:      "'-'",
	TOKEN_MULTIPLY:   "'*'",
	TOKEN_DIVIDE:     "'/'",
	TOKEN_PERCENT:    "'%'",
	TOKEN_POWER:      "'^'",
	TOKEN_LPAREN:     "'('",
	TOKEN_RPAREN:     "')'",
	TOKEN_COMMA:      "','",
	TOKEN_COLON:      "':'",
	TOKEN_EQ:         "'='",
	TOKEN_NE:         "'<>'",
	TOKEN_LT:         "'<'",
	TOKEN_LE:         "'<='",
	TOKEN_GT:         "'>'",
	TOKEN_GE:         "'>='",
	TOKEN_AND:        "AND",
	TOKEN_OR:         "OR",
	TOKEN_NOT:        "NOT",
}

// String returns a readable name for error messages.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "unknown token"
}

// Token represents one lexical token of a formula. For TOKEN_STRING the
// Literal holds the unescaped string content; for TOKEN_ILLEGAL it holds a
// description of what went wrong. Pos is the byte offset in the formula
// where the token starts.
type Token struct {
	Type    TokenType
	Literal string
	Pos     int
}
