package tabular

import (
	"fmt"
	"strings"
)

// Lexer tokenizes a single formula body. The leading '=' marker is not
// part of the body; callers strip it before lexing.
type Lexer struct {
	input string
	pos   int
	char  byte
}

// NewLexer creates a lexer over the given formula body.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// readChar advances the lexer position
func (l *Lexer) readChar() {
	if l.pos >= len(l.input) {
		l.char = 0 // EOF
	} else {
		l.char = l.input[l.pos]
	}
	l.pos++
}

// peekChar returns the next character without advancing
func (l *Lexer) peekChar() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

// skipWhitespace skips whitespace characters
func (l *Lexer) skipWhitespace() {
	for l.char == ' ' || l.char == '\t' || l.char == '\r' || l.char == '\n' {
		l.readChar()
	}
}

// readString reads a double-quoted string literal, processing backslash
// escapes. The opening quote is the current character. Returns the
// unescaped content and whether the closing quote was found.
func (l *Lexer) readString() (string, bool) {
	var sb strings.Builder
	l.readChar() // Skip opening quote

	for l.char != '"' && l.char != 0 {
		if l.char == '\\' {
			switch l.peekChar() {
			case '"':
				sb.WriteByte('"')
				l.readChar()
			case '\\':
				sb.WriteByte('\\')
				l.readChar()
			case 'n':
				sb.WriteByte('\n')
				l.readChar()
			case 't':
				sb.WriteByte('\t')
				l.readChar()
			case 'r':
				sb.WriteByte('\r')
				l.readChar()
			default:
				// Unknown escape, keep the backslash as-is
				sb.WriteByte('\\')
			}
		} else {
			sb.WriteByte(l.char)
		}
		l.readChar()
	}

	if l.char != '"' {
		return sb.String(), false
	}
	l.readChar() // Skip closing quote
	return sb.String(), true
}

// readNumber reads an unsigned numeric literal: digits with an optional
// fraction part. Sign is handled by the parser as a unary operator.
func (l *Lexer) readNumber() string {
	startPos := l.pos - 1

	for isDigit(l.char) {
		l.readChar()
	}
	if l.char == '.' && isDigit(l.peekChar()) {
		l.readChar() // Skip dot
		for isDigit(l.char) {
			l.readChar()
		}
	}

	return l.input[startPos : l.pos-1]
}

// readWord reads an identifier, keyword or cell reference. Words start
// with a letter or underscore and continue with letters, digits and
// underscores.
func (l *Lexer) readWord() string {
	startPos := l.pos - 1

	for isLetter(l.char) || isDigit(l.char) || l.char == '_' {
		l.readChar()
	}

	return l.input[startPos : l.pos-1]
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()
	start := l.pos - 1

	switch l.char {
	case 0:
		return Token{Type: TOKEN_EOF, Pos: start}
	case '+':
		l.readChar()
		return Token{Type: TOKEN_PLUS, Literal: "+", Pos: start}
	case '-':
		l.readChar()
		return Token{Type: TOKEN_MINUS, Literal: "-", Pos: start}
	case '*':
		l.readChar()
		return Token{Type: TOKEN_MULTIPLY, Literal: "*", Pos: start}
	case '/':
		l.readChar()
		return Token{Type: TOKEN_DIVIDE, Literal: "/", Pos: start}
	case '%':
		l.readChar()
		return Token{Type: TOKEN_PERCENT, Literal: "%", Pos: start}
	case '^':
		l.readChar()
		return Token{Type: TOKEN_POWER, Literal: "^", Pos: start}
	case '(':
		l.readChar()
		return Token{Type: TOKEN_LPAREN, Literal: "(", Pos: start}
	case ')':
		l.readChar()
		return Token{Type: TOKEN_RPAREN, Literal: ")", Pos: start}
	case ',':
		l.readChar()
		return Token{Type: TOKEN_COMMA, Literal: ",", Pos: start}
	case ':':
		l.readChar()
		return Token{Type: TOKEN_COLON, Literal: ":", Pos: start}
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return Token{Type: TOKEN_EQ, Literal: "==", Pos: start}
		}
		l.readChar()
		return Token{Type: TOKEN_EQ, Literal: "=", Pos: start}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return Token{Type: TOKEN_LE, Literal: "<=", Pos: start}
		} else if l.peekChar() == '>' {
			l.readChar()
			l.readChar()
			return Token{Type: TOKEN_NE, Literal: "<>", Pos: start}
		}
		l.readChar()
		return Token{Type: TOKEN_LT, Literal: "<", Pos: start}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return Token{Type: TOKEN_GE, Literal: ">=", Pos: start}
		}
		l.readChar()
		return Token{Type: TOKEN_GT, Literal: ">", Pos: start}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return Token{Type: TOKEN_NE, Literal: "!=", Pos: start}
		}
		l.readChar()
		return Token{Type: TOKEN_NOT, Literal: "!", Pos: start}
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			l.readChar()
			return Token{Type: TOKEN_AND, Literal: "&&", Pos: start}
		}
		l.readChar()
		return Token{Type: TOKEN_ILLEGAL, Literal: fmt.Sprintf("unexpected character '&' at offset %d", start), Pos: start}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			l.readChar()
			return Token{Type: TOKEN_OR, Literal: "||", Pos: start}
		}
		l.readChar()
		return Token{Type: TOKEN_ILLEGAL, Literal: fmt.Sprintf("unexpected character '|' at offset %d", start), Pos: start}
	case '"':
		str, closed := l.readString()
		if !closed {
			return Token{Type: TOKEN_ILLEGAL, Literal: fmt.Sprintf("unterminated string at offset %d", start), Pos: start}
		}
		return Token{Type: TOKEN_STRING, Literal: str, Pos: start}
	default:
		if isDigit(l.char) || (l.char == '.' && isDigit(l.peekChar())) {
			return Token{Type: TOKEN_NUMBER, Literal: l.readNumber(), Pos: start}
		}
		if isLetter(l.char) || l.char == '_' {
			word := l.readWord()

			// A word directly followed by '(' is always a function name,
			// so AND(...), TRUE() and a plugin named A1 stay callable.
			if l.char == '(' {
				return Token{Type: TOKEN_IDENTIFIER, Literal: word, Pos: start}
			}

			switch strings.ToUpper(word) {
			case "AND":
				return Token{Type: TOKEN_AND, Literal: word, Pos: start}
			case "OR":
				return Token{Type: TOKEN_OR, Literal: word, Pos: start}
			case "NOT":
				return Token{Type: TOKEN_NOT, Literal: word, Pos: start}
			case "TRUE":
				return Token{Type: TOKEN_TRUE, Literal: word, Pos: start}
			case "FALSE":
				return Token{Type: TOKEN_FALSE, Literal: word, Pos: start}
			}

			if isCellWord(word) {
				return Token{Type: TOKEN_CELL, Literal: word, Pos: start}
			}
			return Token{Type: TOKEN_IDENTIFIER, Literal: word, Pos: start}
		}

		ch := l.char
		l.readChar()
		return Token{Type: TOKEN_ILLEGAL, Literal: fmt.Sprintf("unexpected character %q at offset %d", ch, start), Pos: start}
	}
}
