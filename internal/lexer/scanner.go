// internal/lexer/scanner.go
package lexer

import (
	"io"
	"strings"

	"plum/internal/errors"
)

// Scanner produces tokens on demand from a Source. It pulls characters one
// at a time so an interactive session is only ever prompted for another line
// when the next token genuinely requires one.
type Scanner struct {
	src  Source
	file string
	pos  int // offset of the next unread character in the source
	line int
	col  int
	eof  bool
}

func NewScanner(src Source, file string) *Scanner {
	return &Scanner{
		src:  src,
		file: file,
		line: 1,
	}
}

// NextToken scans and returns the next token. End of input yields TokenEOF.
// Malformed input panics with a *errors.Error; an interrupt while blocked on
// input panics with ErrInterrupted. Both are recovered by the pipeline entry
// points in the compiler package.
func (s *Scanner) NextToken() Token {
	s.skipSpace()

	line, col := s.line, s.col+1
	c := s.advance()
	if s.eof {
		return Token{Type: TokenEOF, Line: line, Column: col}
	}

	switch c {
	case '\n':
		return s.token(TokenNewline, "\n", line, col)
	case '(':
		return s.token(TokenLParen, "(", line, col)
	case ')':
		return s.token(TokenRParen, ")", line, col)
	case '{':
		return s.token(TokenLBrace, "{", line, col)
	case '}':
		return s.token(TokenRBrace, "}", line, col)
	case ',':
		return s.token(TokenComma, ",", line, col)
	case '+':
		return s.token(TokenPlus, "+", line, col)
	case '-':
		return s.token(TokenMinus, "-", line, col)
	case '*':
		return s.token(TokenStar, "*", line, col)
	case '/':
		return s.token(TokenSlash, "/", line, col)
	case '%':
		return s.token(TokenPercent, "%", line, col)
	case '=':
		if s.match('=') {
			return s.token(TokenDoubleEqual, "==", line, col)
		}
		return s.token(TokenEqual, "=", line, col)
	case '!':
		if s.match('=') {
			return s.token(TokenNotEqual, "!=", line, col)
		}
		return s.token(TokenNot, "!", line, col)
	case '<':
		if s.match('=') {
			return s.token(TokenLE, "<=", line, col)
		}
		return s.token(TokenLT, "<", line, col)
	case '>':
		if s.match('=') {
			return s.token(TokenGE, ">=", line, col)
		}
		return s.token(TokenGT, ">", line, col)
	case '&':
		if s.match('&') {
			return s.token(TokenAnd, "&&", line, col)
		}
		panic(errors.NewSyntaxError("unexpected character '&'", s.file, line, col))
	case '|':
		if s.match('|') {
			return s.token(TokenOr, "||", line, col)
		}
		panic(errors.NewSyntaxError("unexpected character '|'", s.file, line, col))
	case '"':
		return s.string(line, col)
	}

	if isDigit(c) {
		return s.number(c, line, col)
	}
	if isAlpha(c) {
		return s.identifier(c, line, col)
	}

	panic(errors.NewSyntaxError("unexpected character '"+string(c)+"'", s.file, line, col))
}

// advance consumes and returns the next character. At end of input it sets
// s.eof and returns 0.
func (s *Scanner) advance() byte {
	if s.eof {
		return 0
	}
	b, err := s.src.ReadN(1)
	if err == io.EOF {
		s.eof = true
		return 0
	}
	if err != nil {
		panic(err)
	}
	s.pos++
	if b[0] == '\n' {
		s.line++
		s.col = 0
	} else {
		s.col++
	}
	return b[0]
}

// peek returns the next character without consuming it, by reading one
// character and seeking back to the position observed before the read.
func (s *Scanner) peek() byte {
	if s.eof {
		return 0
	}
	b, err := s.src.ReadN(1)
	if err == io.EOF {
		return 0
	}
	if err != nil {
		panic(err)
	}
	s.src.Seek(s.pos)
	return b[0]
}

func (s *Scanner) match(expected byte) bool {
	if s.peek() != expected {
		return false
	}
	s.advance()
	return true
}

func (s *Scanner) token(t TokenType, lexeme string, line, col int) Token {
	return Token{Type: t, Lexeme: lexeme, Line: line, Column: col}
}

// skipSpace skips blanks and '#' comments. Newlines are significant and are
// left for NextToken to turn into tokens.
func (s *Scanner) skipSpace() {
	for {
		switch s.peek() {
		case ' ', '\t', '\r':
			s.advance()
		case '#':
			for {
				c := s.peek()
				if c == '\n' || (c == 0 && s.eofAhead()) {
					break
				}
				s.advance()
			}
		default:
			return
		}
		if s.eof {
			return
		}
	}
}

// eofAhead reports whether peek returned 0 because input is exhausted rather
// than because a NUL byte is next.
func (s *Scanner) eofAhead() bool {
	_, err := s.src.ReadN(1)
	if err == io.EOF {
		return true
	}
	if err != nil {
		panic(err)
	}
	s.src.Seek(s.pos)
	return false
}

func (s *Scanner) string(line, col int) Token {
	var sb strings.Builder
	for {
		c := s.peek()
		if c == '\n' || (c == 0 && s.eofAhead()) {
			panic(errors.NewSyntaxError("unterminated string", s.file, line, col))
		}
		s.advance()
		if c == '"' {
			return Token{Type: TokenString, Lexeme: sb.String(), Line: line, Column: col}
		}
		if c == '\\' {
			esc := s.advance()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			default:
				panic(errors.NewSyntaxError("invalid escape sequence", s.file, s.line, s.col))
			}
			continue
		}
		sb.WriteByte(c)
	}
}

func (s *Scanner) number(first byte, line, col int) Token {
	var sb strings.Builder
	sb.WriteByte(first)
	for {
		c := s.peek()
		if isDigit(c) {
			sb.WriteByte(s.advance())
		} else if c == '_' && isDigit(s.peekPast()) {
			s.advance() // digit separator, not part of the value
		} else {
			break
		}
	}
	if s.peek() == '.' && isDigit(s.peekPast()) {
		sb.WriteByte(s.advance())
		for isDigit(s.peek()) {
			sb.WriteByte(s.advance())
		}
	}
	return Token{Type: TokenNumber, Lexeme: sb.String(), Line: line, Column: col}
}

// peekPast looks one character beyond the immediate peek. Both observed
// positions have already been read when this returns, so seeking back is safe.
func (s *Scanner) peekPast() byte {
	if s.eof {
		return 0
	}
	b, err := s.src.ReadN(2)
	if err == io.EOF {
		return 0
	}
	if err != nil {
		panic(err)
	}
	s.src.Seek(s.pos)
	return b[1]
}

func (s *Scanner) identifier(first byte, line, col int) Token {
	var sb strings.Builder
	sb.WriteByte(first)
	for isAlphaNumeric(s.peek()) {
		sb.WriteByte(s.advance())
	}
	text := sb.String()

	var t TokenType
	switch text {
	case "let":
		t = TokenLet
	case "fn":
		t = TokenFn
	case "return":
		t = TokenReturn
	case "if":
		t = TokenIf
	case "else":
		t = TokenElse
	case "while":
		t = TokenWhile
	case "break":
		t = TokenBreak
	case "print":
		t = TokenPrint
	case "true":
		t = TokenTrue
	case "false":
		t = TokenFalse
	case "nil":
		t = TokenNil
	default:
		t = TokenIdent
	}
	return Token{Type: t, Lexeme: text, Line: line, Column: col}
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isAlpha(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isAlphaNumeric(c byte) bool {
	return isAlpha(c) || isDigit(c)
}
