// internal/lexer/token.go
package lexer

import "fmt"

type TokenType string

const (
	// Keywords
	TokenLet    TokenType = "LET"
	TokenFn     TokenType = "FN"
	TokenReturn TokenType = "RETURN"
	TokenIf     TokenType = "IF"
	TokenElse   TokenType = "ELSE"
	TokenWhile  TokenType = "WHILE"
	TokenBreak  TokenType = "BREAK"
	TokenPrint  TokenType = "PRINT"

	// Literals
	TokenTrue   TokenType = "TRUE"
	TokenFalse  TokenType = "FALSE"
	TokenNil    TokenType = "NIL"
	TokenIdent  TokenType = "IDENT"
	TokenString TokenType = "STRING"
	TokenNumber TokenType = "NUMBER"

	// Symbols
	TokenLParen      TokenType = "("
	TokenRParen      TokenType = ")"
	TokenLBrace      TokenType = "{"
	TokenRBrace      TokenType = "}"
	TokenPlus        TokenType = "+"
	TokenMinus       TokenType = "-"
	TokenStar        TokenType = "*"
	TokenSlash       TokenType = "/"
	TokenPercent     TokenType = "%"
	TokenEqual       TokenType = "="
	TokenDoubleEqual TokenType = "=="
	TokenNotEqual    TokenType = "!="
	TokenLT          TokenType = "<"
	TokenGT          TokenType = ">"
	TokenLE          TokenType = "<="
	TokenGE          TokenType = ">="
	TokenAnd         TokenType = "&&"
	TokenOr          TokenType = "||"
	TokenNot         TokenType = "!"
	TokenComma       TokenType = ","

	TokenNewline TokenType = "NEWLINE"
	TokenEOF     TokenType = "EOF"
)

type Token struct {
	Type   TokenType
	Lexeme string
	Line   int
	Column int
}

func (t Token) String() string {
	return fmt.Sprintf("[%s] '%s'", t.Type, t.Lexeme)
}
