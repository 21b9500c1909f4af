// internal/parser/parser.go
package parser

import (
	"strconv"
	"strings"

	"plum/internal/errors"
	"plum/internal/lexer"
)

var precedence = map[lexer.TokenType]int{
	lexer.TokenOr:          1,
	lexer.TokenAnd:         2,
	lexer.TokenDoubleEqual: 3,
	lexer.TokenNotEqual:    3,
	lexer.TokenLT:          4,
	lexer.TokenGT:          4,
	lexer.TokenLE:          4,
	lexer.TokenGE:          4,
	lexer.TokenPlus:        5,
	lexer.TokenMinus:       5,
	lexer.TokenStar:        6,
	lexer.TokenSlash:       6,
	lexer.TokenPercent:     6,
}

// Parser consumes tokens from a streaming Scanner with a single token of
// lookahead. It never reads further ahead than the grammar requires, so an
// interactive source is only prompted when the current statement is
// genuinely incomplete.
type Parser struct {
	sc   *lexer.Scanner
	tok  lexer.Token
	file string
}

// NewParser creates a parser and primes its lookahead, which pulls the first
// characters from the source.
func NewParser(src lexer.Source, file string) *Parser {
	p := &Parser{
		sc:   lexer.NewScanner(src, file),
		file: file,
	}
	p.advance()
	return p
}

// ParseProgram parses statements until end of input. Used for batch mode.
func (p *Parser) ParseProgram() []Stmt {
	var stmts []Stmt
	for {
		p.skipNewlines()
		if p.tok.Type == lexer.TokenEOF {
			return stmts
		}
		stmts = append(stmts, p.statement())
		p.endOfStatement()
	}
}

// ParseStatement parses exactly one statement and stops on its terminating
// newline without reading past it. It returns nil when end of input arrives
// before any statement begins; end of input mid-statement is a syntax error —
// distinguishing the two is the parser's job, not the input adapter's.
func (p *Parser) ParseStatement() Stmt {
	p.skipNewlines()
	if p.tok.Type == lexer.TokenEOF {
		return nil
	}
	stmt := p.statement()
	if p.tok.Type != lexer.TokenNewline && p.tok.Type != lexer.TokenEOF {
		panic(p.syntaxError("unexpected " + p.describe() + " after statement"))
	}
	return stmt
}

func (p *Parser) statement() Stmt {
	switch p.tok.Type {
	case lexer.TokenLet:
		p.advance()
		name := p.consume(lexer.TokenIdent, "expect variable name after 'let'")
		p.consume(lexer.TokenEqual, "expect '=' after variable name")
		return &LetStmt{Name: name.Lexeme, Expr: p.expression()}

	case lexer.TokenFn:
		return p.function()

	case lexer.TokenReturn:
		p.advance()
		var value Expr
		if p.tok.Type != lexer.TokenNewline && p.tok.Type != lexer.TokenRBrace && p.tok.Type != lexer.TokenEOF {
			value = p.expression()
		}
		return &ReturnStmt{Value: value}

	case lexer.TokenIf:
		p.advance()
		return p.ifStatement()

	case lexer.TokenWhile:
		p.advance()
		cond := p.expression()
		body := p.block("while")
		return &WhileStmt{Condition: cond, Body: body}

	case lexer.TokenBreak:
		p.advance()
		return &BreakStmt{}

	case lexer.TokenPrint:
		p.advance()
		p.consume(lexer.TokenLParen, "expect '(' after print")
		expr := p.expression()
		p.consume(lexer.TokenRParen, "expect ')' after print argument")
		return &PrintStmt{Expr: expr}

	case lexer.TokenIdent:
		// Either an assignment or an expression that starts with a name.
		// One token of lookahead decides after the identifier is consumed.
		name := p.tok
		p.advance()
		if p.tok.Type == lexer.TokenEqual {
			p.advance()
			return &AssignStmt{Name: name.Lexeme, Value: p.expression()}
		}
		left := p.finishPrimary(&Variable{Name: name.Lexeme})
		return &ExpressionStmt{Expr: p.binary(left, 0)}
	}

	return &ExpressionStmt{Expr: p.expression()}
}

func (p *Parser) ifStatement() Stmt {
	cond := p.expression()
	then := p.block("if")

	var elseBranch []Stmt
	if p.tok.Type == lexer.TokenElse {
		p.advance()
		if p.tok.Type == lexer.TokenIf {
			p.advance()
			elseBranch = []Stmt{p.ifStatement()}
		} else {
			elseBranch = p.block("else")
		}
	}
	return &IfStmt{Condition: cond, Then: then, Else: elseBranch}
}

func (p *Parser) function() Stmt {
	p.advance()
	name := p.consume(lexer.TokenIdent, "expect function name after 'fn'")
	p.consume(lexer.TokenLParen, "expect '(' after function name")

	var params []string
	if p.tok.Type != lexer.TokenRParen {
		for {
			param := p.consume(lexer.TokenIdent, "expect parameter name")
			params = append(params, param.Lexeme)
			if p.tok.Type != lexer.TokenComma {
				break
			}
			p.advance()
		}
	}
	p.consume(lexer.TokenRParen, "expect ')' after parameters")

	body := p.block("fn")
	return &FunctionStmt{Name: name.Lexeme, Params: params, Body: body}
}

// block parses "{ stmts }". Newlines separate statements inside the braces.
func (p *Parser) block(context string) []Stmt {
	p.consume(lexer.TokenLBrace, "expect '{' after "+context)

	var stmts []Stmt
	for {
		p.skipNewlines()
		if p.tok.Type == lexer.TokenRBrace {
			p.advance()
			return stmts
		}
		if p.tok.Type == lexer.TokenEOF {
			panic(p.syntaxError("unexpected end of input, expect '}'"))
		}
		stmts = append(stmts, p.statement())
		if p.tok.Type != lexer.TokenNewline && p.tok.Type != lexer.TokenRBrace {
			panic(p.syntaxError("unexpected " + p.describe() + " after statement"))
		}
	}
}

//
// Expressions
//

func (p *Parser) expression() Expr {
	return p.binary(p.unary(), 0)
}

// binary implements precedence climbing over the operator table.
func (p *Parser) binary(left Expr, minPrec int) Expr {
	for {
		prec, ok := precedence[p.tok.Type]
		if !ok || prec < minPrec {
			return left
		}
		op := p.tok
		p.advance()
		right := p.unary()

		// Bind tighter operators on the right first.
		for {
			nextPrec, ok := precedence[p.tok.Type]
			if !ok || nextPrec <= prec {
				break
			}
			right = p.binary(right, nextPrec)
		}

		if op.Type == lexer.TokenAnd || op.Type == lexer.TokenOr {
			left = &Logical{Left: left, Operator: op.Lexeme, Right: right}
		} else {
			left = &Binary{Left: left, Operator: op.Lexeme, Right: right}
		}
	}
}

func (p *Parser) unary() Expr {
	switch p.tok.Type {
	case lexer.TokenNot, lexer.TokenMinus:
		op := p.tok.Lexeme
		p.advance()
		return &Unary{Operator: op, Operand: p.unary()}
	}
	return p.primary()
}

func (p *Parser) primary() Expr {
	switch p.tok.Type {
	case lexer.TokenNumber:
		text := strings.ReplaceAll(p.tok.Lexeme, "_", "")
		value, err := strconv.ParseFloat(text, 64)
		if err != nil {
			panic(p.syntaxError("invalid number literal '" + p.tok.Lexeme + "'"))
		}
		p.advance()
		return &Literal{Value: value}

	case lexer.TokenString:
		value := p.tok.Lexeme
		p.advance()
		return &Literal{Value: value}

	case lexer.TokenTrue:
		p.advance()
		return &Literal{Value: true}

	case lexer.TokenFalse:
		p.advance()
		return &Literal{Value: false}

	case lexer.TokenNil:
		p.advance()
		return &Literal{Value: nil}

	case lexer.TokenIdent:
		name := p.tok.Lexeme
		p.advance()
		return p.finishPrimary(&Variable{Name: name})

	case lexer.TokenLParen:
		p.advance()
		expr := p.expression()
		p.consume(lexer.TokenRParen, "expect ')' after expression")
		return p.finishPrimary(expr)
	}

	panic(p.syntaxError("unexpected " + p.describe() + " in expression"))
}

// finishPrimary applies call suffixes to an already-parsed primary.
func (p *Parser) finishPrimary(expr Expr) Expr {
	for p.tok.Type == lexer.TokenLParen {
		p.advance()
		var args []Expr
		if p.tok.Type != lexer.TokenRParen {
			for {
				args = append(args, p.expression())
				if p.tok.Type != lexer.TokenComma {
					break
				}
				p.advance()
			}
		}
		p.consume(lexer.TokenRParen, "expect ')' after arguments")
		expr = &CallExpr{Callee: expr, Args: args}
	}
	return expr
}

//
// Token plumbing
//

func (p *Parser) advance() lexer.Token {
	prev := p.tok
	p.tok = p.sc.NextToken()
	return prev
}

func (p *Parser) skipNewlines() {
	for p.tok.Type == lexer.TokenNewline {
		p.advance()
	}
}

// endOfStatement consumes the statement terminator in batch mode.
func (p *Parser) endOfStatement() {
	switch p.tok.Type {
	case lexer.TokenNewline:
		p.advance()
	case lexer.TokenEOF:
	default:
		panic(p.syntaxError("unexpected " + p.describe() + " after statement"))
	}
}

func (p *Parser) consume(t lexer.TokenType, message string) lexer.Token {
	if p.tok.Type != t {
		panic(p.syntaxError(message + ", got " + p.describe()))
	}
	return p.advance()
}

func (p *Parser) describe() string {
	switch p.tok.Type {
	case lexer.TokenEOF:
		return "end of input"
	case lexer.TokenNewline:
		return "newline"
	default:
		return "'" + p.tok.Lexeme + "'"
	}
}

func (p *Parser) syntaxError(message string) *errors.Error {
	return errors.NewSyntaxError(message, p.file, p.tok.Line, p.tok.Column)
}
