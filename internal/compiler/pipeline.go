// internal/compiler/pipeline.go
package compiler

import (
	"io"

	pkgerrors "github.com/pkg/errors"

	"plum/internal/bytecode"
	"plum/internal/errors"
	"plum/internal/lexer"
	"plum/internal/parser"
)

// Program is the compiled form of a source unit. The VM interprets Chunk; the
// native backend lowers Stmts.
type Program struct {
	Name  string
	Stmts []parser.Stmt
	Chunk *bytecode.Chunk
}

// Compile parses and compiles an entire source unit. Optimisation levels 0-3
// are accepted; constant folding runs at level 1 and above.
func Compile(src lexer.Source, name string, opt int) (prog *Program, err error) {
	if err := checkOptLevel(opt); err != nil {
		return nil, err
	}
	defer recoverCompile(&err)

	p := parser.NewParser(src, name)
	stmts := p.ParseProgram()
	if opt >= 1 {
		foldStmts(stmts)
	}
	return &Program{
		Name:  name,
		Stmts: stmts,
		Chunk: compileStmts(stmts, name),
	}, nil
}

// CompileStatement parses and compiles exactly one statement from src without
// reading past its terminator. It returns io.EOF when the input ends before a
// statement begins.
func CompileStatement(src lexer.Source, name string, opt int) (prog *Program, err error) {
	if err := checkOptLevel(opt); err != nil {
		return nil, err
	}
	defer recoverCompile(&err)

	p := parser.NewParser(src, name)
	stmt := p.ParseStatement()
	if stmt == nil {
		return nil, io.EOF
	}

	stmts := []parser.Stmt{stmt}
	if opt >= 1 {
		foldStmts(stmts)
	}
	return &Program{
		Name:  name,
		Stmts: stmts,
		Chunk: compileStmts(stmts, name),
	}, nil
}

func checkOptLevel(opt int) error {
	if opt < 0 || opt > 3 {
		return errors.New(errors.CompileError, "unsupported optimisation level %d", opt)
	}
	return nil
}

// recoverCompile converts panics raised during parsing and lowering into
// returned errors. Structured errors and the interrupt sentinel pass through
// unchanged; anything else is an internal fault.
func recoverCompile(err *error) {
	r := recover()
	if r == nil {
		return
	}
	switch v := r.(type) {
	case *errors.Error:
		*err = v
	case error:
		if pkgerrors.Is(v, lexer.ErrInterrupted) || pkgerrors.Is(v, io.EOF) {
			*err = v
			return
		}
		*err = errors.New(errors.InternalError, "compiler fault: %v", v)
	default:
		*err = errors.New(errors.InternalError, "compiler fault: %v", r)
	}
}
