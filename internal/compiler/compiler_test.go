package compiler

import (
	"io"
	"testing"

	"plum/internal/bytecode"
	"plum/internal/errors"
	"plum/internal/lexer"
	"plum/internal/parser"
)

func compileSource(t *testing.T, input string, opt int) *Program {
	t.Helper()
	prog, err := Compile(lexer.NewStringSource(input), "test", opt)
	if err != nil {
		t.Fatalf("compiling %q failed: %v", input, err)
	}
	return prog
}

func TestExpressionStatementBytecode(t *testing.T) {
	prog := compileSource(t, "1 + 2\n", 0)

	want := []byte{
		byte(bytecode.OpConstant), 0,
		byte(bytecode.OpConstant), 1,
		byte(bytecode.OpAdd),
		byte(bytecode.OpPop),
	}
	if string(prog.Chunk.Code) != string(want) {
		t.Errorf("code = %v, want %v", prog.Chunk.Code, want)
	}
	if prog.Chunk.Constants[0] != 1.0 || prog.Chunk.Constants[1] != 2.0 {
		t.Errorf("constants = %v, want [1 2]", prog.Chunk.Constants)
	}
}

func TestGlobalDefinitionBytecode(t *testing.T) {
	prog := compileSource(t, "let x = 1\n", 0)

	want := []byte{
		byte(bytecode.OpConstant), 0,
		byte(bytecode.OpDefineGlobal), 1,
	}
	if string(prog.Chunk.Code) != string(want) {
		t.Errorf("code = %v, want %v", prog.Chunk.Code, want)
	}
	if prog.Chunk.Constants[1] != "x" {
		t.Errorf("constants = %v, want the name at index 1", prog.Chunk.Constants)
	}
}

func TestConstantFolding(t *testing.T) {
	unoptimized := compileSource(t, "let x = 2 * 3 + 4\n", 0)
	optimized := compileSource(t, "let x = 2 * 3 + 4\n", 1)

	if len(optimized.Chunk.Code) >= len(unoptimized.Chunk.Code) {
		t.Errorf("folded code (%d bytes) not smaller than unoptimized (%d bytes)",
			len(optimized.Chunk.Code), len(unoptimized.Chunk.Code))
	}
	if optimized.Chunk.Constants[0] != 10.0 {
		t.Errorf("folded constant = %v, want 10", optimized.Chunk.Constants[0])
	}
}

func TestFoldingKeepsDivisionByZero(t *testing.T) {
	prog := compileSource(t, "let x = 1 / 0\n", 1)

	lit, ok := prog.Stmts[0].(*parser.LetStmt).Expr.(*parser.Binary)
	if !ok || lit.Operator != "/" {
		t.Fatalf("division by zero was folded away: %#v", prog.Stmts[0])
	}
}

func TestJumpPatching(t *testing.T) {
	prog := compileSource(t, "if false { print(1) }\n", 0)
	code := prog.Chunk.Code

	// CONSTANT false; JUMP_IF_FALSE over the then-branch; then-branch;
	// the jump must land exactly past the last instruction.
	if bytecode.OpCode(code[2]) != bytecode.OpJumpIfFalse {
		t.Fatalf("code[2] = %s, want JUMP_IF_FALSE", bytecode.OpCode(code[2]))
	}
	offset := int(code[3])<<8 | int(code[4])
	if target := 5 + offset; target != len(code) {
		t.Errorf("jump target = %d, want %d (end of chunk)", target, len(code))
	}
}

func TestLoopJumpsBackwards(t *testing.T) {
	prog := compileSource(t, "while true { print(1) }\n", 0)
	code := prog.Chunk.Code

	loopAt := -1
	for ip := 0; ip < len(code); {
		op := bytecode.OpCode(code[ip])
		switch op {
		case bytecode.OpLoop:
			loopAt = ip
			ip += 3
		case bytecode.OpConstant, bytecode.OpGetGlobal, bytecode.OpDefineGlobal, bytecode.OpSetGlobal,
			bytecode.OpGetLocal, bytecode.OpSetLocal, bytecode.OpCall:
			ip += 2
		case bytecode.OpJump, bytecode.OpJumpIfFalse:
			ip += 3
		default:
			ip++
		}
	}
	if loopAt < 0 {
		t.Fatal("no LOOP instruction emitted for while")
	}

	offset := int(code[loopAt+1])<<8 | int(code[loopAt+2])
	if target := loopAt + 3 - offset; target != 0 {
		t.Errorf("loop target = %d, want 0 (condition start)", target)
	}
}

func TestFunctionCompilation(t *testing.T) {
	prog := compileSource(t, "fn add(a, b) {\n  return a + b\n}\n", 0)

	var fn *Function
	for _, c := range prog.Chunk.Constants {
		if f, ok := c.(*Function); ok {
			fn = f
		}
	}
	if fn == nil {
		t.Fatal("no function constant in the chunk")
	}
	if fn.Name != "add" || fn.Arity != 2 {
		t.Errorf("function = %s/%d, want add/2", fn.Name, fn.Arity)
	}

	// Parameters resolve to slots, not globals.
	want := []byte{
		byte(bytecode.OpGetLocal), 0,
		byte(bytecode.OpGetLocal), 1,
		byte(bytecode.OpAdd),
		byte(bytecode.OpReturn),
		byte(bytecode.OpNil),
		byte(bytecode.OpReturn),
	}
	if string(fn.Chunk.Code) != string(want) {
		t.Errorf("function code = %v, want %v", fn.Chunk.Code, want)
	}
}

func TestLocalSlotsReservedUpFront(t *testing.T) {
	prog := compileSource(t, "fn f() {\n  if true {\n    let a = 1\n  }\n  let b = 2\n  return b\n}\n", 0)

	var fn *Function
	for _, c := range prog.Chunk.Constants {
		if f, ok := c.(*Function); ok {
			fn = f
		}
	}
	if fn == nil {
		t.Fatal("no function constant in the chunk")
	}

	// Two locals declared anywhere in the body mean two NILs at entry.
	code := fn.Chunk.Code
	if len(code) < 2 || bytecode.OpCode(code[0]) != bytecode.OpNil || bytecode.OpCode(code[1]) != bytecode.OpNil {
		t.Errorf("function entry = %v, want two reserved slots", code[:2])
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  errors.Kind
	}{
		{"break outside loop", "break\n", errors.CompileError},
		{"return outside function", "return 1\n", errors.CompileError},
		{"nested function", "fn a() {\n  fn b() {\n    return 1\n  }\n}\n", errors.CompileError},
		{"dangling operator", "x +\n", errors.SyntaxError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(lexer.NewStringSource(tt.input), "test", 0)
			if err == nil {
				t.Fatalf("compiling %q succeeded, want an error", tt.input)
			}
			e, ok := err.(*errors.Error)
			if !ok {
				t.Fatalf("compiling %q: got %T, want *errors.Error", tt.input, err)
			}
			if e.Kind != tt.kind {
				t.Errorf("compiling %q: kind %s, want %s", tt.input, e.Kind, tt.kind)
			}
		})
	}
}

func TestOptLevelValidation(t *testing.T) {
	for _, opt := range []int{-1, 4, 99} {
		if _, err := Compile(lexer.NewStringSource("1\n"), "test", opt); err == nil {
			t.Errorf("opt level %d accepted, want an error", opt)
		}
	}
	for _, opt := range []int{0, 1, 2, 3} {
		if _, err := Compile(lexer.NewStringSource("1\n"), "test", opt); err != nil {
			t.Errorf("opt level %d rejected: %v", opt, err)
		}
	}
}

func TestCompileStatementEndOfInput(t *testing.T) {
	for _, input := range []string{"", "\n\n"} {
		_, err := CompileStatement(lexer.NewStringSource(input), "test", 0)
		if err != io.EOF {
			t.Errorf("CompileStatement(%q) error = %v, want io.EOF", input, err)
		}
	}
}

func TestCompileStatementSingleStatement(t *testing.T) {
	prog, err := CompileStatement(lexer.NewStringSource("let x = 1\n"), "test", 0)
	if err != nil {
		t.Fatalf("CompileStatement failed: %v", err)
	}
	if len(prog.Stmts) != 1 {
		t.Fatalf("got %d statements, want 1", len(prog.Stmts))
	}
	if _, ok := prog.Stmts[0].(*parser.LetStmt); !ok {
		t.Errorf("statement is %T, want *parser.LetStmt", prog.Stmts[0])
	}
}
