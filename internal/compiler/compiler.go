// internal/compiler/compiler.go
package compiler

import (
	"plum/internal/bytecode"
	"plum/internal/errors"
	"plum/internal/parser"
)

// Compiler lowers an AST into a bytecode chunk. A fresh instance is used per
// function body; the top-level instance has no locals and resolves every name
// through the global table.
type Compiler struct {
	chunk      *bytecode.Chunk
	file       string
	locals     []string
	inFunction bool
	breakStack [][]int
}

func newCompiler(file string) *Compiler {
	return &Compiler{
		chunk: bytecode.NewChunk(),
		file:  file,
	}
}

func compileStmts(stmts []parser.Stmt, file string) *bytecode.Chunk {
	c := newCompiler(file)
	for _, stmt := range stmts {
		stmt.Accept(c)
	}
	return c.chunk
}

//
// Statements
//

func (c *Compiler) VisitLetStmt(stmt *parser.LetStmt) interface{} {
	stmt.Expr.Accept(c)
	if c.inFunction {
		c.locals = append(c.locals, stmt.Name)
		c.chunk.WriteOp(bytecode.OpSetLocal)
		c.chunk.WriteByte(byte(len(c.locals) - 1))
		c.chunk.WriteOp(bytecode.OpPop)
	} else {
		c.chunk.WriteOp(bytecode.OpDefineGlobal)
		c.chunk.WriteByte(c.addConstant(stmt.Name))
	}
	return nil
}

func (c *Compiler) VisitAssignStmt(stmt *parser.AssignStmt) interface{} {
	stmt.Value.Accept(c)
	if slot, ok := c.resolveLocal(stmt.Name); ok {
		c.chunk.WriteOp(bytecode.OpSetLocal)
		c.chunk.WriteByte(byte(slot))
	} else {
		c.chunk.WriteOp(bytecode.OpSetGlobal)
		c.chunk.WriteByte(c.addConstant(stmt.Name))
	}
	c.chunk.WriteOp(bytecode.OpPop)
	return nil
}

func (c *Compiler) VisitExpressionStmt(stmt *parser.ExpressionStmt) interface{} {
	stmt.Expr.Accept(c)
	c.chunk.WriteOp(bytecode.OpPop)
	return nil
}

func (c *Compiler) VisitPrintStmt(stmt *parser.PrintStmt) interface{} {
	stmt.Expr.Accept(c)
	c.chunk.WriteOp(bytecode.OpPrint)
	return nil
}

func (c *Compiler) VisitIfStmt(stmt *parser.IfStmt) interface{} {
	stmt.Condition.Accept(c)
	elseJump := c.emitJump(bytecode.OpJumpIfFalse)

	for _, s := range stmt.Then {
		s.Accept(c)
	}

	if len(stmt.Else) == 0 {
		c.patchJump(elseJump)
		return nil
	}

	endJump := c.emitJump(bytecode.OpJump)
	c.patchJump(elseJump)
	for _, s := range stmt.Else {
		s.Accept(c)
	}
	c.patchJump(endJump)
	return nil
}

func (c *Compiler) VisitWhileStmt(stmt *parser.WhileStmt) interface{} {
	loopStart := len(c.chunk.Code)
	stmt.Condition.Accept(c)
	exitJump := c.emitJump(bytecode.OpJumpIfFalse)

	c.breakStack = append(c.breakStack, nil)
	for _, s := range stmt.Body {
		s.Accept(c)
	}
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	breaks := c.breakStack[len(c.breakStack)-1]
	c.breakStack = c.breakStack[:len(c.breakStack)-1]
	for _, operand := range breaks {
		c.patchJump(operand)
	}
	return nil
}

func (c *Compiler) VisitBreakStmt(stmt *parser.BreakStmt) interface{} {
	if len(c.breakStack) == 0 {
		panic(errors.New(errors.CompileError, "'break' outside of a loop"))
	}
	operand := c.emitJump(bytecode.OpJump)
	top := len(c.breakStack) - 1
	c.breakStack[top] = append(c.breakStack[top], operand)
	return nil
}

func (c *Compiler) VisitFunctionStmt(stmt *parser.FunctionStmt) interface{} {
	if c.inFunction {
		panic(errors.New(errors.CompileError, "nested function declarations are not supported"))
	}

	fc := newCompiler(c.file)
	fc.inFunction = true
	fc.locals = append(fc.locals, stmt.Params...)

	// Reserve a stack slot per declared local so slot indices are stable
	// before their declarations execute.
	for i := 0; i < countLets(stmt.Body); i++ {
		fc.chunk.WriteOp(bytecode.OpNil)
	}

	for _, s := range stmt.Body {
		s.Accept(fc)
	}
	fc.chunk.WriteOp(bytecode.OpNil)
	fc.chunk.WriteOp(bytecode.OpReturn)

	fn := &Function{Name: stmt.Name, Arity: len(stmt.Params), Chunk: fc.chunk}
	c.chunk.WriteOp(bytecode.OpConstant)
	c.chunk.WriteByte(c.addConstant(fn))
	c.chunk.WriteOp(bytecode.OpDefineGlobal)
	c.chunk.WriteByte(c.addConstant(stmt.Name))
	return nil
}

func (c *Compiler) VisitReturnStmt(stmt *parser.ReturnStmt) interface{} {
	if !c.inFunction {
		panic(errors.New(errors.CompileError, "'return' outside of a function"))
	}
	if stmt.Value != nil {
		stmt.Value.Accept(c)
	} else {
		c.chunk.WriteOp(bytecode.OpNil)
	}
	c.chunk.WriteOp(bytecode.OpReturn)
	return nil
}

//
// Expressions
//

func (c *Compiler) VisitLiteralExpr(expr *parser.Literal) interface{} {
	if expr.Value == nil {
		c.chunk.WriteOp(bytecode.OpNil)
		return nil
	}
	c.chunk.WriteOp(bytecode.OpConstant)
	c.chunk.WriteByte(c.addConstant(expr.Value))
	return nil
}

func (c *Compiler) VisitVariableExpr(expr *parser.Variable) interface{} {
	if slot, ok := c.resolveLocal(expr.Name); ok {
		c.chunk.WriteOp(bytecode.OpGetLocal)
		c.chunk.WriteByte(byte(slot))
	} else {
		c.chunk.WriteOp(bytecode.OpGetGlobal)
		c.chunk.WriteByte(c.addConstant(expr.Name))
	}
	return nil
}

func (c *Compiler) VisitBinaryExpr(expr *parser.Binary) interface{} {
	expr.Left.Accept(c)
	expr.Right.Accept(c)

	switch expr.Operator {
	case "+":
		c.chunk.WriteOp(bytecode.OpAdd)
	case "-":
		c.chunk.WriteOp(bytecode.OpSub)
	case "*":
		c.chunk.WriteOp(bytecode.OpMul)
	case "/":
		c.chunk.WriteOp(bytecode.OpDiv)
	case "%":
		c.chunk.WriteOp(bytecode.OpMod)
	case "==":
		c.chunk.WriteOp(bytecode.OpEqual)
	case "!=":
		c.chunk.WriteOp(bytecode.OpNotEqual)
	case "<":
		c.chunk.WriteOp(bytecode.OpLess)
	case "<=":
		c.chunk.WriteOp(bytecode.OpLessEqual)
	case ">":
		c.chunk.WriteOp(bytecode.OpGreater)
	case ">=":
		c.chunk.WriteOp(bytecode.OpGreaterEqual)
	default:
		panic(errors.New(errors.InternalError, "unknown binary operator '%s'", expr.Operator))
	}
	return nil
}

// VisitLogicalExpr compiles short-circuit && and ||. The right operand is
// only evaluated when the left operand does not decide the result.
func (c *Compiler) VisitLogicalExpr(expr *parser.Logical) interface{} {
	expr.Left.Accept(c)

	if expr.Operator == "&&" {
		falseJump := c.emitJump(bytecode.OpJumpIfFalse)
		expr.Right.Accept(c)
		endJump := c.emitJump(bytecode.OpJump)
		c.patchJump(falseJump)
		c.chunk.WriteOp(bytecode.OpConstant)
		c.chunk.WriteByte(c.addConstant(false))
		c.patchJump(endJump)
		return nil
	}

	rightJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.chunk.WriteOp(bytecode.OpConstant)
	c.chunk.WriteByte(c.addConstant(true))
	endJump := c.emitJump(bytecode.OpJump)
	c.patchJump(rightJump)
	expr.Right.Accept(c)
	c.patchJump(endJump)
	return nil
}

func (c *Compiler) VisitUnaryExpr(expr *parser.Unary) interface{} {
	expr.Operand.Accept(c)
	switch expr.Operator {
	case "-":
		c.chunk.WriteOp(bytecode.OpNegate)
	case "!":
		c.chunk.WriteOp(bytecode.OpNot)
	default:
		panic(errors.New(errors.InternalError, "unknown unary operator '%s'", expr.Operator))
	}
	return nil
}

func (c *Compiler) VisitCallExpr(expr *parser.CallExpr) interface{} {
	expr.Callee.Accept(c)
	if len(expr.Args) > 255 {
		panic(errors.New(errors.CompileError, "too many call arguments"))
	}
	for _, arg := range expr.Args {
		arg.Accept(c)
	}
	c.chunk.WriteOp(bytecode.OpCall)
	c.chunk.WriteByte(byte(len(expr.Args)))
	return nil
}

//
// Emit helpers
//

func (c *Compiler) addConstant(v interface{}) byte {
	// Reuse existing constants where comparable; function values are not.
	if _, ok := v.(*Function); !ok {
		for i, existing := range c.chunk.Constants {
			if existing == v {
				return byte(i)
			}
		}
	}
	idx := c.chunk.AddConstant(v)
	if idx > 255 {
		panic(errors.New(errors.CompileError, "too many constants in one chunk"))
	}
	return byte(idx)
}

// emitJump writes a forward jump with a placeholder distance and returns the
// operand offset for patchJump.
func (c *Compiler) emitJump(op bytecode.OpCode) int {
	c.chunk.WriteOp(op)
	c.chunk.WriteShort(0xffff)
	return len(c.chunk.Code) - 2
}

func (c *Compiler) patchJump(operand int) {
	distance := len(c.chunk.Code) - (operand + 2)
	if distance > 0xffff {
		panic(errors.New(errors.CompileError, "jump distance too large"))
	}
	c.chunk.PatchShort(operand, distance)
}

// emitLoop writes a backward jump to loopStart.
func (c *Compiler) emitLoop(loopStart int) {
	c.chunk.WriteOp(bytecode.OpLoop)
	offset := len(c.chunk.Code) + 2 - loopStart
	if offset > 0xffff {
		panic(errors.New(errors.CompileError, "loop body too large"))
	}
	c.chunk.WriteShort(offset)
}

func (c *Compiler) resolveLocal(name string) (int, bool) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i] == name {
			return i, true
		}
	}
	return 0, false
}

// countLets counts variable declarations in a function body, including those
// nested in conditionals and loops, so their slots can be reserved at entry.
func countLets(stmts []parser.Stmt) int {
	n := 0
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *parser.LetStmt:
			n++
		case *parser.IfStmt:
			n += countLets(s.Then) + countLets(s.Else)
		case *parser.WhileStmt:
			n += countLets(s.Body)
		}
	}
	return n
}
