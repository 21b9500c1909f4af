// internal/codegen/codegen.go
package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"plum/internal/compiler"
	"plum/internal/errors"
	"plum/internal/parser"
)

// generator lowers an AST to LLVM IR. Numbers are doubles throughout; string
// literals exist only as print arguments. Anything the native backend cannot
// express is reported as a compile error rather than miscompiled.
type generator struct {
	module *ir.Module
	printf *ir.Func
	puts   *ir.Func

	funcs   map[string]*ir.Func
	globals map[string]*ir.Global
	locals  map[string]*ir.InstAlloca

	fn       *ir.Func
	block    *ir.Block
	loopExit []*ir.Block

	strCount int
}

// Lower translates a compiled program into an LLVM module with a main entry
// point.
func Lower(prog *compiler.Program) (m *ir.Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(*errors.Error); ok {
				m, err = nil, e
				return
			}
			m, err = nil, errors.New(errors.InternalError, "codegen fault: %v", r)
		}
	}()

	g := &generator{
		module:  ir.NewModule(),
		funcs:   make(map[string]*ir.Func),
		globals: make(map[string]*ir.Global),
	}
	g.declareRuntime()
	g.lowerProgram(prog.Stmts)
	return g.module, nil
}

func (g *generator) declareRuntime() {
	i8ptr := types.NewPointer(types.I8)
	g.printf = g.module.NewFunc("printf", types.I32, ir.NewParam("format", i8ptr))
	g.printf.Sig.Variadic = true
	g.puts = g.module.NewFunc("puts", types.I32, ir.NewParam("s", i8ptr))
}

func (g *generator) lowerProgram(stmts []parser.Stmt) {
	// Declare functions and globals first so forward references resolve.
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *parser.FunctionStmt:
			params := make([]*ir.Param, len(s.Params))
			for i, name := range s.Params {
				params[i] = ir.NewParam(name, types.Double)
			}
			g.funcs[s.Name] = g.module.NewFunc(s.Name, types.Double, params...)
		case *parser.LetStmt:
			g.globals[s.Name] = g.module.NewGlobalDef(s.Name, constant.NewFloat(types.Double, 0))
		}
	}

	for _, stmt := range stmts {
		if s, ok := stmt.(*parser.FunctionStmt); ok {
			g.lowerFunction(s)
		}
	}

	mainFn := g.module.NewFunc("main", types.I32)
	g.fn = mainFn
	g.block = mainFn.NewBlock("entry")
	g.locals = nil
	for _, stmt := range stmts {
		if _, ok := stmt.(*parser.FunctionStmt); ok {
			continue
		}
		g.stmt(stmt)
	}
	if g.block.Term == nil {
		g.block.NewRet(constant.NewInt(types.I32, 0))
	}
}

func (g *generator) lowerFunction(stmt *parser.FunctionStmt) {
	fn := g.funcs[stmt.Name]
	g.fn = fn
	g.block = fn.NewBlock("entry")
	g.locals = make(map[string]*ir.InstAlloca)

	// Parameters are spilled to stack slots so assignment works uniformly.
	for _, param := range fn.Params {
		slot := g.block.NewAlloca(types.Double)
		g.block.NewStore(param, slot)
		g.locals[param.Name()] = slot
	}

	for _, s := range stmt.Body {
		g.stmt(s)
	}
	if g.block.Term == nil {
		g.block.NewRet(constant.NewFloat(types.Double, 0))
	}
}

//
// Statements
//

func (g *generator) stmt(stmt parser.Stmt) {
	// Statements after a terminator (return or break) are unreachable.
	if g.block.Term != nil {
		g.block = g.fn.NewBlock("")
	}

	switch s := stmt.(type) {
	case *parser.LetStmt:
		val := g.asDouble(g.expr(s.Expr))
		if g.locals != nil {
			slot := g.block.NewAlloca(types.Double)
			g.block.NewStore(val, slot)
			g.locals[s.Name] = slot
		} else {
			g.block.NewStore(val, g.globals[s.Name])
		}

	case *parser.AssignStmt:
		val := g.asDouble(g.expr(s.Value))
		g.block.NewStore(val, g.lvalue(s.Name))

	case *parser.ExpressionStmt:
		g.expr(s.Expr)

	case *parser.PrintStmt:
		g.print(s.Expr)

	case *parser.IfStmt:
		g.ifStmt(s)

	case *parser.WhileStmt:
		g.whileStmt(s)

	case *parser.BreakStmt:
		if len(g.loopExit) == 0 {
			panic(errors.New(errors.CompileError, "'break' outside of a loop"))
		}
		g.block.NewBr(g.loopExit[len(g.loopExit)-1])

	case *parser.ReturnStmt:
		if g.locals == nil {
			panic(errors.New(errors.CompileError, "'return' outside of a function"))
		}
		if s.Value != nil {
			g.block.NewRet(g.asDouble(g.expr(s.Value)))
		} else {
			g.block.NewRet(constant.NewFloat(types.Double, 0))
		}

	case *parser.FunctionStmt:
		panic(errors.New(errors.CompileError, "nested function declarations are not supported"))

	default:
		panic(errors.New(errors.InternalError, "unhandled statement %T", stmt))
	}
}

func (g *generator) ifStmt(s *parser.IfStmt) {
	cond := g.asBool(g.expr(s.Condition))
	thenBlk := g.fn.NewBlock("")
	endBlk := g.fn.NewBlock("")
	elseBlk := endBlk
	if len(s.Else) > 0 {
		elseBlk = g.fn.NewBlock("")
	}
	g.block.NewCondBr(cond, thenBlk, elseBlk)

	g.block = thenBlk
	for _, st := range s.Then {
		g.stmt(st)
	}
	if g.block.Term == nil {
		g.block.NewBr(endBlk)
	}

	if len(s.Else) > 0 {
		g.block = elseBlk
		for _, st := range s.Else {
			g.stmt(st)
		}
		if g.block.Term == nil {
			g.block.NewBr(endBlk)
		}
	}
	g.block = endBlk
}

func (g *generator) whileStmt(s *parser.WhileStmt) {
	condBlk := g.fn.NewBlock("")
	bodyBlk := g.fn.NewBlock("")
	exitBlk := g.fn.NewBlock("")

	g.block.NewBr(condBlk)
	g.block = condBlk
	cond := g.asBool(g.expr(s.Condition))
	g.block.NewCondBr(cond, bodyBlk, exitBlk)

	g.loopExit = append(g.loopExit, exitBlk)
	g.block = bodyBlk
	for _, st := range s.Body {
		g.stmt(st)
	}
	if g.block.Term == nil {
		g.block.NewBr(condBlk)
	}
	g.loopExit = g.loopExit[:len(g.loopExit)-1]

	g.block = exitBlk
}

func (g *generator) print(arg parser.Expr) {
	if lit, ok := arg.(*parser.Literal); ok {
		if s, ok := lit.Value.(string); ok {
			g.block.NewCall(g.puts, g.stringPtr(s))
			return
		}
	}
	val := g.asDouble(g.expr(arg))
	g.block.NewCall(g.printf, g.stringPtr("%g\n"), val)
}

//
// Expressions
//

func (g *generator) expr(expr parser.Expr) value.Value {
	switch e := expr.(type) {
	case *parser.Literal:
		switch v := e.Value.(type) {
		case float64:
			return constant.NewFloat(types.Double, v)
		case bool:
			if v {
				return constant.True
			}
			return constant.False
		case string:
			panic(errors.New(errors.CompileError, "string values are only supported as print arguments in compiled output"))
		case nil:
			panic(errors.New(errors.CompileError, "nil is not supported in compiled output"))
		default:
			panic(errors.New(errors.InternalError, "unhandled literal %T", e.Value))
		}

	case *parser.Variable:
		return g.block.NewLoad(types.Double, g.lvalue(e.Name))

	case *parser.Binary:
		return g.binary(e)

	case *parser.Logical:
		left := g.asBool(g.expr(e.Left))
		right := g.asBool(g.expr(e.Right))
		if e.Operator == "&&" {
			return g.block.NewAnd(left, right)
		}
		return g.block.NewOr(left, right)

	case *parser.Unary:
		switch e.Operator {
		case "-":
			return g.block.NewFNeg(g.asDouble(g.expr(e.Operand)))
		case "!":
			return g.block.NewXor(g.asBool(g.expr(e.Operand)), constant.True)
		}
		panic(errors.New(errors.InternalError, "unhandled unary operator '%s'", e.Operator))

	case *parser.CallExpr:
		return g.call(e)

	default:
		panic(errors.New(errors.InternalError, "unhandled expression %T", expr))
	}
}

func (g *generator) binary(e *parser.Binary) value.Value {
	left := g.asDouble(g.expr(e.Left))
	right := g.asDouble(g.expr(e.Right))

	switch e.Operator {
	case "+":
		return g.block.NewFAdd(left, right)
	case "-":
		return g.block.NewFSub(left, right)
	case "*":
		return g.block.NewFMul(left, right)
	case "/":
		return g.block.NewFDiv(left, right)
	case "%":
		return g.block.NewFRem(left, right)
	case "==":
		return g.block.NewFCmp(enum.FPredOEQ, left, right)
	case "!=":
		return g.block.NewFCmp(enum.FPredONE, left, right)
	case "<":
		return g.block.NewFCmp(enum.FPredOLT, left, right)
	case "<=":
		return g.block.NewFCmp(enum.FPredOLE, left, right)
	case ">":
		return g.block.NewFCmp(enum.FPredOGT, left, right)
	case ">=":
		return g.block.NewFCmp(enum.FPredOGE, left, right)
	}
	panic(errors.New(errors.InternalError, "unhandled binary operator '%s'", e.Operator))
}

func (g *generator) call(e *parser.CallExpr) value.Value {
	callee, ok := e.Callee.(*parser.Variable)
	if !ok {
		panic(errors.New(errors.CompileError, "only named functions can be called in compiled output"))
	}
	fn, ok := g.funcs[callee.Name]
	if !ok {
		panic(errors.New(errors.ReferenceError, "undefined function '%s'", callee.Name))
	}
	if len(e.Args) != len(fn.Params) {
		panic(errors.New(errors.TypeError, "%s expects %d argument(s), got %d",
			callee.Name, len(fn.Params), len(e.Args)))
	}
	args := make([]value.Value, len(e.Args))
	for i, arg := range e.Args {
		args[i] = g.asDouble(g.expr(arg))
	}
	return g.block.NewCall(fn, args...)
}

//
// Helpers
//

func (g *generator) lvalue(name string) value.Value {
	if g.locals != nil {
		if slot, ok := g.locals[name]; ok {
			return slot
		}
	}
	if global, ok := g.globals[name]; ok {
		return global
	}
	panic(errors.New(errors.ReferenceError, "undefined variable '%s'", name))
}

// asDouble widens an i1 comparison result to a double; doubles pass through.
func (g *generator) asDouble(v value.Value) value.Value {
	if v.Type().Equal(types.I1) {
		return g.block.NewUIToFP(v, types.Double)
	}
	return v
}

// asBool narrows a double to an i1 by comparing against zero.
func (g *generator) asBool(v value.Value) value.Value {
	if v.Type().Equal(types.I1) {
		return v
	}
	return g.block.NewFCmp(enum.FPredONE, v, constant.NewFloat(types.Double, 0))
}

// stringPtr interns a NUL-terminated string constant and returns an i8*.
func (g *generator) stringPtr(s string) value.Value {
	data := constant.NewCharArrayFromString(s + "\x00")
	global := g.module.NewGlobalDef(fmt.Sprintf(".str.%d", g.strCount), data)
	g.strCount++
	global.Immutable = true
	zero := constant.NewInt(types.I64, 0)
	return constant.NewGetElementPtr(data.Typ, global, zero, zero)
}
