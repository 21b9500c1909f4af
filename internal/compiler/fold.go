// internal/compiler/fold.go
package compiler

import "plum/internal/parser"

// foldStmts rewrites constant subexpressions into literals. Enabled at
// optimisation level 1 and above.
func foldStmts(stmts []parser.Stmt) {
	for _, stmt := range stmts {
		foldStmt(stmt)
	}
}

func foldStmt(stmt parser.Stmt) {
	switch s := stmt.(type) {
	case *parser.LetStmt:
		s.Expr = foldExpr(s.Expr)
	case *parser.AssignStmt:
		s.Value = foldExpr(s.Value)
	case *parser.ExpressionStmt:
		s.Expr = foldExpr(s.Expr)
	case *parser.PrintStmt:
		s.Expr = foldExpr(s.Expr)
	case *parser.IfStmt:
		s.Condition = foldExpr(s.Condition)
		foldStmts(s.Then)
		foldStmts(s.Else)
	case *parser.WhileStmt:
		s.Condition = foldExpr(s.Condition)
		foldStmts(s.Body)
	case *parser.FunctionStmt:
		foldStmts(s.Body)
	case *parser.ReturnStmt:
		if s.Value != nil {
			s.Value = foldExpr(s.Value)
		}
	}
}

func foldExpr(expr parser.Expr) parser.Expr {
	switch e := expr.(type) {
	case *parser.Binary:
		e.Left = foldExpr(e.Left)
		e.Right = foldExpr(e.Right)
		return foldBinary(e)
	case *parser.Logical:
		e.Left = foldExpr(e.Left)
		e.Right = foldExpr(e.Right)
		return expr
	case *parser.Unary:
		e.Operand = foldExpr(e.Operand)
		return foldUnary(e)
	case *parser.CallExpr:
		e.Callee = foldExpr(e.Callee)
		for i, arg := range e.Args {
			e.Args[i] = foldExpr(arg)
		}
		return expr
	default:
		return expr
	}
}

func foldBinary(e *parser.Binary) parser.Expr {
	left, lok := literalOf(e.Left)
	right, rok := literalOf(e.Right)
	if !lok || !rok {
		return e
	}

	if ls, ok := left.(string); ok {
		if rs, ok := right.(string); ok && e.Operator == "+" {
			return &parser.Literal{Value: ls + rs}
		}
		return e
	}

	ln, lok := left.(float64)
	rn, rok := right.(float64)
	if !lok || !rok {
		return e
	}

	switch e.Operator {
	case "+":
		return &parser.Literal{Value: ln + rn}
	case "-":
		return &parser.Literal{Value: ln - rn}
	case "*":
		return &parser.Literal{Value: ln * rn}
	case "/":
		if rn == 0 {
			return e // keep the runtime fault observable
		}
		return &parser.Literal{Value: ln / rn}
	case "==":
		return &parser.Literal{Value: ln == rn}
	case "!=":
		return &parser.Literal{Value: ln != rn}
	case "<":
		return &parser.Literal{Value: ln < rn}
	case "<=":
		return &parser.Literal{Value: ln <= rn}
	case ">":
		return &parser.Literal{Value: ln > rn}
	case ">=":
		return &parser.Literal{Value: ln >= rn}
	}
	return e
}

func foldUnary(e *parser.Unary) parser.Expr {
	value, ok := literalOf(e.Operand)
	if !ok {
		return e
	}
	switch e.Operator {
	case "-":
		if n, ok := value.(float64); ok {
			return &parser.Literal{Value: -n}
		}
	case "!":
		if b, ok := value.(bool); ok {
			return &parser.Literal{Value: !b}
		}
	}
	return e
}

func literalOf(expr parser.Expr) (interface{}, bool) {
	if lit, ok := expr.(*parser.Literal); ok {
		return lit.Value, true
	}
	return nil, false
}
