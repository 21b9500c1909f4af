// internal/parser/ast.go
package parser

type Expr interface {
	Accept(visitor ExprVisitor) interface{}
}

// Literal expression: number, string, boolean or nil
type Literal struct {
	Value interface{}
}

func (l *Literal) Accept(visitor ExprVisitor) interface{} {
	return visitor.VisitLiteralExpr(l)
}

// Variable expression: x
type Variable struct {
	Name string
}

func (v *Variable) Accept(visitor ExprVisitor) interface{} {
	return visitor.VisitVariableExpr(v)
}

// Binary expression: a + b
type Binary struct {
	Left     Expr
	Operator string
	Right    Expr
}

func (b *Binary) Accept(visitor ExprVisitor) interface{} {
	return visitor.VisitBinaryExpr(b)
}

// Logical expression: a && b, a || b (short-circuiting)
type Logical struct {
	Left     Expr
	Operator string
	Right    Expr
}

func (l *Logical) Accept(visitor ExprVisitor) interface{} {
	return visitor.VisitLogicalExpr(l)
}

// Unary expression: !x, -x
type Unary struct {
	Operator string
	Operand  Expr
}

func (u *Unary) Accept(visitor ExprVisitor) interface{} {
	return visitor.VisitUnaryExpr(u)
}

// Call expression: callee(args...)
type CallExpr struct {
	Callee Expr
	Args   []Expr
}

func (c *CallExpr) Accept(visitor ExprVisitor) interface{} {
	return visitor.VisitCallExpr(c)
}

type ExprVisitor interface {
	VisitLiteralExpr(expr *Literal) interface{}
	VisitVariableExpr(expr *Variable) interface{}
	VisitBinaryExpr(expr *Binary) interface{}
	VisitLogicalExpr(expr *Logical) interface{}
	VisitUnaryExpr(expr *Unary) interface{}
	VisitCallExpr(expr *CallExpr) interface{}
}

type Stmt interface {
	Accept(visitor StmtVisitor) interface{}
}

// Variable declaration: let x = expr
type LetStmt struct {
	Name string
	Expr Expr
}

func (s *LetStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitLetStmt(s)
}

// Assignment to an existing variable: x = expr
type AssignStmt struct {
	Name  string
	Value Expr
}

func (s *AssignStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitAssignStmt(s)
}

// Bare expression in statement position
type ExpressionStmt struct {
	Expr Expr
}

func (s *ExpressionStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitExpressionStmt(s)
}

// print(expr)
type PrintStmt struct {
	Expr Expr
}

func (s *PrintStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitPrintStmt(s)
}

type IfStmt struct {
	Condition Expr
	Then      []Stmt
	Else      []Stmt
}

func (s *IfStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitIfStmt(s)
}

type WhileStmt struct {
	Condition Expr
	Body      []Stmt
}

func (s *WhileStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitWhileStmt(s)
}

type BreakStmt struct{}

func (s *BreakStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitBreakStmt(s)
}

// Function declaration: fn name(params) { body }
type FunctionStmt struct {
	Name   string
	Params []string
	Body   []Stmt
}

func (s *FunctionStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitFunctionStmt(s)
}

type ReturnStmt struct {
	Value Expr
}

func (s *ReturnStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitReturnStmt(s)
}

type StmtVisitor interface {
	VisitLetStmt(stmt *LetStmt) interface{}
	VisitAssignStmt(stmt *AssignStmt) interface{}
	VisitExpressionStmt(stmt *ExpressionStmt) interface{}
	VisitPrintStmt(stmt *PrintStmt) interface{}
	VisitIfStmt(stmt *IfStmt) interface{}
	VisitWhileStmt(stmt *WhileStmt) interface{}
	VisitBreakStmt(stmt *BreakStmt) interface{}
	VisitFunctionStmt(stmt *FunctionStmt) interface{}
	VisitReturnStmt(stmt *ReturnStmt) interface{}
}
