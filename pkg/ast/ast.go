// Package ast defines the arena-allocated syntax tree for Fortall programs.
//
// Expressions and blocks are owned by the Program and referenced by integer
// handles. The tree is immutable after parsing; analysis results are kept in
// side tables keyed by these handles.
package ast

import (
	"fmt"
	"strconv"
)

// Pos is a 1-based source position
type Pos struct {
	Line   int
	Column int
}

// Type is the closed set of Fortall value types. Unknown marks an
// expression whose type has not been resolved yet.
type Type int

const (
	Unknown Type = iota
	Integer
	Boolean
	String
	Void
)

func (t Type) String() string {
	names := []string{"unknown", "int", "bool", "str", "void"}
	if int(t) < len(names) {
		return names[t]
	}
	return "?"
}

// ExprID is a handle into Program.Exprs
type ExprID int32

// BlockID is a handle into Program.Blocks
type BlockID int32

const (
	NoExpr  ExprID  = -1
	NoBlock BlockID = -1
)

// BinaryOp represents binary operators
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd // &&
	OpOr  // ||
)

func (op BinaryOp) String() string {
	names := []string{"+", "-", "*", "/", "==", "!=", "<", "<=", ">", ">=", "&&", "||"}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// IsArithmetic reports whether op takes and yields integers
func (op BinaryOp) IsArithmetic() bool {
	return op >= OpAdd && op <= OpDiv
}

// IsLogical reports whether op is && or ||
func (op BinaryOp) IsLogical() bool {
	return op == OpAnd || op == OpOr
}

// IsComparison reports whether op compares two values of the same type
func (op BinaryOp) IsComparison() bool {
	return op >= OpEq && op <= OpGe
}

// ResultType is the type a well-typed application of op produces
func (op BinaryOp) ResultType() Type {
	if op.IsArithmetic() {
		return Integer
	}
	return Boolean
}

// UnaryOp represents unary operators
type UnaryOp int

const (
	OpNot UnaryOp = iota // !
)

func (op UnaryOp) String() string {
	names := []string{"!"}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// Constant is a literal value tagged with its type
type Constant struct {
	Type Type
	Int  int64
	Bool bool
	Str  string
}

// IntConst builds an integer constant
func IntConst(v int64) Constant { return Constant{Type: Integer, Int: v} }

// BoolConst builds a boolean constant
func BoolConst(v bool) Constant { return Constant{Type: Boolean, Bool: v} }

// StrConst builds a string constant
func StrConst(v string) Constant { return Constant{Type: String, Str: v} }

func (c Constant) String() string {
	switch c.Type {
	case Integer:
		return strconv.FormatInt(c.Int, 10)
	case Boolean:
		return strconv.FormatBool(c.Bool)
	case String:
		return strconv.Quote(c.Str)
	}
	return fmt.Sprintf("<%s>", c.Type)
}

// Expr is the interface for all expression nodes
type Expr interface {
	Position() Pos
	implExpr()
}

// Literal is a constant expression
type Literal struct {
	Pos
	Value Constant
}

// Ident references a variable by name
type Ident struct {
	Pos
	Name string
}

// Unary represents a unary expression
type Unary struct {
	Pos
	Op      UnaryOp
	Operand ExprID
}

// Binary represents a binary expression
type Binary struct {
	Pos
	Op    BinaryOp
	Left  ExprID
	Right ExprID
}

// Call represents a function call
type Call struct {
	Pos
	Name string
	Args []ExprID
}

func (p Pos) Position() Pos { return p }

func (Literal) implExpr() {}
func (Ident) implExpr()   {}
func (Unary) implExpr()   {}
func (Binary) implExpr()  {}
func (Call) implExpr()    {}

// Stmt is the interface for all statement nodes
type Stmt interface {
	Position() Pos
	implStmt()
}

// VarDecl declares a local variable with an optional initializer
type VarDecl struct {
	Pos
	Name string
	Type Type
	Init ExprID // NoExpr when absent
}

// Assign stores Value into the variable named by Target (an Ident)
type Assign struct {
	Pos
	Target ExprID
	Value  ExprID
}

// If is a conditional with an optional else block
type If struct {
	Pos
	Cond ExprID
	Then BlockID
	Else BlockID // NoBlock when absent
}

// While is a pre-tested loop
type While struct {
	Pos
	Cond ExprID
	Body BlockID
}

// Return leaves the current function
type Return struct {
	Pos
	Value ExprID // NoExpr for a bare return
}

// Write prints the value of an expression
type Write struct {
	Pos
	Value ExprID
}

// Read stores a value read from input into Target (an Ident)
type Read struct {
	Pos
	Target ExprID
}

// CallStmt is a function call whose result is discarded
type CallStmt struct {
	Pos
	Call ExprID
}

// Empty is the empty statement ";"
type Empty struct {
	Pos
}

func (VarDecl) implStmt()  {}
func (Assign) implStmt()   {}
func (If) implStmt()       {}
func (While) implStmt()    {}
func (Return) implStmt()   {}
func (Write) implStmt()    {}
func (Read) implStmt()     {}
func (CallStmt) implStmt() {}
func (Empty) implStmt()    {}

// Block is a brace-delimited statement list
type Block struct {
	Pos
	Stmts []Stmt
}

// Field is a global variable with an optional constant initializer
type Field struct {
	Pos
	Name string
	Type Type
	Init *Constant
}

// Param is a function parameter
type Param struct {
	Pos
	Name string
	Type Type
}

// Function is a top-level function definition
type Function struct {
	Pos
	Name       string
	Params     []Param
	ReturnType Type
	Body       BlockID
}

// Program is the root of the tree and owns every expression and block
type Program struct {
	Fields    []Field
	Functions []Function
	Exprs     []Expr
	Blocks    []Block
}

// AddExpr stores e in the arena and returns its handle
func (p *Program) AddExpr(e Expr) ExprID {
	p.Exprs = append(p.Exprs, e)
	return ExprID(len(p.Exprs) - 1)
}

// Expr returns the expression for id
func (p *Program) Expr(id ExprID) Expr {
	return p.Exprs[id]
}

// AddBlock stores b in the arena and returns its handle
func (p *Program) AddBlock(b Block) BlockID {
	p.Blocks = append(p.Blocks, b)
	return BlockID(len(p.Blocks) - 1)
}

// Block returns the block for id
func (p *Program) Block(id BlockID) *Block {
	return &p.Blocks[id]
}
