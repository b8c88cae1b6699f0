package sema

import (
	"github.com/fortall-lang/fortallc/pkg/ast"
	"github.com/fortall-lang/fortallc/pkg/scope"
)

// Literal is an interned string literal
type Literal struct {
	ID   string
	Text string
}

// Info holds everything the analyzer learned about a program. It is keyed
// by AST handles so the tree itself stays immutable.
type Info struct {
	Table *scope.Table
	Root  scope.ID

	// Types is the resolved type of every checked expression
	Types map[ast.ExprID]ast.Type
	// Scopes is the scope attached to every checked block
	Scopes map[ast.BlockID]scope.ID
	// Uses binds identifier expressions (including assignment and read
	// targets) to the declaration they resolved to
	Uses map[ast.ExprID]scope.Variable
	// LiteralIDs maps string literal expressions to their interned id
	LiteralIDs map[ast.ExprID]string
	// Literals lists interned strings in the order their ids were minted
	Literals []Literal
	// FuncScopes is the parameter scope of each function, by index
	FuncScopes []scope.ID
	// Main is the index of the designated main function, or -1
	Main int
}

func newInfo() *Info {
	tab := scope.NewTable()
	return &Info{
		Table:      tab,
		Root:       tab.New(scope.None),
		Types:      make(map[ast.ExprID]ast.Type),
		Scopes:     make(map[ast.BlockID]scope.ID),
		Uses:       make(map[ast.ExprID]scope.Variable),
		LiteralIDs: make(map[ast.ExprID]string),
		Main:       -1,
	}
}

// TypeOf returns the resolved type of id, or ast.Unknown if unchecked
func (info *Info) TypeOf(id ast.ExprID) ast.Type {
	return info.Types[id]
}

// ScopeOf returns the scope attached to block id
func (info *Info) ScopeOf(id ast.BlockID) (scope.ID, bool) {
	s, ok := info.Scopes[id]
	return s, ok
}

// Use returns the declaration identifier id resolved to
func (info *Info) Use(id ast.ExprID) (scope.Variable, bool) {
	v, ok := info.Uses[id]
	return v, ok
}

// LiteralID returns the interned id of string literal expression id
func (info *Info) LiteralID(id ast.ExprID) (string, bool) {
	s, ok := info.LiteralIDs[id]
	return s, ok
}
