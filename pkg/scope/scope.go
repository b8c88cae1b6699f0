// Package scope implements the lexical scope table used during analysis.
//
// Scopes are stored in an arena and linked to their parent by index, so
// resolution walks ID to ID up to the root.
package scope

import (
	"github.com/fortall-lang/fortallc/pkg/ast"
	"tlog.app/go/errors"
)

// ID is a handle into a Table
type ID int32

// None is the parent of the root scope
const None ID = -1

// ErrAlreadyDeclared is returned when a name is declared twice in one scope
var ErrAlreadyDeclared = errors.New("already declared")

// Source tags where a variable's type comes from
type Source int

const (
	Global Source = iota
	Local
	Parameter
)

func (s Source) String() string {
	names := []string{"global", "local", "parameter"}
	if int(s) < len(names) {
		return names[s]
	}
	return "?"
}

// Variable describes one declared variable. ID is unique across the table
// and distinguishes shadowing declarations of the same name.
type Variable struct {
	ID     int
	Name   string
	Type   ast.Type
	Source Source
	Pos    ast.Pos
}

type scopeData struct {
	parent    ID
	vars      map[string]Variable
	funcs     map[string]int
	varNames  []string
	funcNames []string
}

// Table owns every scope created during one analysis
type Table struct {
	scopes []scopeData
	nextID int
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{}
}

// New creates a scope under parent (None for a root)
func (t *Table) New(parent ID) ID {
	t.scopes = append(t.scopes, scopeData{
		parent: parent,
		vars:   make(map[string]Variable),
		funcs:  make(map[string]int),
	})
	return ID(len(t.scopes) - 1)
}

// Parent returns the parent of id
func (t *Table) Parent(id ID) ID {
	return t.scopes[id].parent
}

// Len returns the number of scopes
func (t *Table) Len() int {
	return len(t.scopes)
}

// DeclareVar adds v to scope id and returns it with its ID assigned.
// The first declaration of a name in a scope wins.
func (t *Table) DeclareVar(id ID, v Variable) (Variable, error) {
	s := &t.scopes[id]
	if prev, ok := s.vars[v.Name]; ok {
		return prev, errors.Wrap(ErrAlreadyDeclared, "variable %q", v.Name)
	}
	v.ID = t.nextID
	t.nextID++
	s.vars[v.Name] = v
	s.varNames = append(s.varNames, v.Name)
	return v, nil
}

// DeclareFunc records function index fn under name in scope id
func (t *Table) DeclareFunc(id ID, name string, fn int) error {
	s := &t.scopes[id]
	if _, ok := s.funcs[name]; ok {
		return errors.Wrap(ErrAlreadyDeclared, "function %q", name)
	}
	s.funcs[name] = fn
	s.funcNames = append(s.funcNames, name)
	return nil
}

// HasVar reports whether name is declared directly in scope id
func (t *Table) HasVar(id ID, name string) bool {
	_, ok := t.scopes[id].vars[name]
	return ok
}

// HasFunc reports whether name is declared directly in scope id
func (t *Table) HasFunc(id ID, name string) bool {
	_, ok := t.scopes[id].funcs[name]
	return ok
}

// LookupVar resolves name from scope id outward
func (t *Table) LookupVar(id ID, name string) (Variable, bool) {
	for cur := id; cur != None; cur = t.scopes[cur].parent {
		if v, ok := t.scopes[cur].vars[name]; ok {
			return v, true
		}
	}
	return Variable{}, false
}

// LookupFunc resolves name from scope id outward and returns the function
// index it was declared with
func (t *Table) LookupFunc(id ID, name string) (int, bool) {
	for cur := id; cur != None; cur = t.scopes[cur].parent {
		if fn, ok := t.scopes[cur].funcs[name]; ok {
			return fn, true
		}
	}
	return 0, false
}

// Vars returns the variables declared directly in id, in declaration order
func (t *Table) Vars(id ID) []Variable {
	s := t.scopes[id]
	vars := make([]Variable, len(s.varNames))
	for i, name := range s.varNames {
		vars[i] = s.vars[name]
	}
	return vars
}

// Funcs returns the function names declared directly in id, in declaration order
func (t *Table) Funcs(id ID) []string {
	return append([]string(nil), t.scopes[id].funcNames...)
}
