// Package sema performs name resolution and type checking of Fortall
// programs and interns string literals.
package sema

import (
	"fmt"
	"strings"

	"github.com/fortall-lang/fortallc/pkg/ast"
	"github.com/fortall-lang/fortallc/pkg/diag"
	"github.com/fortall-lang/fortallc/pkg/scope"
)

// LiteralPrefix prefixes the ids minted for interned string literals
const LiteralPrefix = "string_literal_"

// Analyzer checks one program. Use Analyze.
type Analyzer struct {
	prog     *ast.Program
	info     *Info
	diags    *diag.List
	interned map[string]string

	fn *ast.Function
}

// Analyze checks prog, appending problems to diags. It reports whether
// the program is free of errors. The returned Info is always usable for
// the parts that did check.
func Analyze(prog *ast.Program, diags *diag.List) (*Info, bool) {
	a := &Analyzer{
		prog:     prog,
		info:     newInfo(),
		diags:    diags,
		interned: make(map[string]string),
	}
	before := len(diags.Errors())
	a.run()
	return a.info, len(diags.Errors()) == before
}

func (a *Analyzer) errorf(pos ast.Pos, format string, args ...interface{}) {
	a.diags.Errorf(pos.Line, pos.Column, format, args...)
}

func (a *Analyzer) run() {
	root := a.info.Root
	tab := a.info.Table

	for i, fn := range a.prog.Functions {
		if err := tab.DeclareFunc(root, fn.Name, i); err != nil {
			a.errorf(fn.Pos, "function %q already declared", fn.Name)
		}
	}

	for i, fn := range a.prog.Functions {
		if strings.EqualFold(fn.Name, "main") {
			a.info.Main = i
			break
		}
	}
	if a.info.Main < 0 {
		a.diags.Errorf(0, 0, "main function not declared")
	}

	for _, f := range a.prog.Fields {
		if tab.HasFunc(root, f.Name) {
			a.errorf(f.Pos, "%q already declared as a function", f.Name)
			continue
		}
		if _, err := tab.DeclareVar(root, scope.Variable{
			Name:   f.Name,
			Type:   f.Type,
			Source: scope.Global,
			Pos:    f.Pos,
		}); err != nil {
			a.errorf(f.Pos, "variable %q already declared", f.Name)
			continue
		}
		if f.Init != nil && f.Init.Type != f.Type {
			a.errorf(f.Pos, "cannot initialize %s variable %q with %s constant", f.Type, f.Name, f.Init.Type)
		}
	}

	a.info.FuncScopes = make([]scope.ID, len(a.prog.Functions))
	for i := range a.prog.Functions {
		a.checkFunction(i)
	}
}

func (a *Analyzer) checkFunction(i int) {
	fn := &a.prog.Functions[i]
	a.fn = fn
	fscope := a.info.Table.New(a.info.Root)
	a.info.FuncScopes[i] = fscope

	for _, p := range fn.Params {
		if _, err := a.info.Table.DeclareVar(fscope, scope.Variable{
			Name:   p.Name,
			Type:   p.Type,
			Source: scope.Parameter,
			Pos:    p.Pos,
		}); err != nil {
			a.errorf(p.Pos, "parameter %q already declared", p.Name)
		}
	}

	a.checkBlock(fn.Body, fscope)
	a.fn = nil
}

func (a *Analyzer) checkBlock(id ast.BlockID, sc scope.ID) {
	a.info.Scopes[id] = sc
	returned := false
	for _, stmt := range a.prog.Block(id).Stmts {
		if returned {
			p := stmt.Position()
			a.diags.Warnf(p.Line, p.Column, "unreachable statement")
			returned = false
		}
		a.checkStmt(stmt, sc)
		if _, ok := stmt.(ast.Return); ok {
			returned = true
		}
	}
}

func (a *Analyzer) checkStmt(stmt ast.Stmt, sc scope.ID) {
	tab := a.info.Table
	switch s := stmt.(type) {
	case ast.VarDecl:
		redeclared := tab.HasVar(sc, s.Name)
		if redeclared {
			a.errorf(s.Pos, "variable %q already declared", s.Name)
		}
		if s.Init != ast.NoExpr {
			if t, ok := a.checkExpr(s.Init, sc); ok && t != s.Type {
				a.errorf(s.Pos, "cannot assign %s to %s variable %q", t, s.Type, s.Name)
			}
		}
		if !redeclared {
			tab.DeclareVar(sc, scope.Variable{
				Name:   s.Name,
				Type:   s.Type,
				Source: scope.Local,
				Pos:    s.Pos,
			})
		}

	case ast.Assign:
		v, vok := a.resolveTarget(s.Target, sc)
		t, ok := a.checkExpr(s.Value, sc)
		if vok && ok && t != v.Type {
			a.errorf(s.Pos, "cannot assign %s to %s variable %q", t, v.Type, v.Name)
		}

	case ast.If:
		a.checkCondition("if", s.Cond, sc)
		a.checkBlock(s.Then, tab.New(sc))
		if s.Else != ast.NoBlock {
			a.checkBlock(s.Else, tab.New(sc))
		}

	case ast.While:
		a.checkCondition("while", s.Cond, sc)
		a.checkBlock(s.Body, tab.New(sc))

	case ast.Return:
		a.checkReturn(s, sc)

	case ast.Write:
		if t, ok := a.checkExpr(s.Value, sc); ok && t == ast.Void {
			a.errorf(s.Pos, "cannot write a void value")
		}

	case ast.Read:
		a.resolveTarget(s.Target, sc)

	case ast.CallStmt:
		a.checkCall(s.Call, sc, false)

	case ast.Empty:

	default:
		p := stmt.Position()
		a.errorf(p, "unsupported statement %T", stmt)
	}
}

func (a *Analyzer) checkCondition(what string, cond ast.ExprID, sc scope.ID) {
	if t, ok := a.checkExpr(cond, sc); ok && t != ast.Boolean {
		a.errorf(a.prog.Expr(cond).Position(), "%s condition must be bool, got %s", what, t)
	}
}

func (a *Analyzer) checkReturn(s ast.Return, sc scope.ID) {
	want := a.fn.ReturnType
	if s.Value == ast.NoExpr {
		if want != ast.Void {
			a.errorf(s.Pos, "missing return value in function %q returning %s", a.fn.Name, want)
		}
		return
	}
	t, ok := a.checkExpr(s.Value, sc)
	switch {
	case want == ast.Void:
		a.errorf(s.Pos, "function %q does not return a value", a.fn.Name)
	case ok && t != want:
		a.errorf(s.Pos, "cannot return %s from function %q returning %s", t, a.fn.Name, want)
	}
}

// resolveTarget binds the identifier of an assignment or read
func (a *Analyzer) resolveTarget(id ast.ExprID, sc scope.ID) (scope.Variable, bool) {
	ident := a.prog.Expr(id).(ast.Ident)
	v, ok := a.info.Table.LookupVar(sc, ident.Name)
	if !ok {
		a.errorf(ident.Pos, "variable %q not declared", ident.Name)
		a.info.Types[id] = ast.Void
		return v, false
	}
	a.info.Uses[id] = v
	a.info.Types[id] = v.Type
	return v, true
}

// checkExpr resolves the type of id. ok is false when an error was
// reported for id or one of its operands; the node is then typed Void
// and callers report nothing further about it.
func (a *Analyzer) checkExpr(id ast.ExprID, sc scope.ID) (t ast.Type, ok bool) {
	defer func() {
		if !ok {
			t = ast.Void
		}
		a.info.Types[id] = t
	}()

	switch e := a.prog.Expr(id).(type) {
	case ast.Literal:
		if e.Value.Type == ast.String {
			a.info.LiteralIDs[id] = a.intern(e.Value.Str)
		}
		return e.Value.Type, true

	case ast.Ident:
		v, found := a.info.Table.LookupVar(sc, e.Name)
		if !found {
			a.errorf(e.Pos, "variable %q not declared", e.Name)
			return ast.Void, false
		}
		a.info.Uses[id] = v
		return v.Type, true

	case ast.Unary:
		ot, ok := a.checkExpr(e.Operand, sc)
		if !ok {
			return ast.Void, false
		}
		if ot != ast.Boolean {
			a.errorf(e.Pos, "operator %s requires bool operand, got %s", e.Op, ot)
			return ast.Void, false
		}
		return ast.Boolean, true

	case ast.Binary:
		return a.checkBinary(e, sc)

	case ast.Call:
		return a.checkCall(id, sc, true)

	default:
		a.errorf(e.Position(), "cannot infer type of expression")
		return ast.Void, false
	}
}

func (a *Analyzer) checkBinary(e ast.Binary, sc scope.ID) (ast.Type, bool) {
	lt, lok := a.checkExpr(e.Left, sc)
	rt, rok := a.checkExpr(e.Right, sc)
	if !lok || !rok {
		return ast.Void, false
	}

	switch {
	case e.Op.IsLogical():
		if lt != ast.Boolean || rt != ast.Boolean {
			a.errorf(e.Pos, "operator %s requires bool operands, got %s and %s", e.Op, lt, rt)
			return ast.Void, false
		}
	case e.Op.IsArithmetic():
		if lt != ast.Integer || rt != ast.Integer {
			a.errorf(e.Pos, "operator %s requires int operands, got %s and %s", e.Op, lt, rt)
			return ast.Void, false
		}
	case e.Op.IsComparison():
		if lt != rt {
			a.errorf(e.Pos, "mismatched types %s and %s for operator %s", lt, rt, e.Op)
			return ast.Void, false
		}
		if lt == ast.String || lt == ast.Void {
			a.errorf(e.Pos, "operator %s not defined on %s", e.Op, lt)
			return ast.Void, false
		}
	}
	return e.Op.ResultType(), true
}

// checkCall checks a call used as an expression (asExpr) or a statement
func (a *Analyzer) checkCall(id ast.ExprID, sc scope.ID, asExpr bool) (ast.Type, bool) {
	call := a.prog.Expr(id).(ast.Call)
	idx, found := a.info.Table.LookupFunc(sc, call.Name)
	if !found {
		a.errorf(call.Pos, "function %q not declared", call.Name)
		for _, arg := range call.Args {
			a.checkExpr(arg, sc)
		}
		a.info.Types[id] = ast.Void
		return ast.Void, false
	}
	fn := &a.prog.Functions[idx]

	ok := true
	if len(call.Args) != len(fn.Params) {
		a.errorf(call.Pos, "function %q expects %d arguments, got %d", fn.Name, len(fn.Params), len(call.Args))
		ok = false
	}
	for i, arg := range call.Args {
		t, argOK := a.checkExpr(arg, sc)
		if !argOK {
			ok = false
			continue
		}
		if i < len(fn.Params) && t != fn.Params[i].Type {
			a.errorf(a.prog.Expr(arg).Position(), "argument %d of %q: expected %s, got %s", i+1, fn.Name, fn.Params[i].Type, t)
			ok = false
		}
	}
	if asExpr && fn.ReturnType == ast.Void {
		a.errorf(call.Pos, "function %q does not return a value", fn.Name)
		ok = false
	}

	t := fn.ReturnType
	if !ok {
		t = ast.Void
	}
	a.info.Types[id] = t
	return t, ok
}

// intern returns the shared id for text, minting one on first use
func (a *Analyzer) intern(text string) string {
	if id, ok := a.interned[text]; ok {
		return id
	}
	id := fmt.Sprintf("%s%d", LiteralPrefix, len(a.info.Literals))
	a.interned[text] = id
	a.info.Literals = append(a.info.Literals, Literal{ID: id, Text: text})
	return id
}
