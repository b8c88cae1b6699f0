package ilgen

import (
	"github.com/fortall-lang/fortallc/pkg/ast"
	"github.com/fortall-lang/fortallc/pkg/il"
	"tlog.app/go/errors"
)

// block lowers a block whose labels are prefixed with ns
func (g *Generator) block(id ast.BlockID, ns string) error {
	sc, ok := g.info.ScopeOf(id)
	if !ok {
		return errors.Wrap(ErrInternal, "block %d has no scope", id)
	}

	idx := 0
	for _, stmt := range g.prog.Block(id).Stmts {
		var err error
		switch s := stmt.(type) {
		case ast.VarDecl:
			v, found := g.info.Table.LookupVar(sc, s.Name)
			if !found {
				return errors.Wrap(ErrInternal, "declaration of %q not in scope", s.Name)
			}
			name := g.locals.Declare(v)
			g.emit(il.VarDecl{Name: name, Type: s.Type})
			if s.Init != ast.NoExpr {
				err = g.store(il.Address{Name: name, Kind: il.Stack, Type: s.Type}, s.Init)
			}

		case ast.Assign:
			var dest il.Address
			if dest, err = g.use(s.Target); err == nil {
				err = g.store(dest, s.Value)
			}

		case ast.If:
			err = g.ifStmt(s, ns, idx)
			idx++

		case ast.While:
			err = g.whileStmt(s, ns, idx)
			idx++

		case ast.Return:
			err = g.returnStmt(s)

		case ast.Write:
			var src il.Address
			if src, err = g.expr(s.Value); err == nil {
				g.emit(il.Write{Src: src, Type: src.Type})
				g.temps.Release(src)
			}

		case ast.Read:
			var dest il.Address
			if dest, err = g.use(s.Target); err == nil {
				g.emit(il.Read{Dest: dest, Type: dest.Type})
			}

		case ast.CallStmt:
			var res il.Address
			if res, err = g.expr(s.Call); err == nil {
				g.temps.Release(res)
			}

		case ast.Empty:

		default:
			err = errors.Wrap(ErrInternal, "unsupported statement %T", stmt)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// store evaluates value into dest
func (g *Generator) store(dest il.Address, value ast.ExprID) error {
	src, err := g.expr(value)
	if err != nil {
		return err
	}
	g.assign(dest, src)
	g.temps.Release(src)
	return nil
}

// branchUnless jumps to label when cond is false
func (g *Generator) branchUnless(cond ast.ExprID, label string) error {
	c, err := g.expr(cond)
	if err != nil {
		return err
	}
	g.temps.Release(c)
	neg := g.temps.Get(ast.Boolean)
	g.emit(il.UnaryOp{Dest: neg, Op: ast.OpNot, Operand: c})
	g.emit(il.IfGoto{Cond: neg, Label: label})
	g.temps.Release(neg)
	return nil
}

func (g *Generator) ifStmt(s ast.If, ns string, idx int) error {
	elseLabel := labelName(ns, "else", idx)
	endLabel := labelName(ns, "endif", idx)

	if err := g.branchUnless(s.Cond, elseLabel); err != nil {
		return err
	}
	if err := g.block(s.Then, innerNamespace(ns, "if", idx, "then")); err != nil {
		return err
	}
	g.emit(il.Goto{Label: endLabel})
	g.emit(il.Label{Name: elseLabel})
	if s.Else != ast.NoBlock {
		if err := g.block(s.Else, innerNamespace(ns, "if", idx, "else")); err != nil {
			return err
		}
	}
	g.emit(il.Label{Name: endLabel})
	return nil
}

func (g *Generator) whileStmt(s ast.While, ns string, idx int) error {
	startLabel := labelName(ns, "while_start", idx)
	endLabel := labelName(ns, "while_end", idx)

	g.emit(il.Label{Name: startLabel})
	if err := g.branchUnless(s.Cond, endLabel); err != nil {
		return err
	}
	if err := g.block(s.Body, innerNamespace(ns, "while", idx, "body")); err != nil {
		return err
	}
	g.emit(il.Goto{Label: startLabel})
	g.emit(il.Label{Name: endLabel})
	return nil
}

func (g *Generator) returnStmt(s ast.Return) error {
	if s.Value == ast.NoExpr {
		g.emit(il.Return{})
		return nil
	}
	v, err := g.expr(s.Value)
	if err != nil {
		return err
	}
	g.emit(il.Return{Value: &v})
	g.temps.Release(v)
	return nil
}
