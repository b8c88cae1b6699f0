package ilgen

import (
	"github.com/fortall-lang/fortallc/pkg/ast"
	"github.com/fortall-lang/fortallc/pkg/il"
	"tlog.app/go/errors"
)

// expr lowers id and returns the address holding its value. Operand
// temporaries are released before the result temporary is taken.
func (g *Generator) expr(id ast.ExprID) (il.Address, error) {
	t := g.info.TypeOf(id)
	if t == ast.Unknown {
		return il.Address{}, errors.Wrap(ErrInternal, "expression %s has no type", ast.ExprString(g.prog, id))
	}

	switch e := g.prog.Expr(id).(type) {
	case ast.Literal:
		if e.Value.Type == ast.String {
			lid, ok := g.info.LiteralID(id)
			if !ok {
				return il.Address{}, errors.Wrap(ErrInternal, "string literal %q not interned", e.Value.Str)
			}
			return il.Address{Name: lid, Kind: il.Global, Type: ast.String, Label: lid}, nil
		}
		dest := g.temps.Get(e.Value.Type)
		g.emit(il.Load{Dest: dest, Value: e.Value})
		return dest, nil

	case ast.Ident:
		return g.use(id)

	case ast.Unary:
		operand, err := g.expr(e.Operand)
		if err != nil {
			return il.Address{}, err
		}
		g.temps.Release(operand)
		dest := g.temps.Get(t)
		g.emit(il.UnaryOp{Dest: dest, Op: e.Op, Operand: operand})
		return dest, nil

	case ast.Binary:
		left, err := g.expr(e.Left)
		if err != nil {
			return il.Address{}, err
		}
		right, err := g.expr(e.Right)
		if err != nil {
			return il.Address{}, err
		}
		g.temps.Release(left)
		g.temps.Release(right)
		dest := g.temps.Get(e.Op.ResultType())
		g.emit(il.BinaryOp{Dest: dest, Left: left, Op: e.Op, Right: right})
		return dest, nil

	case ast.Call:
		args := make([]il.Address, 0, len(e.Args))
		for _, a := range e.Args {
			addr, err := g.expr(a)
			if err != nil {
				return il.Address{}, err
			}
			args = append(args, addr)
		}
		for _, a := range args {
			g.temps.Release(a)
		}
		dest := g.temps.Get(t)
		g.emit(il.Call{Dest: dest, Func: e.Name, Args: args})
		return dest, nil
	}
	return il.Address{}, errors.Wrap(ErrInternal, "unsupported expression %T", g.prog.Expr(id))
}
