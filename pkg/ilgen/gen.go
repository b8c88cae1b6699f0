// Package ilgen lowers a checked Fortall program into three-address IL.
package ilgen

import (
	"strconv"
	"strings"

	"github.com/fortall-lang/fortallc/pkg/ast"
	"github.com/fortall-lang/fortallc/pkg/il"
	"github.com/fortall-lang/fortallc/pkg/scope"
	"github.com/fortall-lang/fortallc/pkg/sema"
	"tlog.app/go/errors"
)

const (
	globalPrefix   = "__global_"
	functionPrefix = "__function_"
)

// ErrInternal reports an analysis inconsistency reaching code generation
var ErrInternal = errors.New("internal error")

// Generator holds the state of lowering one program
type Generator struct {
	prog *ast.Program
	info *sema.Info

	fn     *ast.Function
	label  string
	temps  *Temps
	locals *Locals
	code   []il.Instruction
}

// Generate lowers prog. info must come from a successful sema.Analyze.
func Generate(prog *ast.Program, info *sema.Info) (*il.Program, error) {
	g := &Generator{prog: prog, info: info}
	out := &il.Program{}

	for _, f := range prog.Fields {
		out.Globals = append(out.Globals, il.GlobalVar{
			Name: GlobalName(f.Name),
			Type: f.Type,
			Init: f.Init,
		})
	}
	for _, lit := range info.Literals {
		c := ast.StrConst(lit.Text)
		out.Globals = append(out.Globals, il.GlobalVar{
			Name:    lit.ID,
			Type:    ast.String,
			Init:    &c,
			Literal: true,
		})
	}

	for i := range prog.Functions {
		fn, err := g.function(&prog.Functions[i])
		if err != nil {
			return nil, errors.Wrap(err, "function %v", prog.Functions[i].Name)
		}
		if i == info.Main {
			out.MainLabel = fn.Label
		}
		out.Functions = append(out.Functions, fn)
	}
	return out, nil
}

// GlobalName is the symbol a global field is emitted under
func GlobalName(name string) string {
	return globalPrefix + name
}

// FunctionLabel is the symbol a function is emitted under
func FunctionLabel(name string) string {
	return functionPrefix + name
}

// IsMain reports whether name designates the program entry point
func IsMain(name string) bool {
	return strings.EqualFold(name, "main")
}

func (g *Generator) function(fn *ast.Function) (il.Function, error) {
	g.fn = fn
	g.label = FunctionLabel(fn.Name)
	g.temps = NewTemps()
	g.locals = NewLocals(fn.Params)
	g.code = nil

	out := il.Function{
		Name:       fn.Name,
		Label:      g.label,
		ReturnType: fn.ReturnType,
	}
	for _, p := range fn.Params {
		out.Params = append(out.Params, il.Param{Name: p.Name, Type: p.Type})
	}

	if err := g.block(fn.Body, g.label); err != nil {
		return out, err
	}
	if n := len(g.code); n == 0 || !isReturn(g.code[n-1]) {
		g.emit(il.Return{})
	}
	out.Code = g.code
	return out, nil
}

func isReturn(instr il.Instruction) bool {
	_, ok := instr.(il.Return)
	return ok
}

func (g *Generator) emit(instr il.Instruction) {
	g.code = append(g.code, instr)
}

// address classifies a resolved variable
func (g *Generator) address(v scope.Variable) (il.Address, error) {
	switch v.Source {
	case scope.Global:
		name := GlobalName(v.Name)
		return il.Address{Name: name, Kind: il.Global, Type: v.Type, Label: name}, nil
	case scope.Parameter:
		return il.Address{Name: v.Name, Kind: il.Parameter, Type: v.Type}, nil
	case scope.Local:
		name, ok := g.locals.Lookup(v)
		if !ok {
			return il.Address{}, errors.Wrap(ErrInternal, "local %q used before declaration", v.Name)
		}
		return il.Address{Name: name, Kind: il.Stack, Type: v.Type}, nil
	}
	return il.Address{}, errors.Wrap(ErrInternal, "variable %q has source %v", v.Name, v.Source)
}

// use returns the address identifier id resolved to
func (g *Generator) use(id ast.ExprID) (il.Address, error) {
	v, ok := g.info.Use(id)
	if !ok {
		return il.Address{}, errors.Wrap(ErrInternal, "unresolved identifier %s", ast.ExprString(g.prog, id))
	}
	return g.address(v)
}

// assign stores src into dest, copying the reference for strings
func (g *Generator) assign(dest, src il.Address) {
	if dest.Type == ast.String {
		g.emit(il.LoadPointer{Dest: dest, Src: src})
		return
	}
	g.emit(il.Move{Dest: dest, Src: src})
}

// labelSep joins label namespace components; identifiers cannot contain it
const labelSep = "$"

func labelName(ns, what string, idx int) string {
	return ns + labelSep + what + "_" + strconv.Itoa(idx)
}

func innerNamespace(ns, kind string, idx int, part string) string {
	return ns + labelSep + kind + strconv.Itoa(idx) + part
}
