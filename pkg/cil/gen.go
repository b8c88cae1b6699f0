package cil

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/fortall-lang/fortallc/pkg/ast"
	"github.com/fortall-lang/fortallc/pkg/backend"
	"github.com/fortall-lang/fortallc/pkg/il"
	"tlog.app/go/errors"
)

// Framework members used for console I/O
const (
	readLine  = "string [System.Console]System.Console::ReadLine()"
	parseInt  = "int32 [System.Runtime]System.Int32::Parse(string)"
	parseBool = "bool [System.Runtime]System.Boolean::Parse(string)"
	writeLine = "void [System.Console]System.Console::WriteLine(%s)"
)

// Config controls naming and the size of the temporary local pools
type Config struct {
	AssemblyName string
	// TempLocals is the number of int32 and of string locals available
	// to hold IL temporaries in each method
	TempLocals int
}

// DefaultConfig names the assembly FortallProgram with 16 temporaries
// of each kind
func DefaultConfig() Config {
	return Config{AssemblyName: "FortallProgram", TempLocals: 16}
}

var binaryOps = map[ast.BinaryOp][]string{
	ast.OpAdd: {"add"},
	ast.OpSub: {"sub"},
	ast.OpMul: {"mul"},
	ast.OpDiv: {"div"},
	ast.OpEq:  {"ceq"},
	ast.OpNe:  {"ceq", "ldc.i4.0", "ceq"},
	ast.OpLt:  {"clt"},
	ast.OpLe:  {"cgt", "ldc.i4.0", "ceq"},
	ast.OpGt:  {"cgt"},
	ast.OpGe:  {"clt", "ldc.i4.0", "ceq"},
	ast.OpAnd: {"and"},
	ast.OpOr:  {"or"},
}

// TypeName returns the CIL name of a Fortall type
func TypeName(t ast.Type) (string, error) {
	switch t {
	case ast.Integer:
		return "int32", nil
	case ast.Boolean:
		return "bool", nil
	case ast.String:
		return "string", nil
	case ast.Void:
		return "void", nil
	}
	return "", errors.Wrap(backend.ErrUnknownType, "%s", t)
}

// Emit lowers prog and writes the assembly text to w. Nothing is written
// when lowering fails.
func Emit(w io.Writer, prog *il.Program, cfg Config) error {
	out, err := Generate(prog, cfg)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	NewPrinter(&buf).PrintProgram(out)
	_, err = w.Write(buf.Bytes())
	return err
}

// Generate lowers an IL program to a CIL assembly
func Generate(prog *il.Program, cfg Config) (*Program, error) {
	if prog.MainLabel == "" {
		return nil, errors.New("program has no main function")
	}
	if cfg.AssemblyName == "" {
		cfg.AssemblyName = DefaultConfig().AssemblyName
	}
	out := &Program{Assembly: cfg.AssemblyName, Class: cfg.AssemblyName + ".Program"}

	literals := make(map[string]string)
	cctor := Method{Name: ".cctor", ReturnType: "void", Special: true, MaxStack: 8}
	for _, g := range prog.Globals {
		if g.Literal {
			literals[g.Name] = g.Init.Str
			continue
		}
		typ, err := TypeName(g.Type)
		if err != nil {
			return nil, errors.Wrap(err, "global %s", g.Name)
		}
		out.Fields = append(out.Fields, Field{Name: g.Name, Type: typ})
		if g.Init == nil {
			continue
		}
		op, err := constant(*g.Init)
		if err != nil {
			return nil, errors.Wrap(err, "global %s", g.Name)
		}
		cctor.Append(op, Op{Code: "stsfld", Operand: fieldRef(out.Class, typ, g.Name)})
	}
	cctor.Append(Op{Code: "ret"})

	for i := range prog.Functions {
		fn := &prog.Functions[i]
		g := &methodGen{
			cfg:      cfg,
			prog:     prog,
			class:    out.Class,
			fn:       fn,
			literals: literals,
		}
		m, err := g.run(fn.Label == prog.MainLabel)
		if err != nil {
			return nil, err
		}
		out.Methods = append(out.Methods, m)
	}
	out.Methods = append(out.Methods, cctor)
	return out, nil
}

func fieldRef(class, typ, name string) string {
	return fmt.Sprintf("%s %s::%s", typ, class, QuoteName(name))
}

// constant pushes c onto the evaluation stack
func constant(c ast.Constant) (Op, error) {
	switch c.Type {
	case ast.Integer:
		return ldcI4(c.Int), nil
	case ast.Boolean:
		if c.Bool {
			return Op{Code: "ldc.i4.1"}, nil
		}
		return Op{Code: "ldc.i4.0"}, nil
	case ast.String:
		return Op{Code: "ldstr", Operand: QuoteString(c.Str)}, nil
	}
	return Op{}, errors.Wrap(backend.ErrUnknownType, "constant of %s", c.Type)
}

func ldcI4(v int64) Op {
	switch {
	case v == -1:
		return Op{Code: "ldc.i4.m1"}
	case v >= 0 && v <= 8:
		return Op{Code: "ldc.i4." + strconv.FormatInt(v, 10)}
	case v >= -128 && v <= 127:
		return Op{Code: "ldc.i4.s", Operand: strconv.FormatInt(v, 10)}
	}
	return Op{Code: "ldc.i4", Operand: strconv.FormatInt(v, 10)}
}

// signature renders a call target for fn
func signature(class string, fn *il.Function) (string, error) {
	ret, err := TypeName(fn.ReturnType)
	if err != nil {
		return "", err
	}
	params := ""
	for i, p := range fn.Params {
		typ, err := TypeName(p.Type)
		if err != nil {
			return "", err
		}
		if i > 0 {
			params += ", "
		}
		params += typ
	}
	return fmt.Sprintf("%s %s::%s(%s)", ret, class, QuoteName(fn.Name), params), nil
}

type methodGen struct {
	cfg      Config
	prog     *il.Program
	class    string
	fn       *il.Function
	literals map[string]string

	ints, strs *backend.RegisterPool
	loc        *backend.Locator
	touched    map[string]bool
	out        *Method
}

func (g *methodGen) fault(instr il.Instruction, err error) error {
	return &backend.Fault{Function: g.fn.Name, Instruction: instr, Err: err}
}

func tempNames(prefix string, n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("$%s%d", prefix, i)
	}
	return names
}

func (g *methodGen) run(entry bool) (Method, error) {
	ret, err := TypeName(g.fn.ReturnType)
	if err != nil {
		return Method{}, g.fault(nil, err)
	}
	g.out = &Method{Name: g.fn.Name, ReturnType: ret, Entry: entry, MaxStack: 8}

	args := make(map[string]int, len(g.fn.Params))
	for i, p := range g.fn.Params {
		typ, err := TypeName(p.Type)
		if err != nil {
			return Method{}, g.fault(nil, errors.Wrap(err, "parameter %s", p.Name))
		}
		g.out.Params = append(g.out.Params, Local{Name: p.Name, Type: typ})
		args[p.Name] = i
	}

	frame := backend.NewFrame(1)
	for _, instr := range g.fn.Code {
		switch in := instr.(type) {
		case il.VarDecl:
			typ, err := TypeName(in.Type)
			if err != nil {
				return Method{}, g.fault(instr, err)
			}
			frame.Allocate(in.Name)
			g.out.Locals = append(g.out.Locals, Local{Name: in.Name, Type: typ})
		case il.Call:
			if n := len(in.Args) + 1; n > g.out.MaxStack {
				g.out.MaxStack = n
			}
		}
	}

	g.ints = backend.NewRegisterPool(tempNames("i", g.cfg.TempLocals))
	g.strs = backend.NewRegisterPool(tempNames("s", g.cfg.TempLocals))
	g.loc = &backend.Locator{Frame: frame, Args: args}
	g.touched = make(map[string]bool)

	dying := backend.LastUses(g.fn.Code)
	for i, instr := range g.fn.Code {
		if err := g.instr(instr); err != nil {
			return Method{}, g.fault(instr, err)
		}
		for _, a := range dying[i] {
			g.pool(a.Type).Release(a)
		}
		g.releaseRetyped(instr)
	}

	for _, r := range tempNames("i", g.cfg.TempLocals) {
		if g.touched[r] {
			g.out.Locals = append(g.out.Locals, Local{Name: r, Type: "int32"})
		}
	}
	for _, r := range tempNames("s", g.cfg.TempLocals) {
		if g.touched[r] {
			g.out.Locals = append(g.out.Locals, Local{Name: r, Type: "string"})
		}
	}
	return *g.out, nil
}

// pool holds temporaries of type t. Booleans share the int32 pool.
// releaseRetyped frees the binding of a temporary read by instr when instr
// redefines the same name in the other pool. The old value is dead but
// LastUses does not report a use that equals the definition.
func (g *methodGen) releaseRetyped(instr il.Instruction) {
	def, ok := il.Def(instr)
	if !ok || def.Kind != il.Temporary {
		return
	}
	for _, u := range il.Uses(instr) {
		if u.Key() == def.Key() && g.pool(u.Type) != g.pool(def.Type) {
			g.pool(u.Type).Release(u)
		}
	}
}

func (g *methodGen) pool(t ast.Type) *backend.RegisterPool {
	if t == ast.String {
		return g.strs
	}
	return g.ints
}

func (g *methodGen) op(code string, operand ...string) {
	o := Op{Code: code}
	if len(operand) > 0 {
		o.Operand = operand[0]
	}
	g.out.Append(o)
}

// push loads the value of a onto the evaluation stack
func (g *methodGen) push(a il.Address) error {
	if a.Kind == il.Temporary {
		r, err := g.pool(a.Type).Get(a)
		if err != nil {
			return err
		}
		g.op("ldloc", QuoteName(r))
		return nil
	}
	loc, err := g.loc.Locate(a)
	if err != nil {
		return err
	}
	switch loc.Kind {
	case backend.InFrame:
		g.op("ldloc", QuoteName(a.Name))
	case backend.InArgument:
		g.op("ldarg", strconv.Itoa(loc.Index))
	case backend.InSymbol:
		if text, ok := g.literals[loc.Symbol]; ok {
			g.op("ldstr", QuoteString(text))
			return nil
		}
		typ, err := TypeName(a.Type)
		if err != nil {
			return err
		}
		g.op("ldsfld", fieldRef(g.class, typ, loc.Symbol))
	default:
		return errors.Wrap(backend.ErrUnsupported, "location of %s", a.Name)
	}
	return nil
}

// store pops the top of the evaluation stack into a
func (g *methodGen) store(a il.Address) error {
	if a.Kind == il.Temporary {
		r, err := g.pool(a.Type).Allocate(a)
		if err != nil {
			return err
		}
		g.touched[r] = true
		g.op("stloc", QuoteName(r))
		return nil
	}
	loc, err := g.loc.Locate(a)
	if err != nil {
		return err
	}
	switch loc.Kind {
	case backend.InFrame:
		g.op("stloc", QuoteName(a.Name))
	case backend.InArgument:
		g.op("starg", strconv.Itoa(loc.Index))
	case backend.InSymbol:
		if _, ok := g.literals[loc.Symbol]; ok {
			return errors.Wrap(backend.ErrUnsupported, "store to literal %s", loc.Symbol)
		}
		typ, err := TypeName(a.Type)
		if err != nil {
			return err
		}
		g.op("stsfld", fieldRef(g.class, typ, loc.Symbol))
	default:
		return errors.Wrap(backend.ErrUnsupported, "store to %s", a.Name)
	}
	return nil
}

func (g *methodGen) instr(instr il.Instruction) error {
	switch in := instr.(type) {
	case il.Load:
		op, err := constant(in.Value)
		if err != nil {
			return err
		}
		g.out.Append(op)
		return g.store(in.Dest)

	case il.Move:
		if err := g.push(in.Src); err != nil {
			return err
		}
		return g.store(in.Dest)

	case il.LoadPointer:
		if err := g.push(in.Src); err != nil {
			return err
		}
		return g.store(in.Dest)

	case il.BinaryOp:
		ops, ok := binaryOps[in.Op]
		if !ok {
			return errors.Wrap(backend.ErrUnsupported, "operator %v", in.Op)
		}
		if err := g.push(in.Left); err != nil {
			return err
		}
		if err := g.push(in.Right); err != nil {
			return err
		}
		for _, o := range ops {
			g.op(o)
		}
		return g.store(in.Dest)

	case il.UnaryOp:
		if in.Op != ast.OpNot {
			return errors.Wrap(backend.ErrUnsupported, "operator %v", in.Op)
		}
		if err := g.push(in.Operand); err != nil {
			return err
		}
		g.op("ldc.i4.0")
		g.op("ceq")
		return g.store(in.Dest)

	case il.Call:
		callee, ok := g.prog.Function(in.Func)
		if !ok {
			return errors.Wrap(backend.ErrUnsupported, "call to unknown function %s", in.Func)
		}
		for _, a := range in.Args {
			if err := g.push(a); err != nil {
				return err
			}
		}
		sig, err := signature(g.class, callee)
		if err != nil {
			return err
		}
		g.op("call", sig)
		if callee.ReturnType == ast.Void {
			return nil
		}
		return g.store(in.Dest)

	case il.Goto:
		g.op("br", in.Label)

	case il.IfGoto:
		if err := g.push(in.Cond); err != nil {
			return err
		}
		g.op("brtrue", in.Label)

	case il.Label:
		g.out.Append(LabelDef{Name: in.Name})

	case il.Return:
		return g.ret(in)

	case il.Read:
		g.op("call", readLine)
		switch in.Type {
		case ast.Integer:
			g.op("call", parseInt)
		case ast.Boolean:
			g.op("call", parseBool)
		case ast.String:
		default:
			return errors.Wrap(backend.ErrUnknownType, "read of %s", in.Type)
		}
		return g.store(in.Dest)

	case il.Write:
		typ, err := TypeName(in.Type)
		if err != nil || in.Type == ast.Void {
			return errors.Wrap(backend.ErrUnknownType, "write of %s", in.Type)
		}
		if err := g.push(in.Src); err != nil {
			return err
		}
		g.op("call", fmt.Sprintf(writeLine, typ))

	case il.VarDecl:

	default:
		return errors.Wrap(backend.ErrUnsupported, "instruction %T", instr)
	}
	return nil
}

// ret leaves the method. A bare return from a function with a result
// yields the zero value of its type.
func (g *methodGen) ret(in il.Return) error {
	switch {
	case in.Value != nil:
		if err := g.push(*in.Value); err != nil {
			return err
		}
	case g.fn.ReturnType == ast.String:
		g.op("ldnull")
	case g.fn.ReturnType != ast.Void:
		g.op("ldc.i4.0")
	}
	g.op("ret")
	return nil
}
