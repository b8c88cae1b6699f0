package mips

import (
	"bytes"
	"fmt"
	"io"

	"github.com/fortall-lang/fortallc/pkg/ast"
	"github.com/fortall-lang/fortallc/pkg/backend"
	"github.com/fortall-lang/fortallc/pkg/il"
	"tlog.app/go/errors"
)

// Runtime service numbers
const (
	SysPrintInt    = 1
	SysPrintString = 4
	SysReadInt     = 5
	SysReadString  = 8
	SysSbrk        = 9
	SysExit        = 10
	SysExitCode    = 17
	SysPrintBool   = 45
	SysReadBool    = 46
)

// Config controls register usage and frame layout
type Config struct {
	Registers    []string
	WordSize     int
	MaxArgs      int
	StringBuffer int
}

// DefaultConfig uses $t0..$t9 and four argument registers
func DefaultConfig() Config {
	return Config{
		Registers:    []string{"$t0", "$t1", "$t2", "$t3", "$t4", "$t5", "$t6", "$t7", "$t8", "$t9"},
		WordSize:     4,
		MaxArgs:      len(ArgRegs),
		StringBuffer: 256,
	}
}

var binaryOps = map[ast.BinaryOp]string{
	ast.OpAdd: "add",
	ast.OpSub: "sub",
	ast.OpMul: "mul",
	ast.OpDiv: "div",
	ast.OpEq:  "seq",
	ast.OpNe:  "sne",
	ast.OpLt:  "slt",
	ast.OpLe:  "sle",
	ast.OpGt:  "sgt",
	ast.OpGe:  "sge",
	ast.OpAnd: "and",
	ast.OpOr:  "or",
}

// Emit lowers prog and writes the assembly to w. Nothing is written when
// lowering fails.
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

// Generate lowers an IL program to MIPS assembly
func Generate(prog *il.Program, cfg Config) (*Program, error) {
	if prog.MainLabel == "" {
		return nil, errors.New("program has no main function")
	}
	if cfg.MaxArgs > len(ArgRegs) {
		cfg.MaxArgs = len(ArgRegs)
	}
	out := &Program{Entry: prog.MainLabel}
	out.Data = dataSection(prog.Globals)

	literals := make(map[string]bool)
	for _, g := range prog.Globals {
		if g.Literal {
			literals[g.Name] = true
		}
	}

	for i := range prog.Functions {
		fn := &prog.Functions[i]
		g := &funcGen{
			cfg:      cfg,
			prog:     prog,
			fn:       fn,
			isMain:   fn.Label == prog.MainLabel,
			literals: literals,
			out:      &Function{Label: fn.Label},
		}
		if err := g.run(); err != nil {
			return nil, err
		}
		out.Functions = append(out.Functions, *g.out)
	}
	return out, nil
}

// dataSection lays out words first, then string data
func dataSection(globals []il.GlobalVar) []Data {
	var words, strs []Data
	for _, g := range globals {
		switch {
		case g.Literal:
			strs = append(strs, Data{Name: g.Name, Kind: Asciiz, Str: g.Init.Str})
		case g.Type == ast.String && g.Init != nil:
			blob := g.Name + "__data"
			strs = append(strs, Data{Name: blob, Kind: Asciiz, Str: g.Init.Str})
			words = append(words, Data{Name: g.Name, Kind: Word, Symbol: blob})
		default:
			words = append(words, Data{Name: g.Name, Kind: Word, Value: constWord(g.Init)})
		}
	}
	return append(words, strs...)
}

func constWord(c *ast.Constant) int64 {
	if c == nil {
		return 0
	}
	switch c.Type {
	case ast.Integer:
		return c.Int
	case ast.Boolean:
		if c.Bool {
			return 1
		}
	}
	return 0
}

type funcGen struct {
	cfg      Config
	prog     *il.Program
	fn       *il.Function
	isMain   bool
	literals map[string]bool
	out      *Function

	frame   *backend.Frame
	regs    *backend.RegisterPool
	loc     *backend.Locator
	scratch []il.Address
	nextTmp int
}

func (g *funcGen) fault(instr il.Instruction, err error) error {
	return &backend.Fault{Function: g.fn.Name, Instruction: instr, Err: err}
}

func (g *funcGen) run() error {
	if len(g.fn.Params) > g.cfg.MaxArgs {
		return g.fault(nil, errors.Wrap(backend.ErrTooManyArgs, "%d parameters", len(g.fn.Params)))
	}
	g.frame = backend.LayoutFunction(g.fn, g.cfg.WordSize, !g.isMain)
	g.regs = backend.NewRegisterPool(g.cfg.Registers)
	g.loc = &backend.Locator{Frame: g.frame, Regs: g.regs}

	g.prologue()

	dying := backend.LastUses(g.fn.Code)
	for i, instr := range g.fn.Code {
		if err := g.instr(instr, dying[i]); err != nil {
			return g.fault(instr, err)
		}
		for _, s := range g.scratch {
			g.regs.Release(s)
		}
		g.scratch = g.scratch[:0]
		for _, a := range dying[i] {
			g.regs.Release(a)
		}
	}
	return nil
}

func (g *funcGen) prologue() {
	if size := g.frame.Size(); size > 0 {
		g.out.Append(I{Op: "addi", Rt: SP, Rs: SP, Imm: int64(-size)})
	}
	if !g.isMain {
		off, _ := g.frame.Offset(backend.ReturnSlot)
		g.out.Append(SW{Rt: RA, Offset: off, Base: SP})
	}
	for i, p := range g.fn.Params {
		off, _ := g.frame.Offset(p.Name)
		g.out.Append(SW{Rt: ArgRegs[i], Offset: off, Base: SP})
	}
}

// scratchReg borrows a register until the current instruction is done
func (g *funcGen) scratchReg() (string, error) {
	key := il.Address{Name: fmt.Sprintf("$scratch%d", g.nextTmp), Kind: il.Temporary}
	g.nextTmp++
	r, err := g.regs.Allocate(key)
	if err != nil {
		return "", err
	}
	g.scratch = append(g.scratch, key)
	return r, nil
}

// loadInto puts the value of a into register target
func (g *funcGen) loadInto(target string, a il.Address) error {
	loc, err := g.loc.Locate(a)
	if err != nil {
		return err
	}
	switch loc.Kind {
	case backend.InRegister:
		g.out.Append(Move{Rd: target, Rs: loc.Register})
	case backend.InFrame:
		g.out.Append(LW{Rt: target, Offset: loc.Offset, Base: SP})
	case backend.InSymbol:
		if g.literals[loc.Symbol] {
			g.out.Append(LA{Rd: target, Symbol: loc.Symbol})
		} else {
			g.out.Append(LWSym{Rt: target, Symbol: loc.Symbol})
		}
	default:
		return errors.Wrap(backend.ErrUnsupported, "location of %s", a.Name)
	}
	return nil
}

// use returns a register holding the value of a
func (g *funcGen) use(a il.Address) (string, error) {
	if a.Kind == il.Temporary {
		return g.regs.Get(a)
	}
	r, err := g.scratchReg()
	if err != nil {
		return "", err
	}
	return r, g.loadInto(r, a)
}

// def returns the register an instruction should compute a into
func (g *funcGen) def(a il.Address) (string, error) {
	if a.Kind == il.Temporary {
		return g.regs.Allocate(a)
	}
	return g.scratchReg()
}

// commit stores reg into a unless a lives in reg already
func (g *funcGen) commit(a il.Address, reg string) error {
	if a.Kind == il.Temporary {
		r, err := g.regs.Allocate(a)
		if err != nil {
			return err
		}
		if r != reg {
			g.out.Append(Move{Rd: r, Rs: reg})
		}
		return nil
	}
	loc, err := g.loc.Locate(a)
	if err != nil {
		return err
	}
	switch loc.Kind {
	case backend.InFrame:
		g.out.Append(SW{Rt: reg, Offset: loc.Offset, Base: SP})
	case backend.InSymbol:
		if g.literals[loc.Symbol] {
			return errors.Wrap(backend.ErrUnsupported, "store to literal %s", loc.Symbol)
		}
		g.out.Append(SWSym{Rt: reg, Symbol: loc.Symbol})
	default:
		return errors.Wrap(backend.ErrUnsupported, "store to %s", a.Name)
	}
	return nil
}

func (g *funcGen) instr(instr il.Instruction, dying []il.Address) error {
	switch in := instr.(type) {
	case il.Load:
		v, err := loadValue(in.Value)
		if err != nil {
			return err
		}
		d, err := g.def(in.Dest)
		if err != nil {
			return err
		}
		g.out.Append(LI{Rd: d, Imm: v})
		return g.commit(in.Dest, d)

	case il.Move:
		return g.copy(in.Dest, in.Src)

	case il.LoadPointer:
		return g.copy(in.Dest, in.Src)

	case il.BinaryOp:
		op, ok := binaryOps[in.Op]
		if !ok {
			return errors.Wrap(backend.ErrUnsupported, "operator %v", in.Op)
		}
		l, err := g.use(in.Left)
		if err != nil {
			return err
		}
		r, err := g.use(in.Right)
		if err != nil {
			return err
		}
		d, err := g.def(in.Dest)
		if err != nil {
			return err
		}
		g.out.Append(R{Op: op, Rd: d, Rs: l, Rt: r})
		return g.commit(in.Dest, d)

	case il.UnaryOp:
		if in.Op != ast.OpNot {
			return errors.Wrap(backend.ErrUnsupported, "operator %v", in.Op)
		}
		o, err := g.use(in.Operand)
		if err != nil {
			return err
		}
		d, err := g.def(in.Dest)
		if err != nil {
			return err
		}
		g.out.Append(I{Op: "xori", Rt: d, Rs: o, Imm: 1})
		return g.commit(in.Dest, d)

	case il.Call:
		return g.call(in, dying)

	case il.Goto:
		g.out.Append(J{Label: in.Label})

	case il.IfGoto:
		c, err := g.use(in.Cond)
		if err != nil {
			return err
		}
		g.out.Append(BNEZ{Rs: c, Label: in.Label})

	case il.Label:
		g.out.Append(LabelDef{Name: in.Name})

	case il.Return:
		return g.ret(in)

	case il.Read:
		return g.read(in)

	case il.Write:
		code, err := printService(in.Type)
		if err != nil {
			return err
		}
		if err := g.loadInto(A0, in.Src); err != nil {
			return err
		}
		g.out.Append(LI{Rd: V0, Imm: code}, Syscall{})

	case il.VarDecl:

	default:
		return errors.Wrap(backend.ErrUnsupported, "instruction %T", instr)
	}
	return nil
}

func loadValue(c ast.Constant) (int64, error) {
	switch c.Type {
	case ast.Integer:
		return c.Int, nil
	case ast.Boolean:
		if c.Bool {
			return 1, nil
		}
		return 0, nil
	}
	return 0, errors.Wrap(backend.ErrUnsupported, "load of %s constant", c.Type)
}

func printService(t ast.Type) (int64, error) {
	switch t {
	case ast.Integer:
		return SysPrintInt, nil
	case ast.Boolean:
		return SysPrintBool, nil
	case ast.String:
		return SysPrintString, nil
	}
	return 0, errors.Wrap(backend.ErrUnknownType, "write of %s", t)
}

func (g *funcGen) copy(dest, src il.Address) error {
	if dest.Kind != il.Temporary {
		s, err := g.use(src)
		if err != nil {
			return err
		}
		return g.commit(dest, s)
	}
	d, err := g.regs.Allocate(dest)
	if err != nil {
		return err
	}
	return g.loadInto(d, src)
}

func (g *funcGen) call(in il.Call, dying []il.Address) error {
	callee, ok := g.prog.Function(in.Func)
	if !ok {
		return errors.Wrap(backend.ErrUnsupported, "call to unknown function %s", in.Func)
	}
	if len(in.Args) > g.cfg.MaxArgs {
		return errors.Wrap(backend.ErrTooManyArgs, "%d arguments to %s", len(in.Args), in.Func)
	}
	for i, a := range in.Args {
		if err := g.loadInto(ArgRegs[i], a); err != nil {
			return err
		}
	}

	// temporaries still needed after the call are caller-saved
	skip := map[string]bool{}
	for _, a := range dying {
		if r, err := g.regs.Get(a); err == nil {
			skip[r] = true
		}
	}
	if r, err := g.regs.Get(in.Dest); err == nil {
		skip[r] = true
	}
	var saved []string
	for _, r := range g.regs.Used() {
		if !skip[r] {
			saved = append(saved, r)
		}
	}

	word := g.cfg.WordSize
	if len(saved) > 0 {
		g.out.Append(I{Op: "addi", Rt: SP, Rs: SP, Imm: int64(-len(saved) * word)})
		for i, r := range saved {
			g.out.Append(SW{Rt: r, Offset: i * word, Base: SP})
		}
	}
	g.out.Append(JAL{Label: callee.Label})
	if len(saved) > 0 {
		for i, r := range saved {
			g.out.Append(LW{Rt: r, Offset: i * word, Base: SP})
		}
		g.out.Append(I{Op: "addi", Rt: SP, Rs: SP, Imm: int64(len(saved) * word)})
	}

	if callee.ReturnType == ast.Void {
		return nil
	}
	return g.commit(in.Dest, V0)
}

func (g *funcGen) ret(in il.Return) error {
	hasValue := in.Value != nil || g.fn.ReturnType != ast.Void
	if in.Value != nil {
		if err := g.loadInto(V0, *in.Value); err != nil {
			return err
		}
	} else if hasValue {
		g.out.Append(LI{Rd: V0, Imm: 0})
	}

	if g.isMain {
		if hasValue {
			g.out.Append(Move{Rd: A0, Rs: V0}, LI{Rd: V0, Imm: SysExitCode}, Syscall{})
		} else {
			g.out.Append(LI{Rd: V0, Imm: SysExit}, Syscall{})
		}
		return nil
	}

	off, _ := g.frame.Offset(backend.ReturnSlot)
	g.out.Append(LW{Rt: RA, Offset: off, Base: SP})
	if size := g.frame.Size(); size > 0 {
		g.out.Append(I{Op: "addi", Rt: SP, Rs: SP, Imm: int64(size)})
	}
	g.out.Append(JR{Rs: RA})
	return nil
}

func (g *funcGen) read(in il.Read) error {
	switch in.Type {
	case ast.Integer:
		g.out.Append(LI{Rd: V0, Imm: SysReadInt}, Syscall{})
		return g.commit(in.Dest, V0)
	case ast.Boolean:
		g.out.Append(LI{Rd: V0, Imm: SysReadBool}, Syscall{})
		return g.commit(in.Dest, V0)
	case ast.String:
		size := int64(g.cfg.StringBuffer)
		g.out.Append(
			LI{Rd: A0, Imm: size},
			LI{Rd: V0, Imm: SysSbrk},
			Syscall{},
			Move{Rd: A0, Rs: V0},
			LI{Rd: A1, Imm: size},
			LI{Rd: V0, Imm: SysReadString},
			Syscall{},
		)
		return g.commit(in.Dest, A0)
	}
	return errors.Wrap(backend.ErrUnknownType, "read of %s", in.Type)
}
