package il

import (
	"fmt"
	"io"
	"strings"
)

// Printer outputs IL in a readable three-address form
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new IL printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintProgram prints globals followed by every function
func (p *Printer) PrintProgram(prog *Program) {
	for _, g := range prog.Globals {
		kind := "var"
		if g.Literal {
			kind = "literal"
		}
		if g.Init != nil {
			fmt.Fprintf(p.w, "%s %s %s = %s\n", kind, g.Type, g.Name, g.Init)
		} else {
			fmt.Fprintf(p.w, "%s %s %s\n", kind, g.Type, g.Name)
		}
	}
	if len(prog.Globals) > 0 {
		fmt.Fprintln(p.w)
	}
	for i := range prog.Functions {
		if i > 0 {
			fmt.Fprintln(p.w)
		}
		p.PrintFunction(&prog.Functions[i])
	}
}

// PrintFunction prints one function
func (p *Printer) PrintFunction(fn *Function) {
	params := make([]string, len(fn.Params))
	for i, param := range fn.Params {
		params[i] = fmt.Sprintf("%s %s", param.Type, param.Name)
	}
	fmt.Fprintf(p.w, "%s(%s): %s {\n", fn.Label, strings.Join(params, ", "), fn.ReturnType)
	for _, instr := range fn.Code {
		if l, ok := instr.(Label); ok {
			fmt.Fprintf(p.w, "%s:\n", l.Name)
			continue
		}
		fmt.Fprintf(p.w, "  %s\n", FormatInstruction(instr))
	}
	fmt.Fprintln(p.w, "}")
}

// FormatAddress renders an address with a kind sigil
func FormatAddress(a Address) string {
	switch a.Kind {
	case Temporary:
		return a.Name
	case Stack:
		return "%" + a.Name
	case Global:
		return "@" + a.Name
	case Parameter:
		return "$" + a.Name
	}
	return "?" + a.Name
}

// FormatInstruction renders a single instruction without indentation
func FormatInstruction(instr Instruction) string {
	switch in := instr.(type) {
	case Load:
		return fmt.Sprintf("%s = %s", FormatAddress(in.Dest), in.Value)
	case Move:
		return fmt.Sprintf("%s = %s", FormatAddress(in.Dest), FormatAddress(in.Src))
	case LoadPointer:
		return fmt.Sprintf("%s = &%s", FormatAddress(in.Dest), FormatAddress(in.Src))
	case BinaryOp:
		return fmt.Sprintf("%s = %s %s %s", FormatAddress(in.Dest), FormatAddress(in.Left), in.Op, FormatAddress(in.Right))
	case UnaryOp:
		return fmt.Sprintf("%s = %s%s", FormatAddress(in.Dest), in.Op, FormatAddress(in.Operand))
	case Call:
		args := make([]string, len(in.Args))
		for i, a := range in.Args {
			args[i] = FormatAddress(a)
		}
		return fmt.Sprintf("%s = call %s(%s)", FormatAddress(in.Dest), in.Func, strings.Join(args, ", "))
	case Goto:
		return "goto " + in.Label
	case IfGoto:
		return fmt.Sprintf("if %s goto %s", FormatAddress(in.Cond), in.Label)
	case Label:
		return in.Name + ":"
	case Return:
		if in.Value != nil {
			return "return " + FormatAddress(*in.Value)
		}
		return "return"
	case Read:
		return fmt.Sprintf("read %s %s", in.Type, FormatAddress(in.Dest))
	case Write:
		return fmt.Sprintf("write %s %s", in.Type, FormatAddress(in.Src))
	case VarDecl:
		return fmt.Sprintf("var %s %s", in.Type, in.Name)
	}
	return fmt.Sprintf("<unknown %T>", instr)
}
