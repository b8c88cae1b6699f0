package cil

import (
	"fmt"
	"io"
	"strings"
)

// RuntimeVersion is the version of the referenced framework assemblies
const RuntimeVersion = "9:0:0:0"

// Printer outputs ilasm assembly text
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new assembly printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintProgram outputs an entire assembly
func (p *Printer) PrintProgram(prog *Program) {
	for _, ref := range []string{"System.Runtime", "System.Console"} {
		fmt.Fprintf(p.w, ".assembly extern %s\n{\n  .ver %s\n}\n", ref, RuntimeVersion)
	}
	fmt.Fprintf(p.w, ".assembly %s {}\n", prog.Assembly)
	fmt.Fprintf(p.w, ".module %s.exe\n\n", prog.Assembly)

	fmt.Fprintf(p.w, ".class public auto ansi abstract sealed beforefieldinit %s\n", prog.Class)
	fmt.Fprintf(p.w, "  extends [System.Runtime]System.Object\n{\n")
	for _, f := range prog.Fields {
		fmt.Fprintf(p.w, "  .field public static %s %s\n", f.Type, QuoteName(f.Name))
	}
	for _, m := range prog.Methods {
		fmt.Fprintf(p.w, "\n")
		p.printMethod(m)
	}
	fmt.Fprintf(p.w, "}\n")
}

func (p *Printer) printMethod(m Method) {
	name := QuoteName(m.Name)
	attrs := "public hidebysig static"
	if m.Special {
		name = m.Name
		attrs = "private hidebysig specialname rtspecialname static"
	}
	params := make([]string, len(m.Params))
	for i, prm := range m.Params {
		params[i] = prm.Type + " " + QuoteName(prm.Name)
	}
	fmt.Fprintf(p.w, "  .method %s %s %s(%s) cil managed\n  {\n", attrs, m.ReturnType, name, strings.Join(params, ", "))
	if m.Entry {
		fmt.Fprintf(p.w, "    .entrypoint\n")
	}
	fmt.Fprintf(p.w, "    .maxstack %d\n", m.MaxStack)
	if len(m.Locals) > 0 {
		locals := make([]string, len(m.Locals))
		for i, l := range m.Locals {
			locals[i] = fmt.Sprintf("[%d] %s %s", i, l.Type, QuoteName(l.Name))
		}
		fmt.Fprintf(p.w, "    .locals init (%s)\n", strings.Join(locals, ", "))
	}
	for _, instr := range m.Code {
		p.printInstruction(instr)
	}
	fmt.Fprintf(p.w, "  }\n")
}

func (p *Printer) printInstruction(instr Instruction) {
	switch i := instr.(type) {
	case LabelDef:
		fmt.Fprintf(p.w, "  %s:\n", i.Name)
	case Op:
		if i.Operand == "" {
			fmt.Fprintf(p.w, "    %s\n", i.Code)
		} else {
			fmt.Fprintf(p.w, "    %s %s\n", i.Code, i.Operand)
		}
	}
}

// QuoteName renders an identifier as an ilasm single-quoted name, which
// keeps user names clear of opcode keywords
func QuoteName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", `\'`) + "'"
}

// QuoteString renders a string constant for ldstr
func QuoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
